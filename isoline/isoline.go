package isoline

import (
	"math"

	"github.com/notargets/fieldcover/mesh"
	"github.com/notargets/fieldcover/utils"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'fieldcover.isoline'
func tracer() tracing.Trace {
	return tracing.Select("fieldcover.isoline")
}

// IsoSegment is the piece of an isoline inside one face. Sides follow the
// mesh convention: side j runs from corner (j+1)%3 to corner (j+2)%3 and a
// barycentric coordinate t places the point at (1-t)·start + t·end.
type IsoSegment struct {
	Face      int
	EntrySide int
	ExitSide  int
	EntryBary float64
	ExitBary  float64
}

// IsoLine is a chain of segments at one isovalue, each segment entering
// through the side the previous one left by
type IsoLine struct {
	Value    float64
	Segments []IsoSegment
	Closed   bool // The last segment exits into the first
}

// Crosses reports whether the periodic function with values a and b at the
// ends of a side takes the value isoval on the shorter arc between them, and
// where. The period is [minv, maxv). When |b-a| is at most half the period the
// test is linear; otherwise the arc wraps and either end is shifted by one
// period.
func Crosses(isoval, a, b, minv, maxv float64) (bool, float64) {
	w := maxv - minv
	if math.Abs(b-a) <= w/2 {
		return linearCrossing(isoval, a, b)
	}
	if a < b {
		if ok, t := linearCrossing(isoval, a+w, b); ok {
			return true, t
		}
		return linearCrossing(isoval, a, b-w)
	}
	if ok, t := linearCrossing(isoval, a-w, b); ok {
		return true, t
	}
	return linearCrossing(isoval, a, b+w)
}

func linearCrossing(isoval, a, b float64) (bool, float64) {
	if a == b {
		return false, 0
	}
	t := (isoval - a) / (b - a)
	return t >= 0 && t < 1, t
}

// sweep holds the state of one isovalue sweep
type sweep struct {
	s       *mesh.Surface
	theta   []float64
	value   float64
	visited []bool
}

// crossings returns the crossing sides of face f and their barycentric
// coordinates
func (sw *sweep) crossings(f int) (sides []int, bary []float64) {
	for j := 0; j < 3; j++ {
		a, b := sw.s.SideVertices(f, j)
		if ok, t := Crosses(sw.value, sw.theta[a], sw.theta[b], -math.Pi, math.Pi); ok {
			sides = append(sides, j)
			bary = append(bary, t)
		}
	}
	return
}

// trace follows the isoline out of face start through side. It reports
// whether the walk came back to start.
func (sw *sweep) trace(start, side int) (segs []IsoSegment, closed bool) {
	prev, cur := start, sw.s.FToF[start][side]
	for cur >= 0 {
		if cur == start {
			return segs, true
		}
		if sw.visited[cur] {
			return segs, false
		}
		sides, bary := sw.crossings(cur)
		if len(sides) != 2 {
			sw.visited[cur] = true
			return segs, false
		}
		entry := -1
		for k, j := range sides {
			if sw.s.FToF[cur][j] == prev {
				entry = k
			}
		}
		if entry < 0 {
			return segs, false
		}
		sw.visited[cur] = true
		exit := 1 - entry
		segs = append(segs, IsoSegment{
			Face:      cur,
			EntrySide: sides[entry],
			ExitSide:  sides[exit],
			EntryBary: bary[entry],
			ExitBary:  bary[exit],
		})
		prev, cur = cur, sw.s.FToF[cur][sides[exit]]
	}
	return segs, false
}

// reversed flips the order and direction of segs
func reversed(segs []IsoSegment) []IsoSegment {
	out := make([]IsoSegment, 0, len(segs))
	for k := len(segs) - 1; k >= 0; k-- {
		sg := segs[k]
		sg.EntrySide, sg.ExitSide = sg.ExitSide, sg.EntrySide
		sg.EntryBary, sg.ExitBary = sg.ExitBary, sg.EntryBary
		out = append(out, sg)
	}
	return out
}

// ExtractValue returns the isolines of θ at one value. θ and the value are
// wrapped into [-π, π). Every face where the value crosses exactly two sides
// contributes exactly one segment.
func ExtractValue(s *mesh.Surface, theta []float64, value float64) []IsoLine {
	sw := &sweep{
		s:       s,
		theta:   wrapAll(theta),
		value:   utils.WrapPeriodic(value, -math.Pi, math.Pi),
		visited: make([]bool, s.NumFaces),
	}
	var lines []IsoLine
	for f := 0; f < s.NumFaces; f++ {
		if sw.visited[f] {
			continue
		}
		sw.visited[f] = true
		sides, bary := sw.crossings(f)
		if len(sides) != 2 {
			continue
		}
		forward, closed := sw.trace(f, sides[1])
		var backward []IsoSegment
		if !closed {
			backward, _ = sw.trace(f, sides[0])
		}
		line := IsoLine{Value: sw.value, Closed: closed}
		line.Segments = append(reversed(backward), IsoSegment{
			Face:      f,
			EntrySide: sides[0],
			ExitSide:  sides[1],
			EntryBary: bary[0],
			ExitBary:  bary[1],
		})
		line.Segments = append(line.Segments, forward...)
		lines = append(lines, line)
	}
	return lines
}

// Extract returns the isolines of θ at the n values -π + 2πk/n
func Extract(s *mesh.Surface, theta []float64, n int) []IsoLine {
	var lines []IsoLine
	for k := 0; k < n; k++ {
		lines = append(lines, ExtractValue(s, theta, -math.Pi+2*math.Pi*float64(k)/float64(n))...)
	}
	segments := 0
	for _, l := range lines {
		segments += len(l.Segments)
	}
	tracer().Infof("isolines: %d lines, %d segments over %d values", len(lines), segments, n)
	return lines
}

// CrossingFaces counts the faces where value crosses exactly two sides
func CrossingFaces(s *mesh.Surface, theta []float64, value float64) int {
	sw := &sweep{s: s, theta: wrapAll(theta), value: utils.WrapPeriodic(value, -math.Pi, math.Pi)}
	n := 0
	for f := 0; f < s.NumFaces; f++ {
		if sides, _ := sw.crossings(f); len(sides) == 2 {
			n++
		}
	}
	return n
}

func wrapAll(theta []float64) []float64 {
	out := make([]float64, len(theta))
	for v, t := range theta {
		out[v] = utils.WrapPeriodic(t, -math.Pi, math.Pi)
	}
	return out
}

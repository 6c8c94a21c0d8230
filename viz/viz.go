package viz

import (
	"github.com/notargets/fieldcover/cover"
	"github.com/notargets/fieldcover/isoline"
	"github.com/notargets/fieldcover/mesh"
	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/spatial/r3"
)

// tracer writes to trace with key 'fieldcover.viz'
func tracer() tracing.Trace {
	return tracing.Select("fieldcover.viz")
}

// LiftOff is the distance drawn lines sit above the surface along the normal
const LiftOff = 1e-4

var SlicedColor = [3]float64{0.1, 0.9, 0.9}

// FaceVectors returns, for every split mesh face, its centroid and the tip of
// the cover field vector drawn from it at the given length
func FaceVectors(c *cover.Cover, scale float64) (from, to []r3.Vec) {
	split := c.Split
	from = make([]r3.Vec, split.NumFaces)
	to = make([]r3.Vec, split.NumFaces)
	for cf := 0; cf < split.NumFaces; cf++ {
		from[cf] = split.Centroid(cf)
		to[cf] = r3.Add(from[cf], r3.Scale(scale, c.Field.EmbeddedV(cf, 0)))
	}
	return
}

// CutEdges returns the endpoints of the sliced split mesh edges lifted off the
// surface, with one color per edge
func CutEdges(c *cover.Cover) (p0, p1 []r3.Vec, colors [][3]float64) {
	split := c.Split
	for e, sliced := range c.SplitSlicedEdges {
		if !sliced {
			continue
		}
		edge := split.E[e]
		var n r3.Vec
		for _, f := range []int{edge.F0, edge.F1} {
			if f >= 0 {
				n = r3.Add(n, split.FaceNormal(f))
			}
		}
		var offset r3.Vec
		if norm := r3.Norm(n); norm > 0 {
			offset = r3.Scale(LiftOff/norm, n)
		}
		p0 = append(p0, r3.Add(split.V[edge.V0], offset))
		p1 = append(p1, r3.Add(split.V[edge.V1], offset))
		colors = append(colors, SlicedColor)
	}
	return
}

// IsolinePoints places each isoline segment on the split mesh, two points per
// segment, lifted off the face. Cover faces and split faces share indices and
// corner order.
func IsolinePoints(split *mesh.Surface, lines []isoline.IsoLine) []r3.Vec {
	var pts []r3.Vec
	for _, line := range lines {
		for _, sg := range line.Segments {
			offset := r3.Scale(LiftOff, split.FaceNormal(sg.Face))
			pts = append(pts,
				r3.Add(sidePoint(split, sg.Face, sg.EntrySide, sg.EntryBary), offset),
				r3.Add(sidePoint(split, sg.Face, sg.ExitSide, sg.ExitBary), offset),
			)
		}
	}
	return pts
}

func sidePoint(s *mesh.Surface, f, side int, t float64) r3.Vec {
	a, b := s.SideVertices(f, side)
	return r3.Add(r3.Scale(1-t, s.V[a]), r3.Scale(t, s.V[b]))
}

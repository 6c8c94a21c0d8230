package isoline

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/notargets/fieldcover/mesh"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrosses(t *testing.T) {
	tests := []struct {
		name    string
		isoval  float64
		a, b    float64
		crosses bool
		bary    float64
	}{
		{"linear midpoint", 0, 1, -1, true, 0.5},
		{"linear start is included", 1, 1, 2, true, 0},
		{"linear end is excluded", 2, 1, 2, false, 0},
		{"below range", -2, 1, -1, false, 0},
		{"above range", 1.5, 1, -1, false, 0},
		{"flat side", 0.5, 0.5, 0.5, false, 0},
		{"wrap misses the middle", 0, 3, -3, false, 0},
		{"wrap above", 3.1, 3, -3, true, 0.1 / (2*math.Pi - 6)},
		{"wrap below", -3.1, 3, -3, true, 1 - 0.1/(2*math.Pi-6)},
		{"wrap from below", 3.1, -3, 3, true, 1 - 0.1/(2*math.Pi-6)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, bary := Crosses(tc.isoval, tc.a, tc.b, -math.Pi, math.Pi)
			assert.Equal(t, tc.crosses, ok)
			if tc.crosses {
				assert.InDelta(t, tc.bary, bary, 1e-12)
			}
		})
	}
}

func TestCrossesIsLinearWithinHalfPeriod(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for k := 0; k < 1000; k++ {
		a := -math.Pi + 2*math.Pi*rng.Float64()
		b := a + (rng.Float64()-0.5)*math.Pi
		if b < -math.Pi || b >= math.Pi {
			continue
		}
		iso := -math.Pi + 2*math.Pi*rng.Float64()
		ok, _ := Crosses(iso, a, b, -math.Pi, math.Pi)
		want, _ := linearCrossing(iso, a, b)
		assert.Equal(t, want, ok)
		if iso < math.Min(a, b) || iso > math.Max(a, b) {
			assert.False(t, ok)
		}
	}
}

// assertChained checks that each segment leaves through the side the next
// one enters by
func assertChained(t *testing.T, s *mesh.Surface, line IsoLine) {
	t.Helper()
	n := len(line.Segments)
	for k := 0; k+1 < n || (line.Closed && k < n); k++ {
		cur, next := line.Segments[k], line.Segments[(k+1)%n]
		assert.Equal(t, next.Face, s.FToF[cur.Face][cur.ExitSide])
		assert.Equal(t, cur.Face, s.FToF[next.Face][next.EntrySide])
		assert.InDelta(t, 1, cur.ExitBary+next.EntryBary, 1e-12)
	}
}

func TestExtractOnCylinder(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	const around, rings = 8, 3
	s := mesh.Cylinder(around, rings, 1, 1)
	theta := make([]float64, s.NumVertices)
	for v, p := range s.V {
		theta[v] = math.Atan2(p.Y, p.X) + 0.1
	}

	lines := Extract(s, theta, 8)
	require.Len(t, lines, 8)
	for k, line := range lines {
		assert.InDelta(t, -math.Pi+2*math.Pi*float64(k)/8, line.Value, 1e-12)
		assert.Len(t, line.Segments, s.NumFaces/8)
		assert.False(t, line.Closed)
		assertChained(t, s, line)
	}
}

func TestExtractClosedLoop(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	s := mesh.Grid(10, 10, 2, 2)
	theta := make([]float64, s.NumVertices)
	for v, p := range s.V {
		theta[v] = 2*((p.X-1)*(p.X-1)+(p.Y-1)*(p.Y-1)) - 1
	}
	lines := ExtractValue(s, theta, 0)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Closed)
	assert.Len(t, lines[0].Segments, CrossingFaces(s, theta, 0))
	assertChained(t, s, lines[0])
}

func TestExtractIsExhaustive(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	s := mesh.Grid(8, 7, 1, 1)
	rng := rand.New(rand.NewPCG(7, 11))
	theta := make([]float64, s.NumVertices)
	for v := range theta {
		theta[v] = -math.Pi + 2*math.Pi*rng.Float64()
	}

	for _, value := range []float64{-3, -1.7, -0.2, 0.9, 2.5, 3.1} {
		lines := ExtractValue(s, theta, value)
		faces := make(map[int]int)
		segments := 0
		for _, line := range lines {
			assertChained(t, s, line)
			for _, sg := range line.Segments {
				faces[sg.Face]++
				segments++
			}
		}
		assert.Equal(t, CrossingFaces(s, theta, value), segments, "value %g", value)
		for f, n := range faces {
			assert.Equal(t, 1, n, "face %d at value %g", f, value)
		}
	}
}

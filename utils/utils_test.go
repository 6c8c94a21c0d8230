package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCorners(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		pairs [][2]int
		class []int
		count int
	}{
		{"no gluing", 3, nil, []int{0, 1, 2}, 3},
		{"chain", 5, [][2]int{{4, 2}, {2, 0}}, []int{0, 1, 0, 2, 0}, 3},
		{"two classes", 6, [][2]int{{5, 3}, {1, 0}, {3, 1}, {2, 4}, {4, 4}}, []int{0, 0, 1, 0, 1, 0}, 2},
		{"repeated pair", 2, [][2]int{{0, 1}, {1, 0}, {0, 1}}, []int{0, 0}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			class, count := ClassifyCorners(tc.n, tc.pairs)
			assert.Equal(t, tc.class, class)
			assert.Equal(t, tc.count, count)
		})
	}
}

func TestWrapAngle(t *testing.T) {
	cases := map[float64]float64{
		0:                0,
		math.Pi:          math.Pi,
		-math.Pi:         math.Pi,
		1.5 * math.Pi:    -0.5 * math.Pi,
		-1.5 * math.Pi:   0.5 * math.Pi,
		7*math.Pi + 0.25: -math.Pi + 0.25,
	}
	for in, want := range cases {
		assert.InDelta(t, want, WrapAngle(in), 1e-12, "WrapAngle(%v)", in)
	}

	assert.InDelta(t, -math.Pi, WrapPeriodic(math.Pi, -math.Pi, math.Pi), 1e-15)
	assert.InDelta(t, -math.Pi, WrapPeriodic(-math.Pi, -math.Pi, math.Pi), 1e-15)
	assert.InDelta(t, 0.5, WrapPeriodic(2*math.Pi+0.5, -math.Pi, math.Pi), 1e-12)
	assert.InDelta(t, 0.25, WrapPeriodic(-0.75, 0, 1), 1e-15)
}

func TestVertexConnector(t *testing.T) {
	// Two components sharing global vertices 1 and 2, component 1 holding two
	// copies of vertex 3
	l2g := [][]int{
		{0, 1, 2},
		{1, 3, 2, 3},
	}
	vc, err := NewVertexConnector(4, l2g)
	require.NoError(t, err)
	require.NoError(t, vc.Verify())
	assert.Equal(t, []int{1, 2, 2, 2}, vc.Copies)
	// Only shared vertices are picked, walked in global order
	assert.Equal(t, [][]int{{1, 2}, {0, 2, 1, 3}}, vc.PickIndices)
	assert.Equal(t, [][]int{{1, 2}, {1, 2, 3, 3}}, vc.PlaceIndices)

	global, err := vc.Scatter([][]float64{{1, 2, 3}, {4, 5, 6, 7}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 4.5, 6}, global)

	local := vc.Gather([]float64{10, 11, 12, 13})
	assert.Equal(t, [][]float64{{10, 11, 12}, {11, 13, 12, 13}}, local)

	_, err = vc.Scatter([][]float64{{1, 2, 3}})
	assert.Error(t, err)
	_, err = vc.Scatter([][]float64{{1, 2, 3}, {4}})
	assert.Error(t, err)
}

func TestVertexConnectorRejectsBadMaps(t *testing.T) {
	t.Run("out of range", func(t *testing.T) {
		_, err := NewVertexConnector(2, [][]int{{0, 2}})
		assert.Error(t, err)
	})
	t.Run("uncovered vertex", func(t *testing.T) {
		_, err := NewVertexConnector(3, [][]int{{0, 1}})
		assert.Error(t, err)
	})
	t.Run("corrupted indices", func(t *testing.T) {
		tests := []struct {
			name    string
			corrupt func(vc *VertexConnector)
		}{
			{"pick out of range", func(vc *VertexConnector) {
				vc.PickIndices[0] = append(vc.PickIndices[0], 5)
				vc.PlaceIndices[0] = append(vc.PlaceIndices[0], 2)
			}},
			{"unshared pick", func(vc *VertexConnector) { vc.PickIndices[0][0] = 0 }},
			{"length mismatch", func(vc *VertexConnector) { vc.PlaceIndices[0] = nil }},
			{"wrong place", func(vc *VertexConnector) { vc.PlaceIndices[1][0] = 2 }},
			{"out of order", func(vc *VertexConnector) {
				vc.PickIndices[1][0], vc.PickIndices[1][1] = vc.PickIndices[1][1], vc.PickIndices[1][0]
				vc.PlaceIndices[1][0], vc.PlaceIndices[1][1] = vc.PlaceIndices[1][1], vc.PlaceIndices[1][0]
			}},
			{"dropped copy", func(vc *VertexConnector) {
				vc.PickIndices[1] = vc.PickIndices[1][:1]
				vc.PlaceIndices[1] = vc.PlaceIndices[1][:1]
			}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				// Globals 1 and 2 are shared, global 0 has one copy
				vc, err := NewVertexConnector(3, [][]int{{0, 1}, {2, 1, 2}})
				require.NoError(t, err)
				require.Equal(t, [][]int{{1}, {1, 0, 2}}, vc.PickIndices)
				tc.corrupt(vc)
				assert.Error(t, vc.Verify())
			})
		}
	})
	t.Run("empty", func(t *testing.T) {
		_, err := NewVertexConnector(0, nil)
		assert.Error(t, err)
	})
}

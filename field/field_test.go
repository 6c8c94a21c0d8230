package field

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/notargets/fieldcover/mesh"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func edgeIndex(t *testing.T, s *mesh.Surface, a, b int) int {
	t.Helper()
	if a > b {
		a, b = b, a
	}
	for e, edge := range s.E {
		if edge.V0 == a && edge.V1 == b {
			return e
		}
	}
	t.Fatalf("no edge (%d,%d)", a, b)
	return -1
}

// alignedGrid returns a 2 × 2 grid with every field slot i along x rotated by
// i·90°
func alignedGrid(t *testing.T, m int) *Surface {
	t.Helper()
	fs, err := New(mesh.Grid(2, 2, 1, 1), m)
	require.NoError(t, err)
	dirs := []r3.Vec{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}}
	var handles []Handle
	for f := 0; f < fs.NumFaces(); f++ {
		for i := 0; i < m; i++ {
			handles = append(handles, Handle{Face: f, Field: i, Dir: dirs[i%4]})
		}
	}
	require.NoError(t, fs.ApplyHandles(handles))
	return fs
}

func TestPackedLayout(t *testing.T) {
	fs, err := New(mesh.Tetrahedron(), 2)
	require.NoError(t, err)
	require.Len(t, fs.Data, 5*2*4)

	fs.SetV(3, 1, [2]float64{7, 8})
	fs.SetBeta(3, 1, [2]float64{9, 10})
	fs.SetAlpha(3, 1, 11)

	assert.Equal(t, 7.0, fs.Data[2*(2*3+1)])
	assert.Equal(t, 8.0, fs.Data[2*(2*3+1)+1])
	assert.Equal(t, 9.0, fs.Data[2*2*4+2*(2*3+1)])
	assert.Equal(t, 10.0, fs.Data[2*2*4+2*(2*3+1)+1])
	assert.Equal(t, 11.0, fs.Data[4*2*4+2*3+1])

	assert.Equal(t, [2]float64{7, 8}, fs.V(3, 1))
	assert.Equal(t, [2]float64{9, 10}, fs.Beta(3, 1))
	assert.Equal(t, 11.0, fs.Alpha(3, 1))
	assert.NoError(t, fs.Validate())

	_, err = New(mesh.Triangle(), 0)
	assert.Error(t, err)
}

func TestNormalizeFields(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	for _, s := range []*mesh.Surface{mesh.Tetrahedron(), mesh.Cylinder(10, 3, 2, 5)} {
		fs, err := New(s, 3)
		require.NoError(t, err)
		fs.Randomize(42)
		for f := 0; f < fs.NumFaces(); f++ {
			for i := 0; i < fs.M; i++ {
				assert.InDelta(t, 1.0, r3.Norm(fs.EmbeddedV(f, i)), 1e-10)
			}
		}
	}
}

func TestSingleTriangleField(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	fs, err := New(mesh.Triangle(), 1)
	require.NoError(t, err)
	fs.SetV(0, 0, [2]float64{1, 0})
	fs.NormalizeFields()
	assert.Equal(t, [2]float64{1, 0}, fs.V(0, 0))
	assert.Equal(t, []float64{0}, fs.ConnectionEnergy(AbsoluteAngle))

	var buf bytes.Buffer
	require.NoError(t, fs.Write(&buf))
	// magic, version, 4 counts, 9 positions, 3 indices, 5 DOFs, 3 permutations, 1 flag
	assert.Equal(t, 6*4+9*8+3*4+5*8+3*4+1*4, buf.Len())

	buf.Reset()
	require.NoError(t, fs.WriteVersion(&buf, 0))
	assert.Equal(t, 4*4+9*8+3*4+5*8+3*4, buf.Len())
}

func TestSerializationRoundTrip(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	fs, err := New(mesh.Tetrahedron(), 2)
	require.NoError(t, err)
	fs.Randomize(7)
	for k := 4 * 2 * 4; k < len(fs.Data); k++ {
		fs.Data[k] = float64(k) / 3
	}
	swap, err := NewPermutation(2, []int{0, -1, 1, 0})
	require.NoError(t, err)
	fs.Perms[2] = swap
	fs.Deleted[1] = true

	for _, version := range []int32{0, 1} {
		var buf bytes.Buffer
		require.NoError(t, fs.WriteVersion(&buf, version))
		got, err := Read(&buf)
		require.NoError(t, err, "version %d", version)

		assert.Equal(t, fs.Data, got.Data)
		require.Len(t, got.Perms, len(fs.Perms))
		for e := range fs.Perms {
			assert.True(t, fs.Perms[e].Equal(got.Perms[e]), "edge %d", e)
		}
		assert.Equal(t, fs.Mesh.F, got.Mesh.F)
		assert.Equal(t, fs.Mesh.V, got.Mesh.V)
		if version == 1 {
			assert.Equal(t, fs.Deleted, got.Deleted)
		} else {
			assert.Equal(t, 4, got.NumUndeletedFaces())
		}
	}
}

func TestDeserializationFailures(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	fs, err := New(mesh.Triangle(), 1)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, fs.Write(&buf))
	blob := buf.Bytes()

	t.Run("truncated", func(t *testing.T) {
		for _, n := range []int{0, 3, 10, 30, len(blob) - 1} {
			got, err := Read(bytes.NewReader(blob[:n]))
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, ErrSerialization), "length %d: %v", n, err)
		}
	})
	t.Run("bad permutation", func(t *testing.T) {
		bad, err := New(mesh.Triangle(), 1)
		require.NoError(t, err)
		bad.Perms[0].P[0] = 2
		var b bytes.Buffer
		require.NoError(t, bad.Write(&b))
		got, err := Read(&b)
		assert.Nil(t, got)
		assert.True(t, errors.Is(err, ErrBadPermutation))
		assert.True(t, errors.Is(err, ErrSerialization))
	})
	header := func(counts ...int32) []byte {
		var b bytes.Buffer
		require.NoError(t, binary.Write(&b, binary.LittleEndian, append([]int32{Magic, FormatVersion}, counts...)))
		return b.Bytes()
	}
	t.Run("oversized counts", func(t *testing.T) {
		tests := []struct {
			name string
			blob []byte
		}{
			{"field count", header(3, 1, math.MaxInt32, 3)},
			{"vertex count", header(math.MaxInt32, 1, 1, 3)},
			{"face count", header(3, math.MaxInt32, 1, 3)},
			{"edge count", header(3, 1, 1, math.MaxInt32)},
			{"legacy field count", blob[8:24]},
		}
		tests[4].blob = append([]byte(nil), tests[4].blob...)
		binary.LittleEndian.PutUint32(tests[4].blob[8:], uint32(MaxFields+1))
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				got, err := Read(bytes.NewReader(tc.blob))
				assert.Nil(t, got)
				assert.ErrorIs(t, err, ErrSerialization)
			})
		}
	})
	t.Run("version", func(t *testing.T) {
		b := append([]byte(nil), blob...)
		b[4] = 9
		got, err := Read(bytes.NewReader(b))
		assert.Nil(t, got)
		assert.Error(t, err)
	})
}

func TestPermutationAlgebra(t *testing.T) {
	p, err := NewPermutation(3, []int{0, -1, 0, 0, 0, 1, 1, 0, 0})
	require.NoError(t, err)

	j, sign := p.Target(0)
	assert.Equal(t, 1, j)
	assert.Equal(t, -1, sign)
	j, sign = p.Target(2)
	assert.Equal(t, 0, j)
	assert.Equal(t, 1, sign)

	assert.True(t, p.Compose(p.Inverse()).IsIdentity())
	assert.True(t, p.Inverse().Compose(p).IsIdentity())
	assert.False(t, p.IsIdentity())
	assert.True(t, Identity(3).IsIdentity())

	invalid := map[string][]int{
		"entry two":      {2, 0, 0, 1},
		"empty row":      {0, 0, 0, 1},
		"two in a row":   {1, 1, 0, 1},
		"shared column":  {1, 0, -1, 0},
		"wrong length":   {1, 0, 0},
		"negative three": {-3, 0, 0, 1},
	}
	for name, entries := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := NewPermutation(2, entries)
			assert.True(t, errors.Is(err, ErrBadPermutation))
		})
	}

	all := signedPermutations(2)
	assert.Len(t, all, 8)
	assert.True(t, all[0].IsIdentity())
	for _, q := range all {
		assert.NoError(t, q.Validate())
	}
	assert.Len(t, signedPermutations(3), 48)
}

func TestConnectionEnergy(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	fs := alignedGrid(t, 1)
	for f, x := range fs.ConnectionEnergy(AbsoluteAngle) {
		assert.InDelta(t, 0, x, 1e-12, "face %d", f)
	}

	// Face 0 of the grid has two interior edges, to faces 1 and 3
	require.NoError(t, fs.ApplyHandles([]Handle{{Face: 0, Field: 0, Dir: r3.Vec{Y: 1}}}))
	abs := fs.ConnectionEnergy(AbsoluteAngle)
	signed := fs.ConnectionEnergy(SignedAngle)
	assert.InDelta(t, math.Pi, abs[0], 1e-12)
	assert.InDelta(t, math.Pi/2, abs[1], 1e-12)
	assert.InDelta(t, math.Pi/2, abs[3], 1e-12)
	assert.InDelta(t, math.Pi/2, math.Abs(signed[1]), 1e-12)
	for f := 4; f < fs.NumFaces(); f++ {
		assert.InDelta(t, 0, abs[f], 1e-12)
	}
}

func TestReassignPermutations(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	fs := alignedGrid(t, 2)
	e := edgeIndex(t, fs.Mesh, 0, 4)
	swap, err := NewPermutation(2, []int{0, 1, 1, 0})
	require.NoError(t, err)
	fs.Perms[e] = swap

	changed, err := fs.ReassignPermutations()
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.True(t, fs.Perms[e].IsIdentity())

	// A reversed face needs negating permutations on both its interior edges
	single := alignedGrid(t, 1)
	require.NoError(t, single.ApplyHandles([]Handle{{Face: 0, Field: 0, Dir: r3.Vec{X: -1}}}))
	changed, err = single.ReassignPermutations()
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	for f, x := range single.ConnectionEnergy(AbsoluteAngle) {
		assert.InDelta(t, 0, x, 1e-12, "face %d", f)
	}

	wide, err := New(mesh.Triangle(), 5)
	require.NoError(t, err)
	_, err = wide.ReassignPermutations()
	assert.Error(t, err)
}

func TestSingularVertices(t *testing.T) {
	fs := alignedGrid(t, 1)
	assert.Empty(t, fs.SingularVertices())

	// Vertex 4 is the only interior vertex of the 2 × 2 grid
	fs.Perms[edgeIndex(t, fs.Mesh, 0, 4)] = Permutation{M: 1, P: []int{-1}}
	assert.Equal(t, []int{4}, fs.SingularVertices())

	fs.Perms[edgeIndex(t, fs.Mesh, 4, 8)] = Permutation{M: 1, P: []int{-1}}
	assert.Empty(t, fs.SingularVertices())
}

func TestRemoveDeletedFaces(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	fs, err := New(mesh.Grid(2, 2, 1, 1), 1)
	require.NoError(t, err)
	for f := 0; f < fs.NumFaces(); f++ {
		fs.SetV(f, 0, [2]float64{float64(f), 0})
		fs.SetAlpha(f, 0, float64(f))
	}
	fs.Perms[edgeIndex(t, fs.Mesh, 4, 5)] = Permutation{M: 1, P: []int{-1}}

	fs.DeleteVertex(0)
	assert.Equal(t, []bool{true, true, false, false, false, false, false, false}, fs.Deleted)
	assert.Equal(t, 6, fs.NumUndeletedFaces())

	out, err := fs.RemoveDeletedFacesFromMesh()
	require.NoError(t, err)
	assert.Equal(t, 8, out.Mesh.NumVertices)
	assert.Equal(t, 6, out.NumFaces())
	for f := 0; f < out.NumFaces(); f++ {
		assert.Equal(t, [2]float64{float64(f + 2), 0}, out.V(f, 0))
		assert.Equal(t, float64(f+2), out.Alpha(f, 0))
	}
	// Old vertices 4 and 5 are now 3 and 4
	assert.Equal(t, []int{-1}, out.Perms[edgeIndex(t, out.Mesh, 3, 4)].P)
	assert.NoError(t, out.Validate())

	// The compacted surface owns its permutations
	out.Perms[edgeIndex(t, out.Mesh, 3, 4)].P[0] = 1
	assert.Equal(t, []int{-1}, fs.Perms[edgeIndex(t, fs.Mesh, 4, 5)].P)

	fs.UndeleteAllFaces()
	assert.Equal(t, 8, fs.NumUndeletedFaces())

	for v := 0; v < 9; v++ {
		fs.DeleteVertex(v)
	}
	_, err = fs.RemoveDeletedFacesFromMesh()
	assert.True(t, errors.Is(err, mesh.ErrEmptyMesh))
}

package viz

import (
	"bufio"
	"bytes"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/hschendel/stl"
	"github.com/notargets/fieldcover/cover"
	"github.com/notargets/fieldcover/field"
	"github.com/notargets/fieldcover/isoline"
	"github.com/notargets/fieldcover/mesh"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func cylinderCover(t *testing.T) *cover.Cover {
	t.Helper()
	s := mesh.Cylinder(8, 2, 1, 1)
	fs, err := field.New(s, 1)
	require.NoError(t, err)
	fs.Randomize(2)
	c, err := cover.Build(fs)
	require.NoError(t, err)
	c.ComputeCuts()
	return c
}

func TestFaceVectors(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	c := cylinderCover(t)
	from, to := FaceVectors(c, 0.25)
	require.Len(t, from, c.Split.NumFaces)
	require.Len(t, to, c.Split.NumFaces)
	for cf := range from {
		f, layer := c.FaceLayer(cf)
		want := r3.Add(c.Parent.Mesh.Centroid(f), c.SplitOffset(layer))
		assert.InDelta(t, 0, r3.Norm(r3.Sub(want, from[cf])), 1e-12)
		assert.InDelta(t, 0.25, r3.Norm(r3.Sub(to[cf], from[cf])), 1e-12)
	}
}

func TestCutEdges(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	c := cylinderCover(t)
	p0, p1, colors := CutEdges(c)
	sliced := 0
	for _, b := range c.SplitSlicedEdges {
		if b {
			sliced++
		}
	}
	require.Greater(t, sliced, 0)
	assert.Len(t, p0, sliced)
	assert.Len(t, p1, sliced)
	assert.Len(t, colors, sliced)
	for _, col := range colors {
		assert.Equal(t, SlicedColor, col)
	}
}

func TestIsolinePoints(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	c := cylinderCover(t)
	cm := c.Mesh()
	theta := make([]float64, cm.NumVertices)
	for v, p := range cm.V {
		theta[v] = math.Atan2(p.Y, p.X) + 0.1
	}
	lines := isoline.Extract(cm, theta, 4)
	require.NotEmpty(t, lines)
	pts := IsolinePoints(c.Split, lines)

	k := 0
	for _, line := range lines {
		for _, sg := range line.Segments {
			n := c.Split.FaceNormal(sg.Face)
			base := c.Split.V[c.Split.F[sg.Face][0]]
			for _, p := range pts[k : k+2] {
				assert.InDelta(t, LiftOff, r3.Dot(r3.Sub(p, base), n), 1e-12)
			}
			k += 2
		}
	}
	assert.Len(t, pts, k)
}

func TestWriteTheta(t *testing.T) {
	theta := []float64{0, -math.Pi, 1.0 / 3, 2.5e-9}
	var buf bytes.Buffer
	require.NoError(t, WriteTheta(&buf, theta))

	sc := bufio.NewScanner(&buf)
	var got []float64
	for sc.Scan() {
		x, err := strconv.ParseFloat(sc.Text(), 64)
		require.NoError(t, err)
		got = append(got, x)
	}
	assert.Equal(t, theta, got)
}

func TestWriteField(t *testing.T) {
	s := mesh.Grid(2, 1, 1, 1)
	fs, err := field.New(s, 1)
	require.NoError(t, err)
	var handles []field.Handle
	for f := 0; f < s.NumFaces; f++ {
		handles = append(handles, field.Handle{Face: f, Dir: r3.Vec{X: 1}})
	}
	require.NoError(t, fs.ApplyHandles(handles))

	var buf bytes.Buffer
	require.NoError(t, WriteField(&buf, fs))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, s.NumFaces)
	for _, line := range lines {
		fields := strings.Fields(line)
		require.Len(t, fields, 3)
		want := []float64{0, -1, 0}
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			require.NoError(t, err)
			assert.InDelta(t, want[i], x, 1e-12)
		}
	}
}

func TestWriteSplitSTL(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	c := cylinderCover(t)
	var buf bytes.Buffer
	require.NoError(t, WriteSplitSTL(&buf, c.Split, "split"))
	assert.Equal(t, 84+50*c.Split.NumFaces, buf.Len())

	solid, err := stl.ReadAll(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, solid.Triangles, c.Split.NumFaces)
	for f, tri := range solid.Triangles {
		for k := 0; k < 3; k++ {
			p := c.Split.V[c.Split.F[f][k]]
			assert.Equal(t, float32(p.X), tri.Vertices[k][0])
			assert.Equal(t, float32(p.Z), tri.Vertices[k][2])
		}
	}
}

func TestPlotSplit(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	c := cylinderCover(t)
	theta := make([]float64, c.Mesh().NumVertices)
	for v, p := range c.Mesh().V {
		theta[v] = p.Z
	}
	var buf bytes.Buffer
	require.NoError(t, PlotSplit(&buf, c, isoline.Extract(c.Mesh(), theta, 8), "svg"))
	assert.Contains(t, buf.String(), "<svg")
}

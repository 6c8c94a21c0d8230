package cover

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notargets/fieldcover/field"
	"github.com/notargets/fieldcover/mesh"
	"github.com/notargets/fieldcover/utils"
	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/spatial/r3"
)

// tracer writes to trace with key 'fieldcover.cover'
func tracer() tracing.Trace {
	return tracing.Select("fieldcover.cover")
}

var ErrNoEdges = errors.New("cover has no interior edges")

// Cover is the 2m-sheeted branched cover of a field surface. Sheet ℓ < m
// carries field ℓ, sheet ℓ ≥ m carries the negation of field ℓ-m. Cover
// face (f, ℓ) has index ℓ·|F| + f.
type Cover struct {
	Parent *field.Surface // Not owned, must outlive the cover
	Layers int            // 2m

	Field *field.Surface // Single field on the cover mesh

	// Vertex quotient
	PreVertexClass []int    // [(ℓ·|F| + f)·3 + corner] → cover vertex
	Gluing         [][2]int // Pre-vertex pairs identified across interior edges
	VertexMap      [][]int  // [layer][parent vertex] → cover vertex, first corner seen

	// Visualization only
	Split *mesh.Surface

	// Cuts, filled by ComputeCuts
	Cuts             []CutPath
	SlicedEdges      []bool // [cover edge]
	SplitSlicedEdges []bool // [split edge]
}

// LiftLayer maps layer ℓ across an edge with signed permutation p. Layer i
// and i+m are negation partners: a +1 entry (i,j) sends i to j and i+m to
// j+m, a -1 entry sends i to j+m and i+m to j.
func LiftLayer(p field.Permutation, layer, m int) int {
	i, negated := layer%m, layer >= m
	j, sign := p.Target(i)
	if sign < 0 {
		negated = !negated
	}
	if negated {
		return j + m
	}
	return j
}

// Build constructs the branched cover of fs
func Build(fs *field.Surface) (*Cover, error) {
	if err := fs.Validate(); err != nil {
		return nil, fmt.Errorf("cover of invalid field surface: %w", err)
	}
	s := fs.Mesh
	m := fs.M
	c := &Cover{Parent: fs, Layers: 2 * m}
	nf := s.NumFaces

	// Glue pre-vertices across every interior edge on every layer
	interior := 0
	for e, edge := range s.E {
		if !s.IsInteriorEdge(e) {
			continue
		}
		interior++
		for layer := 0; layer < c.Layers; layer++ {
			target := LiftLayer(fs.Perms[e], layer, m)
			for _, v := range []int{edge.V0, edge.V1} {
				c.Gluing = append(c.Gluing, [2]int{
					c.PreVertex(edge.F0, s.Corner(edge.F0, v), layer),
					c.PreVertex(edge.F1, s.Corner(edge.F1, v), target),
				})
			}
		}
	}
	if interior == 0 {
		tracer().Infof("%v: every layer is glued independently", ErrNoEdges)
	}

	var numVertices int
	c.PreVertexClass, numVertices = utils.ClassifyCorners(3*nf*c.Layers, c.Gluing)

	V := make([]r3.Vec, numVertices)
	F := make([][3]int, nf*c.Layers)
	c.VertexMap = make([][]int, c.Layers)
	for layer := 0; layer < c.Layers; layer++ {
		c.VertexMap[layer] = make([]int, s.NumVertices)
		for v := range c.VertexMap[layer] {
			c.VertexMap[layer][v] = -1
		}
		for f := 0; f < nf; f++ {
			cf := c.CoverFace(f, layer)
			for corner := 0; corner < 3; corner++ {
				v := s.F[f][corner]
				cv := c.PreVertexClass[c.PreVertex(f, corner, layer)]
				F[cf][corner] = cv
				V[cv] = s.V[v]
				if c.VertexMap[layer][v] < 0 {
					c.VertexMap[layer][v] = cv
				}
			}
		}
	}

	cm, err := mesh.NewFromTriangles(V, F)
	if err != nil {
		return nil, fmt.Errorf("cover mesh: %w", err)
	}
	for _, f := range cm.Diagnostics.DegenerateFaces {
		if !s.IsDegenerate(f % nf) {
			tracer().Errorf("cover face %d (face %d, layer %d) has a repeated vertex", f, f%nf, f/nf)
		}
	}

	c.Field, err = field.New(cm, 1)
	if err != nil {
		return nil, err
	}
	for layer := 0; layer < c.Layers; layer++ {
		i, sign := layer%m, 1.0
		if layer >= m {
			sign = -1
		}
		for f := 0; f < nf; f++ {
			x := fs.V(f, i)
			c.Field.SetV(c.CoverFace(f, layer), 0, [2]float64{sign * x[0], sign * x[1]})
		}
	}

	if c.Split, err = c.buildSplitMesh(); err != nil {
		return nil, fmt.Errorf("split mesh: %w", err)
	}
	c.SlicedEdges = make([]bool, cm.NumEdges)
	c.SplitSlicedEdges = make([]bool, c.Split.NumEdges)

	tracer().Infof("cover: %d layers, %d vertices, %d faces, %d edges",
		c.Layers, cm.NumVertices, cm.NumFaces, cm.NumEdges)
	return c, nil
}

// Mesh returns the cover mesh
func (c *Cover) Mesh() *mesh.Surface {
	return c.Field.Mesh
}

// PreVertex returns the index of the (face, corner, layer) triple
func (c *Cover) PreVertex(f, corner, layer int) int {
	return 3*c.CoverFace(f, layer) + corner
}

// CoverFace returns the cover face of parent face f on a layer
func (c *Cover) CoverFace(f, layer int) int {
	return layer*c.Parent.NumFaces() + f
}

// FaceLayer splits a cover face into its parent face and layer
func (c *Cover) FaceLayer(cf int) (f, layer int) {
	nf := c.Parent.NumFaces()
	return cf % nf, cf / nf
}

// String returns a summary of the cover
func (c *Cover) String() string {
	var sb strings.Builder
	cm := c.Mesh()
	sb.WriteString("=== Cover Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Layers: %d\n", c.Layers))
	sb.WriteString(fmt.Sprintf("  Vertices: %d (pre-vertices %d)\n", cm.NumVertices, len(c.PreVertexClass)))
	sb.WriteString(fmt.Sprintf("  Faces: %d, Edges: %d\n", cm.NumFaces, cm.NumEdges))
	sb.WriteString(fmt.Sprintf("  Euler characteristic: %d\n", cm.NumVertices-cm.NumEdges+cm.NumFaces))
	sb.WriteString(fmt.Sprintf("  Degenerate faces: %d\n", len(cm.Diagnostics.DegenerateFaces)))
	sliced := 0
	for _, b := range c.SlicedEdges {
		if b {
			sliced++
		}
	}
	sb.WriteString(fmt.Sprintf("  Cut paths: %d, sliced edges: %d\n", len(c.Cuts), sliced))
	sb.WriteString("=====================\n")
	return sb.String()
}

package mesh

import (
	"errors"
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// tracer writes to trace with key 'fieldcover.mesh'
func tracer() tracing.Trace {
	return tracing.Select("fieldcover.mesh")
}

var (
	ErrEmptyMesh   = errors.New("mesh has no faces")
	ErrFaceArity   = errors.New("face is not a triangle")
	ErrVertexIndex = errors.New("face references a vertex out of range")
)

// Edge is an undirected mesh edge with its two incident faces
type Edge struct {
	V0, V1       int // Endpoints, V0 < V1
	F0, F1       int // F0 traverses (V0,V1) counter-clockwise, F1 is the opposite face; -1 if absent
	Side0, Side1 int // Local side of the edge within F0 and F1; -1 if absent
}

// Diagnostics records malformed input found during construction. None of it
// stops construction.
type Diagnostics struct {
	DegenerateFaces     []int    // Repeated vertex index or vanishing area
	NonManifoldEdges    [][2]int // Vertex pairs with more than two faces or inconsistent orientation
	NonManifoldVertices []int    // Vertices whose incident faces form more than one fan
}

// Clean reports whether construction found nothing to complain about
func (d Diagnostics) Clean() bool {
	return len(d.DegenerateFaces) == 0 && len(d.NonManifoldEdges) == 0 &&
		len(d.NonManifoldVertices) == 0
}

// Surface is a triangle mesh with intrinsic per-face tangent bases and per-edge
// transport between neighboring tangent planes.
//
// Local side j of a face is the side opposite corner j, running from corner
// (j+1)%3 to corner (j+2)%3.
type Surface struct {
	V []r3.Vec // Vertex positions
	F [][3]int // Face to vertex, counter-clockwise
	E []Edge   // Unique edges in order of first appearance

	NumVertices int
	NumFaces    int
	NumEdges    int

	// Face connectivity
	FToE [][3]int // [face][side] -> edge, -1 on a degenerate side
	FToF [][3]int // [face][side] -> neighbor face across that side, -1 on the boundary

	// Geometry
	Normals    []r3.Vec     // Unit outward normal per face
	Areas      []float64    // Face area
	Bases      []*mat.Dense // [3 × 2] per face, columns V1-V0 and V2-V0
	Transports []*mat.Dense // [2 × 2] per edge, tangent coords on F0 -> tangent coords on F1

	degenerate []bool

	Diagnostics Diagnostics
}

// New canonicalizes raw vertices and faces into a Surface. Index errors are
// returned; degenerate and non-manifold input is recorded in Diagnostics.
func New(V []r3.Vec, F [][]int) (*Surface, error) {
	if len(F) == 0 {
		return nil, ErrEmptyMesh
	}
	faces := make([][3]int, len(F))
	for f, face := range F {
		if len(face) != 3 {
			return nil, fmt.Errorf("face %d has %d vertices: %w", f, len(face), ErrFaceArity)
		}
		for c, v := range face {
			if v < 0 || v >= len(V) {
				return nil, fmt.Errorf("face %d corner %d references vertex %d of %d: %w",
					f, c, v, len(V), ErrVertexIndex)
			}
			faces[f][c] = v
		}
	}
	return NewFromTriangles(V, faces)
}

// NewFromTriangles is New for input that is already known to be triangular
func NewFromTriangles(V []r3.Vec, F [][3]int) (*Surface, error) {
	if len(F) == 0 {
		return nil, ErrEmptyMesh
	}
	for f, face := range F {
		for c, v := range face {
			if v < 0 || v >= len(V) {
				return nil, fmt.Errorf("face %d corner %d references vertex %d of %d: %w",
					f, c, v, len(V), ErrVertexIndex)
			}
		}
	}
	s := &Surface{
		V:           append([]r3.Vec(nil), V...),
		F:           append([][3]int(nil), F...),
		NumVertices: len(V),
		NumFaces:    len(F),
	}
	s.buildGeometry()
	s.buildConnectivity()
	s.findNonManifoldVertices()
	s.buildTransports()

	if !s.Diagnostics.Clean() {
		tracer().Errorf("surface: %d degenerate faces, %d non-manifold edges, %d non-manifold vertices",
			len(s.Diagnostics.DegenerateFaces), len(s.Diagnostics.NonManifoldEdges),
			len(s.Diagnostics.NonManifoldVertices))
	}
	tracer().Debugf("surface: |V|=%d |F|=%d |E|=%d", s.NumVertices, s.NumFaces, s.NumEdges)
	return s, nil
}

// IsDegenerate reports whether face f was flagged degenerate
func (s *Surface) IsDegenerate(f int) bool {
	return s.degenerate[f]
}

// IsBoundaryEdge reports whether edge e is missing a face
func (s *Surface) IsBoundaryEdge(e int) bool {
	return s.E[e].F0 < 0 || s.E[e].F1 < 0
}

// IsInteriorEdge reports whether edge e has both faces
func (s *Surface) IsInteriorEdge(e int) bool {
	return !s.IsBoundaryEdge(e)
}

// Corner returns the corner index of vertex v within face f, or -1
func (s *Surface) Corner(f, v int) int {
	for c := 0; c < 3; c++ {
		if s.F[f][c] == v {
			return c
		}
	}
	return -1
}

// SideVertices returns the vertices of local side j of face f in the face's
// counter-clockwise order
func (s *Surface) SideVertices(f, j int) (a, b int) {
	return s.F[f][(j+1)%3], s.F[f][(j+2)%3]
}

// OtherFace returns the face across edge e from face f, or -1
func (s *Surface) OtherFace(e, f int) int {
	switch f {
	case s.E[e].F0:
		return s.E[e].F1
	case s.E[e].F1:
		return s.E[e].F0
	}
	return -1
}

// SideIn returns the local side of edge e in face f, or -1
func (s *Surface) SideIn(e, f int) int {
	switch f {
	case s.E[e].F0:
		return s.E[e].Side0
	case s.E[e].F1:
		return s.E[e].Side1
	}
	return -1
}

// BoundaryVertices flags every vertex touched by a boundary edge
func (s *Surface) BoundaryVertices() []bool {
	onBoundary := make([]bool, s.NumVertices)
	for e := range s.E {
		if s.IsBoundaryEdge(e) {
			onBoundary[s.E[e].V0] = true
			onBoundary[s.E[e].V1] = true
		}
	}
	return onBoundary
}

// String returns a summary of the surface
func (s *Surface) String() string {
	var sb strings.Builder
	sb.WriteString("=== Surface Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Vertices: %d\n", s.NumVertices))
	sb.WriteString(fmt.Sprintf("  Faces: %d\n", s.NumFaces))
	sb.WriteString(fmt.Sprintf("  Edges: %d\n", s.NumEdges))
	boundary := 0
	for e := range s.E {
		if s.IsBoundaryEdge(e) {
			boundary++
		}
	}
	sb.WriteString(fmt.Sprintf("  Boundary edges: %d\n", boundary))
	sb.WriteString(fmt.Sprintf("  Euler characteristic: %d\n", s.NumVertices-s.NumEdges+s.NumFaces))
	if len(s.Areas) > 0 {
		sb.WriteString(fmt.Sprintf("  Face area range: [%.4e, %.4e]\n", minFloat64(s.Areas), maxFloat64(s.Areas)))
	}
	lo, hi := s.Bounds()
	sb.WriteString(fmt.Sprintf("  Bounds: (%.4f, %.4f, %.4f) - (%.4f, %.4f, %.4f)\n",
		lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z))
	if !s.Diagnostics.Clean() {
		sb.WriteString(fmt.Sprintf("  Degenerate faces: %d\n", len(s.Diagnostics.DegenerateFaces)))
		sb.WriteString(fmt.Sprintf("  Non-manifold edges: %d\n", len(s.Diagnostics.NonManifoldEdges)))
		sb.WriteString(fmt.Sprintf("  Non-manifold vertices: %d\n", len(s.Diagnostics.NonManifoldVertices)))
	}
	sb.WriteString("=======================\n")
	return sb.String()
}

func minFloat64(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	min := s[0]
	for _, v := range s[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func maxFloat64(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	max := s[0]
	for _, v := range s[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

package field

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/notargets/fieldcover/mesh"
	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/spatial/r3"
)

// tracer writes to trace with key 'fieldcover.field'
func tracer() tracing.Trace {
	return tracing.Select("fieldcover.field")
}

var (
	ErrBadPermutation = errors.New("not a signed permutation")
	ErrDOFLength      = errors.New("DOF array has the wrong length")
	ErrSerialization  = errors.New("field surface serialization")
	ErrHandle         = errors.New("invalid handle")
)

// Surface is a triangle mesh carrying m tangent fields per face and a signed
// permutation per edge matching field slots across the edge.
//
// Data is packed as all v (2 per slot), then all β (2 per slot), then all α
// (1 per slot), each block ordered face-major: length 5·m·|F|.
type Surface struct {
	Mesh    *mesh.Surface
	M       int           // Fields per face
	Data    []float64     // Packed DOFs
	Perms   []Permutation // [edge], identity on boundary edges
	Deleted []bool        // [face]
}

// Handle pins field Field on face Face to the tangent direction Dir
type Handle struct {
	Face  int
	Field int
	Dir   r3.Vec
}

// New creates a field surface with zero DOFs and identity permutations
func New(s *mesh.Surface, m int) (*Surface, error) {
	if s == nil {
		return nil, mesh.ErrEmptyMesh
	}
	if m < 1 {
		return nil, fmt.Errorf("field count %d must be positive", m)
	}
	fs := &Surface{
		Mesh:    s,
		M:       m,
		Data:    make([]float64, 5*m*s.NumFaces),
		Perms:   make([]Permutation, s.NumEdges),
		Deleted: make([]bool, s.NumFaces),
	}
	for e := range fs.Perms {
		fs.Perms[e] = Identity(m)
	}
	return fs, nil
}

// NumFaces is the face count of the underlying mesh
func (fs *Surface) NumFaces() int { return fs.Mesh.NumFaces }

// NumEdges is the edge count of the underlying mesh
func (fs *Surface) NumEdges() int { return fs.Mesh.NumEdges }

func (fs *Surface) vIdx(f, i int) int     { return 2 * (fs.M*f + i) }
func (fs *Surface) betaIdx(f, i int) int  { return 2*fs.M*fs.NumFaces() + 2*(fs.M*f+i) }
func (fs *Surface) alphaIdx(f, i int) int { return 4*fs.M*fs.NumFaces() + fs.M*f + i }

// V returns the tangent coordinates of field i on face f
func (fs *Surface) V(f, i int) [2]float64 {
	k := fs.vIdx(f, i)
	return [2]float64{fs.Data[k], fs.Data[k+1]}
}

// SetV sets the tangent coordinates of field i on face f
func (fs *Surface) SetV(f, i int, x [2]float64) {
	k := fs.vIdx(f, i)
	fs.Data[k], fs.Data[k+1] = x[0], x[1]
}

// Beta returns the tangent correction of field i on face f
func (fs *Surface) Beta(f, i int) [2]float64 {
	k := fs.betaIdx(f, i)
	return [2]float64{fs.Data[k], fs.Data[k+1]}
}

// SetBeta sets the tangent correction of field i on face f
func (fs *Surface) SetBeta(f, i int, x [2]float64) {
	k := fs.betaIdx(f, i)
	fs.Data[k], fs.Data[k+1] = x[0], x[1]
}

// Alpha returns the scalar coefficient of field i on face f
func (fs *Surface) Alpha(f, i int) float64 {
	return fs.Data[fs.alphaIdx(f, i)]
}

// SetAlpha sets the scalar coefficient of field i on face f
func (fs *Surface) SetAlpha(f, i int, a float64) {
	fs.Data[fs.alphaIdx(f, i)] = a
}

// EmbeddedV returns B_f v_{f,i}
func (fs *Surface) EmbeddedV(f, i int) r3.Vec {
	return fs.Mesh.Embed(f, fs.V(f, i))
}

// NormalizeFields rescales every v so that its embedded length is 1. Zero
// vectors and vectors on degenerate faces are left alone.
func (fs *Surface) NormalizeFields() {
	for f := 0; f < fs.NumFaces(); f++ {
		if fs.Mesh.IsDegenerate(f) {
			continue
		}
		for i := 0; i < fs.M; i++ {
			norm := r3.Norm(fs.EmbeddedV(f, i))
			if norm == 0 {
				continue
			}
			x := fs.V(f, i)
			fs.SetV(f, i, [2]float64{x[0] / norm, x[1] / norm})
		}
	}
}

// Randomize fills every v with uniform values in [-1,1) from a generator
// seeded with seed, then normalizes
func (fs *Surface) Randomize(seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for k := 0; k < 2*fs.M*fs.NumFaces(); k++ {
		fs.Data[k] = 2*rng.Float64() - 1
	}
	fs.NormalizeFields()
}

// ApplyHandles sets each handle's field to the unit tangent projection of its
// direction
func (fs *Surface) ApplyHandles(handles []Handle) error {
	for n, h := range handles {
		if h.Face < 0 || h.Face >= fs.NumFaces() || h.Field < 0 || h.Field >= fs.M {
			return fmt.Errorf("handle %d (face %d, field %d): %w", n, h.Face, h.Field, ErrHandle)
		}
		x := fs.Mesh.Project(h.Face, h.Dir)
		norm := r3.Norm(fs.Mesh.Embed(h.Face, x))
		if norm == 0 || math.IsNaN(norm) {
			return fmt.Errorf("handle %d is normal to face %d: %w", n, h.Face, ErrHandle)
		}
		fs.SetV(h.Face, h.Field, [2]float64{x[0] / norm, x[1] / norm})
	}
	tracer().Debugf("applied %d handles", len(handles))
	return nil
}

// Validate checks the DOF length, the permutation count and that every
// permutation is a signed permutation of the right size
func (fs *Surface) Validate() error {
	if len(fs.Data) != 5*fs.M*fs.NumFaces() {
		return fmt.Errorf("have %d values, want %d: %w", len(fs.Data), 5*fs.M*fs.NumFaces(), ErrDOFLength)
	}
	if len(fs.Perms) != fs.NumEdges() {
		return fmt.Errorf("have %d permutations for %d edges: %w", len(fs.Perms), fs.NumEdges(), ErrBadPermutation)
	}
	if len(fs.Deleted) != fs.NumFaces() {
		return fmt.Errorf("have %d deleted flags for %d faces", len(fs.Deleted), fs.NumFaces())
	}
	for e, p := range fs.Perms {
		if p.M != fs.M {
			return fmt.Errorf("edge %d: permutation size %d, want %d: %w", e, p.M, fs.M, ErrBadPermutation)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("edge %d: %w", e, err)
		}
	}
	return nil
}

// String returns a summary of the field surface
func (fs *Surface) String() string {
	var sb strings.Builder
	sb.WriteString("=== Field Surface Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Faces: %d, Edges: %d, Fields: %d\n", fs.NumFaces(), fs.NumEdges(), fs.M))
	sb.WriteString(fmt.Sprintf("  DOFs: %d\n", len(fs.Data)))
	nonIdentity := 0
	for _, p := range fs.Perms {
		if !p.IsIdentity() {
			nonIdentity++
		}
	}
	sb.WriteString(fmt.Sprintf("  Non-identity permutations: %d\n", nonIdentity))
	sb.WriteString(fmt.Sprintf("  Undeleted faces: %d\n", fs.NumUndeletedFaces()))
	energy := fs.ConnectionEnergy(AbsoluteAngle)
	if len(energy) > 0 {
		total := 0.0
		for _, x := range energy {
			total += x
		}
		sb.WriteString(fmt.Sprintf("  Connection energy: total %.4e, max %.4e\n", total, maxFloat64(energy)))
	}
	sb.WriteString("=============================\n")
	return sb.String()
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

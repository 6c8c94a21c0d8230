package phase

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"github.com/notargets/fieldcover/field"
	"github.com/notargets/fieldcover/linalg"
	"github.com/notargets/fieldcover/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultOuterIterations = 6
	DefaultInnerIterations = 10
)

// FuncOptions configures ComputeFunc
type FuncOptions struct {
	Outer  int       // Scale refits, DefaultOuterIterations if zero
	Inner  int       // Inverse iterations per refit, DefaultInnerIterations if zero
	Theta0 []float64 // Seeds the first eigen-solve when it has one value per vertex
	Seed   uint64    // Random start when Theta0 is absent
}

// FuncResult is the outcome of ComputeFunc
type FuncResult struct {
	Theta       []float64 // [vertex] in (-π, π]
	S           []float64 // [face] refitted scales, without σ
	Eigenvalues []float64 // [outer iteration] Rayleigh quotient of the phase Laplacian
}

// directedEdge is the side of face f running from vertex a to vertex b
type directedEdge struct {
	a, b, f int
	d0      float64 // (p_a - p_b)·u_f for the unit face direction u_f = (B_f v_f) × n_f
}

// PhaseDirections returns, per face, the unit vector (B_f v_f) × n_f along
// which the phase advances. Degenerate faces and zero fields give a zero
// vector.
func PhaseDirections(fs *field.Surface) []r3.Vec {
	s := fs.Mesh
	u := make([]r3.Vec, s.NumFaces)
	for f := range u {
		if s.IsDegenerate(f) {
			continue
		}
		d := r3.Cross(fs.EmbeddedV(f, 0), s.FaceNormal(f))
		if n := r3.Norm(d); n > 0 {
			u[f] = r3.Scale(1/n, d)
		}
	}
	return u
}

// ComputeFunc optimizes a vertex phase θ whose differences across each face
// side match σ·s_f times the side's length along the face direction. Each
// outer iteration builds the phase Laplacian L = D - A from the current
// scales, takes its smallest eigenvector as (cos θ, sin θ) pairs and refits
// every face scale to the wrapped phase differences.
func ComputeFunc(fs *field.Surface, s []float64, sigma float64, opts FuncOptions) (*FuncResult, error) {
	if fs.M != 1 {
		return nil, fmt.Errorf("surface carries %d fields, want 1: %w", fs.M, ErrInput)
	}
	mesh := fs.Mesh
	nv, nf := mesh.NumVertices, mesh.NumFaces
	if len(s) != nf {
		return nil, fmt.Errorf("%d scales for %d faces: %w", len(s), nf, ErrInput)
	}
	if !(sigma > 0) {
		return nil, fmt.Errorf("global scale %g: %w", sigma, ErrInput)
	}
	outer, inner := opts.Outer, opts.Inner
	if outer <= 0 {
		outer = DefaultOuterIterations
	}
	if inner <= 0 {
		inner = DefaultInnerIterations
	}

	u := PhaseDirections(fs)
	var edges []directedEdge
	degree := make([]float64, nv)
	for f, face := range mesh.F {
		if u[f] == (r3.Vec{}) {
			continue
		}
		for j := 0; j < 3; j++ {
			a, b := face[j], face[(j+1)%3]
			edges = append(edges, directedEdge{
				a: a, b: b, f: f,
				d0: r3.Dot(r3.Sub(mesh.V[a], mesh.V[b]), u[f]),
			})
			degree[a]++
			degree[b]++
		}
	}

	scale := make([]float64, nf)
	for f := range scale {
		scale[f] = sigma * s[f]
	}
	var start []float64
	if len(opts.Theta0) == nv {
		start = unitComplex(opts.Theta0)
	} else if opts.Theta0 != nil {
		tracer().Errorf("ignoring Theta0 of length %d for %d vertices", len(opts.Theta0), nv)
	}

	res := &FuncResult{Theta: make([]float64, nv)}
	for it := 0; it < outer; it++ {
		L := phaseLaplacian(nv, degree, edges, scale)
		eig, err := linalg.SmallestEigenvector(L, linalg.EigenOptions{
			Iterations: inner,
			Start:      start,
			Seed:       opts.Seed + uint64(it),
		})
		if err != nil {
			return nil, fmt.Errorf("phase iteration %d: %w", it, err)
		}
		for v := 0; v < nv; v++ {
			res.Theta[v] = math.Atan2(eig.Vector[2*v+1], eig.Vector[2*v])
		}
		res.Eigenvalues = append(res.Eigenvalues, eig.Value)
		tracer().Infof("phase iteration %d: λ=%.6e", it, eig.Value)

		refitScales(scale, edges, res.Theta)
		start = eig.Vector
	}

	res.S = make([]float64, nf)
	for f := range scale {
		res.S[f] = scale[f] / sigma
	}
	return res, nil
}

// phaseLaplacian assembles D - A, where the (a,b) block of A is the rotation
// by the side's differential and the (b,a) block its transpose
func phaseLaplacian(nv int, degree []float64, edges []directedEdge, scale []float64) *sparse.CSR {
	asm := linalg.NewAssembler(2*nv, 2*nv)
	for v, d := range degree {
		asm.Add(2*v, 2*v, d)
		asm.Add(2*v+1, 2*v+1, d)
	}
	for _, de := range edges {
		d := de.d0 * scale[de.f]
		c, sn := math.Cos(d), math.Sin(d)
		a, b := 2*de.a, 2*de.b
		asm.Add(a, b, -c)
		asm.Add(a, b+1, sn)
		asm.Add(a+1, b, -sn)
		asm.Add(a+1, b+1, -c)

		asm.Add(b, a, -c)
		asm.Add(b+1, a, sn)
		asm.Add(b, a+1, -sn)
		asm.Add(b+1, a+1, -c)
	}
	return asm.CSR()
}

// refitScales sets each face scale to the least squares fit of the wrapped
// phase differences on its sides
func refitScales(scale []float64, edges []directedEdge, theta []float64) {
	num := make([]float64, len(scale))
	den := make([]float64, len(scale))
	for _, de := range edges {
		pred := utils.WrapAngle(theta[de.a] - theta[de.b])
		num[de.f] += pred * de.d0
		den[de.f] += de.d0 * de.d0
	}
	for f := range scale {
		if den[f] > 0 {
			scale[f] = num[f] / den[f]
		}
	}
}

// unitComplex interleaves cos θ and sin θ
func unitComplex(theta []float64) []float64 {
	x := make([]float64, 2*len(theta))
	for v, t := range theta {
		x[2*v], x[2*v+1] = math.Cos(t), math.Sin(t)
	}
	return x
}

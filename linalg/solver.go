package linalg

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DenseLimit is the largest system factorized with a dense Cholesky; larger
// systems are solved by preconditioned conjugate gradients
var DenseLimit = 2000

// MaxCGIterations caps each conjugate gradient solve; 0 means 10 per unknown
var MaxCGIterations = 0

const (
	maxShiftTries = 12
	cgTolerance   = 1e-12
)

// Factorization solves (A + Shift·I) x = b for a fixed symmetric A
type Factorization interface {
	Solve(dst, b []float64) error
	Size() int
	Shift() float64
	// Residual is the largest relative residual |b - (A + Shift·I)x| / |b|
	// left by a solve that stopped short of convergence, 0 if none did
	Residual() float64
}

// Factorize prepares solves with A + shift·I. When the dense factorization
// fails the shift is raised until it succeeds; the shift used is reported by
// the returned Factorization.
func Factorize(A *sparse.CSR, shift float64) (Factorization, error) {
	r, c := A.Dims()
	if r != c {
		return nil, fmt.Errorf("(%d×%d): %w", r, c, ErrNotSquare)
	}
	if r <= DenseLimit {
		return factorizeDense(A, shift)
	}
	return newPCG(A, shift), nil
}

// scaleOf is the largest diagonal magnitude, or 1 for an empty diagonal
func scaleOf(A *sparse.CSR) float64 {
	scale := 0.0
	for _, d := range Diagonal(A) {
		scale = math.Max(scale, math.Abs(d))
	}
	if scale == 0 {
		return 1
	}
	return scale
}

type denseCholesky struct {
	chol  mat.Cholesky
	n     int
	shift float64
}

func factorizeDense(A *sparse.CSR, shift float64) (*denseCholesky, error) {
	n, _ := A.Dims()
	base := mat.NewSymDense(n, nil)
	A.DoNonZero(func(i, j int, v float64) {
		// Symmetrize from both triangles
		if i <= j {
			base.SetSym(i, j, base.At(i, j)+0.5*v)
		}
		if j <= i {
			base.SetSym(j, i, base.At(j, i)+0.5*v)
		}
	})

	floor := 1e-14 * scaleOf(A)
	dc := &denseCholesky{n: n, shift: shift}
	for try := 0; try < maxShiftTries; try++ {
		shifted := mat.NewSymDense(n, nil)
		shifted.CopySym(base)
		for i := 0; i < n; i++ {
			shifted.SetSym(i, i, shifted.At(i, i)+dc.shift)
		}
		if ok := dc.chol.Factorize(shifted); ok {
			if try > 0 {
				tracer().Errorf("cholesky of %d×%d needed shift %.3e", n, n, dc.shift)
			}
			return dc, nil
		}
		dc.shift = math.Max(10*dc.shift, floor)
	}
	return nil, fmt.Errorf("%d×%d with shift up to %.3e: %w", n, n, dc.shift, ErrFactorization)
}

func (dc *denseCholesky) Size() int         { return dc.n }
func (dc *denseCholesky) Shift() float64    { return dc.shift }
func (dc *denseCholesky) Residual() float64 { return 0 }

func (dc *denseCholesky) Solve(dst, b []float64) error {
	if len(dst) != dc.n || len(b) != dc.n {
		return fmt.Errorf("solve of size %d with %d, %d: %w", dc.n, len(dst), len(b), ErrDimension)
	}
	x := mat.NewVecDense(dc.n, dst)
	if err := dc.chol.SolveVecTo(x, mat.NewVecDense(dc.n, b)); err != nil {
		return fmt.Errorf("%w: %w", ErrFactorization, err)
	}
	return nil
}

// pcg is a Jacobi preconditioned conjugate gradient solver over the CSR matrix
type pcg struct {
	A       *sparse.CSR
	n       int
	shift   float64
	diagInv []float64
	maxIter int
	worst   float64 // Largest unconverged relative residual
}

func newPCG(A *sparse.CSR, shift float64) *pcg {
	n, _ := A.Dims()
	p := &pcg{A: A, n: n, shift: shift, diagInv: make([]float64, n), maxIter: MaxCGIterations}
	if p.maxIter <= 0 {
		p.maxIter = 10 * n
	}
	for i, d := range Diagonal(A) {
		if d+shift != 0 {
			p.diagInv[i] = 1 / (d + shift)
		} else {
			p.diagInv[i] = 1
		}
	}
	return p
}

func (p *pcg) Size() int         { return p.n }
func (p *pcg) Shift() float64    { return p.shift }
func (p *pcg) Residual() float64 { return p.worst }

func (p *pcg) apply(dst, x []float64) {
	for i := range dst {
		dst[i] = 0
	}
	p.A.MulVecTo(dst, false, x)
	floats.AddScaled(dst, p.shift, x)
}

func (p *pcg) Solve(dst, b []float64) error {
	if len(dst) != p.n || len(b) != p.n {
		return fmt.Errorf("solve of size %d with %d, %d: %w", p.n, len(dst), len(b), ErrDimension)
	}
	bnorm := floats.Norm(b, 2)
	for i := range dst {
		dst[i] = 0
	}
	if bnorm == 0 {
		return nil
	}

	r := append([]float64(nil), b...)
	z := make([]float64, p.n)
	floats.MulTo(z, p.diagInv, r)
	d := append([]float64(nil), z...)
	Ad := make([]float64, p.n)
	rz := floats.Dot(r, z)

	for it := 0; it < p.maxIter; it++ {
		p.apply(Ad, d)
		dAd := floats.Dot(d, Ad)
		if dAd <= 0 {
			return fmt.Errorf("cg breakdown at iteration %d: %w", it, ErrFactorization)
		}
		alpha := rz / dAd
		floats.AddScaled(dst, alpha, d)
		floats.AddScaled(r, -alpha, Ad)
		if floats.Norm(r, 2) <= cgTolerance*bnorm {
			return nil
		}
		floats.MulTo(z, p.diagInv, r)
		rzNext := floats.Dot(r, z)
		beta := rzNext / rz
		rz = rzNext
		floats.AddScaledTo(d, z, beta, d)
	}
	rel := floats.Norm(r, 2) / bnorm
	p.worst = math.Max(p.worst, rel)
	tracer().Errorf("cg did not converge in %d iterations, residual %.3e", p.maxIter, rel)
	return nil
}

package linalg

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"
)

// EigenOptions configures SmallestEigenvector
type EigenOptions struct {
	Iterations int       // Inverse iterations, 1000 if zero
	Start      []float64 // Initial vector, seeded random if nil or zero
	Tol        float64   // Stop once the Rayleigh quotient changes by less than Tol relative; 0 runs every iteration
	Shift      float64   // Added to the diagonal before factorizing; 1e-10 of the largest diagonal if zero
	Seed       uint64    // Seed for the random start vector
}

// Result is the outcome of an inverse power iteration
type Result struct {
	Vector     []float64 // Unit norm
	Value      float64   // Rayleigh quotient of Vector
	Iterations int
	Shift      float64 // Shift the factorization ended up using
	Residual   float64 // Worst relative residual of an unconverged solve, 0 if all converged
}

// SmallestEigenvector approximates the eigenvector of the symmetric positive
// semidefinite A with smallest eigenvalue by inverse power iteration
func SmallestEigenvector(A *sparse.CSR, opts EigenOptions) (*Result, error) {
	n, c := A.Dims()
	if n != c {
		return nil, fmt.Errorf("(%d×%d): %w", n, c, ErrNotSquare)
	}
	if n == 0 {
		return nil, fmt.Errorf("empty matrix: %w", ErrDimension)
	}
	iters := opts.Iterations
	if iters <= 0 {
		iters = 1000
	}
	shift := opts.Shift
	if shift == 0 {
		shift = 1e-10 * scaleOf(A)
	}

	fact, err := Factorize(A, shift)
	if err != nil {
		return nil, err
	}

	x := make([]float64, n)
	if len(opts.Start) == n && floats.Norm(opts.Start, 2) > 0 {
		copy(x, opts.Start)
	} else {
		if opts.Start != nil && len(opts.Start) != n {
			tracer().Errorf("ignoring start vector of length %d for %d×%d", len(opts.Start), n, n)
		}
		rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))
		for i := range x {
			x[i] = 2*rng.Float64() - 1
		}
	}
	floats.Scale(1/floats.Norm(x, 2), x)

	res := &Result{Shift: fact.Shift()}
	y := make([]float64, n)
	prev := math.Inf(1)
	for it := 0; it < iters; it++ {
		if err := fact.Solve(y, x); err != nil {
			return nil, err
		}
		norm := floats.Norm(y, 2)
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			return nil, fmt.Errorf("inverse iteration %d produced norm %v: %w", it, norm, ErrFactorization)
		}
		floats.Scale(1/norm, y)
		x, y = y, x
		res.Iterations = it + 1

		if opts.Tol > 0 {
			value := rayleigh(A, x)
			if math.Abs(value-prev) <= opts.Tol*math.Max(1, math.Abs(value)) {
				break
			}
			prev = value
		}
	}
	res.Vector = x
	res.Value = rayleigh(A, x)
	if res.Residual = fact.Residual(); res.Residual > 0 {
		tracer().Errorf("inverse iteration on %d×%d used unconverged solves, residual %.3e",
			n, n, res.Residual)
	}
	tracer().Debugf("inverse iteration on %d×%d: λ=%.6e after %d iterations, shift %.3e",
		n, n, res.Value, res.Iterations, res.Shift)
	return res, nil
}

// rayleigh returns xᵀAx for unit x
func rayleigh(A *sparse.CSR, x []float64) float64 {
	return floats.Dot(x, MulVec(A, x))
}

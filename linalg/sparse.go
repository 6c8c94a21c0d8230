package linalg

import (
	"errors"
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'fieldcover.linalg'
func tracer() tracing.Trace {
	return tracing.Select("fieldcover.linalg")
}

var (
	ErrNotSquare     = errors.New("matrix is not square")
	ErrFactorization = errors.New("factorization failed")
	ErrDimension     = errors.New("dimension mismatch")
)

// Assembler accumulates matrix entries in dictionary-of-keys form
type Assembler struct {
	Rows, Cols int
	dok        *sparse.DOK
}

// NewAssembler returns an empty rows × cols assembler
func NewAssembler(rows, cols int) *Assembler {
	return &Assembler{Rows: rows, Cols: cols, dok: sparse.NewDOK(rows, cols)}
}

// Add accumulates v into entry (i,j)
func (a *Assembler) Add(i, j int, v float64) {
	if v == 0 {
		return
	}
	a.dok.Set(i, j, a.dok.At(i, j)+v)
}

// CSR returns the assembled matrix in compressed row form
func (a *Assembler) CSR() *sparse.CSR {
	return a.dok.ToCSR()
}

// MulVec returns A x
func MulVec(A *sparse.CSR, x []float64) []float64 {
	r, _ := A.Dims()
	dst := make([]float64, r)
	A.MulVecTo(dst, false, x)
	return dst
}

// MulVecT returns Aᵀ x
func MulVecT(A *sparse.CSR, x []float64) []float64 {
	_, c := A.Dims()
	dst := make([]float64, c)
	A.MulVecTo(dst, true, x)
	return dst
}

// WeightedGram returns Aᵀ diag(w) A
func WeightedGram(A *sparse.CSR, w []float64) (*sparse.CSR, error) {
	r, c := A.Dims()
	if len(w) != r {
		return nil, fmt.Errorf("%d weights for %d rows: %w", len(w), r, ErrDimension)
	}
	type entry struct {
		col int
		val float64
	}
	rows := make([][]entry, r)
	A.DoNonZero(func(i, j int, v float64) {
		rows[i] = append(rows[i], entry{j, v})
	})

	out := NewAssembler(c, c)
	for i, row := range rows {
		if w[i] == 0 {
			continue
		}
		for _, a := range row {
			for _, b := range row {
				out.Add(a.col, b.col, w[i]*a.val*b.val)
			}
		}
	}
	return out.CSR(), nil
}

// AddScaled returns A + alpha B
func AddScaled(A, B *sparse.CSR, alpha float64) (*sparse.CSR, error) {
	ra, ca := A.Dims()
	rb, cb := B.Dims()
	if ra != rb || ca != cb {
		return nil, fmt.Errorf("(%d×%d) + (%d×%d): %w", ra, ca, rb, cb, ErrDimension)
	}
	out := NewAssembler(ra, ca)
	A.DoNonZero(func(i, j int, v float64) { out.Add(i, j, v) })
	B.DoNonZero(func(i, j int, v float64) { out.Add(i, j, alpha*v) })
	return out.CSR(), nil
}

// Diagonal returns the main diagonal of a square matrix
func Diagonal(A *sparse.CSR) []float64 {
	n, _ := A.Dims()
	d := make([]float64, n)
	A.DoNonZero(func(i, j int, v float64) {
		if i == j {
			d[i] += v
		}
	})
	return d
}

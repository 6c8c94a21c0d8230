package phase

import (
	"errors"
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"github.com/notargets/fieldcover/linalg"
	"github.com/notargets/fieldcover/mesh"
	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/spatial/r3"
)

// tracer writes to trace with key 'fieldcover.phase'
func tracer() tracing.Trace {
	return tracing.Select("fieldcover.phase")
}

var ErrInput = errors.New("invalid phase input")

// metricFloor is the smallest edge metric entry relative to the mean entry.
// Right angles give zero cotangent weights, which M⁻¹ cannot take.
const metricFloor = 1e-4

// Operators are the sparse operators of one cut component. Rows of D, Dv and
// DvHat index edges of the component mesh.
type Operators struct {
	NumVertices, NumEdges, NumFaces int

	M     []float64   // Diagonal cotangent edge metric
	D     *sparse.CSR // |E|×|F| face gradient, interior edges only
	Dv    *sparse.CSR // |E|×|F| face gradient along the field, interior edges between non-degenerate faces
	DvHat *sparse.CSR // |E|×|V| signed vertex-edge incidence

	Lint  *sparse.CSR // Dvᵀ M⁻¹ Dv
	Lface *sparse.CSR // Dᵀ M⁻¹ D
	Lvert *sparse.CSR // DvHatᵀ M DvHat
}

// BuildOperators assembles the operators of s for the embedded face vectors
// vecs, one per face
func BuildOperators(s *mesh.Surface, vecs []r3.Vec) (*Operators, error) {
	if len(vecs) != s.NumFaces {
		return nil, fmt.Errorf("%d face vectors for %d faces: %w", len(vecs), s.NumFaces, ErrInput)
	}
	ops := &Operators{NumVertices: s.NumVertices, NumEdges: s.NumEdges, NumFaces: s.NumFaces}
	ops.M = edgeMetric(s)

	D := linalg.NewAssembler(s.NumEdges, s.NumFaces)
	Dv := linalg.NewAssembler(s.NumEdges, s.NumFaces)
	DvHat := linalg.NewAssembler(s.NumEdges, s.NumVertices)
	for e, edge := range s.E {
		DvHat.Add(e, edge.V0, -1)
		DvHat.Add(e, edge.V1, 1)
		if !s.IsInteriorEdge(e) || edge.F0 == edge.F1 {
			continue
		}
		D.Add(e, edge.F0, -1)
		D.Add(e, edge.F1, 1)
		if s.IsDegenerate(edge.F0) || s.IsDegenerate(edge.F1) {
			continue
		}
		ev := s.EdgeVector(e)
		Dv.Add(e, edge.F0, -r3.Dot(vecs[edge.F0], ev))
		Dv.Add(e, edge.F1, r3.Dot(vecs[edge.F1], ev))
	}
	ops.D, ops.Dv, ops.DvHat = D.CSR(), Dv.CSR(), DvHat.CSR()

	inv := make([]float64, len(ops.M))
	for e, m := range ops.M {
		inv[e] = 1 / m
	}
	var err error
	if ops.Lint, err = linalg.WeightedGram(ops.Dv, inv); err != nil {
		return nil, err
	}
	if ops.Lface, err = linalg.WeightedGram(ops.D, inv); err != nil {
		return nil, err
	}
	if ops.Lvert, err = linalg.WeightedGram(ops.DvHat, ops.M); err != nil {
		return nil, err
	}
	return ops, nil
}

// edgeMetric sums the half cotangent weights of both faces at each edge and
// raises entries below metricFloor·mean
func edgeMetric(s *mesh.Surface) []float64 {
	M := make([]float64, s.NumEdges)
	for f, w := range s.CotanWeights() {
		for j := 0; j < 3; j++ {
			if e := s.FToE[f][j]; e >= 0 {
				M[e] += w[j]
			}
		}
	}
	mean := 0.0
	for _, m := range M {
		mean += math.Abs(m)
	}
	if len(M) > 0 {
		mean /= float64(len(M))
	}
	floor := metricFloor * mean
	if floor == 0 {
		floor = 1
	}
	clamped := 0
	for e := range M {
		if M[e] < floor {
			M[e] = floor
			clamped++
		}
	}
	if clamped > 0 {
		tracer().Debugf("edge metric: %d of %d entries raised to %.3e", clamped, len(M), floor)
	}
	return M
}

// EdgeTargets returns b_e = ê·(s_f vecs_f) averaged over the non-degenerate
// faces of each edge
func (ops *Operators) EdgeTargets(s *mesh.Surface, vecs []r3.Vec, scale []float64) []float64 {
	b := make([]float64, s.NumEdges)
	for e, edge := range s.E {
		ev := s.EdgeVector(e)
		n := 0
		for _, f := range []int{edge.F0, edge.F1} {
			if f < 0 || s.IsDegenerate(f) {
				continue
			}
			b[e] += scale[f] * r3.Dot(ev, vecs[f])
			n++
		}
		if n > 0 {
			b[e] /= float64(n)
		}
	}
	return b
}

// SolveTheta solves Lvert θ = DvHatᵀ M b and removes the mean of θ
func (ops *Operators) SolveTheta(b []float64) ([]float64, error) {
	if len(b) != ops.NumEdges {
		return nil, fmt.Errorf("%d edge targets for %d edges: %w", len(b), ops.NumEdges, ErrInput)
	}
	mb := make([]float64, len(b))
	for e := range b {
		mb[e] = ops.M[e] * b[e]
	}
	rhs := linalg.MulVecT(ops.DvHat, mb)

	scale := 0.0
	for _, d := range linalg.Diagonal(ops.Lvert) {
		scale = math.Max(scale, math.Abs(d))
	}
	if scale == 0 {
		scale = 1
	}
	fact, err := linalg.Factorize(ops.Lvert, 1e-10*scale)
	if err != nil {
		return nil, fmt.Errorf("vertex laplacian: %w", err)
	}
	theta := make([]float64, ops.NumVertices)
	if err := fact.Solve(theta, rhs); err != nil {
		return nil, fmt.Errorf("vertex laplacian: %w", err)
	}
	mean := 0.0
	for _, t := range theta {
		mean += t
	}
	mean /= math.Max(1, float64(len(theta)))
	for v := range theta {
		theta[v] -= mean
	}
	return theta, nil
}

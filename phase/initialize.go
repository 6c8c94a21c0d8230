package phase

import (
	"fmt"

	"github.com/notargets/fieldcover/cover"
	"github.com/notargets/fieldcover/linalg"
	"github.com/notargets/fieldcover/partitions"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultRegularizer     = 1e-3
	DefaultScaleIterations = 1000
	MinRegularizer         = 1e-5
	MaxRegularizer         = 1e-2
)

// InitOptions configures InitializeS
type InitOptions struct {
	Regularizer float64 // Weight of the face Laplacian, DefaultRegularizer if zero
	Iterations  int     // Inverse iterations for s, DefaultScaleIterations if zero
	Tol         float64 // Early exit tolerance on the Rayleigh quotient, 0 disables
	Seed        uint64  // Start vector seed, offset by the component ID
}

// Init holds the initial face scales and vertex phase of the cover
type Init struct {
	S     []float64 // [cover face]
	Theta []float64 // [cover vertex], mean of the cut copies

	ComponentS  *partitions.PartitionedArray // s by component, local face order
	CutTheta    [][]float64                  // [component][local vertex]
	Eigenvalues []float64                    // [component] smallest eigenvalue of Lint + reg·Lface
}

// InitializeS computes on each cut component the face scales s as the
// smallest eigenvector of Lint + reg·Lface, then the phase θ integrating
// s·v along the edges. s is signed so that its sum is not negative and θ has
// zero mean on each component. θ is averaged onto the cover vertices.
func InitializeS(cut *cover.CutMesh, opts InitOptions) (*Init, error) {
	reg := opts.Regularizer
	if reg == 0 {
		reg = DefaultRegularizer
	}
	if reg < 0 {
		return nil, fmt.Errorf("regularizer %g: %w", reg, ErrInput)
	}
	if reg < MinRegularizer || reg > MaxRegularizer {
		tracer().Infof("regularizer %g outside [%g, %g]", reg, MinRegularizer, MaxRegularizer)
	}
	iters := opts.Iterations
	if iters <= 0 {
		iters = DefaultScaleIterations
	}

	fs := cut.Cover.Field
	out := &Init{
		ComponentS:  partitions.AllocatePartitionedArray(cut.Layout, 1),
		CutTheta:    make([][]float64, len(cut.Components)),
		Eigenvalues: make([]float64, len(cut.Components)),
	}
	for _, comp := range cut.Components {
		cm := comp.Mesh
		vecs := make([]r3.Vec, cm.NumFaces)
		for lf, cf := range comp.FaceToCover {
			vecs[lf] = fs.EmbeddedV(cf, 0)
		}
		ops, err := BuildOperators(cm, vecs)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", comp.ID, err)
		}

		// Step 1: s
		Lreg, err := linalg.AddScaled(ops.Lint, ops.Lface, reg)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", comp.ID, err)
		}
		res, err := linalg.SmallestEigenvector(Lreg, linalg.EigenOptions{
			Iterations: iters,
			Tol:        opts.Tol,
			Seed:       opts.Seed + uint64(comp.ID),
		})
		if err != nil {
			return nil, fmt.Errorf("component %d scale: %w", comp.ID, err)
		}
		s := res.Vector
		if floats.Sum(s) < 0 {
			floats.Scale(-1, s)
		}
		copy(out.ComponentS.GetPartitionData(comp.ID), s)
		out.Eigenvalues[comp.ID] = res.Value

		// Step 2: θ
		theta, err := ops.SolveTheta(ops.EdgeTargets(cm, vecs, s))
		if err != nil {
			return nil, fmt.Errorf("component %d phase: %w", comp.ID, err)
		}
		out.CutTheta[comp.ID] = theta
		tracer().Infof("component %d: %d faces, λ=%.6e, s in [%.4g, %.4g]",
			comp.ID, cm.NumFaces, res.Value, floats.Min(s), floats.Max(s))
	}

	// Step 3: average the copies on each cover vertex
	var err error
	out.S = cut.CoverFaceValues(out.ComponentS)
	if out.Theta, err = cut.Connector.Scatter(out.CutTheta); err != nil {
		return nil, fmt.Errorf("scatter phase: %w", err)
	}
	return out, nil
}

package config

import (
	"errors"
	"fmt"

	"gopkg.in/gcfg.v1"
)

const Example = `# fieldcover driver configuration. Every key is optional.

[Cover]
# Number of fields per face on the synthetic input surface. The cover has
# 2·Fields sheets.
Fields = 1

[Scale]
# Weight of the face Laplacian added to the integrability operator when
# solving for the face scales. Must lie in [1e-5, 1e-2].
Regularizer = 1e-3
# Inverse power iterations for the face scales.
Iterations = 1000

[Phase]
# Global scale σ multiplying the face scales. Larger values give more
# isolines per unit length.
GlobalScale = 1.0
# Scale refits and inverse iterations per refit.
OuterIterations = 6
InnerIterations = 10

[Isolines]
# Number of isovalues spread evenly over [-π, π).
Count = 8

[Output]
# Directory the outputs are written to.
Dir = .
# Write debug.txt (θ per cover vertex) and debug.field (phase direction per
# cover face).
Debug = false
# Write the split mesh as split.stl and a drawing as split.png.
STL = false
`

var ErrInvalid = errors.New("invalid configuration")

type Cover struct {
	Fields int
}

type Scale struct {
	Regularizer float64
	Iterations  int
}

type Phase struct {
	GlobalScale     float64
	OuterIterations int
	InnerIterations int
}

type Isolines struct {
	Count int
}

type Output struct {
	Dir   string
	Debug bool
	STL   bool
}

// Params holds one section per stage of the pipeline
type Params struct {
	Cover    Cover
	Scale    Scale
	Phase    Phase
	Isolines Isolines
	Output   Output
}

// Default returns the parameters used for keys a file leaves out
func Default() *Params {
	return &Params{
		Cover:    Cover{Fields: 1},
		Scale:    Scale{Regularizer: 1e-3, Iterations: 1000},
		Phase:    Phase{GlobalScale: 1, OuterIterations: 6, InnerIterations: 10},
		Isolines: Isolines{Count: 8},
		Output:   Output{Dir: "."},
	}
}

// ReadFile overlays the file at path on the defaults and validates the result
func ReadFile(path string) (*Params, error) {
	p := Default()
	if err := gcfg.ReadFileInto(p, path); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ReadString is ReadFile for configuration text
func ReadString(text string) (*Params, error) {
	p := Default()
	if err := gcfg.ReadStringInto(p, text); err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Params) ValidFields() bool      { return p.Cover.Fields >= 1 }
func (p *Params) ValidRegularizer() bool { return p.Scale.Regularizer >= 1e-5 && p.Scale.Regularizer <= 1e-2 }
func (p *Params) ValidGlobalScale() bool { return p.Phase.GlobalScale > 0 }
func (p *Params) ValidCount() bool       { return p.Isolines.Count > 0 }
func (p *Params) ValidIterations() bool {
	return p.Scale.Iterations > 0 && p.Phase.OuterIterations > 0 && p.Phase.InnerIterations > 0
}

// Validate returns ErrInvalid naming the first key out of range
func (p *Params) Validate() error {
	switch {
	case !p.ValidFields():
		return fmt.Errorf("Cover.Fields = %d: %w", p.Cover.Fields, ErrInvalid)
	case !p.ValidRegularizer():
		return fmt.Errorf("Scale.Regularizer = %g, want [1e-5, 1e-2]: %w", p.Scale.Regularizer, ErrInvalid)
	case !p.ValidIterations():
		return fmt.Errorf("iteration counts %d, %d, %d must be positive: %w",
			p.Scale.Iterations, p.Phase.OuterIterations, p.Phase.InnerIterations, ErrInvalid)
	case !p.ValidGlobalScale():
		return fmt.Errorf("Phase.GlobalScale = %g: %w", p.Phase.GlobalScale, ErrInvalid)
	case !p.ValidCount():
		return fmt.Errorf("Isolines.Count = %d: %w", p.Isolines.Count, ErrInvalid)
	}
	return nil
}

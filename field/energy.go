package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// EnergyMode selects how per-slot edge angles are accumulated
type EnergyMode int

const (
	AbsoluteAngle EnergyMode = iota // Sum of |angle|
	SignedAngle                     // Sum of signed angles
)

func (m EnergyMode) String() string {
	switch m {
	case AbsoluteAngle:
		return "absolute"
	case SignedAngle:
		return "signed"
	}
	return "unknown"
}

// edgeUsable reports whether edge e has two non-degenerate faces
func (fs *Surface) edgeUsable(e int) bool {
	edge := fs.Mesh.E[e]
	return edge.F0 >= 0 && edge.F1 >= 0 &&
		!fs.Mesh.IsDegenerate(edge.F0) && !fs.Mesh.IsDegenerate(edge.F1)
}

// slotAngle is the signed angle on f1 between the transported v_{f0,i} and
// Σ_k P[i,k] v_{f1,k}
func (fs *Surface) slotAngle(e, f0, f1, i int, p Permutation) float64 {
	var matched [2]float64
	for k := 0; k < fs.M; k++ {
		if w := p.At(i, k); w != 0 {
			x := fs.V(f1, k)
			matched[0] += float64(w) * x[0]
			matched[1] += float64(w) * x[1]
		}
	}
	v1 := fs.Mesh.Embed(f1, fs.Mesh.TransportVec(e, fs.V(f0, i)))
	v2 := fs.Mesh.Embed(f1, matched)
	n := fs.Mesh.FaceNormal(f1)
	return math.Atan2(r3.Dot(r3.Cross(v1, v2), n), r3.Dot(v1, v2))
}

// ConnectionEnergy returns a per-face energy: for every interior edge and
// slot, the angle between the transported F0 vector and the permuted F1
// vector is added to both faces
func (fs *Surface) ConnectionEnergy(mode EnergyMode) []float64 {
	energies := make([]float64, fs.NumFaces())
	for e, edge := range fs.Mesh.E {
		if !fs.edgeUsable(e) {
			continue
		}
		for i := 0; i < fs.M; i++ {
			angle := fs.slotAngle(e, edge.F0, edge.F1, i, fs.Perms[e])
			if mode == AbsoluteAngle {
				angle = math.Abs(angle)
			}
			energies[edge.F0] += angle
			energies[edge.F1] += angle
		}
	}
	return energies
}

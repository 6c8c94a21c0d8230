package mesh

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// degenerateTol is the smallest |e1 × e2| / (|e1||e2|) accepted for a face
const degenerateTol = 1e-12

// buildGeometry computes per-face normals, areas and affine tangent bases
func (s *Surface) buildGeometry() {
	s.Normals = make([]r3.Vec, s.NumFaces)
	s.Areas = make([]float64, s.NumFaces)
	s.Bases = make([]*mat.Dense, s.NumFaces)
	s.degenerate = make([]bool, s.NumFaces)

	for f, face := range s.F {
		p0, p1, p2 := s.V[face[0]], s.V[face[1]], s.V[face[2]]
		e1 := r3.Sub(p1, p0)
		e2 := r3.Sub(p2, p0)
		s.Bases[f] = mat.NewDense(3, 2, []float64{
			e1.X, e2.X,
			e1.Y, e2.Y,
			e1.Z, e2.Z,
		})

		n := r3.Cross(e1, e2)
		mag := r3.Norm(n)
		s.Areas[f] = 0.5 * mag

		repeated := face[0] == face[1] || face[1] == face[2] || face[0] == face[2]
		scale := r3.Norm(e1) * r3.Norm(e2)
		if repeated || scale == 0 || mag <= degenerateTol*scale {
			s.degenerate[f] = true
			s.Diagnostics.DegenerateFaces = append(s.Diagnostics.DegenerateFaces, f)
			continue
		}
		s.Normals[f] = r3.Scale(1/mag, n)
	}
}

// buildTransports computes T_e for every edge. T_e rotates B_{F0}x about the
// shared edge by the dihedral angle into the plane of F1 and re-expresses the
// result in F1's basis, so the embedded edge vector is carried exactly. Edges
// with a missing or degenerate face get the identity.
func (s *Surface) buildTransports() {
	s.Transports = make([]*mat.Dense, s.NumEdges)
	for e, edge := range s.E {
		T := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
		s.Transports[e] = T
		if edge.F0 < 0 || edge.F1 < 0 || s.degenerate[edge.F0] || s.degenerate[edge.F1] {
			continue
		}

		axis := r3.Unit(r3.Sub(s.V[edge.V1], s.V[edge.V0]))
		n0, n1 := s.Normals[edge.F0], s.Normals[edge.F1]
		angle := math.Atan2(r3.Dot(axis, r3.Cross(n0, n1)), r3.Dot(n0, n1))
		if r3.Dot(r3.Rotate(n0, angle, axis), n1) < r3.Dot(r3.Rotate(n0, -angle, axis), n1) {
			angle = -angle
		}

		// Rotated columns of B0
		B0 := s.Bases[edge.F0]
		var RB0 mat.Dense
		RB0.CloneFrom(B0)
		for c := 0; c < 2; c++ {
			col := r3.Vec{X: B0.At(0, c), Y: B0.At(1, c), Z: B0.At(2, c)}
			rot := r3.Rotate(col, angle, axis)
			RB0.Set(0, c, rot.X)
			RB0.Set(1, c, rot.Y)
			RB0.Set(2, c, rot.Z)
		}

		// (B1ᵀB1) T = B1ᵀ R B0
		B1 := s.Bases[edge.F1]
		var G, rhs mat.Dense
		G.Mul(B1.T(), B1)
		rhs.Mul(B1.T(), &RB0)
		if err := T.Solve(&G, &rhs); err != nil {
			tracer().Errorf("edge %d: singular metric on face %d: %v", e, edge.F1, err)
			T.Copy(mat.NewDense(2, 2, []float64{1, 0, 0, 1}))
		}
	}
}

// FaceNormal returns the unit normal of face f (zero for degenerate faces)
func (s *Surface) FaceNormal(f int) r3.Vec {
	return s.Normals[f]
}

// FaceArea returns the area of face f
func (s *Surface) FaceArea(f int) float64 {
	return s.Areas[f]
}

// Basis returns the [3 × 2] tangent basis of face f
func (s *Surface) Basis(f int) *mat.Dense {
	return s.Bases[f]
}

// Transport returns the [2 × 2] transport of edge e from F0 to F1
func (s *Surface) Transport(e int) *mat.Dense {
	return s.Transports[e]
}

// Centroid returns the centroid of face f
func (s *Surface) Centroid(f int) r3.Vec {
	face := s.F[f]
	sum := r3.Add(r3.Add(s.V[face[0]], s.V[face[1]]), s.V[face[2]])
	return r3.Scale(1.0/3.0, sum)
}

// EdgeVector returns the embedded vector V1 - V0 of edge e
func (s *Surface) EdgeVector(e int) r3.Vec {
	return r3.Sub(s.V[s.E[e].V1], s.V[s.E[e].V0])
}

// Embed maps tangent coordinates x on face f to the 3D vector B_f x
func (s *Surface) Embed(f int, x [2]float64) r3.Vec {
	B := s.Bases[f]
	return r3.Vec{
		X: B.At(0, 0)*x[0] + B.At(0, 1)*x[1],
		Y: B.At(1, 0)*x[0] + B.At(1, 1)*x[1],
		Z: B.At(2, 0)*x[0] + B.At(2, 1)*x[1],
	}
}

// Project returns the tangent coordinates of the least-squares projection of
// d onto the plane of face f
func (s *Surface) Project(f int, d r3.Vec) [2]float64 {
	B := s.Bases[f]
	e1 := r3.Vec{X: B.At(0, 0), Y: B.At(1, 0), Z: B.At(2, 0)}
	e2 := r3.Vec{X: B.At(0, 1), Y: B.At(1, 1), Z: B.At(2, 1)}
	g11, g12, g22 := r3.Dot(e1, e1), r3.Dot(e1, e2), r3.Dot(e2, e2)
	det := g11*g22 - g12*g12
	if det == 0 {
		return [2]float64{}
	}
	r1, r2 := r3.Dot(e1, d), r3.Dot(e2, d)
	return [2]float64{
		(g22*r1 - g12*r2) / det,
		(g11*r2 - g12*r1) / det,
	}
}

// TransportVec applies T_e to tangent coordinates x on F0
func (s *Surface) TransportVec(e int, x [2]float64) [2]float64 {
	T := s.Transports[e]
	return [2]float64{
		T.At(0, 0)*x[0] + T.At(0, 1)*x[1],
		T.At(1, 0)*x[0] + T.At(1, 1)*x[1],
	}
}

// Bounds returns the axis aligned bounding box of the vertices
func (s *Surface) Bounds() (lo, hi r3.Vec) {
	if len(s.V) == 0 {
		return
	}
	lo, hi = s.V[0], s.V[0]
	for _, p := range s.V[1:] {
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return
}

// CotanWeights returns, for each face, half the cotangent of the angle at each
// corner; entry j weights the side opposite corner j
func (s *Surface) CotanWeights() [][3]float64 {
	w := make([][3]float64, s.NumFaces)
	for f, face := range s.F {
		if s.degenerate[f] {
			continue
		}
		for j := 0; j < 3; j++ {
			p := s.V[face[j]]
			a := r3.Sub(s.V[face[(j+1)%3]], p)
			b := r3.Sub(s.V[face[(j+2)%3]], p)
			cross := r3.Norm(r3.Cross(a, b))
			if cross == 0 {
				continue
			}
			w[f][j] = 0.5 * r3.Dot(a, b) / cross
		}
	}
	return w
}

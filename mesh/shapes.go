package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle returns the unit right triangle in the z=0 plane
func Triangle() *Surface {
	s, _ := NewFromTriangles(
		[]r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		[][3]int{{0, 1, 2}},
	)
	return s
}

// Tetrahedron returns a regular tetrahedron with outward facing triangles
func Tetrahedron() *Surface {
	s, _ := NewFromTriangles(
		[]r3.Vec{
			{X: 1, Y: 1, Z: 1},
			{X: 1, Y: -1, Z: -1},
			{X: -1, Y: 1, Z: -1},
			{X: -1, Y: -1, Z: 1},
		},
		[][3]int{{0, 1, 2}, {0, 3, 1}, {0, 2, 3}, {1, 3, 2}},
	)
	return s
}

// Grid returns a flat nx × ny grid of split quads spanning [0,w] × [0,h]
func Grid(nx, ny int, w, h float64) *Surface {
	V := make([]r3.Vec, 0, (nx+1)*(ny+1))
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			V = append(V, r3.Vec{X: w * float64(i) / float64(nx), Y: h * float64(j) / float64(ny)})
		}
	}
	id := func(i, j int) int { return j*(nx+1) + i }
	F := make([][3]int, 0, 2*nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a, b, c, d := id(i, j), id(i+1, j), id(i+1, j+1), id(i, j+1)
			F = append(F, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}
	s, _ := NewFromTriangles(V, F)
	return s
}

// Cylinder returns an open cylindrical band around the z axis with outward
// normals. Vertex (i, j) sits at angle -π + 2πi/around and height
// height·j/rings and has index j·around + i.
func Cylinder(around, rings int, radius, height float64) *Surface {
	V := make([]r3.Vec, 0, around*(rings+1))
	for j := 0; j <= rings; j++ {
		z := height * float64(j) / float64(rings)
		for i := 0; i < around; i++ {
			phi := -math.Pi + 2*math.Pi*float64(i)/float64(around)
			V = append(V, r3.Vec{X: radius * math.Cos(phi), Y: radius * math.Sin(phi), Z: z})
		}
	}
	id := func(i, j int) int { return j*around + (i % around) }
	F := make([][3]int, 0, 2*around*rings)
	for j := 0; j < rings; j++ {
		for i := 0; i < around; i++ {
			a, b, c, d := id(i, j), id(i+1, j), id(i+1, j+1), id(i, j+1)
			F = append(F, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}
	s, _ := NewFromTriangles(V, F)
	return s
}

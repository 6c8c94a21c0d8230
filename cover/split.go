package cover

import (
	"math"

	"github.com/notargets/fieldcover/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// SplitOffset returns the translation of sheet layer in the split mesh.
// Sheets sit on a row-major grid ⌈√(2m)⌉ columns wide, spaced 1.5 times the
// parent's bounding box.
func (c *Cover) SplitOffset(layer int) r3.Vec {
	cols := int(math.Ceil(math.Sqrt(float64(c.Layers))))
	lo, hi := c.Parent.Mesh.Bounds()
	ext := r3.Sub(hi, lo)
	largest := math.Max(ext.X, math.Max(ext.Y, ext.Z))
	if largest == 0 {
		largest = 1
	}
	dx, dy := 1.5*ext.X, 1.5*ext.Y
	if dx == 0 {
		dx = 1.5 * largest
	}
	if dy == 0 {
		dy = 1.5 * largest
	}
	return r3.Vec{X: float64(layer%cols) * dx, Y: -float64(layer/cols) * dy}
}

// buildSplitMesh places an unglued copy of the parent on each layer. Split
// face ℓ·|F| + f is the copy of parent face f, matching the cover numbering.
func (c *Cover) buildSplitMesh() (*mesh.Surface, error) {
	s := c.Parent.Mesh
	V := make([]r3.Vec, 0, c.Layers*s.NumVertices)
	F := make([][3]int, 0, c.Layers*s.NumFaces)
	for layer := 0; layer < c.Layers; layer++ {
		offset := c.SplitOffset(layer)
		for _, p := range s.V {
			V = append(V, r3.Add(p, offset))
		}
	}
	for layer := 0; layer < c.Layers; layer++ {
		base := layer * s.NumVertices
		for _, face := range s.F {
			F = append(F, [3]int{base + face[0], base + face[1], base + face[2]})
		}
	}
	return mesh.NewFromTriangles(V, F)
}

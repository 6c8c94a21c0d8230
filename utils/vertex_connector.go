package utils

import (
	"fmt"
	"sort"
)

// VertexConnector maps the vertex copies of a set of local meshes back to one
// global vertex numbering. It is used to average per-copy values, such as a
// phase integrated on each cut component, onto the vertices of the cover.
// Vertices with a single copy are written straight through; only the shared
// ones go through the pick and place buffers.
type VertexConnector struct {
	NumComponents int
	NumGlobal     int // Global vertex count

	// Input maps
	LocalToGlobal [][]int // [component][localVertex] → global vertex

	// Pick/Place indices per component, shared vertices only, in increasing
	// global order
	PickIndices  [][]int // [component] local vertices read during a scatter
	PlaceIndices [][]int // [component] global positions they accumulate into

	Copies []int // [global] number of local copies
}

// NewVertexConnector builds the pick and place indices for the given maps
func NewVertexConnector(numGlobal int, localToGlobal [][]int) (*VertexConnector, error) {
	if numGlobal <= 0 {
		return nil, fmt.Errorf("invalid global vertex count %d", numGlobal)
	}
	vc := &VertexConnector{
		NumComponents: len(localToGlobal),
		NumGlobal:     numGlobal,
		LocalToGlobal: localToGlobal,
		PickIndices:   make([][]int, len(localToGlobal)),
		PlaceIndices:  make([][]int, len(localToGlobal)),
		Copies:        make([]int, numGlobal),
	}
	for c, l2g := range localToGlobal {
		for local, global := range l2g {
			if global < 0 || global >= numGlobal {
				return nil, fmt.Errorf("component %d vertex %d maps to %d of %d",
					c, local, global, numGlobal)
			}
			vc.Copies[global]++
		}
	}
	for c, l2g := range localToGlobal {
		var shared []int
		for local, global := range l2g {
			if vc.Copies[global] > 1 {
				shared = append(shared, local)
			}
		}
		sort.SliceStable(shared, func(a, b int) bool { return l2g[shared[a]] < l2g[shared[b]] })
		vc.PickIndices[c] = shared
		vc.PlaceIndices[c] = make([]int, len(shared))
		for k, local := range shared {
			vc.PlaceIndices[c][k] = l2g[local]
		}
	}
	if err := vc.Verify(); err != nil {
		return nil, err
	}
	return vc, nil
}

// Scatter averages per-component local values onto the global vertices
func (vc *VertexConnector) Scatter(local [][]float64) ([]float64, error) {
	if len(local) != vc.NumComponents {
		return nil, fmt.Errorf("got values for %d components, want %d", len(local), vc.NumComponents)
	}
	global := make([]float64, vc.NumGlobal)
	for c := range local {
		if len(local[c]) != len(vc.LocalToGlobal[c]) {
			return nil, fmt.Errorf("component %d: got %d values for %d vertices",
				c, len(local[c]), len(vc.LocalToGlobal[c]))
		}
		for l, g := range vc.LocalToGlobal[c] {
			if vc.Copies[g] == 1 {
				global[g] = local[c][l]
			}
		}
		for k, idx := range vc.PickIndices[c] {
			global[vc.PlaceIndices[c][k]] += local[c][idx]
		}
	}
	for g, n := range vc.Copies {
		if n > 1 {
			global[g] /= float64(n)
		}
	}
	return global, nil
}

// Gather copies global values out to every local vertex
func (vc *VertexConnector) Gather(global []float64) [][]float64 {
	local := make([][]float64, vc.NumComponents)
	for c := range local {
		local[c] = make([]float64, len(vc.LocalToGlobal[c]))
		for l, g := range vc.LocalToGlobal[c] {
			local[c][l] = global[g]
		}
	}
	return local
}

// Verify checks index validity and conservation properties
func (vc *VertexConnector) Verify() error {
	// Verify 1: Local validity - pick indices are within each component and
	// name shared vertices
	for c := 0; c < vc.NumComponents; c++ {
		n := len(vc.LocalToGlobal[c])
		for _, idx := range vc.PickIndices[c] {
			if idx < 0 || idx >= n {
				return fmt.Errorf("invalid pick index %d for component %d (max %d)", idx, c, n-1)
			}
			if vc.Copies[vc.LocalToGlobal[c][idx]] < 2 {
				return fmt.Errorf("pick index %d for component %d is not shared", idx, c)
			}
		}
	}

	// Verify 2: Correspondence - pick and place arrays have same length and
	// agree with the local map in increasing global order
	for c := 0; c < vc.NumComponents; c++ {
		if len(vc.PickIndices[c]) != len(vc.PlaceIndices[c]) {
			return fmt.Errorf("length mismatch: pick[%d]=%d, place[%d]=%d",
				c, len(vc.PickIndices[c]), c, len(vc.PlaceIndices[c]))
		}
		for k, idx := range vc.PickIndices[c] {
			if vc.PlaceIndices[c][k] != vc.LocalToGlobal[c][idx] {
				return fmt.Errorf("component %d: place %d does not match local vertex %d", c, k, idx)
			}
			if k > 0 && vc.PlaceIndices[c][k] < vc.PlaceIndices[c][k-1] {
				return fmt.Errorf("component %d: place indices out of order at %d", c, k)
			}
		}
	}

	// Verify 3: Conservation - every shared copy is picked once, and every
	// global vertex has a copy
	totalPicks, sharedCopies := 0, 0
	for c := 0; c < vc.NumComponents; c++ {
		totalPicks += len(vc.PickIndices[c])
	}
	for g, n := range vc.Copies {
		if n == 0 {
			return fmt.Errorf("global vertex %d has no local copy", g)
		}
		if n > 1 {
			sharedCopies += n
		}
	}
	if totalPicks != sharedCopies {
		return fmt.Errorf("conservation error: total picks %d != shared copies %d", totalPicks, sharedCopies)
	}
	return nil
}

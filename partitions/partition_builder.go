package partitions

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// MeshConnectivity provides the element adjacency used for partitioning
type MeshConnectivity struct {
	NumElements int

	// Element-to-element connectivity, -1 where there is no neighbor. A link
	// is used when either side lists it.
	EToE [][]int
}

// PartitionBuilder constructs partitions from mesh connectivity
type PartitionBuilder struct {
	Mesh *MeshConnectivity
}

// BuildPartitions creates one partition per connected component of the
// element adjacency, ordered by smallest element
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.Mesh == nil || pb.Mesh.NumElements <= 0 {
		return nil, fmt.Errorf("no elements to partition")
	}
	if len(pb.Mesh.EToE) != pb.Mesh.NumElements {
		return nil, fmt.Errorf("EToE length %d does not match NumElements=%d",
			len(pb.Mesh.EToE), pb.Mesh.NumElements)
	}

	eToP, numPartitions, err := pb.partitionElements()
	if err != nil {
		return nil, err
	}
	partitions, eToLocal := pb.createPartitions(eToP, numPartitions)

	layout := &PartitionLayout{
		Partitions:    partitions,
		TotalElements: pb.Mesh.NumElements,
		NumPartitions: numPartitions,
		EToP:          eToP,
		EToLocal:      eToLocal,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return layout, nil
}

// partitionElements assigns each element the index of its connected component
func (pb *PartitionBuilder) partitionElements() ([]int, int, error) {
	g := simple.NewUndirectedGraph()
	for k := 0; k < pb.Mesh.NumElements; k++ {
		g.AddNode(simple.Node(k))
	}
	for k, nbrs := range pb.Mesh.EToE {
		for _, n := range nbrs {
			if n < 0 || n == k {
				continue
			}
			if n >= pb.Mesh.NumElements {
				return nil, 0, fmt.Errorf("element %d neighbor %d out of range", k, n)
			}
			g.SetEdge(simple.Edge{F: simple.Node(k), T: simple.Node(n)})
		}
	}

	components := topo.ConnectedComponents(g)
	first := make([]int, len(components))
	for c, nodes := range components {
		first[c] = pb.Mesh.NumElements
		for _, node := range nodes {
			if id := int(node.ID()); id < first[c] {
				first[c] = id
			}
		}
	}
	order := make([]int, len(components))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return first[order[a]] < first[order[b]] })

	eToP := make([]int, pb.Mesh.NumElements)
	for pid, c := range order {
		for _, node := range components[c] {
			eToP[node.ID()] = pid
		}
	}
	return eToP, len(components), nil
}

// createPartitions builds partition structures from element assignments
func (pb *PartitionBuilder) createPartitions(eToP []int, numPartitions int) ([]Partition, []int) {
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i].ID = i
	}
	eToLocal := make([]int, len(eToP))
	for elem, part := range eToP {
		eToLocal[elem] = partitions[part].NumElements
		partitions[part].Elements = append(partitions[part].Elements, elem)
		partitions[part].NumElements++
	}
	return partitions, eToLocal
}

package partitions

import (
	"fmt"
	"math"
)

// Partition is a connected set of elements processed together, e.g. one
// connected component of a cut cover
type Partition struct {
	// Unique identifier for this partition
	ID int

	// Element membership
	Elements    []int // Global element indices in increasing order
	NumElements int
}

// PartitionLayout manages the complete decomposition
type PartitionLayout struct {
	// All partitions
	Partitions []Partition

	// Global sizing information
	TotalElements int // Sum of all elements across partitions
	NumPartitions int

	// Element to partition mapping
	EToP     []int // Length TotalElements: element k belongs to partition EToP[k]
	EToLocal []int // Length TotalElements: position of element k within its partition
}

// PartitionedArray represents per-element data grouped by partition
type PartitionedArray struct {
	// Contiguous global storage for all partitions
	// Layout: [Partition 0 Data][Partition 1 Data]...[Partition N-1 Data]
	GlobalData []float64

	// Offset for each partition's data in GlobalData
	// Partition p's data starts at GlobalData[Offsets[p]]
	Offsets []int

	// Number of values per element
	Stride int
}

// GetPartition returns the partition containing element k
func (pl *PartitionLayout) GetPartition(elementID int) int {
	if elementID < 0 || elementID >= len(pl.EToP) {
		return -1
	}
	return pl.EToP[elementID]
}

// ValidateLayout checks partition consistency: every element is in exactly
// one partition and the maps agree with the membership lists
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("have %d partitions, NumPartitions %d", len(pl.Partitions), pl.NumPartitions)
	}
	if len(pl.EToP) != pl.TotalElements || len(pl.EToLocal) != pl.TotalElements {
		return fmt.Errorf("EToP length %d, EToLocal length %d, TotalElements %d",
			len(pl.EToP), len(pl.EToLocal), pl.TotalElements)
	}
	seen := make([]bool, pl.TotalElements)
	total := 0
	for pid, p := range pl.Partitions {
		if p.ID != pid {
			return fmt.Errorf("partition at %d has ID %d", pid, p.ID)
		}
		if p.NumElements != len(p.Elements) {
			return fmt.Errorf("partition %d: NumElements %d != %d elements", p.ID, p.NumElements, len(p.Elements))
		}
		for local, k := range p.Elements {
			if k < 0 || k >= pl.TotalElements {
				return fmt.Errorf("partition %d: element %d out of range", p.ID, k)
			}
			if seen[k] {
				return fmt.Errorf("element %d appears twice", k)
			}
			seen[k] = true
			if pl.EToP[k] != p.ID || pl.EToLocal[k] != local {
				return fmt.Errorf("element %d: EToP %d EToLocal %d, listed in partition %d at %d",
					k, pl.EToP[k], pl.EToLocal[k], p.ID, local)
			}
		}
		total += p.NumElements
	}
	if total != pl.TotalElements {
		return fmt.Errorf("partitions hold %d elements, TotalElements %d", total, pl.TotalElements)
	}
	return nil
}

// AllocatePartitionedArray creates storage for stride values per element
func AllocatePartitionedArray(layout *PartitionLayout, stride int) *PartitionedArray {
	offsets := make([]int, layout.NumPartitions+1)
	for i, p := range layout.Partitions {
		offsets[i+1] = offsets[i] + p.NumElements*stride
	}
	return &PartitionedArray{
		GlobalData: make([]float64, offsets[layout.NumPartitions]),
		Offsets:    offsets,
		Stride:     stride,
	}
}

// GetPartitionData returns a slice for partition p's data
func (pa *PartitionedArray) GetPartitionData(partitionID int) []float64 {
	if partitionID < 0 || partitionID >= len(pa.Offsets)-1 {
		return nil
	}
	start := pa.Offsets[partitionID]
	end := pa.Offsets[partitionID+1]
	return pa.GlobalData[start:end]
}

// ToElementOrder returns the data reordered by global element index
func (pa *PartitionedArray) ToElementOrder(layout *PartitionLayout) []float64 {
	out := make([]float64, layout.TotalElements*pa.Stride)
	for k := 0; k < layout.TotalElements; k++ {
		src := pa.Offsets[layout.EToP[k]] + layout.EToLocal[k]*pa.Stride
		copy(out[k*pa.Stride:(k+1)*pa.Stride], pa.GlobalData[src:src+pa.Stride])
	}
	return out
}

// PartitionStatistics computes size metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinElements:   math.MaxInt32,
	}
	if pl.NumPartitions == 0 {
		stats.MinElements = 0
		return stats
	}
	stats.AvgElements = float64(pl.TotalElements) / float64(pl.NumPartitions)
	for _, p := range pl.Partitions {
		if p.NumElements < stats.MinElements {
			stats.MinElements = p.NumElements
		}
		if p.NumElements > stats.MaxElements {
			stats.MaxElements = p.NumElements
		}
	}
	stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements
	return stats
}

type PartitionStats struct {
	NumPartitions int
	MinElements   int
	MaxElements   int
	AvgElements   float64
	Imbalance     float64 // MaxElements / AvgElements
}

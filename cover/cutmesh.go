package cover

import (
	"fmt"

	"github.com/notargets/fieldcover/mesh"
	"github.com/notargets/fieldcover/partitions"
	"github.com/notargets/fieldcover/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// Component is one connected piece of the cut cover as a standalone mesh
type Component struct {
	ID            int
	Mesh          *mesh.Surface
	FaceToCover   []int // [local face] → cover face
	VertexToCover []int // [local vertex] → cover vertex
}

// CutMesh is the cover sliced open along its cut paths and split into
// connected components
type CutMesh struct {
	Cover      *Cover
	Layout     *partitions.PartitionLayout // Elements are cover faces
	Components []*Component
	Connector  *utils.VertexConnector // Local vertices → cover vertices
	CutVertex  []int                  // [cover corner 3·face + c] → cut vertex
	NumCut     int                    // Distinct cut vertices
}

// CutComponents slices the cover along SlicedEdges, duplicating vertices on
// the cuts, and builds one mesh per connected component. Call ComputeCuts
// first; with no sliced edges the components are the cover's own components.
func (c *Cover) CutComponents() (*CutMesh, error) {
	cm := c.Mesh()

	// Corners are identified across interior edges that were not sliced
	var pairs [][2]int
	eToE := make([][]int, cm.NumFaces)
	for f := range eToE {
		eToE[f] = []int{-1, -1, -1}
	}
	for e, edge := range cm.E {
		if !cm.IsInteriorEdge(e) || c.SlicedEdges[e] {
			continue
		}
		for _, v := range []int{edge.V0, edge.V1} {
			pairs = append(pairs, [2]int{
				3*edge.F0 + cm.Corner(edge.F0, v),
				3*edge.F1 + cm.Corner(edge.F1, v),
			})
		}
		eToE[edge.F0][edge.Side0] = edge.F1
		eToE[edge.F1][edge.Side1] = edge.F0
	}
	cutVertex, numCut := utils.ClassifyCorners(3*cm.NumFaces, pairs)

	pb := &partitions.PartitionBuilder{
		Mesh: &partitions.MeshConnectivity{NumElements: cm.NumFaces, EToE: eToE},
	}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return nil, fmt.Errorf("cut components: %w", err)
	}

	out := &CutMesh{Cover: c, Layout: layout, CutVertex: cutVertex, NumCut: numCut}
	l2g := make([][]int, layout.NumPartitions)
	for _, part := range layout.Partitions {
		comp := &Component{ID: part.ID, FaceToCover: part.Elements}
		local := make(map[int]int)
		F := make([][3]int, 0, part.NumElements)
		var V []r3.Vec
		for _, cf := range part.Elements {
			var face [3]int
			for corner := 0; corner < 3; corner++ {
				cv := cutVertex[3*cf+corner]
				id, ok := local[cv]
				if !ok {
					id = len(V)
					local[cv] = id
					coverVertex := cm.F[cf][corner]
					V = append(V, cm.V[coverVertex])
					comp.VertexToCover = append(comp.VertexToCover, coverVertex)
				}
				face[corner] = id
			}
			F = append(F, face)
		}
		if comp.Mesh, err = mesh.NewFromTriangles(V, F); err != nil {
			return nil, fmt.Errorf("component %d: %w", part.ID, err)
		}
		l2g[part.ID] = comp.VertexToCover
		out.Components = append(out.Components, comp)
	}

	if out.Connector, err = utils.NewVertexConnector(cm.NumVertices, l2g); err != nil {
		return nil, fmt.Errorf("cut vertex connector: %w", err)
	}
	stats := layout.PartitionStatistics()
	tracer().Infof("cut mesh: %d components, %d cut vertices for %d cover vertices, faces per component %d..%d",
		layout.NumPartitions, numCut, cm.NumVertices, stats.MinElements, stats.MaxElements)
	return out, nil
}

// CoverFaceValues assembles per-component face values into cover face order
func (cut *CutMesh) CoverFaceValues(pa *partitions.PartitionedArray) []float64 {
	return pa.ToElementOrder(cut.Layout)
}

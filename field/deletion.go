package field

import (
	"fmt"

	"github.com/notargets/fieldcover/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// DeleteVertex marks every face incident to vertex v as deleted
func (fs *Surface) DeleteVertex(v int) {
	for f, face := range fs.Mesh.F {
		if face[0] == v || face[1] == v || face[2] == v {
			fs.Deleted[f] = true
		}
	}
}

// UndeleteAllFaces clears every deleted flag
func (fs *Surface) UndeleteAllFaces() {
	for f := range fs.Deleted {
		fs.Deleted[f] = false
	}
}

// NumUndeletedFaces counts the faces not marked deleted
func (fs *Surface) NumUndeletedFaces() int {
	n := 0
	for _, d := range fs.Deleted {
		if !d {
			n++
		}
	}
	return n
}

// RemoveDeletedFacesFromMesh returns a new field surface without the deleted
// faces. Unreferenced vertices are dropped in index order, DOFs are compacted
// and permutations are re-attached by looking up each new edge's endpoints.
func (fs *Surface) RemoveDeletedFacesFromMesh() (*Surface, error) {
	old := fs.Mesh
	oldEdges := make(map[[2]int]int, old.NumEdges)
	for e, edge := range old.E {
		oldEdges[[2]int{edge.V0, edge.V1}] = e
	}

	var keptFaces []int
	for f := 0; f < old.NumFaces; f++ {
		if !fs.Deleted[f] {
			keptFaces = append(keptFaces, f)
		}
	}
	if len(keptFaces) == 0 {
		return nil, fmt.Errorf("every face is deleted: %w", mesh.ErrEmptyMesh)
	}

	newVertex := make([]int, old.NumVertices)
	for v := range newVertex {
		newVertex[v] = -1
	}
	for _, f := range keptFaces {
		for _, v := range old.F[f] {
			newVertex[v] = 0
		}
	}
	var V []r3.Vec
	oldVertex := make([]int, 0, old.NumVertices)
	for v := range newVertex {
		if newVertex[v] == 0 {
			newVertex[v] = len(V)
			V = append(V, old.V[v])
			oldVertex = append(oldVertex, v)
		}
	}

	F := make([][3]int, len(keptFaces))
	for nf, f := range keptFaces {
		for c, v := range old.F[f] {
			F[nf][c] = newVertex[v]
		}
	}
	s, err := mesh.NewFromTriangles(V, F)
	if err != nil {
		return nil, err
	}
	out, err := New(s, fs.M)
	if err != nil {
		return nil, err
	}

	for nf, f := range keptFaces {
		for i := 0; i < fs.M; i++ {
			out.SetV(nf, i, fs.V(f, i))
			out.SetBeta(nf, i, fs.Beta(f, i))
			out.SetAlpha(nf, i, fs.Alpha(f, i))
		}
	}
	for e, edge := range s.E {
		key := [2]int{oldVertex[edge.V0], oldVertex[edge.V1]}
		if oe, ok := oldEdges[key]; ok {
			out.Perms[e] = fs.Perms[oe].Clone()
		} else {
			tracer().Errorf("edge (%d,%d) has no source edge", key[0], key[1])
		}
	}
	tracer().Infof("removed %d deleted faces, %d vertices remain",
		old.NumFaces-len(keptFaces), len(V))
	return out, nil
}

package cover

import (
	"math"

	"github.com/notargets/fieldcover/mesh"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r3"
)

// CutPath is a chain of cover vertices joined by sliced cover edges
type CutPath struct {
	Vertices []int
	Edges    []int // Edges[k] joins Vertices[k] and Vertices[k+1]
}

// ComputeCuts finds the cover edges to slice so that every component of the
// cover becomes simply connected. The dual graph gets a spanning forest that
// prefers long edges; every interior edge off the forest is a cut, and cut
// branches ending at interior vertices are pruned. The remaining cut edges are
// returned as vertex paths and marked in SlicedEdges and SplitSlicedEdges.
func (c *Cover) ComputeCuts() []CutPath {
	cm := c.Mesh()
	tree := c.dualSpanningForest()

	cut := make([]bool, cm.NumEdges)
	degree := make([]int, cm.NumVertices)
	for e, edge := range cm.E {
		if cm.IsInteriorEdge(e) && !tree[e] {
			cut[e] = true
			degree[edge.V0]++
			degree[edge.V1]++
		}
	}

	// Prune dangling cut edges at interior vertices
	onBoundary := cm.BoundaryVertices()
	incident := make([][]int, cm.NumVertices)
	for e, edge := range cm.E {
		incident[edge.V0] = append(incident[edge.V0], e)
		incident[edge.V1] = append(incident[edge.V1], e)
	}
	var leaves []int
	for v := range degree {
		if degree[v] == 1 && !onBoundary[v] {
			leaves = append(leaves, v)
		}
	}
	for len(leaves) > 0 {
		v := leaves[len(leaves)-1]
		leaves = leaves[:len(leaves)-1]
		if degree[v] != 1 {
			continue
		}
		for _, e := range incident[v] {
			if !cut[e] {
				continue
			}
			cut[e] = false
			u := cm.E[e].V0 + cm.E[e].V1 - v
			degree[v]--
			degree[u]--
			if degree[u] == 1 && !onBoundary[u] {
				leaves = append(leaves, u)
			}
			break
		}
	}

	c.Cuts = decomposePaths(cm.NumVertices, cm.E, cut, incident)
	for e := range c.SlicedEdges {
		c.SlicedEdges[e] = false
	}
	for e := range c.SplitSlicedEdges {
		c.SplitSlicedEdges[e] = false
	}
	for _, p := range c.Cuts {
		for _, e := range p.Edges {
			c.markSliced(e)
		}
	}
	tracer().Infof("cuts: %d paths over %d edges", len(c.Cuts), countTrue(c.SlicedEdges))
	return c.Cuts
}

// dualSpanningForest flags the cover edges whose dual links are in a maximum
// length spanning forest of the face adjacency
func (c *Cover) dualSpanningForest() []bool {
	cm := c.Mesh()
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for f := 0; f < cm.NumFaces; f++ {
		g.AddNode(simple.Node(f))
	}

	meanLength := 0.0
	for e := range cm.E {
		meanLength += r3.Norm(cm.EdgeVector(e))
	}
	meanLength /= math.Max(1, float64(cm.NumEdges))

	// Ties are broken by edge index so the forest does not depend on map order
	type link struct {
		edge   int
		weight float64
	}
	links := make(map[[2]int]link)
	for e, edge := range cm.E {
		if !cm.IsInteriorEdge(e) || edge.F0 == edge.F1 {
			continue
		}
		w := -r3.Norm(cm.EdgeVector(e)) + 1e-9*meanLength*float64(e)/float64(cm.NumEdges)
		key := [2]int{min(edge.F0, edge.F1), max(edge.F0, edge.F1)}
		if old, ok := links[key]; ok && old.weight <= w {
			continue
		}
		links[key] = link{edge: e, weight: w}
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(key[0]), simple.Node(key[1]), w))
	}

	forest := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	path.Kruskal(forest, g)

	tree := make([]bool, cm.NumEdges)
	edges := forest.Edges()
	for edges.Next() {
		we := edges.Edge()
		a, b := int(we.From().ID()), int(we.To().ID())
		tree[links[[2]int{min(a, b), max(a, b)}].edge] = true
	}
	return tree
}

// decomposePaths splits the cut edges into maximal paths between vertices of
// cut degree other than 2, then walks the remaining closed loops
func decomposePaths(numVertices int, E []mesh.Edge, cut []bool, incident [][]int) []CutPath {
	degree := make([]int, numVertices)
	for e, isCut := range cut {
		if isCut {
			degree[E[e].V0]++
			degree[E[e].V1]++
		}
	}
	used := make([]bool, len(cut))

	walk := func(start, first int) CutPath {
		p := CutPath{Vertices: []int{start}}
		v, e := start, first
		for {
			used[e] = true
			u := E[e].V0 + E[e].V1 - v
			p.Vertices = append(p.Vertices, u)
			p.Edges = append(p.Edges, e)
			v = u
			if degree[v] != 2 || v == start {
				return p
			}
			next := -1
			for _, n := range incident[v] {
				if cut[n] && !used[n] {
					next = n
					break
				}
			}
			if next < 0 {
				return p
			}
			e = next
		}
	}

	var paths []CutPath
	for v := 0; v < numVertices; v++ {
		if degree[v] == 0 || degree[v] == 2 {
			continue
		}
		for _, e := range incident[v] {
			if cut[e] && !used[e] {
				paths = append(paths, walk(v, e))
			}
		}
	}
	for v := 0; v < numVertices; v++ {
		for _, e := range incident[v] {
			if cut[e] && !used[e] {
				paths = append(paths, walk(v, e))
			}
		}
	}
	return paths
}

// markSliced flags cover edge e and the split mesh edges of its two faces
func (c *Cover) markSliced(e int) {
	cm := c.Mesh()
	c.SlicedEdges[e] = true
	edge := cm.E[e]
	for _, fs := range [][2]int{{edge.F0, edge.Side0}, {edge.F1, edge.Side1}} {
		if fs[0] < 0 || fs[1] < 0 {
			continue
		}
		if se := c.Split.FToE[fs[0]][fs[1]]; se >= 0 {
			c.SplitSlicedEdges[se] = true
		}
	}
}

func countTrue(b []bool) int {
	n := 0
	for _, x := range b {
		if x {
			n++
		}
	}
	return n
}

package utils

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ClassifyCorners returns the equivalence classes of n items under the
// gluing pairs. Classes are numbered in order of their smallest member.
func ClassifyCorners(n int, pairs [][2]int) (class []int, count int) {
	g := simple.NewUndirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for _, p := range pairs {
		if p[0] == p[1] || g.HasEdgeBetween(int64(p[0]), int64(p[1])) {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(p[0]), T: simple.Node(p[1])})
	}

	components := topo.ConnectedComponents(g)
	smallest := make([]int, len(components))
	for c, nodes := range components {
		smallest[c] = math.MaxInt
		for _, node := range nodes {
			if id := int(node.ID()); id < smallest[c] {
				smallest[c] = id
			}
		}
	}
	order := make([]int, len(components))
	for c := range order {
		order[c] = c
	}
	sort.Slice(order, func(a, b int) bool { return smallest[order[a]] < smallest[order[b]] })

	class = make([]int, n)
	for id, c := range order {
		for _, node := range components[c] {
			class[node.ID()] = id
		}
	}
	return class, len(components)
}

// WrapAngle maps x into (-π, π]
func WrapAngle(x float64) float64 {
	y := math.Mod(x+math.Pi, 2*math.Pi)
	if y <= 0 {
		y += 2 * math.Pi
	}
	return y - math.Pi
}

// WrapPeriodic maps x into [lo, hi)
func WrapPeriodic(x, lo, hi float64) float64 {
	w := hi - lo
	y := math.Mod(x-lo, w)
	if y < 0 {
		y += w
	}
	if y >= w {
		y = 0
	}
	return lo + y
}

package mesh

import "github.com/notargets/fieldcover/utils"

// buildConnectivity creates the unique edge list and the face-to-edge and
// face-to-face maps. Each face side is keyed by its sorted vertex pair; the face
// that walks the pair in increasing order takes the F0 slot.
func (s *Surface) buildConnectivity() {
	s.FToE = make([][3]int, s.NumFaces)
	s.FToF = make([][3]int, s.NumFaces)
	edgeMap := make(map[[2]int]int)

	for f := 0; f < s.NumFaces; f++ {
		for j := 0; j < 3; j++ {
			s.FToE[f][j] = -1
			s.FToF[f][j] = -1

			a, b := s.SideVertices(f, j)
			if a == b {
				continue
			}
			key := [2]int{a, b}
			if a > b {
				key = [2]int{b, a}
			}

			e, found := edgeMap[key]
			if !found {
				e = len(s.E)
				s.E = append(s.E, Edge{V0: key[0], V1: key[1], F0: -1, F1: -1, Side0: -1, Side1: -1})
				edgeMap[key] = e
			}
			edge := &s.E[e]

			// Prefer the slot matching the orientation, fall back to the free one
			// for inconsistently oriented input
			switch {
			case a < b && edge.F0 < 0:
				edge.F0, edge.Side0 = f, j
			case a > b && edge.F1 < 0:
				edge.F1, edge.Side1 = f, j
			case edge.F0 < 0:
				edge.F0, edge.Side0 = f, j
				s.Diagnostics.NonManifoldEdges = append(s.Diagnostics.NonManifoldEdges, key)
			case edge.F1 < 0:
				edge.F1, edge.Side1 = f, j
				s.Diagnostics.NonManifoldEdges = append(s.Diagnostics.NonManifoldEdges, key)
			default:
				// Third face on this edge, leave its side unattached
				s.Diagnostics.NonManifoldEdges = append(s.Diagnostics.NonManifoldEdges, key)
				tracer().Errorf("edge (%d,%d): face %d is a third incident face", key[0], key[1], f)
				continue
			}
			s.FToE[f][j] = e
		}
	}
	s.NumEdges = len(s.E)

	for _, edge := range s.E {
		if edge.F0 >= 0 && edge.F1 >= 0 {
			s.FToF[edge.F0][edge.Side0] = edge.F1
			s.FToF[edge.F1][edge.Side1] = edge.F0
		}
	}
}

// findNonManifoldVertices flags vertices whose incident faces split into more
// than one fan when linked through the edges around the vertex
func (s *Surface) findNonManifoldVertices() {
	incident := make([][]int, s.NumVertices)
	for f, face := range s.F {
		for c := 0; c < 3; c++ {
			if (c > 0 && face[c] == face[0]) || (c == 2 && face[2] == face[1]) {
				continue
			}
			incident[face[c]] = append(incident[face[c]], f)
		}
	}

	for v, faces := range incident {
		if len(faces) < 2 {
			continue
		}
		local := make(map[int]int, len(faces))
		for i, f := range faces {
			local[f] = i
		}
		var pairs [][2]int
		for _, f := range faces {
			for j := 0; j < 3; j++ {
				e := s.FToE[f][j]
				if e < 0 || (s.E[e].V0 != v && s.E[e].V1 != v) {
					continue
				}
				if gi, ok := local[s.OtherFace(e, f)]; ok {
					pairs = append(pairs, [2]int{local[f], gi})
				}
			}
		}
		if _, fans := utils.ClassifyCorners(len(faces), pairs); fans > 1 {
			s.Diagnostics.NonManifoldVertices = append(s.Diagnostics.NonManifoldVertices, v)
		}
	}
}

package field

import (
	"fmt"
	"math"
	"slices"
)

// Permutation is an m × m signed permutation stored row-major. Entry (i,j)
// = ±1 says slot i on an edge's F0 matches slot j on its F1 with that sign.
type Permutation struct {
	M int
	P []int
}

// Identity returns the m × m identity
func Identity(m int) Permutation {
	p := Permutation{M: m, P: make([]int, m*m)}
	for i := 0; i < m; i++ {
		p.P[i*m+i] = 1
	}
	return p
}

// NewPermutation wraps row-major entries and validates them
func NewPermutation(m int, entries []int) (Permutation, error) {
	if len(entries) != m*m {
		return Permutation{}, fmt.Errorf("%d entries for a %d × %d matrix: %w", len(entries), m, m, ErrBadPermutation)
	}
	p := Permutation{M: m, P: append([]int(nil), entries...)}
	if err := p.Validate(); err != nil {
		return Permutation{}, err
	}
	return p, nil
}

// Clone returns a copy that shares no storage with p
func (p Permutation) Clone() Permutation {
	return Permutation{M: p.M, P: slices.Clone(p.P)}
}

// At returns entry (i,j)
func (p Permutation) At(i, j int) int {
	return p.P[i*p.M+j]
}

// Target returns the slot j matched to slot i and the sign of the match
func (p Permutation) Target(i int) (j, sign int) {
	j = -1
	for k := 0; k < p.M; k++ {
		if x := p.At(i, k); x != 0 && (j < 0 || abs(x) > abs(p.At(i, j))) {
			j = k
		}
	}
	if j < 0 {
		return -1, 0
	}
	return j, p.At(i, j)
}

// Inverse returns the transpose, which inverts a signed permutation
func (p Permutation) Inverse() Permutation {
	q := Permutation{M: p.M, P: make([]int, len(p.P))}
	for i := 0; i < p.M; i++ {
		for j := 0; j < p.M; j++ {
			q.P[j*p.M+i] = p.At(i, j)
		}
	}
	return q
}

// Compose returns the matrix product p·q: crossing p's edge then q's edge
func (p Permutation) Compose(q Permutation) Permutation {
	r := Permutation{M: p.M, P: make([]int, len(p.P))}
	for i := 0; i < p.M; i++ {
		for k := 0; k < p.M; k++ {
			sum := 0
			for j := 0; j < p.M; j++ {
				sum += p.At(i, j) * q.At(j, k)
			}
			r.P[i*p.M+k] = sum
		}
	}
	return r
}

// IsIdentity reports whether p is the identity
func (p Permutation) IsIdentity() bool {
	for i := 0; i < p.M; i++ {
		for j := 0; j < p.M; j++ {
			want := 0
			if i == j {
				want = 1
			}
			if p.At(i, j) != want {
				return false
			}
		}
	}
	return true
}

// Equal reports whether p and q have the same entries
func (p Permutation) Equal(q Permutation) bool {
	if p.M != q.M || len(p.P) != len(q.P) {
		return false
	}
	for k := range p.P {
		if p.P[k] != q.P[k] {
			return false
		}
	}
	return true
}

// Validate checks that entries are in {-1,0,1} with exactly one nonzero per
// row and per column
func (p Permutation) Validate() error {
	if p.M < 1 || len(p.P) != p.M*p.M {
		return fmt.Errorf("size %d with %d entries: %w", p.M, len(p.P), ErrBadPermutation)
	}
	colCount := make([]int, p.M)
	for i := 0; i < p.M; i++ {
		rowCount := 0
		for j := 0; j < p.M; j++ {
			switch p.At(i, j) {
			case 0:
			case 1, -1:
				rowCount++
				colCount[j]++
			default:
				return fmt.Errorf("entry (%d,%d) = %d: %w", i, j, p.At(i, j), ErrBadPermutation)
			}
		}
		if rowCount != 1 {
			return fmt.Errorf("row %d has %d nonzeros: %w", i, rowCount, ErrBadPermutation)
		}
	}
	for j, c := range colCount {
		if c != 1 {
			return fmt.Errorf("column %d has %d nonzeros: %w", j, c, ErrBadPermutation)
		}
	}
	return nil
}

// signedPermutations enumerates every m × m signed permutation, identity first
func signedPermutations(m int) []Permutation {
	var perms [][]int
	var build func(prefix []int, used []bool)
	build = func(prefix []int, used []bool) {
		if len(prefix) == m {
			perms = append(perms, append([]int(nil), prefix...))
			return
		}
		for j := 0; j < m; j++ {
			if used[j] {
				continue
			}
			used[j] = true
			build(append(prefix, j), used)
			used[j] = false
		}
	}
	build(nil, make([]bool, m))

	out := make([]Permutation, 0, len(perms)<<m)
	for _, perm := range perms {
		for mask := 0; mask < 1<<m; mask++ {
			p := Permutation{M: m, P: make([]int, m*m)}
			for i, j := range perm {
				sign := 1
				if mask&(1<<i) != 0 {
					sign = -1
				}
				p.P[i*m+j] = sign
			}
			out = append(out, p)
		}
	}
	return out
}

// maxReassignFields bounds the brute force search in ReassignPermutations
const maxReassignFields = 4

// ReassignPermutations replaces every interior edge permutation with the
// signed permutation that minimizes the summed angle between transported F0
// vectors and matched F1 vectors. Returns the number of edges that changed.
func (fs *Surface) ReassignPermutations() (int, error) {
	if fs.M > maxReassignFields {
		return 0, fmt.Errorf("reassignment searches at most %d fields, have %d", maxReassignFields, fs.M)
	}
	candidates := signedPermutations(fs.M)
	changed := 0
	for e, edge := range fs.Mesh.E {
		if !fs.edgeUsable(e) {
			continue
		}
		best, bestCost := fs.Perms[e], math.Inf(1)
		for _, p := range candidates {
			cost := 0.0
			for i := 0; i < fs.M; i++ {
				cost += math.Abs(fs.slotAngle(e, edge.F0, edge.F1, i, p))
			}
			if cost < bestCost-1e-12 {
				best, bestCost = p, cost
			}
		}
		if !best.Equal(fs.Perms[e]) {
			fs.Perms[e] = best
			changed++
		}
	}
	tracer().Infof("reassigned %d of %d edge permutations", changed, fs.NumEdges())
	return changed, nil
}

// SingularVertices returns the interior vertices around which the product of
// edge permutations is not the identity
func (fs *Surface) SingularVertices() []int {
	s := fs.Mesh
	incident := make([]int, s.NumVertices)
	start := make([]int, s.NumVertices)
	for v := range start {
		start[v] = -1
	}
	for f, face := range s.F {
		for c := 0; c < 3; c++ {
			incident[face[c]]++
			if start[face[c]] < 0 {
				start[face[c]] = f
			}
		}
	}
	onBoundary := s.BoundaryVertices()

	var singular []int
	for v := 0; v < s.NumVertices; v++ {
		if onBoundary[v] || start[v] < 0 {
			continue
		}
		holonomy := Identity(fs.M)
		f, closed := start[v], false
		for step := 0; step < incident[v]; step++ {
			c := s.Corner(f, v)
			// Side (c+2)%3 runs from v to the next corner
			e := s.FToE[f][(c+2)%3]
			if e < 0 {
				break
			}
			g := s.OtherFace(e, f)
			if g < 0 {
				break
			}
			if f == s.E[e].F0 {
				holonomy = holonomy.Compose(fs.Perms[e])
			} else {
				holonomy = holonomy.Compose(fs.Perms[e].Inverse())
			}
			f = g
			if f == start[v] {
				closed = true
				break
			}
		}
		if closed && !holonomy.IsIdentity() {
			singular = append(singular, v)
		}
	}
	return singular
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

package field

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/notargets/fieldcover/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Magic leads every versioned blob; a legacy blob starts with |V|
	Magic int32 = -777
	// FormatVersion is the version Write emits
	FormatVersion int32 = 1
)

var byteOrder = binary.LittleEndian

const (
	// MaxFields bounds m in a blob header
	MaxFields = 64
	// readChunk is the most elements Read allocates ahead of the data
	readChunk = 1 << 16
)

// readChunked reads n values in blocks so a corrupt count fails at the end of
// the stream instead of allocating the whole count up front
func readChunked[T int32 | float64](r io.Reader, n int) ([]T, error) {
	out := make([]T, 0, min(n, readChunk))
	for len(out) < n {
		buf := make([]T, min(readChunk, n-len(out)))
		if err := binary.Read(r, byteOrder, buf); err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	return out, nil
}

// Write serializes the field surface in the current format version
func (fs *Surface) Write(w io.Writer) error {
	return fs.WriteVersion(w, FormatVersion)
}

// WriteVersion serializes in an explicit version; version 0 omits the magic,
// the version field and the deleted flags
func (fs *Surface) WriteVersion(w io.Writer, version int32) error {
	if version < 0 || version > FormatVersion {
		return fmt.Errorf("unknown version %d: %w", version, ErrSerialization)
	}
	s := fs.Mesh
	var header []int32
	if version > 0 {
		header = append(header, Magic, version)
	}
	header = append(header, int32(s.NumVertices), int32(s.NumFaces), int32(fs.M), int32(len(fs.Perms)))

	pos := make([]float64, 0, 3*s.NumVertices)
	for _, p := range s.V {
		pos = append(pos, p.X, p.Y, p.Z)
	}
	faces := make([]int32, 0, 3*s.NumFaces)
	for _, face := range s.F {
		faces = append(faces, int32(face[0]), int32(face[1]), int32(face[2]))
	}
	perms := make([]int32, 0, len(fs.Perms)*fs.M*fs.M)
	for _, p := range fs.Perms {
		for _, x := range p.P {
			perms = append(perms, int32(x))
		}
	}

	parts := []any{header, pos, faces, fs.Data, perms}
	if version >= 1 {
		deleted := make([]int32, s.NumFaces)
		for f, d := range fs.Deleted {
			if d {
				deleted[f] = 1
			}
		}
		parts = append(parts, deleted)
	}
	for _, part := range parts {
		if err := binary.Write(w, byteOrder, part); err != nil {
			return fmt.Errorf("%w: %w", ErrSerialization, err)
		}
	}
	return nil
}

// Read deserializes a field surface written by Write or by a legacy version 0
// writer. Any failure returns a nil surface.
func Read(r io.Reader) (*Surface, error) {
	fail := func(what string, err error) (*Surface, error) {
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", ErrSerialization, what, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrSerialization, what)
	}

	var first int32
	if err := binary.Read(r, byteOrder, &first); err != nil {
		return fail("header", err)
	}
	version := int32(0)
	counts := make([]int32, 4)
	if first == Magic {
		if err := binary.Read(r, byteOrder, &version); err != nil {
			return fail("version", err)
		}
		if version < 1 || version > FormatVersion {
			return fail(fmt.Sprintf("unsupported version %d", version), nil)
		}
		if err := binary.Read(r, byteOrder, counts); err != nil {
			return fail("header", err)
		}
	} else {
		counts[0] = first
		if err := binary.Read(r, byteOrder, counts[1:]); err != nil {
			return fail("header", err)
		}
	}
	nv, nf, m, ne := int(counts[0]), int(counts[1]), int(counts[2]), int(counts[3])
	if nv < 0 || nf < 0 || m < 1 || m > MaxFields || ne < 0 {
		return fail(fmt.Sprintf("bad counts |V|=%d |F|=%d m=%d |E|=%d", nv, nf, m, ne), nil)
	}
	if ne > 3*nf {
		return fail(fmt.Sprintf("%d edges cannot bound %d faces", ne, nf), nil)
	}

	pos, err := readChunked[float64](r, 3*nv)
	if err != nil {
		return fail("positions", err)
	}
	faces, err := readChunked[int32](r, 3*nf)
	if err != nil {
		return fail("faces", err)
	}
	V := make([]r3.Vec, nv)
	for v := range V {
		V[v] = r3.Vec{X: pos[3*v], Y: pos[3*v+1], Z: pos[3*v+2]}
	}
	F := make([][]int, nf)
	for f := range F {
		F[f] = []int{int(faces[3*f]), int(faces[3*f+1]), int(faces[3*f+2])}
	}
	s, err := mesh.New(V, F)
	if err != nil {
		return fail("mesh", err)
	}
	if s.NumEdges != ne {
		return fail(fmt.Sprintf("blob has %d permutations, mesh has %d edges", ne, s.NumEdges), nil)
	}

	fs, err := New(s, m)
	if err != nil {
		return fail("field surface", err)
	}
	if err := binary.Read(r, byteOrder, fs.Data); err != nil {
		return fail("DOFs", err)
	}
	entries, err := readChunked[int32](r, ne*m*m)
	if err != nil {
		return fail("permutations", err)
	}
	for e := 0; e < ne; e++ {
		raw := make([]int, m*m)
		for k := range raw {
			raw[k] = int(entries[e*m*m+k])
		}
		p, err := NewPermutation(m, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: edge %d: %w", ErrSerialization, e, err)
		}
		fs.Perms[e] = p
	}
	if version >= 1 {
		deleted := make([]int32, nf)
		if err := binary.Read(r, byteOrder, deleted); err != nil {
			return fail("deleted flags", err)
		}
		for f, d := range deleted {
			fs.Deleted[f] = d != 0
		}
	}
	return fs, nil
}

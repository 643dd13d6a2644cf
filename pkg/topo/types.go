package topo

import (
	"fmt"
	"sort"
)

// VertexHandle is a stable integer identifier for a vertex. It stays valid
// until the vertex is removed, after which the handle may be reused.
type VertexHandle int

// FaceHandle is a stable integer identifier for a face.
type FaceHandle int

// InvalidVertex is the sentinel returned by operators that fail to
// produce a vertex.
const InvalidVertex VertexHandle = -1

// InvalidFace is the sentinel for a missing face.
const InvalidFace FaceHandle = -1

// EdgeKey identifies a logical edge by its canonical unordered vertex pair.
// Edges are not stored entities; they are derived from face boundaries and
// looked up through keys. A is always the smaller handle.
type EdgeKey struct {
	A VertexHandle
	B VertexHandle
}

// MakeEdgeKey builds the canonical key for the edge between a and b.
func MakeEdgeKey(a, b VertexHandle) EdgeKey {
	if b < a {
		a, b = b, a
	}
	return EdgeKey{A: a, B: b}
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("(%d-%d)", k.A, k.B)
}

// degenerate reports whether the key joins a vertex to itself.
func (k EdgeKey) degenerate() bool {
	return k.A == k.B
}

/// Face is a read-only snapshot of a live face: its handle and the ordered
// boundary loop of vertex handles. The loop is a copy; mutating it has no
// effect on the mesh.
type Face struct {
	Handle FaceHandle
	Loop   []VertexHandle
}

// handlePool allocates non-negative integer handles, always returning the
// smallest integer not currently live. Freed handles are eligible for
// reuse; callers must never assume handles grow monotonically.
type handlePool struct {
	free []int // freed handles, sorted ascending
	next int   // first handle never allocated
}

// alloc returns the smallest free handle.
func (p *handlePool) alloc() int {
	if len(p.free) > 0 {
		h := p.free[0]
		p.free = p.free[1:]
		return h
	}
	h := p.next
	p.next++
	return h
}

// release returns a handle to the pool, keeping the free list sorted.
func (p *handlePool) release(h int) {
	i := sort.SearchInts(p.free, h)
	p.free = append(p.free, 0)
	copy(p.free[i+1:], p.free[i:])
	p.free[i] = h
}

package topo

import (
	"fmt"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// normalEpsilon guards normalization of near-zero vectors.
const normalEpsilon = 1e-12

// vertexSlot is one entry in the vertex arena.
type vertexSlot struct {
	pos  v3.Vec
	live bool
}

// faceSlot is one entry in the face arena.
type faceSlot struct {
	loop []VertexHandle
	live bool
}

// Mesh is a mutable, handle-indexed surface representation. Vertices and
// faces live in arenas keyed by integer handles with smallest-first reuse.
// Edges are derived: an incrementally maintained index maps each EdgeKey
// appearing in some face boundary to the faces incident to it, so an edge
// with zero incident faces never exists.
//
// A Mesh is not safe for concurrent mutation. Read-only queries may run
// concurrently with each other but never with a mutating operator.
type Mesh struct {
	verts []vertexSlot
	faces []faceSlot

	vpool handlePool
	fpool handlePool

	liveVerts int
	liveFaces int

	// edgeFaces maps each derived edge to its incident faces. More than
	// two entries is a non-manifold condition reported by the validator,
	// never a crash.
	edgeFaces map[EdgeKey][]FaceHandle

	// vertFaces maps each live vertex to the faces whose boundary uses it,
	// keeping operator adjacency walks local to the affected star.
	vertFaces map[VertexHandle][]FaceHandle
}

// Construct builds a Mesh whose vertices are exactly the input positions
// (handle = input index) and whose faces are exactly the input triangles.
// positions holds three float components per vertex; indices holds three
// vertex handles per triangle. Indices out of range, a dangling tail, or
// a triangle repeating a vertex are rejected.
func Construct(positions []float64, indices []int) (*Mesh, error) {
	if len(positions)%3 != 0 {
		return nil, fmt.Errorf("topo: position buffer length %d is not a multiple of 3", len(positions))
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("topo: index buffer length %d is not a multiple of 3", len(indices))
	}

	m := &Mesh{
		edgeFaces: make(map[EdgeKey][]FaceHandle),
		vertFaces: make(map[VertexHandle][]FaceHandle),
	}

	nv := len(positions) / 3
	m.verts = make([]vertexSlot, nv)
	for i := 0; i < nv; i++ {
		m.verts[i] = vertexSlot{
			pos:  v3.Vec{X: positions[i*3], Y: positions[i*3+1], Z: positions[i*3+2]},
			live: true,
		}
	}
	m.vpool.next = nv
	m.liveVerts = nv

	for t := 0; t*3 < len(indices); t++ {
		a, b, c := indices[t*3], indices[t*3+1], indices[t*3+2]
		for _, idx := range []int{a, b, c} {
			if idx < 0 || idx >= nv {
				return nil, fmt.Errorf("topo: triangle %d references vertex %d, have %d vertices", t, idx, nv)
			}
		}
		if a == b || b == c || a == c {
			return nil, fmt.Errorf("topo: triangle %d repeats a vertex", t)
		}
		m.addFace([]VertexHandle{VertexHandle(a), VertexHandle(b), VertexHandle(c)})
	}

	return m, nil
}

// ConstructPolygons builds a Mesh from positions and explicit n-gon
// boundary loops. It accepts the quad-dominant inputs the triangle
// constructor cannot express; loops must hold at least three distinct
// in-range indices with no repeats.
func ConstructPolygons(positions []float64, loops [][]int) (*Mesh, error) {
	if len(positions)%3 != 0 {
		return nil, fmt.Errorf("topo: position buffer length %d is not a multiple of 3", len(positions))
	}

	m := &Mesh{
		edgeFaces: make(map[EdgeKey][]FaceHandle),
		vertFaces: make(map[VertexHandle][]FaceHandle),
	}

	nv := len(positions) / 3
	m.verts = make([]vertexSlot, nv)
	for i := 0; i < nv; i++ {
		m.verts[i] = vertexSlot{
			pos:  v3.Vec{X: positions[i*3], Y: positions[i*3+1], Z: positions[i*3+2]},
			live: true,
		}
	}
	m.vpool.next = nv
	m.liveVerts = nv

	for fi, loop := range loops {
		if len(loop) < 3 {
			return nil, fmt.Errorf("topo: face %d has %d vertices, need at least 3", fi, len(loop))
		}
		seen := make(map[int]bool, len(loop))
		conv := make([]VertexHandle, len(loop))
		for i, idx := range loop {
			if idx < 0 || idx >= nv {
				return nil, fmt.Errorf("topo: face %d references vertex %d, have %d vertices", fi, idx, nv)
			}
			if seen[idx] {
				return nil, fmt.Errorf("topo: face %d repeats vertex %d", fi, idx)
			}
			seen[idx] = true
			conv[i] = VertexHandle(idx)
		}
		m.addFace(conv)
	}

	return m, nil
}

// ---------------------------------------------------------------------------
// Counts and enumeration
// ---------------------------------------------------------------------------

// VertexCount returns the number of live vertices.
func (m *Mesh) VertexCount() int { return m.liveVerts }

// FaceCount returns the number of live faces.
func (m *Mesh) FaceCount() int { return m.liveFaces }

// Vertices returns the live vertex handles in ascending order.
func (m *Mesh) Vertices() []VertexHandle {
	out := make([]VertexHandle, 0, m.liveVerts)
	for h, s := range m.verts {
		if s.live {
			out = append(out, VertexHandle(h))
		}
	}
	return out
}

// Faces returns snapshots of the live faces ordered by handle. The order
// is stable across operators that do not remove faces.
func (m *Mesh) Faces() []Face {
	out := make([]Face, 0, m.liveFaces)
	for h, s := range m.faces {
		if s.live {
			out = append(out, Face{
				Handle: FaceHandle(h),
				Loop:   append([]VertexHandle(nil), s.loop...),
			})
		}
	}
	return out
}

// GetFace returns a snapshot of one face.
func (m *Mesh) GetFace(h FaceHandle) (Face, bool) {
	if !m.faceLive(h) {
		return Face{}, false
	}
	return Face{Handle: h, Loop: append([]VertexHandle(nil), m.faces[h].loop...)}, true
}

// Position returns the position of a live vertex.
func (m *Mesh) Position(h VertexHandle) (v3.Vec, bool) {
	if !m.vertexLive(h) {
		return v3.Vec{}, false
	}
	return m.verts[h].pos, true
}

// SetPosition replaces the position of a live vertex. The handle is
// unaffected; only the position field changes.
func (m *Mesh) SetPosition(h VertexHandle, p v3.Vec) bool {
	if !m.vertexLive(h) {
		return false
	}
	m.verts[h].pos = p
	return true
}

// Edges returns the distinct edge keys derived from all live face
// boundaries. The sequence is sorted by key so that index-based snapshot
// references (BridgeEdges, BevelEdges) are deterministic for a given
// topology; the order of a key within the sequence is NOT stable across
// edits, so callers must re-snapshot after any operator.
func (m *Mesh) Edges() []EdgeKey {
	out := make([]EdgeKey, 0, len(m.edgeFaces))
	for k := range m.edgeFaces {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// HasEdge reports whether the key corresponds to a live edge.
func (m *Mesh) HasEdge(k EdgeKey) bool {
	return len(m.edgeFaces[k]) > 0
}

// EdgeFaces returns the faces incident to an edge. Two is the manifold
// maximum; one marks a boundary edge.
func (m *Mesh) EdgeFaces(k EdgeKey) []FaceHandle {
	fs := m.edgeFaces[k]
	if len(fs) == 0 {
		return nil
	}
	return append([]FaceHandle(nil), fs...)
}

// GetEdgesOfFace returns the ordered boundary edge keys of a face:
// consecutive vertex pairs, wrapping at the end of the loop.
func (m *Mesh) GetEdgesOfFace(h FaceHandle) []EdgeKey {
	if !m.faceLive(h) {
		return nil
	}
	return loopEdges(m.faces[h].loop)
}

// FacesOfVertex returns the faces whose boundary uses the vertex.
func (m *Mesh) FacesOfVertex(h VertexHandle) []FaceHandle {
	fs := m.vertFaces[h]
	if len(fs) == 0 {
		return nil
	}
	return append([]FaceHandle(nil), fs...)
}

// ---------------------------------------------------------------------------
// Flattening
// ---------------------------------------------------------------------------

// Buffers flattens the mesh back to flat position/index buffers for
// consumption by a renderer. Live vertices appear in ascending handle
// order; n-gon faces are fan-triangulated from their first loop vertex.
func (m *Mesh) Buffers() (positions []float64, indices []int) {
	compact := make(map[VertexHandle]int, m.liveVerts)
	positions = make([]float64, 0, m.liveVerts*3)
	for h, s := range m.verts {
		if !s.live {
			continue
		}
		compact[VertexHandle(h)] = len(positions) / 3
		positions = append(positions, s.pos.X, s.pos.Y, s.pos.Z)
	}

	for _, s := range m.faces {
		if !s.live {
			continue
		}
		for i := 1; i+1 < len(s.loop); i++ {
			indices = append(indices,
				compact[s.loop[0]],
				compact[s.loop[i]],
				compact[s.loop[i+1]],
			)
		}
	}
	return positions, indices
}

// ---------------------------------------------------------------------------
// Internal mutation plumbing
// ---------------------------------------------------------------------------

func (m *Mesh) vertexLive(h VertexHandle) bool {
	return h >= 0 && int(h) < len(m.verts) && m.verts[h].live
}

func (m *Mesh) faceLive(h FaceHandle) bool {
	return h >= 0 && int(h) < len(m.faces) && m.faces[h].live
}

// addVertex allocates a vertex at the given position.
func (m *Mesh) addVertex(p v3.Vec) VertexHandle {
	h := m.vpool.alloc()
	if h == len(m.verts) {
		m.verts = append(m.verts, vertexSlot{})
	}
	m.verts[h] = vertexSlot{pos: p, live: true}
	m.liveVerts++
	return VertexHandle(h)
}

// freeVertex releases a vertex handle for reuse. The caller must have
// already removed every face reference to it.
func (m *Mesh) freeVertex(h VertexHandle) {
	m.verts[h] = vertexSlot{}
	m.vpool.release(int(h))
	m.liveVerts--
	delete(m.vertFaces, h)
}

// addFace allocates a face with the given boundary loop and links it into
// the adjacency indexes. The loop is stored as-is, not copied defensively;
// callers hand over ownership.
func (m *Mesh) addFace(loop []VertexHandle) FaceHandle {
	h := m.fpool.alloc()
	if h == len(m.faces) {
		m.faces = append(m.faces, faceSlot{})
	}
	fh := FaceHandle(h)
	m.faces[h] = faceSlot{loop: loop, live: true}
	m.liveFaces++
	m.linkFace(fh)
	return fh
}

// removeFace unlinks a face and releases its handle.
func (m *Mesh) removeFace(h FaceHandle) {
	m.unlinkFace(h)
	m.faces[h] = faceSlot{}
	m.fpool.release(int(h))
	m.liveFaces--
}

// setFaceLoop atomically replaces a face's boundary loop, keeping the
// adjacency indexes consistent.
func (m *Mesh) setFaceLoop(h FaceHandle, loop []VertexHandle) {
	m.unlinkFace(h)
	m.faces[h].loop = loop
	m.linkFace(h)
}

// linkFace records the face in the edge and vertex incidence indexes.
func (m *Mesh) linkFace(h FaceHandle) {
	loop := m.faces[h].loop
	for _, k := range loopEdges(loop) {
		m.edgeFaces[k] = append(m.edgeFaces[k], h)
	}
	for _, v := range loop {
		m.vertFaces[v] = append(m.vertFaces[v], h)
	}
}

// unlinkFace removes the face from the incidence indexes, pruning edge
// entries that drop to zero incident faces.
func (m *Mesh) unlinkFace(h FaceHandle) {
	loop := m.faces[h].loop
	for _, k := range loopEdges(loop) {
		m.edgeFaces[k] = removeHandle(m.edgeFaces[k], h)
		if len(m.edgeFaces[k]) == 0 {
			delete(m.edgeFaces, k)
		}
	}
	for _, v := range loop {
		m.vertFaces[v] = removeHandle(m.vertFaces[v], h)
		if len(m.vertFaces[v]) == 0 {
			delete(m.vertFaces, v)
		}
	}
}

// removeHandle deletes the first occurrence of h from fs in place.
func removeHandle(fs []FaceHandle, h FaceHandle) []FaceHandle {
	for i, f := range fs {
		if f == h {
			return append(fs[:i], fs[i+1:]...)
		}
	}
	return fs
}

// loopEdges derives the ordered boundary edge keys of a loop.
func loopEdges(loop []VertexHandle) []EdgeKey {
	out := make([]EdgeKey, len(loop))
	for i, v := range loop {
		out[i] = MakeEdgeKey(v, loop[(i+1)%len(loop)])
	}
	return out
}

// ---------------------------------------------------------------------------
// Geometry helpers
// ---------------------------------------------------------------------------

// lerp interpolates linearly between two positions.
func lerp(a, b v3.Vec, t float64) v3.Vec {
	return a.MulScalar(1 - t).Add(b.MulScalar(t))
}

// loopCentroid averages the loop's vertex positions.
func (m *Mesh) loopCentroid(loop []VertexHandle) v3.Vec {
	var c v3.Vec
	for _, v := range loop {
		c = c.Add(m.verts[v].pos)
	}
	return c.DivScalar(float64(len(loop)))
}

// loopNormal computes the unit normal of a (possibly non-planar) loop by
// Newell's method. A degenerate loop yields the zero vector.
func (m *Mesh) loopNormal(loop []VertexHandle) v3.Vec {
	var n v3.Vec
	for i, v := range loop {
		a := m.verts[v].pos
		b := m.verts[loop[(i+1)%len(loop)]].pos
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	if n.Length2() < normalEpsilon {
		return v3.Vec{}
	}
	return n.Normalize()
}

// offsetFrom returns a point moved from p toward target by dist, or p
// itself when the two coincide.
func offsetFrom(p, target v3.Vec, dist float64) v3.Vec {
	d := target.Sub(p)
	if d.Length2() < normalEpsilon {
		return p
	}
	return p.Add(d.Normalize().MulScalar(dist))
}

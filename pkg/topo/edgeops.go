package topo

// SplitEdge inserts one new vertex on the edge at the interpolation
// parameter t (clamped to [0,1], measured from key.A toward key.B) and
// splices it into the boundary loop of every incident face, preserving
// winding. A triangle becomes a quad, a quad a pentagon; no face is
// re-triangulated. Returns the new vertex handle, or InvalidVertex when
// the key does not name a live edge. Non-incident faces are untouched.
func (m *Mesh) SplitEdge(key EdgeKey, t float64) VertexHandle {
	faces := m.edgeFaces[key]
	if len(faces) == 0 || key.degenerate() {
		return InvalidVertex
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	// Plan the spliced loops before mutating anything.
	newLoops := make(map[FaceHandle][]VertexHandle, len(faces))
	for _, f := range faces {
		loop := m.faces[f].loop
		at := -1
		for i, v := range loop {
			w := loop[(i+1)%len(loop)]
			if MakeEdgeKey(v, w) == key {
				at = i
				break
			}
		}
		if at < 0 {
			// Incidence index and loop disagree; refuse to touch the mesh.
			return InvalidVertex
		}
		spliced := make([]VertexHandle, 0, len(loop)+1)
		spliced = append(spliced, loop[:at+1]...)
		spliced = append(spliced, InvalidVertex) // placeholder for the new vertex
		spliced = append(spliced, loop[at+1:]...)
		newLoops[f] = spliced
	}

	nv := m.addVertex(lerp(m.verts[key.A].pos, m.verts[key.B].pos, t))
	for f, loop := range newLoops {
		for i, v := range loop {
			if v == InvalidVertex {
				loop[i] = nv
			}
		}
		m.setFaceLoop(f, loop)
	}
	return nv
}

// CollapseEdge merges the edge's two vertices into one. The lower handle
// survives and takes the midpoint of the two endpoint positions; every
// face boundary referencing the removed vertex is rewritten to the
// survivor, and faces that degenerate below three distinct vertices are
// removed. Returns false, leaving the mesh unchanged, when the key does
// not name a live edge, when a rewritten face would repeat a vertex
// non-consecutively, or when the result would push any edge past two
// incident faces.
func (m *Mesh) CollapseEdge(key EdgeKey) bool {
	if len(m.edgeFaces[key]) == 0 || key.degenerate() {
		return false
	}
	keep, gone := key.A, key.B

	// Plan rewritten loops for every face in the union of the two stars.
	touched := make(map[FaceHandle]bool)
	for _, f := range m.vertFaces[keep] {
		touched[f] = true
	}
	for _, f := range m.vertFaces[gone] {
		touched[f] = true
	}

	rewritten := make(map[FaceHandle][]VertexHandle)
	var doomed []FaceHandle
	for f := range touched {
		loop := rewriteLoop(m.faces[f].loop, gone, keep)
		if len(loop) < 3 {
			doomed = append(doomed, f)
			continue
		}
		if loopRepeats(loop) {
			return false
		}
		rewritten[f] = loop
	}

	if !m.collapseStaysManifold(rewritten, doomed) {
		return false
	}

	// Commit.
	for _, f := range doomed {
		m.removeFace(f)
	}
	for f, loop := range rewritten {
		m.setFaceLoop(f, loop)
	}
	m.verts[keep].pos = lerp(m.verts[keep].pos, m.verts[gone].pos, 0.5)
	m.freeVertex(gone)
	return true
}

// rewriteLoop substitutes from -> to in a boundary loop and squeezes out
// the consecutive (and wraparound) duplicates the substitution creates.
func rewriteLoop(loop []VertexHandle, from, to VertexHandle) []VertexHandle {
	out := make([]VertexHandle, 0, len(loop))
	for _, v := range loop {
		if v == from {
			v = to
		}
		if len(out) > 0 && out[len(out)-1] == v {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// loopRepeats reports whether any vertex occurs twice in the loop.
func loopRepeats(loop []VertexHandle) bool {
	seen := make(map[VertexHandle]bool, len(loop))
	for _, v := range loop {
		if seen[v] {
			return true
		}
		seen[v] = true
	}
	return false
}

// collapseStaysManifold checks that after removing the doomed faces and
// installing the rewritten loops, no edge ends up with more than two
// incident faces. Only edges touched by the changed faces can shift, so
// the check stays local to the collapse star.
func (m *Mesh) collapseStaysManifold(rewritten map[FaceHandle][]VertexHandle, doomed []FaceHandle) bool {
	// Incidence delta per edge: remove the changed faces' old edges,
	// add back the rewritten loops' edges.
	delta := make(map[EdgeKey]int)
	for f := range rewritten {
		for _, k := range loopEdges(m.faces[f].loop) {
			delta[k]--
		}
	}
	for _, f := range doomed {
		for _, k := range loopEdges(m.faces[f].loop) {
			delta[k]--
		}
	}
	for _, loop := range rewritten {
		for _, k := range loopEdges(loop) {
			delta[k]++
		}
	}
	for k, d := range delta {
		if len(m.edgeFaces[k])+d > 2 {
			return false
		}
	}
	return true
}

// LoopCutFromEdge walks quad rings from the start edge, inserting one
// vertex at parameter t on each crossed edge (t measured from the lower
// handle of each edge's canonical key) and splitting every traversed quad
// in two. The walk continues across quads only: it stops at a mesh
// boundary, at any non-quad face, or when it returns to the start edge
// (closed loop). Returns the ordered handles of the inserted vertices; a
// nil result means the start edge borders no quad (or is not live) and
// the mesh was not modified; that is a termination condition, not a failure.
func (m *Mesh) LoopCutFromEdge(start EdgeKey, t float64) []VertexHandle {
	if !m.HasEdge(start) {
		return nil
	}

	type cut struct {
		face  FaceHandle
		entry EdgeKey
		exit  EdgeKey
	}

	visited := make(map[FaceHandle]bool)

	// walk plans cuts in one direction, starting by entering the given
	// face across the start edge. It returns the planned cuts and whether
	// the walk closed back onto the start edge.
	walk := func(first FaceHandle) ([]cut, bool) {
		var cuts []cut
		cur := start
		f := first
		for {
			if f == InvalidFace || visited[f] || len(m.faces[f].loop) != 4 {
				return cuts, false
			}
			visited[f] = true
			exit, ok := quadOppositeEdge(m.faces[f].loop, cur)
			if !ok {
				return cuts, false
			}
			cuts = append(cuts, cut{face: f, entry: cur, exit: exit})
			if exit == start {
				return cuts, true
			}
			cur = exit
			f = m.otherEdgeFace(cur, f)
		}
	}

	var firstFwd FaceHandle = InvalidFace
	var firstBack FaceHandle = InvalidFace
	for _, f := range m.edgeFaces[start] {
		if len(m.faces[f].loop) != 4 {
			continue
		}
		if firstFwd == InvalidFace {
			firstFwd = f
		} else if firstBack == InvalidFace {
			firstBack = f
		}
	}
	if firstFwd == InvalidFace {
		return nil
	}

	forward, closed := walk(firstFwd)
	var backward []cut
	if !closed {
		backward, _ = walk(firstBack)
	}

	// Ring edges ordered along the walk: backward exits reversed, the
	// start edge, then forward exits (dropping a closing repeat).
	var ring []EdgeKey
	for i := len(backward) - 1; i >= 0; i-- {
		ring = append(ring, backward[i].exit)
	}
	ring = append(ring, start)
	for _, c := range forward {
		if c.exit != start {
			ring = append(ring, c.exit)
		}
	}

	// Commit: split each ring edge, then connect the midpoints across
	// every cut quad (a hexagon after its two splits).
	mids := make(map[EdgeKey]VertexHandle, len(ring))
	out := make([]VertexHandle, 0, len(ring))
	for _, e := range ring {
		nv := m.SplitEdge(e, t)
		mids[e] = nv
		out = append(out, nv)
	}
	for _, c := range append(backward, forward...) {
		m.splitFaceBetween(c.face, mids[c.entry], mids[c.exit])
	}
	return out
}

// quadOppositeEdge returns the edge of a quad boundary opposite to entry.
func quadOppositeEdge(loop []VertexHandle, entry EdgeKey) (EdgeKey, bool) {
	for i, v := range loop {
		w := loop[(i+1)%len(loop)]
		if MakeEdgeKey(v, w) == entry {
			a := loop[(i+2)%len(loop)]
			b := loop[(i+3)%len(loop)]
			return MakeEdgeKey(a, b), true
		}
	}
	return EdgeKey{}, false
}

// otherEdgeFace returns the face incident to the edge that is not f, or
// InvalidFace when the edge is a boundary.
func (m *Mesh) otherEdgeFace(k EdgeKey, f FaceHandle) FaceHandle {
	for _, g := range m.edgeFaces[k] {
		if g != f {
			return g
		}
	}
	return InvalidFace
}

// splitFaceBetween splits one face into two along the chord va-vb. The
// portion from va to vb keeps the original handle; the rest becomes a new
// face. Both loop fragments retain the original winding.
func (m *Mesh) splitFaceBetween(f FaceHandle, va, vb VertexHandle) FaceHandle {
	loop := m.faces[f].loop
	ia, ib := -1, -1
	for i, v := range loop {
		if v == va {
			ia = i
		}
		if v == vb {
			ib = i
		}
	}
	if ia < 0 || ib < 0 || ia == ib {
		return InvalidFace
	}

	n := len(loop)
	var half1, half2 []VertexHandle
	for i := ia; ; i = (i + 1) % n {
		half1 = append(half1, loop[i])
		if i == ib {
			break
		}
	}
	for i := ib; ; i = (i + 1) % n {
		half2 = append(half2, loop[i])
		if i == ia {
			break
		}
	}
	if len(half1) < 3 || len(half2) < 3 {
		return InvalidFace
	}

	m.setFaceLoop(f, half1)
	return m.addFace(half2)
}

// BridgeEdges connects two boundary edges, identified by their positions
// in the current Edges enumeration, with two new triangular faces closing
// the gap between them. The triangles traverse each boundary edge opposite
// to its existing face, so winding stays consistent. Returns false, with
// no mutation, when either index is out of range, either edge already has
// two incident faces, or the edges share a vertex. On success the face
// count increases by exactly two.
func (m *Mesh) BridgeEdges(edgeIndexA, edgeIndexB int) bool {
	edges := m.Edges()
	if edgeIndexA < 0 || edgeIndexA >= len(edges) ||
		edgeIndexB < 0 || edgeIndexB >= len(edges) ||
		edgeIndexA == edgeIndexB {
		return false
	}
	ea, eb := edges[edgeIndexA], edges[edgeIndexB]
	if len(m.edgeFaces[ea]) != 1 || len(m.edgeFaces[eb]) != 1 {
		return false
	}
	if ea.A == eb.A || ea.A == eb.B || ea.B == eb.A || ea.B == eb.B {
		return false
	}

	u0, u1, ok := m.faceTraversal(m.edgeFaces[ea][0], ea)
	if !ok {
		return false
	}
	w0, w1, ok := m.faceTraversal(m.edgeFaces[eb][0], eb)
	if !ok {
		return false
	}

	// The bridge quad [u1, u0, w1, w0] traverses both boundary edges
	// opposite to their existing faces; emit it as two triangles.
	m.addFace([]VertexHandle{u1, u0, w1})
	m.addFace([]VertexHandle{u1, w1, w0})
	return true
}

// faceTraversal reports the direction (from, to) in which the face's
// boundary loop traverses the edge.
func (m *Mesh) faceTraversal(f FaceHandle, k EdgeKey) (VertexHandle, VertexHandle, bool) {
	loop := m.faces[f].loop
	for i, v := range loop {
		w := loop[(i+1)%len(loop)]
		if MakeEdgeKey(v, w) == k {
			return v, w, true
		}
	}
	return InvalidVertex, InvalidVertex, false
}

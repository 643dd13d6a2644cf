package topo

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// maxInset caps the inset parameter below the point where the inner loop
// collapses onto the centroid.
const maxInset = 0.95

// ExtrudeFaces offsets the selected faces along their normals by distance
// and reconnects them to the rest of the mesh with a ring of side-wall
// quads. An edge of the selection is internal when both of its incident
// faces are selected; only the remaining (boundary) edges grow walls, so
// adjacent selected faces share their offset vertices instead of
// duplicating them. Vertices used by boundary edges are duplicated;
// vertices entirely interior to the selection are offset in place, which
// keeps the result free of orphans. Each original face is rewritten to the
// offset boundary and becomes the cap.
//
// Returns every face handle the operation wrote (the new side walls plus
// each cap), or nil, with no mutation, when the selection is empty,
// repeats a handle, or names a dead face.
func (m *Mesh) ExtrudeFaces(faceHandles []FaceHandle, distance float64) []FaceHandle {
	sel := m.checkSelection(faceHandles)
	if sel == nil {
		return nil
	}

	// Classify the selection's edges: internal edges sit between two
	// selected faces and must not grow a wall.
	selEdgeCount := make(map[EdgeKey]int)
	for _, f := range faceHandles {
		for _, k := range loopEdges(m.faces[f].loop) {
			selEdgeCount[k]++
		}
	}
	wallEdge := func(k EdgeKey) bool { return selEdgeCount[k] == 1 }

	// A vertex on any wall edge needs a duplicate; the rest move in place.
	needsDup := make(map[VertexHandle]bool)
	for k, n := range selEdgeCount {
		if n == 1 {
			needsDup[k.A] = true
			needsDup[k.B] = true
		}
	}

	// Offset per vertex: the average normal of the selected faces using
	// it. order keeps vertex traversal (and so handle allocation)
	// deterministic for a given selection.
	offsets := make(map[VertexHandle]v3.Vec)
	var order []VertexHandle
	for _, f := range faceHandles {
		n := m.loopNormal(m.faces[f].loop)
		for _, v := range m.faces[f].loop {
			if _, ok := offsets[v]; !ok {
				order = append(order, v)
			}
			offsets[v] = offsets[v].Add(n)
		}
	}
	for v, sum := range offsets {
		if sum.Length2() < normalEpsilon {
			offsets[v] = v3.Vec{}
			continue
		}
		offsets[v] = sum.Normalize().MulScalar(distance)
	}

	// Plan wall edges against the original topology, keeping each
	// selected face's traversal direction.
	type wall struct{ a, b VertexHandle }
	var walls []wall
	for _, f := range faceHandles {
		loop := m.faces[f].loop
		for i, a := range loop {
			b := loop[(i+1)%len(loop)]
			if wallEdge(MakeEdgeKey(a, b)) {
				walls = append(walls, wall{a: a, b: b})
			}
		}
	}

	// Commit: create duplicates, move interior vertices, rewrite caps,
	// then add the walls.
	mapped := make(map[VertexHandle]VertexHandle, len(order))
	for _, v := range order {
		if needsDup[v] {
			mapped[v] = m.addVertex(m.verts[v].pos.Add(offsets[v]))
		} else {
			m.verts[v].pos = m.verts[v].pos.Add(offsets[v])
			mapped[v] = v
		}
	}

	out := make([]FaceHandle, 0, len(faceHandles)+len(walls))
	for _, f := range faceHandles {
		loop := m.faces[f].loop
		capLoop := make([]VertexHandle, len(loop))
		for i, v := range loop {
			capLoop[i] = mapped[v]
		}
		m.setFaceLoop(f, capLoop)
		out = append(out, f)
	}
	for _, w := range walls {
		out = append(out, m.addFace([]VertexHandle{w.a, w.b, mapped[w.b], mapped[w.a]}))
	}
	return out
}

// InsetFaces shrinks each selected face toward its own centroid by amount
// (clamped to [0, 0.95]) and fills the band between the old and new
// boundaries with a ring of quads. The original face handle is rewritten
// to the inner loop; the ring quads take over the outer edges with the
// original winding, so shared edges between two selected faces end up
// bordered by the two rings and stay manifold. Returns the new ring face
// handles, or nil with no mutation for an invalid selection.
func (m *Mesh) InsetFaces(faceHandles []FaceHandle, amount float64) []FaceHandle {
	sel := m.checkSelection(faceHandles)
	if sel == nil {
		return nil
	}
	if amount < 0 {
		amount = 0
	} else if amount > maxInset {
		amount = maxInset
	}

	var out []FaceHandle
	for _, f := range faceHandles {
		loop := m.faces[f].loop
		c := m.loopCentroid(loop)

		inner := make([]VertexHandle, len(loop))
		for i, v := range loop {
			inner[i] = m.addVertex(lerp(m.verts[v].pos, c, amount))
		}
		for i, a := range loop {
			j := (i + 1) % len(loop)
			b := loop[j]
			out = append(out, m.addFace([]VertexHandle{a, b, inner[j], inner[i]}))
		}
		m.setFaceLoop(f, inner)
	}
	return out
}

// BevelEdges replaces each selected edge, identified by its position in
// the current Edges enumeration, with a strip of width amount. For each
// edge the operator inserts two offset vertices into each adjacent face
// (moved from the edge endpoints toward that face's centroid), fills the
// opened gap with a strip quad, and closes the two corners with triangles
// fanned from the surviving original endpoints. Edges sharing a vertex are
// beveled one after another; each step leaves the mesh valid, so the
// shared corner accumulates stacked corner triangles rather than a mitred
// profile. Returns the new face handles, or nil with no mutation when any
// index is out of range, repeated, or names an edge without exactly two
// incident faces.
func (m *Mesh) BevelEdges(edgeIndices []int, amount float64) []FaceHandle {
	edges := m.Edges()
	seen := make(map[int]bool, len(edgeIndices))
	keys := make([]EdgeKey, 0, len(edgeIndices))
	for _, idx := range edgeIndices {
		if idx < 0 || idx >= len(edges) || seen[idx] {
			return nil
		}
		seen[idx] = true
		k := edges[idx]
		if len(m.edgeFaces[k]) != 2 {
			return nil
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}

	var out []FaceHandle
	for _, k := range keys {
		out = append(out, m.bevelOne(k, amount)...)
	}
	return out
}

// bevelOne bevels a single interior edge. The edge's endpoints survive;
// beveling only inserts vertices, so other selected edge keys remain live
// for subsequent bevels.
func (m *Mesh) bevelOne(k EdgeKey, amount float64) []FaceHandle {
	f1 := m.edgeFaces[k][0]
	f2 := m.edgeFaces[k][1]

	// p->q is f1's traversal of the edge; f2 traverses q->p.
	p, q, ok := m.faceTraversal(f1, k)
	if !ok {
		return nil
	}

	c1 := m.loopCentroid(m.faces[f1].loop)
	c2 := m.loopCentroid(m.faces[f2].loop)

	p1 := m.addVertex(offsetFrom(m.verts[p].pos, c1, amount))
	q1 := m.addVertex(offsetFrom(m.verts[q].pos, c1, amount))
	p2 := m.addVertex(offsetFrom(m.verts[p].pos, c2, amount))
	q2 := m.addVertex(offsetFrom(m.verts[q].pos, c2, amount))

	// Widen both faces: f1 gains p1,q1 between p and q; f2 gains q2,p2
	// between q and p. The old edge key drops out of both loops and is
	// pruned from the enumeration.
	m.setFaceLoop(f1, insertAfter(m.faces[f1].loop, p, p1, q1))
	m.setFaceLoop(f2, insertAfter(m.faces[f2].loop, q, q2, p2))

	strip := m.addFace([]VertexHandle{q1, p1, p2, q2})
	cornerP := m.addFace([]VertexHandle{p, p2, p1})
	cornerQ := m.addFace([]VertexHandle{q, q1, q2})
	return []FaceHandle{strip, cornerP, cornerQ}
}

// insertAfter returns a copy of loop with the extra vertices spliced in
// directly after the anchor vertex.
func insertAfter(loop []VertexHandle, anchor VertexHandle, extra ...VertexHandle) []VertexHandle {
	out := make([]VertexHandle, 0, len(loop)+len(extra))
	for _, v := range loop {
		out = append(out, v)
		if v == anchor {
			out = append(out, extra...)
		}
	}
	return out
}

// checkSelection validates a face selection: non-empty, no repeats, all
// live. Returns the selection as a set, or nil when invalid.
func (m *Mesh) checkSelection(faceHandles []FaceHandle) map[FaceHandle]bool {
	if len(faceHandles) == 0 {
		return nil
	}
	sel := make(map[FaceHandle]bool, len(faceHandles))
	for _, f := range faceHandles {
		if !m.faceLive(f) || sel[f] {
			return nil
		}
		sel[f] = true
	}
	return sel
}

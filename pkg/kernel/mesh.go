package kernel

import "math"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // which edit session part this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// ComputeNormals fills Normals with per-vertex normals: the normalized sum
// of the face normals of every triangle using the vertex. Vertices not
// referenced by any triangle get a zero normal. Any existing Normals
// content is replaced.
func (m *Mesh) ComputeNormals() {
	n := m.VertexCount()
	acc := make([]float64, n*3)

	for t := 0; t+2 < len(m.Indices); t += 3 {
		i0, i1, i2 := int(m.Indices[t]), int(m.Indices[t+1]), int(m.Indices[t+2])
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		ax, ay, az := m.vertex(i0)
		bx, by, bz := m.vertex(i1)
		cx, cy, cz := m.vertex(i2)

		// Cross product of the two edge vectors; magnitude weights the
		// contribution by triangle area.
		ux, uy, uz := bx-ax, by-ay, bz-az
		vx, vy, vz := cx-ax, cy-ay, cz-az
		fx := uy*vz - uz*vy
		fy := uz*vx - ux*vz
		fz := ux*vy - uy*vx

		for _, i := range []int{i0, i1, i2} {
			acc[i*3] += fx
			acc[i*3+1] += fy
			acc[i*3+2] += fz
		}
	}

	m.Normals = make([]float32, n*3)
	for i := 0; i < n; i++ {
		x, y, z := acc[i*3], acc[i*3+1], acc[i*3+2]
		l := math.Sqrt(x*x + y*y + z*z)
		if l == 0 {
			continue
		}
		m.Normals[i*3] = float32(x / l)
		m.Normals[i*3+1] = float32(y / l)
		m.Normals[i*3+2] = float32(z / l)
	}
}

func (m *Mesh) vertex(i int) (float64, float64, float64) {
	return float64(m.Vertices[i*3]), float64(m.Vertices[i*3+1]), float64(m.Vertices[i*3+2])
}

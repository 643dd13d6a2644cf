// Package tessellate converts between kernel triangle meshes and editable
// topology. Kernel solids are flattened and welded into connected topology
// meshes, and edited topology is flattened back into render buffers.
package tessellate

import (
	"github.com/chazu/whittle/pkg/kernel"
	"github.com/chazu/whittle/pkg/topo"
)

// Weld folds a kernel triangle soup into a connected topology mesh by
// merging vertices with identical positions. Marching cubes emits three
// fresh vertices per triangle; welding restores shared edges so the
// topology operators have something to work with. Triangles that collapse
// under welding are dropped.
func Weld(km *kernel.Mesh) (*topo.Mesh, error) {
	type key [3]float32
	index := make(map[key]int)
	remap := make([]int, km.VertexCount())
	var positions []float64

	for i := 0; i < km.VertexCount(); i++ {
		k := key{km.Vertices[i*3], km.Vertices[i*3+1], km.Vertices[i*3+2]}
		if j, ok := index[k]; ok {
			remap[i] = j
			continue
		}
		j := len(positions) / 3
		index[k] = j
		remap[i] = j
		positions = append(positions, float64(k[0]), float64(k[1]), float64(k[2]))
	}

	var indices []int
	for t := 0; t+2 < len(km.Indices); t += 3 {
		a := remap[km.Indices[t]]
		b := remap[km.Indices[t+1]]
		c := remap[km.Indices[t+2]]
		if a == b || b == c || a == c {
			continue
		}
		indices = append(indices, a, b, c)
	}
	return topo.Construct(positions, indices)
}

// FromSolid flattens a kernel solid into triangles and welds them into a
// topology mesh.
func FromSolid(kern kernel.Kernel, s kernel.Solid) (*topo.Mesh, error) {
	km, err := kern.ToMesh(s)
	if err != nil {
		return nil, err
	}
	return Weld(km)
}

// RenderMesh flattens a topology mesh back into float32 render buffers
// with computed vertex normals. Faces are fan-triangulated.
func RenderMesh(m *topo.Mesh, name string) *kernel.Mesh {
	positions, indices := m.Buffers()

	km := &kernel.Mesh{
		Vertices: make([]float32, len(positions)),
		Indices:  make([]uint32, len(indices)),
		Name:     name,
	}
	for i, p := range positions {
		km.Vertices[i] = float32(p)
	}
	for i, idx := range indices {
		km.Indices[i] = uint32(idx)
	}
	km.ComputeNormals()
	return km
}

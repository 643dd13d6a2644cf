// Package topo implements an editable polygon mesh topology kernel.
// A Mesh is constructed from flat vertex/index buffers, mutated in place
// by structural editing operators (split, collapse, loop cut, bridge,
// extrude, inset, bevel), and flattened back to buffers for rendering.
// Every operator either commits a self-consistent mutation or fails
// without touching the mesh; ValidateTopology certifies the result.
package topo

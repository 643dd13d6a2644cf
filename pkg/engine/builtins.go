package engine

import (
	"fmt"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/whittle/pkg/kernel"
	"github.com/chazu/whittle/pkg/tessellate"
	"github.com/chazu/whittle/pkg/topo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms Whittle Lisp source code before passing it
// to zygomys. It performs two transformations:
//
//  1. Kebab-case to underscore: split-edge -> split_edge
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  2. Comment conversion: ; line comments become // comments, which is
//     what zygomys actually parses.
//
// Both transformations respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/8)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Hyphen between identifier characters is part of a kebab name,
		// not a minus operator.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Session state
// ---------------------------------------------------------------------------

// session holds the mesh being edited by one evaluation. Primitive
// builtins replace it; operator builtins mutate it in place.
type session struct {
	mesh *topo.Mesh
	name string
}

// requireMesh returns the session mesh, or an error naming the builtin
// that needed one.
func (s *session) requireMesh(builtin string) (*topo.Mesh, error) {
	if s.mesh == nil {
		return nil, fmt.Errorf("%s: no mesh; create one with box, cylinder, sphere, or grid first", builtin)
	}
	return s.mesh, nil
}

// sexpMesh wraps the session mesh so primitives have a printable result.
type sexpMesh struct {
	name string
	m    *topo.Mesh
}

func (sm *sexpMesh) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh %q v=%d f=%d)", sm.name, sm.m.VertexCount(), sm.m.FaceCount())
}
func (sm *sexpMesh) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer handle or index from a Sexp.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// intArgs extracts a run of integer arguments.
func intArgs(args []zygo.Sexp) ([]int, error) {
	out := make([]int, 0, len(args))
	for i, a := range args {
		n, err := toInt(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// intArray converts integer results back into a zygomys array.
func intArray(vals []int) *zygo.SexpArray {
	arr := make([]zygo.Sexp, len(vals))
	for i, v := range vals {
		arr[i] = &zygo.SexpInt{Val: int64(v)}
	}
	return &zygo.SexpArray{Val: arr}
}

// ---------------------------------------------------------------------------
// Mesh construction
// ---------------------------------------------------------------------------

// gridMesh builds a flat (nx x ny)-cell quad grid in the z=0 plane with
// the given cell size. The all-quad start mesh is what loop cuts want.
func gridMesh(nx, ny int, cell float64) (*topo.Mesh, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("grid needs at least 1x1 cells, got %dx%d", nx, ny)
	}
	if cell <= 0 {
		return nil, fmt.Errorf("grid cell size must be positive, got %g", cell)
	}

	cols := nx + 1
	positions := make([]float64, 0, cols*(ny+1)*3)
	for iy := 0; iy <= ny; iy++ {
		for ix := 0; ix <= nx; ix++ {
			positions = append(positions, float64(ix)*cell, float64(iy)*cell, 0)
		}
	}

	loops := make([][]int, 0, nx*ny)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			v := iy*cols + ix
			loops = append(loops, []int{v, v + 1, v + 1 + cols, v + cols})
		}
	}
	return topo.ConstructPolygons(positions, loops)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// defaultSegments is passed to kernel primitives that take a tessellation
// hint.
const defaultSegments = 32

// registerBuiltins installs the Whittle DSL builtins into a zygomys
// environment. Primitive builtins replace the session mesh; operator
// builtins mutate it and return their handle results.
//
// Hyphenated names are registered in underscore form; preprocessSource
// rewrites the kebab spelling before evaluation.
func registerBuiltins(env *zygo.Zlisp, s *session, kern kernel.Kernel) {

	adopt := func(name string, m *topo.Mesh) zygo.Sexp {
		s.mesh = m
		s.name = name
		return &sexpMesh{name: name, m: m}
	}

	requireKernel := func(builtin string) (kernel.Kernel, error) {
		if kern == nil {
			return nil, fmt.Errorf("%s: no geometry kernel configured", builtin)
		}
		return kern, nil
	}

	// -----------------------------------------------------------------------
	// (box x y z)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		k, err := requireKernel("box")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("box requires x y z dimensions, got %d arguments", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: z: %w", err)
		}

		m, err := tessellate.FromSolid(k, k.Box(x, y, z))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return adopt("box", m), nil
	})

	// -----------------------------------------------------------------------
	// (cylinder height radius)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		k, err := requireKernel("cylinder")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("cylinder requires height and radius, got %d arguments", len(args))
		}
		h, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		r, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}

		m, err := tessellate.FromSolid(k, k.Cylinder(h, r, defaultSegments))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return adopt("cylinder", m), nil
	})

	// -----------------------------------------------------------------------
	// (sphere radius)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		k, err := requireKernel("sphere")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("sphere requires a radius, got %d arguments", len(args))
		}
		r, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}

		m, err := tessellate.FromSolid(k, k.Sphere(r, defaultSegments))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return adopt("sphere", m), nil
	})

	// -----------------------------------------------------------------------
	// (grid nx ny)  or  (grid nx ny cell-size)
	// -----------------------------------------------------------------------
	env.AddFunction("grid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 && len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("grid requires nx ny [cell-size], got %d arguments", len(args))
		}
		nx, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid: nx: %w", err)
		}
		ny, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid: ny: %w", err)
		}
		cell := 1.0
		if len(args) == 3 {
			cell, err = toFloat64(args[2])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("grid: cell-size: %w", err)
			}
		}

		m, err := gridMesh(nx, ny, cell)
		if err != nil {
			return zygo.SexpNull, err
		}
		return adopt("grid", m), nil
	})

	// -----------------------------------------------------------------------
	// (split-edge a b t) -> new vertex handle
	// -----------------------------------------------------------------------
	env.AddFunction("split_edge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		m, err := s.requireMesh("split-edge")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("split-edge requires endpoints and a parameter, got %d arguments", len(args))
		}
		a, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split-edge: a: %w", err)
		}
		b, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split-edge: b: %w", err)
		}
		t, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split-edge: t: %w", err)
		}

		nv := m.SplitEdge(topo.MakeEdgeKey(topo.VertexHandle(a), topo.VertexHandle(b)), t)
		if nv == topo.InvalidVertex {
			return zygo.SexpNull, fmt.Errorf("split-edge: %d-%d is not a live edge", a, b)
		}
		return &zygo.SexpInt{Val: int64(nv)}, nil
	})

	// -----------------------------------------------------------------------
	// (collapse-edge a b) -> true/false
	// -----------------------------------------------------------------------
	env.AddFunction("collapse_edge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		m, err := s.requireMesh("collapse-edge")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("collapse-edge requires two endpoints, got %d arguments", len(args))
		}
		a, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("collapse-edge: a: %w", err)
		}
		b, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("collapse-edge: b: %w", err)
		}

		ok := m.CollapseEdge(topo.MakeEdgeKey(topo.VertexHandle(a), topo.VertexHandle(b)))
		return &zygo.SexpBool{Val: ok}, nil
	})

	// -----------------------------------------------------------------------
	// (loop-cut a b t) -> array of inserted vertex handles
	// -----------------------------------------------------------------------
	env.AddFunction("loop_cut", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		m, err := s.requireMesh("loop-cut")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("loop-cut requires start endpoints and a parameter, got %d arguments", len(args))
		}
		a, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("loop-cut: a: %w", err)
		}
		b, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("loop-cut: b: %w", err)
		}
		t, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("loop-cut: t: %w", err)
		}

		ring := m.LoopCutFromEdge(topo.MakeEdgeKey(topo.VertexHandle(a), topo.VertexHandle(b)), t)
		vals := make([]int, len(ring))
		for i, v := range ring {
			vals[i] = int(v)
		}
		return intArray(vals), nil
	})

	// -----------------------------------------------------------------------
	// (bridge i j) -> true/false, edge snapshot indices
	// -----------------------------------------------------------------------
	env.AddFunction("bridge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		m, err := s.requireMesh("bridge")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("bridge requires two edge indices, got %d arguments", len(args))
		}
		i, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bridge: i: %w", err)
		}
		j, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bridge: j: %w", err)
		}

		return &zygo.SexpBool{Val: m.BridgeEdges(i, j)}, nil
	})

	// -----------------------------------------------------------------------
	// (extrude distance face...) -> array of written face handles
	// -----------------------------------------------------------------------
	env.AddFunction("extrude", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		m, err := s.requireMesh("extrude")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("extrude requires a distance and at least one face handle")
		}
		dist, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: distance: %w", err)
		}
		ints, err := intArgs(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		faces := make([]topo.FaceHandle, len(ints))
		for i, n := range ints {
			faces[i] = topo.FaceHandle(n)
		}

		out := m.ExtrudeFaces(faces, dist)
		if out == nil {
			return zygo.SexpNull, fmt.Errorf("extrude: invalid face selection %v", ints)
		}
		vals := make([]int, len(out))
		for i, f := range out {
			vals[i] = int(f)
		}
		return intArray(vals), nil
	})

	// -----------------------------------------------------------------------
	// (inset amount face...) -> array of ring face handles
	// -----------------------------------------------------------------------
	env.AddFunction("inset", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		m, err := s.requireMesh("inset")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("inset requires an amount and at least one face handle")
		}
		amount, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("inset: amount: %w", err)
		}
		ints, err := intArgs(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("inset: %w", err)
		}
		faces := make([]topo.FaceHandle, len(ints))
		for i, n := range ints {
			faces[i] = topo.FaceHandle(n)
		}

		out := m.InsetFaces(faces, amount)
		if out == nil {
			return zygo.SexpNull, fmt.Errorf("inset: invalid face selection %v", ints)
		}
		vals := make([]int, len(out))
		for i, f := range out {
			vals[i] = int(f)
		}
		return intArray(vals), nil
	})

	// -----------------------------------------------------------------------
	// (bevel amount edge-index...) -> array of new face handles
	// -----------------------------------------------------------------------
	env.AddFunction("bevel", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		m, err := s.requireMesh("bevel")
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("bevel requires an amount and at least one edge index")
		}
		amount, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bevel: amount: %w", err)
		}
		indices, err := intArgs(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bevel: %w", err)
		}

		out := m.BevelEdges(indices, amount)
		if out == nil {
			return zygo.SexpNull, fmt.Errorf("bevel: invalid edge selection %v (interior edges only)", indices)
		}
		vals := make([]int, len(out))
		for i, f := range out {
			vals[i] = int(f)
		}
		return intArray(vals), nil
	})

	// -----------------------------------------------------------------------
	// (validate) -> array of issue strings
	// -----------------------------------------------------------------------
	env.AddFunction("validate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		m, err := s.requireMesh("validate")
		if err != nil {
			return zygo.SexpNull, err
		}

		report := m.ValidateTopology()
		arr := make([]zygo.Sexp, len(report.Issues))
		for i, issue := range report.Issues {
			arr[i] = &zygo.SexpStr{S: issue.String()}
		}
		return &zygo.SexpArray{Val: arr}, nil
	})
}

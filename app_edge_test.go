package main

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// 1. Empty editor: empty string -> no mesh, no errors.
//    (TestE2EEmptySource already exists; this verifies additional invariants.)
// ---------------------------------------------------------------------------

func TestE2EEmptySourceExtended(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("")

	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors for empty source, got %d", len(result.Errors))
	}
	if result.Mesh != nil {
		t.Error("expected no mesh for empty source")
	}
	// Ensure slices are non-nil (JSON should serialize as [] not null).
	if result.Errors == nil {
		t.Error("Errors should be non-nil empty slice, got nil")
	}
	if result.Issues == nil {
		t.Error("Issues should be non-nil empty slice, got nil")
	}
}

func TestE2EWhitespaceOnly(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("   \n\t\n   ")

	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors for whitespace source, got %d", len(result.Errors))
	}
	if result.Mesh != nil {
		t.Error("expected no mesh for whitespace source")
	}
}

// ---------------------------------------------------------------------------
// 2. Syntax errors: unmatched parens -> eval error with a useful message,
//    never a fatal error, never a mesh.
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := NewApp()

	// Put valid code on line 1, broken code on line 2 so line info is meaningful.
	source := "(+ 1 2)\n(grid 2"
	result := app.Evaluate(source)

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	if result.Mesh != nil {
		t.Error("expected no mesh on syntax error")
	}

	e := result.Errors[0]
	if e.Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	t.Logf("syntax error: line=%d, col=%d, message=%q", e.Line, e.Col, e.Message)
}

func TestE2ESyntaxErrorSingleLineMissingParen(t *testing.T) {
	app := NewApp()

	result := app.Evaluate("(+ 1 2")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval error for missing closing paren")
	}
	if result.Mesh != nil {
		t.Error("expected no mesh on syntax error")
	}
}

// ---------------------------------------------------------------------------
// 3. Edit operators without a mesh -> eval error naming the problem.
// ---------------------------------------------------------------------------

func TestE2EEditWithoutMesh(t *testing.T) {
	app := NewApp()

	sources := []string{
		"(split-edge 0 1 0.5)",
		"(collapse-edge 0 1)",
		"(loop-cut 0 1 0.5)",
		"(extrude 1.0 0)",
		"(validate)",
	}

	for _, src := range sources {
		result := app.Evaluate(src)
		if len(result.Errors) == 0 {
			t.Errorf("%s: expected eval error without a mesh", src)
			continue
		}
		if !strings.Contains(result.Errors[0].Message, "no mesh") {
			t.Errorf("%s: expected 'no mesh' in message, got %q", src, result.Errors[0].Message)
		}
	}
}

// ---------------------------------------------------------------------------
// 4. Operator failures: dead edges and bad selections surface as eval
//    errors, and the partial mesh is not returned.
// ---------------------------------------------------------------------------

func TestE2EDeadEdgeOperation(t *testing.T) {
	app := NewApp()

	// (0-3) is the diagonal of the single quad, not a live edge.
	result := app.Evaluate("(grid 1 1)\n(split-edge 0 3 0.5)")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval error for dead edge")
	}
	if !strings.Contains(result.Errors[0].Message, "not a live edge") {
		t.Errorf("expected 'not a live edge' in message, got %q", result.Errors[0].Message)
	}
	if result.Mesh != nil {
		t.Error("expected no mesh after operator failure")
	}
}

func TestE2EBadFaceSelection(t *testing.T) {
	app := NewApp()

	result := app.Evaluate("(grid 1 1)\n(extrude 1.0 0 0)")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval error for repeated face selection")
	}
	if result.Mesh != nil {
		t.Error("expected no mesh after operator failure")
	}
}

// ---------------------------------------------------------------------------
// 5. Bad primitive parameters -> eval error.
// ---------------------------------------------------------------------------

func TestE2EZeroDimensionGrid(t *testing.T) {
	app := NewApp()

	for _, src := range []string{"(grid 0 3)", "(grid 3 0)", "(grid -1 2)"} {
		result := app.Evaluate(src)
		if len(result.Errors) == 0 {
			t.Errorf("%s: expected eval error for non-positive grid size", src)
		}
	}
}

func TestE2ENegativeCellSize(t *testing.T) {
	app := NewApp()

	result := app.Evaluate("(grid 2 2 -1.0)")
	if len(result.Errors) == 0 {
		t.Fatal("expected eval error for negative cell size")
	}
}

// ---------------------------------------------------------------------------
// 6. Rapid re-evaluation: the editor fires on every keystroke. Sequential
//    evaluations must stay deterministic and never leak state between runs.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluation(t *testing.T) {
	app := NewApp()

	for i := 0; i < 20; i++ {
		result := app.Evaluate("(grid 2 1)")
		if len(result.Errors) > 0 {
			t.Fatalf("iteration %d: unexpected errors: %v", i, result.Errors)
		}
		if result.Mesh == nil {
			t.Fatalf("iteration %d: expected a mesh", i)
		}
		if len(result.Mesh.Vertices) != 18 {
			t.Fatalf("iteration %d: expected 18 vertex floats, got %d",
				i, len(result.Mesh.Vertices))
		}
	}
}

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	app := NewApp()

	valid := "(grid 1 1)"
	broken := "(grid 1"

	for i := 0; i < 10; i++ {
		result := app.Evaluate(valid)
		if len(result.Errors) > 0 || result.Mesh == nil {
			t.Fatalf("iteration %d: valid source failed: %v", i, result.Errors)
		}

		result = app.Evaluate(broken)
		if len(result.Errors) == 0 {
			t.Fatalf("iteration %d: broken source produced no errors", i)
		}
		if result.Mesh != nil {
			t.Fatalf("iteration %d: broken source produced a mesh", i)
		}
	}
}

// ---------------------------------------------------------------------------
// 7. Comment handling: comment-only sources are valid no-ops, and comments
//    never interfere with the operator names around them.
// ---------------------------------------------------------------------------

func TestE2ECommentsOnly(t *testing.T) {
	app := NewApp()

	source := "; a table leg, one day\n;; nothing here yet\n"
	result := app.Evaluate(source)

	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors for comment-only source, got %v", result.Errors)
	}
	if result.Mesh != nil {
		t.Error("expected no mesh for comment-only source")
	}
}

func TestE2ECommentsBetweenOperations(t *testing.T) {
	app := NewApp()

	source := "; start with a sheet\n(grid 2 1)\n; split-edge comes later\n(loop-cut 1 4 0.5)\n"
	result := app.Evaluate(source)

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Mesh == nil {
		t.Fatal("expected a mesh")
	}
	// Loop cut across the two-quad strip: 9 vertices, 4 quads.
	if len(result.Mesh.Vertices) != 27 {
		t.Errorf("expected 27 vertex floats, got %d", len(result.Mesh.Vertices))
	}
	if len(result.Mesh.Indices) != 24 {
		t.Errorf("expected 24 indices, got %d", len(result.Mesh.Indices))
	}
}

// ---------------------------------------------------------------------------
// 8. Arithmetic in operator arguments: zygomys evaluates argument
//    expressions before the builtin sees them.
// ---------------------------------------------------------------------------

func TestE2ENestedArithmetic(t *testing.T) {
	app := NewApp()

	result := app.Evaluate("(grid (+ 1 1) (- 3 2))")

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Mesh == nil {
		t.Fatal("expected a mesh")
	}
	// Same as (grid 2 1): 6 vertices, 2 quads.
	if len(result.Mesh.Vertices) != 18 {
		t.Errorf("expected 18 vertex floats, got %d", len(result.Mesh.Vertices))
	}
	if len(result.Mesh.Indices) != 12 {
		t.Errorf("expected 12 indices, got %d", len(result.Mesh.Indices))
	}
}

// ---------------------------------------------------------------------------
// 9. Chained edits stay clean: operator sequences that succeed must leave
//    the mesh free of error-severity findings.
// ---------------------------------------------------------------------------

func TestE2ECollapseToTriangle(t *testing.T) {
	app := NewApp()

	result := app.Evaluate("(grid 1 1)\n(collapse-edge 0 1)")

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Mesh == nil {
		t.Fatal("expected a mesh")
	}
	// The quad degenerates to a single triangle.
	if len(result.Mesh.Vertices) != 9 {
		t.Errorf("expected 9 vertex floats, got %d", len(result.Mesh.Vertices))
	}
	if len(result.Mesh.Indices) != 3 {
		t.Errorf("expected 3 indices, got %d", len(result.Mesh.Indices))
	}
	for _, i := range result.Issues {
		if i.Severity == "error" {
			t.Errorf("unexpected topology error: [%s] %s", i.Kind, i.Message)
		}
	}
}

func TestE2ESplitThenExtrude(t *testing.T) {
	app := NewApp()

	result := app.Evaluate("(grid 1 1)\n(split-edge 0 1 0.25)\n(extrude 1.0 0)")

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Mesh == nil {
		t.Fatal("expected a mesh")
	}
	for _, i := range result.Issues {
		if i.Severity == "error" {
			t.Errorf("unexpected topology error: [%s] %s", i.Kind, i.Message)
		}
	}
}

// ---------------------------------------------------------------------------
// 10. Scale: a large grid should evaluate without errors and produce
//     consistent buffer sizes.
// ---------------------------------------------------------------------------

func TestE2ELargeGrid(t *testing.T) {
	app := NewApp()

	result := app.Evaluate("(grid 20 20)")

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Mesh == nil {
		t.Fatal("expected a mesh")
	}
	// 21x21 vertices, 400 quads fan-triangulated to 800 triangles.
	if len(result.Mesh.Vertices) != 21*21*3 {
		t.Errorf("expected %d vertex floats, got %d", 21*21*3, len(result.Mesh.Vertices))
	}
	if len(result.Mesh.Indices) != 800*3 {
		t.Errorf("expected %d indices, got %d", 800*3, len(result.Mesh.Indices))
	}
	if len(result.Mesh.Normals) != len(result.Mesh.Vertices) {
		t.Errorf("normals length %d does not match vertices length %d",
			len(result.Mesh.Normals), len(result.Mesh.Vertices))
	}
}

// ---------------------------------------------------------------------------
// 11. Color assignment is stable across evaluations of the same source.
// ---------------------------------------------------------------------------

func TestE2EColorStable(t *testing.T) {
	app := NewApp()

	first := app.Evaluate("(grid 2 2)")
	second := app.Evaluate("(grid 2 2)")

	if first.Mesh == nil || second.Mesh == nil {
		t.Fatal("expected meshes from both evaluations")
	}
	if first.Mesh.Color == "" {
		t.Error("expected a color")
	}
	if first.Mesh.Color != second.Mesh.Color {
		t.Errorf("color changed between evaluations: %q vs %q",
			first.Mesh.Color, second.Mesh.Color)
	}
}

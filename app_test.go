package main

import (
	"os"
	"testing"
)

// TestE2EChamferExample exercises the full pipeline: Lisp source → engine →
// topology kernel → render buffers. This is the same path that the Wails
// Evaluate binding takes, but without the Wails runtime.
func TestE2EChamferExample(t *testing.T) {
	app := NewApp()

	source, err := os.ReadFile("examples/chamfer.whl")
	if err != nil {
		t.Fatalf("failed to read chamfer.whl: %v", err)
	}

	result := app.Evaluate(string(source))

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}

	if result.Mesh == nil {
		t.Fatal("expected a mesh from chamfer.whl")
	}

	if len(result.Mesh.Vertices) == 0 {
		t.Error("no vertices")
	}
	if len(result.Mesh.Normals) != len(result.Mesh.Vertices) {
		t.Errorf("normals length %d does not match vertices length %d",
			len(result.Mesh.Normals), len(result.Mesh.Vertices))
	}
	if len(result.Mesh.Indices) == 0 || len(result.Mesh.Indices)%3 != 0 {
		t.Errorf("indices length %d is not a positive multiple of 3", len(result.Mesh.Indices))
	}
	if result.Mesh.Color == "" {
		t.Error("no color assigned")
	}

	for _, i := range result.Issues {
		if i.Severity == "error" {
			t.Errorf("unexpected topology error: [%s] %s", i.Kind, i.Message)
		}
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if result.Mesh != nil {
		t.Errorf("expected no mesh for empty source")
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("(grid 2 2")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if result.Mesh != nil {
		t.Errorf("expected no mesh on error")
	}
}

// TestE2ESingleGrid ensures a minimal grid source renders one mesh.
func TestE2ESingleGrid(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("(grid 1 1)")

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error: %s", e.Message)
		}
		t.FailNow()
	}
	if result.Mesh == nil {
		t.Fatal("expected 1 mesh")
	}
	if result.Mesh.Name != "grid" {
		t.Errorf("expected mesh name 'grid', got %q", result.Mesh.Name)
	}
	// One quad: 4 vertices, 2 triangles after fan triangulation.
	if len(result.Mesh.Vertices) != 12 {
		t.Errorf("expected 12 vertex floats, got %d", len(result.Mesh.Vertices))
	}
	if len(result.Mesh.Indices) != 6 {
		t.Errorf("expected 6 indices, got %d", len(result.Mesh.Indices))
	}
}

package topo

import (
	"fmt"
	"sort"
)

// Severity indicates whether a finding marks the mesh as broken or is
// merely advisory.
type Severity int

const (
	SeverityError   Severity = iota // topology is not well-formed
	SeverityWarning                 // harmless but worth surfacing
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// IssueKind enumerates the classes of topology findings.
type IssueKind int

const (
	IssueNonManifoldEdge IssueKind = iota // edge bordered by more than 2 faces
	IssueDanglingVertex                   // face boundary references a dead vertex
	IssueDegenerateFace                   // fewer than 3 distinct boundary vertices
	IssueRepeatedVertex                   // vertex occurs twice in one boundary loop
	IssueInconsistentWinding              // both faces traverse a shared edge the same way
	IssueOrphanVertex                     // live vertex with no incident face
)

func (k IssueKind) String() string {
	switch k {
	case IssueNonManifoldEdge:
		return "non-manifold-edge"
	case IssueDanglingVertex:
		return "dangling-vertex"
	case IssueDegenerateFace:
		return "degenerate-face"
	case IssueRepeatedVertex:
		return "repeated-vertex"
	case IssueInconsistentWinding:
		return "inconsistent-winding"
	case IssueOrphanVertex:
		return "orphan-vertex"
	default:
		return "unknown"
	}
}

// Issue describes a single topology finding and the handles involved.
type Issue struct {
	Kind     IssueKind
	Severity Severity
	Message  string
	Vertices []VertexHandle
	Faces    []FaceHandle
	Edge     EdgeKey // zero value when the finding is not edge-scoped
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Kind, i.Message)
}

// Report bundles the findings of one validation pass.
type Report struct {
	Issues []Issue
}

// HasErrors reports whether at least one error-severity issue was found.
func (r Report) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity issues.
func (r Report) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns only the warning-severity issues.
func (r Report) Warnings() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// ValidateTopology audits the mesh and reports every inconsistency it
// finds. It is read-only, safe to call after any operator sequence, and
// never repairs anything. Findings are ordered: face-scoped checks by face
// handle, then edge-scoped checks in sorted key order, then vertex checks
// by handle.
func (m *Mesh) ValidateTopology() Report {
	var r Report
	r.Issues = append(r.Issues, m.checkFaces()...)
	r.Issues = append(r.Issues, m.checkEdges()...)
	r.Issues = append(r.Issues, m.checkOrphans()...)
	return r
}

// checkFaces validates each face boundary: live vertex references, at
// least 3 distinct vertices, no vertex repeated within one loop.
func (m *Mesh) checkFaces() []Issue {
	var issues []Issue
	for h, s := range m.faces {
		if !s.live {
			continue
		}
		fh := FaceHandle(h)

		distinct := make(map[VertexHandle]int, len(s.loop))
		for _, v := range s.loop {
			if !m.vertexLive(v) {
				issues = append(issues, Issue{
					Kind:     IssueDanglingVertex,
					Severity: SeverityError,
					Message:  fmt.Sprintf("face %d references dead vertex %d", fh, v),
					Vertices: []VertexHandle{v},
					Faces:    []FaceHandle{fh},
				})
			}
			distinct[v]++
		}

		if len(distinct) < 3 {
			issues = append(issues, Issue{
				Kind:     IssueDegenerateFace,
				Severity: SeverityError,
				Message:  fmt.Sprintf("face %d has %d distinct vertices, need at least 3", fh, len(distinct)),
				Faces:    []FaceHandle{fh},
			})
			continue
		}
		for v, n := range distinct {
			if n > 1 {
				issues = append(issues, Issue{
					Kind:     IssueRepeatedVertex,
					Severity: SeverityError,
					Message:  fmt.Sprintf("face %d repeats vertex %d in its boundary loop", fh, v),
					Vertices: []VertexHandle{v},
					Faces:    []FaceHandle{fh},
				})
			}
		}
	}
	return issues
}

// checkEdges validates the derived edge relation: at most two incident
// faces per edge, and opposite traversal directions where there are two.
func (m *Mesh) checkEdges() []Issue {
	var issues []Issue
	for _, k := range m.Edges() {
		faces := m.edgeFaces[k]
		if len(faces) > 2 {
			sorted := append([]FaceHandle(nil), faces...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			issues = append(issues, Issue{
				Kind:     IssueNonManifoldEdge,
				Severity: SeverityError,
				Message:  fmt.Sprintf("edge %s is shared by %d faces", k, len(faces)),
				Faces:    sorted,
				Edge:     k,
			})
			continue
		}
		if len(faces) == 2 {
			a0, _, ok0 := m.faceTraversal(faces[0], k)
			b0, _, ok1 := m.faceTraversal(faces[1], k)
			if ok0 && ok1 && a0 == b0 {
				issues = append(issues, Issue{
					Kind:     IssueInconsistentWinding,
					Severity: SeverityError,
					Message:  fmt.Sprintf("faces %d and %d traverse edge %s in the same direction", faces[0], faces[1], k),
					Faces:    []FaceHandle{faces[0], faces[1]},
					Edge:     k,
				})
			}
		}
	}
	return issues
}

// checkOrphans flags live vertices no face boundary uses. Orphans are
// harmless garbage, so they are warnings, not errors.
func (m *Mesh) checkOrphans() []Issue {
	var issues []Issue
	for h, s := range m.verts {
		if !s.live {
			continue
		}
		vh := VertexHandle(h)
		if len(m.vertFaces[vh]) == 0 {
			issues = append(issues, Issue{
				Kind:     IssueOrphanVertex,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("vertex %d has no incident face", vh),
				Vertices: []VertexHandle{vh},
			})
		}
	}
	return issues
}

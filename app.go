package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/chazu/whittle/internal/config"
	"github.com/chazu/whittle/internal/logger"
	"github.com/chazu/whittle/pkg/engine"
	"github.com/chazu/whittle/pkg/kernel"
	"github.com/chazu/whittle/pkg/kernel/manifold"
	"github.com/chazu/whittle/pkg/kernel/sdfx"
	"github.com/chazu/whittle/pkg/tessellate"
	"github.com/chazu/whittle/pkg/topo"
)

// colorPalette is a default palette used to assign distinct colors to meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	cfg    *config.Config
	engine *engine.Engine
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// IssueData is a JSON-serializable topology finding for the frontend.
type IssueData struct {
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Mesh   *MeshData       `json:"mesh"`
	Errors []EvalErrorData `json:"errors"`
	Issues []IssueData     `json:"issues"`
}

// NewApp creates a new App with an engine and the sdfx kernel.
func NewApp() *App {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}

	if initErr := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); initErr != nil {
		_ = logger.Init("info", "")
	}
	if err != nil {
		logger.Sugar.Warnf("config load failed, using defaults: %v", err)
	}

	return &App{
		cfg:    cfg,
		engine: engine.NewEngine(buildKernel(cfg), logger.Log),
	}
}

// buildKernel picks the geometry kernel backend from configuration,
// falling back to sdfx when manifold is unavailable.
func buildKernel(cfg *config.Config) kernel.Kernel {
	if cfg.Kernel.Backend == "manifold" {
		k, err := manifold.New()
		if err == nil {
			return k
		}
		logger.Sugar.Warnf("manifold kernel unavailable, falling back to sdfx: %v", err)
	}
	return sdfx.NewWithResolution(cfg.Kernel.MeshCells)
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	logger.Log.Info("whittle started",
		zap.Int("width", a.cfg.Window.Width),
		zap.Int("height", a.cfg.Window.Height),
		zap.Int("mesh_cells", a.cfg.Kernel.MeshCells))
}

// shutdown flushes buffered log entries before the process exits.
func (a *App) shutdown(ctx context.Context) {
	logger.Sync()
}

// Evaluate takes Lisp source and returns the edited mesh, eval errors, and
// topology findings. This is the primary binding called by the frontend
// editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Errors: []EvalErrorData{},
		Issues: []IssueData{},
	}

	res, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, superseded evaluation).
		logger.Sugar.Errorf("evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: err.Error(),
		})
		return result
	}

	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	if res.Mesh != nil {
		result.Mesh = meshData(res.Mesh, res.Name)
		if a.cfg.Editor.AutoValidate {
			result.Issues = issueData(res.Report)
		}
	}

	return result
}

// meshData flattens a topology mesh into frontend buffers with computed
// vertex normals and a palette color keyed off the mesh name.
func meshData(m *topo.Mesh, name string) *MeshData {
	km := tessellate.RenderMesh(m, name)

	return &MeshData{
		Vertices: km.Vertices,
		Normals:  km.Normals,
		Indices:  km.Indices,
		Name:     name,
		Color:    colorFor(name),
	}
}

// colorFor picks a stable palette color for a mesh name.
func colorFor(name string) string {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*31 + uint32(name[i])
	}
	return colorPalette[int(h)%len(colorPalette)]
}

// issueData converts a validation report to the frontend format.
func issueData(r topo.Report) []IssueData {
	out := make([]IssueData, 0, len(r.Issues))
	for _, i := range r.Issues {
		out = append(out, IssueData{
			Severity: i.Severity.String(),
			Kind:     i.Kind.String(),
			Message:  i.Message,
		})
	}
	return out
}

// Package config handles application configuration loading and management.
package config

// Config holds all application settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Kernel  KernelConfig  `yaml:"kernel"`
	Editor  EditorConfig  `yaml:"editor"`
	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig holds window and display settings.
type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// KernelConfig holds geometry kernel settings.
type KernelConfig struct {
	// Backend selects the geometry kernel: "sdfx" (default) or
	// "manifold" (requires building with -tags=manifold).
	Backend string `yaml:"backend"`

	// MeshCells is the marching cubes grid resolution used when
	// converting solids to triangle meshes.
	MeshCells int `yaml:"mesh_cells"`
}

// EditorConfig holds script evaluation settings.
type EditorConfig struct {
	// AutoValidate runs the topology checker after every evaluation.
	AutoValidate bool `yaml:"auto_validate"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  1200,
			Height: 800,
			Title:  "Whittle",
		},
		Kernel: KernelConfig{
			Backend:   "sdfx",
			MeshCells: 200,
		},
		Editor: EditorConfig{
			AutoValidate: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

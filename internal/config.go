package internal

import (
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	return c.SQLite.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return nil
}

// WorkspaceConfig describes the telemetry workspace: where session files
// accumulate and where the summary artifact is written.
type WorkspaceConfig struct {
	TelemetryDir string `yaml:"telemetry_dir"`
	SummaryPath  string `yaml:"summary_path"`
	FilenameHint string `yaml:"filename_hint"`
	// Backend and Device label summaries for cross-backend comparison.
	Backend string `yaml:"backend"`
	Device  string `yaml:"device"`
	// BuildInfoPath optionally points at an externally produced provenance
	// snapshot embedded verbatim into summaries.
	BuildInfoPath string `yaml:"build_info_path"`
	// DebounceMs delays watcher-driven refreshes to coalesce bursts of
	// session files.
	DebounceMs int `yaml:"debounce_ms"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TelemetryDir, validation.Required),
		validation.Field(&c.SummaryPath, validation.Required),
		validation.Field(&c.DebounceMs, validation.Min(0), validation.Max(10000)),
	)
}

// SQLiteConfig holds the session catalog database path.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Workspace: WorkspaceConfig{
			TelemetryDir: "./telemetry",
			SummaryPath:  "./build/telemetry_summary.json",
			FilenameHint: "naudiz_run",
			DebounceMs:   200,
		},
		SQLite: SQLiteConfig{
			Path: "./naudiz.db",
		},
	}
}

package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/inkpad/internal/render"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Diagram engines.
const (
	EngineBrowser = "browser"
	EngineCommand = "command"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Editor    EditorConfig      `yaml:"editor"`
	Preview   PreviewConfig     `yaml:"preview"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Editor.Validate(); err != nil {
		return err
	}
	return c.Preview.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WorkspaceConfig holds the directory the editor browses and saves into.
type WorkspaceConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EditorConfig holds session defaults. Persisted settings override the
// autosave values once a user changes them.
type EditorConfig struct {
	AutosaveEnabled  bool          `yaml:"autosave_enabled"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	HistoryLimit     int           `yaml:"history_limit"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AutosaveInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.HistoryLimit, validation.Required, validation.Min(1)),
	)
}

// PreviewConfig holds render pipeline configuration.
type PreviewConfig struct {
	Debounce      time.Duration `yaml:"debounce"`
	Theme         string        `yaml:"theme"`
	Sanitize      bool          `yaml:"sanitize"`
	RenderTimeout time.Duration `yaml:"render_timeout"`
	Diagram       DiagramConfig `yaml:"diagram"`
}

// Validate validates the preview configuration.
func (c *PreviewConfig) Validate() error {
	themes := make([]any, 0, len(render.Themes))
	for _, t := range render.Themes {
		themes = append(themes, string(t))
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Required),
		validation.Field(&c.Theme, validation.Required, validation.In(themes...)),
		validation.Field(&c.RenderTimeout, validation.Required),
	); err != nil {
		return err
	}
	return c.Diagram.Validate()
}

// DiagramConfig selects how diagrams are turned into SVG.
//
// Engine "browser" drives a headless Chromium through go-rod and loads
// Mermaid from MermaidURL. ControlURL attaches to a running browser instead
// of launching one. Engine "command" runs the Mermaid CLI.
type DiagramConfig struct {
	Engine     string   `yaml:"engine"`
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args"`
	MermaidURL string   `yaml:"mermaid_url"`
	ControlURL string   `yaml:"control_url"`
}

// Validate validates the diagram configuration.
func (c *DiagramConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Engine, validation.Required, validation.In(EngineBrowser, EngineCommand)),
		validation.Field(&c.Command, validation.When(c.Engine == EngineCommand, validation.Required)),
		validation.Field(&c.MermaidURL, validation.When(c.Engine == EngineBrowser, validation.Required)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Workspace: WorkspaceConfig{
			Path: "./workspace",
		},
		SQLite: SQLiteConfig{
			Path: "./inkpad.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Editor: EditorConfig{
			AutosaveEnabled:  true,
			AutosaveInterval: 2 * time.Second,
			HistoryLimit:     50,
		},
		Preview: PreviewConfig{
			Debounce:      render.DefaultDebounce,
			Theme:         string(render.ThemeDefault),
			Sanitize:      true,
			RenderTimeout: render.DefaultTimeout,
			Diagram: DiagramConfig{
				Engine:     EngineBrowser,
				Command:    render.DefaultCommand,
				MermaidURL: render.DefaultMermaidURL,
			},
		},
	}
}

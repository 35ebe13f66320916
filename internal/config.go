package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Watcher   WatcherConfig     `yaml:"watcher"`
	Serial    SerialConfig      `yaml:"serial"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.Watcher.Validate(); err != nil {
		return err
	}
	if err := c.Serial.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level    `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
	Log       LogFileConfig `yaml:"log_file"`
	HTTP      HTTPConfig    `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.Required, validation.In(LogFormatText, LogFormatJSON)),
	); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// LogFileConfig configures optional rotating file output. An empty Path
// keeps logs on stderr only.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Validate validates the log file configuration.
func (c *LogFileConfig) Validate() error {
	if c.Path == "" {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSizeMB, validation.Min(1)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAgeDays, validation.Min(0)),
	)
}

// HTTPConfig holds HTTP server configuration. Port 0 disables the admin API.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Enabled reports whether the admin API should be served.
func (c *HTTPConfig) Enabled() bool {
	return c.Port > 0
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
	)
}

// WorkspaceConfig holds the watched document tree configuration.
type WorkspaceConfig struct {
	Path        string `yaml:"path"`
	Extension   string `yaml:"extension"`
	IndexFile   string `yaml:"index_file"`
	JournalFile string `yaml:"journal_file"` // empty disables journaling
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extension, validation.Required),
	); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Extension, ".") {
		return fmt.Errorf("workspace: extension %q must start with a dot", c.Extension)
	}
	return nil
}

// WatcherConfig holds event handling policy.
type WatcherConfig struct {
	DebounceSeconds       int  `yaml:"debounce_seconds"`
	SkipUnnamedPrefix     bool `yaml:"skip_unnamed_prefix"`
	SkipConflictMarker    bool `yaml:"skip_conflict_marker"`
	SkipBackupSuffix      bool `yaml:"skip_backup_suffix"`
	RemoveAssetsOnDelete  bool `yaml:"remove_assets_on_delete"`
	VerifyIntervalMinutes int  `yaml:"verify_interval_minutes"` // 0 disables periodic verification
}

// Debounce returns the debounce window as a duration.
func (c *WatcherConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceSeconds) * time.Second
}

// VerifyInterval returns the periodic verification interval, 0 when disabled.
func (c *WatcherConfig) VerifyInterval() time.Duration {
	return time.Duration(c.VerifyIntervalMinutes) * time.Minute
}

// Validate validates the watcher configuration.
func (c *WatcherConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DebounceSeconds, validation.Required, validation.Min(1), validation.Max(600)),
		validation.Field(&c.VerifyIntervalMinutes, validation.Min(0)),
	)
}

// SerialConfig holds serial allocation policy.
type SerialConfig struct {
	ShardPrefixLength int `yaml:"shard_prefix_length"`
}

// Validate validates the serial configuration.
func (c *SerialConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ShardPrefixLength, validation.Required, validation.In(1, 2)),
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
	// Normalise empty mode to "disabled" for backward compatibility.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
			Log: LogFileConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 30,
			},
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Workspace: WorkspaceConfig{
			Path:      "./workspace",
			Extension: ".md",
			IndexFile: ".index/path_index.json",
		},
		Watcher: WatcherConfig{
			DebounceSeconds:    10,
			SkipUnnamedPrefix:  true,
			SkipConflictMarker: true,
			SkipBackupSuffix:   true,
		},
		Serial: SerialConfig{
			ShardPrefixLength: 1,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

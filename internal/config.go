package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Registry   RegistryConfig    `yaml:"registry"`
	Settings   SettingsConfig    `yaml:"settings"`
	Auth       AuthConfig        `yaml:"auth"`
	Validation ValidationConfig  `yaml:"validation"`
	Watch      WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// RegistryConfig holds the SQLite file backing the project registry.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the registry configuration.
func (c *RegistryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SettingsConfig holds the location of the persisted user settings.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the settings configuration.
func (c *SettingsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ValidationConfig tunes spec validation.
//
// StrictDependencies turns broken dependency references into errors, which
// makes the affected spec invalid. Off by default.
type ValidationConfig struct {
	StrictDependencies bool `yaml:"strict_dependencies"`
}

// WatchConfig controls the specs directory watcher.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3030,
			},
		},
		Registry: RegistryConfig{
			Path: "./specdesk.db",
		},
		Settings: SettingsConfig{
			Path: "./settings.yaml",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 300 * time.Millisecond,
		},
	}
}

// Package settings persists user preferences in a YAML file.
//
// A Store is constructed explicitly and passed to whoever needs it; all
// writes go through Mutate, which holds the store's mutex while applying
// the change and persisting it.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/specdesk/internal/storage"
)

// Themes and update channels.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"

	ChannelStable = "stable"
	ChannelBeta   = "beta"
)

// Settings are the persisted user preferences.
type Settings struct {
	ActiveProjectID string     `yaml:"active_project_id,omitempty" json:"active_project_id,omitempty"`
	Appearance      Appearance `yaml:"appearance" json:"appearance"`
	Updates         Updates    `yaml:"updates" json:"updates"`
}

// Appearance holds display preferences.
type Appearance struct {
	Theme string `yaml:"theme" json:"theme"`
}

// Updates holds update-check preferences.
type Updates struct {
	AutoCheck bool   `yaml:"auto_check" json:"auto_check"`
	Channel   string `yaml:"channel" json:"channel"`
}

// Defaults returns the settings used when nothing is persisted.
func Defaults() Settings {
	return Settings{
		Appearance: Appearance{Theme: ThemeSystem},
		Updates:    Updates{AutoCheck: true, Channel: ChannelStable},
	}
}

// normalize replaces unknown enum values with their defaults.
func (s *Settings) normalize() {
	if validation.Validate(s.Appearance.Theme, validation.Required, validation.In(ThemeLight, ThemeDark, ThemeSystem)) != nil {
		s.Appearance.Theme = ThemeSystem
	}
	if validation.Validate(s.Updates.Channel, validation.Required, validation.In(ChannelStable, ChannelBeta)) != nil {
		s.Updates.Channel = ChannelStable
	}
}

// Store owns the settings file.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	current Settings
}

// NewStore creates a store for the file at path. Call Load before use.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger, current: Defaults()}
}

// Load reads the settings file. A missing or unparseable file yields the
// defaults; only unexpected read errors are returned.
func (s *Store) Load() error {
	loaded := Defaults()
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("settings: read %s: %w", s.path, err)
	default:
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			s.logger.Warn("settings: parse failed, using defaults",
				slog.String("path", s.path), slog.String("error", err.Error()))
			loaded = Defaults()
		}
	}
	loaded.normalize()

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Mutate applies fn to a copy of the settings, normalizes the result and
// persists it. The in-memory settings only change when the write succeeds.
func (s *Store) Mutate(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)
	next.normalize()

	if err := s.persist(next); err != nil {
		return s.current, err
	}
	s.current = next
	return next, nil
}

func (s *Store) persist(v Settings) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: create dir: %w", err)
	}
	fs, err := storage.NewFS(dir)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := fs.Write(filepath.Base(s.path), data); err != nil {
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}
	return nil
}

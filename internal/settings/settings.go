// Package settings persists user preferences under fixed global keys.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/store"
)

// Storage keys.
const (
	KeySettings = "settings"
	KeyTheme    = "theme"
)

// App themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// AI providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Settings holds the user-editable preferences.
type Settings struct {
	FontSize         int    `json:"font_size"`
	AutosaveEnabled  bool   `json:"autosave_enabled"`
	AutosaveInterval int    `json:"autosave_interval_ms"`
	AIProvider       string `json:"ai_provider"`
	APIKey           string `json:"api_key"`
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.FontSize, validation.Required, validation.Min(10), validation.Max(30)),
		validation.Field(&s.AutosaveInterval, validation.Required, validation.Min(1000)),
		validation.Field(&s.AIProvider, validation.Required, validation.In(ProviderOpenAI, ProviderAnthropic)),
	)
}

// Masked returns a copy safe to hand to clients.
func (s Settings) Masked() Settings {
	if s.APIKey != "" {
		keep := 4
		if len(s.APIKey) <= keep {
			keep = 0
		}
		s.APIKey = strings.Repeat("*", 8) + s.APIKey[len(s.APIKey)-keep:]
	}
	return s
}

// Defaults returns the built-in preferences.
func Defaults() Settings {
	return Settings{
		FontSize:         14,
		AutosaveEnabled:  false,
		AutosaveInterval: 2000,
		AIProvider:       ProviderOpenAI,
	}
}

// Store loads preferences once and writes them back on change.
type Store struct {
	db     *store.DB
	logger *slog.Logger

	mu       sync.RWMutex
	current  Settings
	appTheme string
}

// Load reads persisted preferences, falling back to defaults for anything
// missing or unreadable.
func Load(ctx context.Context, db *store.DB, defaults Settings, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{db: db, logger: logger, current: defaults, appTheme: ThemeLight}

	raw, err := db.Get(ctx, KeySettings)
	switch {
	case err == nil:
		loaded := defaults
		if jerr := json.Unmarshal([]byte(raw), &loaded); jerr != nil {
			logger.Warn("settings: decode failed, using defaults", slog.String("error", jerr.Error()))
		} else if verr := loaded.Validate(); verr != nil {
			logger.Warn("settings: stored values invalid, using defaults", slog.String("error", verr.Error()))
		} else {
			s.current = loaded
		}
	case !errors.Is(err, store.ErrNoValue):
		logger.Warn("settings: load failed, using defaults", slog.String("error", err.Error()))
	}

	if theme, err := db.Get(ctx, KeyTheme); err == nil && (theme == ThemeDark || theme == ThemeLight) {
		s.appTheme = theme
	}
	return s
}

// Get returns the current preferences.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and persists next. An empty APIKey keeps the stored key.
func (s *Store) Update(ctx context.Context, next Settings) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next.APIKey == "" || strings.HasPrefix(next.APIKey, "********") {
		next.APIKey = s.current.APIKey
	}
	if err := next.Validate(); err != nil {
		return s.current, apperr.Wrap("settings", "", apperr.ErrInvalidInput, err)
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return s.current, fmt.Errorf("settings: encode: %w", err)
	}
	if err := s.db.Put(ctx, KeySettings, string(raw)); err != nil {
		return s.current, err
	}
	s.current = next
	return next, nil
}

// AppTheme returns the persisted light/dark preference.
func (s *Store) AppTheme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appTheme
}

// SetAppTheme persists the light/dark preference.
func (s *Store) SetAppTheme(ctx context.Context, theme string) error {
	if theme != ThemeDark && theme != ThemeLight {
		return apperr.Wrap("theme", theme, apperr.ErrInvalidInput, fmt.Errorf("settings: unknown theme %q", theme))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Put(ctx, KeyTheme, theme); err != nil {
		return err
	}
	s.appTheme = theme
	return nil
}

// Package settings holds the mutable, persisted threshold configuration.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"codeberg.org/halcyon/robomon/internal/errors"
	"codeberg.org/halcyon/robomon/internal/logger"
)

const (
	DefaultThresholdC = 30.0
	DefaultWarningC   = 30.0
	DefaultCriticalC  = 33.0

	defaultFilePerm = 0o644
)

// Settings is the full threshold document, in Celsius. Replaced wholesale on
// update, never patched in place.
type Settings struct {
	ThermalThresholdC float64 `json:"thermal_threshold_c"`
	ThermalWarningC   float64 `json:"thermal_warning_c"`
	ThermalCriticalC  float64 `json:"thermal_critical_c"`
}

func Defaults() Settings {
	return Settings{
		ThermalThresholdC: DefaultThresholdC,
		ThermalWarningC:   DefaultWarningC,
		ThermalCriticalC:  DefaultCriticalC,
	}
}

// Store guards the settings document and keeps it in sync with a JSON file.
type Store struct {
	mu      sync.RWMutex
	path    string
	current Settings
}

// NewStore loads the settings file at path, merging recognized keys into the
// defaults. A missing or unreadable file is not fatal: defaults are
// installed and persisted.
func NewStore(path string) (*Store, error) {
	store := &Store{
		path:    path,
		current: Defaults(),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if loaded, ok := merge(Defaults(), data); ok {
			store.current = loaded
			return store, nil
		}
		logger.Warn().Str("path", path).Msg("Settings file unreadable, using defaults")
	case !os.IsNotExist(err):
		logger.Warn().Err(err).Str("path", path).Msg("Settings file unreadable, using defaults")
	}

	if err := store.persist(store.current); err != nil {
		return nil, err
	}

	return store, nil
}

// Get returns a snapshot of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// Set replaces the settings wholesale. The full document is durably written
// before Set returns, so a crash leaves either the old or the new file.
func (s *Store) Set(next Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(next); err != nil {
		return err
	}
	s.current = next

	return nil
}

// Apply merges a partial update document into the current settings and
// persists the result. A non-numeric value for a recognized key rejects the
// whole update; the prior settings are retained.
func (s *Store) Apply(doc map[string]any) (Settings, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	for key, raw := range doc {
		field := fieldFor(&next, key)
		if field == nil {
			continue
		}

		value, ok := coerceFloat(raw)
		if !ok {
			return s.current, errFactory.WithData(ErrInvalidValue, key)
		}
		*field = value
	}

	if err := s.persist(next); err != nil {
		return s.current, err
	}
	s.current = next

	return next, nil
}

// persist writes the document to a temp file in the target directory and
// renames it over the settings file. Caller holds the lock.
func (s *Store) persist(doc Settings) error {
	errFactory := errors.New()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errFactory.Wrap(ErrPersist, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return errFactory.Wrap(ErrPersist, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errFactory.Wrap(ErrPersist, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errFactory.Wrap(ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errFactory.Wrap(ErrPersist, err)
	}

	if err := os.Chmod(tmp.Name(), defaultFilePerm); err != nil {
		os.Remove(tmp.Name())
		return errFactory.Wrap(ErrPersist, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errFactory.Wrap(ErrPersist, err)
	}

	return nil
}

// merge overlays recognized keys from a JSON document onto base. Unrecognized
// keys are ignored; a recognized key that cannot be coerced keeps its default.
func merge(base Settings, data []byte) (Settings, bool) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return base, false
	}

	for key, raw := range doc {
		field := fieldFor(&base, key)
		if field == nil {
			continue
		}
		if value, ok := coerceFloat(raw); ok {
			*field = value
		}
	}

	return base, true
}

func fieldFor(s *Settings, key string) *float64 {
	switch key {
	case "thermal_threshold_c":
		return &s.ThermalThresholdC
	case "thermal_warning_c":
		return &s.ThermalWarningC
	case "thermal_critical_c":
		return &s.ThermalCriticalC
	default:
		return nil
	}
}

func coerceFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

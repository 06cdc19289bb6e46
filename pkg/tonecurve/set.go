package tonecurve

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// Set is a read-only collection of looks. Lookups accept either the key
// ("high_contrast") or the display name ("Filmic High Contrast"),
// case-insensitively. Unknown names resolve to the base look.
//
// A Set is built once and never mutated afterwards, so it can be shared.
type Set struct {
	curves map[string]Curve
	names  map[string]string // lowercased display name -> key
	base   string
	logger *slog.Logger
}

// NewSet builds a set from curves keyed by look key. base must be present.
func NewSet(curves map[string]Curve, base string, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, ok := curves[base]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoBaseLook, base)
	}

	s := &Set{
		curves: make(map[string]Curve, len(curves)),
		names:  make(map[string]string, len(curves)),
		base:   base,
		logger: logger,
	}
	for key, c := range curves {
		s.curves[key] = c
		s.names[strings.ToLower(c.Name)] = key
	}
	return s, nil
}

// LoadBuiltIn loads every embedded curve. Any failure is fatal for the engine.
func LoadBuiltIn(logger *slog.Logger) (*Set, error) {
	keys, err := ListEmbedded()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no embedded curves", ErrCurveData)
	}

	curves := make(map[string]Curve, len(keys))
	for _, key := range keys {
		c, err := LoadEmbedded(key)
		if err != nil {
			return nil, err
		}
		curves[key] = c
	}

	return NewSet(curves, BaseLookKey, logger)
}

// WithDir returns a new set that adds (or overrides) looks from every
// *.json file in dir.
func (s *Set) WithDir(dir string) (*Set, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list curve files: %w", err)
	}

	curves := make(map[string]Curve, len(s.curves)+len(files))
	for k, c := range s.curves {
		curves[k] = c
	}
	for _, file := range files {
		key, c, err := LoadFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		curves[key] = c
	}

	return NewSet(curves, s.base, s.logger)
}

// Look returns the curve for a look key or display name.
// Unrecognized names fall back to the base look.
func (s *Set) Look(name string) Curve {
	if c, ok := s.Find(name); ok {
		return c
	}
	if name != "" {
		s.logger.Debug("unknown look, using base curve", "look", name, "base", s.base)
	}
	return s.curves[s.base]
}

// Find returns the curve for a look key or display name, if present.
func (s *Set) Find(name string) (Curve, bool) {
	if c, ok := s.curves[name]; ok {
		return c, true
	}
	if key, ok := s.names[strings.ToLower(name)]; ok {
		return s.curves[key], true
	}
	return Curve{}, false
}

// Base returns the base curve.
func (s *Set) Base() Curve {
	return s.curves[s.base]
}

// Keys returns all look keys, sorted alphabetically.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.curves))
	for k := range s.curves {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// List returns a description of each look, sorted by key.
func (s *Set) List() []LookInfo {
	keys := s.Keys()
	infos := make([]LookInfo, 0, len(keys))
	for _, k := range keys {
		c := s.curves[k]
		infos = append(infos, LookInfo{
			Key:         k,
			Name:        c.Name,
			Description: c.Description,
			Samples:     c.Len(),
		})
	}
	return infos
}

// Count returns the number of looks.
func (s *Set) Count() int {
	return len(s.curves)
}

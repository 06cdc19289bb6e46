package camera

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/teslashibe/go-realcam/pkg/metering"
)

// Manager holds the current settings and handles updates.
type Manager struct {
	settings Settings
	mu       sync.RWMutex

	// Callback when settings change (for applying to the engine)
	OnConfigChange func(s Settings) error
}

// NewManager creates a manager with default settings.
func NewManager() *Manager {
	return &Manager{
		settings: DefaultSettings(),
	}
}

// NewManagerWith creates a manager seeded with s. Invalid settings are rejected.
func NewManagerWith(s Settings) (*Manager, error) {
	if errs := s.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(errs, "; "))
	}
	return &Manager{settings: s}, nil
}

// GetConfig returns the current settings.
func (m *Manager) GetConfig() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// SetConfig validates and replaces the settings.
func (m *Manager) SetConfig(s Settings) error {
	if errs := s.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(errs, "; "))
	}

	m.mu.Lock()
	m.settings = s
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(s); err != nil {
			return fmt.Errorf("failed to apply settings: %w", err)
		}
	}

	return nil
}

// UpdateConfig updates specific fields of the settings.
// Accepts a map of field names (json tags) to values; a "preset" key
// replaces the base settings before the other fields are applied.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	s := m.GetConfig()

	if name, ok := params["preset"].(string); ok {
		preset := GetPreset(name)
		if preset == nil {
			return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
		}
		s = *preset
	}

	for key, value := range params {
		switch key {
		case "preset":
		case "metering_mode":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: metering_mode must be a string", ErrInvalidSettings)
			}
			mode, err := metering.ParseMode(v)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
			}
			s.MeteringMode = mode
		case "grid_size":
			if v, ok := toInt(value); ok {
				s.GridSize = v
			}
		case "ring_count":
			if v, ok := toInt(value); ok {
				s.RingCount = v
			}
		case "threshold":
			if v, ok := toFloat(value); ok {
				s.Threshold = v
			}
		case "auto_exposure":
			if v, ok := value.(bool); ok {
				s.AutoExposure = v
			}
		case "compensation":
			if v, ok := toFloat(value); ok {
				s.Compensation = v
			}
		case "min_exposure":
			if v, ok := toFloat(value); ok {
				s.MinExposure = v
			}
		case "max_exposure":
			if v, ok := toFloat(value); ok {
				s.MaxExposure = v
			}
		case "look":
			if v, ok := value.(string); ok {
				s.Look = v
			}
		case "physical_exposure":
			if v, ok := value.(bool); ok {
				s.PhysicalExposure = v
			}
		case "aperture":
			if v, ok := toFloat(value); ok {
				s.Aperture = v
			}
		case "shutter_speed":
			if v, ok := toFloat(value); ok {
				s.ShutterSpeed = v
			}
		case "iso":
			if v, ok := toFloat(value); ok {
				s.ISO = v
			}
		case "fps":
			if v, ok := toFloat(value); ok {
				s.FPS = v
			}
		case "focal_length":
			if v, ok := toFloat(value); ok {
				s.FocalLength = v
			}
		case "autofocus":
			if v, ok := value.(bool); ok {
				s.Autofocus = v
			}
		case "focus_point":
			if v, ok := toFloat(value); ok {
				s.FocusPoint = v
			}
		case "bake_step":
			if v, ok := toInt(value); ok {
				s.BakeStep = v
			}
		default:
			return fmt.Errorf("%w: unknown field %q", ErrInvalidSettings, key)
		}
	}

	return m.SetConfig(s)
}

// GetConfigJSON returns the current settings as a map for JSON serialization.
func (m *Manager) GetConfigJSON() map[string]interface{} {
	s := m.GetConfig()

	data, _ := json.Marshal(s)
	var result map[string]interface{}
	json.Unmarshal(data, &result)

	return result
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

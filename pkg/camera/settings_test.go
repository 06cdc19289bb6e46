package camera

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teslashibe/go-realcam/pkg/metering"
	"github.com/teslashibe/go-realcam/pkg/tonecurve"
)

func TestDefaultSettings_Valid(t *testing.T) {
	s := DefaultSettings()
	if errs := s.Validate(); len(errs) > 0 {
		t.Fatalf("Default settings should be valid, got %v", errs)
	}
	if s.MeteringMode != metering.FullWindow {
		t.Errorf("Expected FullWindow metering, got %v", s.MeteringMode)
	}
	if s.FocusPoint != 1.0 {
		t.Errorf("Expected FocusPoint=1.0, got %v", s.FocusPoint)
	}
	if s.BakeStep != 1 {
		t.Errorf("Expected BakeStep=1, got %v", s.BakeStep)
	}
}

func TestPresets_AllValid(t *testing.T) {
	set, err := tonecurve.LoadBuiltIn(nil)
	if err != nil {
		t.Fatalf("LoadBuiltIn failed: %v", err)
	}

	for _, name := range PresetNames() {
		p := GetPreset(name)
		if p == nil {
			t.Fatalf("Preset %q missing", name)
		}
		if errs := p.Validate(); len(errs) > 0 {
			t.Errorf("Preset %q invalid: %v", name, errs)
		}
		if _, ok := set.Find(p.Look); !ok {
			t.Errorf("Preset %q names unknown look %q", name, p.Look)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("Expected nil for unknown preset")
	}
}

func TestValidate_Invariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"min above max", func(s *Settings) { s.MinExposure, s.MaxExposure = 3, 2 }, "min_exposure"},
		{"grid too small", func(s *Settings) { s.GridSize = 1 }, "grid_size"},
		{"grid too large", func(s *Settings) { s.GridSize = 21 }, "grid_size"},
		{"rings too large", func(s *Settings) { s.RingCount = 30 }, "ring_count"},
		{"zero aperture", func(s *Settings) { s.Aperture = 0 }, "aperture"},
		{"zero shutter", func(s *Settings) { s.ShutterSpeed = 0 }, "shutter_speed"},
		{"zero iso", func(s *Settings) { s.ISO = 0 }, "iso"},
		{"zero step", func(s *Settings) { s.BakeStep = 0 }, "bake_step"},
		{"bad mode", func(s *Settings) { s.MeteringMode = metering.Mode(9) }, "metering_mode"},
		{"zero focal length", func(s *Settings) { s.FocalLength = 0 }, "focal_length"},
		{"nan min exposure", func(s *Settings) { s.MinExposure = math.NaN() }, "min_exposure"},
		{"nan max exposure", func(s *Settings) { s.MaxExposure = math.NaN() }, "max_exposure"},
		{"nan threshold", func(s *Settings) { s.Threshold = math.NaN() }, "threshold"},
		{"inf compensation", func(s *Settings) { s.Compensation = math.Inf(1) }, "compensation"},
		{"nan focus point", func(s *Settings) { s.FocusPoint = math.NaN() }, "focus_point"},
		{"inf fps", func(s *Settings) { s.FPS = math.Inf(1) }, "fps"},
	}

	for _, tt := range tests {
		s := DefaultSettings()
		tt.mutate(&s)
		errs := s.Validate()
		if len(errs) == 0 {
			t.Errorf("%s: expected validation error", tt.name)
			continue
		}
		if !strings.Contains(strings.Join(errs, ";"), tt.want) {
			t.Errorf("%s: expected error mentioning %q, got %v", tt.name, tt.want, errs)
		}
	}
}

func TestManager_SetConfigRejectsInvalid(t *testing.T) {
	m := NewManager()
	called := 0
	m.OnConfigChange = func(Settings) error {
		called++
		return nil
	}

	bad := DefaultSettings()
	bad.MinExposure = 5
	bad.MaxExposure = -5
	err := m.SetConfig(bad)
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("Expected ErrInvalidSettings, got %v", err)
	}
	if called != 0 {
		t.Errorf("Callback should not run for rejected settings")
	}
	if m.GetConfig() != DefaultSettings() {
		t.Errorf("Rejected settings must not be stored")
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager()
	var applied Settings
	m.OnConfigChange = func(s Settings) error {
		applied = s
		return nil
	}

	err := m.UpdateConfig(map[string]interface{}{
		"preset":        PresetSpot,
		"compensation":  0.5,
		"bake_step":     float64(4),
		"autofocus":     true,
		"metering_mode": "weighted",
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	s := m.GetConfig()
	if s.MeteringMode != metering.CenterWeighted {
		t.Errorf("Expected field override after preset, got %v", s.MeteringMode)
	}
	if s.Compensation != 0.5 || s.BakeStep != 4 || !s.Autofocus {
		t.Errorf("Unexpected settings %+v", s)
	}
	if applied != s {
		t.Errorf("Callback should receive the stored settings")
	}

	if err := m.UpdateConfig(map[string]interface{}{"preset": "nope"}); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("Expected ErrUnknownPreset, got %v", err)
	}
	if err := m.UpdateConfig(map[string]interface{}{"shutter": 10.0}); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("Expected ErrInvalidSettings for unknown field, got %v", err)
	}
}

func TestManager_GetConfigJSON(t *testing.T) {
	m := NewManager()
	js := m.GetConfigJSON()
	if js["metering_mode"] != "full_window" {
		t.Errorf("Expected metering_mode=full_window, got %v", js["metering_mode"])
	}
	if js["focus_point"] != 1.0 {
		t.Errorf("Expected focus_point=1, got %v", js["focus_point"])
	}
}

func TestLoad_RejectsNonFinite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "realcam.yaml")
	if err := os.WriteFile(path, []byte("min_exposure: .nan\nthreshold: .nan\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("Expected ErrInvalidSettings for NaN fields, got %v", err)
	}
}

func TestLoadSave_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "realcam.yaml")

	s := NightSettings()
	s.BakeStep = 3
	if err := Save(path, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != s {
		t.Errorf("Loaded settings differ:\n got %+v\nwant %+v", got, s)
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "metering_mode: center_weighted") {
		t.Errorf("Expected metering mode written by name, got:\n%s", raw)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("metering_mode: spot\ncompensation: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.MeteringMode != metering.CenterSpot || s.Compensation != -1 {
		t.Errorf("Unexpected values %+v", s)
	}
	if s.Aperture != DefaultSettings().Aperture {
		t.Errorf("Expected default aperture, got %v", s.Aperture)
	}

	if err := os.WriteFile(path, []byte("bake_step: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("Expected ErrInvalidSettings, got %v", err)
	}
}

func TestSettings_Derived(t *testing.T) {
	s := DefaultSettings()
	s.Aperture, s.ShutterSpeed, s.ISO = 5.6, 500, 100
	if s.EV() != 13.94 {
		t.Errorf("Expected EV=13.94, got %v", s.EV())
	}

	opts := s.MeteringOptions()
	if opts.Mode != s.MeteringMode || opts.GridSize != s.GridSize || opts.Threshold != s.Threshold {
		t.Errorf("Unexpected metering options %+v", opts)
	}
}

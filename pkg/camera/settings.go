// Package camera holds the runtime-configurable exposure and focus settings.
// Settings are validated at the configuration boundary; the frame loop
// never sees an invalid value.
package camera

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-realcam/pkg/exposure"
	"github.com/teslashibe/go-realcam/pkg/metering"
	"github.com/teslashibe/go-realcam/pkg/tonecurve"
)

// Settings holds every exposure and focus parameter.
// These can be modified via the settings API at runtime.
type Settings struct {
	// === Metering ===
	MeteringMode metering.Mode `json:"metering_mode" yaml:"metering_mode"`
	GridSize     int           `json:"grid_size" yaml:"grid_size"`   // FullWindow grid G
	RingCount    int           `json:"ring_count" yaml:"ring_count"` // CenterWeighted rings C

	// Threshold discards samples brighter than this luminance.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// === Exposure ===
	AutoExposure bool    `json:"auto_exposure" yaml:"auto_exposure"`
	Compensation float64 `json:"compensation" yaml:"compensation"` // EV stops
	MinExposure  float64 `json:"min_exposure" yaml:"min_exposure"`
	MaxExposure  float64 `json:"max_exposure" yaml:"max_exposure"`
	Look         string  `json:"look" yaml:"look"`

	// === Physical camera ===
	// PhysicalExposure maps aperture, shutter and ISO to the view exposure
	// when auto-exposure is off.
	PhysicalExposure bool    `json:"physical_exposure" yaml:"physical_exposure"`
	Aperture         float64 `json:"aperture" yaml:"aperture"`           // f-number
	ShutterSpeed     float64 `json:"shutter_speed" yaml:"shutter_speed"` // 1/s
	ISO              float64 `json:"iso" yaml:"iso"`
	FPS              float64 `json:"fps" yaml:"fps"`
	FocalLength      float64 `json:"focal_length" yaml:"focal_length"` // mm

	// === Focus ===
	Autofocus  bool    `json:"autofocus" yaml:"autofocus"`
	FocusPoint float64 `json:"focus_point" yaml:"focus_point"` // meters; manual and miss distance
	BakeStep   int     `json:"bake_step" yaml:"bake_step"`     // frames between baked keyframes
}

// Limits
const (
	MinExposureLimit = -20.0
	MaxExposureLimit = 20.0
	MaxCompensation  = 5.0
	MaxISO           = 409600
)

// DefaultSettings returns full-window auto-exposure with a 35mm f/5.6
// physical camera and autofocus off.
func DefaultSettings() Settings {
	return Settings{
		MeteringMode: metering.FullWindow,
		GridSize:     metering.DefaultGrid,
		RingCount:    metering.DefaultRings,
		Threshold:    1.0,

		AutoExposure: true,
		Compensation: 0,
		MinExposure:  -10,
		MaxExposure:  10,
		Look:         "Filmic Base Contrast",

		PhysicalExposure: false,
		Aperture:         5.6,
		ShutterSpeed:     50,
		ISO:              100,
		FPS:              24,
		FocalLength:      35,

		Autofocus:  false,
		FocusPoint: 1.0,
		BakeStep:   1,
	}
}

// Validate checks that the settings are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (s *Settings) Validate() []string {
	var errors []string

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"threshold", s.Threshold},
		{"compensation", s.Compensation},
		{"min_exposure", s.MinExposure},
		{"max_exposure", s.MaxExposure},
		{"aperture", s.Aperture},
		{"shutter_speed", s.ShutterSpeed},
		{"iso", s.ISO},
		{"fps", s.FPS},
		{"focal_length", s.FocalLength},
		{"focus_point", s.FocusPoint},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			errors = append(errors, f.name+" must be a finite number")
		}
	}

	switch s.MeteringMode {
	case metering.CenterSpot, metering.FullWindow, metering.CenterWeighted:
	default:
		errors = append(errors, "metering_mode must be center_spot, full_window, or center_weighted")
	}
	if s.GridSize < metering.MinGrid || s.GridSize > metering.MaxGrid {
		errors = append(errors, fmt.Sprintf("grid_size must be between %d and %d", metering.MinGrid, metering.MaxGrid))
	}
	if s.RingCount < metering.MinGrid || s.RingCount > metering.MaxGrid {
		errors = append(errors, fmt.Sprintf("ring_count must be between %d and %d", metering.MinGrid, metering.MaxGrid))
	}
	if s.Threshold <= 0 {
		errors = append(errors, "threshold must be positive")
	}

	if s.Compensation < -MaxCompensation || s.Compensation > MaxCompensation {
		errors = append(errors, "compensation must be between -5.0 and 5.0")
	}
	if s.MinExposure < MinExposureLimit || s.MaxExposure > MaxExposureLimit {
		errors = append(errors, "exposure bounds must be within -20.0 and 20.0")
	}
	if s.MinExposure > s.MaxExposure {
		errors = append(errors, "min_exposure must not exceed max_exposure")
	}

	if s.Aperture <= 0 {
		errors = append(errors, "aperture must be positive")
	}
	if s.ShutterSpeed <= 0 {
		errors = append(errors, "shutter_speed must be positive")
	}
	if s.ISO <= 0 || s.ISO > MaxISO {
		errors = append(errors, "iso must be between 1 and 409600")
	}
	if s.FPS <= 0 {
		errors = append(errors, "fps must be positive")
	}
	if s.FocalLength <= 0 {
		errors = append(errors, "focal_length must be positive")
	}

	if s.FocusPoint < 0 {
		errors = append(errors, "focus_point must not be negative")
	}
	if s.BakeStep < 1 {
		errors = append(errors, "bake_step must be at least 1")
	}

	return errors
}

// MeteringOptions returns the sampler options for these settings.
func (s Settings) MeteringOptions() metering.Options {
	return metering.Options{
		Mode:      s.MeteringMode,
		GridSize:  s.GridSize,
		RingCount: s.RingCount,
		Threshold: s.Threshold,
	}
}

// ExposureParams returns the controller inputs for these settings and curve.
func (s Settings) ExposureParams(curve tonecurve.Curve) exposure.Params {
	return exposure.Params{
		Curve:        curve,
		Compensation: s.Compensation,
		Min:          s.MinExposure,
		Max:          s.MaxExposure,
	}
}

// EV returns the exposure value of the physical camera settings.
func (s Settings) EV() float64 {
	return exposure.EV(s.Aperture, s.ShutterSpeed, s.ISO)
}

// MotionBlurShutter returns the shutter, in frames, implied by FPS and
// ShutterSpeed.
func (s Settings) MotionBlurShutter() float64 {
	return exposure.MotionBlurShutter(s.FPS, s.ShutterSpeed)
}

// Capabilities returns the accepted values for the settings API.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"metering_modes":   []string{metering.CenterSpot.String(), metering.FullWindow.String(), metering.CenterWeighted.String()},
		"min_grid":         metering.MinGrid,
		"max_grid":         metering.MaxGrid,
		"exposure_limits":  []float64{MinExposureLimit, MaxExposureLimit},
		"max_compensation": MaxCompensation,
		"max_iso":          MaxISO,
		"presets":          PresetNames(),
	}
}

package camera

import "github.com/teslashibe/go-realcam/pkg/metering"

// Preset names for common shooting situations
const (
	PresetDefault  = "default"
	PresetInterior = "interior"
	PresetExterior = "exterior"
	PresetNight    = "night"
	PresetSpot     = "spot"
	PresetPortrait = "portrait"
)

// Presets returns all available preset settings.
func Presets() map[string]Settings {
	return map[string]Settings{
		PresetDefault:  DefaultSettings(),
		PresetInterior: InteriorSettings(),
		PresetExterior: ExteriorSettings(),
		PresetNight:    NightSettings(),
		PresetSpot:     SpotSettings(),
		PresetPortrait: PortraitSettings(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetInterior,
		PresetExterior,
		PresetNight,
		PresetSpot,
		PresetPortrait,
	}
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *Settings {
	if s, ok := Presets()[name]; ok {
		return &s
	}
	return nil
}

// InteriorSettings favors the center of the frame and ignores bright windows.
func InteriorSettings() Settings {
	s := DefaultSettings()
	s.MeteringMode = metering.CenterWeighted
	s.Threshold = 0.9
	s.ISO = 800
	s.ShutterSpeed = 60
	s.Aperture = 2.8
	return s
}

// ExteriorSettings meters the whole frame at daylight values.
func ExteriorSettings() Settings {
	s := DefaultSettings()
	s.Look = "Filmic Medium High Contrast"
	s.Compensation = -0.3
	s.Aperture = 11
	s.ShutterSpeed = 250
	s.ISO = 100
	return s
}

// NightSettings opens the exposure range and lifts shadows.
func NightSettings() Settings {
	s := DefaultSettings()
	s.MeteringMode = metering.CenterWeighted
	s.Look = "Filmic Low Contrast"
	s.Compensation = 1.0
	s.MaxExposure = 16
	s.Aperture = 1.8
	s.ISO = 3200
	return s
}

// SpotSettings meters a single center pixel.
func SpotSettings() Settings {
	s := DefaultSettings()
	s.MeteringMode = metering.CenterSpot
	return s
}

// PortraitSettings pairs center-weighted metering with autofocus.
func PortraitSettings() Settings {
	s := DefaultSettings()
	s.MeteringMode = metering.CenterWeighted
	s.RingCount = 6
	s.Aperture = 2.0
	s.ShutterSpeed = 125
	s.Autofocus = true
	return s
}

// Package metering measures on-screen luminance for auto-exposure.
//
// A Sampler reads pixels from a Framebuffer following a spatial pattern
// (the metering Mode) and reduces them to one luminance value. Each mode is
// a Strategy; the Sampler picks the strategy once per frame.
//
// A Sampler is not safe for concurrent use. Calling Meter from several
// render contexts at once is undefined.
package metering

import (
	"fmt"
	"strings"
)

// Framebuffer is the host capability to read the visible frame.
type Framebuffer interface {
	// Size returns the viewport size in pixels.
	Size() (width, height int)

	// ReadPixel returns linear RGB at integer framebuffer coordinates.
	ReadPixel(x, y int) (r, g, b float64)
}

// Mode selects the metering pattern.
type Mode int

const (
	// CenterSpot reads one pixel at the frame center.
	CenterSpot Mode = iota

	// FullWindow reads an evenly spaced grid over the whole frame.
	FullWindow

	// CenterWeighted reads concentric square rings, weighting inner rings higher.
	CenterWeighted
)

// String returns the mode name used in settings files and the API.
func (m Mode) String() string {
	switch m {
	case CenterSpot:
		return "center_spot"
	case FullWindow:
		return "full_window"
	case CenterWeighted:
		return "center_weighted"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name as produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "center_spot", "spot", "center":
		return CenterSpot, nil
	case "full_window", "full", "window":
		return FullWindow, nil
	case "center_weighted", "weighted":
		return CenterWeighted, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Sample is one raw reading used to build a Reading.
type Sample struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Luminance float64 `json:"luminance"`
	Weight    float64 `json:"weight"`
}

// Reading is the per-frame metering result. It is discarded after the frame.
type Reading struct {
	// Luminance is the aggregate luminance (>= 0).
	Luminance float64 `json:"luminance"`

	// Mode is the pattern that produced the reading.
	Mode Mode `json:"mode"`

	// Samples are the samples that contributed after filtering and trimming.
	Samples []Sample `json:"samples,omitempty"`

	// Candidates is the number of positions read before filtering.
	Candidates int `json:"candidates"`

	// Fallback is true when the threshold removed every sample and the
	// unfiltered set was aggregated instead.
	Fallback bool `json:"fallback"`
}

// Options configures a Sampler.
type Options struct {
	Mode      Mode
	GridSize  int     // FullWindow grid G (2-20)
	RingCount int     // CenterWeighted ring count C (2-20)
	Threshold float64 // samples with luminance above this are discarded
}

// Grid and ring bounds.
const (
	MinGrid        = 2
	MaxGrid        = 20
	DefaultGrid    = 7
	DefaultRings   = 4
	TrimCount      = 2 // samples trimmed from each end
	TrimMinSamples = 5 // trimming applies when more than this many remain
)

// DefaultOptions returns FullWindow metering with the default grid.
func DefaultOptions() Options {
	return Options{
		Mode:      FullWindow,
		GridSize:  DefaultGrid,
		RingCount: DefaultRings,
		Threshold: 1.0,
	}
}

// Luminance reduces linear RGB with Rec. 709 coefficients.
func Luminance(r, g, b float64) float64 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

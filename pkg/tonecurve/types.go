// Package tonecurve holds the camera response ("look") curves used by
// auto-exposure and performs forward and inverse lookups over them.
//
// A curve maps a normalized log-encoded scene value in [0,1] to a
// display-referred value. The log encoding spans 16.5 stops around
// middle gray: 10 stops below and 6.5 stops above 0.18.
package tonecurve

// Curve is an ordered, monotonically non-decreasing table of display values
// sampled at uniform steps of the normalized log input.
// Curves are immutable once loaded and safe to share between goroutines.
type Curve struct {
	// Name is the look name (e.g., "Filmic Base Contrast").
	Name string

	// Description explains the character of the look.
	Description string

	values []float64
}

// CurveData represents the raw JSON structure of a curve file.
type CurveData struct {
	// Name is the look name the curve is selected by.
	Name string `json:"name"`

	// Description is a human-readable description of the look.
	Description string `json:"description"`

	// Values are display values at uniform log-input steps.
	Values []float64 `json:"values"`
}

// Len returns the number of table entries.
func (c Curve) Len() int {
	return len(c.values)
}

// At returns the display value stored at index i.
func (c Curve) At(i int) float64 {
	return c.values[i]
}

// Step returns the width of one table step in normalized log input.
func (c Curve) Step() float64 {
	if len(c.values) < 2 {
		return 1
	}
	return 1 / float64(len(c.values)-1)
}

// LookInfo describes an available look for listings.
type LookInfo struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Samples     int    `json:"samples"`
}

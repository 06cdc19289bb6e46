package tonecurve

import (
	"fmt"
	"math"
	"sort"
)

// Log encoding constants. MiddleGray is the scene-linear value that encodes
// to 10/16.5 of the normalized range.
const (
	MiddleGray = 0.18
	StopsBelow = 10.0
	StopsRange = 16.5
)

// New builds a curve from display values. The values are copied.
// A curve needs at least two entries and must be non-decreasing.
func New(name, description string, values []float64) (Curve, error) {
	if len(values) < 2 {
		return Curve{}, fmt.Errorf("%w: look %q has %d samples, need at least 2", ErrCurveData, name, len(values))
	}
	for i := 1; i < len(values); i++ {
		if math.IsNaN(values[i]) || values[i] < values[i-1] {
			return Curve{}, fmt.Errorf("%w: look %q is not monotonic at index %d", ErrCurveData, name, i)
		}
	}

	v := make([]float64, len(values))
	copy(v, values)
	return Curve{Name: name, Description: description, values: v}, nil
}

// Forward maps a normalized log value to a display value.
// The input is clamped to [0,1] and the table is indexed by floor(x*(N-1)).
func Forward(c Curve, logValue float64) float64 {
	n := len(c.values)
	if n == 0 {
		return 0
	}
	x := clamp(logValue, 0, 1)
	if math.IsNaN(x) {
		x = 0
	}
	return c.values[int(math.Floor(x*float64(n-1)))]
}

// Inverse returns the normalized log value whose table entry first exceeds
// display: the index of the last entry <= display, plus one, over N.
// The result lies in (0,1]; targets below the first entry report 1/N.
//
// The curve must be non-decreasing; that is checked when it is built, not here.
func Inverse(c Curve, display float64) float64 {
	n := len(c.values)
	if n == 0 {
		return 0
	}
	i := sort.Search(n, func(i int) bool { return c.values[i] > display })
	if i == 0 {
		i = 1
	}
	return float64(i) / float64(n)
}

// Encode converts a scene-linear value to the normalized log encoding.
// Non-positive input encodes below the range and is clamped by Forward.
func Encode(sceneLinear float64) float64 {
	return (math.Log2(sceneLinear/MiddleGray) + StopsBelow) / StopsRange
}

// Decode is the inverse of Encode.
func Decode(logValue float64) float64 {
	return MiddleGray * math.Exp2(logValue*StopsRange-StopsBelow)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

package exposure

import "math"

// EV returns the exposure value for an f-number, shutter speed (1/s) and
// ISO, rounded to two decimals: log2(100·N²/(ISO·t)).
func EV(aperture, shutterSpeed, iso float64) float64 {
	t := 1 / shutterSpeed
	ev := math.Log2(100 * aperture * aperture / (iso * t))
	return math.Round(ev*100) / 100
}

// PhysicalExposure maps an EV to the filmic view exposure used when
// auto-exposure is off: -0.68·EV + 5.95.
func PhysicalExposure(ev float64) float64 {
	return -0.68*ev + 5.95
}

// MotionBlurShutter returns the motion blur shutter, in frames, for a
// shutter speed of 1/shutterSpeed seconds at fps frames per second.
func MotionBlurShutter(fps, shutterSpeed float64) float64 {
	return fps * (1 / shutterSpeed)
}

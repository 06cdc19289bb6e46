package tonecurve

import "errors"

var (
	// ErrCurveData is returned when a curve table is missing, unreadable or malformed.
	ErrCurveData = errors.New("invalid response curve data")

	// ErrNoBaseLook is returned when a curve set is built without its base look.
	ErrNoBaseLook = errors.New("base look not loaded")
)

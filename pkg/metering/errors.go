package metering

import "errors"

var (
	// ErrNoData is returned when the viewport has no pixels to meter.
	ErrNoData = errors.New("no metering data")

	// ErrUnknownMode is returned when parsing an unrecognized mode name.
	ErrUnknownMode = errors.New("unknown metering mode")
)

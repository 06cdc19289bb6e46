package track

import "errors"

var (
	// ErrEmptyPath is returned when a keyframe is inserted without a channel path.
	ErrEmptyPath = errors.New("empty channel path")

	// ErrInvalidValue is returned for NaN or infinite keyframe values.
	ErrInvalidValue = errors.New("invalid keyframe value")
)

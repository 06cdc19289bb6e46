package camera

import "errors"

var (
	// ErrInvalidSettings is returned when Settings.Validate reports problems.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrUnknownPreset is returned for a preset name that does not exist.
	ErrUnknownPreset = errors.New("unknown preset")
)

package engine

import "errors"

var (
	// ErrNoHost is returned when an engine is built without a host.
	ErrNoHost = errors.New("engine: no host")

	// ErrNoLooks is returned when an engine is built without a look set.
	ErrNoLooks = errors.New("engine: no look set")

	// ErrNoTrack is returned by Bake when no timeline or track store is configured.
	ErrNoTrack = errors.New("engine: baking needs a timeline and a track store")
)

package bridge

import "errors"

var (
	// ErrNotConnected is returned when no host is attached
	ErrNotConnected = errors.New("host not connected")

	// ErrHostConnected is returned when a second host tries to attach
	ErrHostConnected = errors.New("a host is already connected")

	// ErrBadFrame is returned for frames whose payload does not match their size
	ErrBadFrame = errors.New("malformed frame")

	// ErrUnknownFormat is returned for unsupported frame formats
	ErrUnknownFormat = errors.New("unknown frame format")
)

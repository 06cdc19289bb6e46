package bake

import "errors"

var (
	// ErrBakeFailed wraps track store failures during a sweep.
	ErrBakeFailed = errors.New("bake failed")

	// ErrInvalidStep is returned for a frame stride below 1.
	ErrInvalidStep = errors.New("invalid bake step")
)

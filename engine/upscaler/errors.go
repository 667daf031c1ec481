package upscaler

import "errors"

var (
	// ErrInitialization is returned by Enable when the host surface or backend is missing or the
	// display resolution is degenerate. The upscaler becomes inert for the rest of its life.
	ErrInitialization = errors.New("upscaler initialization failed")

	// ErrUnsupportedConfiguration is returned when the display resolution lies outside the configured
	// bounds or the platform is not in the supported set. No backend resource is created.
	ErrUnsupportedConfiguration = errors.New("unsupported upscaler configuration")

	// ErrNotInitialized is returned by accessors and frame operations outside the initialized state.
	ErrNotInitialized = errors.New("upscaler not initialized")

	// ErrDegenerateResolution is returned by OnFrame when the observed display has a zero or negative
	// component, e.g. while the window is minimized. The frame is skipped.
	ErrDegenerateResolution = errors.New("degenerate display resolution")

	// ErrUnknownHandle is returned by a Backend for a handle it did not issue or already destroyed.
	ErrUnknownHandle = errors.New("unknown upscaler handle")
)

package upscaler

// UpscalerBuilderOption is a functional option applied to an upscaler during construction via NewUpscaler.
type UpscalerBuilderOption func(*upscalerImpl)

// WithName sets the identifier used in log output.
//
// Parameters:
//   - name: the upscaler name
//
// Returns:
//   - UpscalerBuilderOption: a function that sets the name
func WithName(name string) UpscalerBuilderOption {
	return func(u *upscalerImpl) {
		u.name = name
	}
}

// WithPlatform overrides the platform name checked against the supported platform set.
// Defaults to settings.CurrentPlatform().
//
// Parameters:
//   - platform: the platform name
//
// Returns:
//   - UpscalerBuilderOption: a function that sets the platform
func WithPlatform(platform string) UpscalerBuilderOption {
	return func(u *upscalerImpl) {
		u.platform = platform
	}
}

// WithLogging enables or disables lifecycle log output. Enabled by default.
//
// Parameters:
//   - enabled: true to log lifecycle transitions
//
// Returns:
//   - UpscalerBuilderOption: a function that sets logging
func WithLogging(enabled bool) UpscalerBuilderOption {
	return func(u *upscalerImpl) {
		u.logging = enabled
	}
}

package settings

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-upscale/engine/quality"
)

// SettingsBuilderOption is a functional option applied to Settings by New.
type SettingsBuilderOption func(*Settings)

// WithQualityMode sets the quality mode.
//
// Parameters:
//   - mode: the quality mode to use
//
// Returns:
//   - SettingsBuilderOption: a function that sets the quality mode
func WithQualityMode(mode quality.Mode) SettingsBuilderOption {
	return func(s *Settings) {
		s.QualityMode = mode
	}
}

// WithImageQuality replaces the image quality parameters.
//
// Parameters:
//   - q: the anti-ghosting and sharpening parameters
//
// Returns:
//   - SettingsBuilderOption: a function that sets the image quality
func WithImageQuality(q ImageQuality) SettingsBuilderOption {
	return func(s *Settings) {
		s.ImageQuality = q
	}
}

// WithSharpening enables sharpening at the given strength.
//
// Parameters:
//   - sharpness: sharpen strength in [0, 1]
//
// Returns:
//   - SettingsBuilderOption: a function that enables sharpening
func WithSharpening(sharpness float64) SettingsBuilderOption {
	return func(s *Settings) {
		s.ImageQuality.Sharpening = true
		s.ImageQuality.Sharpness = sharpness
	}
}

// WithAntiGhosting sets the anti-ghosting strength.
//
// Parameters:
//   - strength: anti-ghosting strength in [0, 1]
//
// Returns:
//   - SettingsBuilderOption: a function that sets anti-ghosting
func WithAntiGhosting(strength float64) SettingsBuilderOption {
	return func(s *Settings) {
		s.ImageQuality.AntiGhosting = strength
	}
}

// WithBounds sets the inclusive display resolution bounds.
//
// Parameters:
//   - minWidth, minHeight: smallest accepted display size
//   - maxWidth, maxHeight: largest accepted display size
//
// Returns:
//   - SettingsBuilderOption: a function that sets the bounds
func WithBounds(minWidth, minHeight, maxWidth, maxHeight int) SettingsBuilderOption {
	return func(s *Settings) {
		s.Bounds = Bounds{
			MinWidth:  minWidth,
			MinHeight: minHeight,
			MaxWidth:  maxWidth,
			MaxHeight: maxHeight,
		}
	}
}

// WithSupportedPlatforms replaces the supported platform set.
//
// Parameters:
//   - platforms: platform names, see the Platform* constants
//
// Returns:
//   - SettingsBuilderOption: a function that sets the supported platforms
func WithSupportedPlatforms(platforms ...string) SettingsBuilderOption {
	return func(s *Settings) {
		s.SupportedPlatforms = slices.Clone(platforms)
	}
}

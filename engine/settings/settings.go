// Package settings holds the upscaler configuration: the default quality mode, image quality
// parameters, the supported display bounds, and the set of platforms the upscaler may run on.
// A Settings value is constructed explicitly and handed to each upscaler; there is no global instance.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"

	"github.com/Carmen-Shannon/oxy-upscale/common"
	"github.com/Carmen-Shannon/oxy-upscale/engine/quality"
)

// ErrInvalidSettings is returned when a Settings or ImageQuality value fails validation.
var ErrInvalidSettings = errors.New("invalid upscaler settings")

// Platform names recognised by PlatformSupported and CurrentPlatform.
const (
	PlatformWindows = "Windows"
	PlatformLinux   = "Linux"
	PlatformMacOS   = "macOS"
)

// ImageQuality is passed through to the upscaler backend on every execute call.
type ImageQuality struct {
	// AntiGhosting reduces how much of the previous frame is blended into the current one. Range [0, 1].
	AntiGhosting float64 `json:"anti_ghosting"`
	// Sharpening enables the post-upscale sharpen step.
	Sharpening bool `json:"sharpening"`
	// Sharpness is the sharpen strength used when Sharpening is set. Range [0, 1].
	Sharpness float64 `json:"sharpness"`
}

// Validate rejects values outside [0, 1]. Nothing is clamped.
func (q ImageQuality) Validate() error {
	if !inUnitRange(q.AntiGhosting) {
		return fmt.Errorf("%w: anti-ghosting %v outside [0, 1]", ErrInvalidSettings, q.AntiGhosting)
	}
	if !inUnitRange(q.Sharpness) {
		return fmt.Errorf("%w: sharpness %v outside [0, 1]", ErrInvalidSettings, q.Sharpness)
	}
	return nil
}

// Bounds is the inclusive range of display resolutions the upscaler accepts.
type Bounds struct {
	MinWidth  int `json:"min_width"`
	MinHeight int `json:"min_height"`
	MaxWidth  int `json:"max_width"`
	MaxHeight int `json:"max_height"`
}

// Contains reports whether res lies inside the bounds on both axes.
func (b Bounds) Contains(res common.Resolution) bool {
	return res.Width >= b.MinWidth && res.Width <= b.MaxWidth &&
		res.Height >= b.MinHeight && res.Height <= b.MaxHeight
}

// Settings is the configuration consumed by an upscaler at enable time and whenever it is edited.
type Settings struct {
	// QualityMode is the mode applied on each Tick.
	QualityMode quality.Mode `json:"quality_mode"`
	// ImageQuality is forwarded to the backend on every execute.
	ImageQuality ImageQuality `json:"image_quality"`
	// Bounds limits the display resolutions the upscaler accepts.
	Bounds Bounds `json:"bounds"`
	// SupportedPlatforms lists platform names the upscaler may be enabled on.
	SupportedPlatforms []string `json:"supported_platforms"`
}

// Default returns the stock configuration: balanced mode, no anti-ghosting, sharpening off with a
// 0.5 sharpness preset, 1280x720 to 7680x4320 displays, Windows only.
func Default() Settings {
	return Settings{
		QualityMode: quality.ModeBalanced,
		ImageQuality: ImageQuality{
			AntiGhosting: 0,
			Sharpening:   false,
			Sharpness:    0.5,
		},
		Bounds: Bounds{
			MinWidth:  1280,
			MinHeight: 720,
			MaxWidth:  7680,
			MaxHeight: 4320,
		},
		SupportedPlatforms: []string{PlatformWindows},
	}
}

// New returns Default with the given options applied.
//
// Parameters:
//   - options: functional options overriding the defaults
//
// Returns:
//   - Settings: the configured settings (not validated)
func New(options ...SettingsBuilderOption) Settings {
	s := Default()
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// Validate checks every field. Out-of-range values are rejected rather than clamped.
func (s Settings) Validate() error {
	if !s.QualityMode.Known() {
		return fmt.Errorf("%w: unknown quality mode %d", ErrInvalidSettings, int(s.QualityMode))
	}
	if err := s.ImageQuality.Validate(); err != nil {
		return err
	}
	b := s.Bounds
	if b.MinWidth <= 0 || b.MinHeight <= 0 {
		return fmt.Errorf("%w: minimum resolution %dx%d must be positive", ErrInvalidSettings, b.MinWidth, b.MinHeight)
	}
	if b.MaxWidth < b.MinWidth || b.MaxHeight < b.MinHeight {
		return fmt.Errorf("%w: maximum resolution %dx%d below minimum %dx%d",
			ErrInvalidSettings, b.MaxWidth, b.MaxHeight, b.MinWidth, b.MinHeight)
	}
	if len(s.SupportedPlatforms) == 0 {
		return fmt.Errorf("%w: no supported platforms", ErrInvalidSettings)
	}
	return nil
}

// ResolutionSupported reports whether res is inside the configured bounds.
func (s Settings) ResolutionSupported(res common.Resolution) bool {
	return s.Bounds.Contains(res)
}

// PlatformSupported reports whether platform is in the supported set.
func (s Settings) PlatformSupported(platform string) bool {
	return slices.Contains(s.SupportedPlatforms, platform)
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	s.SupportedPlatforms = slices.Clone(s.SupportedPlatforms)
	return s
}

// CurrentPlatform names the platform this process runs on.
//
// Returns:
//   - string: one of the Platform* constants, or runtime.GOOS for anything else
func CurrentPlatform() string {
	switch runtime.GOOS {
	case "windows":
		return PlatformWindows
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformMacOS
	default:
		return runtime.GOOS
	}
}

// Load reads settings from a JSON file. Fields missing from the file keep their Default values.
// The result is validated before it is returned.
//
// Parameters:
//   - path: the JSON file to read
//
// Returns:
//   - Settings: the loaded settings
//   - error: error if the file cannot be read, decoded, or fails validation
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	s := Default()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Save validates s and writes it to path as indented JSON.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", path, err)
	}
	return nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

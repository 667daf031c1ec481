// Package quality maps upscaler quality modes to scale ratios and derives the reduced render
// resolution from a display resolution. Everything here is stateless and safe for concurrent use.
package quality

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-upscale/common"
)

// Mode selects how aggressively the render resolution is reduced below the display resolution.
type Mode int

const (
	// ModeQuality renders at 1/1.5 of the display resolution.
	ModeQuality Mode = iota

	// ModeBalanced renders at 1/1.7 of the display resolution.
	ModeBalanced

	// ModePerformance renders at half the display resolution.
	ModePerformance

	// ModeUltraPerformance renders at a third of the display resolution.
	ModeUltraPerformance
)

// NativeRatio is the ratio used for any mode outside the table: render at display resolution.
const NativeRatio = 1.0

// ratios is indexed by Mode.
var ratios = [...]float64{
	ModeQuality:          1.5,
	ModeBalanced:         1.7,
	ModePerformance:      2.0,
	ModeUltraPerformance: 3.0,
}

var modeNames = [...]string{
	ModeQuality:          "quality",
	ModeBalanced:         "balanced",
	ModePerformance:      "performance",
	ModeUltraPerformance: "ultra_performance",
}

// Modes returns every defined mode in ascending order of ratio.
func Modes() []Mode {
	return []Mode{ModeQuality, ModeBalanced, ModePerformance, ModeUltraPerformance}
}

// Known reports whether m is one of the defined modes.
func (m Mode) Known() bool {
	return m >= 0 && int(m) < len(ratios)
}

func (m Mode) String() string {
	if !m.Known() {
		return "unknown(" + strconv.Itoa(int(m)) + ")"
	}
	return modeNames[m]
}

// Next returns the following mode, wrapping from ultra performance back to quality.
// Unknown modes step to ModeQuality.
func (m Mode) Next() Mode {
	if !m.Known() {
		return ModeQuality
	}
	return Mode((int(m) + 1) % len(ratios))
}

// MarshalText encodes a known mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Known() {
		return nil, fmt.Errorf("cannot encode quality mode %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText decodes a mode name as produced by MarshalText.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode resolves a mode name. Matching ignores case and accepts '-' or ' ' in place of '_'.
//
// Parameters:
//   - name: the mode name, e.g. "balanced" or "ultra-performance"
//
// Returns:
//   - Mode: the parsed mode
//   - error: error if the name does not match any mode
func ParseMode(name string) (Mode, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for i, n := range modeNames {
		if n == normalized {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown quality mode %q", name)
}

// RatioFor returns the display-to-render scale ratio for a mode.
// Modes outside the table fall back to NativeRatio instead of failing.
//
// Parameters:
//   - mode: the quality mode
//
// Returns:
//   - float64: the scale ratio, always >= 1
func RatioFor(mode Mode) float64 {
	if !mode.Known() {
		return NativeRatio
	}
	return ratios[mode]
}

// RenderResolution divides each display component by ratio, floors it, and clamps it to at least 1.
// A ratio below 1 (or NaN) is treated as 1 so the result never exceeds the display.
//
// Parameters:
//   - display: the display resolution
//   - ratio: the scale ratio
//
// Returns:
//   - common.Resolution: the reduced render resolution
func RenderResolution(display common.Resolution, ratio float64) common.Resolution {
	if !(ratio >= 1) {
		ratio = 1
	}
	return common.Resolution{
		Width:  scaleDown(display.Width, ratio),
		Height: scaleDown(display.Height, ratio),
	}
}

// ResolutionFor is RenderResolution(display, RatioFor(mode)).
func ResolutionFor(display common.Resolution, mode Mode) common.Resolution {
	return RenderResolution(display, RatioFor(mode))
}

func scaleDown(v int, ratio float64) int {
	scaled := int(math.Floor(float64(v) / ratio))
	return max(scaled, 1)
}

// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "strconv"

// Resolution is a pixel size in width and height.
// Both the display resolution (owned by the host surface) and the reduced render resolution
// (owned by an upscaler) are expressed with this type.
type Resolution struct {
	// Width is the horizontal size in pixels.
	Width int
	// Height is the vertical size in pixels.
	Height int
}

// Degenerate reports whether either component is zero or negative.
//
// Returns:
//   - bool: true if the resolution cannot be rendered to
func (r Resolution) Degenerate() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Fits reports whether r is no larger than other in both components.
//
// Parameters:
//   - other: the resolution to compare against
//
// Returns:
//   - bool: true if r.Width <= other.Width and r.Height <= other.Height
func (r Resolution) Fits(other Resolution) bool {
	return r.Width <= other.Width && r.Height <= other.Height
}

// Pixels returns the total pixel count, or 0 for a degenerate resolution.
func (r Resolution) Pixels() int {
	if r.Degenerate() {
		return 0
	}
	return r.Width * r.Height
}

func (r Resolution) String() string {
	return strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height)
}

// RenderingPath identifies how the host camera renders a frame.
// A change of rendering path invalidates any upscaler resource sized for the previous path.
type RenderingPath int

const (
	// RenderingPathForward draws every object with all lights in a single pass.
	RenderingPathForward RenderingPath = iota

	// RenderingPathForwardPlus draws in a single pass after a tiled light culling compute step.
	RenderingPathForwardPlus

	// RenderingPathDeferred writes a G-buffer first and shades in a separate pass.
	RenderingPathDeferred
)

func (p RenderingPath) String() string {
	switch p {
	case RenderingPathForward:
		return "forward"
	case RenderingPathForwardPlus:
		return "forward+"
	case RenderingPathDeferred:
		return "deferred"
	default:
		return "unknown(" + strconv.Itoa(int(p)) + ")"
	}
}

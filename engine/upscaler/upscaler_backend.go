package upscaler

import (
	"github.com/Carmen-Shannon/oxy-upscale/common"
	"github.com/Carmen-Shannon/oxy-upscale/engine/quality"
	"github.com/Carmen-Shannon/oxy-upscale/engine/settings"
)

// Handle identifies a backend upscaler resource. The zero Handle is never issued.
type Handle uint64

// Descriptor describes the resource a Backend must create.
type Descriptor struct {
	// Render is the reduced resolution the host renders at.
	Render common.Resolution
	// Display is the resolution the backend reconstructs.
	Display common.Resolution
	// Mode is the quality mode Render was derived from.
	Mode quality.Mode
}

// Backend creates, executes, and destroys upscaler resources. Creation and destruction may be expensive;
// the Upscaler only calls them when the descriptor changes.
type Backend interface {
	// Create allocates a resource for desc.
	//
	// Parameters:
	//   - desc: the render and display resolutions and the quality mode
	//
	// Returns:
	//   - Handle: the new resource handle
	//   - error: error if the resource could not be created
	Create(desc Descriptor) (Handle, error)

	// Execute reconstructs one display-resolution frame from the resource's render-resolution input.
	//
	// Parameters:
	//   - h: the resource handle
	//   - params: image quality parameters for this frame
	//
	// Returns:
	//   - error: error if execution failed or h is unknown
	Execute(h Handle, params settings.ImageQuality) error

	// Destroy releases the resource. A destroyed handle is unknown afterwards.
	//
	// Parameters:
	//   - h: the resource handle
	//
	// Returns:
	//   - error: error if h is unknown or release failed
	Destroy(h Handle) error
}

// maxHistoryWeight is the share of the previous output blended into a frame when anti-ghosting is 0.
const maxHistoryWeight = 0.5

// historyWeight returns how much of the previous output to blend into the current frame.
func historyWeight(params settings.ImageQuality) float64 {
	return maxHistoryWeight * (1 - params.AntiGhosting)
}

// sharpenAmount returns the sharpen strength, or 0 when sharpening is disabled.
func sharpenAmount(params settings.ImageQuality) float64 {
	if !params.Sharpening {
		return 0
	}
	return params.Sharpness
}

package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-upscale/engine/camera"
	"github.com/Carmen-Shannon/oxy-upscale/engine/profiler"
	"github.com/Carmen-Shannon/oxy-upscale/engine/upscaler"
	"github.com/Carmen-Shannon/oxy-upscale/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the engine's profiler, e.g. one built with a custom clock or intervals.
//
// Parameters:
//   - p: the profiler to use
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets the window the engine runs in. Its resize and key events are routed to the engine.
// Without a window the engine is driven headless via Frame.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithWorkers sets the number of workers that tick views in parallel.
// Defaults to one less than the number of CPUs, minimum 1.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWorkers(n int) EngineBuilderOption {
	return func(e *engine) {
		e.workers = max(n, 1)
	}
}

// WithView registers a view during engine construction. Unlike AddView, the upscaler is not enabled.
//
// Parameters:
//   - key: the view key
//   - cam: the camera
//   - up: the upscaler bound to cam
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithView(key int, cam camera.Camera, up upscaler.Upscaler) EngineBuilderOption {
	return func(e *engine) {
		e.views[key] = View{Camera: cam, Upscaler: up}
	}
}

// WithViewRenderCallback sets the function that draws each view's reduced-resolution frame.
//
// Parameters:
//   - callback: the per-view render function
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithViewRenderCallback(callback ViewRenderFunc) EngineBuilderOption {
	return func(e *engine) {
		e.viewRender = callback
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}

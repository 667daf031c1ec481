package profiler

import "time"

// ProfilerBuilderOption is a functional option applied to a Profiler by NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithClock replaces the time source. Used to drive the profiler deterministically.
//
// Parameters:
//   - now: function returning the current time
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// WithSampleInterval sets how often the instantaneous FPS is sampled.
//
// Parameters:
//   - d: the sample interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithSampleInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.sampleInterval = d
		}
	}
}

// WithWindow sets the length of the rolling window used for average, min and max.
//
// Parameters:
//   - d: the window length
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithWindow(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.window = d
		}
	}
}

// WithLogInterval sets how often statistics are written to the log.
//
// Parameters:
//   - d: the log interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.logInterval = d
		}
	}
}

// WithLogging enables or disables log output.
//
// Parameters:
//   - enabled: true to log statistics
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogging(enabled bool) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.logging = enabled
	}
}

package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-upscale/common"
	"github.com/Carmen-Shannon/oxy-upscale/engine/quality"
	"github.com/Carmen-Shannon/oxy-upscale/engine/upscaler"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestProfiler(clock *fakeClock, options ...ProfilerBuilderOption) *Profiler {
	opts := append([]ProfilerBuilderOption{WithClock(clock.now), WithLogging(false)}, options...)
	return NewProfiler(opts...)
}

// runFrames ticks n frames spaced by frameTime and returns how many ticks took a sample.
func runFrames(p *Profiler, clock *fakeClock, n int, frameTime time.Duration) int {
	sampled := 0
	for range n {
		clock.advance(frameTime)
		if p.Tick() {
			sampled++
		}
	}
	return sampled
}

func TestTick_SamplesEveryHalfSecond(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := newTestProfiler(clock)

	assert.Zero(t, p.FPS())

	// 50 FPS for one second gives two samples.
	sampled := runFrames(p, clock, 50, 20*time.Millisecond)
	assert.Equal(t, 2, sampled)
	assert.InDelta(t, 50, p.FPS(), 1e-9)

	s := p.Summary()
	assert.Equal(t, 2, s.Samples)
	assert.InDelta(t, 50, s.Average, 1e-9)
}

func TestSummary_RollingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := newTestProfiler(clock)

	runFrames(p, clock, 400, 25*time.Millisecond) // 10s at 40 FPS
	runFrames(p, clock, 100, 10*time.Millisecond) // 1s at 100 FPS

	s := p.Summary()
	assert.InDelta(t, 100, s.FPS, 1e-6)
	assert.InDelta(t, 40, s.Min, 1e-6)
	assert.InDelta(t, 100, s.Max, 1e-6)
	assert.Equal(t, 20, s.Samples)
	assert.InDelta(t, (18*40+2*100)/20.0, s.Average, 1e-6)

	// 10 more seconds at 100 FPS pushes the 40 FPS samples out of the window.
	runFrames(p, clock, 1000, 10*time.Millisecond)
	s = p.Summary()
	assert.InDelta(t, 100, s.Min, 1e-6)
	assert.InDelta(t, 100, s.Average, 1e-6)
}

func TestSummary_Empty(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := newTestProfiler(clock)

	clock.advance(100 * time.Millisecond)
	assert.False(t, p.Tick())
	assert.Equal(t, Summary{}, p.Summary())
}

func TestOptions(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := newTestProfiler(clock, WithSampleInterval(time.Second), WithWindow(2*time.Second), WithLogInterval(time.Hour))

	assert.Equal(t, 3, runFrames(p, clock, 30, 100*time.Millisecond))
	assert.Equal(t, 2, p.Summary().Samples)
	assert.InDelta(t, 10, p.FPS(), 0.01)
}

func TestObserve_UpscalerLine(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := newTestProfiler(clock)

	p.Observe("b", upscaler.Stats{State: upscaler.StateDisabled})
	p.Observe("a", upscaler.Stats{
		State:   upscaler.StateInitialized,
		Display: common.Resolution{Width: 1920, Height: 1080},
		Render:  common.Resolution{Width: 960, Height: 540},
		Mode:    quality.ModePerformance,
		Creates: 2,
	})

	line := p.upscalerLine()
	require.NotEmpty(t, line)
	assert.Equal(t, "a: initialized 960x540->1920x1080 performance (creates 2, destroys 0) | b: disabled 0x0->0x0 quality (creates 0, destroys 0)", line)

	p.Forget("a")
	p.Forget("b")
	assert.Empty(t, p.upscalerLine())
}

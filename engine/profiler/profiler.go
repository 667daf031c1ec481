package profiler

import (
	"fmt"
	"log"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-upscale/engine/upscaler"
)

// sample is one instantaneous FPS measurement.
type sample struct {
	at  time.Time
	fps float64
}

// Summary is a snapshot of the profiler's frame rate statistics.
type Summary struct {
	// FPS is the most recent instantaneous frame rate.
	FPS float64
	// Average, Min and Max are taken over the samples inside the rolling window.
	Average float64
	Min     float64
	Max     float64
	// Samples is the number of samples inside the rolling window.
	Samples int
}

// Profiler tracks frame rate, memory statistics, and per-upscaler state for performance monitoring.
// The instantaneous FPS is sampled every sample interval (0.5s), and average/min/max are kept over a
// rolling window (10s). Stats are written to the log at the log interval.
type Profiler struct {
	mu *sync.Mutex

	now            func() time.Time
	sampleInterval time.Duration
	window         time.Duration
	logInterval    time.Duration
	logging        bool

	frameCount  int
	sampleStart time.Time
	lastLog     time.Time
	fps         float64
	samples     []sample

	upscalers map[string]upscaler.Stats

	memStats       runtime.MemStats
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler.
// Defaults: 0.5s sample interval, 10s rolling window, 1s log interval, logging enabled, wall clock.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		now:            time.Now,
		sampleInterval: 500 * time.Millisecond,
		window:         10 * time.Second,
		logInterval:    time.Second,
		logging:        true,
		upscalers:      make(map[string]upscaler.Stats),
	}
	for _, opt := range options {
		opt(p)
	}
	start := p.now()
	p.sampleStart = start
	p.lastLog = start
	return p
}

// Tick should be called once per frame to track frame timing.
// Takes an FPS sample when the sample interval has elapsed and logs statistics when the log interval has elapsed.
//
// Returns:
//   - bool: true if an FPS sample was taken this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	now := p.now()
	elapsed := now.Sub(p.sampleStart)
	if elapsed < p.sampleInterval {
		return false
	}

	p.fps = float64(p.frameCount) / elapsed.Seconds()
	p.samples = append(p.samples, sample{at: now, fps: p.fps})
	p.prune(now)
	p.frameCount = 0
	p.sampleStart = now

	if p.logging && now.Sub(p.lastLog) >= p.logInterval {
		p.logStats(now.Sub(p.lastLog))
		p.lastLog = now
	}
	return true
}

// Observe records the latest stats of an upscaler for inclusion in the log output.
//
// Parameters:
//   - name: the upscaler name
//   - stats: the upscaler's stats snapshot
func (p *Profiler) Observe(name string, stats upscaler.Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.upscalers[name] = stats
}

// Forget drops an upscaler from the log output.
//
// Parameters:
//   - name: the upscaler name
func (p *Profiler) Forget(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.upscalers, name)
}

// FPS returns the most recent instantaneous frame rate, or 0 before the first sample.
func (p *Profiler) FPS() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fps
}

// Summary returns the current frame rate statistics over the rolling window.
//
// Returns:
//   - Summary: the statistics snapshot
func (p *Profiler) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary()
}

// summary computes the windowed statistics. Caller must hold the mutex.
func (p *Profiler) summary() Summary {
	s := Summary{FPS: p.fps, Samples: len(p.samples)}
	if len(p.samples) == 0 {
		return s
	}
	s.Min = math.Inf(1)
	s.Max = math.Inf(-1)
	var sum float64
	for _, smp := range p.samples {
		sum += smp.fps
		s.Min = math.Min(s.Min, smp.fps)
		s.Max = math.Max(s.Max, smp.fps)
	}
	s.Average = sum / float64(len(p.samples))
	return s
}

// prune drops samples older than the rolling window. Caller must hold the mutex.
func (p *Profiler) prune(now time.Time) {
	cutoff := now.Add(-p.window)
	i := 0
	for i < len(p.samples) && !p.samples[i].at.After(cutoff) {
		i++
	}
	p.samples = p.samples[i:]
}

// logStats writes the frame rate, memory, and upscaler statistics. Caller must hold the mutex.
func (p *Profiler) logStats(elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
	}

	s := p.summary()
	log.Printf("[Profiler] FPS: %.2f (avg %.2f, min %.2f, max %.2f) | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs) | Sys: %.2f MB",
		s.FPS, s.Average, s.Min, s.Max, allocMB, allocRateMB, gcCount, lastPauseUs, sysMB)

	if line := p.upscalerLine(); line != "" {
		log.Printf("[Profiler] %s", line)
	}

	p.lastTotalAlloc = p.memStats.TotalAlloc
}

// upscalerLine formats the observed upscalers in name order. Caller must hold the mutex.
func (p *Profiler) upscalerLine() string {
	if len(p.upscalers) == 0 {
		return ""
	}
	names := make([]string, 0, len(p.upscalers))
	for name := range p.upscalers {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		st := p.upscalers[name]
		parts = append(parts, fmt.Sprintf("%s: %v %v->%v %v (creates %d, destroys %d)",
			name, st.State, st.Render, st.Display, st.Mode, st.Creates, st.Destroys))
	}
	return strings.Join(parts, " | ")
}

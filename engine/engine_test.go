package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-upscale/common"
	"github.com/Carmen-Shannon/oxy-upscale/engine/camera"
	"github.com/Carmen-Shannon/oxy-upscale/engine/profiler"
	"github.com/Carmen-Shannon/oxy-upscale/engine/quality"
	"github.com/Carmen-Shannon/oxy-upscale/engine/settings"
	"github.com/Carmen-Shannon/oxy-upscale/engine/upscaler"
)

func newTestEngine(t *testing.T, options ...EngineBuilderOption) Engine {
	t.Helper()
	opts := append([]EngineBuilderOption{
		WithWorkers(4),
		WithProfiler(profiler.NewProfiler(profiler.WithLogging(false))),
	}, options...)
	e := NewEngine(opts...)
	t.Cleanup(e.Quit)
	return e
}

func newTestView(width, height int, backend upscaler.Backend) (camera.Camera, upscaler.Upscaler) {
	cam := camera.NewCamera(camera.WithSize(width, height))
	cfg := settings.New(settings.WithBounds(1, 1, 8192, 8192))
	up := upscaler.NewUpscaler(cam, backend, cfg,
		upscaler.WithPlatform(settings.PlatformWindows),
		upscaler.WithLogging(false),
	)
	return cam, up
}

// frameLog records which views were rendered each frame.
type frameLog struct {
	mu     sync.Mutex
	counts map[int]int
	render map[int]common.Resolution
	frames map[uint64]int
}

func newFrameLog() *frameLog {
	return &frameLog{
		counts: make(map[int]int),
		render: make(map[int]common.Resolution),
		frames: make(map[uint64]int),
	}
}

func (l *frameLog) record(key int, _ View, render common.Resolution, frame uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	l.render[key] = render
	l.frames[frame]++
	return nil
}

func TestFrame_TicksEveryViewOncePerFrame(t *testing.T) {
	log := newFrameLog()
	e := newTestEngine(t, WithViewRenderCallback(log.record))
	backend := upscaler.NewSoftwareBackend()

	const views, frames = 6, 10
	for k := range views {
		cam, up := newTestView(320, 180, backend)
		require.NoError(t, e.AddView(k, cam, up))
	}

	for range frames {
		require.NoError(t, e.Frame(1.0/60))
	}

	for k := range views {
		assert.Equal(t, frames, log.counts[k], "view %d", k)
		assert.Equal(t, common.Resolution{Width: 188, Height: 105}, log.render[k])

		v, ok := e.View(k)
		require.True(t, ok)
		stats := v.Upscaler.Stats()
		assert.Equal(t, uint64(frames), stats.Frames)
		assert.Equal(t, uint64(frames), stats.Executes)
		assert.Equal(t, uint64(1), stats.Creates)
	}
	for f := uint64(1); f <= frames; f++ {
		assert.Equal(t, views, log.frames[f], "frame %d", f)
	}
	assert.Equal(t, views, backend.Live())
}

func TestResize_FansOutToCameras(t *testing.T) {
	log := newFrameLog()
	e := newTestEngine(t, WithViewRenderCallback(log.record))
	backend := upscaler.NewSoftwareBackend()

	for k := range 3 {
		cam, up := newTestView(1280, 720, backend)
		require.NoError(t, e.AddView(k, cam, up))
	}
	require.NoError(t, e.Frame(0))

	e.Resize(1600, 900)
	require.NoError(t, e.Frame(0))
	require.NoError(t, e.Frame(0))

	for k, v := range e.Views() {
		assert.Equal(t, common.Resolution{Width: 1600, Height: 900}, v.Camera.DisplayResolution())
		assert.Equal(t, common.Resolution{Width: 941, Height: 529}, log.render[k])
		assert.Equal(t, uint64(2), v.Upscaler.Stats().Creates)
		assert.Equal(t, uint64(1), v.Upscaler.Stats().Destroys)
	}
	assert.Equal(t, 3, backend.Live())
}

func TestResize_DegenerateSkipsFrame(t *testing.T) {
	log := newFrameLog()
	e := newTestEngine(t, WithViewRenderCallback(log.record))
	cam, up := newTestView(640, 360, upscaler.NewSoftwareBackend())
	require.NoError(t, e.AddView(0, cam, up))

	e.Resize(0, 0)
	require.NoError(t, e.Frame(0))
	assert.Zero(t, log.counts[0])
	assert.Equal(t, upscaler.StateInitialized, up.State())

	e.Resize(640, 360)
	require.NoError(t, e.Frame(0))
	assert.Equal(t, 1, log.counts[0])
	assert.Equal(t, uint64(1), up.Stats().Creates)
}

func TestSetQualityMode(t *testing.T) {
	log := newFrameLog()
	e := newTestEngine(t, WithViewRenderCallback(log.record))
	cam, up := newTestView(1920, 1080, upscaler.NewSoftwareBackend())
	require.NoError(t, e.AddView(0, cam, up))

	require.NoError(t, e.Frame(0))
	assert.Equal(t, common.Resolution{Width: 1129, Height: 635}, log.render[0])

	require.NoError(t, e.SetQualityMode(quality.ModePerformance))
	require.NoError(t, e.Frame(0))
	assert.Equal(t, common.Resolution{Width: 960, Height: 540}, log.render[0])
	assert.Equal(t, uint64(2), up.Stats().Creates)
}

func TestHandleKey(t *testing.T) {
	log := newFrameLog()
	e := newTestEngine(t, WithViewRenderCallback(log.record))
	cam, up := newTestView(1920, 1080, upscaler.NewSoftwareBackend())
	require.NoError(t, e.AddView(0, cam, up))

	e.HandleKey(common.KeyQ)
	assert.Equal(t, quality.ModePerformance, up.Settings().QualityMode)

	e.HandleKey(common.Key1)
	assert.Equal(t, quality.ModeQuality, up.Settings().QualityMode)
	e.HandleKey(common.Key4)
	assert.Equal(t, quality.ModeUltraPerformance, up.Settings().QualityMode)

	e.HandleKey(common.KeyR)
	assert.Equal(t, common.RenderingPathForwardPlus, cam.RenderingPath())
	require.NoError(t, e.Frame(0))
	assert.Equal(t, common.Resolution{Width: 640, Height: 360}, log.render[0])

	e.HandleKey(common.KeyU)
	assert.Equal(t, upscaler.StateDisabled, up.State())
	require.NoError(t, e.Frame(0))
	assert.Equal(t, 1, log.counts[0])

	e.HandleKey(common.KeyU)
	assert.Equal(t, upscaler.StateInitialized, up.State())

	// Unbound keys are ignored.
	e.HandleKey(common.KeySpace)
	assert.Equal(t, upscaler.StateInitialized, up.State())
}

func TestHandleKey_ToggleWhileMinimized(t *testing.T) {
	e := newTestEngine(t)
	cam, up := newTestView(1280, 720, upscaler.NewSoftwareBackend())
	require.NoError(t, e.AddView(0, cam, up))

	e.HandleKey(common.KeyU)
	assert.Equal(t, upscaler.StateDisabled, up.State())

	e.Resize(0, 0)
	e.HandleKey(common.KeyU)
	assert.Equal(t, upscaler.StateDisabled, up.State())

	e.Resize(1280, 720)
	e.HandleKey(common.KeyU)
	assert.Equal(t, upscaler.StateInitialized, up.State())
	require.NoError(t, e.Frame(0))
}

func TestRemoveView(t *testing.T) {
	e := newTestEngine(t)
	backend := upscaler.NewSoftwareBackend()
	cam, up := newTestView(640, 360, backend)
	require.NoError(t, e.AddView(3, cam, up))
	assert.Equal(t, 1, backend.Live())

	require.NoError(t, e.RemoveView(3))
	_, ok := e.View(3)
	assert.False(t, ok)
	assert.Equal(t, upscaler.StateDisabled, up.State())
	assert.Zero(t, backend.Live())

	require.NoError(t, e.RemoveView(3))
	require.NoError(t, e.Frame(0))
}

func TestAddView_EnableErrorKeepsView(t *testing.T) {
	e := newTestEngine(t)
	cam, up := newTestView(0, 600, upscaler.NewSoftwareBackend())

	err := e.AddView(0, cam, up)
	assert.ErrorIs(t, err, upscaler.ErrInitialization)
	_, ok := e.View(0)
	assert.True(t, ok)

	// An inert view is skipped rather than failing the frame.
	require.NoError(t, e.Frame(0))
}

func TestWithView_RegistersWithoutEnabling(t *testing.T) {
	cam, up := newTestView(640, 360, upscaler.NewSoftwareBackend())
	e := newTestEngine(t, WithView(1, cam, up))

	assert.Len(t, e.Views(), 1)
	assert.Equal(t, upscaler.StateUninitialized, up.State())
	require.NoError(t, up.Enable())
	require.NoError(t, e.Frame(0))
	assert.Equal(t, uint64(1), up.Stats().Executes)
}

func TestFrame_ViewRenderErrorSkipsExecute(t *testing.T) {
	boom := errors.New("draw failed")
	e := newTestEngine(t, WithViewRenderCallback(func(key int, _ View, _ common.Resolution, _ uint64) error {
		if key == 1 {
			return boom
		}
		return nil
	}))
	camA, upA := newTestView(640, 360, upscaler.NewSoftwareBackend())
	camB, upB := newTestView(640, 360, upscaler.NewSoftwareBackend())
	require.NoError(t, e.AddView(0, camA, upA))
	require.NoError(t, e.AddView(1, camB, upB))

	err := e.Frame(0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), upA.Stats().Executes)
	assert.Zero(t, upB.Stats().Executes)
	assert.Equal(t, upscaler.StateInitialized, upB.State())
}

func TestFrame_RenderCallbackAndProfiler(t *testing.T) {
	p := profiler.NewProfiler(profiler.WithLogging(false))
	calls := 0
	e := newTestEngine(t, WithProfiler(p), WithProfiling(true))
	e.SetRenderCallback(func(float32) { calls++ })

	cam, up := newTestView(640, 360, upscaler.NewSoftwareBackend())
	require.NoError(t, e.AddView(0, cam, up))

	require.NoError(t, e.Frame(0))
	require.NoError(t, e.Frame(0))
	assert.Equal(t, 2, calls)
	assert.Same(t, p, e.Profiler())
}

func TestFrame_AfterQuit(t *testing.T) {
	e := newTestEngine(t)
	e.Quit()
	e.Quit()
	assert.ErrorIs(t, e.Frame(0), ErrStopped)
}

func TestQuit_DuringFrameLetsFrameFinish(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	// One worker: view 0 blocks it, so view 1 is still queued when Quit is called.
	e := newTestEngine(t, WithWorkers(1), WithViewRenderCallback(func(key int, _ View, _ common.Resolution, _ uint64) error {
		if key == 0 {
			once.Do(func() { close(entered) })
			<-release
		}
		return nil
	}))
	camA, upA := newTestView(320, 180, upscaler.NewSoftwareBackend())
	camB, upB := newTestView(320, 180, upscaler.NewSoftwareBackend())
	require.NoError(t, e.AddView(0, camA, upA))
	require.NoError(t, e.AddView(1, camB, upB))

	frameDone := make(chan error, 1)
	go func() { frameDone <- e.Frame(0) }()
	<-entered

	quitDone := make(chan struct{})
	go func() {
		e.Quit()
		close(quitDone)
	}()

	select {
	case <-quitDone:
		t.Fatal("Quit returned while a frame was in progress")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	select {
	case err := <-frameDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Frame did not return after Quit")
	}
	select {
	case <-quitDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Quit did not return")
	}

	assert.Equal(t, uint64(1), upA.Stats().Executes)
	assert.Equal(t, uint64(1), upB.Stats().Executes)
	assert.ErrorIs(t, e.Frame(0), ErrStopped)
}

func TestRun_WithoutWindowReturns(t *testing.T) {
	e := newTestEngine(t)
	e.Run()
	assert.Nil(t, e.Window())
}

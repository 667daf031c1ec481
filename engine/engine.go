package engine

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-upscale/common"
	"github.com/Carmen-Shannon/oxy-upscale/engine/camera"
	"github.com/Carmen-Shannon/oxy-upscale/engine/profiler"
	"github.com/Carmen-Shannon/oxy-upscale/engine/quality"
	"github.com/Carmen-Shannon/oxy-upscale/engine/upscaler"
	"github.com/Carmen-Shannon/oxy-upscale/engine/window"
)

// ErrStopped is returned by Frame after Quit.
var ErrStopped = errors.New("engine stopped")

// View pairs a camera with the upscaler bound to it.
type View struct {
	Camera   camera.Camera
	Upscaler upscaler.Upscaler
}

// ViewRenderFunc draws one view's reduced-resolution frame. It runs on a worker after the view's upscaler
// has been ticked and before it is executed.
//
// Parameters:
//   - key: the view key
//   - v: the view
//   - render: the render resolution selected by the upscaler
//   - frame: the engine frame counter
//
// Returns:
//   - error: a non-nil error skips the upscale for this view this frame
type ViewRenderFunc func(key int, v View, render common.Resolution, frame uint64) error

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate   time.Duration
	tickCallback     func(deltaTime float32)
	renderCallback   func(deltaTime float32)
	viewRender       ViewRenderFunc
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	views   map[int]View
	workers int
	pool    worker.DynamicWorkerPool
	frame   uint64

	// frameMu is held for the whole of Frame. signalQuit takes it before stopping the pool so that
	// no frame is left waiting on tasks the stopped pool will never run.
	frameMu *sync.Mutex
}

// Engine is the main entry point for the engine.
// It owns the registered views and drives every view's upscaler once per frame, ticking different
// views in parallel on a worker pool.
type Engine interface {
	// Window returns the underlying window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Profiler returns the engine's profiler.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called once per frame after every view has been upscaled.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetViewRenderCallback registers the function that draws each view's reduced-resolution frame.
	//
	// Parameters:
	//   - callback: the per-view render function
	SetViewRenderCallback(callback ViewRenderFunc)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddView registers a camera and its upscaler at the given key and enables the upscaler.
	// The view stays registered when enabling fails.
	//
	// Parameters:
	//   - key: the view key; views are ticked and reported in ascending key order
	//   - cam: the camera
	//   - up: the upscaler bound to cam
	//
	// Returns:
	//   - error: the error returned by the upscaler's Enable
	AddView(key int, cam camera.Camera, up upscaler.Upscaler) error

	// RemoveView disables the upscaler at the given key and unregisters the view.
	//
	// Parameters:
	//   - key: the view key
	//
	// Returns:
	//   - error: the error returned by the upscaler's Disable
	RemoveView(key int) error

	// View retrieves the view registered at the given key.
	//
	// Parameters:
	//   - key: the view key
	//
	// Returns:
	//   - View: the view
	//   - bool: false if no view exists at that key
	View(key int) (View, bool)

	// Views returns a copy of all registered views.
	//
	// Returns:
	//   - map[int]View: a copy of the views map
	Views() map[int]View

	// Resize propagates a new display size to every view's camera. The window resize callback calls this.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	Resize(width, height int)

	// SetQualityMode applies a quality mode to every view's upscaler settings. It takes effect on the next frame.
	//
	// Parameters:
	//   - mode: the quality mode
	//
	// Returns:
	//   - error: joined errors from ApplySettings
	SetQualityMode(mode quality.Mode) error

	// HandleKey applies the default key bindings: Q cycles the quality mode, 1-4 select a quality mode,
	// R cycles the rendering path, and U toggles the upscalers.
	//
	// Parameters:
	//   - keyCode: the virtual key code
	HandleKey(keyCode uint32)

	// Frame runs one frame: every view's upscaler is ticked, rendered, and executed on the worker pool,
	// then the render callback and the profiler run.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous frame
	//
	// Returns:
	//   - error: joined per-view errors, or ErrStopped after Quit; skipped views (degenerate size,
	//     not initialized) are not errors
	Frame(deltaTime float32) error

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine. A frame already in progress
	// runs to completion first; later calls to Frame return ErrStopped.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, workers, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:               &sync.Mutex{},
		frameMu:          &sync.Mutex{},
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		views:            make(map[int]View),
		running:          false,
		wg:               sync.WaitGroup{},
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
		workers:          max(runtime.NumCPU()-1, 1),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	// Queue size of 64 covers typical view counts (one per camera) with headroom.
	e.pool = worker.NewDynamicWorkerPool(e.workers, 64, time.Second)

	if e.window != nil {
		e.window.SetResizeCallback(e.Resize)
		e.window.SetKeyDownCallback(e.HandleKey)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Run() {
	if e.window == nil {
		log.Printf("[Engine] Run requires a window; use Frame to drive a headless engine")
		return
	}
	e.running = true
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit, waits for an in-flight frame
// to finish, and stops the worker pool. Uses sync.Once to ensure the channel is only closed once.
// Must not be called from a view render callback.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)

		e.frameMu.Lock()
		defer e.frameMu.Unlock()
		e.pool.Stop()
	})
}

// handle launches the engine and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if err := e.Frame(dt); err != nil {
				log.Printf("[Engine] frame %d: %v", e.frameCount(), err)
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

func (e *engine) Frame(deltaTime float32) error {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	select {
	case <-e.quitChannel:
		return ErrStopped
	default:
	}

	e.mu.Lock()
	e.frame++
	frame := e.frame
	keys := sortedKeys(e.views)
	views := make([]View, len(keys))
	for i, k := range keys {
		views[i] = e.views[k]
	}
	viewRender := e.viewRender
	e.mu.Unlock()

	// Views are ticked in parallel on the pool. Each view's upscaler is touched by exactly one task,
	// and the WaitGroup is the per-frame barrier: pool.Wait() only returns once workers go idle.
	errs := make([]error, len(views))
	var wg sync.WaitGroup
	for i := range views {
		wg.Add(1)
		idx := i
		e.pool.SubmitTask(worker.Task{
			ID:      keys[idx],
			Payload: frame,
			Do: func() (any, error) {
				defer wg.Done()
				errs[idx] = e.frameView(keys[idx], views[idx], frame, viewRender)
				return nil, errs[idx]
			},
		})
	}
	wg.Wait()

	for _, v := range views {
		e.profiler.Observe(v.Upscaler.Name(), v.Upscaler.Stats())
	}

	if e.renderCallback != nil {
		e.renderCallback(deltaTime)
	}

	if e.profilingEnabled {
		e.profiler.Tick()
	}

	return errors.Join(errs...)
}

// frameView runs one view's frame: tick, draw the reduced-resolution frame, upscale.
func (e *engine) frameView(key int, v View, frame uint64, viewRender ViewRenderFunc) error {
	if err := v.Upscaler.Tick(); err != nil {
		if errors.Is(err, upscaler.ErrDegenerateResolution) || errors.Is(err, upscaler.ErrNotInitialized) {
			return nil
		}
		return fmt.Errorf("view %d: %w", key, err)
	}

	render, err := v.Upscaler.CurrentRenderResolution()
	if err != nil {
		return fmt.Errorf("view %d: %w", key, err)
	}

	if viewRender != nil {
		if err := viewRender(key, v, render, frame); err != nil {
			return fmt.Errorf("view %d: render failed: %w", key, err)
		}
	}

	if err := v.Upscaler.Execute(); err != nil {
		return fmt.Errorf("view %d: %w", key, err)
	}
	return nil
}

func (e *engine) frameCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetViewRenderCallback(callback ViewRenderFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewRender = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) AddView(key int, cam camera.Camera, up upscaler.Upscaler) error {
	e.mu.Lock()
	e.views[key] = View{Camera: cam, Upscaler: up}
	e.mu.Unlock()

	if err := up.Enable(); err != nil {
		return fmt.Errorf("view %d: %w", key, err)
	}
	return nil
}

func (e *engine) RemoveView(key int) error {
	e.mu.Lock()
	v, ok := e.views[key]
	delete(e.views, key)
	e.mu.Unlock()

	if !ok {
		return nil
	}
	e.profiler.Forget(v.Upscaler.Name())
	return v.Upscaler.Disable()
}

func (e *engine) View(key int) (View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.views[key]
	return v, ok
}

func (e *engine) Views() map[int]View {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]View, len(e.views))
	for k, v := range e.views {
		cp[k] = v
	}
	return cp
}

func (e *engine) Resize(width, height int) {
	for _, v := range e.Views() {
		v.Camera.SetSize(width, height)
	}
}

func (e *engine) SetQualityMode(mode quality.Mode) error {
	var errs []error
	for _, k := range sortedKeys(e.Views()) {
		v, _ := e.View(k)
		cfg := v.Upscaler.Settings()
		cfg.QualityMode = mode
		if err := v.Upscaler.ApplySettings(cfg); err != nil {
			errs = append(errs, fmt.Errorf("view %d: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

func (e *engine) HandleKey(keyCode uint32) {
	views := e.Views()
	if len(views) == 0 {
		return
	}

	var err error
	switch keyCode {
	case common.KeyQ:
		next := views[sortedKeys(views)[0]].Upscaler.Settings().QualityMode.Next()
		log.Printf("[Engine] quality mode: %v", next)
		err = e.SetQualityMode(next)
	case common.Key1, common.Key2, common.Key3, common.Key4:
		mode := quality.Mode(keyCode - common.Key1)
		log.Printf("[Engine] quality mode: %v", mode)
		err = e.SetQualityMode(mode)
	case common.KeyR:
		for _, v := range views {
			v.Camera.SetRenderingPath((v.Camera.RenderingPath() + 1) % (common.RenderingPathDeferred + 1))
		}
	case common.KeyU:
		err = e.toggleUpscalers(views)
	}
	if err != nil {
		log.Printf("[Engine] key %d: %v", keyCode, err)
	}
}

// toggleUpscalers disables every view if any upscaler is initialized, otherwise enables every view.
func (e *engine) toggleUpscalers(views map[int]View) error {
	anyOn := false
	for _, v := range views {
		if v.Upscaler.State() == upscaler.StateInitialized {
			anyOn = true
			break
		}
	}

	var errs []error
	for _, k := range sortedKeys(views) {
		up := views[k].Upscaler
		if anyOn {
			errs = append(errs, up.Disable())
		} else {
			errs = append(errs, up.Enable())
		}
	}
	log.Printf("[Engine] upscalers enabled: %t", !anyOn)
	return errors.Join(errs...)
}

func sortedKeys(views map[int]View) []int {
	keys := make([]int, 0, len(views))
	for k := range views {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

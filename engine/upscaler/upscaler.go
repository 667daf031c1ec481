package upscaler

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-upscale/common"
	"github.com/Carmen-Shannon/oxy-upscale/engine/quality"
	"github.com/Carmen-Shannon/oxy-upscale/engine/settings"
)

// upscalerCount is an atomic counter used to generate unique names for each upscaler instance.
var upscalerCount atomic.Uint64

// State is the lifecycle state of an Upscaler.
type State int

const (
	// StateUninitialized is the state before the first successful Enable.
	StateUninitialized State = iota

	// StateInitialized means exactly one backend resource is live.
	StateInitialized

	// StateDisabled is entered by Disable or after a backend failure. Enable re-initializes from scratch.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Surface is the host render surface an Upscaler is bound to, typically a camera.
type Surface interface {
	// DisplayResolution returns the current output size in pixels.
	DisplayResolution() common.Resolution

	// RenderingPath returns the rendering path the host currently uses.
	RenderingPath() common.RenderingPath
}

// Stats is a snapshot of an Upscaler's counters.
type Stats struct {
	State    State
	Display  common.Resolution
	Render   common.Resolution
	Mode     quality.Mode
	Frames   uint64
	Creates  uint64
	Destroys uint64
	Executes uint64
	// LastError is the most recent backend or validation error, or nil.
	LastError error
}

type upscalerImpl struct {
	mu *sync.Mutex

	name     string
	platform string
	logging  bool

	surface  Surface
	backend  Backend
	settings settings.Settings

	state    State
	inertErr error

	handle  Handle
	display common.Resolution
	render  common.Resolution
	path    common.RenderingPath
	mode    quality.Mode

	stats Stats
}

// Upscaler owns the upscaler resource of a single camera. It derives the render resolution from the display
// resolution and quality mode, and recreates the backend resource only when the display resolution, rendering
// path, or quality mode changes.
//
// OnFrame, Tick, and Execute must not be called concurrently for the same Upscaler; accessors are safe
// from any goroutine.
type Upscaler interface {
	// Name returns the upscaler's identifier used in log output.
	Name() string

	// State returns the current lifecycle state.
	State() State

	// Enable captures the surface's display resolution and rendering path, derives the render resolution,
	// and creates the backend resource. Enable is a no-op while initialized.
	//
	// Returns:
	//   - error: ErrInitialization if the surface or backend is missing or the display is degenerate. A missing
	//     collaborator, or a degenerate display on the first Enable, leaves the upscaler inert; a degenerate
	//     display when re-enabling from disabled also matches ErrDegenerateResolution and may be retried.
	//     ErrUnsupportedConfiguration if the platform or display is not supported, or the wrapped backend
	//     error if creation failed
	Enable() error

	// Disable releases the backend resource and clears cached resolutions. Calling it when not initialized
	// is a no-op.
	//
	// Returns:
	//   - error: the wrapped backend error if destroying the resource failed; the state is Disabled regardless
	Disable() error

	// OnFrame compares the observed frame configuration with the cached one and recreates the backend
	// resource if anything changed. Must be called once per frame before the reduced-resolution pass.
	//
	// Parameters:
	//   - display: the display resolution observed this frame
	//   - path: the rendering path observed this frame
	//   - mode: the quality mode to use this frame
	//
	// Returns:
	//   - error: ErrNotInitialized outside the initialized state, ErrDegenerateResolution for a skipped
	//     frame, ErrUnsupportedConfiguration or a wrapped backend error after which the upscaler is disabled
	OnFrame(display common.Resolution, path common.RenderingPath, mode quality.Mode) error

	// Tick calls OnFrame with the surface's current display resolution and rendering path and the
	// configured quality mode.
	//
	// Returns:
	//   - error: see OnFrame
	Tick() error

	// Execute runs the backend upscale for the current frame with the configured image quality.
	// A backend failure disables the upscaler; it is not retried.
	//
	// Returns:
	//   - error: ErrNotInitialized outside the initialized state or the wrapped backend error
	Execute() error

	// CurrentRenderResolution returns the reduced resolution the host must render at.
	//
	// Returns:
	//   - common.Resolution: the render resolution
	//   - error: ErrNotInitialized outside the initialized state
	CurrentRenderResolution() (common.Resolution, error)

	// Handle returns the live backend resource handle.
	//
	// Returns:
	//   - Handle: the resource handle
	//   - error: ErrNotInitialized outside the initialized state
	Handle() (Handle, error)

	// Settings returns a copy of the active settings.
	Settings() settings.Settings

	// ApplySettings validates and installs new settings. A changed quality mode takes effect on the next
	// Tick; changed bounds and platforms are checked on the next Enable or display change.
	//
	// Parameters:
	//   - cfg: the new settings
	//
	// Returns:
	//   - error: settings.ErrInvalidSettings if cfg fails validation
	ApplySettings(cfg settings.Settings) error

	// Stats returns a snapshot of the upscaler's counters.
	Stats() Stats
}

var _ Upscaler = &upscalerImpl{}

// NewUpscaler creates an Upscaler bound to a surface and backend. The upscaler starts uninitialized;
// call Enable before the first frame.
//
// Parameters:
//   - surface: the host render surface supplying display resolution and rendering path
//   - backend: the backend that creates and executes upscaler resources
//   - cfg: the upscaler settings
//   - options: functional options to configure the upscaler
//
// Returns:
//   - Upscaler: the newly created upscaler
func NewUpscaler(surface Surface, backend Backend, cfg settings.Settings, options ...UpscalerBuilderOption) Upscaler {
	u := &upscalerImpl{
		mu:       &sync.Mutex{},
		name:     "upscaler_" + strconv.FormatUint(upscalerCount.Load(), 10),
		platform: settings.CurrentPlatform(),
		logging:  true,
		surface:  surface,
		backend:  backend,
		settings: cfg.Clone(),
		state:    StateUninitialized,
	}
	for _, option := range options {
		option(u)
	}
	upscalerCount.Add(1)
	return u
}

func (u *upscalerImpl) Name() string {
	return u.name
}

func (u *upscalerImpl) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

func (u *upscalerImpl) Enable() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.inertErr != nil {
		return u.inertErr
	}
	if u.state == StateInitialized {
		return nil
	}
	if u.surface == nil {
		return u.markInert(fmt.Errorf("%w: no host surface", ErrInitialization))
	}
	if u.backend == nil {
		return u.markInert(fmt.Errorf("%w: no backend", ErrInitialization))
	}

	display := u.surface.DisplayResolution()
	if display.Degenerate() {
		err := fmt.Errorf("%w: %w %v", ErrInitialization, ErrDegenerateResolution, display)
		if u.state == StateUninitialized {
			return u.markInert(err)
		}
		// A disabled upscaler has initialized before; it can be enabled again once the surface has a size.
		u.stats.LastError = err
		return err
	}
	if err := u.checkSupported(display); err != nil {
		u.stats.LastError = err
		return err
	}

	if err := u.create(display, u.surface.RenderingPath(), u.settings.QualityMode); err != nil {
		u.state = StateDisabled
		return err
	}
	u.state = StateInitialized
	u.logf("enabled: display %v, render %v, mode %v", u.display, u.render, u.mode)
	return nil
}

func (u *upscalerImpl) Disable() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != StateInitialized {
		return nil
	}
	err := u.release()
	u.state = StateDisabled
	u.logf("disabled")
	return err
}

func (u *upscalerImpl) OnFrame(display common.Resolution, path common.RenderingPath, mode quality.Mode) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != StateInitialized {
		return fmt.Errorf("%w: state is %v", ErrNotInitialized, u.state)
	}
	u.stats.Frames++

	if display.Degenerate() {
		return fmt.Errorf("%w: %v", ErrDegenerateResolution, display)
	}
	if display == u.display && path == u.path && mode == u.mode {
		return nil
	}

	if err := u.checkSupported(display); err != nil {
		u.stats.LastError = err
		u.shutdown()
		return err
	}
	if !mode.Known() {
		u.logf("unknown quality mode %v, rendering at native resolution", mode)
	}

	previous := u.render
	if err := u.release(); err != nil {
		u.state = StateDisabled
		return err
	}
	if err := u.create(display, path, mode); err != nil {
		u.state = StateDisabled
		return err
	}
	u.logf("recreated: display %v, render %v -> %v, path %v, mode %v", display, previous, u.render, path, mode)
	return nil
}

func (u *upscalerImpl) Tick() error {
	if u.surface == nil {
		return fmt.Errorf("%w: no host surface", ErrNotInitialized)
	}
	u.mu.Lock()
	mode := u.settings.QualityMode
	u.mu.Unlock()

	return u.OnFrame(u.surface.DisplayResolution(), u.surface.RenderingPath(), mode)
}

func (u *upscalerImpl) Execute() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != StateInitialized {
		return fmt.Errorf("%w: state is %v", ErrNotInitialized, u.state)
	}
	if err := u.backend.Execute(u.handle, u.settings.ImageQuality); err != nil {
		u.stats.LastError = err
		u.shutdown()
		return fmt.Errorf("failed to execute upscaler: %w", err)
	}
	u.stats.Executes++
	return nil
}

func (u *upscalerImpl) CurrentRenderResolution() (common.Resolution, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != StateInitialized {
		return common.Resolution{}, fmt.Errorf("%w: state is %v", ErrNotInitialized, u.state)
	}
	return u.render, nil
}

func (u *upscalerImpl) Handle() (Handle, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != StateInitialized {
		return 0, fmt.Errorf("%w: state is %v", ErrNotInitialized, u.state)
	}
	return u.handle, nil
}

func (u *upscalerImpl) Settings() settings.Settings {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.settings.Clone()
}

func (u *upscalerImpl) ApplySettings(cfg settings.Settings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.settings = cfg.Clone()
	return nil
}

func (u *upscalerImpl) Stats() Stats {
	u.mu.Lock()
	defer u.mu.Unlock()

	s := u.stats
	s.State = u.state
	s.Display = u.display
	s.Render = u.render
	s.Mode = u.mode
	return s
}

// checkSupported consults the platform and resolution predicates of the active settings.
// Caller must hold the mutex.
func (u *upscalerImpl) checkSupported(display common.Resolution) error {
	if !u.settings.PlatformSupported(u.platform) {
		return fmt.Errorf("%w: platform %q not in %v", ErrUnsupportedConfiguration, u.platform, u.settings.SupportedPlatforms)
	}
	if !u.settings.ResolutionSupported(display) {
		b := u.settings.Bounds
		return fmt.Errorf("%w: display %v outside %dx%d..%dx%d",
			ErrUnsupportedConfiguration, display, b.MinWidth, b.MinHeight, b.MaxWidth, b.MaxHeight)
	}
	return nil
}

// create derives the render resolution and asks the backend for a resource. Cached values are only
// updated on success. Caller must hold the mutex.
func (u *upscalerImpl) create(display common.Resolution, path common.RenderingPath, mode quality.Mode) error {
	render := quality.ResolutionFor(display, mode)
	h, err := u.backend.Create(Descriptor{Render: render, Display: display, Mode: mode})
	if err != nil {
		u.stats.LastError = err
		return fmt.Errorf("failed to create upscaler resource (render %v, display %v): %w", render, display, err)
	}

	u.handle = h
	u.display = display
	u.render = render
	u.path = path
	u.mode = mode
	u.stats.Creates++
	return nil
}

// release destroys the live resource, if any, and clears the cached frame configuration.
// Caller must hold the mutex.
func (u *upscalerImpl) release() error {
	h := u.handle
	u.handle = 0
	u.display = common.Resolution{}
	u.render = common.Resolution{}
	u.path = 0
	u.mode = 0
	if h == 0 {
		return nil
	}

	u.stats.Destroys++
	if err := u.backend.Destroy(h); err != nil {
		u.stats.LastError = err
		return fmt.Errorf("failed to destroy upscaler resource: %w", err)
	}
	return nil
}

// shutdown releases the resource after a failure and leaves the upscaler disabled.
// Caller must hold the mutex.
func (u *upscalerImpl) shutdown() {
	if err := u.release(); err != nil {
		u.logf("%v", err)
	}
	u.state = StateDisabled
}

// markInert records a non-retryable initialization failure. Caller must hold the mutex.
func (u *upscalerImpl) markInert(err error) error {
	u.inertErr = err
	u.stats.LastError = err
	u.logf("%v", err)
	return err
}

func (u *upscalerImpl) logf(format string, args ...any) {
	if !u.logging {
		return
	}
	log.Printf("[Upscaler] "+u.name+": "+format, args...)
}

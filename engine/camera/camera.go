package camera

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-upscale/common"
	"github.com/Carmen-Shannon/oxy-upscale/engine/upscaler"
)

// cameraCount is an atomic counter used to generate unique names for each camera instance.
var cameraCount atomic.Uint64

type cameraImpl struct {
	mu *sync.Mutex

	name string

	size   common.Resolution
	path   common.RenderingPath
	aspect float32

	fov  float32
	near float32
	far  float32

	projectionMatrix [16]float32
}

// Camera is the host render surface an upscaler is bound to. It owns the display (output) pixel size,
// the rendering path, and the perspective settings, and produces the jittered projection the
// reduced-resolution pass renders with.
type Camera interface {
	upscaler.Surface

	// Name returns the camera's identifier.
	//
	// Returns:
	//   - string: the camera name
	Name() string

	// Aspect returns the aspect ratio (width / height) of the display resolution.
	// The last valid aspect is kept while the size is degenerate (e.g. a minimized window).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// ProjectionMatrix returns the current unjittered 4x4 projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// JitteredProjection returns the projection matrix offset by the sub-pixel jitter for frame, scaled to
	// the render resolution the upscaler selected.
	//
	// Parameters:
	//   - frame: the frame counter
	//   - render: the reduced render resolution
	//
	// Returns:
	//   - [16]float32: the jittered projection matrix
	//   - float32, float32: the jitter offset in render pixels, passed to the upscaler alongside the frame
	JitteredProjection(frame uint64, render common.Resolution) ([16]float32, float32, float32)

	// SetSize sets the display resolution in pixels and recomputes the aspect ratio.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	SetSize(width, height int)

	// SetRenderingPath sets the rendering path the host uses for this camera.
	//
	// Parameters:
	//   - path: the rendering path
	SetRenderingPath(path common.RenderingPath)

	// SetFov sets the vertical field of view in radians and recomputes the projection.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetNear sets the near clipping plane distance and recomputes the projection.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes the projection.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings and a 1280x720 forward-rendered surface.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		name:   "camera_" + strconv.FormatUint(cameraCount.Load(), 10),
		size:   common.Resolution{Width: 1280, Height: 720},
		path:   common.RenderingPathForward,
		aspect: 1280.0 / 720.0,
		fov:    45.0 * (math.Pi / 180.0), // radians
		near:   0.1,
		far:    100.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateProjection()
	cameraCount.Add(1)
	return c
}

func (c *cameraImpl) Name() string {
	return c.name
}

func (c *cameraImpl) DisplayResolution() common.Resolution {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *cameraImpl) RenderingPath() common.RenderingPath {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) JitteredProjection(frame uint64, render common.Resolution) ([16]float32, float32, float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out [16]float32
	jx, jy := common.JitterOffset(frame)
	common.JitterProjection(out[:], c.projectionMatrix[:], jx, jy, render)
	return out, jx, jy
}

func (c *cameraImpl) SetSize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = common.Resolution{Width: width, Height: height}
	c.updateProjection()
}

func (c *cameraImpl) SetRenderingPath(path common.RenderingPath) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = path
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateProjection()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateProjection()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateProjection()
}

// updateProjection recomputes the aspect ratio from the current size and rebuilds the projection matrix.
// A degenerate size keeps the previous aspect. Caller must hold the mutex.
func (c *cameraImpl) updateProjection() {
	if !c.size.Degenerate() {
		c.aspect = float32(c.size.Width) / float32(c.size.Height)
	}
	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
}

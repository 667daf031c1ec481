package camera

import (
	"github.com/Carmen-Shannon/oxy-upscale/common"
)

type CameraBuilderOption func(*cameraImpl)

// WithName sets the camera's identifier.
//
// Parameters:
//   - name: the camera name
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's name
func WithName(name string) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.name = name
	}
}

// WithSize sets the camera's initial display resolution in pixels.
//
// Parameters:
//   - width, height: the size in pixels
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's size
func WithSize(width, height int) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.size = common.Resolution{Width: width, Height: height}
	}
}

// WithRenderingPath sets the camera's rendering path.
//
// Parameters:
//   - path: the rendering path
//
// Returns:
//   - CameraBuilderOption: a function that sets the rendering path
func WithRenderingPath(path common.RenderingPath) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.path = path
	}
}

// WithFov sets the camera's field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

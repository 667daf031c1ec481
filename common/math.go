package common

import (
	"math"
)

// jitterPhases is the length of the Halton(2,3) sub-pixel jitter sequence.
const jitterPhases = 8

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Perspective creates a perspective projection matrix.
// Uses WebGPU clip space depth [0, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	out[15] = 0.0
}

// Halton returns element index of the Halton low-discrepancy sequence for the given base, in [0, 1).
//
// Parameters:
//   - index: sequence index, starting at 1
//   - base: prime base (2 and 3 for 2D jitter)
//
// Returns:
//   - float32: the sequence value
func Halton(index, base int) float32 {
	f := 1.0
	r := 0.0
	for i := index; i > 0; i /= base {
		f /= float64(base)
		r += f * float64(i%base)
	}
	return float32(r)
}

// JitterOffset returns the sub-pixel camera jitter for a frame, in pixels within [-0.5, 0.5).
// The sequence repeats every 8 frames.
//
// Parameters:
//   - frame: the frame counter
//
// Returns:
//   - x, y: jitter offset in pixels
func JitterOffset(frame uint64) (x, y float32) {
	i := int(frame%jitterPhases) + 1
	return Halton(i, 2) - 0.5, Halton(i, 3) - 0.5
}

// JitterProjection offsets a perspective projection matrix by a sub-pixel jitter so that successive
// reduced-resolution frames sample different positions inside each pixel.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - proj: the unjittered projection matrix (16 elements)
//   - jitterX, jitterY: offset in pixels
//   - size: the resolution being rendered
func JitterProjection(out, proj []float32, jitterX, jitterY float32, size Resolution) {
	copy(out, proj[:16])
	if size.Degenerate() {
		return
	}
	// Clip space spans 2 units per axis; for a perspective matrix w = -z, so the offset goes in column 2.
	out[8] -= 2 * jitterX / float32(size.Width)
	out[9] -= 2 * jitterY / float32(size.Height)
}

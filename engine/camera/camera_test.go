package camera

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-upscale/common"
)

func TestNewCamera_Defaults(t *testing.T) {
	c := NewCamera()

	assert.Equal(t, common.Resolution{Width: 1280, Height: 720}, c.DisplayResolution())
	assert.Equal(t, common.RenderingPathForward, c.RenderingPath())
	assert.InDelta(t, 1280.0/720.0, c.Aspect(), 1e-6)
	assert.Contains(t, c.Name(), "camera_")

	proj := c.ProjectionMatrix()
	assert.InDelta(t, -1, proj[11], 1e-6)
	assert.InDelta(t, proj[5]/c.Aspect(), proj[0], 1e-5)
}

func TestNewCamera_Options(t *testing.T) {
	c := NewCamera(
		WithName("main"),
		WithSize(1920, 1080),
		WithRenderingPath(common.RenderingPathDeferred),
		WithFov(1.2),
		WithNear(0.5),
		WithFar(500),
	)

	assert.Equal(t, "main", c.Name())
	assert.Equal(t, common.Resolution{Width: 1920, Height: 1080}, c.DisplayResolution())
	assert.Equal(t, common.RenderingPathDeferred, c.RenderingPath())
	assert.InDelta(t, 1920.0/1080.0, c.Aspect(), 1e-6)
	assert.Equal(t, float32(1.2), c.Fov())
	assert.Equal(t, float32(0.5), c.Near())
	assert.Equal(t, float32(500), c.Far())
}

func TestSetSize_KeepsAspectWhenDegenerate(t *testing.T) {
	c := NewCamera(WithSize(1600, 900))
	before := c.Aspect()

	c.SetSize(0, 0)
	assert.True(t, c.DisplayResolution().Degenerate())
	assert.Equal(t, before, c.Aspect())

	c.SetSize(1000, 1000)
	assert.InDelta(t, 1.0, c.Aspect(), 1e-6)
}

func TestJitteredProjection(t *testing.T) {
	c := NewCamera(WithSize(1920, 1080))
	render := common.Resolution{Width: 960, Height: 540}
	base := c.ProjectionMatrix()

	seen := map[[2]float32]bool{}
	for frame := range uint64(8) {
		m, jx, jy := c.JitteredProjection(frame, render)
		require.GreaterOrEqual(t, jx, float32(-0.5))
		require.Less(t, jx, float32(0.5))
		require.GreaterOrEqual(t, jy, float32(-0.5))
		require.Less(t, jy, float32(0.5))
		assert.InDelta(t, base[8]-2*jx/960, m[8], 1e-6)
		assert.InDelta(t, base[9]-2*jy/540, m[9], 1e-6)
		assert.Equal(t, base[0], m[0])
		seen[[2]float32{jx, jy}] = true
	}
	assert.Len(t, seen, 8)

	_, jx0, jy0 := c.JitteredProjection(0, render)
	_, jx8, jy8 := c.JitteredProjection(8, render)
	assert.Equal(t, jx0, jx8)
	assert.Equal(t, jy0, jy8)
}

func TestCamera_ConcurrentAccess(t *testing.T) {
	c := NewCamera()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				c.SetSize(1280+i, 720+j)
				_ = c.DisplayResolution()
				_ = c.Aspect()
			}
		}()
	}
	wg.Wait()
	assert.False(t, c.DisplayResolution().Degenerate())
}

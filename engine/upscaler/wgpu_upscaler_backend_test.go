package upscaler

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-upscale/common"
	"github.com/Carmen-Shannon/oxy-upscale/engine/quality"
	"github.com/Carmen-Shannon/oxy-upscale/engine/settings"
)

// newTestWGPUBackend builds a backend on the fallback (CPU) adapter, skipping when the machine has none.
func newTestWGPUBackend(t *testing.T) *WGPUBackend {
	t.Helper()
	device, queue, err := NewWGPUDevice(true)
	if err != nil {
		t.Skipf("no WebGPU adapter: %v", err)
	}
	b, err := NewWGPUBackend(device, queue, wgpu.TextureFormatRGBA8Unorm)
	require.NoError(t, err)
	t.Cleanup(func() {
		b.Release()
		queue.Release()
		device.Release()
	})
	return b
}

func TestWGPUBackend_Lifecycle(t *testing.T) {
	b := newTestWGPUBackend(t)
	display := common.Resolution{Width: 128, Height: 72}
	desc := Descriptor{
		Render:  quality.ResolutionFor(display, quality.ModePerformance),
		Display: display,
		Mode:    quality.ModePerformance,
	}

	h, err := b.Create(desc)
	require.NoError(t, err)
	assert.NotZero(t, h)

	input, err := b.InputView(h)
	require.NoError(t, err)
	assert.NotNil(t, input)

	params := settings.ImageQuality{Sharpening: true, Sharpness: 0.5}
	for range 3 {
		require.NoError(t, b.Execute(h, params))
	}
	output, err := b.OutputView(h)
	require.NoError(t, err)
	assert.NotNil(t, output)

	require.NoError(t, b.Destroy(h))
	assert.ErrorIs(t, b.Execute(h, params), ErrUnknownHandle)
	assert.ErrorIs(t, b.Destroy(h), ErrUnknownHandle)
	_, err = b.InputView(h)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestWGPUBackend_RejectsInvalidDescriptor(t *testing.T) {
	b := newTestWGPUBackend(t)

	_, err := b.Create(Descriptor{
		Render:  common.Resolution{Width: 256, Height: 144},
		Display: common.Resolution{Width: 128, Height: 72},
	})
	assert.Error(t, err)
}

func TestEncodeParams(t *testing.T) {
	buf := encodeParams(0.5, 0.25, common.Resolution{Width: 4, Height: 8})
	require.Len(t, buf, paramsSize)
	assert.Equal(t, []byte{0, 0, 0, 0x3f}, buf[0:4])    // 0.5
	assert.Equal(t, []byte{0, 0, 0x80, 0x3e}, buf[4:8]) // 0.25
	assert.Equal(t, []byte{0, 0, 0x80, 0x3e}, buf[8:12])
	assert.Equal(t, []byte{0, 0, 0, 0x3e}, buf[12:16]) // 0.125
}

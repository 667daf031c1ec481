package quality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-upscale/common"
)

func TestRatioFor(t *testing.T) {
	tests := []struct {
		mode Mode
		want float64
	}{
		{ModeQuality, 1.5},
		{ModeBalanced, 1.7},
		{ModePerformance, 2.0},
		{ModeUltraPerformance, 3.0},
		{Mode(-1), 1.0},
		{Mode(4), 1.0},
		{Mode(99), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, RatioFor(tt.mode))
		})
	}
}

func TestRenderResolution_KnownValues(t *testing.T) {
	display := common.Resolution{Width: 1920, Height: 1080}

	assert.Equal(t, common.Resolution{Width: 1280, Height: 720}, ResolutionFor(display, ModeQuality))
	assert.Equal(t, common.Resolution{Width: 1129, Height: 635}, ResolutionFor(display, ModeBalanced))
	assert.Equal(t, common.Resolution{Width: 960, Height: 540}, ResolutionFor(display, ModePerformance))
	assert.Equal(t, common.Resolution{Width: 640, Height: 360}, ResolutionFor(display, ModeUltraPerformance))
	assert.Equal(t, display, ResolutionFor(display, Mode(42)))
}

func TestRenderResolution_ClampsToOne(t *testing.T) {
	got := RenderResolution(common.Resolution{Width: 2, Height: 1}, 3.0)
	assert.Equal(t, common.Resolution{Width: 1, Height: 1}, got)
}

func TestRenderResolution_RatioBelowOneIsNative(t *testing.T) {
	display := common.Resolution{Width: 800, Height: 600}
	assert.Equal(t, display, RenderResolution(display, 0.5))
	assert.Equal(t, display, RenderResolution(display, math.NaN()))
}

func TestRenderResolution_Properties(t *testing.T) {
	ratioSet := []float64{1.0, 1.25, 1.5, 1.7, 2.0, 2.5, 3.0, 7.3}
	sizes := []int{1, 2, 3, 17, 100, 635, 720, 1080, 1129, 1920, 2160, 3840, 7680}

	for _, r := range ratioSet {
		for _, w := range sizes {
			for _, h := range sizes {
				display := common.Resolution{Width: w, Height: h}
				got := RenderResolution(display, r)

				wantW := max(int(math.Floor(float64(w)/r)), 1)
				wantH := max(int(math.Floor(float64(h)/r)), 1)
				require.Equal(t, common.Resolution{Width: wantW, Height: wantH}, got, "display %v ratio %v", display, r)
				require.True(t, got.Fits(display), "render %v exceeds display %v", got, display)
				require.GreaterOrEqual(t, got.Width, 1)
				require.GreaterOrEqual(t, got.Height, 1)
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	parsed, err := ParseMode(" Ultra-Performance ")
	require.NoError(t, err)
	assert.Equal(t, ModeUltraPerformance, parsed)

	_, err = ParseMode("extreme")
	assert.Error(t, err)
}

func TestMode_TextEncoding(t *testing.T) {
	text, err := ModePerformance.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "performance", string(text))

	var m Mode
	require.NoError(t, m.UnmarshalText([]byte("balanced")))
	assert.Equal(t, ModeBalanced, m)

	_, err = Mode(12).MarshalText()
	assert.Error(t, err)
}

func TestMode_Next(t *testing.T) {
	assert.Equal(t, ModeBalanced, ModeQuality.Next())
	assert.Equal(t, ModeQuality, ModeUltraPerformance.Next())
	assert.Equal(t, ModeQuality, Mode(-3).Next())
}

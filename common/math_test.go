package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHalton(t *testing.T) {
	tests := []struct {
		index, base int
		want        float32
	}{
		{1, 2, 0.5},
		{2, 2, 0.25},
		{3, 2, 0.75},
		{4, 2, 0.125},
		{1, 3, 1.0 / 3},
		{2, 3, 2.0 / 3},
		{3, 3, 1.0 / 9},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Halton(tt.index, tt.base), 1e-6, "Halton(%d, %d)", tt.index, tt.base)
	}
}

func TestJitterProjection_DegenerateCopies(t *testing.T) {
	var proj, out [16]float32
	Perspective(proj[:], 1, 1.5, 0.1, 100)
	JitterProjection(out[:], proj[:], 0.25, -0.25, Resolution{})
	assert.Equal(t, proj, out)
}

func TestResolution(t *testing.T) {
	r := Resolution{Width: 1920, Height: 1080}
	assert.False(t, r.Degenerate())
	assert.True(t, Resolution{Width: 0, Height: 600}.Degenerate())
	assert.True(t, Resolution{Width: 800, Height: -1}.Degenerate())
	assert.True(t, Resolution{Width: 960, Height: 540}.Fits(r))
	assert.False(t, Resolution{Width: 1921, Height: 540}.Fits(r))
	assert.Equal(t, 1920*1080, r.Pixels())
	assert.Equal(t, "1920x1080", r.String())
	assert.Equal(t, "deferred", RenderingPathDeferred.String())
}

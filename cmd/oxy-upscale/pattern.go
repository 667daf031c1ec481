package main

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/Carmen-Shannon/oxy-upscale/common"
)

const (
	tileSize    = 32
	barWidth    = 24
	barSpeed    = 8 // display pixels per frame
	patternBlur = 0.8
)

var (
	tileDark  = color.NRGBA{R: 40, G: 44, B: 52, A: 255}
	tileLight = color.NRGBA{R: 200, G: 204, B: 212, A: 255}
	barColor  = color.RGBA{R: 230, G: 90, B: 40, A: 255}
)

// patternSource stands in for the host's reduced-resolution render pass. It draws a static checkerboard
// at display resolution once, then resamples it into each frame's render-resolution input with a
// moving bar so the upscaler's history blend has motion to work with.
type patternSource struct {
	mu      *sync.Mutex
	display common.Resolution
	base    *image.NRGBA
}

func newPatternSource() *patternSource {
	return &patternSource{mu: &sync.Mutex{}}
}

// render draws frame into dst, which is sized to the render resolution. jitterX is the camera's
// sub-pixel jitter in render pixels; the bar snaps to it so successive frames sample different texels.
func (p *patternSource) render(dst *image.RGBA, display common.Resolution, frame uint64, jitterX float32) error {
	base := p.baseFor(display)

	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), base, base.Bounds(), draw.Src, nil)

	// Bar position is in display pixels, scaled to the render resolution.
	sx := float64(dst.Bounds().Dx()) / float64(display.Width)
	x := int(math.Round(float64(int(frame*barSpeed)%display.Width)*sx + float64(jitterX)))
	w := max(int(barWidth*sx), 1)
	draw.Draw(dst, image.Rect(x, 0, x+w, dst.Bounds().Dy()), &image.Uniform{C: barColor}, image.Point{}, draw.Src)
	return nil
}

// baseFor returns the blurred checkerboard for display, rebuilding it when the display changes.
func (p *patternSource) baseFor(display common.Resolution) *image.NRGBA {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.base != nil && p.display == display {
		return p.base
	}

	img := imaging.New(display.Width, display.Height, tileDark)
	for y := 0; y < display.Height; y += tileSize {
		for x := 0; x < display.Width; x += tileSize {
			if (x/tileSize+y/tileSize)%2 == 0 {
				continue
			}
			draw.Draw(img, image.Rect(x, y, x+tileSize, y+tileSize), &image.Uniform{C: tileLight}, image.Point{}, draw.Src)
		}
	}
	p.base = imaging.Blur(img, patternBlur)
	p.display = display
	return p.base
}

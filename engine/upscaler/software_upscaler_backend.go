package upscaler

import (
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/Carmen-Shannon/oxy-upscale/common"
	"github.com/Carmen-Shannon/oxy-upscale/engine/settings"
)

// softwareResource holds the CPU frame buffers behind one Handle.
type softwareResource struct {
	desc Descriptor

	input   *image.RGBA
	scaled  *image.RGBA
	output  *image.RGBA
	history *image.RGBA

	frame uint64
}

// SoftwareBackend is a CPU Backend. The host draws its reduced-resolution frame into Input, and Execute
// resamples it to the display resolution, blends it with the previous output, and optionally sharpens it.
// It is used for headless runs and tests.
type SoftwareBackend struct {
	mu *sync.Mutex

	interpolator draw.Interpolator

	next      Handle
	resources map[Handle]*softwareResource
}

var _ Backend = &SoftwareBackend{}

// SoftwareBackendOption is a functional option applied to a SoftwareBackend by NewSoftwareBackend.
type SoftwareBackendOption func(*SoftwareBackend)

// WithInterpolator selects the resampling kernel. Defaults to draw.CatmullRom.
//
// Parameters:
//   - interp: the interpolator, e.g. draw.BiLinear or draw.NearestNeighbor
//
// Returns:
//   - SoftwareBackendOption: a function that sets the interpolator
func WithInterpolator(interp draw.Interpolator) SoftwareBackendOption {
	return func(b *SoftwareBackend) {
		b.interpolator = interp
	}
}

// NewSoftwareBackend creates a CPU backend.
//
// Parameters:
//   - options: functional options to configure the backend
//
// Returns:
//   - *SoftwareBackend: the backend
func NewSoftwareBackend(options ...SoftwareBackendOption) *SoftwareBackend {
	b := &SoftwareBackend{
		mu:           &sync.Mutex{},
		interpolator: draw.CatmullRom,
		resources:    make(map[Handle]*softwareResource),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *SoftwareBackend) Create(desc Descriptor) (Handle, error) {
	if desc.Render.Degenerate() || desc.Display.Degenerate() || !desc.Render.Fits(desc.Display) {
		return 0, fmt.Errorf("invalid descriptor: render %v, display %v", desc.Render, desc.Display)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	b.resources[b.next] = &softwareResource{
		desc:    desc,
		input:   newFrame(desc.Render),
		scaled:  newFrame(desc.Display),
		output:  newFrame(desc.Display),
		history: newFrame(desc.Display),
	}
	return b.next, nil
}

func (b *SoftwareBackend) Execute(h Handle, params settings.ImageQuality) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, ok := b.resources[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}

	b.interpolator.Scale(res.scaled, res.scaled.Bounds(), res.input, res.input.Bounds(), draw.Src, nil)

	weight := historyWeight(params)
	if res.frame == 0 {
		weight = 0
	}
	blendFrames(res.output, res.scaled, res.history, weight)

	if amount := sharpenAmount(params); amount > 0 {
		sharpened := imaging.Sharpen(res.output, 0.5+2*amount)
		draw.Draw(res.output, res.output.Bounds(), sharpened, image.Point{}, draw.Src)
	}

	copy(res.history.Pix, res.output.Pix)
	res.frame++
	return nil
}

func (b *SoftwareBackend) Destroy(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.resources[h]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	delete(b.resources, h)
	return nil
}

// Input returns the render-resolution frame the host draws into before Execute.
//
// Parameters:
//   - h: the resource handle
//
// Returns:
//   - *image.RGBA: the input frame
//   - error: ErrUnknownHandle if h is not live
func (b *SoftwareBackend) Input(h Handle) (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, ok := b.resources[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return res.input, nil
}

// Output returns the display-resolution frame written by the most recent Execute.
//
// Parameters:
//   - h: the resource handle
//
// Returns:
//   - *image.RGBA: the output frame
//   - error: ErrUnknownHandle if h is not live
func (b *SoftwareBackend) Output(h Handle) (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, ok := b.resources[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return res.output, nil
}

// Live returns the number of resources that have been created and not destroyed.
func (b *SoftwareBackend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.resources)
}

func newFrame(size common.Resolution) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
}

// blendFrames writes current*(1-weight) + history*weight into dst. All three frames share bounds.
func blendFrames(dst, current, history *image.RGBA, weight float64) {
	w := uint32(weight * 256)
	if w == 0 {
		copy(dst.Pix, current.Pix)
		return
	}
	inv := 256 - w
	for i := range dst.Pix {
		dst.Pix[i] = uint8((uint32(current.Pix[i])*inv + uint32(history.Pix[i])*w) >> 8)
	}
}

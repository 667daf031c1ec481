package upscaler

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-upscale/common"
	"github.com/Carmen-Shannon/oxy-upscale/engine/settings"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed shaders/upscale.wgsl
var upscaleShaderSource string

// paramsSize is the byte size of the Params uniform in upscale.wgsl.
const paramsSize = 16

// wgpuResource holds the GPU objects behind one Handle. Output textures are ping-ponged so the
// previous frame can be sampled as history without a copy.
type wgpuResource struct {
	desc Descriptor

	input     *wgpu.Texture
	inputView *wgpu.TextureView

	outputs     [2]*wgpu.Texture
	outputViews [2]*wgpu.TextureView
	bindGroups  [2]*wgpu.BindGroup

	uniforms *wgpu.Buffer

	frame uint64
}

// WGPUBackend is a Backend that upscales on the GPU with WebGPU. The host renders its reduced-resolution
// pass into InputView and reads the reconstructed frame from OutputView after Execute.
type WGPUBackend struct {
	mu *sync.Mutex

	device *wgpu.Device
	queue  *wgpu.Queue
	format wgpu.TextureFormat

	module          *wgpu.ShaderModule
	bindGroupLayout *wgpu.BindGroupLayout
	pipelineLayout  *wgpu.PipelineLayout
	pipeline        *wgpu.RenderPipeline
	sampler         *wgpu.Sampler

	next      Handle
	resources map[Handle]*wgpuResource
}

var _ Backend = &WGPUBackend{}

// NewWGPUDevice requests a headless adapter and device, for hosts without a window surface.
//
// Parameters:
//   - forceFallbackAdapter: true to request a CPU/software adapter
//
// Returns:
//   - *wgpu.Device: the device
//   - *wgpu.Queue: the device's queue
//   - error: error if no adapter or device is available
func NewWGPUDevice(forceFallbackAdapter bool) (*wgpu.Device, *wgpu.Queue, error) {
	runtime.LockOSThread()
	instance := wgpu.CreateInstance(nil)

	a, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to request adapter: %w", err)
	}

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Upscaler Device",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to request device: %w", err)
	}
	return d, d.GetQueue(), nil
}

// NewWGPUBackend compiles the upscale shader and builds the shared pipeline, bind group layout and sampler.
//
// Parameters:
//   - device: the WebGPU device to allocate on
//   - queue: the device's queue
//   - format: the color format of the input and output textures
//
// Returns:
//   - *WGPUBackend: the backend
//   - error: error if any shared GPU object could not be created
func NewWGPUBackend(device *wgpu.Device, queue *wgpu.Queue, format wgpu.TextureFormat) (*WGPUBackend, error) {
	b := &WGPUBackend{
		mu:        &sync.Mutex{},
		device:    device,
		queue:     queue,
		format:    common.Coalesce(format, wgpu.TextureFormatRGBA8Unorm),
		resources: make(map[Handle]*wgpuResource),
	}

	var err error
	b.module, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Upscale Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: upscaleShaderSource,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create upscale shader module: %w", err)
	}

	b.bindGroupLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Upscale Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			textureLayoutEntry(0),
			textureLayoutEntry(1),
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: paramsSize,
				},
			},
		},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to create upscale bind group layout: %w", err)
	}

	b.pipelineLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Upscale Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.bindGroupLayout},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to create upscale pipeline layout: %w", err)
	}

	b.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Upscale Render Pipeline",
		Layout: b.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     b.module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     b.module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to create upscale render pipeline: %w", err)
	}

	b.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Upscale Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to create upscale sampler: %w", err)
	}

	return b, nil
}

func (b *WGPUBackend) Create(desc Descriptor) (Handle, error) {
	if desc.Render.Degenerate() || desc.Display.Degenerate() || !desc.Render.Fits(desc.Display) {
		return 0, fmt.Errorf("invalid descriptor: render %v, display %v", desc.Render, desc.Display)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	res := &wgpuResource{desc: desc}
	if err := b.initResource(res); err != nil {
		releaseResource(res)
		return 0, err
	}

	b.next++
	b.resources[b.next] = res
	return b.next, nil
}

// initResource allocates the textures, uniform buffer and bind groups for res. Caller must hold the mutex.
func (b *WGPUBackend) initResource(res *wgpuResource) error {
	var err error
	res.input, res.inputView, err = b.createTexture("Upscale Input", res.desc.Render)
	if err != nil {
		return err
	}
	for i := range res.outputs {
		res.outputs[i], res.outputViews[i], err = b.createTexture(fmt.Sprintf("Upscale Output %d", i), res.desc.Display)
		if err != nil {
			return err
		}
	}

	res.uniforms, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Upscale Params",
		Size:  paramsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create upscale params buffer: %w", err)
	}

	// bindGroups[i] renders into outputs[i] and samples outputs[1-i] as history.
	for i := range res.bindGroups {
		res.bindGroups[i], err = b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  fmt.Sprintf("Upscale Bind Group %d", i),
			Layout: b.bindGroupLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: res.inputView},
				{Binding: 1, TextureView: res.outputViews[1-i]},
				{Binding: 2, Sampler: b.sampler},
				{Binding: 3, Buffer: res.uniforms, Offset: 0, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create upscale bind group: %w", err)
		}
	}
	return nil
}

func (b *WGPUBackend) Execute(h Handle, params settings.ImageQuality) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, ok := b.resources[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}

	target := int(res.frame % 2)
	weight := historyWeight(params)
	if res.frame == 0 {
		weight = 0
	}
	b.queue.WriteBuffer(res.uniforms, 0, encodeParams(sharpenAmount(params), weight, res.desc.Render))

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create upscale command encoder: %w", err)
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    res.outputViews[target],
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0, G: 0, B: 0, A: 1,
				},
			},
		},
	})
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, res.bindGroups[target], nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return fmt.Errorf("failed to finish upscale command encoder: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	res.frame++
	return nil
}

func (b *WGPUBackend) Destroy(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, ok := b.resources[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	delete(b.resources, h)
	releaseResource(res)
	return nil
}

// InputView returns the render-resolution texture view the host draws its reduced pass into.
//
// Parameters:
//   - h: the resource handle
//
// Returns:
//   - *wgpu.TextureView: the input view
//   - error: ErrUnknownHandle if h is not live
func (b *WGPUBackend) InputView(h Handle) (*wgpu.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, ok := b.resources[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return res.inputView, nil
}

// OutputView returns the display-resolution view written by the most recent Execute.
//
// Parameters:
//   - h: the resource handle
//
// Returns:
//   - *wgpu.TextureView: the output view
//   - error: ErrUnknownHandle if h is not live
func (b *WGPUBackend) OutputView(h Handle) (*wgpu.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, ok := b.resources[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	// frame has already been advanced past the last written target.
	return res.outputViews[(res.frame+1)%2], nil
}

// Release destroys every live resource and the shared GPU objects. The backend is unusable afterwards.
func (b *WGPUBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for h, res := range b.resources {
		releaseResource(res)
		delete(b.resources, h)
	}
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	if b.pipelineLayout != nil {
		b.pipelineLayout.Release()
		b.pipelineLayout = nil
	}
	if b.bindGroupLayout != nil {
		b.bindGroupLayout.Release()
		b.bindGroupLayout = nil
	}
	if b.module != nil {
		b.module.Release()
		b.module = nil
	}
}

// createTexture allocates a 2D color texture usable as both render attachment and sampled texture.
// Caller must hold the mutex.
func (b *WGPUBackend) createTexture(label string, size common.Resolution) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(size.Width),
			Height:             uint32(size.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        b.format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s texture: %w", label, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("failed to create %s texture view: %w", label, err)
	}
	return tex, view, nil
}

// releaseResource releases every non-nil GPU object held by res.
func releaseResource(res *wgpuResource) {
	for i := range res.bindGroups {
		if res.bindGroups[i] != nil {
			res.bindGroups[i].Release()
		}
	}
	if res.uniforms != nil {
		res.uniforms.Release()
	}
	for i := range res.outputs {
		if res.outputViews[i] != nil {
			res.outputViews[i].Release()
		}
		if res.outputs[i] != nil {
			res.outputs[i].Release()
		}
	}
	if res.inputView != nil {
		res.inputView.Release()
	}
	if res.input != nil {
		res.input.Release()
	}
}

func textureLayoutEntry(binding uint32) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageFragment,
		Texture: wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		},
	}
}

// encodeParams lays out the Params uniform: sharpness, history weight, and the input texel size.
func encodeParams(sharpness, historyWeight float64, input common.Resolution) []byte {
	buf := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(sharpness)))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(historyWeight)))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(1/float32(input.Width)))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(1/float32(input.Height)))
	return buf
}

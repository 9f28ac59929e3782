//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/gpucore"
	"github.com/gogpu/gfx/internal/shader"
)

// Device errors.
var (
	// ErrNilDevice is returned by New when the HAL device or queue is nil.
	ErrNilDevice = errors.New("gpu: nil HAL device or queue")

	// ErrNoTarget is returned when drawing without a render target.
	ErrNoTarget = errors.New("gpu: no render target")

	// ErrExternalTarget is returned by ReadPixels while rendering to a
	// caller-owned view.
	ErrExternalTarget = errors.New("gpu: target is not readable")
)

// DefaultTargetFormat is the format of the offscreen render target.
const DefaultTargetFormat = gputypes.TextureFormatRGBA8Unorm

// retired is a release action deferred until a submission completes.
type retired struct {
	index uint64
	free  func()
}

type buffer struct {
	raw     hal.Buffer
	target  gpucore.BufferTarget
	usage   gpucore.BufferUsage
	size    int
	lastUse uint64

	// shadow mirrors the buffer contents, padded to a multiple of 4.
	shadow []byte
}

type texture struct {
	raw     hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
	desc    gpucore.TextureDesc
	state   gpucore.SamplerState
	lastUse uint64
}

type shaderStage struct {
	module    *shader.Module
	raw       hal.ShaderModule
	refs      int
	destroyed bool
}

type renderTarget struct {
	texture hal.Texture
	view    hal.TextureView
	format  gputypes.TextureFormat
	width   uint32
	height  uint32
	owned   bool
}

// Device implements gpucore.Device on a HAL device and queue.
//
// Device is not safe for concurrent use.
type Device struct {
	device hal.Device
	queue  hal.Queue

	nextID       uint64
	buffers      map[gpucore.BufferID]*buffer
	vertexArrays map[gpucore.VertexArrayID]gpucore.VertexLayout
	textures     map[gpucore.TextureID]*texture
	shaders      map[gpucore.ShaderID]*shaderStage
	programs     map[gpucore.ProgramID]*program

	vertexBuffer gpucore.BufferID
	indexBuffer  gpucore.BufferID
	vertexArray  gpucore.VertexArrayID
	program      gpucore.ProgramID
	slots        map[int]gpucore.TextureID

	target       renderTarget
	viewport     [4]int
	pendingClear *gputypes.Color

	retired    []retired
	lastSubmit uint64
	destroyed  bool
}

var _ gpucore.Device = (*Device)(nil)

// New creates a Device that renders into an offscreen RGBA8 target of the
// given size. The caller keeps ownership of device and queue.
func New(device hal.Device, queue hal.Queue, width, height int) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	d := &Device{
		device:       device,
		queue:        queue,
		buffers:      make(map[gpucore.BufferID]*buffer),
		vertexArrays: make(map[gpucore.VertexArrayID]gpucore.VertexLayout),
		textures:     make(map[gpucore.TextureID]*texture),
		shaders:      make(map[gpucore.ShaderID]*shaderStage),
		programs:     make(map[gpucore.ProgramID]*program),
		slots:        make(map[int]gpucore.TextureID),
	}
	if err := d.ResizeTarget(width, height); err != nil {
		return nil, err
	}
	d.viewport = [4]int{0, 0, width, height}
	slogger().Debug("gpu: device created", slog.Int("width", width), slog.Int("height", height))
	return d, nil
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// HAL returns the underlying HAL device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

// TargetSize returns the size of the current render target.
func (d *Device) TargetSize() (int, int) {
	return int(d.target.width), int(d.target.height)
}

// TargetFormat returns the pixel format of the current render target.
func (d *Device) TargetFormat() gputypes.TextureFormat { return d.target.format }

// ResizeTarget replaces the render target with a new offscreen RGBA8
// texture of the given size. Any external target set with SetTarget is
// dropped.
func (d *Device) ResizeTarget(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("gpu: invalid target size %dx%d", width, height)
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "gfx_target",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        DefaultTargetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("gpu: create target texture: %w", err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "gfx_target_view",
		Format:        DefaultTargetFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return fmt.Errorf("gpu: create target view: %w", err)
	}
	d.releaseTarget()
	d.target = renderTarget{
		texture: tex,
		view:    view,
		format:  DefaultTargetFormat,
		width:   uint32(width),
		height:  uint32(height),
		owned:   true,
	}
	return nil
}

// SetTarget renders subsequent draws into a caller-owned view, typically
// the current surface texture. The view must stay valid until the next
// SetTarget, ResizeTarget or Flush.
func (d *Device) SetTarget(view hal.TextureView, format gputypes.TextureFormat, width, height int) {
	d.releaseTarget()
	d.target = renderTarget{
		view:   view,
		format: format,
		width:  uint32(width),
		height: uint32(height),
	}
}

func (d *Device) releaseTarget() {
	t := d.target
	if !t.owned {
		d.target = renderTarget{}
		return
	}
	d.retire(d.lastSubmit, func() {
		d.device.DestroyTextureView(t.view)
		d.device.DestroyTexture(t.texture)
	})
	d.target = renderTarget{}
}

// retire schedules free to run once submission index has completed.
func (d *Device) retire(index uint64, free func()) {
	if index == 0 || index <= d.queue.PollCompleted() {
		free()
		return
	}
	d.retired = append(d.retired, retired{index: index, free: free})
}

// collect runs every deferred release whose submission has completed.
func (d *Device) collect() {
	if len(d.retired) == 0 {
		return
	}
	done := d.queue.PollCompleted()
	keep := d.retired[:0]
	for _, r := range d.retired {
		if r.index <= done {
			r.free()
			continue
		}
		keep = append(keep, r)
	}
	clear(d.retired[len(keep):])
	d.retired = keep
}

// waitFor blocks until submission index has completed.
func (d *Device) waitFor(index uint64) error {
	if index == 0 || index <= d.queue.PollCompleted() {
		return nil
	}
	slogger().Debug("gpu: waiting for in-flight submission", slog.Uint64("index", index))
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("gpu: wait idle: %w", err)
	}
	d.collect()
	return nil
}

// SetViewport implements gpucore.Device.
func (d *Device) SetViewport(x, y, w, h int) { d.viewport = [4]int{x, y, w, h} }

// Clear implements gpucore.Device.
func (d *Device) Clear(color gputypes.Color) { d.pendingClear = &color }

// Flush implements gpucore.Device.
func (d *Device) Flush() error {
	if d.destroyed {
		return gpucore.ErrDeviceLost
	}
	if d.pendingClear != nil {
		if err := d.submitPass(nil); err != nil {
			return err
		}
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("gpu: wait idle: %w", err)
	}
	d.collect()
	return nil
}

// Destroy implements gpucore.Device. The HAL device and queue are not
// destroyed.
func (d *Device) Destroy() {
	if d.destroyed {
		return
	}
	if err := d.device.WaitIdle(); err != nil {
		slogger().Warn("gpu: wait idle during destroy", slog.String("error", err.Error()))
	}
	d.collect()
	for _, r := range d.retired {
		r.free()
	}
	d.retired = nil

	// Reverse dependency order: programs, shaders, textures, buffers.
	for id := range d.programs {
		d.DestroyProgram(id)
	}
	for id := range d.shaders {
		d.DestroyShader(id)
	}
	for id := range d.textures {
		d.DestroyTexture(id)
	}
	for id := range d.buffers {
		d.DestroyBuffer(id)
	}
	clear(d.vertexArrays)
	d.lastSubmit = 0
	d.releaseTarget()
	d.destroyed = true
	slogger().Debug("gpu: device destroyed")
}

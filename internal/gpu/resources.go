//go:build !nogpu

package gpu

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/gpucore"
)

// === Buffers ===

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(target gpucore.BufferTarget, usage gpucore.BufferUsage, size int) (gpucore.BufferID, error) {
	if d.destroyed {
		return gpucore.InvalidID, gpucore.ErrDeviceLost
	}
	if size < 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: negative buffer size %d", gpucore.ErrOutOfRange, size)
	}
	// WebGPU requires a non-zero, 4-byte aligned size.
	alloc := max(uint64(size+3)&^3, 4)
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gfx_" + target.String() + "_" + usage.String(),
		Size:  alloc,
		Usage: bufferUsage(target),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("gpu: create buffer: %w", err)
	}
	id := gpucore.BufferID(d.id())
	d.buffers[id] = &buffer{raw: raw, target: target, usage: usage, size: size, shadow: make([]byte, alloc)}
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	delete(d.buffers, id)
	if d.vertexBuffer == id {
		d.vertexBuffer = gpucore.InvalidID
	}
	if d.indexBuffer == id {
		d.indexBuffer = gpucore.InvalidID
	}
	d.retire(b.lastUse, func() { d.device.DestroyBuffer(b.raw) })
}

// WriteBuffer implements gpucore.Device. Writing a buffer that an
// unfinished draw still reads waits for that draw first.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset int, data []byte) error {
	if d.destroyed {
		return gpucore.ErrDeviceLost
	}
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", gpucore.ErrUnknownResource, id)
	}
	if offset < 0 || offset+len(data) > b.size {
		return fmt.Errorf("%w: [%d, %d) in buffer of %d bytes",
			gpucore.ErrOutOfRange, offset, offset+len(data), b.size)
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.waitFor(b.lastUse); err != nil {
		return err
	}

	copy(b.shadow[offset:], data)

	// Queue writes must start and end on 4-byte boundaries; the shadow copy
	// supplies the neighboring bytes.
	start := offset &^ 3
	end := (offset + len(data) + 3) &^ 3
	return d.writeRaw(b.raw, uint64(start), b.shadow[start:end])
}

func (d *Device) writeRaw(raw hal.Buffer, offset uint64, data []byte) error {
	if err := d.queue.WriteBuffer(raw, offset, data); err != nil {
		return fmt.Errorf("gpu: write buffer: %w", err)
	}
	return nil
}

// BindBuffer implements gpucore.Device.
func (d *Device) BindBuffer(target gpucore.BufferTarget, id gpucore.BufferID) {
	if target == gpucore.BufferTargetIndex {
		d.indexBuffer = id
		return
	}
	d.vertexBuffer = id
}

// === Vertex arrays ===

// CreateVertexArray implements gpucore.Device.
func (d *Device) CreateVertexArray(layout gpucore.VertexLayout) (gpucore.VertexArrayID, error) {
	if d.destroyed {
		return gpucore.InvalidID, gpucore.ErrDeviceLost
	}
	if err := layout.Validate(); err != nil {
		return gpucore.InvalidID, err
	}
	layout.Attributes = slices.Clone(layout.Attributes)
	id := gpucore.VertexArrayID(d.id())
	d.vertexArrays[id] = layout
	return id, nil
}

// DestroyVertexArray implements gpucore.Device.
func (d *Device) DestroyVertexArray(id gpucore.VertexArrayID) {
	delete(d.vertexArrays, id)
	if d.vertexArray == id {
		d.vertexArray = gpucore.InvalidID
	}
	for _, p := range d.programs {
		p.dropPipelines(d, id)
	}
}

// BindVertexArray implements gpucore.Device.
func (d *Device) BindVertexArray(id gpucore.VertexArrayID) { d.vertexArray = id }

// === Textures ===

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	if d.destroyed {
		return gpucore.InvalidID, gpucore.ErrDeviceLost
	}
	if desc.Width == 0 || desc.Height == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture size %dx%d", gpucore.ErrOutOfRange, desc.Width, desc.Height)
	}
	desc.MipLevels = max(desc.MipLevels, 1)
	label := desc.Label
	if label == "" {
		label = "gfx_texture"
	}

	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: desc.MipLevels,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("gpu: create texture: %w", err)
	}
	view, err := d.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: desc.MipLevels,
	})
	if err != nil {
		d.device.DestroyTexture(raw)
		return gpucore.InvalidID, fmt.Errorf("gpu: create texture view: %w", err)
	}
	state := gpucore.DefaultSamplerState()
	sampler, err := d.device.CreateSampler(samplerDescriptor(label+"_sampler", state))
	if err != nil {
		d.device.DestroyTextureView(view)
		d.device.DestroyTexture(raw)
		return gpucore.InvalidID, fmt.Errorf("gpu: create sampler: %w", err)
	}

	id := gpucore.TextureID(d.id())
	d.textures[id] = &texture{raw: raw, view: view, sampler: sampler, desc: desc, state: state}
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	t, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	for slot, bound := range d.slots {
		if bound == id {
			delete(d.slots, slot)
		}
	}
	d.retire(t.lastUse, func() {
		d.device.DestroySampler(t.sampler)
		d.device.DestroyTextureView(t.view)
		d.device.DestroyTexture(t.raw)
	})
}

// WriteTexture implements gpucore.Device.
func (d *Device) WriteTexture(id gpucore.TextureID, level, x, y, w, h uint32, data []byte) error {
	if d.destroyed {
		return gpucore.ErrDeviceLost
	}
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: texture %d", gpucore.ErrUnknownResource, id)
	}
	if level >= t.desc.MipLevels {
		return fmt.Errorf("%w: mip level %d of %d", gpucore.ErrOutOfRange, level, t.desc.MipLevels)
	}
	lw := max(t.desc.Width>>level, 1)
	lh := max(t.desc.Height>>level, 1)
	if x+w > lw || y+h > lh {
		return fmt.Errorf("%w: region %dx%d at (%d,%d) in %dx%d level",
			gpucore.ErrOutOfRange, w, h, x, y, lw, lh)
	}
	if uint32(len(data)) < w*h*4 {
		return fmt.Errorf("%w: %d bytes for %dx%d region", gpucore.ErrOutOfRange, len(data), w, h)
	}
	if w == 0 || h == 0 {
		return nil
	}
	if err := d.waitFor(t.lastUse); err != nil {
		return err
	}
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.raw,
			MipLevel: level,
			Origin:   hal.Origin3D{X: x, Y: y},
			Aspect:   gputypes.TextureAspectAll,
		},
		data[:w*h*4],
		&hal.ImageDataLayout{BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("gpu: write texture: %w", err)
	}
	return nil
}

// SetSampler implements gpucore.Device.
func (d *Device) SetSampler(id gpucore.TextureID, state gpucore.SamplerState) error {
	if d.destroyed {
		return gpucore.ErrDeviceLost
	}
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: texture %d", gpucore.ErrUnknownResource, id)
	}
	if t.state == state {
		return nil
	}
	label := t.desc.Label
	if label == "" {
		label = "gfx_texture"
	}
	sampler, err := d.device.CreateSampler(samplerDescriptor(label+"_sampler", state))
	if err != nil {
		return fmt.Errorf("gpu: create sampler: %w", err)
	}
	old := t.sampler
	d.retire(t.lastUse, func() { d.device.DestroySampler(old) })
	t.sampler = sampler
	t.state = state
	return nil
}

// BindTexture implements gpucore.Device.
func (d *Device) BindTexture(slot int, id gpucore.TextureID) {
	if id == gpucore.InvalidID {
		delete(d.slots, slot)
		return
	}
	d.slots[slot] = id
}

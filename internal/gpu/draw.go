//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/gpucore"
)

// drawCall is everything a render pass needs to issue one indexed draw.
type drawCall struct {
	pipeline  hal.RenderPipeline
	bindGroup hal.BindGroup
	vertices  hal.Buffer
	indices   hal.Buffer
	format    gpucore.IndexFormat
	count     int
}

// DrawIndexed implements gpucore.Device.
func (d *Device) DrawIndexed(format gpucore.IndexFormat, count int) error {
	if d.destroyed {
		return gpucore.ErrDeviceLost
	}
	d.collect()

	p, ok := d.programs[d.program]
	if !ok {
		return fmt.Errorf("%w: program", gpucore.ErrNothingBound)
	}
	layout, ok := d.vertexArrays[d.vertexArray]
	if !ok {
		return fmt.Errorf("%w: vertex array", gpucore.ErrNothingBound)
	}
	vb, ok := d.buffers[d.vertexBuffer]
	if !ok {
		return fmt.Errorf("%w: vertex buffer", gpucore.ErrNothingBound)
	}
	ib, ok := d.buffers[d.indexBuffer]
	if !ok {
		return fmt.Errorf("%w: index buffer", gpucore.ErrNothingBound)
	}
	if count <= 0 || count*format.Size() > ib.size {
		return fmt.Errorf("%w: %d indices in index buffer of %d bytes", gpucore.ErrOutOfRange, count, ib.size)
	}
	textures := make([]*texture, len(p.linked.Textures))
	for slot := range textures {
		t, ok := d.textures[d.slots[slot]]
		if !ok {
			return fmt.Errorf("%w: texture slot %d", gpucore.ErrNothingBound, slot)
		}
		textures[slot] = t
	}
	if d.target.view == nil {
		return ErrNoTarget
	}

	pipe, err := d.pipelineFor(p, d.vertexArray, layout)
	if err != nil {
		return err
	}
	if err := d.uploadUniforms(p); err != nil {
		return err
	}
	bg, err := d.createBindGroup(p, textures)
	if err != nil {
		return err
	}

	err = d.submitPass(&drawCall{
		pipeline:  pipe,
		bindGroup: bg,
		vertices:  vb.raw,
		indices:   ib.raw,
		format:    format,
		count:     count,
	})
	if err != nil {
		d.device.DestroyBindGroup(bg)
		return err
	}

	index := d.lastSubmit
	vb.lastUse, ib.lastUse, p.lastUse = index, index, index
	for _, u := range p.uniforms {
		u.lastUse = index
	}
	for _, t := range textures {
		t.lastUse = index
	}
	d.retire(index, func() { d.device.DestroyBindGroup(bg) })
	return nil
}

func (d *Device) createBindGroup(p *program, textures []*texture) (hal.BindGroup, error) {
	entries := make([]gputypes.BindGroupEntry, 0, len(p.uniforms)+2*len(textures))
	for i, b := range p.linked.Buffers {
		u := p.uniforms[i]
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: b.Binding,
			Resource: gputypes.BufferBinding{
				Buffer: u.raw.NativeHandle(), Offset: 0, Size: uint64(len(u.data)),
			},
		})
	}
	for slot, b := range p.linked.Textures {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  b.Binding,
			Resource: gputypes.TextureViewBinding{TextureView: textures[slot].view.NativeHandle()},
		})
	}
	for slot, b := range p.linked.Samplers {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  b.Binding,
			Resource: gputypes.SamplerBinding{Sampler: textures[slot].sampler.NativeHandle()},
		})
	}

	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "gfx_draw_bind",
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group: %w", err)
	}
	return bg, nil
}

// submitPass records one render pass on the current target and submits it.
// A pending clear is applied by the pass load operation. A nil call submits
// a pass that only clears.
func (d *Device) submitPass(call *drawCall) error {
	if d.target.view == nil {
		return ErrNoTarget
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "gfx_encoder",
	})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("gfx_pass"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}

	attachment := hal.RenderPassColorAttachment{
		View:    d.target.view,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if d.pendingClear != nil {
		attachment.LoadOp = gputypes.LoadOpClear
		attachment.ClearValue = *d.pendingClear
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "gfx_render_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{attachment},
	})
	if call != nil {
		x, y, w, h := d.clampedViewport()
		rp.SetPipeline(call.pipeline)
		rp.SetBindGroup(0, call.bindGroup, nil)
		rp.SetVertexBuffer(0, call.vertices, 0)
		rp.SetIndexBuffer(call.indices, indexFormat(call.format), 0)
		rp.SetViewport(x, y, w, h, 0, 1)
		rp.DrawIndexed(uint32(call.count), 1, 0, 0, 0)
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	index, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		d.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("gpu: submit: %w", err)
	}
	d.lastSubmit = index
	d.pendingClear = nil
	d.retire(index, func() { d.device.FreeCommandBuffer(cmdBuf) })
	return nil
}

// clampedViewport intersects the viewport with the target.
func (d *Device) clampedViewport() (x, y, w, h float32) {
	vx := max(d.viewport[0], 0)
	vy := max(d.viewport[1], 0)
	vw := min(d.viewport[2], int(d.target.width)-vx)
	vh := min(d.viewport[3], int(d.target.height)-vy)
	return float32(vx), float32(vy), float32(max(vw, 1)), float32(max(vh, 1))
}

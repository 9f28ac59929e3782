//go:build !nogpu

package gpu

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/internal/image"
)

// copyPitchAlignment is the WebGPU row pitch alignment for texture copies.
const copyPitchAlignment = 256

// ReadPixels copies the offscreen target back to the CPU. Rows are returned
// top row first. Pending clears are applied first.
func (d *Device) ReadPixels() (*image.Bitmap, error) {
	if !d.target.owned {
		return nil, ErrExternalTarget
	}
	if d.pendingClear != nil {
		if err := d.submitPass(nil); err != nil {
			return nil, err
		}
	}
	w, h := d.target.width, d.target.height

	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gfx_readback",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "gfx_readback"})
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("gfx_readback"); err != nil {
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.target.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(d.target.texture, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: d.target.texture, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.target.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	index, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return nil, fmt.Errorf("gpu: submit: %w", err)
	}
	d.lastSubmit = index
	if err := d.device.WaitIdle(); err != nil {
		return nil, fmt.Errorf("gpu: wait idle: %w", err)
	}
	d.collect()

	mapping, err := d.device.MapBuffer(staging, 0, stagingSize)
	if err != nil {
		return nil, fmt.Errorf("gpu: map staging buffer: %w", err)
	}
	mapped := unsafe.Slice((*byte)(mapping.Ptr), stagingSize)

	out, err := image.NewBitmap(int(w), int(h))
	if err != nil {
		_ = d.device.UnmapBuffer(staging)
		return nil, err
	}
	// Strip row padding.
	for row := range int(h) {
		src := row * int(alignedBytesPerRow)
		copy(out.Row(row), mapped[src:src+int(bytesPerRow)])
	}
	if err := d.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("gpu: unmap staging buffer: %w", err)
	}
	return out, nil
}

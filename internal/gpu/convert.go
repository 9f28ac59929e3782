//go:build !nogpu

package gpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/gpucore"
)

func vertexFormat(f gpucore.VertexFormat) gputypes.VertexFormat {
	switch f {
	case gpucore.VertexFormatFloat32x2:
		return gputypes.VertexFormatFloat32x2
	case gpucore.VertexFormatFloat32x4:
		return gputypes.VertexFormatFloat32x4
	case gpucore.VertexFormatUnorm8x4:
		return gputypes.VertexFormatUnorm8x4
	default:
		return gputypes.VertexFormatFloat32x2
	}
}

func vertexBufferLayout(l gpucore.VertexLayout) gputypes.VertexBufferLayout {
	attrs := make([]gputypes.VertexAttribute, len(l.Attributes))
	for i, a := range l.Attributes {
		attrs[i] = gputypes.VertexAttribute{
			Format:         vertexFormat(a.Format),
			Offset:         uint64(a.Offset),
			ShaderLocation: a.Location,
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(l.Stride),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

func indexFormat(f gpucore.IndexFormat) gputypes.IndexFormat {
	if f == gpucore.IndexFormatUint32 {
		return gputypes.IndexFormatUint32
	}
	return gputypes.IndexFormatUint16
}

func bufferUsage(target gpucore.BufferTarget) gputypes.BufferUsage {
	usage := gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	if target == gpucore.BufferTargetIndex {
		return usage | gputypes.BufferUsageIndex
	}
	return usage | gputypes.BufferUsageVertex
}

func addressMode(w gpucore.WrapMode) gputypes.AddressMode {
	switch w {
	case gpucore.WrapRepeat:
		return gputypes.AddressModeRepeat
	case gpucore.WrapMirroredRepeat:
		return gputypes.AddressModeMirrorRepeat
	default:
		return gputypes.AddressModeClampToEdge
	}
}

// splitFilter separates a GL-style filter into its texel filter and, for the
// mipmap variants, the filter used between levels.
func splitFilter(f gpucore.TextureFilter) (texel, mip gputypes.FilterMode, mipmapped bool) {
	switch f {
	case gpucore.FilterNearest:
		return gputypes.FilterModeNearest, gputypes.FilterModeNearest, false
	case gpucore.FilterNearestMipmapNearest:
		return gputypes.FilterModeNearest, gputypes.FilterModeNearest, true
	case gpucore.FilterLinearMipmapNearest:
		return gputypes.FilterModeLinear, gputypes.FilterModeNearest, true
	case gpucore.FilterNearestMipmapLinear:
		return gputypes.FilterModeNearest, gputypes.FilterModeLinear, true
	case gpucore.FilterLinearMipmapLinear:
		return gputypes.FilterModeLinear, gputypes.FilterModeLinear, true
	default:
		return gputypes.FilterModeLinear, gputypes.FilterModeNearest, false
	}
}

// samplerDescriptor converts a sampler state. Without a mipmap minification
// filter, sampling is clamped to the base level.
func samplerDescriptor(label string, s gpucore.SamplerState) *hal.SamplerDescriptor {
	minFilter, mipFilter, mipmapped := splitFilter(s.MinFilter)
	magFilter, _, _ := splitFilter(s.MagFilter)
	desc := &hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: addressMode(s.WrapS),
		AddressModeV: addressMode(s.WrapT),
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    magFilter,
		MinFilter:    minFilter,
		MipmapFilter: mipFilter,
		LodMinClamp:  0,
		LodMaxClamp:  0,
		Anisotropy:   1,
	}
	if mipmapped {
		desc.LodMaxClamp = 32
	}
	return desc
}

package gpucore

import "fmt"

// Resource IDs
//
// These opaque IDs represent device resources. Each device implementation
// maintains a mapping between IDs and actual backend objects.

// BufferID is an opaque handle to a device buffer.
type BufferID uint64

// TextureID is an opaque handle to a device texture.
type TextureID uint64

// ShaderID is an opaque handle to a compiled shader stage.
type ShaderID uint64

// ProgramID is an opaque handle to a linked shader program.
type ProgramID uint64

// VertexArrayID is an opaque handle to a vertex attribute layout.
type VertexArrayID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferTarget is the binding point class of a buffer.
type BufferTarget uint8

// Buffer targets.
const (
	// BufferTargetVertex binds the buffer as the vertex source.
	BufferTargetVertex BufferTarget = iota + 1

	// BufferTargetIndex binds the buffer as the index source.
	BufferTargetIndex
)

// String returns the string representation of BufferTarget.
func (t BufferTarget) String() string {
	switch t {
	case BufferTargetVertex:
		return "Vertex"
	case BufferTargetIndex:
		return "Index"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// BufferUsage is a hint describing how often a buffer's contents change.
type BufferUsage uint8

// Buffer usage hints.
const (
	// BufferUsageStatic is written once and drawn many times.
	BufferUsageStatic BufferUsage = iota + 1

	// BufferUsageDynamic is rewritten repeatedly and drawn many times.
	BufferUsageDynamic

	// BufferUsageStream is rewritten before nearly every draw.
	BufferUsageStream
)

// String returns the string representation of BufferUsage.
func (u BufferUsage) String() string {
	switch u {
	case BufferUsageStatic:
		return "Static"
	case BufferUsageDynamic:
		return "Dynamic"
	case BufferUsageStream:
		return "Stream"
	default:
		return fmt.Sprintf("Unknown(%d)", int(u))
	}
}

// ShaderStage identifies a programmable pipeline stage.
type ShaderStage uint8

// Shader stages.
const (
	ShaderStageVertex ShaderStage = iota + 1
	ShaderStageFragment
)

// String returns the string representation of ShaderStage.
func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// IndexFormat is the element type of an index buffer.
type IndexFormat uint8

// Index formats.
const (
	IndexFormatUint16 IndexFormat = iota + 1
	IndexFormatUint32
)

// Size returns the byte size of one index.
func (f IndexFormat) Size() int {
	if f == IndexFormatUint32 {
		return 4
	}
	return 2
}

// VertexFormat is the type of a single vertex attribute.
type VertexFormat uint8

// Vertex formats.
const (
	// VertexFormatFloat32x2 is two 32-bit floats.
	VertexFormatFloat32x2 VertexFormat = iota + 1

	// VertexFormatFloat32x4 is four 32-bit floats.
	VertexFormatFloat32x4

	// VertexFormatUnorm8x4 is four normalized bytes, typically a packed color.
	VertexFormatUnorm8x4
)

// Size returns the byte size of an attribute of this format.
func (f VertexFormat) Size() uint32 {
	switch f {
	case VertexFormatFloat32x2:
		return 8
	case VertexFormatFloat32x4:
		return 16
	case VertexFormatUnorm8x4:
		return 4
	default:
		return 0
	}
}

// VertexAttribute describes one attribute inside an interleaved vertex.
type VertexAttribute struct {
	// Location is the shader input location (@location(n) in WGSL).
	Location uint32

	// Format is the attribute type.
	Format VertexFormat

	// Offset is the byte offset of the attribute inside the vertex.
	Offset uint32
}

// VertexLayout describes an interleaved vertex buffer.
type VertexLayout struct {
	// Stride is the byte distance between consecutive vertices.
	Stride uint32

	// Attributes lists the attributes in the vertex.
	Attributes []VertexAttribute
}

// Validate reports whether every attribute fits inside the stride.
func (l VertexLayout) Validate() error {
	if l.Stride == 0 {
		return fmt.Errorf("%w: zero stride", ErrInvalidLayout)
	}
	for _, a := range l.Attributes {
		size := a.Format.Size()
		if size == 0 {
			return fmt.Errorf("%w: attribute %d has unknown format", ErrInvalidLayout, a.Location)
		}
		if a.Offset+size > l.Stride {
			return fmt.Errorf("%w: attribute %d ends at %d, stride is %d",
				ErrInvalidLayout, a.Location, a.Offset+size, l.Stride)
		}
	}
	return nil
}

// TextureFilter selects how texels are sampled. The mipmap variants only
// make sense as a minification filter on a texture with mip levels.
type TextureFilter uint8

// Texture filters.
const (
	FilterNearest TextureFilter = iota + 1
	FilterLinear
	FilterNearestMipmapNearest
	FilterLinearMipmapNearest
	FilterNearestMipmapLinear
	FilterLinearMipmapLinear
)

// String returns the string representation of TextureFilter.
func (f TextureFilter) String() string {
	switch f {
	case FilterNearest:
		return "Nearest"
	case FilterLinear:
		return "Linear"
	case FilterNearestMipmapNearest:
		return "NearestMipmapNearest"
	case FilterLinearMipmapNearest:
		return "LinearMipmapNearest"
	case FilterNearestMipmapLinear:
		return "NearestMipmapLinear"
	case FilterLinearMipmapLinear:
		return "LinearMipmapLinear"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// UsesMipmaps reports whether the filter samples between mip levels.
func (f TextureFilter) UsesMipmaps() bool {
	return f >= FilterNearestMipmapNearest && f <= FilterLinearMipmapLinear
}

// WrapMode selects how texture coordinates outside [0, 1] are resolved.
type WrapMode uint8

// Wrap modes.
const (
	WrapClampToEdge WrapMode = iota + 1
	WrapRepeat
	WrapMirroredRepeat
)

// String returns the string representation of WrapMode.
func (w WrapMode) String() string {
	switch w {
	case WrapClampToEdge:
		return "ClampToEdge"
	case WrapRepeat:
		return "Repeat"
	case WrapMirroredRepeat:
		return "MirroredRepeat"
	default:
		return fmt.Sprintf("Unknown(%d)", int(w))
	}
}

// SamplerState is the sampling configuration attached to a texture.
type SamplerState struct {
	MinFilter TextureFilter
	MagFilter TextureFilter
	WrapS     WrapMode
	WrapT     WrapMode
}

// DefaultSamplerState returns linear filtering with clamp-to-edge wrapping.
func DefaultSamplerState() SamplerState {
	return SamplerState{
		MinFilter: FilterLinear,
		MagFilter: FilterLinear,
		WrapS:     WrapClampToEdge,
		WrapT:     WrapClampToEdge,
	}
}

// TextureDesc describes a 2D RGBA8 texture.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	// Width is the texture width in pixels.
	Width uint32

	// Height is the texture height in pixels.
	Height uint32

	// MipLevels is the number of mip levels. Zero is treated as one.
	MipLevels uint32
}

// UniformLocation identifies a uniform inside a linked program.
// Locations are dense indices assigned at link time.
type UniformLocation int32

// NoUniform is returned for names that are not active in a program.
const NoUniform UniformLocation = -1

// UniformInfo describes one active uniform of a linked program.
type UniformInfo struct {
	// Name is the uniform's declared name.
	Name string

	// Location is the value passed to Device.SetUniform.
	Location UniformLocation

	// Size is the uniform's byte size as laid out by the shader.
	Size uint32
}

// ProgramInfo is the link-time reflection of a program.
type ProgramInfo struct {
	// Uniforms lists the active uniforms, ordered by location.
	Uniforms []UniformInfo

	// TextureSlots is the number of sampled textures the program reads.
	// Slot n is the n-th texture binding in declaration order.
	TextureSlots int
}

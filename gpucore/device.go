package gpucore

import "github.com/gogpu/gputypes"

// Device is the state-oriented graphics API consumed by the gfx package.
//
// A Device is not safe for concurrent use. All calls are expected to come
// from the goroutine that owns the rendering loop.
//
// Binding model:
//   - BindBuffer and BindVertexArray select the vertex and index sources.
//   - UseProgram selects the program and its uniform storage.
//   - BindTexture assigns a texture to a program texture slot.
//   - DrawIndexed draws with whatever is bound at the time of the call.
type Device interface {
	// === Buffers ===

	// CreateBuffer allocates a buffer of size bytes. The contents are
	// zero-initialized.
	CreateBuffer(target BufferTarget, usage BufferUsage, size int) (BufferID, error)

	// DestroyBuffer releases a buffer. Pending draws that reference it are
	// allowed to finish first.
	DestroyBuffer(id BufferID)

	// WriteBuffer copies data into the buffer starting at offset.
	// offset+len(data) must not exceed the buffer size.
	WriteBuffer(id BufferID, offset int, data []byte) error

	// BindBuffer makes id the current buffer for target. InvalidID unbinds.
	BindBuffer(target BufferTarget, id BufferID)

	// === Vertex arrays ===

	// CreateVertexArray registers an interleaved vertex layout.
	CreateVertexArray(layout VertexLayout) (VertexArrayID, error)

	// DestroyVertexArray releases a vertex layout.
	DestroyVertexArray(id VertexArrayID)

	// BindVertexArray selects the vertex layout used by DrawIndexed.
	BindVertexArray(id VertexArrayID)

	// === Textures ===

	// CreateTexture allocates an RGBA8 texture with desc.MipLevels levels.
	CreateTexture(desc TextureDesc) (TextureID, error)

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// WriteTexture uploads tightly packed RGBA8 rows into the given mip
	// level. Rows are ordered by increasing y in texture space.
	WriteTexture(id TextureID, level uint32, x, y, w, h uint32, data []byte) error

	// SetSampler replaces the sampling state of a texture.
	SetSampler(id TextureID, state SamplerState) error

	// BindTexture assigns a texture to a program texture slot.
	// InvalidID clears the slot.
	BindTexture(slot int, id TextureID)

	// === Shaders and programs ===

	// CompileShader compiles source for stage. Failures are returned as
	// *CompileError.
	CompileShader(stage ShaderStage, source string) (ShaderID, error)

	// DestroyShader releases a shader stage. Programs linked from it keep
	// working.
	DestroyShader(id ShaderID)

	// LinkProgram links shader stages into a program. Failures are
	// returned as *LinkError.
	LinkProgram(shaders []ShaderID) (ProgramID, ProgramInfo, error)

	// DestroyProgram releases a program.
	DestroyProgram(id ProgramID)

	// UseProgram selects the program used by DrawIndexed.
	UseProgram(id ProgramID)

	// SetUniform writes the raw bytes of a uniform. The write takes effect
	// for subsequent draws only.
	SetUniform(program ProgramID, loc UniformLocation, data []byte) error

	// === Frame ===

	// SetViewport sets the viewport rectangle in target pixels.
	SetViewport(x, y, w, h int)

	// Clear schedules a clear of the render target. The clear is applied by
	// the next draw or by Flush.
	Clear(color gputypes.Color)

	// DrawIndexed draws count indices of the given format from the bound
	// index buffer.
	DrawIndexed(format IndexFormat, count int) error

	// Flush submits any pending clear and waits until all submitted work
	// has completed.
	Flush() error

	// Destroy releases every resource owned by the device.
	Destroy()
}

// Package devicetest provides an in-memory gpucore.Device that records
// every draw for inspection in tests.
//
// Shaders are compiled and linked with the same naga front-end the GPU
// device uses, so compile and link failures behave identically.
package devicetest

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/gpucore"
	"github.com/gogpu/gfx/internal/shader"
)

// Buffer is the recorded state of a device buffer.
type Buffer struct {
	Target gpucore.BufferTarget
	Usage  gpucore.BufferUsage
	Data   []byte
	Writes int
}

// Texture is the recorded state of a device texture.
type Texture struct {
	Desc    gpucore.TextureDesc
	Sampler gpucore.SamplerState

	// Levels holds tightly packed RGBA8 pixels per mip level.
	Levels [][]byte
}

// Pixel returns the RGBA8 texel at (x, y) of the given level.
func (t *Texture) Pixel(level, x, y uint32) [4]byte {
	w := max(t.Desc.Width>>level, 1)
	i := (y*w + x) * 4
	var px [4]byte
	copy(px[:], t.Levels[level][i:i+4])
	return px
}

// Draw is a snapshot of the bound state at a DrawIndexed call.
type Draw struct {
	Program     gpucore.ProgramID
	VertexArray gpucore.VertexArrayID
	Layout      gpucore.VertexLayout
	Textures    []gpucore.TextureID
	Format      gpucore.IndexFormat
	Count       int
	Viewport    [4]int

	// Vertices and Indices are copies of the bound buffers.
	Vertices []byte
	Indices  []byte

	// Uniforms maps uniform names to their bytes at draw time.
	Uniforms map[string][]byte

	// Clear is the clear color applied before this draw, if any.
	Clear *gputypes.Color
}

// Index returns the i-th index of the draw.
func (d *Draw) Index(i int) uint32 {
	if d.Format == gpucore.IndexFormatUint32 {
		return binary.LittleEndian.Uint32(d.Indices[i*4:])
	}
	return uint32(binary.LittleEndian.Uint16(d.Indices[i*2:]))
}

// Vertex returns the bytes of the i-th vertex.
func (d *Draw) Vertex(i int) []byte {
	s := int(d.Layout.Stride)
	return d.Vertices[i*s : (i+1)*s]
}

type program struct {
	linked   *shader.Program
	uniforms map[gpucore.UniformLocation][]byte
}

// Recorder implements gpucore.Device in memory.
type Recorder struct {
	nextID uint64

	buffers      map[gpucore.BufferID]*Buffer
	vertexArrays map[gpucore.VertexArrayID]gpucore.VertexLayout
	textures     map[gpucore.TextureID]*Texture
	shaders      map[gpucore.ShaderID]*shader.Module
	programs     map[gpucore.ProgramID]*program

	vertexBuffer gpucore.BufferID
	indexBuffer  gpucore.BufferID
	vertexArray  gpucore.VertexArrayID
	program      gpucore.ProgramID
	slots        map[int]gpucore.TextureID
	viewport     [4]int

	pendingClear *gputypes.Color
	failures     map[string]error
	destroyed    bool

	// Draws lists every successful DrawIndexed call in order.
	Draws []Draw

	// Clears lists every clear that reached the target, in order.
	Clears []gputypes.Color

	// Flushes counts Flush calls.
	Flushes int
}

var _ gpucore.Device = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		buffers:      make(map[gpucore.BufferID]*Buffer),
		vertexArrays: make(map[gpucore.VertexArrayID]gpucore.VertexLayout),
		textures:     make(map[gpucore.TextureID]*Texture),
		shaders:      make(map[gpucore.ShaderID]*shader.Module),
		programs:     make(map[gpucore.ProgramID]*program),
		slots:        make(map[int]gpucore.TextureID),
		failures:     make(map[string]error),
	}
}

// FailNext makes the next call of the named method return err.
// Method names are the gpucore.Device method names, e.g. "WriteBuffer".
func (r *Recorder) FailNext(method string, err error) {
	r.failures[method] = err
}

func (r *Recorder) fail(method string) error {
	if r.destroyed {
		return gpucore.ErrDeviceLost
	}
	if err, ok := r.failures[method]; ok {
		delete(r.failures, method)
		return err
	}
	return nil
}

func (r *Recorder) id() uint64 {
	r.nextID++
	return r.nextID
}

// Buffer returns the recorded buffer for id.
func (r *Recorder) Buffer(id gpucore.BufferID) (*Buffer, bool) {
	b, ok := r.buffers[id]
	return b, ok
}

// Texture returns the recorded texture for id.
func (r *Recorder) Texture(id gpucore.TextureID) (*Texture, bool) {
	t, ok := r.textures[id]
	return t, ok
}

// BoundBuffer returns the buffer currently bound to target.
func (r *Recorder) BoundBuffer(target gpucore.BufferTarget) gpucore.BufferID {
	if target == gpucore.BufferTargetIndex {
		return r.indexBuffer
	}
	return r.vertexBuffer
}

// BoundTexture returns the texture bound to slot.
func (r *Recorder) BoundTexture(slot int) gpucore.TextureID {
	return r.slots[slot]
}

// BoundProgram returns the program in use.
func (r *Recorder) BoundProgram() gpucore.ProgramID { return r.program }

// Viewport returns the last viewport set.
func (r *Recorder) Viewport() [4]int { return r.viewport }

// Live returns the number of live resources of every kind.
func (r *Recorder) Live() int {
	return len(r.buffers) + len(r.vertexArrays) + len(r.textures) + len(r.shaders) + len(r.programs)
}

// LiveBuffers returns the number of live buffers.
func (r *Recorder) LiveBuffers() int { return len(r.buffers) }

// LiveTextures returns the number of live textures.
func (r *Recorder) LiveTextures() int { return len(r.textures) }

// LivePrograms returns the number of live programs.
func (r *Recorder) LivePrograms() int { return len(r.programs) }

// CreateBuffer implements gpucore.Device.
func (r *Recorder) CreateBuffer(target gpucore.BufferTarget, usage gpucore.BufferUsage, size int) (gpucore.BufferID, error) {
	if err := r.fail("CreateBuffer"); err != nil {
		return gpucore.InvalidID, err
	}
	if size < 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: negative buffer size %d", gpucore.ErrOutOfRange, size)
	}
	id := gpucore.BufferID(r.id())
	r.buffers[id] = &Buffer{Target: target, Usage: usage, Data: make([]byte, size)}
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (r *Recorder) DestroyBuffer(id gpucore.BufferID) {
	delete(r.buffers, id)
	if r.vertexBuffer == id {
		r.vertexBuffer = gpucore.InvalidID
	}
	if r.indexBuffer == id {
		r.indexBuffer = gpucore.InvalidID
	}
}

// WriteBuffer implements gpucore.Device.
func (r *Recorder) WriteBuffer(id gpucore.BufferID, offset int, data []byte) error {
	if err := r.fail("WriteBuffer"); err != nil {
		return err
	}
	b, ok := r.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", gpucore.ErrUnknownResource, id)
	}
	if offset < 0 || offset+len(data) > len(b.Data) {
		return fmt.Errorf("%w: [%d, %d) in buffer of %d bytes",
			gpucore.ErrOutOfRange, offset, offset+len(data), len(b.Data))
	}
	copy(b.Data[offset:], data)
	b.Writes++
	return nil
}

// BindBuffer implements gpucore.Device.
func (r *Recorder) BindBuffer(target gpucore.BufferTarget, id gpucore.BufferID) {
	if target == gpucore.BufferTargetIndex {
		r.indexBuffer = id
		return
	}
	r.vertexBuffer = id
}

// CreateVertexArray implements gpucore.Device.
func (r *Recorder) CreateVertexArray(layout gpucore.VertexLayout) (gpucore.VertexArrayID, error) {
	if err := r.fail("CreateVertexArray"); err != nil {
		return gpucore.InvalidID, err
	}
	if err := layout.Validate(); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.VertexArrayID(r.id())
	layout.Attributes = slices.Clone(layout.Attributes)
	r.vertexArrays[id] = layout
	return id, nil
}

// DestroyVertexArray implements gpucore.Device.
func (r *Recorder) DestroyVertexArray(id gpucore.VertexArrayID) {
	delete(r.vertexArrays, id)
	if r.vertexArray == id {
		r.vertexArray = gpucore.InvalidID
	}
}

// BindVertexArray implements gpucore.Device.
func (r *Recorder) BindVertexArray(id gpucore.VertexArrayID) { r.vertexArray = id }

// CreateTexture implements gpucore.Device.
func (r *Recorder) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	if err := r.fail("CreateTexture"); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture size %dx%d", gpucore.ErrOutOfRange, desc.Width, desc.Height)
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	t := &Texture{Desc: desc, Sampler: gpucore.DefaultSamplerState()}
	for level := range desc.MipLevels {
		w := max(desc.Width>>level, 1)
		h := max(desc.Height>>level, 1)
		t.Levels = append(t.Levels, make([]byte, w*h*4))
	}
	id := gpucore.TextureID(r.id())
	r.textures[id] = t
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (r *Recorder) DestroyTexture(id gpucore.TextureID) {
	delete(r.textures, id)
	for slot, bound := range r.slots {
		if bound == id {
			delete(r.slots, slot)
		}
	}
}

// WriteTexture implements gpucore.Device.
func (r *Recorder) WriteTexture(id gpucore.TextureID, level, x, y, w, h uint32, data []byte) error {
	if err := r.fail("WriteTexture"); err != nil {
		return err
	}
	t, ok := r.textures[id]
	if !ok {
		return fmt.Errorf("%w: texture %d", gpucore.ErrUnknownResource, id)
	}
	if level >= uint32(len(t.Levels)) {
		return fmt.Errorf("%w: mip level %d of %d", gpucore.ErrOutOfRange, level, len(t.Levels))
	}
	lw := max(t.Desc.Width>>level, 1)
	lh := max(t.Desc.Height>>level, 1)
	if x+w > lw || y+h > lh {
		return fmt.Errorf("%w: region %dx%d at (%d,%d) in %dx%d level",
			gpucore.ErrOutOfRange, w, h, x, y, lw, lh)
	}
	if uint32(len(data)) < w*h*4 {
		return fmt.Errorf("%w: %d bytes for %dx%d region", gpucore.ErrOutOfRange, len(data), w, h)
	}
	dst := t.Levels[level]
	for row := range h {
		src := data[row*w*4 : (row+1)*w*4]
		copy(dst[((y+row)*lw+x)*4:], src)
	}
	return nil
}

// SetSampler implements gpucore.Device.
func (r *Recorder) SetSampler(id gpucore.TextureID, state gpucore.SamplerState) error {
	t, ok := r.textures[id]
	if !ok {
		return fmt.Errorf("%w: texture %d", gpucore.ErrUnknownResource, id)
	}
	t.Sampler = state
	return nil
}

// BindTexture implements gpucore.Device.
func (r *Recorder) BindTexture(slot int, id gpucore.TextureID) {
	if id == gpucore.InvalidID {
		delete(r.slots, slot)
		return
	}
	r.slots[slot] = id
}

// CompileShader implements gpucore.Device.
func (r *Recorder) CompileShader(stage gpucore.ShaderStage, source string) (gpucore.ShaderID, error) {
	if err := r.fail("CompileShader"); err != nil {
		return gpucore.InvalidID, err
	}
	m, err := shader.Compile(stage, source)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ShaderID(r.id())
	r.shaders[id] = m
	return id, nil
}

// DestroyShader implements gpucore.Device.
func (r *Recorder) DestroyShader(id gpucore.ShaderID) { delete(r.shaders, id) }

// LinkProgram implements gpucore.Device.
func (r *Recorder) LinkProgram(ids []gpucore.ShaderID) (gpucore.ProgramID, gpucore.ProgramInfo, error) {
	if err := r.fail("LinkProgram"); err != nil {
		return gpucore.InvalidID, gpucore.ProgramInfo{}, err
	}
	modules := make([]*shader.Module, 0, len(ids))
	for _, id := range ids {
		m, ok := r.shaders[id]
		if !ok {
			return gpucore.InvalidID, gpucore.ProgramInfo{}, &gpucore.LinkError{Log: fmt.Sprintf("shader %d does not exist", id)}
		}
		modules = append(modules, m)
	}
	linked, err := shader.Link(modules)
	if err != nil {
		return gpucore.InvalidID, gpucore.ProgramInfo{}, err
	}
	id := gpucore.ProgramID(r.id())
	r.programs[id] = &program{linked: linked, uniforms: make(map[gpucore.UniformLocation][]byte)}
	return id, linked.Info(), nil
}

// DestroyProgram implements gpucore.Device.
func (r *Recorder) DestroyProgram(id gpucore.ProgramID) {
	delete(r.programs, id)
	if r.program == id {
		r.program = gpucore.InvalidID
	}
}

// UseProgram implements gpucore.Device.
func (r *Recorder) UseProgram(id gpucore.ProgramID) { r.program = id }

// SetUniform implements gpucore.Device.
func (r *Recorder) SetUniform(id gpucore.ProgramID, loc gpucore.UniformLocation, data []byte) error {
	if err := r.fail("SetUniform"); err != nil {
		return err
	}
	p, ok := r.programs[id]
	if !ok {
		return fmt.Errorf("%w: program %d", gpucore.ErrUnknownResource, id)
	}
	u, ok := p.linked.Uniform(loc)
	if !ok {
		return fmt.Errorf("%w: uniform location %d", gpucore.ErrUnknownResource, loc)
	}
	if uint32(len(data)) > u.Size {
		return fmt.Errorf("%w: %d bytes for uniform %q of %d bytes", gpucore.ErrOutOfRange, len(data), u.Name, u.Size)
	}
	p.uniforms[loc] = slices.Clone(data)
	return nil
}

// Uniform returns the last bytes written to the named uniform of a program.
func (r *Recorder) Uniform(id gpucore.ProgramID, name string) ([]byte, bool) {
	p, ok := r.programs[id]
	if !ok {
		return nil, false
	}
	for _, u := range p.linked.Uniforms {
		if u.Name == name {
			data, ok := p.uniforms[u.Location]
			return data, ok
		}
	}
	return nil, false
}

// SetViewport implements gpucore.Device.
func (r *Recorder) SetViewport(x, y, w, h int) { r.viewport = [4]int{x, y, w, h} }

// Clear implements gpucore.Device.
func (r *Recorder) Clear(color gputypes.Color) { r.pendingClear = &color }

// DrawIndexed implements gpucore.Device.
func (r *Recorder) DrawIndexed(format gpucore.IndexFormat, count int) error {
	if err := r.fail("DrawIndexed"); err != nil {
		return err
	}
	p, ok := r.programs[r.program]
	if !ok {
		return fmt.Errorf("%w: program", gpucore.ErrNothingBound)
	}
	layout, ok := r.vertexArrays[r.vertexArray]
	if !ok {
		return fmt.Errorf("%w: vertex array", gpucore.ErrNothingBound)
	}
	vb, ok := r.buffers[r.vertexBuffer]
	if !ok {
		return fmt.Errorf("%w: vertex buffer", gpucore.ErrNothingBound)
	}
	ib, ok := r.buffers[r.indexBuffer]
	if !ok {
		return fmt.Errorf("%w: index buffer", gpucore.ErrNothingBound)
	}
	if count <= 0 || count*format.Size() > len(ib.Data) {
		return fmt.Errorf("%w: %d indices in index buffer of %d bytes", gpucore.ErrOutOfRange, count, len(ib.Data))
	}

	textures := make([]gpucore.TextureID, len(p.linked.Textures))
	for slot := range textures {
		id, ok := r.slots[slot]
		if !ok {
			return fmt.Errorf("%w: texture slot %d", gpucore.ErrNothingBound, slot)
		}
		if _, live := r.textures[id]; !live {
			return fmt.Errorf("%w: texture %d in slot %d", gpucore.ErrUnknownResource, id, slot)
		}
		textures[slot] = id
	}

	d := Draw{
		Program:     r.program,
		VertexArray: r.vertexArray,
		Layout:      layout,
		Textures:    textures,
		Format:      format,
		Count:       count,
		Viewport:    r.viewport,
		Vertices:    slices.Clone(vb.Data),
		Indices:     slices.Clone(ib.Data[:count*format.Size()]),
		Uniforms:    make(map[string][]byte, len(p.uniforms)),
	}
	for i := range count {
		if idx := d.Index(i); int(idx+1)*int(layout.Stride) > len(vb.Data) {
			return fmt.Errorf("%w: index %d addresses vertex %d past the vertex buffer",
				gpucore.ErrOutOfRange, i, idx)
		}
	}
	for loc, data := range p.uniforms {
		if u, ok := p.linked.Uniform(loc); ok {
			d.Uniforms[u.Name] = data
		}
	}
	if r.pendingClear != nil {
		d.Clear = r.pendingClear
		r.Clears = append(r.Clears, *r.pendingClear)
		r.pendingClear = nil
	}
	r.Draws = append(r.Draws, d)
	return nil
}

// Flush implements gpucore.Device.
func (r *Recorder) Flush() error {
	if err := r.fail("Flush"); err != nil {
		return err
	}
	if r.pendingClear != nil {
		r.Clears = append(r.Clears, *r.pendingClear)
		r.pendingClear = nil
	}
	r.Flushes++
	return nil
}

// Destroy implements gpucore.Device.
func (r *Recorder) Destroy() {
	clear(r.buffers)
	clear(r.vertexArrays)
	clear(r.textures)
	clear(r.shaders)
	clear(r.programs)
	clear(r.slots)
	r.destroyed = true
}

// UniformNames returns the names of every uniform set on a program, sorted.
func (r *Recorder) UniformNames(id gpucore.ProgramID) []string {
	p, ok := r.programs[id]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(p.uniforms))
	for loc := range maps.Keys(p.uniforms) {
		if u, ok := p.linked.Uniform(loc); ok {
			names = append(names, u.Name)
		}
	}
	slices.Sort(names)
	return names
}

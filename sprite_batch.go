package gfx

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gfx/gpucore"
)

// BatchStats counts the work of a SpriteBatch since the last ResetStats.
type BatchStats struct {
	// Flushes is the number of draw calls issued.
	Flushes int

	// Sprites is the number of quads drawn.
	Sprites int

	// MaxSpritesPerFlush is the largest number of quads in one draw call.
	MaxSpritesPerFlush int
}

// SpriteBatch accumulates textured quads and draws them with as few indexed
// draw calls as possible.
//
// Use it once per frame as Begin, any number of Draw, DrawRegion and
// DrawSprite calls, then End:
//
//	batch.Begin()
//	batch.Draw(tex, 10, 10, 64, 64)
//	batch.DrawSprite(&player)
//	if err := batch.End(); err != nil {
//	    return err
//	}
//
// Quads are staged on the CPU and submitted when the texture changes, on
// Flush and on End. Each submission binds exactly one texture. Calling the
// methods out of that order, or drawing more quads than the capacity
// between two flushes, is a programming error and panics with an
// *InvalidStateError.
//
// Draw calls that trigger a submission cannot return its error; the first
// such error is kept and returned by the next Flush or End.
//
// A SpriteBatch is not safe for concurrent use.
type SpriteBatch struct {
	dev      gpucore.Device
	label    string
	capacity int

	vertices     []vertex
	vertexOffset int
	lastTexture  *Texture
	drawing      bool
	err          error

	packed      []byte
	vbo         *Buffer
	ibo         *Buffer
	indexFormat gpucore.IndexFormat
	vao         gpucore.VertexArrayID
	program     *ShaderProgram

	projection Matrix

	stats BatchStats
}

// NewSpriteBatch creates a batch holding up to capacity quads between
// flushes. It allocates the streaming vertex buffer, the shared index
// buffer and the vertex layout, and compiles the default sprite program
// unless WithProgram is given.
func NewSpriteBatch(dev gpucore.Device, capacity int, opts ...BatchOption) (*SpriteBatch, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: batch capacity %d", ErrInvalidSize, capacity)
	}
	o := defaultBatchOptions()
	for _, opt := range opts {
		opt(&o)
	}
	propagateLogger(dev)

	b := &SpriteBatch{
		dev:         dev,
		label:       o.label,
		capacity:    capacity,
		vertices:    make([]vertex, capacity*verticesPerQuad),
		packed:      make([]byte, capacity*verticesPerQuad*vertexSize),
		indexFormat: gpucore.IndexFormatUint16,
		projection:  Identity(),
	}
	if capacity*verticesPerQuad > 1<<16 {
		b.indexFormat = gpucore.IndexFormatUint32
	}
	if o.viewport[0] > 0 && o.viewport[1] > 0 {
		b.projection = Ortho(o.viewport[0], o.viewport[1])
	}

	if err := b.initialize(o.program); err != nil {
		b.Release()
		return nil, err
	}

	Logger().Debug("gfx: sprite batch created",
		slog.String("label", b.label),
		slog.Int("capacity", capacity),
		slog.String("index_format", indexFormatName(b.indexFormat)))
	return b, nil
}

func (b *SpriteBatch) initialize(program *ShaderProgram) error {
	var err error
	b.vbo, err = NewBufferWithCapacity(b.dev, gpucore.BufferTargetVertex, gpucore.BufferUsageStream, len(b.packed))
	if err != nil {
		return err
	}

	indices := quadIndices(b.capacity, b.indexFormat)
	b.ibo, err = NewBufferWithCapacity(b.dev, gpucore.BufferTargetIndex, gpucore.BufferUsageStatic, len(indices))
	if err != nil {
		return err
	}
	if err := b.ibo.CopyData(indices); err != nil {
		return err
	}

	vao, err := b.dev.CreateVertexArray(vertexLayout)
	if err != nil || vao == gpucore.InvalidID {
		return creationFailed("sprite vertex layout", err)
	}
	b.vao = vao

	if program != nil {
		if b.program = program.Retain(); b.program == nil {
			return ErrReleased
		}
		return nil
	}
	b.program, err = newDefaultProgram(b.dev)
	return err
}

// newDefaultProgram compiles and links the embedded sprite shaders.
func newDefaultProgram(dev gpucore.Device) (*ShaderProgram, error) {
	vs, err := NewShader(dev, gpucore.ShaderStageVertex, spriteVertexWGSL)
	if err != nil {
		return nil, err
	}
	defer vs.Release()

	fs, err := NewShader(dev, gpucore.ShaderStageFragment, spriteFragmentWGSL)
	if err != nil {
		return nil, err
	}
	defer fs.Release()

	return NewShaderProgram(dev, vs, fs)
}

// Capacity returns the number of quads the batch holds between flushes.
func (b *SpriteBatch) Capacity() int { return b.capacity }

// Pending returns the number of staged quads not yet submitted.
func (b *SpriteBatch) Pending() int { return b.vertexOffset / verticesPerQuad }

// IsDrawing reports whether Begin has been called without a matching End.
func (b *SpriteBatch) IsDrawing() bool { return b.drawing }

// Program returns the program the batch draws with.
func (b *SpriteBatch) Program() *ShaderProgram { return b.program }

// Stats returns the counters accumulated since the last ResetStats.
func (b *SpriteBatch) Stats() BatchStats { return b.stats }

// ResetStats zeroes the counters.
func (b *SpriteBatch) ResetStats() { b.stats = BatchStats{} }

// Projection returns the current projection.
func (b *SpriteBatch) Projection() Matrix { return b.projection }

// SetProjection replaces the projection. Quads staged under the previous
// projection are flushed first.
func (b *SpriteBatch) SetProjection(m Matrix) {
	if b.drawing {
		b.flush()
	}
	b.projection = m
}

// SetViewport sets the projection to Ortho(width, height): screen units are
// pixels with the origin at the top-left corner.
func (b *SpriteBatch) SetViewport(width, height int) {
	b.SetProjection(Ortho(float64(width), float64(height)))
}

// Begin starts a batch. It panics if the batch is already drawing.
func (b *SpriteBatch) Begin() {
	if b.drawing {
		invalidState("Begin", "batch is already drawing; call End first")
	}
	if b.program == nil {
		invalidState("Begin", "batch has been released")
	}
	b.drawing = true
	b.err = nil
}

// End flushes the staged quads and finishes the batch. It panics if Begin
// was not called. The returned error is the first submission error since
// Begin.
func (b *SpriteBatch) End() error {
	if !b.drawing {
		invalidState("End", "batch is not drawing; call Begin first")
	}
	b.flush()
	b.drawing = false
	err := b.err
	b.err = nil
	return err
}

// Flush submits the staged quads now. It panics if the batch is not
// drawing. The returned error is the first submission error since Begin.
func (b *SpriteBatch) Flush() error {
	if !b.drawing {
		invalidState("Flush", "batch is not drawing")
	}
	b.flush()
	return b.err
}

// Draw stages an axis-aligned quad showing the whole texture, with its
// top-left corner at (x, y). The color defaults to opaque white.
func (b *SpriteBatch) Draw(tex *Texture, x, y, width, height float64, color ...Color) {
	b.DrawRegion(NewTextureRegion(tex), x, y, width, height, color...)
}

// DrawRegion stages an axis-aligned quad showing region, with its top-left
// corner at (x, y). The color defaults to opaque white.
func (b *SpriteBatch) DrawRegion(region TextureRegion, x, y, width, height float64, color ...Color) {
	b.checkState("DrawRegion", region.Texture)

	c := White
	if len(color) > 0 {
		c = color[0]
	}
	corners := [4]Vec2{
		{X: x, Y: y},
		{X: x + width, Y: y},
		{X: x + width, Y: y + height},
		{X: x, Y: y + height},
	}
	b.appendQuad(&corners, &region, c.Pack())
}

// DrawSprite stages a sprite, rotated about its origin.
func (b *SpriteBatch) DrawSprite(s *Sprite) {
	if s == nil {
		invalidState("DrawSprite", "nil sprite")
	}
	b.checkState("DrawSprite", s.Region.Texture)

	corners := s.Corners()
	b.appendQuad(&corners, &s.Region, s.Color.Pack())
}

// checkState verifies the batch is drawing and flushes if tex differs from
// the texture of the staged quads.
func (b *SpriteBatch) checkState(op string, tex *Texture) {
	if !b.drawing {
		invalidState(op, "batch is not drawing; call Begin first")
	}
	if tex == nil {
		invalidState(op, "nil texture")
	}
	if b.lastTexture != nil && !b.lastTexture.Equal(tex) {
		b.flush()
	}
	b.lastTexture = tex
}

// appendQuad stages four vertices in the order top-left, top-right,
// bottom-right, bottom-left. Top corners sample V2, bottom corners V.
func (b *SpriteBatch) appendQuad(corners *[4]Vec2, r *TextureRegion, color [4]uint8) {
	if b.vertexOffset+verticesPerQuad > len(b.vertices) {
		invalidState("Draw", "more than %d quads staged; flush more often or create a larger batch", b.capacity)
	}
	uvs := [4][2]float32{
		{r.U, r.V2},
		{r.U2, r.V2},
		{r.U2, r.V},
		{r.U, r.V},
	}
	v := b.vertices[b.vertexOffset : b.vertexOffset+verticesPerQuad]
	for i := range v {
		v[i] = vertex{
			x:     float32(corners[i].X),
			y:     float32(corners[i].Y),
			u:     uvs[i][0],
			v:     uvs[i][1],
			color: color,
		}
	}
	b.vertexOffset += verticesPerQuad
}

// flush submits the staged quads as one indexed draw. Errors are kept in
// b.err; the staged quads are dropped either way.
func (b *SpriteBatch) flush() {
	if b.vertexOffset == 0 {
		return
	}
	quads := b.vertexOffset / verticesPerQuad
	if err := b.submit(quads); err != nil && b.err == nil {
		b.err = err
		Logger().Warn("gfx: sprite batch flush failed",
			slog.String("label", b.label),
			slog.Int("sprites", quads),
			slog.String("error", err.Error()))
	}

	b.stats.Flushes++
	b.stats.Sprites += quads
	b.stats.MaxSpritesPerFlush = max(b.stats.MaxSpritesPerFlush, quads)
	b.vertexOffset = 0
	b.lastTexture = nil
}

func (b *SpriteBatch) submit(quads int) error {
	n := b.vertexOffset * vertexSize
	for i := range b.vertexOffset {
		b.vertices[i].put(b.packed[i*vertexSize:])
	}
	if err := b.vbo.CopyDataPart(b.packed, n, 0); err != nil {
		return err
	}

	b.dev.BindVertexArray(b.vao)
	b.vbo.Bind()
	b.ibo.Bind()
	b.program.Bind()
	// The program may be shared with other batches, so u_projection is
	// written on every submission.
	if err := b.program.SetUniformMatrix("u_projection", b.projection); err != nil {
		return err
	}
	b.lastTexture.Bind(0)

	if err := b.dev.DrawIndexed(b.indexFormat, quads*indicesPerQuad); err != nil {
		return fmt.Errorf("gfx: draw %d sprites: %w", quads, err)
	}
	return nil
}

// Release destroys the batch's buffers and layout and drops its program
// reference. The batch cannot be used afterwards.
func (b *SpriteBatch) Release() {
	if b.vbo != nil {
		b.vbo.Release()
		b.vbo = nil
	}
	if b.ibo != nil {
		b.ibo.Release()
		b.ibo = nil
	}
	if b.vao != gpucore.InvalidID {
		b.dev.DestroyVertexArray(b.vao)
		b.vao = gpucore.InvalidID
	}
	if b.program != nil {
		b.program.Release()
		b.program = nil
	}
	b.drawing = false
	b.vertexOffset = 0
	b.lastTexture = nil
}

func indexFormatName(f gpucore.IndexFormat) string {
	if f == gpucore.IndexFormatUint32 {
		return "uint32"
	}
	return "uint16"
}

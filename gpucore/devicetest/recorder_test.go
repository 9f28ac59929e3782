package devicetest

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/gpucore"
)

const vertexSrc = `
@group(0) @binding(0) var<uniform> u_projection: mat4x4<f32>;

@vertex
fn vs_main(@location(0) position: vec2<f32>) -> @builtin(position) vec4<f32> {
    return u_projection * vec4<f32>(position, 0.0, 1.0);
}
`

const fragmentSrc = `
@group(0) @binding(1) var u_texture: texture_2d<f32>;
@group(0) @binding(2) var u_sampler: sampler;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return textureSample(u_texture, u_sampler, vec2<f32>(0.5, 0.5));
}
`

func setupDraw(t *testing.T, r *Recorder) gpucore.ProgramID {
	t.Helper()

	vs, err := r.CompileShader(gpucore.ShaderStageVertex, vertexSrc)
	if err != nil {
		t.Fatalf("CompileShader(vertex) error = %v", err)
	}
	fs, err := r.CompileShader(gpucore.ShaderStageFragment, fragmentSrc)
	if err != nil {
		t.Fatalf("CompileShader(fragment) error = %v", err)
	}
	prog, info, err := r.LinkProgram([]gpucore.ShaderID{vs, fs})
	if err != nil {
		t.Fatalf("LinkProgram() error = %v", err)
	}
	if info.TextureSlots != 1 {
		t.Fatalf("TextureSlots = %d, want 1", info.TextureSlots)
	}

	vao, err := r.CreateVertexArray(gpucore.VertexLayout{
		Stride:     8,
		Attributes: []gpucore.VertexAttribute{{Location: 0, Format: gpucore.VertexFormatFloat32x2}},
	})
	if err != nil {
		t.Fatalf("CreateVertexArray() error = %v", err)
	}
	vb, _ := r.CreateBuffer(gpucore.BufferTargetVertex, gpucore.BufferUsageStream, 4*8)
	ib, _ := r.CreateBuffer(gpucore.BufferTargetIndex, gpucore.BufferUsageStatic, 6*2)
	idx := make([]byte, 12)
	for i, v := range []uint16{0, 1, 2, 2, 3, 0} {
		binary.LittleEndian.PutUint16(idx[i*2:], v)
	}
	if err := r.WriteBuffer(ib, 0, idx); err != nil {
		t.Fatalf("WriteBuffer(index) error = %v", err)
	}
	tex, _ := r.CreateTexture(gpucore.TextureDesc{Width: 2, Height: 2})

	r.UseProgram(prog)
	r.BindVertexArray(vao)
	r.BindBuffer(gpucore.BufferTargetVertex, vb)
	r.BindBuffer(gpucore.BufferTargetIndex, ib)
	r.BindTexture(0, tex)
	return prog
}

func TestRecorderDraw(t *testing.T) {
	r := NewRecorder()
	prog := setupDraw(t, r)

	if err := r.SetUniform(prog, 0, make([]byte, 64)); err != nil {
		t.Fatalf("SetUniform() error = %v", err)
	}
	r.SetViewport(0, 0, 320, 240)
	r.Clear(gputypes.Color{R: 1, A: 1})

	if err := r.DrawIndexed(gpucore.IndexFormatUint16, 6); err != nil {
		t.Fatalf("DrawIndexed() error = %v", err)
	}
	if len(r.Draws) != 1 {
		t.Fatalf("len(Draws) = %d, want 1", len(r.Draws))
	}
	d := r.Draws[0]
	if d.Count != 6 || d.Index(4) != 3 {
		t.Errorf("draw count=%d index[4]=%d, want 6 and 3", d.Count, d.Index(4))
	}
	if d.Clear == nil || d.Clear.R != 1 {
		t.Errorf("draw Clear = %v, want red", d.Clear)
	}
	if d.Viewport != [4]int{0, 0, 320, 240} {
		t.Errorf("Viewport = %v", d.Viewport)
	}
	if _, ok := d.Uniforms["u_projection"]; !ok {
		t.Error("u_projection not captured in draw")
	}
	if len(r.Clears) != 1 {
		t.Errorf("len(Clears) = %d, want 1", len(r.Clears))
	}
}

func TestRecorderDrawRequiresBindings(t *testing.T) {
	r := NewRecorder()
	setupDraw(t, r)
	r.BindTexture(0, gpucore.InvalidID)

	err := r.DrawIndexed(gpucore.IndexFormatUint16, 6)
	if !errors.Is(err, gpucore.ErrNothingBound) {
		t.Errorf("DrawIndexed() error = %v, want ErrNothingBound", err)
	}
}

func TestRecorderDrawIndexPastVertices(t *testing.T) {
	r := NewRecorder()
	setupDraw(t, r)

	ib, _ := r.CreateBuffer(gpucore.BufferTargetIndex, gpucore.BufferUsageStatic, 2)
	_ = r.WriteBuffer(ib, 0, []byte{9, 0})
	r.BindBuffer(gpucore.BufferTargetIndex, ib)

	err := r.DrawIndexed(gpucore.IndexFormatUint16, 1)
	if !errors.Is(err, gpucore.ErrOutOfRange) {
		t.Errorf("DrawIndexed() error = %v, want ErrOutOfRange", err)
	}
}

func TestRecorderWriteBounds(t *testing.T) {
	r := NewRecorder()
	id, _ := r.CreateBuffer(gpucore.BufferTargetVertex, gpucore.BufferUsageDynamic, 4)

	if err := r.WriteBuffer(id, 2, []byte{1, 2, 3}); !errors.Is(err, gpucore.ErrOutOfRange) {
		t.Errorf("WriteBuffer past end error = %v, want ErrOutOfRange", err)
	}
	if err := r.WriteBuffer(99, 0, nil); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("WriteBuffer unknown error = %v, want ErrUnknownResource", err)
	}
}

func TestRecorderWriteTexture(t *testing.T) {
	r := NewRecorder()
	id, err := r.CreateTexture(gpucore.TextureDesc{Width: 4, Height: 4, MipLevels: 3})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	tex, _ := r.Texture(id)
	if len(tex.Levels) != 3 || len(tex.Levels[2]) != 4 {
		t.Fatalf("levels = %d, last = %d bytes", len(tex.Levels), len(tex.Levels[2]))
	}

	if err := r.WriteTexture(id, 0, 1, 2, 1, 1, []byte{10, 20, 30, 40}); err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}
	if got := tex.Pixel(0, 1, 2); got != [4]byte{10, 20, 30, 40} {
		t.Errorf("Pixel(0,1,2) = %v", got)
	}
	if err := r.WriteTexture(id, 1, 1, 1, 2, 2, make([]byte, 16)); !errors.Is(err, gpucore.ErrOutOfRange) {
		t.Errorf("WriteTexture outside level error = %v, want ErrOutOfRange", err)
	}
}

func TestRecorderFailNext(t *testing.T) {
	r := NewRecorder()
	boom := errors.New("boom")
	r.FailNext("CreateBuffer", boom)

	if _, err := r.CreateBuffer(gpucore.BufferTargetVertex, gpucore.BufferUsageStatic, 4); !errors.Is(err, boom) {
		t.Errorf("first CreateBuffer error = %v, want boom", err)
	}
	if _, err := r.CreateBuffer(gpucore.BufferTargetVertex, gpucore.BufferUsageStatic, 4); err != nil {
		t.Errorf("second CreateBuffer error = %v", err)
	}
}

func TestRecorderDestroy(t *testing.T) {
	r := NewRecorder()
	setupDraw(t, r)
	r.Destroy()

	if r.Live() != 0 {
		t.Errorf("Live() = %d after Destroy", r.Live())
	}
	if _, err := r.CreateBuffer(gpucore.BufferTargetVertex, gpucore.BufferUsageStatic, 4); !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Errorf("CreateBuffer after Destroy error = %v, want ErrDeviceLost", err)
	}
}

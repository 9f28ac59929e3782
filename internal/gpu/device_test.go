//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gfx/gpucore"
)

const testVertex = `
@group(0) @binding(0) var<uniform> u_projection: mat4x4<f32>;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@location(0) position: vec2<f32>, @location(1) uv: vec2<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = u_projection * vec4<f32>(position, 0.0, 1.0);
    out.uv = uv;
    return out;
}
`

const testFragment = `
@group(0) @binding(1) var u_texture: texture_2d<f32>;
@group(0) @binding(2) var u_sampler: sampler;

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(u_texture, u_sampler, uv);
}
`

// createNoopDevice creates a noop HAL device for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()

	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		t.Fatal("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// countingDevice records destroy calls of the wrapped HAL device.
type countingDevice struct {
	hal.Device
	bindGroupsDestroyed int
	buffersDestroyed    int
	buffersCreated      int
	pipelinesCreated    int
	modulesDestroyed    int
}

func (c *countingDevice) DestroyBindGroup(g hal.BindGroup) {
	c.bindGroupsDestroyed++
	c.Device.DestroyBindGroup(g)
}

func (c *countingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	c.buffersCreated++
	return c.Device.CreateBuffer(desc)
}

func (c *countingDevice) DestroyBuffer(b hal.Buffer) {
	c.buffersDestroyed++
	c.Device.DestroyBuffer(b)
}

func (c *countingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	c.pipelinesCreated++
	return c.Device.CreateRenderPipeline(desc)
}

func (c *countingDevice) DestroyShaderModule(m hal.ShaderModule) {
	c.modulesDestroyed++
	c.Device.DestroyShaderModule(m)
}

// laggingQueue reports submissions complete only up to completed.
type laggingQueue struct {
	hal.Queue
	completed uint64
}

func (q *laggingQueue) PollCompleted() uint64 {
	return min(q.completed, q.Queue.PollCompleted())
}

func newTestDevice(t *testing.T) (*Device, *countingDevice, *laggingQueue) {
	t.Helper()
	halDev, halQueue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)

	cd := &countingDevice{Device: halDev}
	lq := &laggingQueue{Queue: halQueue, completed: ^uint64(0)}
	d, err := New(cd, lq, 64, 32)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d, cd, lq
}

// setupQuad binds a complete draw state and returns the program.
func setupQuad(t *testing.T, d *Device) gpucore.ProgramID {
	t.Helper()

	vs, err := d.CompileShader(gpucore.ShaderStageVertex, testVertex)
	if err != nil {
		t.Fatalf("CompileShader(vertex) error = %v", err)
	}
	fs, err := d.CompileShader(gpucore.ShaderStageFragment, testFragment)
	if err != nil {
		t.Fatalf("CompileShader(fragment) error = %v", err)
	}
	prog, info, err := d.LinkProgram([]gpucore.ShaderID{vs, fs})
	if err != nil {
		t.Fatalf("LinkProgram() error = %v", err)
	}
	if info.TextureSlots != 1 || len(info.Uniforms) != 1 {
		t.Fatalf("info = %+v", info)
	}

	vao, err := d.CreateVertexArray(gpucore.VertexLayout{
		Stride: 16,
		Attributes: []gpucore.VertexAttribute{
			{Location: 0, Format: gpucore.VertexFormatFloat32x2, Offset: 0},
			{Location: 1, Format: gpucore.VertexFormatFloat32x2, Offset: 8},
		},
	})
	if err != nil {
		t.Fatalf("CreateVertexArray() error = %v", err)
	}
	vb, err := d.CreateBuffer(gpucore.BufferTargetVertex, gpucore.BufferUsageStream, 4*16)
	if err != nil {
		t.Fatalf("CreateBuffer(vertex) error = %v", err)
	}
	ib, err := d.CreateBuffer(gpucore.BufferTargetIndex, gpucore.BufferUsageStatic, 6*2)
	if err != nil {
		t.Fatalf("CreateBuffer(index) error = %v", err)
	}
	idx := make([]byte, 12)
	for i, v := range []uint16{0, 1, 2, 2, 3, 0} {
		binary.LittleEndian.PutUint16(idx[i*2:], v)
	}
	if err := d.WriteBuffer(ib, 0, idx); err != nil {
		t.Fatalf("WriteBuffer(index) error = %v", err)
	}
	tex, err := d.CreateTexture(gpucore.TextureDesc{Label: "test", Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}

	d.UseProgram(prog)
	d.BindVertexArray(vao)
	d.BindBuffer(gpucore.BufferTargetVertex, vb)
	d.BindBuffer(gpucore.BufferTargetIndex, ib)
	d.BindTexture(0, tex)
	return prog
}

func TestNewRejectsNil(t *testing.T) {
	if _, err := New(nil, nil, 1, 1); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil, nil) error = %v, want ErrNilDevice", err)
	}
}

func TestDrawIndexed(t *testing.T) {
	d, cd, _ := newTestDevice(t)
	defer d.Destroy()
	prog := setupQuad(t, d)

	if err := d.SetUniform(prog, 0, make([]byte, 64)); err != nil {
		t.Fatalf("SetUniform() error = %v", err)
	}
	d.Clear(gputypes.Color{A: 1})
	for range 3 {
		if err := d.DrawIndexed(gpucore.IndexFormatUint16, 6); err != nil {
			t.Fatalf("DrawIndexed() error = %v", err)
		}
	}
	if d.pendingClear != nil {
		t.Error("pending clear not consumed by draw")
	}
	if cd.pipelinesCreated != 1 {
		t.Errorf("pipelines created = %d, want 1 (cached)", cd.pipelinesCreated)
	}
	if cd.bindGroupsDestroyed != 3 {
		t.Errorf("bind groups destroyed = %d, want 3", cd.bindGroupsDestroyed)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestDrawIndexedMissingBindings(t *testing.T) {
	d, _, _ := newTestDevice(t)
	defer d.Destroy()
	setupQuad(t, d)
	d.BindTexture(0, gpucore.InvalidID)

	if err := d.DrawIndexed(gpucore.IndexFormatUint16, 6); !errors.Is(err, gpucore.ErrNothingBound) {
		t.Errorf("DrawIndexed() error = %v, want ErrNothingBound", err)
	}
	if err := d.DrawIndexed(gpucore.IndexFormatUint16, 600); err == nil {
		t.Error("DrawIndexed past index buffer returned nil error")
	}
}

func TestDeferredRelease(t *testing.T) {
	d, cd, lq := newTestDevice(t)
	defer d.Destroy()
	setupQuad(t, d)

	lq.completed = 0
	if err := d.DrawIndexed(gpucore.IndexFormatUint16, 6); err != nil {
		t.Fatalf("DrawIndexed() error = %v", err)
	}
	if cd.bindGroupsDestroyed != 0 {
		t.Fatalf("bind group destroyed before submission completed")
	}
	if len(d.retired) == 0 {
		t.Fatal("nothing retired for in-flight submission")
	}

	lq.completed = ^uint64(0)
	d.collect()
	if cd.bindGroupsDestroyed != 1 {
		t.Errorf("bind groups destroyed = %d after completion, want 1", cd.bindGroupsDestroyed)
	}
	if len(d.retired) != 0 {
		t.Errorf("retired = %d after collect, want 0", len(d.retired))
	}
}

func TestUniformOrphaning(t *testing.T) {
	d, cd, lq := newTestDevice(t)
	defer d.Destroy()
	prog := setupQuad(t, d)

	if err := d.DrawIndexed(gpucore.IndexFormatUint16, 6); err != nil {
		t.Fatalf("DrawIndexed() error = %v", err)
	}
	lq.completed = 0
	before := cd.buffersCreated
	if err := d.SetUniform(prog, 0, make([]byte, 64)); err != nil {
		t.Fatalf("SetUniform() error = %v", err)
	}
	if err := d.DrawIndexed(gpucore.IndexFormatUint16, 6); err != nil {
		t.Fatalf("DrawIndexed() error = %v", err)
	}
	if cd.buffersCreated != before+1 {
		t.Errorf("buffers created = %d, want %d (uniform orphaned)", cd.buffersCreated, before+1)
	}
	lq.completed = ^uint64(0)
}

func TestWriteBufferUnaligned(t *testing.T) {
	d, _, _ := newTestDevice(t)
	defer d.Destroy()

	id, err := d.CreateBuffer(gpucore.BufferTargetVertex, gpucore.BufferUsageDynamic, 10)
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	if err := d.WriteBuffer(id, 0, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}); err != nil {
		t.Fatalf("WriteBuffer() error = %v", err)
	}
	if err := d.WriteBuffer(id, 3, []byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("WriteBuffer(unaligned) error = %v", err)
	}
	want := []byte{1, 2, 3, 0xAA, 0xBB, 6, 7, 8, 9, 10}
	got := d.buffers[id].shadow[:10]
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("shadow = %v, want %v", got, want)
		}
	}
	if err := d.WriteBuffer(id, 8, []byte{1, 2, 3}); !errors.Is(err, gpucore.ErrOutOfRange) {
		t.Errorf("WriteBuffer past end error = %v, want ErrOutOfRange", err)
	}
}

func TestWriteTextureBounds(t *testing.T) {
	d, _, _ := newTestDevice(t)
	defer d.Destroy()

	id, err := d.CreateTexture(gpucore.TextureDesc{Width: 8, Height: 8, MipLevels: 4})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if err := d.WriteTexture(id, 3, 0, 0, 1, 1, make([]byte, 4)); err != nil {
		t.Errorf("WriteTexture(level 3) error = %v", err)
	}
	if err := d.WriteTexture(id, 4, 0, 0, 1, 1, make([]byte, 4)); !errors.Is(err, gpucore.ErrOutOfRange) {
		t.Errorf("WriteTexture(level 4) error = %v, want ErrOutOfRange", err)
	}
	if err := d.WriteTexture(id, 1, 2, 2, 4, 4, make([]byte, 64)); !errors.Is(err, gpucore.ErrOutOfRange) {
		t.Errorf("WriteTexture outside level error = %v, want ErrOutOfRange", err)
	}
	if err := d.SetSampler(id, gpucore.SamplerState{
		MinFilter: gpucore.FilterLinearMipmapLinear,
		MagFilter: gpucore.FilterNearest,
		WrapS:     gpucore.WrapRepeat,
		WrapT:     gpucore.WrapMirroredRepeat,
	}); err != nil {
		t.Errorf("SetSampler() error = %v", err)
	}
}

func TestShaderOutlivesDestroyUntilProgramGone(t *testing.T) {
	d, cd, _ := newTestDevice(t)
	defer d.Destroy()

	vs, _ := d.CompileShader(gpucore.ShaderStageVertex, testVertex)
	fs, _ := d.CompileShader(gpucore.ShaderStageFragment, testFragment)
	prog, _, err := d.LinkProgram([]gpucore.ShaderID{vs, fs})
	if err != nil {
		t.Fatalf("LinkProgram() error = %v", err)
	}

	d.DestroyShader(vs)
	d.DestroyShader(fs)
	if cd.modulesDestroyed != 0 {
		t.Fatalf("modules destroyed = %d while program alive", cd.modulesDestroyed)
	}
	d.DestroyProgram(prog)
	if cd.modulesDestroyed != 2 {
		t.Errorf("modules destroyed = %d after program destroy, want 2", cd.modulesDestroyed)
	}
}

func TestCompileShaderError(t *testing.T) {
	d, _, _ := newTestDevice(t)
	defer d.Destroy()

	_, err := d.CompileShader(gpucore.ShaderStageVertex, "fn broken(")
	var ce *gpucore.CompileError
	if !errors.As(err, &ce) || ce.Log == "" {
		t.Errorf("CompileShader() error = %v, want *CompileError with log", err)
	}
}

func TestReadPixels(t *testing.T) {
	d, _, _ := newTestDevice(t)
	defer d.Destroy()

	d.Clear(gputypes.Color{R: 1, A: 1})
	bm, err := d.ReadPixels()
	if err != nil {
		t.Fatalf("ReadPixels() error = %v", err)
	}
	if bm.Width() != 64 || bm.Height() != 32 {
		t.Errorf("ReadPixels size = %dx%d, want 64x32", bm.Width(), bm.Height())
	}

	d.SetTarget(d.target.view, gputypes.TextureFormatBGRA8Unorm, 64, 32)
	if _, err := d.ReadPixels(); !errors.Is(err, ErrExternalTarget) {
		t.Errorf("ReadPixels on external target error = %v, want ErrExternalTarget", err)
	}
}

func TestResizeTarget(t *testing.T) {
	d, _, _ := newTestDevice(t)
	defer d.Destroy()

	if err := d.ResizeTarget(10, 20); err != nil {
		t.Fatalf("ResizeTarget() error = %v", err)
	}
	if w, h := d.TargetSize(); w != 10 || h != 20 {
		t.Errorf("TargetSize() = %dx%d, want 10x20", w, h)
	}
	if err := d.ResizeTarget(0, 20); err == nil {
		t.Error("ResizeTarget(0, 20) returned nil error")
	}
}

func TestDestroy(t *testing.T) {
	d, _, _ := newTestDevice(t)
	setupQuad(t, d)
	d.Destroy()

	if len(d.buffers)+len(d.textures)+len(d.programs)+len(d.shaders) != 0 {
		t.Error("resources left after Destroy")
	}
	if _, err := d.CreateBuffer(gpucore.BufferTargetVertex, gpucore.BufferUsageStatic, 4); !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Errorf("CreateBuffer after Destroy error = %v, want ErrDeviceLost", err)
	}
	d.Destroy()
}

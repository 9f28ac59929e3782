//go:build !nogpu

package gpu

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/gpucore"
	"github.com/gogpu/gfx/internal/shader"
)

// uniformBuffer is the GPU storage and CPU shadow of one var<uniform>.
type uniformBuffer struct {
	raw     hal.Buffer
	data    []byte
	dirty   bool
	lastUse uint64
}

type pipelineKey struct {
	vertexArray gpucore.VertexArrayID
	format      gputypes.TextureFormat
}

// program is a linked pair of stages with its layouts and uniform storage.
type program struct {
	linked   *shader.Program
	stages   []*shaderStage
	layout   hal.BindGroupLayout
	pipeLay  hal.PipelineLayout
	uniforms []*uniformBuffer

	pipelines map[pipelineKey]hal.RenderPipeline
	lastUse   uint64
}

// === Shaders and programs ===

// CompileShader implements gpucore.Device.
func (d *Device) CompileShader(stage gpucore.ShaderStage, source string) (gpucore.ShaderID, error) {
	if d.destroyed {
		return gpucore.InvalidID, gpucore.ErrDeviceLost
	}
	m, err := shader.Compile(stage, source)
	if err != nil {
		slogger().Debug("gpu: shader compile failed",
			slog.String("stage", stage.String()),
			slog.String("error", err.Error()))
		return gpucore.InvalidID, err
	}
	raw, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: "gfx_" + stage.String(),
		Source: hal.ShaderSource{
			WGSL:  source,
			SPIRV: m.SPIRV,
		},
	})
	if err != nil {
		return gpucore.InvalidID, &gpucore.CompileError{Stage: stage, Log: err.Error()}
	}
	id := gpucore.ShaderID(d.id())
	d.shaders[id] = &shaderStage{module: m, raw: raw}
	return id, nil
}

// DestroyShader implements gpucore.Device. The HAL module stays alive while
// a program linked from it exists.
func (d *Device) DestroyShader(id gpucore.ShaderID) {
	s, ok := d.shaders[id]
	if !ok {
		return
	}
	delete(d.shaders, id)
	s.destroyed = true
	d.releaseStage(s)
}

func (d *Device) releaseStage(s *shaderStage) {
	if s.destroyed && s.refs == 0 && s.raw != nil {
		d.device.DestroyShaderModule(s.raw)
		s.raw = nil
	}
}

// LinkProgram implements gpucore.Device.
func (d *Device) LinkProgram(ids []gpucore.ShaderID) (gpucore.ProgramID, gpucore.ProgramInfo, error) {
	if d.destroyed {
		return gpucore.InvalidID, gpucore.ProgramInfo{}, gpucore.ErrDeviceLost
	}
	stages := make([]*shaderStage, 0, len(ids))
	modules := make([]*shader.Module, 0, len(ids))
	for _, id := range ids {
		s, ok := d.shaders[id]
		if !ok {
			return gpucore.InvalidID, gpucore.ProgramInfo{}, &gpucore.LinkError{Log: fmt.Sprintf("shader %d does not exist", id)}
		}
		stages = append(stages, s)
		modules = append(modules, s.module)
	}
	linked, err := shader.Link(modules)
	if err != nil {
		return gpucore.InvalidID, gpucore.ProgramInfo{}, err
	}

	p := &program{
		linked:    linked,
		stages:    stages,
		pipelines: make(map[pipelineKey]hal.RenderPipeline),
	}
	if err := d.createProgramLayouts(p); err != nil {
		d.destroyProgramResources(p)
		return gpucore.InvalidID, gpucore.ProgramInfo{}, &gpucore.LinkError{Log: err.Error()}
	}
	for _, s := range stages {
		s.refs++
	}
	id := gpucore.ProgramID(d.id())
	d.programs[id] = p
	return id, linked.Info(), nil
}

// createProgramLayouts builds the bind group layout, the pipeline layout
// and the uniform buffers for a linked program.
func (d *Device) createProgramLayouts(p *program) error {
	var entries []gputypes.BindGroupLayoutEntry
	for _, b := range p.linked.Buffers {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    b.Binding,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	for _, b := range p.linked.Textures {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    b.Binding,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	for _, b := range p.linked.Samplers {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    b.Binding,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		})
	}

	layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "gfx_program_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	p.layout = layout

	pipeLay, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "gfx_program_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{layout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipeLay = pipeLay

	for _, b := range p.linked.Buffers {
		raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "gfx_uniform_" + b.Name,
			Size:  uint64(b.Size),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create uniform buffer %q: %w", b.Name, err)
		}
		p.uniforms = append(p.uniforms, &uniformBuffer{raw: raw, data: make([]byte, b.Size), dirty: true})
	}
	return nil
}

// destroyProgramResources releases everything owned by p, in reverse
// creation order. Safe on partially built programs.
func (d *Device) destroyProgramResources(p *program) {
	for key, pipe := range p.pipelines {
		d.device.DestroyRenderPipeline(pipe)
		delete(p.pipelines, key)
	}
	for _, u := range p.uniforms {
		d.device.DestroyBuffer(u.raw)
	}
	p.uniforms = nil
	if p.pipeLay != nil {
		d.device.DestroyPipelineLayout(p.pipeLay)
		p.pipeLay = nil
	}
	if p.layout != nil {
		d.device.DestroyBindGroupLayout(p.layout)
		p.layout = nil
	}
}

// DestroyProgram implements gpucore.Device.
func (d *Device) DestroyProgram(id gpucore.ProgramID) {
	p, ok := d.programs[id]
	if !ok {
		return
	}
	delete(d.programs, id)
	if d.program == id {
		d.program = gpucore.InvalidID
	}
	d.retire(p.lastUse, func() {
		d.destroyProgramResources(p)
		for _, s := range p.stages {
			s.refs--
			d.releaseStage(s)
		}
	})
}

// UseProgram implements gpucore.Device.
func (d *Device) UseProgram(id gpucore.ProgramID) { d.program = id }

// SetUniform implements gpucore.Device.
func (d *Device) SetUniform(id gpucore.ProgramID, loc gpucore.UniformLocation, data []byte) error {
	if d.destroyed {
		return gpucore.ErrDeviceLost
	}
	p, ok := d.programs[id]
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
	buf := p.uniforms[p.linked.BufferIndex(u.Binding)]
	copy(buf.data[u.Offset:], data)
	buf.dirty = true
	return nil
}

// uploadUniforms writes every dirty uniform buffer of p. A buffer that an
// unfinished draw still reads is replaced instead of overwritten.
func (d *Device) uploadUniforms(p *program) error {
	for i, u := range p.uniforms {
		if !u.dirty {
			continue
		}
		if u.lastUse > d.queue.PollCompleted() {
			raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
				Label: "gfx_uniform_" + p.linked.Buffers[i].Name,
				Size:  uint64(len(u.data)),
				Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
			})
			if err != nil {
				return fmt.Errorf("gpu: orphan uniform buffer: %w", err)
			}
			old := u.raw
			d.retire(u.lastUse, func() { d.device.DestroyBuffer(old) })
			u.raw = raw
		}
		if err := d.writeRaw(u.raw, 0, u.data); err != nil {
			return err
		}
		u.dirty = false
	}
	return nil
}

// pipelineFor returns the cached render pipeline of p for the vertex
// layout and current target format, creating it on first use.
func (d *Device) pipelineFor(p *program, vao gpucore.VertexArrayID, layout gpucore.VertexLayout) (hal.RenderPipeline, error) {
	key := pipelineKey{vertexArray: vao, format: d.target.format}
	if pipe, ok := p.pipelines[key]; ok {
		return pipe, nil
	}

	blend := gputypes.BlendStateAlpha()
	pipe, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "gfx_program_pipeline",
		Layout: p.pipeLay,
		Vertex: hal.VertexState{
			Module:     d.stageOf(p, gpucore.ShaderStageVertex).raw,
			EntryPoint: p.linked.Vertex.EntryPoint,
			Buffers:    []gputypes.VertexBufferLayout{vertexBufferLayout(layout)},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &hal.FragmentState{
			Module:     d.stageOf(p, gpucore.ShaderStageFragment).raw,
			EntryPoint: p.linked.Fragment.EntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    key.format,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create render pipeline: %w", err)
	}
	p.pipelines[key] = pipe
	slogger().Debug("gpu: render pipeline created",
		slog.Uint64("stride", uint64(layout.Stride)),
		slog.Any("format", key.format))
	return pipe, nil
}

func (d *Device) stageOf(p *program, stage gpucore.ShaderStage) *shaderStage {
	for _, s := range p.stages {
		if s.module.Stage == stage {
			return s
		}
	}
	return nil
}

func (p *program) dropPipelines(d *Device, vao gpucore.VertexArrayID) {
	for key, pipe := range p.pipelines {
		if key.vertexArray != vao {
			continue
		}
		delete(p.pipelines, key)
		d.retire(p.lastUse, func() { d.device.DestroyRenderPipeline(pipe) })
	}
}

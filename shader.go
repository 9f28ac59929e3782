package gfx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/gogpu/gfx/gpucore"
)

// Shader is one compiled WGSL stage. It is only needed until the programs
// using it are linked; a ShaderProgram does not keep its stages.
type Shader struct {
	dev   gpucore.Device
	id    gpucore.ShaderID
	stage gpucore.ShaderStage
	refs  refCount
}

// NewShader compiles source for stage. A compile failure is returned as a
// *CompileError carrying the device log.
func NewShader(dev gpucore.Device, stage gpucore.ShaderStage, source string) (*Shader, error) {
	propagateLogger(dev)

	id, err := dev.CompileShader(stage, source)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, creationFailed(stage.String()+" shader", err)
	}
	if id == gpucore.InvalidID {
		return nil, creationFailed(stage.String()+" shader", nil)
	}
	s := &Shader{dev: dev, id: id, stage: stage}
	s.refs.init()
	return s, nil
}

// ID returns the device handle.
func (s *Shader) ID() gpucore.ShaderID { return s.id }

// Stage returns the pipeline stage the shader was compiled for.
func (s *Shader) Stage() gpucore.ShaderStage { return s.stage }

// Release drops a reference, destroying the device shader on the last one.
func (s *Shader) Release() {
	if s.refs.release() {
		s.dev.DestroyShader(s.id)
		s.id = gpucore.InvalidID
	}
}

// ShaderProgram is a linked set of shader stages.
//
// Uniform locations are resolved once at link time; the table is never
// modified afterwards. Setting a uniform the program does not declare is a
// no-op, so one caller can drive program variants with optional uniforms.
type ShaderProgram struct {
	dev          gpucore.Device
	id           gpucore.ProgramID
	uniforms     map[string]gpucore.UniformLocation
	textureSlots int
	refs         refCount
}

// NewShaderProgram links the given stages. A link failure is returned as a
// *LinkError carrying the device log. The stages stay owned by the caller
// and may be released right after linking.
func NewShaderProgram(dev gpucore.Device, shaders ...*Shader) (*ShaderProgram, error) {
	propagateLogger(dev)

	ids := make([]gpucore.ShaderID, 0, len(shaders))
	for _, s := range shaders {
		if s == nil || !s.refs.alive() {
			return nil, &LinkError{Log: "released or nil shader stage"}
		}
		ids = append(ids, s.id)
	}

	id, info, err := dev.LinkProgram(ids)
	if err != nil {
		var le *LinkError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, creationFailed("program", err)
	}
	if id == gpucore.InvalidID {
		return nil, creationFailed("program", nil)
	}

	p := &ShaderProgram{
		dev:          dev,
		id:           id,
		uniforms:     make(map[string]gpucore.UniformLocation, len(info.Uniforms)),
		textureSlots: info.TextureSlots,
	}
	for _, u := range info.Uniforms {
		p.uniforms[u.Name] = u.Location
	}
	p.refs.init()
	return p, nil
}

// ID returns the device handle.
func (p *ShaderProgram) ID() gpucore.ProgramID { return p.id }

// TextureSlots returns the number of texture slots the program samples.
func (p *ShaderProgram) TextureSlots() int { return p.textureSlots }

// UniformLocation returns the location of an active uniform.
func (p *ShaderProgram) UniformLocation(name string) (gpucore.UniformLocation, bool) {
	loc, ok := p.uniforms[name]
	return loc, ok
}

// Uniforms returns the names of the active uniforms, sorted.
func (p *ShaderProgram) Uniforms() []string {
	names := make([]string, 0, len(p.uniforms))
	for name := range p.uniforms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Bind makes the program current.
func (p *ShaderProgram) Bind() { p.dev.UseProgram(p.id) }

// Unbind clears the current program.
func (p *ShaderProgram) Unbind() { p.dev.UseProgram(gpucore.InvalidID) }

// SetUniformBytes writes raw bytes to the named uniform.
func (p *ShaderProgram) SetUniformBytes(name string, data []byte) error {
	loc, ok := p.uniforms[name]
	if !ok {
		return nil
	}
	if err := p.dev.SetUniform(p.id, loc, data); err != nil {
		return fmt.Errorf("gfx: set uniform %q: %w", name, err)
	}
	return nil
}

// SetUniformFloat sets a f32 uniform.
func (p *ShaderProgram) SetUniformFloat(name string, v float32) error {
	return p.setFloats(name, v)
}

// SetUniformVec2 sets a vec2<f32> uniform.
func (p *ShaderProgram) SetUniformVec2(name string, v Vec2) error {
	return p.setFloats(name, float32(v.X), float32(v.Y))
}

// SetUniformVec4 sets a vec4<f32> uniform.
func (p *ShaderProgram) SetUniformVec4(name string, x, y, z, w float32) error {
	return p.setFloats(name, x, y, z, w)
}

// SetUniformColor sets a vec4<f32> uniform from a color.
func (p *ShaderProgram) SetUniformColor(name string, c Color) error {
	return p.setFloats(name, float32(c.R), float32(c.G), float32(c.B), float32(c.A))
}

// SetUniformMatrix sets a mat4x4<f32> uniform from an affine matrix.
func (p *ShaderProgram) SetUniformMatrix(name string, m Matrix) error {
	mat := m.Mat4()
	return p.setFloats(name, mat[:]...)
}

func (p *ShaderProgram) setFloats(name string, values ...float32) error {
	if _, ok := p.uniforms[name]; !ok {
		return nil
	}
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return p.SetUniformBytes(name, buf)
}

// Retain adds a reference and returns p.
func (p *ShaderProgram) Retain() *ShaderProgram {
	if !p.refs.retain() {
		return nil
	}
	return p
}

// Release drops a reference, destroying the device program on the last one.
func (p *ShaderProgram) Release() {
	if p.refs.release() {
		p.dev.DestroyProgram(p.id)
		p.id = gpucore.InvalidID
	}
}

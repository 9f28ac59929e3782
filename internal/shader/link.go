package shader

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gfx/gpucore"
)

// Uniform is an addressable uniform of a linked program. A uniform buffer
// contributes one Uniform for the whole variable and one per struct member.
type Uniform struct {
	Name     string
	Location gpucore.UniformLocation

	// Binding is the @binding of the uniform buffer holding the value.
	Binding uint32

	Offset uint32
	Size   uint32
}

// Program is the result of linking a vertex and a fragment stage.
type Program struct {
	Vertex   *Module
	Fragment *Module

	// Buffers, Textures and Samplers are the merged bindings of both
	// stages, each ordered by binding number.
	Buffers  []Binding
	Textures []Binding
	Samplers []Binding

	// Uniforms is indexed by location.
	Uniforms []Uniform
}

// Link checks that modules form a complete program and assigns uniform
// locations. All bindings must live in group 0, and texture slot n is
// sampled with the n-th sampler. Failures are returned as
// *gpucore.LinkError.
func Link(modules []*Module) (*Program, error) {
	var log []string
	p := &Program{}

	for _, m := range modules {
		if m == nil {
			log = append(log, "nil shader stage")
			continue
		}
		switch m.Stage {
		case gpucore.ShaderStageVertex:
			if p.Vertex != nil {
				log = append(log, "more than one vertex stage")
			}
			p.Vertex = m
		case gpucore.ShaderStageFragment:
			if p.Fragment != nil {
				log = append(log, "more than one fragment stage")
			}
			p.Fragment = m
		}
	}
	if p.Vertex == nil {
		log = append(log, "missing vertex stage")
	}
	if p.Fragment == nil {
		log = append(log, "missing fragment stage")
	}
	if len(log) > 0 {
		return nil, &gpucore.LinkError{Log: strings.Join(log, "\n")}
	}

	merged := make(map[uint32]Binding)
	for _, m := range []*Module{p.Vertex, p.Fragment} {
		for _, b := range m.Bindings {
			if b.Group != 0 {
				log = append(log, fmt.Sprintf("%s: bind group %d is not supported, use group 0", b.Name, b.Group))
				continue
			}
			prev, ok := merged[b.Binding]
			if !ok {
				merged[b.Binding] = b
				continue
			}
			if prev.Kind != b.Kind || prev.Name != b.Name || prev.Size != b.Size {
				log = append(log, fmt.Sprintf("binding %d declared as %s %q and %s %q",
					b.Binding, prev.Kind, prev.Name, b.Kind, b.Name))
			}
		}
	}

	keys := make([]uint32, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b := merged[k]
		switch b.Kind {
		case BindingUniform:
			p.Buffers = append(p.Buffers, b)
		case BindingTexture:
			p.Textures = append(p.Textures, b)
		case BindingSampler:
			p.Samplers = append(p.Samplers, b)
		}
	}
	if len(p.Textures) != len(p.Samplers) {
		log = append(log, fmt.Sprintf("%d textures but %d samplers, each texture needs one sampler",
			len(p.Textures), len(p.Samplers)))
	}
	if len(log) > 0 {
		return nil, &gpucore.LinkError{Log: strings.Join(log, "\n")}
	}

	for _, b := range p.Buffers {
		p.addUniform(b.Name, b.Binding, 0, b.Size)
		for _, m := range b.Members {
			p.addUniform(b.Name+"."+m.Name, b.Binding, m.Offset, m.Size)
		}
	}
	return p, nil
}

func (p *Program) addUniform(name string, binding, offset, size uint32) {
	p.Uniforms = append(p.Uniforms, Uniform{
		Name:     name,
		Location: gpucore.UniformLocation(len(p.Uniforms)),
		Binding:  binding,
		Offset:   offset,
		Size:     size,
	})
}

// Uniform returns the uniform at loc.
func (p *Program) Uniform(loc gpucore.UniformLocation) (Uniform, bool) {
	if loc < 0 || int(loc) >= len(p.Uniforms) {
		return Uniform{}, false
	}
	return p.Uniforms[loc], true
}

// BufferIndex returns the index into Buffers of the buffer at binding.
func (p *Program) BufferIndex(binding uint32) int {
	for i := range p.Buffers {
		if p.Buffers[i].Binding == binding {
			return i
		}
	}
	return -1
}

// Info returns the reflection exposed through gpucore.
func (p *Program) Info() gpucore.ProgramInfo {
	info := gpucore.ProgramInfo{TextureSlots: len(p.Textures)}
	for _, u := range p.Uniforms {
		info.Uniforms = append(info.Uniforms, gpucore.UniformInfo{
			Name:     u.Name,
			Location: u.Location,
			Size:     u.Size,
		})
	}
	return info
}

// Package shader compiles WGSL stages with naga and reflects the resource
// bindings that the gfx device layer needs to build bind groups.
package shader

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"

	"github.com/gogpu/gfx/gpucore"
)

// BindingKind classifies a reflected resource binding.
type BindingKind uint8

const (
	// BindingUniform is a var<uniform> buffer.
	BindingUniform BindingKind = iota + 1

	// BindingTexture is a sampled texture.
	BindingTexture

	// BindingSampler is a filtering sampler.
	BindingSampler
)

// String returns the string representation of BindingKind.
func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingTexture:
		return "texture"
	case BindingSampler:
		return "sampler"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Binding is one resource declared by a shader stage.
type Binding struct {
	Name    string
	Kind    BindingKind
	Group   uint32
	Binding uint32

	// Size is the byte size of a uniform buffer, rounded up to 16.
	// It is zero for textures and samplers.
	Size uint32

	// Members holds the fields of a uniform struct.
	Members []Member
}

// Member is a field of a uniform struct.
type Member struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Module is a compiled shader stage.
type Module struct {
	Stage      gpucore.ShaderStage
	Source     string
	EntryPoint string
	SPIRV      []uint32
	Bindings   []Binding

	// IR is the validated naga module.
	IR *ir.Module
}

// Compile parses, validates and lowers WGSL source into a single shader
// stage. The source must declare an entry point for stage. Failures are
// returned as *gpucore.CompileError carrying the full diagnostic log.
func Compile(stage gpucore.ShaderStage, source string) (*Module, error) {
	want, ok := irStage(stage)
	if !ok {
		return nil, &gpucore.CompileError{Stage: stage, Log: fmt.Sprintf("unsupported shader stage %s", stage)}
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, &gpucore.CompileError{Stage: stage, Log: err.Error()}
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, &gpucore.CompileError{Stage: stage, Log: err.Error()}
	}

	issues, err := naga.Validate(module)
	if err != nil {
		return nil, &gpucore.CompileError{Stage: stage, Log: err.Error()}
	}
	if len(issues) > 0 {
		return nil, &gpucore.CompileError{Stage: stage, Log: validationLog(issues)}
	}

	entry := ""
	for i := range module.EntryPoints {
		if module.EntryPoints[i].Stage == want {
			entry = module.EntryPoints[i].Name
			break
		}
	}
	if entry == "" {
		return nil, &gpucore.CompileError{Stage: stage, Log: fmt.Sprintf("no @%s entry point", stage)}
	}

	bindings, err := reflectBindings(module)
	if err != nil {
		return nil, &gpucore.CompileError{Stage: stage, Log: err.Error()}
	}

	code, err := naga.GenerateSPIRV(module, spirv.Options{Version: spirv.Version1_3})
	if err != nil {
		return nil, &gpucore.CompileError{Stage: stage, Log: err.Error()}
	}

	return &Module{
		Stage:      stage,
		Source:     source,
		EntryPoint: entry,
		SPIRV:      wordsFromBytes(code),
		Bindings:   bindings,
		IR:         module,
	}, nil
}

func irStage(stage gpucore.ShaderStage) (ir.ShaderStage, bool) {
	switch stage {
	case gpucore.ShaderStageVertex:
		return ir.StageVertex, true
	case gpucore.ShaderStageFragment:
		return ir.StageFragment, true
	default:
		return 0, false
	}
}

func validationLog(issues []ir.ValidationError) string {
	var b strings.Builder
	for i := range issues {
		if i > 0 {
			b.WriteByte('\n')
		}
		if issues[i].Function != "" {
			b.WriteString(issues[i].Function)
			b.WriteString(": ")
		}
		b.WriteString(issues[i].Message)
	}
	return b.String()
}

// reflectBindings collects every bound global of the module, ordered by
// (group, binding).
func reflectBindings(module *ir.Module) ([]Binding, error) {
	var out []Binding
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		b := Binding{
			Name:    gv.Name,
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
		}
		switch gv.Space {
		case ir.SpaceUniform:
			b.Kind = BindingUniform
			b.Size = align16(ir.TypeSize(module, gv.Type))
			b.Members = structMembers(module, gv.Type)
		case ir.SpaceHandle:
			if int(gv.Type) >= len(module.Types) {
				return nil, fmt.Errorf("%s: dangling type handle %d", gv.Name, gv.Type)
			}
			switch module.Types[gv.Type].Inner.(type) {
			case ir.ImageType:
				b.Kind = BindingTexture
			case ir.SamplerType:
				b.Kind = BindingSampler
			default:
				return nil, fmt.Errorf("%s: unsupported handle type", gv.Name)
			}
		default:
			return nil, fmt.Errorf("%s: unsupported address space %d", gv.Name, gv.Space)
		}
		out = append(out, b)
	}
	slices.SortFunc(out, compareBindings)
	return out, nil
}

func structMembers(module *ir.Module, handle ir.TypeHandle) []Member {
	if int(handle) >= len(module.Types) {
		return nil
	}
	st, ok := module.Types[handle].Inner.(ir.StructType)
	if !ok {
		return nil
	}
	members := make([]Member, 0, len(st.Members))
	for _, m := range st.Members {
		members = append(members, Member{
			Name:   m.Name,
			Offset: m.Offset,
			Size:   ir.TypeSize(module, m.Type),
		})
	}
	return members
}

func compareBindings(a, b Binding) int {
	if c := cmp.Compare(a.Group, b.Group); c != 0 {
		return c
	}
	return cmp.Compare(a.Binding, b.Binding)
}

func align16(n uint32) uint32 {
	if n == 0 {
		return 16
	}
	return (n + 15) &^ 15
}

// wordsFromBytes converts little-endian SPIR-V bytes to 32-bit words.
func wordsFromBytes(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}

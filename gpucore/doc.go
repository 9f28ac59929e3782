// Package gpucore defines the graphics-device API that the gfx resource
// wrappers are written against.
//
// The API is deliberately small and state-oriented: resources are referred
// to by opaque IDs, bind calls set the current buffer, vertex array, program
// and texture slots, and [Device.DrawIndexed] consumes that state. It is
// the only call that submits work to the GPU.
//
//	           +-------------------+
//	           |        gfx        |
//	           | (Buffer, Texture, |
//	           |  SpriteBatch ...) |
//	           +---------+---------+
//	                     |
//	              gpucore.Device
//	                     |
//	      +--------------+--------------+
//	      |                             |
//	+-----v---------+          +--------v---------+
//	| internal/gpu  |          | gpucore/         |
//	| (wgpu/hal)    |          |   devicetest     |
//	+---------------+          +------------------+
//
// # Resource Management
//
// Every Create* method returns an ID that stays valid until the matching
// Destroy* call. [InvalidID] is never returned for a successfully created
// resource. Destroying a resource that is still bound unbinds it.
//
// # Errors
//
// Shader compilation and program linking report diagnostics through
// [*CompileError] and [*LinkError]; the Log field carries the raw text the
// device produced. Other failures are plain errors wrapping the sentinels
// in this package.
package gpucore

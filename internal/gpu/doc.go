//go:build !nogpu

// Package gpu implements gpucore.Device on top of a wgpu HAL device.
//
// The device translates the bind-and-draw model of gpucore into WebGPU
// objects:
//
//   - Buffers and textures map one-to-one onto hal.Buffer and hal.Texture.
//   - Each linked program owns a bind group layout, a pipeline layout and
//     one uniform buffer per var<uniform> binding.
//   - Render pipelines are created lazily per (program, vertex layout,
//     target format) and cached.
//   - Every DrawIndexed records and submits its own render pass. Transient
//     objects (bind groups, command buffers, orphaned uniform buffers) are
//     released once the queue reports the submission complete.
//
// Rendering goes to an offscreen RGBA8 target by default; SetTarget
// redirects it to a caller-owned view such as a surface texture.
package gpu

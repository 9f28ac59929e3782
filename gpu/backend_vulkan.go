//go:build !nogpu && !android && !js

package gpu

import (
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/vulkan"
)

func init() {
	backends.Register(BackendVulkan, func() hal.Backend { return vulkan.Backend{} })
}

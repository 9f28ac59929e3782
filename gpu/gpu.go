//go:build !nogpu

// Package gpu opens wgpu/hal devices for the gfx resource wrappers.
//
// A Device renders into an offscreen RGBA8 target. Pass it to any gfx
// constructor:
//
//	dev, err := gpu.Open("", 800, 600)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Destroy()
//
//	batch, err := gfx.NewSpriteBatch(dev, 1000)
//
// The empty backend name selects the best available backend in the order
// vulkan, software, noop. The noop backend accepts every call and draws
// nothing; it is useful in tests and on machines without a GPU.
//
// To share a device with a windowing host (for example gogpu), use
// [FromProvider].
package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/gogpu/wgpu/hal/software"

	"github.com/gogpu/gfx"
	halgpu "github.com/gogpu/gfx/internal/gpu"
)

// Errors returned by Open and FromProvider.
var (
	// ErrUnknownBackend is returned when Open is given an unregistered name.
	ErrUnknownBackend = errors.New("gpu: unknown backend")

	// ErrNoAdapter is returned when a backend exposes no adapters.
	ErrNoAdapter = errors.New("gpu: no adapters found")

	// ErrNoBackend is returned when no registered backend could be opened.
	ErrNoBackend = errors.New("gpu: no usable backend")

	// ErrProvider is returned when a provider does not expose HAL types.
	ErrProvider = errors.New("gpu: provider does not expose HAL device and queue")
)

// Backend names.
const (
	BackendVulkan   = "vulkan"
	BackendSoftware = "software"
	BackendNoop     = "noop"
)

var priority = []string{BackendVulkan, BackendSoftware, BackendNoop}

// backends maps names to HAL backends. The hal package's own registry is
// keyed by variant, and noop and software share gputypes.BackendEmpty.
var backends = gpucontext.NewRegistry[hal.Backend](gpucontext.WithPriority(priority...))

func init() {
	backends.Register(BackendSoftware, func() hal.Backend { return software.API{} })
	backends.Register(BackendNoop, func() hal.Backend { return noop.API{} })
}

// Available returns the registered backend names in selection order.
func Available() []string {
	names := backends.Available()
	slices.SortFunc(names, func(a, b string) int {
		return rank(a) - rank(b)
	})
	return names
}

func rank(name string) int {
	if i := slices.Index(priority, name); i >= 0 {
		return i
	}
	return len(priority)
}

// Device is a gfx device backed by wgpu/hal.
//
// It embeds the HAL-backed implementation, so it satisfies every device
// parameter in gfx. Device is not safe for concurrent use.
type Device struct {
	*halgpu.Device

	backend  string
	info     gpucontext.AdapterInfo
	instance hal.Instance
	raw      hal.Device
	owned    bool
}

// Open creates a device on the named backend with an offscreen target of
// width x height pixels. An empty name tries every registered backend in
// priority order and returns the first that opens.
func Open(name string, width, height int) (*Device, error) {
	if name != "" {
		if !backends.Has(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
		}
		return open(name, width, height)
	}

	var errs []error
	for _, n := range Available() {
		d, err := open(n, width, height)
		if err == nil {
			return d, nil
		}
		gfx.Logger().Warn("gpu: backend unavailable, trying next",
			slog.String("backend", n),
			slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(errs...))
}

func open(name string, width, height int) (*Device, error) {
	backend := backends.Get(name)
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: %s: create instance: %w", name, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: %s: %w", name, ErrNoAdapter)
	}
	selected := selectAdapter(adapters)
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: %s: open device: %w", name, err)
	}

	halgpu.SetLogger(gfx.Logger())
	impl, err := halgpu.New(openDev.Device, openDev.Queue, width, height)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, fmt.Errorf("gpu: %s: %w", name, err)
	}
	d := &Device{
		Device:   impl,
		backend:  name,
		info:     adapterInfo(selected.Info),
		instance: instance,
		raw:      openDev.Device,
		owned:    true,
	}
	gfx.Logger().Info("gpu: device opened",
		slog.String("backend", name),
		slog.String("adapter", d.info.Name),
		slog.String("type", d.info.Type.String()),
		slog.Int("width", width),
		slog.Int("height", height))
	return d, nil
}

// selectAdapter prefers hardware adapters and falls back to the first one.
func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	return &adapters[0]
}

func adapterInfo(info gputypes.AdapterInfo) gpucontext.AdapterInfo {
	t := gpucontext.AdapterTypeUnknown
	switch info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		t = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		t = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		t = gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterInfo{Name: info.Name, Type: t}
}

// FromProvider wraps a device shared by an external host. The provider
// must also implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue. The returned Device does not destroy the
// shared device.
func FromProvider(provider gpucontext.DeviceProvider, width, height int) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if provider == nil {
		return nil, ErrProvider
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProvider)
	}

	halgpu.SetLogger(gfx.Logger())
	impl, err := halgpu.New(device, queue, width, height)
	if err != nil {
		return nil, fmt.Errorf("gpu: provider: %w", err)
	}
	d := &Device{
		Device:  impl,
		backend: "provider",
		info:    provider.AdapterInfo(),
		raw:     device,
	}
	gfx.Logger().Info("gpu: using shared device",
		slog.String("adapter", d.info.Name),
		slog.String("type", d.info.Type.String()))
	return d, nil
}

// Backend returns the name of the backend the device was opened on, or
// "provider" for shared devices.
func (d *Device) Backend() string { return d.backend }

// AdapterInfo returns the name and type of the adapter in use.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo { return d.info }

// Destroy releases every gfx resource still alive on the device. Devices
// created by Open also destroy their HAL device and instance.
func (d *Device) Destroy() {
	if d.Device == nil {
		return
	}
	d.Device.Destroy()
	if d.owned && d.raw != nil {
		d.raw.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
	d.raw = nil
	d.instance = nil
	d.Device = nil
}

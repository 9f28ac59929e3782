package gfx

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gfx/gpucore"
)

// Buffer is a device buffer of a fixed target class.
//
// The byte size is set at creation and only changes through SetData, which
// orphans the device object. CopyData and CopyDataPart never grow the
// buffer: writes past the end are truncated.
//
// A Buffer is reference counted. The device object is destroyed when the
// last reference is released.
type Buffer struct {
	dev    gpucore.Device
	id     gpucore.BufferID
	target gpucore.BufferTarget
	usage  gpucore.BufferUsage
	size   int
	bound  bool
	refs   refCount
}

// NewBuffer creates an empty buffer.
func NewBuffer(dev gpucore.Device, target gpucore.BufferTarget, usage gpucore.BufferUsage) (*Buffer, error) {
	return NewBufferWithCapacity(dev, target, usage, 0)
}

// NewBufferWithCapacity creates a buffer with exactly size bytes of device
// storage.
func NewBufferWithCapacity(dev gpucore.Device, target gpucore.BufferTarget, usage gpucore.BufferUsage, size int) (*Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: buffer size %d", ErrInvalidSize, size)
	}
	propagateLogger(dev)

	id, err := dev.CreateBuffer(target, usage, size)
	if err != nil || id == gpucore.InvalidID {
		return nil, creationFailed(fmt.Sprintf("%s buffer of %d bytes", target, size), err)
	}
	b := &Buffer{dev: dev, id: id, target: target, usage: usage, size: size}
	b.refs.init()
	return b, nil
}

// ID returns the device handle.
func (b *Buffer) ID() gpucore.BufferID { return b.id }

// Target returns the buffer's target class.
func (b *Buffer) Target() gpucore.BufferTarget { return b.target }

// Usage returns the usage hint the buffer was created with.
func (b *Buffer) Usage() gpucore.BufferUsage { return b.usage }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int { return b.size }

// SetData replaces the whole contents, resizing the buffer to len(data).
// A new device object is created and filled before the old one is
// destroyed, so the device never synchronizes on a buffer still in use.
func (b *Buffer) SetData(data []byte) error {
	if !b.refs.alive() {
		return ErrReleased
	}
	id, err := b.dev.CreateBuffer(b.target, b.usage, len(data))
	if err != nil || id == gpucore.InvalidID {
		return creationFailed(fmt.Sprintf("%s buffer of %d bytes", b.target, len(data)), err)
	}
	if len(data) > 0 {
		if err := b.dev.WriteBuffer(id, 0, data); err != nil {
			b.dev.DestroyBuffer(id)
			return fmt.Errorf("gfx: upload buffer: %w", err)
		}
	}

	b.dev.DestroyBuffer(b.id)
	b.id = id
	b.size = len(data)
	if b.bound {
		b.dev.BindBuffer(b.target, b.id)
	}
	return nil
}

// CopyData writes data at offset 0, truncated to the buffer size.
func (b *Buffer) CopyData(data []byte) error {
	return b.CopyDataPart(data, len(data), 0)
}

// CopyDataPart writes the first byteCount bytes of data at dstOffset.
// byteCount is clamped so the write ends inside both data and the buffer;
// a request that clamps to nothing is a no-op.
func (b *Buffer) CopyDataPart(data []byte, byteCount, dstOffset int) error {
	if !b.refs.alive() {
		return ErrReleased
	}
	if dstOffset < 0 {
		dstOffset = 0
	}
	n := min(byteCount, len(data), b.size-dstOffset)
	if n != byteCount {
		Logger().Debug("gfx: buffer write clamped",
			slog.Int("requested", byteCount),
			slog.Int("written", max(n, 0)),
			slog.Int("offset", dstOffset),
			slog.Int("size", b.size))
	}
	if n <= 0 {
		return nil
	}
	if err := b.dev.WriteBuffer(b.id, dstOffset, data[:n]); err != nil {
		return fmt.Errorf("gfx: write buffer: %w", err)
	}
	return nil
}

// Bind makes the buffer current for its target class.
func (b *Buffer) Bind() {
	b.dev.BindBuffer(b.target, b.id)
	b.bound = true
}

// Unbind clears the binding of the buffer's target class.
func (b *Buffer) Unbind() {
	b.dev.BindBuffer(b.target, gpucore.InvalidID)
	b.bound = false
}

// Retain adds a reference and returns b.
func (b *Buffer) Retain() *Buffer {
	if !b.refs.retain() {
		return nil
	}
	return b
}

// Release drops a reference, destroying the device buffer on the last one.
func (b *Buffer) Release() {
	if b.refs.release() {
		b.dev.DestroyBuffer(b.id)
		b.id = gpucore.InvalidID
		b.bound = false
	}
}

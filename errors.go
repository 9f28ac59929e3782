package gfx

import (
	"errors"
	"fmt"

	"github.com/gogpu/gfx/gpucore"
)

var (
	// ErrResourceCreation is returned when the device could not create a
	// buffer, texture, vertex array, shader or program.
	ErrResourceCreation = errors.New("gfx: resource creation failed")

	// ErrInvalidState is matched by *InvalidStateError.
	ErrInvalidState = errors.New("gfx: invalid state")

	// ErrInvalidSize is returned for non-positive dimensions and capacities.
	ErrInvalidSize = errors.New("gfx: invalid size")

	// ErrReleased is returned when a released resource is used.
	ErrReleased = errors.New("gfx: resource released")

	// ErrNoPixels is returned by Texture.GenerateMipmaps after
	// Texture.DiscardPixels.
	ErrNoPixels = errors.New("gfx: texture pixels discarded")
)

// CompileError reports a shader stage that failed to compile. Log holds
// the device diagnostics.
type CompileError = gpucore.CompileError

// LinkError reports a program that failed to link. Log holds the device
// diagnostics.
type LinkError = gpucore.LinkError

// InvalidStateError is the panic value for calls made out of the
// Begin/Draw/End protocol of a SpriteBatch. It is a programming error in
// the caller, never a runtime condition.
type InvalidStateError struct {
	// Op is the operation that was called, e.g. "Begin" or "Draw".
	Op string

	// Reason describes the violated precondition.
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("gfx: invalid state: %s: %s", e.Op, e.Reason)
}

// Is reports whether target is ErrInvalidState.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// invalidState panics with an *InvalidStateError.
func invalidState(op, format string, args ...any) {
	panic(&InvalidStateError{Op: op, Reason: fmt.Sprintf(format, args...)})
}

// creationFailed wraps a device error as ErrResourceCreation, keeping the
// device error reachable through errors.Is/As.
func creationFailed(what string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s: device returned no handle", ErrResourceCreation, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrResourceCreation, what, err)
}

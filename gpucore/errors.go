package gpucore

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for device operations.
var (
	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrOutOfRange is returned when a write falls outside a resource.
	ErrOutOfRange = errors.New("gpucore: write out of range")

	// ErrInvalidLayout is returned for malformed vertex layouts.
	ErrInvalidLayout = errors.New("gpucore: invalid vertex layout")

	// ErrNothingBound is returned by DrawIndexed when a required binding is missing.
	ErrNothingBound = errors.New("gpucore: required binding missing")

	// ErrDeviceLost is returned after the device has been destroyed.
	ErrDeviceLost = errors.New("gpucore: device destroyed")
)

// CompileError reports a shader that failed to compile.
type CompileError struct {
	// Stage is the stage that was being compiled.
	Stage ShaderStage

	// Log is the compiler's diagnostic output.
	Log string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("gpucore: %s shader compile failed: %s", e.Stage, firstLine(e.Log))
}

// LinkError reports a program that failed to link.
type LinkError struct {
	// Log is the linker's diagnostic output.
	Log string
}

func (e *LinkError) Error() string {
	return "gpucore: program link failed: " + firstLine(e.Log)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if s == "" {
		return "(no log)"
	}
	return s
}

package vkr

import (
	"github.com/pkg/errors"
)

// ErrSwapchainOutOfDate is returned by acquire and submit when the surface no longer matches
// the swapchain. It is not fatal: the swapchain must be recreated before the next frame.
var ErrSwapchainOutOfDate = errors.New("swapchain out of date")

var (
	ErrNoDevice               = errors.New("no suitable physical device found")
	ErrNoSuitableMemoryType   = errors.New("no memory type satisfies the requested properties")
	ErrNoDepthFormat          = errors.New("no supported depth format")
	ErrFormatChanged          = errors.New("swapchain image or depth format changed across recreation")
	ErrAlreadyMapped          = errors.New("buffer is already mapped")
	ErrNotMapped              = errors.New("buffer is not mapped")
	ErrOutOfRange             = errors.New("write exceeds buffer bounds")
	ErrFrameInProgress        = errors.New("cannot begin a frame while one is already in progress")
	ErrNoFrameInProgress      = errors.New("no frame in progress")
	ErrCommandBufferMismatch  = errors.New("command buffer does not belong to the current frame")
	ErrMeshShadersUnsupported = errors.New("mesh shaders are not enabled on this device")
	ErrInvalidShaderCode      = errors.New("shader bytecode must be a non-empty multiple of 4 bytes")
)

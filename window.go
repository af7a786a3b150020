package vkr

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Window is the windowing layer seen by the device and renderer. FramebufferSize is in pixels
// and is zero in either dimension while the window is minimized.
type Window interface {
	FramebufferSize() vk.Extent2D
	// WaitEvents blocks until the windowing system delivers at least one event.
	WaitEvents()
	// WasResized reports a framebuffer size change since the last ResetResized.
	WasResized() bool
	ResetResized()
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

// GLFWWindow adapts a GLFW window created with the NoAPI client hint.
type GLFWWindow struct {
	GLFW    *glfw.Window
	resized bool
}

// NewGLFWWindow wraps w and installs a framebuffer size callback that sets the resize flag.
func NewGLFWWindow(w *glfw.Window) *GLFWWindow {
	ret := &GLFWWindow{GLFW: w}
	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		ret.resized = true
	})
	return ret
}

func (w *GLFWWindow) FramebufferSize() vk.Extent2D {
	width, height := w.GLFW.GetFramebufferSize()
	return vk.Extent2D{Width: uint32(width), Height: uint32(height)}
}

func (w *GLFWWindow) WaitEvents() {
	glfw.WaitEvents()
}

func (w *GLFWWindow) WasResized() bool {
	return w.resized
}

func (w *GLFWWindow) ResetResized() {
	w.resized = false
}

func (w *GLFWWindow) RequiredInstanceExtensions() []string {
	return w.GLFW.GetRequiredInstanceExtensions()
}

func (w *GLFWWindow) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := w.GLFW.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "create window surface")
	}
	return vk.SurfaceFromPointer(surface), nil
}

// VulkanProcAddr hands the loader GLFW resolved to the device.
func (w *GLFWWindow) VulkanProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

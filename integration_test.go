package vkr

import (
	"os"
	"runtime"
	"testing"

	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Tests in this file need a display and a Vulkan driver. They only run with VKR_GPU_TESTS=1.

func init() {
	// GLFW calls must come from the main thread.
	runtime.LockOSThread()
}

func gpuDevice(t *testing.T, width, height int) (*GLFWWindow, *Device) {
	t.Helper()
	if os.Getenv("VKR_GPU_TESTS") != "1" {
		t.Skip("set VKR_GPU_TESTS=1 to run against a real GPU")
	}
	if err := glfw.Init(); err != nil {
		t.Skipf("glfw: %v", err)
	}
	t.Cleanup(glfw.Terminate)
	if !glfw.VulkanSupported() {
		t.Skip("no vulkan loader")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Visible, glfw.False)
	w, err := glfw.CreateWindow(width, height, "vkr test", nil, nil)
	if err != nil {
		t.Skipf("create window: %v", err)
	}
	t.Cleanup(w.Destroy)

	window := NewGLFWWindow(w)
	device, err := NewDevice(window, DeviceOptions{AppName: "vkr test", EnableValidation: true})
	if err != nil {
		t.Skipf("no usable vulkan device: %v", err)
	}
	t.Cleanup(device.Destroy)
	return window, device
}

func TestGPUResizeRoundTrip(t *testing.T) {
	window, device := gpuDevice(t, 256, 256)

	r, err := NewRenderer(window, device, RendererOptions{VSync: true})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	draw := func(n int) {
		for i := 0; i < n; i++ {
			cb, err := r.BeginFrame()
			if err != nil {
				t.Fatal(err)
			}
			if cb == nil {
				continue
			}
			if err := r.BeginSwapchainRenderPass(cb); err != nil {
				t.Fatal(err)
			}
			if err := r.EndSwapchainRenderPass(cb); err != nil {
				t.Fatal(err)
			}
			if err := r.EndFrame(); err != nil {
				t.Fatal(err)
			}
		}
	}

	draw(10)
	if r.Swapchain().State() != SwapchainReady {
		t.Fatalf("state %v", r.Swapchain().State())
	}

	window.GLFW.SetSize(512, 512)
	glfw.PollEvents()
	draw(10)

	e := r.Swapchain().Extent()
	size := window.FramebufferSize()
	if e.Width != size.Width || e.Height != size.Height {
		t.Errorf("swapchain %dx%d, framebuffer %dx%d", e.Width, e.Height, size.Width, size.Height)
	}
}

func TestGPUBufferRoundTrip(t *testing.T) {
	_, device := gpuDevice(t, 64, 64)

	align := device.MinUniformBufferOffsetAlignment()
	b, err := NewBuffer(device, 68, 4, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit), align)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Destroy()

	if err := b.Map(WholeSize, 0); err != nil {
		t.Fatal(err)
	}
	data := make([]byte, 68)
	for i := range data {
		data[i] = byte(i)
	}
	if err := b.WriteToIndex(data, 2); err != nil {
		t.Fatal(err)
	}
	got := b.MappedBytes()[2*b.AlignedStride():]
	if got[67] != 67 {
		t.Errorf("byte 67 of element 2 is %d", got[67])
	}
	b.Unmap()
}

func TestGPURecreateSameExtentIsIdempotent(t *testing.T) {
	window, device := gpuDevice(t, 320, 240)

	sc, err := NewSwapchain(device, window.FramebufferSize(), SwapchainOptions{VSync: true})
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Destroy()

	count, color, depth := sc.ImageCount(), sc.ImageFormat(), sc.DepthFormat()
	for i := 0; i < 2; i++ {
		if err := device.WaitIdle(); err != nil {
			t.Fatal(err)
		}
		if err := sc.Recreate(window.FramebufferSize()); err != nil {
			t.Fatalf("recreate %d: %v", i+1, err)
		}
		if sc.ImageCount() != count || sc.ImageFormat() != color || sc.DepthFormat() != depth {
			t.Errorf("recreate %d: %d images %v/%v, want %d images %v/%v", i+1,
				sc.ImageCount(), sc.ImageFormat(), sc.DepthFormat(), count, color, depth)
		}
		if sc.State() != SwapchainReady {
			t.Errorf("recreate %d: state %v", i+1, sc.State())
		}
	}
}

package vkr

import (
	"time"

	"github.com/loov/hrtime"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// frameTarget is what the renderer needs from a swapchain.
type frameTarget interface {
	AcquireNextImage() (uint32, error)
	SubmitCommandBuffers(cb *CommandBuffer, imageIndex uint32) error
	Recreate(windowExtent vk.Extent2D) error
	ImageCount() int
	Extent() vk.Extent2D
	RenderPass() vk.RenderPass
	Framebuffer(i int) vk.Framebuffer
	Destroy()
}

type RendererOptions struct {
	VSync             bool
	Samples           vk.SampleCountFlagBits
	MaxFramesInFlight int
	Logger            *slog.Logger
}

// Renderer runs the per frame protocol: BeginFrame, then any number of render pass
// begin/end pairs with draw calls recorded in between, then EndFrame. It recreates the
// swapchain when the surface goes out of date or the window is resized. A Renderer must only
// be used from the thread driving the frame loop.
type Renderer struct {
	window    Window
	swapchain frameTarget
	sc        *Swapchain
	recorder  commandRecorder
	waitIdle  func() error
	logger    *slog.Logger

	maxFramesInFlight int
	commandBuffers    []*CommandBuffer
	imageIndex        uint32
	frameIndex        int
	frameStarted      bool

	clearColor [4]float32
	frameStart time.Duration
	frameTime  time.Duration
}

// NewRenderer creates the swapchain for window and one command buffer per swapchain image. It
// blocks while the window is minimized.
func NewRenderer(window Window, device *Device, opts RendererOptions) (*Renderer, error) {
	if opts.Logger == nil {
		opts.Logger = device.Logger()
	}
	if opts.MaxFramesInFlight <= 0 {
		opts.MaxFramesInFlight = DefaultMaxFramesInFlight
	}

	extent := waitForExtent(window, opts.Logger)
	sc, err := NewSwapchain(device, extent, SwapchainOptions{
		VSync:             opts.VSync,
		Samples:           opts.Samples,
		MaxFramesInFlight: opts.MaxFramesInFlight,
		Logger:            opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	r, err := newRenderer(window, sc, poolRecorder{pool: device.CommandPool}, device.WaitIdle, opts)
	if err != nil {
		sc.Destroy()
		return nil, err
	}
	r.sc = sc
	return r, nil
}

func newRenderer(window Window, target frameTarget, recorder commandRecorder, waitIdle func() error, opts RendererOptions) (*Renderer, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxFramesInFlight <= 0 {
		opts.MaxFramesInFlight = DefaultMaxFramesInFlight
	}
	r := &Renderer{
		window:            window,
		swapchain:         target,
		recorder:          recorder,
		waitIdle:          waitIdle,
		logger:            opts.Logger,
		maxFramesInFlight: opts.MaxFramesInFlight,
		clearColor:        [4]float32{0.01, 0.01, 0.01, 1},
	}
	if err := r.allocateCommandBuffers(); err != nil {
		return nil, err
	}
	return r, nil
}

// waitForExtent returns the window framebuffer size once it is non zero, polling window events
// while the window is minimized.
func waitForExtent(window Window, logger *slog.Logger) vk.Extent2D {
	extent := window.FramebufferSize()
	for extent.Width == 0 || extent.Height == 0 {
		logger.Debug("waiting for a non zero framebuffer size")
		window.WaitEvents()
		extent = window.FramebufferSize()
	}
	return extent
}

func (r *Renderer) allocateCommandBuffers() error {
	cbs, err := r.recorder.Allocate(r.swapchain.ImageCount())
	if err != nil {
		return err
	}
	r.commandBuffers = cbs
	return nil
}

func (r *Renderer) freeCommandBuffers() {
	r.recorder.Free(r.commandBuffers)
	r.commandBuffers = nil
}

func (r *Renderer) recreateSwapchain() error {
	extent := waitForExtent(r.window, r.logger)

	if err := r.waitIdle(); err != nil {
		return errors.Wrap(err, "wait for device idle")
	}

	before := r.swapchain.ImageCount()
	if err := r.swapchain.Recreate(extent); err != nil {
		return err
	}

	if r.swapchain.ImageCount() != before {
		r.freeCommandBuffers()
		if err := r.allocateCommandBuffers(); err != nil {
			return err
		}
	}
	return nil
}

// BeginFrame acquires the next swapchain image and begins recording its command buffer. A nil
// command buffer with a nil error means the swapchain was out of date and has been recreated,
// the caller skips this frame.
func (r *Renderer) BeginFrame() (*CommandBuffer, error) {
	if r.frameStarted {
		return nil, ErrFrameInProgress
	}

	r.frameStart = hrtime.Now()

	imageIndex, err := r.swapchain.AcquireNextImage()
	if errors.Is(err, ErrSwapchainOutOfDate) {
		return nil, r.recreateSwapchain()
	}
	if err != nil {
		return nil, err
	}

	r.imageIndex = imageIndex
	cb := r.commandBuffers[imageIndex]
	if err := r.recorder.Begin(cb); err != nil {
		return nil, err
	}
	r.frameStarted = true

	return cb, nil
}

// EndFrame ends recording, submits and presents the frame. The swapchain is recreated when it
// reports being out of date or suboptimal, or when the window was resized.
func (r *Renderer) EndFrame() error {
	if !r.frameStarted {
		return ErrNoFrameInProgress
	}
	cb := r.commandBuffers[r.imageIndex]
	r.frameStarted = false

	if err := r.recorder.End(cb); err != nil {
		return err
	}

	err := r.swapchain.SubmitCommandBuffers(cb, r.imageIndex)
	outOfDate := errors.Is(err, ErrSwapchainOutOfDate)
	if err != nil && !outOfDate {
		return err
	}

	r.frameIndex = (r.frameIndex + 1) % r.maxFramesInFlight

	if outOfDate || r.window.WasResized() {
		r.window.ResetResized()
		if err := r.recreateSwapchain(); err != nil {
			return err
		}
	}

	r.frameTime = hrtime.Since(r.frameStart)
	return nil
}

func (r *Renderer) checkCommandBuffer(cb *CommandBuffer) error {
	if !r.frameStarted {
		return ErrNoFrameInProgress
	}
	if cb != r.commandBuffers[r.imageIndex] {
		return ErrCommandBufferMismatch
	}
	return nil
}

// BeginSwapchainRenderPass begins the swapchain render pass on the framebuffer of the
// acquired image and sets the viewport and scissor to the swapchain extent.
func (r *Renderer) BeginSwapchainRenderPass(cb *CommandBuffer) error {
	if err := r.checkCommandBuffer(cb); err != nil {
		return err
	}

	clearValues := make([]vk.ClearValue, 2)
	clearValues[colorAttachmentIndex].SetColor(r.clearColor[:])
	clearValues[depthAttachmentIndex].SetDepthStencil(1, 0)

	r.recorder.BeginRenderPass(cb, r.swapchain.RenderPass(), r.swapchain.Framebuffer(int(r.imageIndex)),
		r.swapchain.Extent(), clearValues)
	return nil
}

func (r *Renderer) EndSwapchainRenderPass(cb *CommandBuffer) error {
	if err := r.checkCommandBuffer(cb); err != nil {
		return err
	}
	r.recorder.EndRenderPass(cb)
	return nil
}

func (r *Renderer) IsFrameInProgress() bool { return r.frameStarted }

// CurrentCommandBuffer returns the command buffer being recorded, or nil outside a frame.
func (r *Renderer) CurrentCommandBuffer() *CommandBuffer {
	if !r.frameStarted {
		return nil
	}
	return r.commandBuffers[r.imageIndex]
}

// FrameIndex is the frame slot, cycling through 0 to MaxFramesInFlight-1. Use it to index
// per frame resources such as uniform buffer elements.
func (r *Renderer) FrameIndex() int { return r.frameIndex }

func (r *Renderer) ImageIndex() uint32 { return r.imageIndex }

func (r *Renderer) MaxFramesInFlight() int { return r.maxFramesInFlight }

func (r *Renderer) AspectRatio() float32 {
	e := r.swapchain.Extent()
	if e.Height == 0 {
		return 1
	}
	return float32(e.Width) / float32(e.Height)
}

// SwapchainRenderPass is the render pass pipelines drawing to the screen are built against.
func (r *Renderer) SwapchainRenderPass() vk.RenderPass { return r.swapchain.RenderPass() }

// Swapchain returns the underlying swapchain, nil when the renderer was not built by
// NewRenderer.
func (r *Renderer) Swapchain() *Swapchain { return r.sc }

func (r *Renderer) SetClearColor(red, green, blue, alpha float32) {
	r.clearColor = [4]float32{red, green, blue, alpha}
}

// FrameTime is the CPU time between the last BeginFrame and its EndFrame.
func (r *Renderer) FrameTime() time.Duration { return r.frameTime }

// Destroy waits for the device to go idle, frees the command buffers and destroys the
// swapchain.
func (r *Renderer) Destroy() {
	if r.swapchain == nil {
		return
	}
	if err := r.waitIdle(); err != nil {
		r.logger.Warn("wait for device idle", slog.Any("error", err))
	}
	r.freeCommandBuffers()
	r.swapchain.Destroy()
	r.swapchain = nil
	r.sc = nil
}

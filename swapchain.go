package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

type SwapchainState int

const (
	SwapchainUninitialized SwapchainState = iota
	SwapchainReady
	SwapchainRecreating
)

func (s SwapchainState) String() string {
	switch s {
	case SwapchainUninitialized:
		return "uninitialized"
	case SwapchainReady:
		return "ready"
	case SwapchainRecreating:
		return "recreating"
	}
	return "unknown"
}

type SwapchainOptions struct {
	// VSync forces the FIFO present mode.
	VSync bool

	// Samples per pixel of the color and depth attachments, zero means one. Counts above what
	// the device supports are lowered to its maximum.
	Samples vk.SampleCountFlagBits

	// MaxFramesInFlight zero means DefaultMaxFramesInFlight.
	MaxFramesInFlight int

	Logger *slog.Logger
}

func (o SwapchainOptions) withDefaults() SwapchainOptions {
	if o.MaxFramesInFlight <= 0 {
		o.MaxFramesInFlight = DefaultMaxFramesInFlight
	}
	if o.Samples == 0 {
		o.Samples = vk.SampleCount1Bit
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Swapchain owns the presentable images, one depth attachment and, when multisampling, one
// color attachment per image, the render pass drawing into them, their framebuffers and the
// per frame slot semaphores and fences.
type Swapchain struct {
	Device      *Device
	VKSwapchain vk.Swapchain

	opts   SwapchainOptions
	state  SwapchainState
	logger *slog.Logger

	imageFormat vk.Format
	colorSpace  vk.ColorSpace
	depthFormat vk.Format
	extent      vk.Extent2D
	presentMode vk.PresentMode
	samples     vk.SampleCountFlagBits

	images           []vk.Image
	imageViews       []vk.ImageView
	depthAttachments []*Attachment
	colorAttachments []*Attachment
	framebuffers     []vk.Framebuffer
	renderPass       vk.RenderPass

	imageAvailable []vk.Semaphore
	renderFinished []vk.Semaphore
	fences         fenceRing
	sync           *frameSync
}

// NewSwapchain creates a swapchain for the device surface. windowExtent is only used when the
// surface leaves the extent to the application.
func NewSwapchain(device *Device, windowExtent vk.Extent2D, opts SwapchainOptions) (*Swapchain, error) {
	opts = opts.withDefaults()
	s := &Swapchain{
		Device: device,
		opts:   opts,
		logger: opts.Logger,
	}

	if err := s.create(windowExtent, false); err != nil {
		s.Destroy()
		return nil, err
	}
	if err := s.createSyncObjects(); err != nil {
		s.Destroy()
		return nil, err
	}
	s.sync = newFrameSync(s.fences, opts.MaxFramesInFlight, len(s.images))
	s.state = SwapchainReady

	return s, nil
}

// Recreate rebuilds the swapchain and everything sized by it against the current surface. The
// device must be idle. The frame slot ring carries over. It is fatal for the color or depth
// format to change.
func (s *Swapchain) Recreate(windowExtent vk.Extent2D) error {
	s.state = SwapchainRecreating

	s.destroyImageResources()
	if err := s.create(windowExtent, true); err != nil {
		return err
	}
	s.sync.resetImages(len(s.images))

	s.state = SwapchainReady
	return nil
}

func (s *Swapchain) create(windowExtent vk.Extent2D, recreate bool) error {
	d := s.Device

	support, err := d.QuerySwapchainSupport()
	if err != nil {
		return err
	}
	depthFormat, err := d.FindDepthFormat()
	if err != nil {
		return err
	}
	var prev *swapchainFormats
	if recreate {
		prev = &swapchainFormats{color: s.imageFormat, depth: s.depthFormat}
	}
	params, err := planSwapchain(support, windowExtent, s.opts.VSync, depthFormat, prev)
	if err != nil {
		return err
	}

	samples := clampSamples(s.opts.Samples, d.MaxUsableSampleCount())
	if samples != s.opts.Samples && !recreate {
		s.logger.Warn("sample count lowered to device maximum",
			slog.Int("requested", int(s.opts.Samples)), slog.Int("used", int(samples)))
	}

	oldSwapchain := s.VKSwapchain
	createInfo := &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.Surface,
		MinImageCount:    params.imageCount,
		ImageFormat:      params.surfaceFormat.Format,
		ImageColorSpace:  params.surfaceFormat.ColorSpace,
		ImageExtent:      params.extent,
		PresentMode:      params.presentMode,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageArrayLayers: 1,
		Clipped:          vk.True,
		PreTransform:     params.preTransform,
		CompositeAlpha:   params.compositeAlpha,
		OldSwapchain:     oldSwapchain,
	}

	graphics, present := d.GraphicsQueue.QueueFamily.Index, d.PresentQueue.QueueFamily.Index
	if graphics != present {
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{uint32(graphics), uint32(present)}
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchain vk.Swapchain
	err = vk.Error(vk.CreateSwapchain(d.VKDevice, createInfo, nil, &swapchain))
	if oldSwapchain != vk.NullSwapchain {
		vk.DestroySwapchain(d.VKDevice, oldSwapchain, nil)
		s.VKSwapchain = vk.NullSwapchain
	}
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}

	s.VKSwapchain = swapchain
	s.imageFormat = params.surfaceFormat.Format
	s.colorSpace = params.surfaceFormat.ColorSpace
	s.depthFormat = depthFormat
	s.extent = params.extent
	s.presentMode = params.presentMode
	s.samples = samples

	if err := s.createImageResources(); err != nil {
		return err
	}

	s.logger.Info("swapchain created",
		slog.Int("images", len(s.images)),
		slog.Int("width", int(s.extent.Width)),
		slog.Int("height", int(s.extent.Height)),
		slog.Int("colorFormat", int(s.imageFormat)),
		slog.Int("depthFormat", int(s.depthFormat)),
		slog.Int("presentMode", int(s.presentMode)),
		slog.Int("samples", int(s.samples)),
		slog.Bool("recreated", recreate))

	return nil
}

func (s *Swapchain) getImages() ([]vk.Image, error) {
	var imageCount uint32
	err := vk.Error(vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, nil))
	if err != nil {
		return nil, errors.Wrap(err, "get swapchain images")
	}

	swapchainImages := make([]vk.Image, imageCount)
	err = vk.Error(vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, swapchainImages))
	if err != nil {
		return nil, errors.Wrap(err, "get swapchain images")
	}
	return swapchainImages[:imageCount], nil
}

// createImageResources builds the views, render pass, attachments and framebuffers for the
// current swapchain images.
func (s *Swapchain) createImageResources() error {
	d := s.Device

	images, err := s.getImages()
	if err != nil {
		return err
	}
	s.images = images

	s.renderPass, err = d.createRenderPass(s.imageFormat, s.depthFormat, s.samples)
	if err != nil {
		return err
	}

	for _, image := range images {
		view, err := d.CreateImageView(image, s.imageFormat, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		s.imageViews = append(s.imageViews, view)

		depth, err := d.createDepthAttachment(s.extent, s.depthFormat, s.samples)
		if err != nil {
			return err
		}
		s.depthAttachments = append(s.depthAttachments, depth)

		var colorView vk.ImageView
		if s.samples != vk.SampleCount1Bit {
			color, err := d.createColorAttachment(s.extent, s.imageFormat, s.samples)
			if err != nil {
				return err
			}
			s.colorAttachments = append(s.colorAttachments, color)
			colorView = color.View
		}

		fb, err := d.createFramebuffer(s.renderPass, framebufferAttachments(view, depth.View, colorView, s.samples), s.extent)
		if err != nil {
			return err
		}
		s.framebuffers = append(s.framebuffers, fb)
	}
	return nil
}

func (s *Swapchain) destroyImageResources() {
	vkd := s.Device.VKDevice
	for _, fb := range s.framebuffers {
		vk.DestroyFramebuffer(vkd, fb, nil)
	}
	s.framebuffers = nil
	for _, a := range s.colorAttachments {
		a.Destroy()
	}
	s.colorAttachments = nil
	for _, a := range s.depthAttachments {
		a.Destroy()
	}
	s.depthAttachments = nil
	for _, v := range s.imageViews {
		vk.DestroyImageView(vkd, v, nil)
	}
	s.imageViews = nil
	if s.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(vkd, s.renderPass, nil)
		s.renderPass = vk.NullRenderPass
	}
	s.images = nil
}

func (s *Swapchain) createSyncObjects() error {
	d := s.Device
	n := s.opts.MaxFramesInFlight

	for i := 0; i < n; i++ {
		available, err := d.VKCreateSemaphore()
		if err != nil {
			return err
		}
		s.imageAvailable = append(s.imageAvailable, available)

		finished, err := d.VKCreateSemaphore()
		if err != nil {
			return err
		}
		s.renderFinished = append(s.renderFinished, finished)

		fence, err := d.CreateFence(true)
		if err != nil {
			return err
		}
		s.fences = append(s.fences, fence)
	}
	return nil
}

func (s *Swapchain) destroySyncObjects() {
	for _, sem := range s.imageAvailable {
		s.Device.VKDestroySemaphore(sem)
	}
	s.imageAvailable = nil
	for _, sem := range s.renderFinished {
		s.Device.VKDestroySemaphore(sem)
	}
	s.renderFinished = nil
	for _, f := range s.fences {
		f.Destroy()
	}
	s.fences = nil
}

// AcquireNextImage waits for the current frame slot to be free, then acquires the next
// presentable image and waits until no earlier frame still renders to it.
// ErrSwapchainOutOfDate means the swapchain must be recreated first.
func (s *Swapchain) AcquireNextImage() (uint32, error) {
	return s.sync.acquire(s)
}

// SubmitCommandBuffers submits cb for imageIndex and presents it, then moves to the next frame
// slot. ErrSwapchainOutOfDate reports an out of date or suboptimal swapchain after a
// successful submission.
func (s *Swapchain) SubmitCommandBuffers(cb *CommandBuffer, imageIndex uint32) error {
	return s.sync.submit(s, cb, imageIndex)
}

func (s *Swapchain) acquireImage(slot int) (uint32, vk.Result) {
	var imageIndex uint32
	res := vk.AcquireNextImage(s.Device.VKDevice, s.VKSwapchain, vk.MaxUint64,
		s.imageAvailable[slot], vk.NullFence, &imageIndex)
	return imageIndex, res
}

func (s *Swapchain) submitFrame(cb *CommandBuffer, slot int) error {
	return s.Device.GraphicsQueue.SubmitFrame(cb, s.imageAvailable[slot], s.renderFinished[slot], s.fences[slot].VKFence)
}

func (s *Swapchain) presentImage(image uint32, slot int) vk.Result {
	return s.Device.PresentQueue.Present(s.VKSwapchain, image, s.renderFinished[slot])
}

func (s *Swapchain) ImageCount() int { return len(s.images) }

func (s *Swapchain) Extent() vk.Extent2D { return s.extent }

func (s *Swapchain) Width() uint32 { return s.extent.Width }

func (s *Swapchain) Height() uint32 { return s.extent.Height }

func (s *Swapchain) ExtentAspectRatio() float32 {
	if s.extent.Height == 0 {
		return 1
	}
	return float32(s.extent.Width) / float32(s.extent.Height)
}

func (s *Swapchain) ImageFormat() vk.Format { return s.imageFormat }

func (s *Swapchain) DepthFormat() vk.Format { return s.depthFormat }

func (s *Swapchain) PresentMode() vk.PresentMode { return s.presentMode }

func (s *Swapchain) Samples() vk.SampleCountFlagBits { return s.samples }

func (s *Swapchain) RenderPass() vk.RenderPass { return s.renderPass }

func (s *Swapchain) Framebuffer(i int) vk.Framebuffer { return s.framebuffers[i] }

func (s *Swapchain) ImageView(i int) vk.ImageView { return s.imageViews[i] }

// CurrentFrame is the frame slot the next acquire will use.
func (s *Swapchain) CurrentFrame() int { return s.sync.current }

func (s *Swapchain) MaxFramesInFlight() int { return s.opts.MaxFramesInFlight }

func (s *Swapchain) State() SwapchainState { return s.state }

// Destroy waits for the device to go idle and releases everything the swapchain owns.
func (s *Swapchain) Destroy() {
	if s.Device == nil {
		return
	}
	s.Device.WaitIdle()

	s.destroyImageResources()
	if s.VKSwapchain != vk.NullSwapchain {
		vk.DestroySwapchain(s.Device.VKDevice, s.VKSwapchain, nil)
		s.VKSwapchain = vk.NullSwapchain
	}
	s.destroySyncObjects()

	s.state = SwapchainUninitialized
	s.Device = nil
}

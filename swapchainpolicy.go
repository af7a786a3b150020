package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// swapchainParams is everything negotiated with the surface for one swapchain creation.
type swapchainParams struct {
	surfaceFormat  vk.SurfaceFormat
	presentMode    vk.PresentMode
	extent         vk.Extent2D
	imageCount     uint32
	preTransform   vk.SurfaceTransformFlagBits
	compositeAlpha vk.CompositeAlphaFlagBits
}

func negotiate(support *SwapchainSupport, windowExtent vk.Extent2D, vsync bool) swapchainParams {
	caps := support.Capabilities
	return swapchainParams{
		surfaceFormat:  chooseSurfaceFormat(support.Formats),
		presentMode:    choosePresentMode(support.PresentModes, vsync),
		extent:         chooseExtent(caps, windowExtent),
		imageCount:     chooseImageCount(caps),
		preTransform:   caps.CurrentTransform,
		compositeAlpha: chooseCompositeAlpha(caps.SupportedCompositeAlpha),
	}
}

// swapchainFormats are the attachment formats a Swapchain keeps for its whole lifetime.
type swapchainFormats struct {
	color vk.Format
	depth vk.Format
}

// planSwapchain negotiates one creation. prev is nil for the first swapchain; on recreation a
// change of the color or depth format is fatal.
func planSwapchain(support *SwapchainSupport, windowExtent vk.Extent2D, vsync bool,
	depth vk.Format, prev *swapchainFormats) (swapchainParams, error) {

	params := negotiate(support, windowExtent, vsync)
	if params.surfaceFormat.Format == vk.FormatUndefined {
		return params, errors.New("create swapchain: surface reports no formats")
	}
	if prev != nil && (params.surfaceFormat.Format != prev.color || depth != prev.depth) {
		return params, errors.Wrapf(ErrFormatChanged, "color %d -> %d, depth %d -> %d",
			prev.color, params.surfaceFormat.Format, prev.depth, depth)
	}
	return params, nil
}

// choosePresentMode always picks FIFO with vsync. Otherwise mailbox is preferred, then
// immediate, and FIFO which every surface supports.
func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, want := range []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate} {
		for _, m := range modes {
			if m == want {
				return m
			}
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface extent unless the surface leaves it to the application, in
// which case the window framebuffer size is clamped to the surface bounds.
func chooseExtent(caps vk.SurfaceCapabilities, window vk.Extent2D) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampUint32(window.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampUint32(window.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one more image than the driver minimum, a maximum of zero means
// unbounded.
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// chooseSurfaceFormat prefers 8 bit BGRA sRGB in the sRGB non-linear color space and falls
// back to the first format the surface reports.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	if len(formats) == 0 {
		return vk.SurfaceFormat{Format: vk.FormatUndefined}
	}
	// a single undefined entry means the surface has no preference
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return preferred
	}
	for _, f := range formats {
		if f.Format == preferred.Format && f.ColorSpace == preferred.ColorSpace {
			return f
		}
	}
	return formats[0]
}

func chooseCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, a := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if supported&vk.CompositeAlphaFlags(a) != 0 {
			return a
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// clampSamples lowers requested to the highest count the device supports. Zero means one.
func clampSamples(requested, max vk.SampleCountFlagBits) vk.SampleCountFlagBits {
	if requested == 0 {
		return vk.SampleCount1Bit
	}
	if requested > max {
		return max
	}
	return requested
}

func clampUint32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

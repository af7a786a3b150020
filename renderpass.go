package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Attachment slots of the swapchain render pass. The resolve slot only exists when
// multisampling, the presentable image then moves from slot 0 to it.
const (
	colorAttachmentIndex   = 0
	depthAttachmentIndex   = 1
	resolveAttachmentIndex = 2
)

// renderPassCreateInfo describes the single subpass pass used to draw into swapchain images:
// color write, depth test and, with more than one sample, a resolve into the presentable image.
func renderPassCreateInfo(colorFormat, depthFormat vk.Format, samples vk.SampleCountFlagBits) vk.RenderPassCreateInfo {
	msaa := samples != vk.SampleCount1Bit

	color := vk.AttachmentDescription{
		Format:         colorFormat,
		Samples:        samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	if msaa {
		color.StoreOp = vk.AttachmentStoreOpDontCare
		color.FinalLayout = vk.ImageLayoutColorAttachmentOptimal
	}

	depth := vk.AttachmentDescription{
		Format:         depthFormat,
		Samples:        samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	attachmentDescriptions := []vk.AttachmentDescription{color, depth}

	colorAttachments := []vk.AttachmentReference{{
		Attachment: colorAttachmentIndex,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	depthAttachmentRef := vk.AttachmentReference{
		Attachment: depthAttachmentIndex,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorAttachments,
		PDepthStencilAttachment: &depthAttachmentRef,
	}

	if msaa {
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		})
		subpass.PResolveAttachments = []vk.AttachmentReference{{
			Attachment: resolveAttachmentIndex,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}

	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit)
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		SrcAccessMask: 0,
		DstStageMask:  stages,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}

	return vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
}

// framebufferAttachments orders views to match renderPassCreateInfo. color is only used when
// multisampling.
func framebufferAttachments(swapchainView, depthView, colorView vk.ImageView, samples vk.SampleCountFlagBits) []vk.ImageView {
	if samples != vk.SampleCount1Bit {
		return []vk.ImageView{colorView, depthView, swapchainView}
	}
	return []vk.ImageView{swapchainView, depthView}
}

func (d *Device) createRenderPass(colorFormat, depthFormat vk.Format, samples vk.SampleCountFlagBits) (vk.RenderPass, error) {
	renderPassCreateInfo := renderPassCreateInfo(colorFormat, depthFormat, samples)

	var renderPass vk.RenderPass

	err := vk.Error(vk.CreateRenderPass(d.VKDevice, &renderPassCreateInfo, nil, &renderPass))
	if err != nil {
		return vk.NullRenderPass, errors.Wrap(err, "create render pass")
	}
	return renderPass, nil
}

func (d *Device) createFramebuffer(renderPass vk.RenderPass, attachments []vk.ImageView, extent vk.Extent2D) (vk.Framebuffer, error) {
	fbCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		Layers:          1,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
	}
	var framebuffer vk.Framebuffer
	err := vk.Error(vk.CreateFramebuffer(d.VKDevice, &fbCreateInfo, nil, &framebuffer))
	if err != nil {
		return nil, errors.Wrap(err, "create framebuffer")
	}
	return framebuffer, nil
}

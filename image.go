package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// CreateImageWithMemory creates an image from imageInfo and binds it to freshly allocated
// memory having props.
func (d *Device) CreateImageWithMemory(imageInfo vk.ImageCreateInfo, props vk.MemoryPropertyFlags) (vk.Image, *DeviceMemory, error) {
	var image vk.Image

	err := vk.Error(vk.CreateImage(d.VKDevice, &imageInfo, nil, &image))
	if err != nil {
		return nil, nil, errors.Wrap(err, "create image")
	}

	var mr vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.VKDevice, image, &mr)
	mr.Deref()

	mem, err := d.Allocate(uint64(mr.Size), mr.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyImage(d.VKDevice, image, nil)
		return nil, nil, errors.Wrap(err, "allocate image memory")
	}

	err = vk.Error(vk.BindImageMemory(d.VKDevice, image, mem.VKDeviceMemory, 0))
	if err != nil {
		mem.Destroy()
		vk.DestroyImage(d.VKDevice, image, nil)
		return nil, nil, errors.Wrap(err, "bind image memory")
	}

	return image, mem, nil
}

// CreateImageView creates a 2D view over a single mip level and layer of image.
func (d *Device) CreateImageView(image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var view vk.ImageView

	err := vk.Error(vk.CreateImageView(d.VKDevice, createInfo, nil, &view))
	if err != nil {
		return nil, errors.Wrap(err, "create image view")
	}
	return view, nil
}

// Attachment is a device local image owned by a swapchain image, used as its depth buffer or
// its multisampled color target.
type Attachment struct {
	Device *Device
	Image  vk.Image
	Memory *DeviceMemory
	View   vk.ImageView
	Format vk.Format
}

func (d *Device) createAttachment(extent vk.Extent2D, format vk.Format, samples vk.SampleCountFlagBits,
	usage vk.ImageUsageFlags, aspect vk.ImageAspectFlags) (*Attachment, error) {

	var imageInfo = vk.ImageCreateInfo{}
	imageInfo.SType = vk.StructureTypeImageCreateInfo
	imageInfo.ImageType = vk.ImageType2d
	imageInfo.Extent.Width = extent.Width
	imageInfo.Extent.Height = extent.Height
	imageInfo.Extent.Depth = 1
	imageInfo.MipLevels = 1
	imageInfo.ArrayLayers = 1
	imageInfo.Format = format
	imageInfo.Tiling = vk.ImageTilingOptimal
	imageInfo.InitialLayout = vk.ImageLayoutUndefined
	imageInfo.Usage = usage
	imageInfo.Samples = samples
	imageInfo.SharingMode = vk.SharingModeExclusive

	image, mem, err := d.CreateImageWithMemory(imageInfo, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	view, err := d.CreateImageView(image, format, aspect)
	if err != nil {
		mem.Destroy()
		vk.DestroyImage(d.VKDevice, image, nil)
		return nil, err
	}

	return &Attachment{Device: d, Image: image, Memory: mem, View: view, Format: format}, nil
}

// createDepthAttachment creates a depth attachment with the stencil aspect left out, it is
// never sampled.
func (d *Device) createDepthAttachment(extent vk.Extent2D, format vk.Format, samples vk.SampleCountFlagBits) (*Attachment, error) {
	a, err := d.createAttachment(extent, format, samples,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	return a, errors.Wrap(err, "create depth attachment")
}

func (d *Device) createColorAttachment(extent vk.Extent2D, format vk.Format, samples vk.SampleCountFlagBits) (*Attachment, error) {
	a, err := d.createAttachment(extent, format, samples,
		vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit|vk.ImageUsageColorAttachmentBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	return a, errors.Wrap(err, "create color attachment")
}

func (a *Attachment) Destroy() {
	if a == nil {
		return
	}
	vk.DestroyImageView(a.Device.VKDevice, a.View, nil)
	vk.DestroyImage(a.Device.VKDevice, a.Image, nil)
	a.Memory.Destroy()
}

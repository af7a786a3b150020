package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Extension names of the two mesh shading extensions, EXT is preferred over NV.
const (
	extMeshShaderName = "VK_EXT_mesh_shader"
	nvMeshShaderName  = "VK_NV_mesh_shader"
	khrSwapchainName  = "VK_KHR_swapchain"

	khrPhysicalDeviceProperties2Name = "VK_KHR_get_physical_device_properties2"
)

// depthFormatCandidates is the declared preference order for depth attachments.
var depthFormatCandidates = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

type PhysicalDevice struct {
	DeviceName                 string
	VKPhysicalDevice           vk.PhysicalDevice
	VKPhysicalDeviceProperties vk.PhysicalDeviceProperties
}

func (p *PhysicalDevice) String() string {
	return p.DeviceName
}

// SwapchainSupport is what a surface reports it can do on a physical device. It is queried
// fresh for every swapchain creation since a display reconfiguration can change it.
type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func (p *PhysicalDevice) GetSurfacePresentModes(surface vk.Surface) ([]vk.PresentMode, error) {
	var count uint32
	err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, nil))
	if err != nil {
		return nil, err
	}

	f := make([]vk.PresentMode, count)
	err = vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, f))
	if err != nil {
		return nil, err
	}

	return f[:count], nil
}

func (p *PhysicalDevice) GetSurfaceFormats(surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, nil))
	if err != nil {
		return nil, err
	}

	f := make([]vk.SurfaceFormat, count)
	err = vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, f))
	if err != nil {
		return nil, err
	}
	for i := range f {
		f[i].Deref()
	}

	return f[:count], nil
}

func (p *PhysicalDevice) GetSurfaceCapabilities(surface vk.Surface) (*vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(p.VKPhysicalDevice, surface, &caps))
	if err != nil {
		return nil, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	return &caps, nil
}

// QuerySwapchainSupport reads the capabilities, formats and present modes of surface.
func (p *PhysicalDevice) QuerySwapchainSupport(surface vk.Surface) (*SwapchainSupport, error) {
	caps, err := p.GetSurfaceCapabilities(surface)
	if err != nil {
		return nil, errors.Wrap(err, "query surface capabilities")
	}
	formats, err := p.GetSurfaceFormats(surface)
	if err != nil {
		return nil, errors.Wrap(err, "query surface formats")
	}
	modes, err := p.GetSurfacePresentModes(surface)
	if err != nil {
		return nil, errors.Wrap(err, "query surface present modes")
	}
	return &SwapchainSupport{Capabilities: *caps, Formats: formats, PresentModes: modes}, nil
}

func (p *PhysicalDevice) QueueFamilies() QueueFamilySlice {
	var queueFamilyCount uint32

	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &queueFamilyCount, nil)

	if queueFamilyCount == 0 {
		return nil
	}

	queues := make([]vk.QueueFamilyProperties, queueFamilyCount)

	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &queueFamilyCount, queues)

	ret := make([]*QueueFamily, queueFamilyCount)
	for i, queue := range queues {
		ret[i] = &QueueFamily{Index: i, PhysicalDevice: p, VKQueueFamilyProperties: queue}
		ret[i].VKQueueFamilyProperties.Deref()
	}

	return ret
}

func (p *PhysicalDevice) VKPhysicalDeviceFeatures() vk.PhysicalDeviceFeatures {
	var deviceFeatures vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(p.VKPhysicalDevice, &deviceFeatures)
	deviceFeatures.Deref()
	return deviceFeatures
}

func (p *PhysicalDevice) VKPhysicalDeviceMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(p.VKPhysicalDevice, &memoryProperties)
	memoryProperties.Deref()
	return memoryProperties
}

// Limits returns the device limits, already dereferenced.
func (p *PhysicalDevice) Limits() vk.PhysicalDeviceLimits {
	limits := p.VKPhysicalDeviceProperties.Limits
	limits.Deref()
	return limits
}

// FindMemoryType returns the index of the first memory type allowed by memoryTypeBits
// which has every flag in properties. There is no fallback to weaker properties.
func (p *PhysicalDevice) FindMemoryType(memoryTypeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	mp := p.VKPhysicalDeviceMemoryProperties()

	types := make([]vk.MemoryPropertyFlags, mp.MemoryTypeCount)
	for i := range types {
		mt := mp.MemoryTypes[i]
		mt.Deref()
		types[i] = mt.PropertyFlags
	}

	return findMemoryType(types, memoryTypeBits, properties)
}

func findMemoryType(types []vk.MemoryPropertyFlags, memoryTypeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i, flags := range types {
		if memoryTypeBits&(1<<uint(i)) != 0 && flags&properties == properties {
			return uint32(i), nil
		}
	}
	return 0, errors.Wrapf(ErrNoSuitableMemoryType, "type bits %#x, properties %#x", memoryTypeBits, uint32(properties))
}

// FormatSupported reports whether format supports features with the given tiling.
func (p *PhysicalDevice) FormatSupported(format vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(p.VKPhysicalDevice, format, &props)
	props.Deref()

	switch tiling {
	case vk.ImageTilingLinear:
		return props.LinearTilingFeatures&features == features
	case vk.ImageTilingOptimal:
		return props.OptimalTilingFeatures&features == features
	}
	return false
}

// FindSupportedFormat returns the first candidate the device supports.
func (p *PhysicalDevice) FindSupportedFormat(candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) (vk.Format, error) {
	return firstSupportedFormat(candidates, func(f vk.Format) bool {
		return p.FormatSupported(f, tiling, features)
	})
}

// FindDepthFormat picks a depth attachment format in depthFormatCandidates order.
func (p *PhysicalDevice) FindDepthFormat() (vk.Format, error) {
	return p.FindSupportedFormat(depthFormatCandidates, vk.ImageTilingOptimal,
		vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit))
}

func firstSupportedFormat(candidates []vk.Format, supported func(vk.Format) bool) (vk.Format, error) {
	for _, f := range candidates {
		if supported(f) {
			return f, nil
		}
	}
	return vk.FormatUndefined, ErrNoDepthFormat
}

// MaxUsableSampleCount is the highest sample count usable for both color and depth.
func (p *PhysicalDevice) MaxUsableSampleCount() vk.SampleCountFlagBits {
	limits := p.Limits()
	return highestSampleCount(limits.FramebufferColorSampleCounts & limits.FramebufferDepthSampleCounts)
}

func highestSampleCount(counts vk.SampleCountFlags) vk.SampleCountFlagBits {
	for _, c := range []vk.SampleCountFlagBits{
		vk.SampleCount64Bit,
		vk.SampleCount32Bit,
		vk.SampleCount16Bit,
		vk.SampleCount8Bit,
		vk.SampleCount4Bit,
		vk.SampleCount2Bit,
	} {
		if counts&vk.SampleCountFlags(c) != 0 {
			return c
		}
	}
	return vk.SampleCount1Bit
}

func (p *PhysicalDevice) SupportedExtensions() ([]string, error) {
	var count uint32
	err := vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, nil))
	if err != nil {
		return nil, err
	}

	ext := make([]vk.ExtensionProperties, count)

	err = vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, ext))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for _, e := range ext[:count] {
		e.Deref()
		names = append(names, vk.ToString(e.ExtensionName[:]))
	}
	return names, nil
}

// SupportsExtension reports whether the device exposes the named extension.
func (p *PhysicalDevice) SupportsExtension(name string) bool {
	names, err := p.SupportedExtensions()
	if err != nil {
		return false
	}
	return containsString(names, name)
}

// MeshShaderExtension returns the mesh shading extension the device supports, or "".
func (p *PhysicalDevice) MeshShaderExtension() string {
	names, err := p.SupportedExtensions()
	if err != nil {
		return ""
	}
	return pickMeshShaderExtension(names)
}

func pickMeshShaderExtension(names []string) string {
	var nv bool
	for _, n := range names {
		switch n {
		case extMeshShaderName:
			return extMeshShaderName
		case nvMeshShaderName:
			nv = true
		}
	}
	if nv {
		return nvMeshShaderName
	}
	return ""
}

// chainableMeshExtension returns the mesh shading extension a device can be created with, or "".
// Only VK_NV_mesh_shader has a feature struct in the binding that can be chained into device
// creation; VK_EXT_mesh_shader additionally needs VK_KHR_spirv_1_4 and its own feature struct.
func chainableMeshExtension(names []string) string {
	for _, n := range names {
		if n == nvMeshShaderName {
			return nvMeshShaderName
		}
	}
	return ""
}

func containsString(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}
	return false
}

package vkr

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DeviceMemory maps to Vulkan DeviceMemory and can either be memory on the host or on the device
type DeviceMemory struct {
	Device         *Device
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
	Properties     vk.MemoryPropertyFlags
	Ptr            unsafe.Pointer
}

// IsMapped returns true if the device memory is currently mapped
func (d *DeviceMemory) IsMapped() bool {
	return d.Ptr != nil
}

// IsHostCoherent reports whether writes are visible to the device without an explicit flush.
func (d *DeviceMemory) IsHostCoherent() bool {
	return d.Properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) != 0
}

// Map maps size bytes starting at offset into host address space, WholeSize maps to the end.
func (d *DeviceMemory) Map(size, offset uint64) (unsafe.Pointer, error) {
	if d.Ptr != nil {
		return nil, ErrAlreadyMapped
	}
	var res unsafe.Pointer
	err := vk.Error(vk.MapMemory(d.Device.VKDevice, d.VKDeviceMemory, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &res))
	if err != nil {
		return nil, errors.Wrap(err, "map memory")
	}
	d.Ptr = res
	return res, nil
}

// Unmap this memory
func (d *DeviceMemory) Unmap() {
	if d.Ptr == nil {
		return
	}
	vk.UnmapMemory(d.Device.VKDevice, d.VKDeviceMemory)
	d.Ptr = nil
}

func (d *DeviceMemory) mappedRange(size, offset uint64) []vk.MappedMemoryRange {
	return []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: d.VKDeviceMemory,
		Offset: vk.DeviceSize(offset),
		Size:   vk.DeviceSize(size),
	}}
}

// Flush makes host writes to the range visible to the device. Required for memory which is
// not host coherent.
func (d *DeviceMemory) Flush(size, offset uint64) error {
	return errors.Wrap(vk.Error(vk.FlushMappedMemoryRanges(d.Device.VKDevice, 1, d.mappedRange(size, offset))), "flush mapped memory")
}

// Invalidate makes device writes to the range visible to the host. Required for memory which
// is not host coherent.
func (d *DeviceMemory) Invalidate(size, offset uint64) error {
	return errors.Wrap(vk.Error(vk.InvalidateMappedMemoryRanges(d.Device.VKDevice, 1, d.mappedRange(size, offset))), "invalidate mapped memory")
}

// Destroy destorys this memory
func (d *DeviceMemory) Destroy() {
	d.Unmap()
	vk.FreeMemory(d.Device.VKDevice, d.VKDeviceMemory, nil)
}

package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Buffer is a run of equally sized elements in device memory, each element starting on a
// multiple of the alignment it was created with. This lets one buffer hold per-frame or
// per-instance uniform data bound through dynamic offsets.
type Buffer struct {
	Device   *Device
	VKBuffer vk.Buffer
	Memory   *DeviceMemory

	elementStride uint64
	elementCount  uint64
	alignedStride uint64
	size          uint64

	usage            vk.BufferUsageFlags
	memoryProperties vk.MemoryPropertyFlags

	// mapped is the host view of the mapped range, which begins at mappedOffset.
	mapped       []byte
	mappedOffset uint64
}

// AlignedStride returns the smallest multiple of minOffsetAlignment that holds stride bytes.
// An alignment of zero leaves stride untouched.
func AlignedStride(stride, minOffsetAlignment uint64) uint64 {
	return alignUp(stride, minOffsetAlignment)
}

func newBufferLayout(elementStride, elementCount, minOffsetAlignment uint64) *Buffer {
	aligned := AlignedStride(elementStride, minOffsetAlignment)
	return &Buffer{
		elementStride: elementStride,
		elementCount:  elementCount,
		alignedStride: aligned,
		size:          aligned * elementCount,
	}
}

// NewBuffer creates a buffer of elementCount elements of elementStride bytes. Pass the
// device's MinUniformBufferOffsetAlignment (or storage equivalent) as minOffsetAlignment when
// elements are bound individually, or 1 otherwise.
func NewBuffer(device *Device, elementStride, elementCount uint64, usage vk.BufferUsageFlags,
	memoryProperties vk.MemoryPropertyFlags, minOffsetAlignment uint64) (*Buffer, error) {

	b := newBufferLayout(elementStride, elementCount, minOffsetAlignment)
	if b.size == 0 {
		return nil, errors.New("create buffer: zero size")
	}
	b.Device = device
	b.usage = usage
	b.memoryProperties = memoryProperties

	var err error
	b.VKBuffer, b.Memory, err = device.CreateBuffer(b.size, usage, memoryProperties)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Buffer) ElementStride() uint64 { return b.elementStride }

func (b *Buffer) ElementCount() uint64 { return b.elementCount }

func (b *Buffer) AlignedStride() uint64 { return b.alignedStride }

// Size is the total size in bytes, AlignedStride times ElementCount.
func (b *Buffer) Size() uint64 { return b.size }

func (b *Buffer) Usage() vk.BufferUsageFlags { return b.usage }

func (b *Buffer) MemoryProperties() vk.MemoryPropertyFlags { return b.memoryProperties }

func (b *Buffer) IsMapped() bool { return b.mapped != nil }

// MappedBytes returns the mapped range, or nil while unmapped.
func (b *Buffer) MappedBytes() []byte { return b.mapped }

// rangeLength resolves WholeSize against offset.
func (b *Buffer) rangeLength(size, offset uint64) uint64 {
	if size == WholeSize {
		if offset > b.size {
			return 0
		}
		return b.size - offset
	}
	return size
}

// Map maps size bytes at offset, WholeSize maps through the end of the buffer. The memory must
// be host visible.
func (b *Buffer) Map(size, offset uint64) error {
	if b.mapped != nil {
		return ErrAlreadyMapped
	}
	length := b.rangeLength(size, offset)
	if offset+length > b.size {
		return errors.Wrapf(ErrOutOfRange, "map %d bytes at %d of %d", length, offset, b.size)
	}
	ptr, err := b.Memory.Map(size, offset)
	if err != nil {
		return err
	}
	b.mapped = ToBytes(ptr, int(length))
	b.mappedOffset = offset
	return nil
}

func (b *Buffer) Unmap() {
	if b.mapped == nil {
		return
	}
	b.Memory.Unmap()
	b.mapped = nil
	b.mappedOffset = 0
}

// WriteToBuffer copies size bytes of data to offset. With WholeSize the whole of data is
// copied to the start of the mapped range and must fit in it.
func (b *Buffer) WriteToBuffer(data []byte, size, offset uint64) error {
	if b.mapped == nil {
		return ErrNotMapped
	}
	if size == WholeSize {
		size, offset = uint64(len(data)), b.mappedOffset
	}
	if size > uint64(len(data)) {
		return errors.Wrapf(ErrOutOfRange, "write of %d bytes from %d byte source", size, len(data))
	}
	start, mapped := offset-b.mappedOffset, uint64(len(b.mapped))
	if offset < b.mappedOffset || start > mapped || size > mapped-start {
		return errors.Wrapf(ErrOutOfRange, "write %d bytes at %d outside mapped range [%d, %d)",
			size, offset, b.mappedOffset, b.mappedOffset+mapped)
	}
	copy(b.mapped[start:start+size], data[:size])
	return nil
}

// WriteToIndex copies consecutive elements from data, starting at element index. len(data)
// must be a multiple of the element stride; each element lands on its aligned offset.
func (b *Buffer) WriteToIndex(data []byte, index uint64) error {
	if b.elementStride == 0 || uint64(len(data))%b.elementStride != 0 {
		return errors.Errorf("write to index: %d bytes is not a multiple of the %d byte element stride", len(data), b.elementStride)
	}
	count := uint64(len(data)) / b.elementStride
	if index > b.elementCount || count > b.elementCount-index {
		return errors.Wrapf(ErrOutOfRange, "write of %d elements at index %d of %d", count, index, b.elementCount)
	}
	for k := uint64(0); k < count; k++ {
		src := data[k*b.elementStride : (k+1)*b.elementStride]
		if err := b.WriteToBuffer(src, b.elementStride, (index+k)*b.alignedStride); err != nil {
			return err
		}
	}
	return nil
}

// atomRange widens a range to whole multiples of atom, the granularity at which non coherent
// memory is flushed and invalidated. WholeSize stays WholeSize.
func atomRange(size, offset, atom uint64) (uint64, uint64) {
	if atom <= 1 {
		return size, offset
	}
	start := offset - offset%atom
	if size == WholeSize {
		return WholeSize, start
	}
	return alignUp(offset+size, atom) - start, start
}

// flushRange checks the buffer is mapped and rounds the range to the device atom size. A range
// reaching the end of the memory becomes WholeSize, the end itself need not be aligned.
func (b *Buffer) flushRange(size, offset uint64) (uint64, uint64, error) {
	if b.mapped == nil {
		return 0, 0, ErrNotMapped
	}
	size, offset = atomRange(size, offset, b.atomSize())
	if size != WholeSize && offset+size >= b.Memory.Size {
		size = WholeSize
	}
	return size, offset, nil
}

func (b *Buffer) atomSize() uint64 {
	if b.Device == nil || b.Device.PhysicalDevice == nil {
		return 1
	}
	return b.Device.NonCoherentAtomSize()
}

// Flush makes host writes in the range visible to the device. Required when the memory is not
// host coherent. The range is widened to the device's non coherent atom size.
func (b *Buffer) Flush(size, offset uint64) error {
	size, offset, err := b.flushRange(size, offset)
	if err != nil {
		return err
	}
	return b.Memory.Flush(size, offset)
}

func (b *Buffer) FlushIndex(index uint64) error {
	return b.Flush(b.alignedStride, index*b.alignedStride)
}

// Invalidate makes device writes in the range visible to the host. Required when the memory
// is not host coherent.
func (b *Buffer) Invalidate(size, offset uint64) error {
	size, offset, err := b.flushRange(size, offset)
	if err != nil {
		return err
	}
	return b.Memory.Invalidate(size, offset)
}

func (b *Buffer) InvalidateIndex(index uint64) error {
	return b.Invalidate(b.alignedStride, index*b.alignedStride)
}

func (b *Buffer) DescriptorInfo(size, offset uint64) vk.DescriptorBufferInfo {
	var descriptorBufferInfo = vk.DescriptorBufferInfo{}
	descriptorBufferInfo.Buffer = b.VKBuffer
	descriptorBufferInfo.Offset = vk.DeviceSize(offset)
	descriptorBufferInfo.Range = vk.DeviceSize(size)
	return descriptorBufferInfo
}

// DescriptorInfoForIndex describes element index alone, for binding one instance of a shared
// buffer.
func (b *Buffer) DescriptorInfoForIndex(index uint64) vk.DescriptorBufferInfo {
	return b.DescriptorInfo(b.alignedStride, index*b.alignedStride)
}

// Destroy unmaps the buffer if needed, then releases the buffer and its memory.
func (b *Buffer) Destroy() {
	b.Unmap()
	if b.VKBuffer != vk.NullBuffer {
		vk.DestroyBuffer(b.Device.VKDevice, b.VKBuffer, nil)
		b.VKBuffer = vk.NullBuffer
	}
	if b.Memory != nil {
		b.Memory.Destroy()
		b.Memory = nil
	}
}

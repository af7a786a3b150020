package vkr

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// IndexData is index buffer content of a known index type.
type IndexData interface {
	Bytes() []byte
	IndexType() vk.IndexType
	Stride() uint64
	Len() int
}

type IndexSliceUint16 []uint16

func (i IndexSliceUint16) Bytes() []byte {
	if len(i) == 0 {
		return nil
	}
	return ToBytes(unsafe.Pointer(&i[0]), len(i)*2)
}

func (i IndexSliceUint16) IndexType() vk.IndexType { return vk.IndexTypeUint16 }

func (i IndexSliceUint16) Stride() uint64 { return 2 }

func (i IndexSliceUint16) Len() int { return len(i) }

type IndexSliceUint32 []uint32

func (i IndexSliceUint32) Bytes() []byte {
	if len(i) == 0 {
		return nil
	}
	return ToBytes(unsafe.Pointer(&i[0]), len(i)*4)
}

func (i IndexSliceUint32) IndexType() vk.IndexType { return vk.IndexTypeUint32 }

func (i IndexSliceUint32) Stride() uint64 { return 4 }

func (i IndexSliceUint32) Len() int { return len(i) }

// NewIndexBuffer uploads indices into a device local index buffer.
func NewIndexBuffer(device *Device, indices IndexData) (*Buffer, error) {
	return NewDeviceLocalBuffer(device, indices.Stride(), uint64(indices.Len()),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), 1, indices.Bytes())
}

// BindIndexData binds buffer holding indices.
func (c *CommandBuffer) BindIndexData(buffer *Buffer, indices IndexData) {
	c.BindIndexBuffer(buffer, 0, indices.IndexType())
}

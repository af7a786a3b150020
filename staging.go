package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// CopyBuffer records a copy of size bytes from the start of src to the start of dst.
func (c *CommandBuffer) CopyBuffer(src, dst *Buffer, size uint64) {
	vk.CmdCopyBuffer(c.VKCommandBuffer, src.VKBuffer, dst.VKBuffer, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
}

// Submit submits cb without semaphores, fence may be nil.
func (q *Queue) Submit(cb *CommandBuffer, fence *Fence) error {
	var vkFence vk.Fence
	if fence != nil {
		vkFence = fence.VKFence
	}
	submitInfo := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.VKCommandBuffer},
	}}
	return errors.Wrap(vk.Error(vk.QueueSubmit(q.VKQueue, 1, submitInfo, vkFence)), "queue submit")
}

// SubmitOnce records a throwaway command buffer with record, submits it to the graphics queue
// and blocks until it has executed. It is meant for uploads outside the frame loop.
func (d *Device) SubmitOnce(record func(cb *CommandBuffer)) error {
	cbs, err := d.CommandPool.AllocateBuffers(1)
	if err != nil {
		return err
	}
	defer d.CommandPool.FreeBuffers(cbs)
	cb := cbs[0]

	if err := cb.Begin(); err != nil {
		return err
	}
	record(cb)
	if err := cb.End(); err != nil {
		return err
	}

	fence, err := d.CreateFence(false)
	if err != nil {
		return err
	}
	defer fence.Destroy()

	if err := d.GraphicsQueue.Submit(cb, fence); err != nil {
		return err
	}
	return fence.Wait()
}

// NewDeviceLocalBuffer creates a device local buffer of count elements holding data, uploaded
// through a temporary host visible staging buffer. usage gets the transfer destination bit
// added.
func NewDeviceLocalBuffer(device *Device, elementStride, elementCount uint64, usage vk.BufferUsageFlags,
	minOffsetAlignment uint64, data []byte) (*Buffer, error) {

	staging, err := NewBuffer(device, elementStride, elementCount,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
		minOffsetAlignment)
	if err != nil {
		return nil, errors.Wrap(err, "create staging buffer")
	}
	defer staging.Destroy()

	if err := staging.Map(WholeSize, 0); err != nil {
		return nil, err
	}
	if minOffsetAlignment > 1 {
		err = staging.WriteToIndex(data, 0)
	} else {
		err = staging.WriteToBuffer(data, WholeSize, 0)
	}
	staging.Unmap()
	if err != nil {
		return nil, err
	}

	buffer, err := NewBuffer(device, elementStride, elementCount,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		minOffsetAlignment)
	if err != nil {
		return nil, err
	}

	err = device.SubmitOnce(func(cb *CommandBuffer) {
		cb.CopyBuffer(staging, buffer, staging.Size())
	})
	if err != nil {
		buffer.Destroy()
		return nil, errors.Wrap(err, "upload buffer")
	}
	return buffer, nil
}

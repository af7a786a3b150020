package vkr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type Queue struct {
	Device      *Device
	QueueFamily *QueueFamily
	VKQueue     vk.Queue
}

func (q *Queue) WaitIdle() error {
	return vk.Error(vk.QueueWaitIdle(q.VKQueue))
}

// SubmitFrame submits a single command buffer which waits on wait at the color output stage and
// signals signal and fence on completion.
func (q *Queue) SubmitFrame(cb *CommandBuffer, wait, signal vk.Semaphore, fence vk.Fence) error {
	submitInfo := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{wait},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.VKCommandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal},
	}}

	return vk.Error(vk.QueueSubmit(q.VKQueue, 1, submitInfo, fence))
}

// Present queues imageIndex of swapchain for presentation once wait is signaled. The raw result
// is returned so callers can tell OutOfDate and Suboptimal apart from failures.
func (q *Queue) Present(swapchain vk.Swapchain, imageIndex uint32, wait vk.Semaphore) vk.Result {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain},
		PImageIndices:      []uint32{imageIndex},
	}
	return vk.QueuePresent(q.VKQueue, &presentInfo)
}

func (q *Queue) String() string {
	return fmt.Sprintf("{QueueFamily: %s}", q.QueueFamily.String())
}

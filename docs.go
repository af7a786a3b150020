/*
Package vkr implements the presentation and pipeline core of a Vulkan renderer for go: the
logical device, GPU buffers, graphics pipeline construction, the swapchain and a frame renderer
which paces the CPU against the GPU and survives window resizes and minimization.

Vulkan leaves everything OpenGL used to manage to the application: where memory lives, when the
GPU is done with a resource and what happens when the surface changes under the swapchain. This
package takes care of that machinery and nothing above it, what is drawn is left to the
application, which records its own draw calls between the render pass calls of the Renderer.

Native Vulkan objects are exposed in every type with fields prefixed 'VK', so applications aren't
limited by what this package wraps.

Ownership

	Device		instance, surface, physical and logical device, queues and the command pool
	Swapchain	presentable images, depth and multisample attachments, render pass,
			framebuffers and the per frame semaphores and fences
	Renderer	a Swapchain plus one command buffer per swapchain image
	Buffer		a buffer and its memory, with element stride alignment
	Pipeline	an immutable graphics pipeline built from a PipelineConfig

The Device must outlive everything created from it. Destroy every object before its owner.

Frame loop

A frame is recorded and submitted from a single thread, the one which created the window:

	cb, err := renderer.BeginFrame()
	if err != nil {
		return err
	}
	if cb == nil {
		// the swapchain was out of date and has been rebuilt, skip this frame
		return nil
	}
	renderer.BeginSwapchainRenderPass(cb)
	pipeline.Bind(cb)
	cb.Draw(3, 1, 0, 0)
	renderer.EndSwapchainRenderPass(cb)
	return renderer.EndFrame()

At most MaxFramesInFlight frames (2 unless configured) are queued on the GPU at any time,
BeginFrame blocks until the oldest one is done. Per frame resources such as uniform buffer
elements should be indexed with Renderer.FrameIndex, Buffer.DescriptorInfoForIndex gives the
descriptor range of one element.

Errors

Creation failures are returned wrapped with the step that failed and must stop forward
progress. ErrSwapchainOutOfDate is the only transient error, the Renderer handles it by
recreating the swapchain. Every other sentinel error in this package reports misuse.
*/
package vkr

package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

// commandRecorder is the part of command buffer handling the renderer drives.
type commandRecorder interface {
	Allocate(count int) ([]*CommandBuffer, error)
	Free(cbs []*CommandBuffer)
	Begin(cb *CommandBuffer) error
	End(cb *CommandBuffer) error
	// BeginRenderPass also sets the viewport and scissor to cover extent.
	BeginRenderPass(cb *CommandBuffer, renderPass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D, clear []vk.ClearValue)
	EndRenderPass(cb *CommandBuffer)
}

// poolRecorder records into primary command buffers from a pool created with the reset
// command buffer flag, so beginning a buffer implicitly resets it.
type poolRecorder struct {
	pool *CommandPool
}

func (p poolRecorder) Allocate(count int) ([]*CommandBuffer, error) {
	return p.pool.AllocateBuffers(count)
}

func (p poolRecorder) Free(cbs []*CommandBuffer) {
	p.pool.FreeBuffers(cbs)
}

func (p poolRecorder) Begin(cb *CommandBuffer) error { return cb.Begin() }

func (p poolRecorder) End(cb *CommandBuffer) error { return cb.End() }

func (p poolRecorder) BeginRenderPass(cb *CommandBuffer, renderPass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D, clear []vk.ClearValue) {
	cb.BeginRenderPass(renderPass, framebuffer, extent, clear)
	cb.SetViewport(extent)
	cb.SetScissor(extent)
}

func (p poolRecorder) EndRenderPass(cb *CommandBuffer) { cb.EndRenderPass() }

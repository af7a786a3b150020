package vkr

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// CommandBuffers describe a sequence of commands that will be executed
// upon being sent to a device queue. Only the commands the renderer and
// simple draw code need are wrapped, anything else can be issued with the
// native vulkan command APIs through VK().
type CommandBuffer struct {
	VKCommandBuffer vk.CommandBuffer
}

// Reset this command buffer
func (c *CommandBuffer) Reset() error {
	return vk.Error(vk.ResetCommandBuffer(c.VKCommandBuffer, 0))
}

// VK is a utility function for accessing the native vulkan command buffer
func (c *CommandBuffer) VK() vk.CommandBuffer {
	return c.VKCommandBuffer
}

// Begin capturing work for this command buffer
func (c *CommandBuffer) Begin() error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	beginInfo.Flags = 0
	return errors.Wrap(vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo)), "begin command buffer")
}

// End describing work for this command buffer
func (c *CommandBuffer) End() error {
	return errors.Wrap(vk.Error(vk.EndCommandBuffer(c.VKCommandBuffer)), "end command buffer")
}

// BeginRenderPass starts renderPass on framebuffer covering extent, clearing attachments with
// clear in attachment order.
func (c *CommandBuffer) BeginRenderPass(renderPass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D, clear []vk.ClearValue) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clear)),
		PClearValues:    clear,
	}
	vk.CmdBeginRenderPass(c.VKCommandBuffer, &beginInfo, vk.SubpassContentsInline)
}

func (c *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.VKCommandBuffer)
}

// SetViewport sets a viewport covering extent with depth range [0, 1].
func (c *CommandBuffer) SetViewport(extent vk.Extent2D) {
	vk.CmdSetViewport(c.VKCommandBuffer, 0, 1, []vk.Viewport{{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}})
}

func (c *CommandBuffer) SetScissor(extent vk.Extent2D) {
	vk.CmdSetScissor(c.VKCommandBuffer, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}})
}

func (c *CommandBuffer) BindGraphicsPipeline(p vk.Pipeline) {
	vk.CmdBindPipeline(c.VKCommandBuffer, vk.PipelineBindPointGraphics, p)
}

func (c *CommandBuffer) BindVertexBuffers(firstBinding int, buffers []*Buffer, offsets []uint64) {
	b := make([]vk.Buffer, len(buffers))
	o := make([]vk.DeviceSize, len(buffers))
	for i := range buffers {
		b[i] = buffers[i].VKBuffer
		if i < len(offsets) {
			o[i] = vk.DeviceSize(offsets[i])
		}
	}
	vk.CmdBindVertexBuffers(c.VKCommandBuffer, uint32(firstBinding), uint32(len(b)), b, o)
}

func (c *CommandBuffer) BindIndexBuffer(buffer *Buffer, offset uint64, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(c.VKCommandBuffer, buffer.VKBuffer, vk.DeviceSize(offset), indexType)
}

// BindDescriptorSets binds sets starting at firstSet for pipelines using layout.
func (c *CommandBuffer) BindDescriptorSets(layout *PipelineLayout, firstSet int, sets []*DescriptorSet, dynamicOffsets []uint32) {
	ds := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		ds[i] = s.VKDescriptorSet
	}
	vk.CmdBindDescriptorSets(c.VKCommandBuffer, vk.PipelineBindPointGraphics, layout.VKPipelineLayout,
		uint32(firstSet), uint32(len(ds)), ds, uint32(len(dynamicOffsets)), dynamicOffsets)
}

// PushConstants uploads size bytes at ptr into the push constant range at offset.
func (c *CommandBuffer) PushConstants(layout *PipelineLayout, stages vk.ShaderStageFlags, offset, size uint32, ptr unsafe.Pointer) {
	vk.CmdPushConstants(c.VKCommandBuffer, layout.VKPipelineLayout, stages, offset, size, ptr)
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance int) {
	vk.CmdDraw(c.VKCommandBuffer, uint32(vertexCount), uint32(instanceCount), uint32(firstVertex), uint32(firstInstance))
}

func (c *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int) {
	vk.CmdDrawIndexed(c.VKCommandBuffer, uint32(indexCount), uint32(instanceCount), uint32(firstIndex), int32(vertexOffset), uint32(firstInstance))
}

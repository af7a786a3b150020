package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

// VertexLayout describes one vertex buffer binding and the attributes read from it.
type VertexLayout interface {
	GetBindingDescription() vk.VertexInputBindingDescription
	GetAttributeDescriptions() []vk.VertexInputAttributeDescription
}

// IDestructable is anything holding device objects released by Destroy.
type IDestructable interface {
	Destroy()
}

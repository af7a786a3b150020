package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

// PipelineConfig is the fixed function state of a graphics pipeline. It is a plain value:
// copy it, adjust the copy and hand it to BuildPipeline. Pipelines are immutable, changing the
// config afterwards requires building a new one.
type PipelineConfig struct {
	BindingDescriptions   []vk.VertexInputBindingDescription
	AttributeDescriptions []vk.VertexInputAttributeDescription

	// PrimitiveTopology see https://www.khronos.org/registry/vulkan/specs/1.1-extensions/man/html/VkPrimitiveTopology.html
	// defaults to VK_PRIMITIVE_TOPOLOGY_TRIANGLE_LIST
	PrimitiveTopology      vk.PrimitiveTopology
	PrimitiveRestartEnable bool

	// ViewportCount and ScissorCount are the number of dynamic viewports and scissors,
	// both default to 1
	ViewportCount uint32
	ScissorCount  uint32

	// PolygonMode see https://www.khronos.org/registry/vulkan/specs/1.1-extensions/man/html/VkPolygonMode.html
	// defaults to VK_POLYGON_MODE_FILL
	PolygonMode vk.PolygonMode
	LineWidth   float32

	// CullMode defaults to none
	CullMode  vk.CullModeFlags
	FrontFace vk.FrontFace

	// Samples must match the samples of the render pass the pipeline is used with.
	Samples vk.SampleCountFlagBits

	// BlendAttachment applies to the single color attachment, defaults to opaque output.
	BlendAttachment vk.PipelineColorBlendAttachmentState

	DepthTestEnable       bool
	DepthWriteEnable      bool
	DepthCompareOp        vk.CompareOp
	DepthBoundsTestEnable bool
	StencilTestEnable     bool

	// DynamicStates defaults to viewport and scissor so that resizing never requires
	// rebuilding the pipeline
	DynamicStates []vk.DynamicState

	RenderPass     vk.RenderPass
	PipelineLayout *PipelineLayout
	Subpass        uint32

	// Called as the last step in create info generation to allow for
	// additional configuration
	Configure func(info *vk.GraphicsPipelineCreateInfo)
}

const colorWriteAll = vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit

// DefaultPipelineConfig returns triangle lists, one dynamic viewport and scissor, filled
// polygons without culling, a single sample, a less than depth test with writes, no stencil and
// opaque color output.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		PrimitiveTopology: vk.PrimitiveTopologyTriangleList,
		ViewportCount:     1,
		ScissorCount:      1,
		PolygonMode:       vk.PolygonModeFill,
		LineWidth:         1.0,
		CullMode:          vk.CullModeFlags(vk.CullModeNone),
		FrontFace:         vk.FrontFaceClockwise,
		Samples:           vk.SampleCount1Bit,
		BlendAttachment: vk.PipelineColorBlendAttachmentState{
			ColorWriteMask:      vk.ColorComponentFlags(colorWriteAll),
			BlendEnable:         vk.False,
			SrcColorBlendFactor: vk.BlendFactorOne,
			DstColorBlendFactor: vk.BlendFactorZero,
			ColorBlendOp:        vk.BlendOpAdd,
			SrcAlphaBlendFactor: vk.BlendFactorOne,
			DstAlphaBlendFactor: vk.BlendFactorZero,
			AlphaBlendOp:        vk.BlendOpAdd,
		},
		DepthTestEnable:  true,
		DepthWriteEnable: true,
		DepthCompareOp:   vk.CompareOpLess,
		DynamicStates:    []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
	}
}

// EnableAlphaBlending switches c to straight alpha blending over the existing color.
func EnableAlphaBlending(c *PipelineConfig) {
	c.BlendAttachment = vk.PipelineColorBlendAttachmentState{
		ColorWriteMask:      vk.ColorComponentFlags(colorWriteAll),
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
	}
}

// EnableMultisampling rasterizes with samples per pixel, use the swapchain sample count.
func EnableMultisampling(c *PipelineConfig, samples vk.SampleCountFlagBits) {
	c.Samples = samples
}

// AddVertexLayout appends the binding and attributes of v. The slices are copied first so
// configs copied from c are left untouched.
func (c *PipelineConfig) AddVertexLayout(v VertexLayout) {
	bindings := make([]vk.VertexInputBindingDescription, 0, len(c.BindingDescriptions)+1)
	bindings = append(bindings, c.BindingDescriptions...)
	c.BindingDescriptions = append(bindings, v.GetBindingDescription())

	attrs := v.GetAttributeDescriptions()
	attributes := make([]vk.VertexInputAttributeDescription, 0, len(c.AttributeDescriptions)+len(attrs))
	attributes = append(attributes, c.AttributeDescriptions...)
	c.AttributeDescriptions = append(attributes, attrs...)
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// VKGraphicsPipelineCreateInfo assembles the create info for stages. Without vertex input,
// as for mesh pipelines, the vertex input and input assembly states are left out.
func (c PipelineConfig) VKGraphicsPipelineCreateInfo(stages []vk.PipelineShaderStageCreateInfo, vertexInput bool) vk.GraphicsPipelineCreateInfo {
	var vertexInputState *vk.PipelineVertexInputStateCreateInfo
	var inputAssemblyState *vk.PipelineInputAssemblyStateCreateInfo
	if vertexInput {
		vertexInputState = &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(c.BindingDescriptions)),
			PVertexBindingDescriptions:      c.BindingDescriptions,
			VertexAttributeDescriptionCount: uint32(len(c.AttributeDescriptions)),
			PVertexAttributeDescriptions:    c.AttributeDescriptions,
		}
		inputAssemblyState = &vk.PipelineInputAssemblyStateCreateInfo{
			SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               c.PrimitiveTopology,
			PrimitiveRestartEnable: vkBool(c.PrimitiveRestartEnable),
		}
	}

	var viewportState = vk.PipelineViewportStateCreateInfo{}
	viewportState.SType = vk.StructureTypePipelineViewportStateCreateInfo
	viewportState.ViewportCount = c.ViewportCount
	viewportState.ScissorCount = c.ScissorCount

	var rasterState = vk.PipelineRasterizationStateCreateInfo{}
	rasterState.SType = vk.StructureTypePipelineRasterizationStateCreateInfo
	rasterState.DepthClampEnable = vk.False
	rasterState.RasterizerDiscardEnable = vk.False
	rasterState.PolygonMode = c.PolygonMode
	rasterState.LineWidth = c.LineWidth
	rasterState.CullMode = c.CullMode
	rasterState.FrontFace = c.FrontFace
	rasterState.DepthBiasEnable = vk.False

	var multisampleState = vk.PipelineMultisampleStateCreateInfo{}
	multisampleState.SType = vk.StructureTypePipelineMultisampleStateCreateInfo
	multisampleState.SampleShadingEnable = vk.False
	multisampleState.RasterizationSamples = c.Samples
	multisampleState.MinSampleShading = 1.0

	blendAttachments := []vk.PipelineColorBlendAttachmentState{c.BlendAttachment}
	var colorBlendState = vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	var depthStencil = vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vkBool(c.DepthTestEnable),
		DepthWriteEnable:      vkBool(c.DepthWriteEnable),
		DepthCompareOp:        c.DepthCompareOp,
		DepthBoundsTestEnable: vkBool(c.DepthBoundsTestEnable),
		MinDepthBounds:        0.0,
		MaxDepthBounds:        1.0,
		StencilTestEnable:     vkBool(c.StencilTestEnable),
	}

	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		PDynamicStates:    c.DynamicStates,
		DynamicStateCount: uint32(len(c.DynamicStates)),
	}

	var pipelineLayout vk.PipelineLayout
	if c.PipelineLayout != nil {
		pipelineLayout = c.PipelineLayout.VKPipelineLayout
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   vertexInputState,
		PInputAssemblyState: inputAssemblyState,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterState,
		PMultisampleState:   &multisampleState,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendState,
		PDynamicState:       &dynamicState,
		Layout:              pipelineLayout,
		RenderPass:          c.RenderPass,
		Subpass:             c.Subpass,
		BasePipelineIndex:   -1,
	}

	if c.Configure != nil {
		c.Configure(&info)
	}

	return info
}

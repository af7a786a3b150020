package vkr

import (
	"testing"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func TestDefaultPipelineConfig(t *testing.T) {
	c := DefaultPipelineConfig()

	if c.PrimitiveTopology != vk.PrimitiveTopologyTriangleList {
		t.Errorf("topology %v", c.PrimitiveTopology)
	}
	if c.ViewportCount != 1 || c.ScissorCount != 1 {
		t.Errorf("viewports %d scissors %d", c.ViewportCount, c.ScissorCount)
	}
	if c.PolygonMode != vk.PolygonModeFill {
		t.Errorf("polygon mode %v", c.PolygonMode)
	}
	if c.CullMode != vk.CullModeFlags(vk.CullModeNone) {
		t.Errorf("cull mode %v", c.CullMode)
	}
	if c.Samples != vk.SampleCount1Bit {
		t.Errorf("samples %v", c.Samples)
	}
	if !c.DepthTestEnable || !c.DepthWriteEnable || c.DepthCompareOp != vk.CompareOpLess {
		t.Errorf("depth state %v %v %v", c.DepthTestEnable, c.DepthWriteEnable, c.DepthCompareOp)
	}
	if c.DepthBoundsTestEnable || c.StencilTestEnable {
		t.Error("depth bounds and stencil must be off")
	}
	if c.BlendAttachment.BlendEnable != vk.False {
		t.Error("blending must be off")
	}
	if len(c.DynamicStates) != 2 || c.DynamicStates[0] != vk.DynamicStateViewport || c.DynamicStates[1] != vk.DynamicStateScissor {
		t.Errorf("dynamic states %v", c.DynamicStates)
	}
}

func TestConfigMutations(t *testing.T) {
	base := DefaultPipelineConfig()

	blended := base
	EnableAlphaBlending(&blended)
	if blended.BlendAttachment.BlendEnable != vk.True {
		t.Error("alpha blending not enabled")
	}
	if blended.BlendAttachment.SrcColorBlendFactor != vk.BlendFactorSrcAlpha ||
		blended.BlendAttachment.DstColorBlendFactor != vk.BlendFactorOneMinusSrcAlpha {
		t.Error("unexpected blend factors")
	}
	if base.BlendAttachment.BlendEnable != vk.False {
		t.Error("mutating a copy changed the original")
	}

	msaa := base
	EnableMultisampling(&msaa, vk.SampleCount4Bit)
	if msaa.Samples != vk.SampleCount4Bit || base.Samples != vk.SampleCount1Bit {
		t.Errorf("samples %v, base %v", msaa.Samples, base.Samples)
	}
}

type testVertex struct{}

func (testVertex) GetBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{Binding: 0, Stride: 20, InputRate: vk.VertexInputRateVertex}
}

func (testVertex) GetAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 8},
	}
}

func TestAddVertexLayoutCopies(t *testing.T) {
	base := DefaultPipelineConfig()
	base.AddVertexLayout(testVertex{})

	other := base
	other.AddVertexLayout(testVertex{})

	if len(base.BindingDescriptions) != 1 || len(base.AttributeDescriptions) != 2 {
		t.Errorf("base changed: %d bindings %d attributes", len(base.BindingDescriptions), len(base.AttributeDescriptions))
	}
	if len(other.BindingDescriptions) != 2 || len(other.AttributeDescriptions) != 4 {
		t.Errorf("copy: %d bindings %d attributes", len(other.BindingDescriptions), len(other.AttributeDescriptions))
	}
}

func TestCreateInfoStandard(t *testing.T) {
	c := DefaultPipelineConfig()
	c.AddVertexLayout(testVertex{})
	EnableMultisampling(&c, vk.SampleCount4Bit)

	stages := make([]vk.PipelineShaderStageCreateInfo, 2)
	info := c.VKGraphicsPipelineCreateInfo(stages, true)

	if info.StageCount != 2 {
		t.Errorf("stage count %d", info.StageCount)
	}
	if info.PVertexInputState == nil || info.PVertexInputState.VertexAttributeDescriptionCount != 2 {
		t.Fatal("vertex input state missing")
	}
	if info.PInputAssemblyState == nil || info.PInputAssemblyState.Topology != vk.PrimitiveTopologyTriangleList {
		t.Fatal("input assembly state missing")
	}
	if info.PMultisampleState.RasterizationSamples != vk.SampleCount4Bit {
		t.Errorf("samples %v", info.PMultisampleState.RasterizationSamples)
	}
	if info.PDynamicState.DynamicStateCount != 2 {
		t.Errorf("dynamic states %d", info.PDynamicState.DynamicStateCount)
	}
	if info.PViewportState.PViewports != nil || info.PViewportState.PScissors != nil {
		t.Error("viewport and scissor must be dynamic")
	}
}

func TestCreateInfoMesh(t *testing.T) {
	c := DefaultPipelineConfig()
	c.AddVertexLayout(testVertex{})

	info := c.VKGraphicsPipelineCreateInfo(make([]vk.PipelineShaderStageCreateInfo, 3), false)
	if info.PVertexInputState != nil || info.PInputAssemblyState != nil {
		t.Error("mesh pipelines take no vertex input")
	}
}

func TestConfigureHook(t *testing.T) {
	c := DefaultPipelineConfig()
	c.Configure = func(info *vk.GraphicsPipelineCreateInfo) {
		info.Subpass = 3
	}
	if info := c.VKGraphicsPipelineCreateInfo(nil, true); info.Subpass != 3 {
		t.Errorf("subpass %d", info.Subpass)
	}
}

func TestPipelineKindStages(t *testing.T) {
	vert, frag, task, mesh := []byte{1}, []byte{2}, []byte{3}, []byte{4}

	std := StandardStages{Vertex: vert, Fragment: frag}.shaderStages()
	if len(std) != 2 || std[0].stage != vk.ShaderStageVertexBit || std[1].stage != vk.ShaderStageFragmentBit {
		t.Errorf("standard stages %v", std)
	}

	noTask := MeshStages{Mesh: mesh, Fragment: frag}.shaderStages()
	if len(noTask) != 2 || noTask[0].stage != shaderStageMeshBit || noTask[1].stage != vk.ShaderStageFragmentBit {
		t.Errorf("mesh stages %v", noTask)
	}

	withTask := MeshStages{Task: task, Mesh: mesh, Fragment: frag}.shaderStages()
	if len(withTask) != 3 || withTask[0].stage != shaderStageTaskBit || withTask[0].code[0] != 3 {
		t.Errorf("task mesh stages %v", withTask)
	}

	if !(StandardStages{}).vertexInput() || (MeshStages{}).vertexInput() {
		t.Error("only standard pipelines take vertex input")
	}
}

func TestCheckPipelineConfig(t *testing.T) {
	c := DefaultPipelineConfig()

	err := checkPipelineConfig(MeshStages{}, c, false)
	if !errors.Is(err, ErrMeshShadersUnsupported) {
		t.Errorf("expected ErrMeshShadersUnsupported, got %v", err)
	}

	if err := checkPipelineConfig(StandardStages{}, c, false); err == nil {
		t.Error("expected an error without a pipeline layout")
	}
}

package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const (
	shaderStageTaskBit = vk.ShaderStageTaskBitNv
	shaderStageMeshBit = vk.ShaderStageMeshBitNv
)

const shaderEntryPoint = "main"

type shaderStage struct {
	stage vk.ShaderStageFlagBits
	code  []byte
}

// PipelineKind selects the programmable stages of a graphics pipeline, it is either
// StandardStages or MeshStages.
type PipelineKind interface {
	shaderStages() []shaderStage
	vertexInput() bool
}

// StandardStages is a vertex and fragment shader pipeline fed by vertex buffers.
type StandardStages struct {
	Vertex   []byte
	Fragment []byte
}

func (s StandardStages) shaderStages() []shaderStage {
	return []shaderStage{
		{vk.ShaderStageVertexBit, s.Vertex},
		{vk.ShaderStageFragmentBit, s.Fragment},
	}
}

func (StandardStages) vertexInput() bool { return true }

// MeshStages replaces vertex input with an optional task shader and a mesh shader generating
// the geometry. It needs a device created with mesh shaders enabled.
type MeshStages struct {
	Task     []byte
	Mesh     []byte
	Fragment []byte
}

func (m MeshStages) shaderStages() []shaderStage {
	stages := make([]shaderStage, 0, 3)
	if len(m.Task) > 0 {
		stages = append(stages, shaderStage{shaderStageTaskBit, m.Task})
	}
	return append(stages,
		shaderStage{shaderStageMeshBit, m.Mesh},
		shaderStage{vk.ShaderStageFragmentBit, m.Fragment},
	)
}

func (MeshStages) vertexInput() bool { return false }

type PipelineCache struct {
	Device          *Device
	VKPipelineCache vk.PipelineCache
}

func (d *Device) CreatePipelineCache() (*PipelineCache, error) {
	var pipelineCacheCreate = vk.PipelineCacheCreateInfo{}
	pipelineCacheCreate.SType = vk.StructureTypePipelineCacheCreateInfo

	var pipelineCache vk.PipelineCache

	err := vk.Error(vk.CreatePipelineCache(d.VKDevice, &pipelineCacheCreate, nil, &pipelineCache))
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline cache")
	}

	return &PipelineCache{Device: d, VKPipelineCache: pipelineCache}, nil
}

func (p *PipelineCache) Destroy() {
	vk.DestroyPipelineCache(p.Device.VKDevice, p.VKPipelineCache, nil)
}

// Pipeline is an immutable graphics pipeline. The shader modules it was built from are
// already destroyed.
type Pipeline struct {
	Device     *Device
	VKPipeline vk.Pipeline
	Layout     *PipelineLayout
}

// Bind binds the pipeline for subsequent draw calls on cb.
func (p *Pipeline) Bind(cb *CommandBuffer) {
	cb.BindGraphicsPipeline(p.VKPipeline)
}

func (p *Pipeline) Destroy() {
	vk.DestroyPipeline(p.Device.VKDevice, p.VKPipeline, nil)
}

// BuildPipeline compiles kind with the fixed function state of config.
func BuildPipeline(device *Device, kind PipelineKind, config PipelineConfig) (*Pipeline, error) {
	return BuildPipelineWithCache(device, nil, kind, config)
}

// BuildPipelineWithCache is BuildPipeline drawing on and filling cache, which may be nil.
func BuildPipelineWithCache(device *Device, cache *PipelineCache, kind PipelineKind, config PipelineConfig) (*Pipeline, error) {
	if err := checkPipelineConfig(kind, config, device.MeshShadersEnabled()); err != nil {
		return nil, err
	}

	var modules []IDestructable
	defer func() {
		for _, m := range modules {
			m.Destroy()
		}
	}()

	var stages []vk.PipelineShaderStageCreateInfo
	for _, s := range kind.shaderStages() {
		module, err := device.CreateShaderModule(s.code)
		if err != nil {
			return nil, errors.Wrapf(err, "shader stage %#x", uint32(s.stage))
		}
		modules = append(modules, module)
		stages = append(stages, module.VKPipelineShaderStageCreateInfo(s.stage, shaderEntryPoint))
	}

	info := config.VKGraphicsPipelineCreateInfo(stages, kind.vertexInput())

	var vkCache vk.PipelineCache
	if cache != nil {
		vkCache = cache.VKPipelineCache
	}

	pipelines := make([]vk.Pipeline, 1)
	err := vk.Error(vk.CreateGraphicsPipelines(device.VKDevice, vkCache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines))
	if err != nil {
		return nil, errors.Wrap(err, "create graphics pipeline")
	}

	return &Pipeline{Device: device, VKPipeline: pipelines[0], Layout: config.PipelineLayout}, nil
}

func checkPipelineConfig(kind PipelineKind, config PipelineConfig, meshEnabled bool) error {
	if _, ok := kind.(MeshStages); ok && !meshEnabled {
		return ErrMeshShadersUnsupported
	}
	if config.PipelineLayout == nil {
		return errors.New("build pipeline: config has no pipeline layout")
	}
	if config.RenderPass == vk.NullRenderPass {
		return errors.New("build pipeline: config has no render pass")
	}
	return nil
}

// BuildStandardPipeline builds a vertex and fragment shader pipeline from SPIR-V bytecode.
func BuildStandardPipeline(device *Device, vertex, fragment []byte, config PipelineConfig) (*Pipeline, error) {
	return BuildPipeline(device, StandardStages{Vertex: vertex, Fragment: fragment}, config)
}

// BuildMeshPipeline builds a task, mesh and fragment shader pipeline, task may be nil. It fails
// with ErrMeshShadersUnsupported unless the device was created with mesh shaders enabled.
func BuildMeshPipeline(device *Device, task, mesh, fragment []byte, config PipelineConfig) (*Pipeline, error) {
	return BuildPipeline(device, MeshStages{Task: task, Mesh: mesh, Fragment: fragment}, config)
}

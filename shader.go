package vkr

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type ShaderModule struct {
	Device         *Device
	VKShaderModule vk.ShaderModule
}

// CreateShaderModule wraps SPIR-V bytecode. The code must be a non-empty multiple of four
// bytes long.
func (d *Device) CreateShaderModule(code []byte) (*ShaderModule, error) {
	if err := validateSPIRV(code); err != nil {
		return nil, err
	}

	var module vk.ShaderModule
	err := vk.Error(vk.CreateShaderModule(d.VKDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &module))
	if err != nil {
		return nil, errors.Wrap(err, "create shader module")
	}

	return &ShaderModule{Device: d, VKShaderModule: module}, nil
}

func (d *Device) LoadShaderModuleFromFile(file string) (*ShaderModule, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", file)
	}
	return d.CreateShaderModule(data)
}

func validateSPIRV(code []byte) error {
	if len(code) == 0 || len(code)%4 != 0 {
		return errors.Wrapf(ErrInvalidShaderCode, "%d bytes", len(code))
	}
	return nil
}

func (s *ShaderModule) VKPipelineShaderStageCreateInfo(stage vk.ShaderStageFlagBits, entryPoint string) vk.PipelineShaderStageCreateInfo {
	var shaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{}
	shaderStageCreateInfo.SType = vk.StructureTypePipelineShaderStageCreateInfo
	shaderStageCreateInfo.Stage = stage
	shaderStageCreateInfo.Module = s.VKShaderModule
	shaderStageCreateInfo.PName = safeString(entryPoint)
	return shaderStageCreateInfo
}

func (s *ShaderModule) Destroy() {
	vk.DestroyShaderModule(s.Device.VKDevice, s.VKShaderModule, nil)
}

// sliceUint32 copies code into a word slice, a byte slice is not guaranteed to be 4-byte aligned.
func sliceUint32(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*4), code)
	return words
}

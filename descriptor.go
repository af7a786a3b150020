package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorSetLayout describes the bindings of a descriptor set, much like a struct definition
// describes its fields.
type DescriptorSetLayout struct {
	Device                *Device
	VKDescriptorSetLayout vk.DescriptorSetLayout
	Bindings              []vk.DescriptorSetLayoutBinding
}

// UniformBufferBinding is a single uniform buffer visible to stages.
func UniformBufferBinding(binding uint32, stages vk.ShaderStageFlagBits) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(stages),
	}
}

func (d *Device) CreateDescriptorSetLayout(bindings ...vk.DescriptorSetLayoutBinding) (*DescriptorSetLayout, error) {
	var descriptorSetLayoutCreateInfo = &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var descriptorSetLayout vk.DescriptorSetLayout
	err := vk.Error(vk.CreateDescriptorSetLayout(d.VKDevice, descriptorSetLayoutCreateInfo, nil, &descriptorSetLayout))
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor set layout")
	}

	return &DescriptorSetLayout{Device: d, VKDescriptorSetLayout: descriptorSetLayout, Bindings: bindings}, nil
}

func (d *DescriptorSetLayout) Destroy() {
	vk.DestroyDescriptorSetLayout(d.Device.VKDevice, d.VKDescriptorSetLayout, nil)
}

// DescriptorPool hands out descriptor sets, typically one per frame in flight.
type DescriptorPool struct {
	Device           *Device
	VKDescriptorPool vk.DescriptorPool
}

// poolSizes totals the descriptors needed for sets copies of every binding in layout.
func poolSizes(layout []vk.DescriptorSetLayoutBinding, sets int) []vk.DescriptorPoolSize {
	var sizes []vk.DescriptorPoolSize
	for _, b := range layout {
		found := false
		for i := range sizes {
			if sizes[i].Type == b.DescriptorType {
				sizes[i].DescriptorCount += b.DescriptorCount * uint32(sets)
				found = true
				break
			}
		}
		if !found {
			sizes = append(sizes, vk.DescriptorPoolSize{
				Type:            b.DescriptorType,
				DescriptorCount: b.DescriptorCount * uint32(sets),
			})
		}
	}
	return sizes
}

// CreateDescriptorPool creates a pool large enough for maxSets sets of layout. Sets may be
// freed individually.
func (d *Device) CreateDescriptorPool(layout *DescriptorSetLayout, maxSets int) (*DescriptorPool, error) {
	sizes := poolSizes(layout.Bindings, maxSets)

	var descriptorPoolCreateInfo = vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(maxSets),
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}

	var descriptorPool vk.DescriptorPool
	err := vk.Error(vk.CreateDescriptorPool(d.VKDevice, &descriptorPoolCreateInfo, nil, &descriptorPool))
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor pool")
	}

	return &DescriptorPool{Device: d, VKDescriptorPool: descriptorPool}, nil
}

// Allocate allocates count descriptor sets of layout.
func (p *DescriptorPool) Allocate(layout *DescriptorSetLayout, count int) ([]*DescriptorSet, error) {
	if count <= 0 {
		return nil, nil
	}
	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout.VKDescriptorSetLayout
	}

	descriptorSetAllocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.VKDescriptorPool,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}

	sets := make([]vk.DescriptorSet, count)
	err := vk.Error(vk.AllocateDescriptorSets(p.Device.VKDevice, &descriptorSetAllocateInfo, &sets[0]))
	if err != nil {
		return nil, errors.Wrap(err, "allocate descriptor sets")
	}

	ret := make([]*DescriptorSet, count)
	for i, s := range sets {
		ret[i] = &DescriptorSet{Device: p.Device, Pool: p, VKDescriptorSet: s}
	}
	return ret, nil
}

func (p *DescriptorPool) Reset() error {
	return vk.Error(vk.ResetDescriptorPool(p.Device.VKDevice, p.VKDescriptorPool, 0))
}

func (p *DescriptorPool) Free(ds *DescriptorSet) error {
	descriptorSet := ds.VKDescriptorSet
	return vk.Error(vk.FreeDescriptorSets(p.Device.VKDevice, p.VKDescriptorPool, 1, &descriptorSet))
}

func (p *DescriptorPool) Destroy() {
	vk.DestroyDescriptorPool(p.Device.VKDevice, p.VKDescriptorPool, nil)
}

// DescriptorSet collects writes and applies them with Update.
type DescriptorSet struct {
	Device          *Device
	Pool            *DescriptorPool
	VKDescriptorSet vk.DescriptorSet

	writes []vk.WriteDescriptorSet
}

// WriteBuffer queues binding to point at info, usually obtained from Buffer.DescriptorInfo or
// Buffer.DescriptorInfoForIndex.
func (s *DescriptorSet) WriteBuffer(binding uint32, dtype vk.DescriptorType, info vk.DescriptorBufferInfo) {
	s.writes = append(s.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  dtype,
		PBufferInfo:     []vk.DescriptorBufferInfo{info},
	})
}

// Update applies and clears the queued writes.
func (s *DescriptorSet) Update() {
	if len(s.writes) == 0 {
		return
	}
	for i := range s.writes {
		s.writes[i].DstSet = s.VKDescriptorSet
	}
	vk.UpdateDescriptorSets(s.Device.VKDevice, uint32(len(s.writes)), s.writes, 0, nil)
	s.writes = nil
}

package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type Fence struct {
	Device  *Device
	VKFence vk.Fence
}

// CreateFence creates a fence, already signaled when signaled is set so the first wait on it
// returns immediately.
func (d *Device) CreateFence(signaled bool) (*Fence, error) {
	var fenceCreateInfo = vk.FenceCreateInfo{}
	fenceCreateInfo.SType = vk.StructureTypeFenceCreateInfo
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	err := vk.Error(vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence))
	if err != nil {
		return nil, errors.Wrap(err, "create fence")
	}
	return &Fence{Device: d, VKFence: fence}, nil
}

// Wait blocks until the fence is signaled. There is no timeout.
func (f *Fence) Wait() error {
	err := vk.Error(vk.WaitForFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence}, vk.True, vk.MaxUint64))
	return errors.Wrap(err, "wait for fence")
}

func (f *Fence) Reset() error {
	return errors.Wrap(vk.Error(vk.ResetFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence})), "reset fence")
}

// Signaled reports whether the fence is currently signaled without blocking.
func (f *Fence) Signaled() bool {
	return vk.GetFenceStatus(f.Device.VKDevice, f.VKFence) == vk.Success
}

func (f *Fence) Destroy() {
	vk.DestroyFence(f.Device.VKDevice, f.VKFence, nil)
}

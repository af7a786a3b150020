package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DefaultMaxFramesInFlight is how many frames the CPU may record ahead of the GPU when the
// options leave it at zero.
const DefaultMaxFramesInFlight = 2

// noSlot marks a swapchain image no frame slot has rendered to yet.
const noSlot = -1

type fenceWaiter interface {
	waitFence(slot int) error
	resetFence(slot int) error
}

// presentChain is the presentation engine side of a frame, each call uses the semaphores and
// fence of one frame slot.
type presentChain interface {
	acquireImage(slot int) (uint32, vk.Result)
	submitFrame(cb *CommandBuffer, slot int) error
	presentImage(image uint32, slot int) vk.Result
}

// fenceRing holds one in-flight fence per frame slot.
type fenceRing []*Fence

func (r fenceRing) waitFence(slot int) error  { return r[slot].Wait() }
func (r fenceRing) resetFence(slot int) error { return r[slot].Reset() }

// frameSync tracks the ring of frame slots and which slot last rendered into each swapchain
// image. Frame slots advance in strict round-robin order. An image is never handed to a new
// submission while the slot that last targeted it is still executing.
type frameSync struct {
	fences         fenceWaiter
	maxFrames      int
	current        int
	imagesInFlight []int
}

func newFrameSync(fences fenceWaiter, maxFrames, imageCount int) *frameSync {
	f := &frameSync{fences: fences, maxFrames: maxFrames}
	f.resetImages(imageCount)
	return f
}

// resetImages forgets image ownership, used once a swapchain is rebuilt and the device is idle.
func (f *frameSync) resetImages(imageCount int) {
	f.imagesInFlight = make([]int, imageCount)
	for i := range f.imagesInFlight {
		f.imagesInFlight[i] = noSlot
	}
}

// waitCurrent blocks until the GPU finished the last submission of the current slot.
func (f *frameSync) waitCurrent() error {
	return f.fences.waitFence(f.current)
}

// waitImage blocks until the slot that last rendered into image is done with it, then hands
// the image to the current slot.
func (f *frameSync) waitImage(image uint32) error {
	if owner := f.imagesInFlight[image]; owner != noSlot {
		if err := f.fences.waitFence(owner); err != nil {
			return err
		}
	}
	f.imagesInFlight[image] = f.current
	return nil
}

// resetCurrent unsignals the current slot fence right before it is passed to a submission.
func (f *frameSync) resetCurrent() error {
	return f.fences.resetFence(f.current)
}

func (f *frameSync) advance() {
	f.current = (f.current + 1) % f.maxFrames
}

// acquire waits for the current slot to be free, acquires an image and waits until no earlier
// slot still renders to it.
func (f *frameSync) acquire(chain presentChain) (uint32, error) {
	if err := f.waitCurrent(); err != nil {
		return 0, err
	}

	image, res := chain.acquireImage(f.current)
	switch res {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		return 0, ErrSwapchainOutOfDate
	default:
		return 0, errors.Wrap(vk.Error(res), "acquire next image")
	}

	// the image command buffer is recorded next, its previous frame must be done with it
	if err := f.waitImage(image); err != nil {
		return 0, err
	}
	return image, nil
}

// submit queues cb for image on the current slot and presents it. The slot advances once the
// present was attempted, whatever its result.
func (f *frameSync) submit(chain presentChain, cb *CommandBuffer, image uint32) error {
	slot := f.current

	if err := f.waitImage(image); err != nil {
		return err
	}
	if err := f.resetCurrent(); err != nil {
		return err
	}
	if err := chain.submitFrame(cb, slot); err != nil {
		return errors.Wrap(err, "submit draw command buffer")
	}

	res := chain.presentImage(image, slot)
	f.advance()

	switch res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return ErrSwapchainOutOfDate
	}
	return errors.Wrap(vk.Error(res), "present")
}

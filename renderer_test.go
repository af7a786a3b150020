package vkr

import (
	"testing"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type fakeWindow struct {
	sizes      []vk.Extent2D
	waits      int
	resized    bool
	resetCalls int
}

func (w *fakeWindow) FramebufferSize() vk.Extent2D { return w.sizes[0] }

// WaitEvents moves on to the next scripted framebuffer size.
func (w *fakeWindow) WaitEvents() {
	w.waits++
	if len(w.sizes) > 1 {
		w.sizes = w.sizes[1:]
	}
}

func (w *fakeWindow) WasResized() bool { return w.resized }

func (w *fakeWindow) ResetResized() {
	w.resized = false
	w.resetCalls++
}

func (w *fakeWindow) RequiredInstanceExtensions() []string { return nil }

func (w *fakeWindow) CreateSurface(vk.Instance) (vk.Surface, error) { return vk.NullSurface, nil }

type fakeTarget struct {
	imageCount         int
	countAfterRecreate int
	extent             vk.Extent2D
	next               uint32

	acquireErrs []error
	submitErrs  []error

	submitted []uint32
	recreated []vk.Extent2D
	destroyed bool
}

func (f *fakeTarget) AcquireNextImage() (uint32, error) {
	if len(f.acquireErrs) > 0 {
		err := f.acquireErrs[0]
		f.acquireErrs = f.acquireErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	idx := f.next
	f.next = (f.next + 1) % uint32(f.imageCount)
	return idx, nil
}

func (f *fakeTarget) SubmitCommandBuffers(cb *CommandBuffer, imageIndex uint32) error {
	f.submitted = append(f.submitted, imageIndex)
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		return err
	}
	return nil
}

func (f *fakeTarget) Recreate(extent vk.Extent2D) error {
	f.recreated = append(f.recreated, extent)
	f.extent = extent
	if f.countAfterRecreate > 0 {
		f.imageCount = f.countAfterRecreate
	}
	f.next = 0
	return nil
}

func (f *fakeTarget) ImageCount() int                { return f.imageCount }
func (f *fakeTarget) Extent() vk.Extent2D            { return f.extent }
func (f *fakeTarget) RenderPass() vk.RenderPass      { return vk.NullRenderPass }
func (f *fakeTarget) Framebuffer(int) vk.Framebuffer { return nil }
func (f *fakeTarget) Destroy()                       { f.destroyed = true }

type fakeRecorder struct {
	allocated  [][]*CommandBuffer
	freed      int
	begun      []*CommandBuffer
	ended      []*CommandBuffer
	renderPass int
	endPass    int
	lastExtent vk.Extent2D
	beginErr   error
}

func (r *fakeRecorder) Allocate(count int) ([]*CommandBuffer, error) {
	cbs := make([]*CommandBuffer, count)
	for i := range cbs {
		cbs[i] = &CommandBuffer{}
	}
	r.allocated = append(r.allocated, cbs)
	return cbs, nil
}

func (r *fakeRecorder) Free(cbs []*CommandBuffer) { r.freed += len(cbs) }

func (r *fakeRecorder) Begin(cb *CommandBuffer) error {
	if r.beginErr != nil {
		return r.beginErr
	}
	r.begun = append(r.begun, cb)
	return nil
}

func (r *fakeRecorder) End(cb *CommandBuffer) error {
	r.ended = append(r.ended, cb)
	return nil
}

func (r *fakeRecorder) BeginRenderPass(cb *CommandBuffer, _ vk.RenderPass, _ vk.Framebuffer, extent vk.Extent2D, clear []vk.ClearValue) {
	r.renderPass++
	r.lastExtent = extent
}

func (r *fakeRecorder) EndRenderPass(*CommandBuffer) { r.endPass++ }

type rendererFixture struct {
	window    *fakeWindow
	target    *fakeTarget
	recorder  *fakeRecorder
	idleCalls int
	r         *Renderer
}

func newFixture(t *testing.T, size uint32) *rendererFixture {
	t.Helper()
	extent := vk.Extent2D{Width: size, Height: size}
	f := &rendererFixture{
		window:   &fakeWindow{sizes: []vk.Extent2D{extent}},
		target:   &fakeTarget{imageCount: 3, extent: extent},
		recorder: &fakeRecorder{},
	}
	r, err := newRenderer(f.window, f.target, f.recorder, func() error {
		f.idleCalls++
		return nil
	}, RendererOptions{})
	if err != nil {
		t.Fatal(err)
	}
	f.r = r
	return f
}

func (f *rendererFixture) frame(t *testing.T) {
	t.Helper()
	cb, err := f.r.BeginFrame()
	if err != nil {
		t.Fatal(err)
	}
	if cb == nil {
		return
	}
	if err := f.r.BeginSwapchainRenderPass(cb); err != nil {
		t.Fatal(err)
	}
	if err := f.r.EndSwapchainRenderPass(cb); err != nil {
		t.Fatal(err)
	}
	if err := f.r.EndFrame(); err != nil {
		t.Fatal(err)
	}
}

func TestRendererAllocatesPerImage(t *testing.T) {
	f := newFixture(t, 256)
	if len(f.recorder.allocated) != 1 || len(f.recorder.allocated[0]) != 3 {
		t.Fatalf("allocations %v", f.recorder.allocated)
	}
	if f.r.MaxFramesInFlight() != DefaultMaxFramesInFlight {
		t.Errorf("max frames %d", f.r.MaxFramesInFlight())
	}
}

func TestFrameProtocol(t *testing.T) {
	f := newFixture(t, 256)
	r := f.r

	if err := r.EndFrame(); !errors.Is(err, ErrNoFrameInProgress) {
		t.Errorf("EndFrame outside a frame: %v", err)
	}
	if r.CurrentCommandBuffer() != nil {
		t.Error("command buffer outside a frame")
	}

	cb, err := r.BeginFrame()
	if err != nil || cb == nil {
		t.Fatalf("BeginFrame: %v %v", cb, err)
	}
	if !r.IsFrameInProgress() || r.CurrentCommandBuffer() != cb {
		t.Error("frame not in progress")
	}
	if _, err := r.BeginFrame(); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("nested BeginFrame: %v", err)
	}

	other := &CommandBuffer{}
	if err := r.BeginSwapchainRenderPass(other); !errors.Is(err, ErrCommandBufferMismatch) {
		t.Errorf("foreign command buffer: %v", err)
	}
	if err := r.EndSwapchainRenderPass(other); !errors.Is(err, ErrCommandBufferMismatch) {
		t.Errorf("foreign command buffer: %v", err)
	}

	if err := r.BeginSwapchainRenderPass(cb); err != nil {
		t.Fatal(err)
	}
	if f.recorder.lastExtent.Width != 256 {
		t.Errorf("render pass extent %v", f.recorder.lastExtent)
	}
	if err := r.EndSwapchainRenderPass(cb); err != nil {
		t.Fatal(err)
	}
	if err := r.EndFrame(); err != nil {
		t.Fatal(err)
	}

	if r.IsFrameInProgress() {
		t.Error("frame still in progress")
	}
	if err := r.BeginSwapchainRenderPass(cb); !errors.Is(err, ErrNoFrameInProgress) {
		t.Errorf("render pass outside a frame: %v", err)
	}
	if len(f.target.submitted) != 1 || len(f.recorder.ended) != 1 {
		t.Errorf("submitted %v ended %d", f.target.submitted, len(f.recorder.ended))
	}
}

func TestFrameIndexCycles(t *testing.T) {
	f := newFixture(t, 256)

	var indices []int
	for i := 0; i < 5; i++ {
		indices = append(indices, f.r.FrameIndex())
		f.frame(t)
	}

	want := []int{0, 1, 0, 1, 0}
	for i := range want {
		if indices[i] != want[i] {
			t.Fatalf("frame indices %v, want %v", indices, want)
		}
	}
	if got := f.target.submitted; got[0] != 0 || got[1] != 1 || got[2] != 2 || got[3] != 0 {
		t.Errorf("image indices %v", got)
	}
}

func TestCommandBufferFollowsImage(t *testing.T) {
	f := newFixture(t, 256)
	cbs := f.recorder.allocated[0]

	for i := 0; i < 4; i++ {
		cb, err := f.r.BeginFrame()
		if err != nil {
			t.Fatal(err)
		}
		if cb != cbs[f.r.ImageIndex()] {
			t.Fatalf("frame %d recorded into the wrong command buffer", i)
		}
		if err := f.r.EndFrame(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestOutOfDateAcquireRecreates(t *testing.T) {
	f := newFixture(t, 256)
	f.target.acquireErrs = []error{errors.Wrap(ErrSwapchainOutOfDate, "acquire next image")}

	cb, err := f.r.BeginFrame()
	if err != nil || cb != nil {
		t.Fatalf("BeginFrame: %v %v", cb, err)
	}
	if f.r.IsFrameInProgress() {
		t.Error("skipped frame left in progress")
	}
	if len(f.target.recreated) != 1 || f.idleCalls != 1 {
		t.Errorf("recreated %d times, %d idle waits", len(f.target.recreated), f.idleCalls)
	}

	cb, err = f.r.BeginFrame()
	if err != nil || cb == nil {
		t.Fatalf("BeginFrame after recreation: %v %v", cb, err)
	}
}

func TestAcquireErrorPropagates(t *testing.T) {
	f := newFixture(t, 256)
	lost := errors.New("device lost")
	f.target.acquireErrs = []error{lost}

	if _, err := f.r.BeginFrame(); !errors.Is(err, lost) {
		t.Errorf("got %v", err)
	}
	if f.r.IsFrameInProgress() || len(f.target.recreated) != 0 {
		t.Error("failed acquire changed renderer state")
	}
}

func TestFailedBeginLeavesNoFrame(t *testing.T) {
	f := newFixture(t, 256)
	f.recorder.beginErr = errors.New("begin command buffer")

	if _, err := f.r.BeginFrame(); err == nil {
		t.Fatal("expected an error")
	}
	if f.r.IsFrameInProgress() {
		t.Error("frame in progress after a failed begin")
	}
}

func TestSuboptimalSubmitRecreates(t *testing.T) {
	f := newFixture(t, 256)
	f.target.submitErrs = []error{errors.Wrap(ErrSwapchainOutOfDate, "present")}

	f.frame(t)

	if len(f.target.recreated) != 1 {
		t.Fatalf("recreated %d times", len(f.target.recreated))
	}
	if f.r.FrameIndex() != 1 {
		t.Errorf("frame index %d after a presented frame", f.r.FrameIndex())
	}
}

func TestResizeRecreates(t *testing.T) {
	f := newFixture(t, 256)
	f.window.resized = true

	f.frame(t)

	if len(f.target.recreated) != 1 || f.window.resetCalls != 1 || f.window.resized {
		t.Errorf("recreated %d, resets %d", len(f.target.recreated), f.window.resetCalls)
	}

	f.frame(t)
	if len(f.target.recreated) != 1 {
		t.Error("recreated without a resize")
	}
}

func TestMinimizeThenRestore(t *testing.T) {
	f := newFixture(t, 256)
	f.window.sizes = []vk.Extent2D{{Width: 0, Height: 0}, {Width: 0, Height: 0}, {Width: 512, Height: 512}}
	f.window.resized = true

	f.frame(t)

	if f.window.waits != 2 {
		t.Errorf("waited for events %d times, want 2", f.window.waits)
	}
	if len(f.target.recreated) != 1 {
		t.Fatalf("recreated %d times", len(f.target.recreated))
	}
	if e := f.target.recreated[0]; e.Width != 512 || e.Height != 512 {
		t.Errorf("recreated at %v, want 512x512", e)
	}
	if f.r.AspectRatio() != 1 {
		t.Errorf("aspect ratio %f", f.r.AspectRatio())
	}

	f.frame(t)
	if f.recorder.lastExtent.Width != 512 {
		t.Errorf("render pass extent %v", f.recorder.lastExtent)
	}
}

func TestImageCountChangeReallocates(t *testing.T) {
	f := newFixture(t, 256)
	f.target.countAfterRecreate = 4
	f.window.resized = true

	f.frame(t)

	if len(f.recorder.allocated) != 2 || len(f.recorder.allocated[1]) != 4 {
		t.Fatalf("allocations %v", f.recorder.allocated)
	}
	if f.recorder.freed != 3 {
		t.Errorf("freed %d command buffers", f.recorder.freed)
	}

	f.window.resized = true
	f.frame(t)
	if len(f.recorder.allocated) != 2 {
		t.Error("reallocated with an unchanged image count")
	}
}

func TestRendererDestroy(t *testing.T) {
	f := newFixture(t, 256)
	f.r.Destroy()

	if !f.target.destroyed || f.idleCalls != 1 || f.recorder.freed != 3 {
		t.Errorf("destroyed %v, idle %d, freed %d", f.target.destroyed, f.idleCalls, f.recorder.freed)
	}
	f.r.Destroy()
	if f.idleCalls != 1 {
		t.Error("second Destroy waited again")
	}
}

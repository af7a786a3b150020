package vkr

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// DeviceOptions configures NewDevice.
type DeviceOptions struct {
	AppName string
	Version Version

	// EnableValidation turns on the Khronos validation layer when the loader has it, and
	// routes its messages to Logger.
	EnableValidation bool

	// EnableMeshShaders requests VK_NV_mesh_shader with its task and mesh shader features.
	// Devices without them still work, but BuildMeshPipeline will fail with
	// ErrMeshShadersUnsupported.
	EnableMeshShaders bool

	Logger *slog.Logger
}

// Device bundles the instance, the selected physical device, the logical device, its queues
// and the presentation surface. It must outlive every object created from it and is destroyed
// exactly once.
type Device struct {
	Instance       *Instance
	PhysicalDevice *PhysicalDevice
	VKDevice       vk.Device
	Surface        vk.Surface

	GraphicsQueue *Queue
	PresentQueue  *Queue
	CommandPool   *CommandPool

	meshExtension string
	meshShaders   bool
	logger        *slog.Logger
	destroyed     bool
}

// procAddrSource is implemented by windows whose toolkit already loaded the Vulkan loader.
type procAddrSource interface {
	VulkanProcAddr() unsafe.Pointer
}

func initLoader(window Window) error {
	if src, ok := window.(procAddrSource); ok {
		vk.SetGetInstanceProcAddr(src.VulkanProcAddr())
	} else if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return errors.Wrap(err, "load vulkan")
	}
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "init vulkan")
	}
	return nil
}

// NewDevice negotiates an instance, surface, physical and logical device for window.
func NewDevice(window Window, opts DeviceOptions) (*Device, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := initLoader(window); err != nil {
		return nil, err
	}

	app := &App{Name: opts.AppName, EngineName: "vkr", Version: opts.Version}
	for _, ext := range window.RequiredInstanceExtensions() {
		app.EnableExtension(ext)
	}
	if opts.EnableValidation {
		app.EnableDebugging()
	}
	if opts.EnableMeshShaders {
		// VK_NV_mesh_shader depends on it for instances below Vulkan 1.1
		if exts, err := SupportedExtensions(); err == nil && containsString(exts, khrPhysicalDeviceProperties2Name) {
			app.EnableExtension(khrPhysicalDeviceProperties2Name)
		}
	}

	d := &Device{logger: logger}
	created := false
	defer func() {
		if !created {
			d.Destroy()
		}
	}()

	var err error
	d.Instance, err = app.CreateInstance()
	if err != nil {
		return nil, err
	}

	if app.DebuggingEnabled() {
		if err := d.Instance.UseLoggerDebugCallback(logger); err != nil {
			logger.Warn("validation messages unavailable", slog.Any("error", err))
		}
	}

	d.Surface, err = window.CreateSurface(d.Instance.VKInstance)
	if err != nil {
		return nil, errors.Wrap(err, "create surface")
	}

	physicalDevices, err := d.Instance.PhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	var graphics, present *QueueFamily
	for _, pd := range physicalDevices {
		g, p, ok := d.suitable(pd)
		if ok {
			d.PhysicalDevice, graphics, present = pd, g, p
			break
		}
	}
	if d.PhysicalDevice == nil {
		return nil, ErrNoDevice
	}

	families := QueueFamilySlice{graphics}
	if present.Index != graphics.Index {
		families = append(families, present)
	}

	extensions := []string{khrSwapchainName}
	var meshExtension string
	if opts.EnableMeshShaders {
		names, _ := d.PhysicalDevice.SupportedExtensions()
		meshExtension = chainableMeshExtension(names)
		if meshExtension == "" {
			logger.Warn("mesh shaders requested but not supported", slog.String("device", d.PhysicalDevice.DeviceName))
		}
	}

	if meshExtension != "" {
		d.VKDevice, err = d.createMeshDevice(families, extensions, meshExtension)
		switch {
		case err == nil:
			d.meshExtension, d.meshShaders = meshExtension, true
		case meshFeatureMissing(err):
			logger.Warn("mesh shader features not present", slog.String("device", d.PhysicalDevice.DeviceName),
				slog.Any("error", err))
			d.VKDevice, err = d.createLogicalDevice(families, extensions, nil)
		}
	} else {
		d.VKDevice, err = d.createLogicalDevice(families, extensions, nil)
	}
	if err != nil {
		return nil, err
	}

	d.GraphicsQueue = d.GetQueue(graphics)
	d.PresentQueue = d.GetQueue(present)

	d.CommandPool, err = d.CreateCommandPool(graphics)
	if err != nil {
		return nil, err
	}

	logger.Info("device created",
		slog.String("device", d.PhysicalDevice.DeviceName),
		slog.Int("graphicsFamily", graphics.Index),
		slog.Int("presentFamily", present.Index),
		slog.String("meshExtension", d.meshExtension))

	created = true
	return d, nil
}

// suitable reports whether pd can render to and present on the device surface.
func (d *Device) suitable(pd *PhysicalDevice) (graphics, present *QueueFamily, ok bool) {
	graphics, present = pd.QueueFamilies().GraphicsAndPresent(d.Surface)
	if graphics == nil || present == nil {
		return nil, nil, false
	}
	if !pd.SupportsExtension(khrSwapchainName) {
		return nil, nil, false
	}
	support, err := pd.QuerySwapchainSupport(d.Surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return nil, nil, false
	}
	return graphics, present, true
}

// createMeshDevice creates the logical device with extension and its task and mesh shader
// features enabled. The driver rejects features it lacks with VK_ERROR_FEATURE_NOT_PRESENT.
func (d *Device) createMeshDevice(qfs QueueFamilySlice, extensions []string, extension string) (vk.Device, error) {
	features := vk.PhysicalDeviceMeshShaderFeaturesNV{
		SType:      vk.StructureTypePhysicalDeviceMeshShaderFeaturesNv,
		TaskShader: vk.True,
		MeshShader: vk.True,
	}
	ref, _ := features.PassRef()
	defer features.Free()

	withMesh := append(append([]string(nil), extensions...), extension)
	return d.createLogicalDevice(qfs, withMesh, unsafe.Pointer(ref))
}

// meshFeatureMissing reports whether device creation failed only because the mesh extension or
// its features are unavailable.
func meshFeatureMissing(err error) bool {
	return errors.Is(err, vk.Error(vk.ErrorFeatureNotPresent)) || errors.Is(err, vk.Error(vk.ErrorExtensionNotPresent))
}

func (d *Device) createLogicalDevice(qfs QueueFamilySlice, extensions []string, next unsafe.Pointer) (vk.Device, error) {
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(qfs))
	for j, q := range qfs {
		queueCreateInfos[j] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(q.Index),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := d.PhysicalDevice.VKPhysicalDeviceFeatures()
	names := safeStrings(extensions)

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   next,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(names)),
		PpEnabledExtensionNames: names,
	}

	var ldevice vk.Device
	err := vk.Error(vk.CreateDevice(d.PhysicalDevice.VKPhysicalDevice, &deviceCreateInfo, nil, &ldevice))
	if err != nil {
		return nil, errors.Wrap(err, "create device")
	}
	return ldevice, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s }", d.PhysicalDevice)
}

// Logger returns the logger the device was created with.
func (d *Device) Logger() *slog.Logger {
	return d.logger
}

// MeshShadersEnabled reports whether the device was created with the mesh shading extension
// and its task and mesh shader features.
func (d *Device) MeshShadersEnabled() bool {
	return d.meshShaders
}

func (d *Device) WaitIdle() error {
	return vk.Error(vk.DeviceWaitIdle(d.VKDevice))
}

func (d *Device) GetQueue(qf *QueueFamily) *Queue {
	var vkq vk.Queue

	vk.GetDeviceQueue(d.VKDevice, uint32(qf.Index), 0, &vkq)

	return &Queue{QueueFamily: qf, Device: d, VKQueue: vkq}
}

// QuerySwapchainSupport reads the surface capabilities, formats and present modes.
func (d *Device) QuerySwapchainSupport() (*SwapchainSupport, error) {
	return d.PhysicalDevice.QuerySwapchainSupport(d.Surface)
}

// FindDepthFormat picks the depth attachment format used by swapchains on this device.
func (d *Device) FindDepthFormat() (vk.Format, error) {
	return d.PhysicalDevice.FindDepthFormat()
}

// FindSupportedFormat returns the first of candidates supporting features with tiling.
func (d *Device) FindSupportedFormat(candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) (vk.Format, error) {
	return d.PhysicalDevice.FindSupportedFormat(candidates, tiling, features)
}

func (d *Device) MaxUsableSampleCount() vk.SampleCountFlagBits {
	return d.PhysicalDevice.MaxUsableSampleCount()
}

func (d *Device) MinUniformBufferOffsetAlignment() uint64 {
	return uint64(d.PhysicalDevice.Limits().MinUniformBufferOffsetAlignment)
}

func (d *Device) MinStorageBufferOffsetAlignment() uint64 {
	return uint64(d.PhysicalDevice.Limits().MinStorageBufferOffsetAlignment)
}

// NonCoherentAtomSize is the alignment flush and invalidate ranges must respect on memory
// which is not host coherent.
func (d *Device) NonCoherentAtomSize() uint64 {
	return uint64(d.PhysicalDevice.Limits().NonCoherentAtomSize)
}

// SupportsMeshShaders reports whether the physical device exposes a mesh shading extension,
// whether or not it was enabled.
func (d *Device) SupportsMeshShaders() bool {
	return d.PhysicalDevice.MeshShaderExtension() != ""
}

// Allocate allocates sizeInBytes of memory of the first type in memoryTypeBits having every
// flag of memoryProperties.
func (d *Device) Allocate(sizeInBytes uint64, memoryTypeBits uint32, memoryProperties vk.MemoryPropertyFlags) (*DeviceMemory, error) {
	typeIndex, err := d.PhysicalDevice.FindMemoryType(memoryTypeBits, memoryProperties)
	if err != nil {
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(sizeInBytes),
		MemoryTypeIndex: typeIndex,
	}

	var deviceMemory vk.DeviceMemory
	err = vk.Error(vk.AllocateMemory(d.VKDevice, &allocateInfo, nil, &deviceMemory))
	if err != nil {
		return nil, errors.Wrap(err, "allocate memory")
	}

	return &DeviceMemory{
		Device:         d,
		VKDeviceMemory: deviceMemory,
		Size:           sizeInBytes,
		Properties:     memoryProperties,
	}, nil
}

// CreateBuffer creates a buffer of size bytes and binds it to freshly allocated memory having
// memoryProperties.
func (d *Device) CreateBuffer(size uint64, usage vk.BufferUsageFlags, memoryProperties vk.MemoryPropertyFlags) (vk.Buffer, *DeviceMemory, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	err := vk.Error(vk.CreateBuffer(d.VKDevice, &bufferCreateInfo, nil, &buffer))
	if err != nil {
		return vk.NullBuffer, nil, errors.Wrap(err, "create buffer")
	}

	var mr vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.VKDevice, buffer, &mr)
	mr.Deref()

	memory, err := d.Allocate(uint64(mr.Size), mr.MemoryTypeBits, memoryProperties)
	if err != nil {
		vk.DestroyBuffer(d.VKDevice, buffer, nil)
		return vk.NullBuffer, nil, errors.Wrap(err, "allocate buffer memory")
	}

	err = vk.Error(vk.BindBufferMemory(d.VKDevice, buffer, memory.VKDeviceMemory, 0))
	if err != nil {
		memory.Destroy()
		vk.DestroyBuffer(d.VKDevice, buffer, nil)
		return vk.NullBuffer, nil, errors.Wrap(err, "bind buffer memory")
	}

	return buffer, memory, nil
}

// Destroy tears down the command pool, logical device, surface and instance. Every
// swapchain, buffer and pipeline created from d must already be destroyed.
func (d *Device) Destroy() {
	if d.destroyed {
		return
	}
	d.destroyed = true

	if d.VKDevice != nil {
		vk.DeviceWaitIdle(d.VKDevice)
	}
	if d.CommandPool != nil {
		d.CommandPool.Destroy()
		d.CommandPool = nil
	}
	if d.VKDevice != nil {
		vk.DestroyDevice(d.VKDevice, nil)
		d.VKDevice = nil
	}
	if d.Instance != nil {
		if d.Surface != vk.NullSurface {
			vk.DestroySurface(d.Instance.VKInstance, d.Surface, nil)
			d.Surface = vk.NullSurface
		}
		d.Instance.Destroy()
		d.Instance = nil
	}
}

package vkr

import (
	"testing"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func TestFindMemoryType(t *testing.T) {
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	hostCoherent := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)

	types := []vk.MemoryPropertyFlags{deviceLocal, hostVisible, hostCoherent, hostCoherent}

	idx, err := findMemoryType(types, 0xf, hostCoherent)
	if err != nil || idx != 2 {
		t.Errorf("got %d, %v want 2", idx, err)
	}

	// type 2 excluded by the type bits
	idx, err = findMemoryType(types, 0xb, hostCoherent)
	if err != nil || idx != 3 {
		t.Errorf("got %d, %v want 3", idx, err)
	}

	// a superset of the requested flags matches
	idx, err = findMemoryType(types, 0xf, hostVisible)
	if err != nil || idx != 1 {
		t.Errorf("got %d, %v want 1", idx, err)
	}

	// no fallback to weaker properties
	_, err = findMemoryType(types, 0x3, hostCoherent)
	if !errors.Is(err, ErrNoSuitableMemoryType) {
		t.Errorf("expected ErrNoSuitableMemoryType, got %v", err)
	}
}

func TestFirstSupportedFormatOrder(t *testing.T) {
	supported := map[vk.Format]bool{
		vk.FormatD24UnormS8Uint:  true,
		vk.FormatD32SfloatS8Uint: true,
	}
	f, err := firstSupportedFormat(depthFormatCandidates, func(f vk.Format) bool { return supported[f] })
	if err != nil {
		t.Fatal(err)
	}
	if f != vk.FormatD32SfloatS8Uint {
		t.Errorf("got %v, want D32SfloatS8Uint", f)
	}

	supported[vk.FormatD32Sfloat] = true
	f, _ = firstSupportedFormat(depthFormatCandidates, func(f vk.Format) bool { return supported[f] })
	if f != vk.FormatD32Sfloat {
		t.Errorf("got %v, want D32Sfloat", f)
	}

	_, err = firstSupportedFormat(depthFormatCandidates, func(vk.Format) bool { return false })
	if !errors.Is(err, ErrNoDepthFormat) {
		t.Errorf("expected ErrNoDepthFormat, got %v", err)
	}
}

func TestHighestSampleCount(t *testing.T) {
	counts := vk.SampleCountFlags(vk.SampleCount1Bit | vk.SampleCount2Bit | vk.SampleCount4Bit | vk.SampleCount8Bit)
	if got := highestSampleCount(counts); got != vk.SampleCount8Bit {
		t.Errorf("got %v, want 8", got)
	}
	if got := highestSampleCount(vk.SampleCountFlags(vk.SampleCount1Bit)); got != vk.SampleCount1Bit {
		t.Errorf("got %v, want 1", got)
	}
}

func TestPickMeshShaderExtension(t *testing.T) {
	cases := []struct {
		names []string
		want  string
	}{
		{[]string{khrSwapchainName}, ""},
		{[]string{nvMeshShaderName}, nvMeshShaderName},
		{[]string{nvMeshShaderName, extMeshShaderName}, extMeshShaderName},
		{[]string{extMeshShaderName, khrSwapchainName}, extMeshShaderName},
	}
	for _, c := range cases {
		if got := pickMeshShaderExtension(c.names); got != c.want {
			t.Errorf("pickMeshShaderExtension(%v) = %q, want %q", c.names, got, c.want)
		}
	}
}

func TestChainableMeshExtension(t *testing.T) {
	cases := []struct {
		names []string
		want  string
	}{
		{nil, ""},
		{[]string{khrSwapchainName}, ""},
		{[]string{extMeshShaderName}, ""},
		{[]string{nvMeshShaderName}, nvMeshShaderName},
		{[]string{extMeshShaderName, nvMeshShaderName}, nvMeshShaderName},
	}
	for _, c := range cases {
		if got := chainableMeshExtension(c.names); got != c.want {
			t.Errorf("chainableMeshExtension(%v) = %q, want %q", c.names, got, c.want)
		}
	}
}

func TestValidateSPIRV(t *testing.T) {
	if err := validateSPIRV(nil); !errors.Is(err, ErrInvalidShaderCode) {
		t.Errorf("empty code: %v", err)
	}
	if err := validateSPIRV(make([]byte, 6)); !errors.Is(err, ErrInvalidShaderCode) {
		t.Errorf("odd length: %v", err)
	}
	if err := validateSPIRV(make([]byte, 8)); err != nil {
		t.Errorf("valid length: %v", err)
	}
}

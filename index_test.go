package vkr

import (
	"encoding/binary"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestIndexSlices(t *testing.T) {
	small := IndexSliceUint16{1, 2, 0x0301}
	if b := small.Bytes(); len(b) != 6 || binary.LittleEndian.Uint16(b[4:]) != 0x0301 {
		t.Errorf("uint16 bytes %v", b)
	}
	if small.IndexType() != vk.IndexTypeUint16 || small.Stride() != 2 || small.Len() != 3 {
		t.Error("uint16 metadata")
	}

	large := IndexSliceUint32{7, 0x01020304}
	if b := large.Bytes(); len(b) != 8 || binary.LittleEndian.Uint32(b[4:]) != 0x01020304 {
		t.Errorf("uint32 bytes %v", b)
	}
	if large.IndexType() != vk.IndexTypeUint32 || large.Stride() != 4 {
		t.Error("uint32 metadata")
	}

	if IndexSliceUint16(nil).Bytes() != nil {
		t.Error("empty indices have bytes")
	}
}

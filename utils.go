package vkr

import (
	"unsafe"
)

var end = "\x00"
var endChar byte = '\x00'

// WholeSize selects the remainder of a buffer or memory range, mirroring VK_WHOLE_SIZE.
const WholeSize = ^uint64(0)

// ToBytes will take an unsafe.Pointer and length in bytes and convert it
// to a byte slice
func ToBytes(ptr unsafe.Pointer, lenInBytes int) []byte {
	return unsafe.Slice((*byte)(ptr), lenInBytes)
}

// alignUp rounds a up to the next multiple of align, align of zero leaves a untouched.
func alignUp(a uint64, align uint64) uint64 {
	if align == 0 {
		return a
	}
	m := a % align
	if m == 0 {
		return a
	}
	return (a - m) + align
}

func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func safeStrings(list []string) []string {
	ret := make([]string, len(list))
	for i := range list {
		ret[i] = safeString(list[i])
	}
	return ret
}

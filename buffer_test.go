package vkr

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestAlignUp(t *testing.T) {
	if alignUp(12, 3) != 12 {
		t.Fail()
	}

	if alignUp(10, 3) != 12 {
		t.Fail()
	}

	if alignUp(10, 0) != 10 {
		t.Fail()
	}
}

func TestAlignedStride(t *testing.T) {
	cases := []struct {
		stride, align, want uint64
	}{
		{68, 256, 256},
		{260, 256, 512},
		{256, 256, 256},
		{1, 64, 64},
		{68, 1, 68},
		{68, 0, 68},
	}
	for _, c := range cases {
		if got := AlignedStride(c.stride, c.align); got != c.want {
			t.Errorf("AlignedStride(%d, %d) = %d, want %d", c.stride, c.align, got, c.want)
		}
	}
}

func TestBufferLayoutSize(t *testing.T) {
	for n := uint64(1); n <= 8; n++ {
		b := newBufferLayout(68, n, 256)
		if b.AlignedStride() != 256 {
			t.Fatalf("aligned stride %d", b.AlignedStride())
		}
		if b.Size() != 256*n {
			t.Errorf("%d elements: size %d, want %d", n, b.Size(), 256*n)
		}
	}
}

func TestDescriptorInfoForIndex(t *testing.T) {
	b := newBufferLayout(260, 4, 256)
	for i := uint64(0); i < b.ElementCount(); i++ {
		info := b.DescriptorInfoForIndex(i)
		if uint64(info.Offset) != i*512 {
			t.Errorf("index %d: offset %d", i, info.Offset)
		}
		if uint64(info.Range) != 512 {
			t.Errorf("index %d: range %d", i, info.Range)
		}
	}
}

// hostBuffer fakes a mapped buffer backed by ordinary memory.
func hostBuffer(stride, count, align uint64) *Buffer {
	b := newBufferLayout(stride, count, align)
	b.mapped = make([]byte, b.size)
	return b
}

func TestWriteToIndex(t *testing.T) {
	b := hostBuffer(4, 3, 16)

	err := b.WriteToIndex([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 1)
	if err != nil {
		t.Fatal(err)
	}

	want := make([]byte, 48)
	copy(want[16:], []byte{1, 2, 3, 4})
	copy(want[32:], []byte{5, 6, 7, 8})
	if !bytes.Equal(b.MappedBytes(), want) {
		t.Errorf("mapped = %v, want %v", b.MappedBytes(), want)
	}
}

func TestWriteToIndexOutOfRange(t *testing.T) {
	b := hostBuffer(4, 2, 16)

	if err := b.WriteToIndex(make([]byte, 8), 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if err := b.WriteToIndex(make([]byte, 6), 0); err == nil {
		t.Error("expected an error for a partial element")
	}
}

func TestWriteToIndexHugeIndex(t *testing.T) {
	// stride equal to the aligned stride, so the element offset wraps around
	b := hostBuffer(16, 4, 16)

	for _, index := range []uint64{^uint64(0), ^uint64(0) - 1, 5} {
		if err := b.WriteToIndex(make([]byte, 16), index); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("index %d: expected ErrOutOfRange, got %v", index, err)
		}
	}
	if err := b.WriteToBuffer(make([]byte, 4), 4, ^uint64(0)-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("wrapped offset: expected ErrOutOfRange, got %v", err)
	}
}

func TestWriteToBuffer(t *testing.T) {
	b := hostBuffer(8, 2, 8)

	if err := b.WriteToBuffer([]byte{9, 9}, 2, 6); err != nil {
		t.Fatal(err)
	}
	if b.MappedBytes()[6] != 9 || b.MappedBytes()[7] != 9 {
		t.Errorf("mapped = %v", b.MappedBytes())
	}

	if err := b.WriteToBuffer(make([]byte, 16), WholeSize, 0); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteToBuffer(make([]byte, 17), WholeSize, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if err := b.WriteToBuffer(make([]byte, 4), 4, 14); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestWriteUnmapped(t *testing.T) {
	b := newBufferLayout(4, 1, 4)
	if err := b.WriteToBuffer([]byte{1, 2, 3, 4}, 4, 0); !errors.Is(err, ErrNotMapped) {
		t.Errorf("expected ErrNotMapped, got %v", err)
	}
}

func TestMapTwice(t *testing.T) {
	b := hostBuffer(4, 1, 4)
	if err := b.Map(WholeSize, 0); !errors.Is(err, ErrAlreadyMapped) {
		t.Errorf("expected ErrAlreadyMapped, got %v", err)
	}
}

func TestAtomRange(t *testing.T) {
	cases := []struct {
		size, offset, atom   uint64
		wantSize, wantOffset uint64
	}{
		{16, 32, 0, 16, 32},
		{16, 32, 1, 16, 32},
		{16, 32, 64, 64, 0},
		{4, 70, 64, 64, 64},
		{64, 60, 64, 128, 0},
		{WholeSize, 100, 64, WholeSize, 64},
	}
	for _, c := range cases {
		size, offset := atomRange(c.size, c.offset, c.atom)
		if size != c.wantSize || offset != c.wantOffset {
			t.Errorf("atomRange(%d, %d, %d) = %d, %d, want %d, %d",
				c.size, c.offset, c.atom, size, offset, c.wantSize, c.wantOffset)
		}
		if c.atom > 1 && size != WholeSize && (size%c.atom != 0 || offset%c.atom != 0) {
			t.Errorf("atomRange(%d, %d, %d) not atom aligned", c.size, c.offset, c.atom)
		}
	}
}

func TestFlushRange(t *testing.T) {
	b := newBufferLayout(16, 3, 16)
	if err := b.Flush(16, 0); !errors.Is(err, ErrNotMapped) {
		t.Errorf("flush: expected ErrNotMapped, got %v", err)
	}
	if err := b.InvalidateIndex(1); !errors.Is(err, ErrNotMapped) {
		t.Errorf("invalidate: expected ErrNotMapped, got %v", err)
	}

	b = hostBuffer(16, 3, 16)
	b.Memory = &DeviceMemory{Size: 48}

	size, offset, err := b.flushRange(16, 0)
	if err != nil || size != 16 || offset != 0 {
		t.Errorf("first element: %d, %d, %v", size, offset, err)
	}
	// the last element reaches the end of the allocation
	size, offset, err = b.flushRange(16, 32)
	if err != nil || size != WholeSize || offset != 32 {
		t.Errorf("last element: %d, %d, %v", size, offset, err)
	}
}

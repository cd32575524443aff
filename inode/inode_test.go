package inode_test

import (
	"testing"

	"github.com/parityfs/parityfs/inode"
	"github.com/parityfs/parityfs/layout"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	n := inode.Inode{
		Size:   12345,
		Type:   layout.InodeTypeFile,
		Refcnt: 2,
	}
	n.BlockNumbers[0] = 7
	n.BlockNumbers[1] = 9

	encoded := inode.Encode(n)
	if len(encoded) != layout.InodeSize {
		t.Fatalf("expected %d bytes, got %d", layout.InodeSize, len(encoded))
	}

	decoded, err := inode.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != n {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, n)
	}
}

func TestDecodeAllZeroIsInvalid(t *testing.T) {
	zero := make([]byte, layout.InodeSize)
	decoded, err := inode.Decode(zero)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.IsValid() {
		t.Fatalf("expected all-zero record to decode to invalid type, got %+v", decoded)
	}
	if decoded.Size != 0 || decoded.Refcnt != 0 {
		t.Fatalf("expected zero size/refcnt, got %+v", decoded)
	}
}

func TestDecodeWrongSizeIsError(t *testing.T) {
	if _, err := inode.Decode(make([]byte, layout.InodeSize+1)); err == nil {
		t.Fatal("expected error decoding oversized buffer")
	}
	if _, err := inode.Decode(make([]byte, layout.InodeSize-1)); err == nil {
		t.Fatal("expected error decoding undersized buffer")
	}
}

// fakeBlocks is a minimal inode.BlockIO backed by a plain in-memory array,
// for handle tests that don't need the full striping client.
type fakeBlocks struct {
	blocks [][]byte
}

func newFakeBlocks() *fakeBlocks {
	b := &fakeBlocks{blocks: make([][]byte, layout.TotalNumBlocks)}
	for i := range b.blocks {
		b.blocks[i] = make([]byte, layout.BlockSize)
	}
	return b
}

func (f *fakeBlocks) Get(b int) ([]byte, error) {
	out := make([]byte, layout.BlockSize)
	copy(out, f.blocks[b])
	return out, nil
}

func (f *fakeBlocks) Put(b int, data []byte) error {
	out := make([]byte, layout.BlockSize)
	copy(out, data)
	f.blocks[b] = out
	return nil
}

func TestHandleLoadStoreRoundTrip(t *testing.T) {
	blocks := newFakeBlocks()
	h, err := inode.NewNumber(blocks, 3)
	if err != nil {
		t.Fatalf("NewNumber: %v", err)
	}
	if err := h.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h.Inode.IsValid() {
		t.Fatal("expected freshly loaded inode 3 to be invalid on a zeroed disk")
	}

	h.Inode.Type = layout.InodeTypeFile
	h.Inode.Size = 42
	h.Inode.Refcnt = 1
	h.Inode.BlockNumbers[0] = 99
	if err := h.Store(); err != nil {
		t.Fatalf("Store: %v", err)
	}

	h2, _ := inode.NewNumber(blocks, 3)
	if err := h2.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h2.Inode.Size != 42 || h2.Inode.BlockNumbers[0] != 99 {
		t.Fatalf("reloaded inode mismatch: %+v", h2.Inode)
	}
}

func TestNewNumberOutOfRange(t *testing.T) {
	blocks := newFakeBlocks()
	if _, err := inode.NewNumber(blocks, layout.MaxNumInodes); err == nil {
		t.Fatal("expected error for out-of-range inode number")
	}
}

func TestBlockAtOffset(t *testing.T) {
	blocks := newFakeBlocks()
	h, _ := inode.NewNumber(blocks, 0)
	h.Inode.BlockNumbers[0] = 55
	h.Inode.BlockNumbers[1] = 77
	if got := h.BlockAtOffset(0); got != 55 {
		t.Fatalf("offset 0: got %d want 55", got)
	}
	if got := h.BlockAtOffset(layout.BlockSize + 1); got != 77 {
		t.Fatalf("offset BlockSize+1: got %d want 77", got)
	}
}

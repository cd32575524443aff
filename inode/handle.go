package inode

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/parityfs/parityfs/layout"
)

var log = logrus.WithField("component", "inode")

// BlockIO is the subset of the striping client (C2) that the inode-number
// handle needs: verified Get/Put of a logical block. Declared here rather
// than imported from package stripe so inode has no dependency on the
// block layer's implementation, only its shape.
type BlockIO interface {
	Get(b int) ([]byte, error)
	Put(b int, data []byte) error
}

// Number binds an inode index to the block layer (C5): it loads, stores,
// and follows an inode's direct block pointers. Grounded on
// memoryfs_client.py's InodeNumber class.
type Number struct {
	blocks BlockIO
	Num    int
	Inode  Inode
}

// NewNumber creates a handle for inode index n over blocks. n must be
// less than layout.MaxNumInodes; an out-of-range index is a programming
// error (spec §7: fatal).
func NewNumber(blocks BlockIO, n int) (*Number, error) {
	if n < 0 || n >= layout.MaxNumInodes {
		return nil, fmt.Errorf("inode: NewNumber: inode number %d exceeds limit %d", n, layout.MaxNumInodes)
	}
	return &Number{blocks: blocks, Num: n, Inode: New()}, nil
}

// blockAndOffset returns the logical block holding this inode's record
// and the byte offset of the record within that block.
func (h *Number) blockAndOffset() (block, offset int) {
	block = layout.InodeBlockOffset + (h.Num*layout.InodeSize)/layout.BlockSize
	offset = (h.Num * layout.InodeSize) % layout.BlockSize
	return block, offset
}

// Load fetches the containing logical block, slices out this inode's
// bytes, and decodes them into h.Inode.
func (h *Number) Load() error {
	block, offset := h.blockAndOffset()
	raw, err := h.blocks.Get(block)
	if err != nil {
		return fmt.Errorf("inode: Load(%d): %w", h.Num, err)
	}
	n, err := Decode(raw[offset : offset+layout.InodeSize])
	if err != nil {
		return fmt.Errorf("inode: Load(%d): %w", h.Num, err)
	}
	h.Inode = n
	log.WithFields(logrus.Fields{"inode": h.Num, "block": block, "offset": offset}).Debug("Load")
	return nil
}

// Store reads the containing block, splices in h.Inode's encoding, and
// writes the block back.
func (h *Number) Store() error {
	block, offset := h.blockAndOffset()
	raw, err := h.blocks.Get(block)
	if err != nil {
		return fmt.Errorf("inode: Store(%d): %w", h.Num, err)
	}
	encoded := Encode(h.Inode)
	copy(raw[offset:offset+layout.InodeSize], encoded)
	if err := h.blocks.Put(block, raw); err != nil {
		return fmt.Errorf("inode: Store(%d): %w", h.Num, err)
	}
	log.WithFields(logrus.Fields{"inode": h.Num, "block": block, "offset": offset}).Debug("Store")
	return nil
}

// BlockAtOffset returns the logical data block holding byte off of this
// inode's content (must call Load first). It does not allocate: a zero
// pointer is returned verbatim as "unallocated" (caller's job to check).
func (h *Number) BlockAtOffset(off int) uint32 {
	idx := off / layout.BlockSize
	return h.Inode.BlockNumbers[idx]
}

package namespace

import (
	"fmt"

	"github.com/parityfs/parityfs/inode"
	"github.com/parityfs/parityfs/layout"
)

// helperGetFilenameString returns the trimmed (zero-padding stripped) name
// stored at directory-entry index within block. Grounded on
// memoryfs_client.py's HelperGetFilenameString.
func helperGetFilenameString(block []byte, index int) string {
	start := index * layout.FileNameDirentrySize
	raw := block[start : start+layout.MaxFilename]
	end := 0
	for end < len(raw) && raw[end] != 0 {
		end++
	}
	return string(raw[:end])
}

// helperGetFilenameInodeNumber returns the inode number stored at
// directory-entry index within block.
func helperGetFilenameInodeNumber(block []byte, index int) uint32 {
	start := index*layout.FileNameDirentrySize + layout.MaxFilename
	var v uint32
	for _, b := range block[start : start+layout.InodeNumberDirentrySize] {
		v = v<<8 | uint32(b)
	}
	return v
}

// putDirEntry writes name (zero-padded to MaxFilename) and ino at
// directory-entry index within block.
func putDirEntry(block []byte, index int, name string, ino uint32) {
	start := index * layout.FileNameDirentrySize
	for i := 0; i < layout.MaxFilename; i++ {
		block[start+i] = 0
	}
	copy(block[start:start+layout.MaxFilename], name)
	nstart := start + layout.MaxFilename
	block[nstart+0] = byte(ino >> 24)
	block[nstart+1] = byte(ino >> 16)
	block[nstart+2] = byte(ino >> 8)
	block[nstart+3] = byte(ino)
}

// allocateDataBlock linearly scans the data region for the first block
// whose free-bitmap byte is 0, marks it used, and returns its logical
// block number. Grounded on memoryfs_client.py's AllocateDataBlock; the
// source's "fail fatally when the free list is exhausted" (spec §4.3,
// §7) is rendered here as an error rather than a panic, consistent with
// the rest of this core treating out-of-range conditions as errors
// bubbled to the caller (see inode.NewNumber) instead of process aborts.
func (ns *Namespace) allocateDataBlock() (int, error) {
	for b := layout.DataBlocksOffset; b < layout.TotalNumBlocks; b++ {
		bitmapBlock, offset := layout.BitmapBlockForEntry(b)
		raw, err := ns.blocks.Get(bitmapBlock)
		if err != nil {
			return -1, fmt.Errorf("namespace: allocateDataBlock: reading bitmap block %d: %w", bitmapBlock, err)
		}
		if raw[offset] != 0 {
			continue
		}
		raw[offset] = 1
		if err := ns.blocks.Put(bitmapBlock, raw); err != nil {
			return -1, fmt.Errorf("namespace: allocateDataBlock: writing bitmap block %d: %w", bitmapBlock, err)
		}
		log.WithField("block", b).Debug("allocated data block")
		return b, nil
	}
	return -1, fmt.Errorf("namespace: allocateDataBlock: no free data block")
}

// lookupInDir performs the linear directory scan described in §4.6:
// iterate offset 0..dir.Inode.Size in BlockSize steps, within each block
// scan up to FileEntriesPerDataBlock entries but stop once the cumulative
// scan counter reaches dir.Inode.Size. Returns -1 if name is not found.
func (ns *Namespace) lookupInDir(dir *inode.Number, name string) (int, error) {
	size := int(dir.Inode.Size)
	scanned := 0
	for offset := 0; offset < size; offset += layout.BlockSize {
		blockNum := dir.BlockAtOffset(offset)
		var block []byte
		if blockNum == 0 {
			block = make([]byte, layout.BlockSize)
		} else {
			b, err := ns.blocks.Get(int(blockNum))
			if err != nil {
				return -1, fmt.Errorf("namespace: lookupInDir: %w", err)
			}
			block = b
		}
		for e := 0; e < layout.FileEntriesPerDataBlock && scanned < size; e++ {
			if helperGetFilenameString(block, e) == name {
				return int(helperGetFilenameInodeNumber(block, e)), nil
			}
			scanned += layout.FileNameDirentrySize
		}
	}
	return -1, nil
}

// insertFilenameInodeNumber appends a (name, ino) directory entry to
// parent at offset parent.Inode.Size, allocating a new data block first
// if the insertion crosses a block boundary, per §4.6.
func (ns *Namespace) insertFilenameInodeNumber(parent *inode.Number, name string, ino uint32) error {
	if len(name) > layout.MaxFilename {
		return ErrNameTooLong
	}
	index := int(parent.Inode.Size)
	if index >= layout.MaxFileSize {
		return ErrDirectoryFull
	}

	blockIdx := index / layout.BlockSize
	if index%layout.BlockSize == 0 {
		if parent.Inode.BlockNumbers[blockIdx] == 0 {
			newBlock, err := ns.allocateDataBlock()
			if err != nil {
				return err
			}
			parent.Inode.BlockNumbers[blockIdx] = uint32(newBlock)
		}
	}

	blockNum := parent.Inode.BlockNumbers[blockIdx]
	raw, err := ns.blocks.Get(int(blockNum))
	if err != nil {
		return fmt.Errorf("namespace: insertFilenameInodeNumber: %w", err)
	}
	entryIdx := (index % layout.BlockSize) / layout.FileNameDirentrySize
	putDirEntry(raw, entryIdx, name, ino)
	if err := ns.blocks.Put(int(blockNum), raw); err != nil {
		return fmt.Errorf("namespace: insertFilenameInodeNumber: %w", err)
	}

	parent.Inode.Size += layout.FileNameDirentrySize
	return parent.Store()
}

// findAvailableInode linearly scans inode slots 0..MaxNumInodes-1 for one
// whose decoded type is invalid. Returns -1 if none is free.
func (ns *Namespace) findAvailableInode() (int, error) {
	for n := 0; n < layout.MaxNumInodes; n++ {
		h, err := inode.NewNumber(ns.blocks, n)
		if err != nil {
			return -1, err
		}
		if err := h.Load(); err != nil {
			return -1, err
		}
		if !h.Inode.IsValid() {
			return n, nil
		}
	}
	return -1, nil
}

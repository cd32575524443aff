// Package inode implements C4 (the fixed-width inode codec) and C5 (the
// inode-number handle that binds an inode index to the block layer).
package inode

import "github.com/parityfs/parityfs/layout"

// Inode is the in-memory representation of one inode record: size, type,
// reference count, and up to layout.MaxInodeBlockNumbers direct block
// pointers. Grounded on memoryfs_client.py's Inode class.
type Inode struct {
	Size         uint32
	Type         int
	Refcnt       uint16
	BlockNumbers [layout.MaxInodeBlockNumbers]uint32
}

// New returns an all-zero (invalid) inode, matching the zero value an
// all-zero on-disk record decodes to.
func New() Inode {
	return Inode{Type: layout.InodeTypeInvalid}
}

// IsDir reports whether the inode is a directory.
func (n Inode) IsDir() bool { return n.Type == layout.InodeTypeDir }

// IsFile reports whether the inode is a file.
func (n Inode) IsFile() bool { return n.Type == layout.InodeTypeFile }

// IsValid reports whether the inode's type slot is in use.
func (n Inode) IsValid() bool { return n.Type != layout.InodeTypeInvalid }

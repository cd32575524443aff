// Package namespace implements C6: the directory / name layer. It turns
// the inode-number handle (C5) into a hierarchical namespace with fixed-
// width directory entries, lookup, creation, reads, writes, hard links,
// and path resolution.
//
// Grounded on memoryfs_client.py's MemoryFSClient methods of the same
// name; the byte-splicing that file does inline is factored here into
// the smaller helpers in directory.go, but the block-by-block walk in
// Write/Read is preserved exactly since scenario tests in §8 depend on
// its size-increment semantics.
package namespace

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/parityfs/parityfs/inode"
	"github.com/parityfs/parityfs/layout"
)

var log = logrus.WithField("component", "namespace")

const rootInode = 0

// Namespace is the C6 directory layer bound to a block-layer handle
// (ordinarily a *stripe.Client, referenced structurally via
// inode.BlockIO so this package has no dependency on the striping
// implementation).
type Namespace struct {
	blocks inode.BlockIO
}

// New binds a Namespace to the given block layer.
func New(blocks inode.BlockIO) *Namespace {
	return &Namespace{blocks: blocks}
}

// InitRootInode establishes inode 0 as a directory with "." -> 0, per
// spec §3 invariant 4 and the root-init step referenced in the Lifecycle
// paragraph. Called once, from the cluster bootstrap race (C7).
func (ns *Namespace) InitRootInode() error {
	root, err := inode.NewNumber(ns.blocks, rootInode)
	if err != nil {
		return err
	}
	root.Inode.Type = layout.InodeTypeDir
	root.Inode.Size = 0
	root.Inode.Refcnt = 1
	block, err := ns.allocateDataBlock()
	if err != nil {
		return fmt.Errorf("namespace: InitRootInode: %w", err)
	}
	root.Inode.BlockNumbers[0] = uint32(block)
	if err := root.Store(); err != nil {
		return err
	}
	if err := ns.insertFilenameInodeNumber(root, ".", rootInode); err != nil {
		return fmt.Errorf("namespace: InitRootInode: %w", err)
	}
	log.Info("root inode initialized")
	return nil
}

// Lookup resolves name inside directory dirInode, returning its inode
// number or -1 if dirInode is not a directory or name is not found.
// Spec §4.6.
func (ns *Namespace) Lookup(name string, dirInode int) int {
	dir, err := inode.NewNumber(ns.blocks, dirInode)
	if err != nil {
		log.WithError(err).Error("Lookup: invalid directory inode number")
		return -1
	}
	if err := dir.Load(); err != nil {
		log.WithError(err).Error("Lookup: loading directory inode")
		return -1
	}
	if !dir.Inode.IsDir() {
		return -1
	}
	n, err := ns.lookupInDir(dir, name)
	if err != nil {
		log.WithError(err).Error("Lookup: scanning directory")
		return -1
	}
	return n
}

// Create makes a new file or directory named name inside dir, per §4.6.
// Returns the new inode number, or -1 if any precondition fails: no free
// inode, dir is not a directory, no free directory-entry slot, or name
// already exists.
func (ns *Namespace) Create(dir int, name string, typ int) int {
	if typ != layout.InodeTypeFile && typ != layout.InodeTypeDir {
		log.WithField("type", typ).Error("Create: unsupported inode type")
		return -1
	}
	if len(name) > layout.MaxFilename {
		return -1
	}

	parent, err := inode.NewNumber(ns.blocks, dir)
	if err != nil {
		log.WithError(err).Error("Create: invalid parent inode number")
		return -1
	}
	if err := parent.Load(); err != nil {
		log.WithError(err).Error("Create: loading parent inode")
		return -1
	}
	if !parent.Inode.IsDir() {
		return -1
	}
	if int(parent.Inode.Size) >= layout.MaxFileSize {
		return -1
	}
	if existing, err := ns.lookupInDir(parent, name); err != nil {
		log.WithError(err).Error("Create: scanning parent directory")
		return -1
	} else if existing != -1 {
		return -1
	}

	newNum, err := ns.findAvailableInode()
	if err != nil {
		log.WithError(err).Error("Create: scanning inode table")
		return -1
	}
	if newNum == -1 {
		return -1
	}

	child, err := inode.NewNumber(ns.blocks, newNum)
	if err != nil {
		return -1
	}
	child.Inode.Type = typ
	child.Inode.Size = 0
	child.Inode.Refcnt = 1

	if typ == layout.InodeTypeDir {
		block, err := ns.allocateDataBlock()
		if err != nil {
			log.WithError(err).Error("Create: allocating directory's first block")
			return -1
		}
		child.Inode.BlockNumbers[0] = uint32(block)
	}
	if err := child.Store(); err != nil {
		log.WithError(err).Error("Create: storing new inode")
		return -1
	}

	if err := ns.insertFilenameInodeNumber(parent, name, uint32(newNum)); err != nil {
		log.WithError(err).Error("Create: inserting into parent")
		return -1
	}

	if typ == layout.InodeTypeDir {
		if err := ns.insertFilenameInodeNumber(child, ".", uint32(newNum)); err != nil {
			log.WithError(err).Error("Create: inserting self entry")
			return -1
		}
		if err := child.Load(); err != nil {
			return -1
		}
		if err := ns.insertFilenameInodeNumber(child, "..", uint32(dir)); err != nil {
			log.WithError(err).Error("Create: inserting parent entry")
			return -1
		}
	}

	parent.Inode.Refcnt++
	if err := parent.Store(); err != nil {
		log.WithError(err).Error("Create: storing parent refcnt")
		return -1
	}

	log.WithFields(logrus.Fields{"name": name, "inode": newNum, "type": typ}).Info("Create")
	return newNum
}

// Write appends/overwrites data at offset in file ino, per §4.6's
// block-by-block splice. Returns the number of bytes written, or -1 on
// any precondition failure: ino is not a file, offset out of [0,size],
// or offset+len(data) exceeds MaxFileSize. File size is incremented by
// the number of bytes written (not clamped to end-of-file) — this is a
// deliberately preserved, non-obvious behavior: overwrites inside the
// existing file still grow file.size by len(data).
func (ns *Namespace) Write(ino, offset int, data []byte) int {
	h, err := inode.NewNumber(ns.blocks, ino)
	if err != nil {
		log.WithError(err).Error("Write: invalid inode number")
		return -1
	}
	if err := h.Load(); err != nil {
		log.WithError(err).Error("Write: loading inode")
		return -1
	}
	if !h.Inode.IsFile() {
		return -1
	}
	size := int(h.Inode.Size)
	if offset < 0 || offset > size {
		return -1
	}
	if offset+len(data) > layout.MaxFileSize {
		return -1
	}

	written := 0
	curOff := offset
	end := offset + len(data)
	for curOff < end {
		idx := curOff / layout.BlockSize
		nextBnd := (idx + 1) * layout.BlockSize
		writeStart := curOff % layout.BlockSize
		writeEnd := layout.BlockSize
		if end < nextBnd {
			writeEnd = end % layout.BlockSize
			if writeEnd == 0 {
				writeEnd = layout.BlockSize
			}
		}

		if h.Inode.BlockNumbers[idx] == 0 {
			block, err := ns.allocateDataBlock()
			if err != nil {
				log.WithError(err).Error("Write: allocating data block")
				return -1
			}
			h.Inode.BlockNumbers[idx] = uint32(block)
		}

		raw, err := ns.blocks.Get(int(h.Inode.BlockNumbers[idx]))
		if err != nil {
			log.WithError(err).Error("Write: reading data block")
			return -1
		}
		chunk := writeEnd - writeStart
		copy(raw[writeStart:writeEnd], data[written:written+chunk])
		if err := ns.blocks.Put(int(h.Inode.BlockNumbers[idx]), raw); err != nil {
			log.WithError(err).Error("Write: writing data block")
			return -1
		}

		written += chunk
		curOff += chunk
	}

	h.Inode.Size += uint32(written)
	if err := h.Store(); err != nil {
		log.WithError(err).Error("Write: storing inode")
		return -1
	}
	return written
}

// Read returns up to count bytes starting at offset from file ino,
// clamped to the file's current size, per §4.6. Returns nil if ino is
// not a file or offset is outside [0,size].
func (ns *Namespace) Read(ino, offset, count int) []byte {
	h, err := inode.NewNumber(ns.blocks, ino)
	if err != nil {
		log.WithError(err).Error("Read: invalid inode number")
		return nil
	}
	if err := h.Load(); err != nil {
		log.WithError(err).Error("Read: loading inode")
		return nil
	}
	if !h.Inode.IsFile() {
		return nil
	}
	size := int(h.Inode.Size)
	if offset < 0 || offset > size {
		return nil
	}

	toRead := count
	if toRead > size-offset {
		toRead = size - offset
	}
	if toRead <= 0 {
		return []byte{}
	}

	out := make([]byte, toRead)
	read := 0
	curOff := offset
	end := offset + toRead
	for curOff < end {
		idx := curOff / layout.BlockSize
		nextBnd := (idx + 1) * layout.BlockSize
		readStart := curOff % layout.BlockSize
		readEnd := layout.BlockSize
		if end < nextBnd {
			readEnd = end % layout.BlockSize
			if readEnd == 0 {
				readEnd = layout.BlockSize
			}
		}

		blockNum := h.Inode.BlockNumbers[idx]
		var raw []byte
		if blockNum == 0 {
			raw = make([]byte, layout.BlockSize)
		} else {
			raw, err = ns.blocks.Get(int(blockNum))
			if err != nil {
				log.WithError(err).Error("Read: reading data block")
				return nil
			}
		}
		chunk := readEnd - readStart
		copy(out[read:read+chunk], raw[readStart:readEnd])

		read += chunk
		curOff += chunk
	}
	return out
}

// Link creates a hard link named name, in directory cwd, to the file
// resolved from targetPath, per §4.6. Returns 0 on success, -1 on any
// precondition failure: target not found, target not a file, cwd not a
// directory, no free directory-entry slot, or name already exists.
func (ns *Namespace) Link(targetPath, name string, cwd int) int {
	target := ns.GeneralPathToInodeNumber(targetPath, cwd)
	if target == -1 {
		return -1
	}

	targetHandle, err := inode.NewNumber(ns.blocks, target)
	if err != nil {
		return -1
	}
	if err := targetHandle.Load(); err != nil {
		log.WithError(err).Error("Link: loading target inode")
		return -1
	}
	if !targetHandle.Inode.IsFile() {
		return -1
	}

	dir, err := inode.NewNumber(ns.blocks, cwd)
	if err != nil {
		return -1
	}
	if err := dir.Load(); err != nil {
		log.WithError(err).Error("Link: loading cwd inode")
		return -1
	}
	if !dir.Inode.IsDir() {
		return -1
	}
	if int(dir.Inode.Size) >= layout.MaxFileSize {
		return -1
	}
	if existing, err := ns.lookupInDir(dir, name); err != nil {
		log.WithError(err).Error("Link: scanning cwd")
		return -1
	} else if existing != -1 {
		return -1
	}

	if err := ns.insertFilenameInodeNumber(dir, name, uint32(target)); err != nil {
		log.WithError(err).Error("Link: inserting entry")
		return -1
	}

	targetHandle.Inode.Refcnt++
	if err := targetHandle.Store(); err != nil {
		log.WithError(err).Error("Link: storing target refcnt")
		return -1
	}

	log.WithFields(logrus.Fields{"target": target, "name": name, "cwd": cwd}).Info("Link")
	return 0
}

// ReadDir lists dir's entries as (name, inode) pairs in on-disk order,
// for the shell's ls and the read-only fsview adapter. Not a teacher/spec
// term of art by that name (the source inlines this logic in the shell),
// but it is the same scan as lookupInDir without the early-exit on match.
func (ns *Namespace) ReadDir(dir int) ([]DirEntry, error) {
	h, err := inode.NewNumber(ns.blocks, dir)
	if err != nil {
		return nil, err
	}
	if err := h.Load(); err != nil {
		return nil, err
	}
	if !h.Inode.IsDir() {
		return nil, ErrNotDirectory
	}

	var entries []DirEntry
	size := int(h.Inode.Size)
	scanned := 0
	for offset := 0; offset < size; offset += layout.BlockSize {
		blockNum := h.BlockAtOffset(offset)
		if blockNum == 0 {
			break
		}
		raw, err := ns.blocks.Get(int(blockNum))
		if err != nil {
			return nil, err
		}
		for e := 0; e < layout.FileEntriesPerDataBlock && scanned < size; e++ {
			name := helperGetFilenameString(raw, e)
			ino := helperGetFilenameInodeNumber(raw, e)
			entries = append(entries, DirEntry{Name: name, Inode: int(ino)})
			scanned += layout.FileNameDirentrySize
		}
	}
	return entries, nil
}

// InodeType returns the decoded type of ino, for callers (ls) that need
// to know file-vs-directory without re-deriving it from a raw Lookup.
func (ns *Namespace) InodeType(ino int) (int, error) {
	h, err := inode.NewNumber(ns.blocks, ino)
	if err != nil {
		return layout.InodeTypeInvalid, err
	}
	if err := h.Load(); err != nil {
		return layout.InodeTypeInvalid, err
	}
	return h.Inode.Type, nil
}

// FileSize returns the decoded size of ino, in bytes for a file or
// directory-entry bytes for a directory.
func (ns *Namespace) FileSize(ino int) (int, error) {
	h, err := inode.NewNumber(ns.blocks, ino)
	if err != nil {
		return 0, err
	}
	if err := h.Load(); err != nil {
		return 0, err
	}
	return int(h.Inode.Size), nil
}

// Refcnt returns the decoded refcnt of ino.
func (ns *Namespace) Refcnt(ino int) (int, error) {
	h, err := inode.NewNumber(ns.blocks, ino)
	if err != nil {
		return 0, err
	}
	if err := h.Load(); err != nil {
		return 0, err
	}
	return int(h.Inode.Refcnt), nil
}

// Package fsview adapts a namespace.Namespace into a read-only io/fs.FS,
// for cmd/fsserve and for anything else that wants to walk the cluster's
// directory tree with stdlib tools. Grounded on converter/converter.go's
// fsCompatible wrapper, rewritten against namespace.Namespace instead of
// filesystem.FileSystem (which has no io/fs.FS-shaped Open to wrap).
package fsview

import (
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/parityfs/parityfs/layout"
	"github.com/parityfs/parityfs/namespace"
)

// FS presents a namespace.Namespace rooted at rootIno as an io/fs.FS.
// Writes are not exposed: the namespace layer itself has no delete or
// rename, and this adapter additionally omits Write, matching spec §1's
// scope (this core is a source, not a mutable mount).
type FS struct {
	ns      *namespace.Namespace
	rootIno int
}

// New wraps ns, rooted at rootIno (ordinarily inode 0).
func New(ns *namespace.Namespace, rootIno int) *FS {
	return &FS{ns: ns, rootIno: rootIno}
}

func (f *FS) resolve(name string) (int, error) {
	if name == "." || name == "" {
		return f.rootIno, nil
	}
	if !fs.ValidPath(name) {
		return -1, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	ino := f.ns.PathToInodeNumber(name, f.rootIno)
	if ino == -1 {
		return -1, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return ino, nil
}

// Open implements fs.FS.
func (f *FS) Open(name string) (fs.File, error) {
	ino, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	typ, err := f.ns.InodeType(ino)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	switch typ {
	case layout.InodeTypeDir:
		entries, err := f.ns.ReadDir(ino)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &dirHandle{ns: f.ns, name: path.Base(name), entries: entries}, nil
	case layout.InodeTypeFile:
		size := 0
		if n, err := f.ns.FileSize(ino); err == nil {
			size = n
		}
		return &fileHandle{ns: f.ns, name: path.Base(name), ino: ino, size: size}, nil
	default:
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
}

// inodeFileInfo implements fs.FileInfo over a namespace inode, for both
// files and directories.
type inodeFileInfo struct {
	name  string
	isDir bool
	size  int64
}

func (i *inodeFileInfo) Name() string { return i.name }
func (i *inodeFileInfo) Size() int64  { return i.size }
func (i *inodeFileInfo) Mode() fs.FileMode {
	if i.isDir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}
func (i *inodeFileInfo) ModTime() time.Time { return time.Time{} }
func (i *inodeFileInfo) IsDir() bool        { return i.isDir }
func (i *inodeFileInfo) Sys() any           { return nil }

type fileHandle struct {
	ns     *namespace.Namespace
	name   string
	ino    int
	size   int
	offset int
}

func (h *fileHandle) Stat() (fs.FileInfo, error) {
	return &inodeFileInfo{name: h.name, size: int64(h.size)}, nil
}

func (h *fileHandle) Read(p []byte) (int, error) {
	if h.offset >= h.size {
		return 0, io.EOF
	}
	chunk := h.ns.Read(h.ino, h.offset, len(p))
	if len(chunk) == 0 {
		return 0, io.EOF
	}
	n := copy(p, chunk)
	h.offset += n
	return n, nil
}

func (h *fileHandle) Close() error { return nil }

type dirHandle struct {
	ns      *namespace.Namespace
	name    string
	entries []namespace.DirEntry
	idx     int
}

func (h *dirHandle) Stat() (fs.FileInfo, error) {
	return &inodeFileInfo{name: h.name, isDir: true}, nil
}

func (h *dirHandle) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: h.name, Err: fs.ErrInvalid}
}

func (h *dirHandle) Close() error { return nil }

// ReadDir implements fs.ReadDirFile, skipping the "." and ".." self-
// entries every directory carries per spec §3 invariant 3 (an io/fs
// listing conventionally omits them).
func (h *dirHandle) ReadDir(n int) ([]fs.DirEntry, error) {
	var out []fs.DirEntry
	for h.idx < len(h.entries) && (n <= 0 || len(out) < n) {
		e := h.entries[h.idx]
		h.idx++
		if e.Name == "." || e.Name == ".." {
			continue
		}
		typ, err := h.ns.InodeType(e.Inode)
		if err != nil {
			return out, err
		}
		out = append(out, fs.FileInfoToDirEntry(&inodeFileInfo{name: e.Name, isDir: typ == layout.InodeTypeDir}))
	}
	if n > 0 && len(out) == 0 {
		return nil, io.EOF
	}
	return out, nil
}

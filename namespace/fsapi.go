package namespace

import "errors"

// ErrNotDirectory is returned by ReadDir when the given inode number does
// not name a directory.
var ErrNotDirectory = errors.New("namespace: not a directory")

// ErrNameTooLong is returned when a directory-entry name exceeds
// layout.MaxFilename bytes.
var ErrNameTooLong = errors.New("namespace: name too long")

// ErrDirectoryFull is returned when a directory has no room left for
// another entry (its size has reached layout.MaxFileSize).
var ErrDirectoryFull = errors.New("namespace: directory full")

// DirEntry is one (name, inode number) pair from a directory listing, in
// on-disk order. Used by ls in the shell and by the fsview read-only
// adapter.
type DirEntry struct {
	Name  string
	Inode int
}

// FileSystem is the subset of the teacher's filesystem.FileSystem
// interface this core actually implements, restated in terms of inode
// numbers rather than path-rooted File handles. Dropped relative to the
// teacher: Mknod, Symlink, Chmod, Chown, Rename, Remove, SetLabel — the
// Non-goals exclude symlinks and access control, and the Lifecycle
// paragraph says explicitly that there is no unlink/rmdir/rename.
// Namespace satisfies this interface; the int-returning methods mirror the
// −1-on-failure convention of the source it is grounded on rather than a
// Go idiomatic (T, error) pair, since callers (the shell, the tests) need
// to observe that exact convention. Read returns nil on failure, and
// ReadDir, which has no counterpart in the source, returns an error.
type FileSystem interface {
	Lookup(name string, dir int) int
	Create(dir int, name string, typ int) int
	Write(ino, offset int, data []byte) int
	Read(ino, offset, count int) []byte
	Link(targetPath, name string, cwd int) int
	PathToInodeNumber(path string, dir int) int
	GeneralPathToInodeNumber(path string, cwd int) int
	ReadDir(dir int) ([]DirEntry, error)
}

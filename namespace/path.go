package namespace

import "strings"

// PathToInodeNumber resolves path relative to dir: if path contains a
// "/", split on the first one, look up the head in dir, and recurse on
// the remainder inside the resulting inode; otherwise it is a plain
// Lookup. Spec §4.6. Empty components behave as Lookup of an empty name,
// which will not match anything.
func (ns *Namespace) PathToInodeNumber(path string, dir int) int {
	idx := strings.IndexByte(path, '/')
	if idx == -1 {
		return ns.Lookup(path, dir)
	}
	head := path[:idx]
	rest := path[idx+1:]
	next := ns.Lookup(head, dir)
	if next == -1 {
		return -1
	}
	return ns.PathToInodeNumber(rest, next)
}

// GeneralPathToInodeNumber resolves path relative to cwd, or from the
// root inode if path begins with "/". "/" alone returns root. Spec §4.6.
func (ns *Namespace) GeneralPathToInodeNumber(path string, cwd int) int {
	if path == "/" {
		return rootInode
	}
	if strings.HasPrefix(path, "/") {
		return ns.PathToInodeNumber(path[1:], rootInode)
	}
	return ns.PathToInodeNumber(path, cwd)
}

package fsview

import (
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/sirupsen/logrus"

	"github.com/parityfs/parityfs/layout"
	"github.com/parityfs/parityfs/namespace"
)

var log = logrus.WithField("component", "fsview")

// excludedNames mirrors sync/copy.go's filter of filesystem bookkeeping
// entries that should never make it into an imported namespace.
var excludedNames = map[string]bool{
	"lost+found":                true,
	".DS_Store":                 true,
	"System Volume Information": true,
}

// Import copies every regular file and directory from src into dst
// (a namespace.Namespace), starting at dstDir. Grounded on
// sync/copy.go's CopyFileSystem/copyDir, rewritten against
// namespace.Namespace's inode-number operations instead of
// filesystem.FileSystem's path-rooted ones, and bounded by this core's
// size limits (spec §3): a file larger than MAX_FILE_SIZE, a name longer
// than MAX_FILENAME, or running out of free inodes/directory slots stops
// the import with an error rather than silently truncating.
func Import(src fs.FS, dst *namespace.Namespace, dstDir int) error {
	return importDir(src, dst, ".", dstDir)
}

func importDir(src fs.FS, dst *namespace.Namespace, srcDir string, dstDir int) error {
	entries, err := fs.ReadDir(src, srcDir)
	if err != nil {
		return fmt.Errorf("fsview: import: read dir %s: %w", srcDir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if excludedNames[name] {
			continue
		}
		if len(name) > layout.MaxFilename {
			return fmt.Errorf("fsview: import: %s: name exceeds %d bytes", name, layout.MaxFilename)
		}

		srcPath := name
		if srcDir != "." {
			srcPath = path.Join(srcDir, name)
		}

		if entry.IsDir() {
			child := dst.Create(dstDir, name, layout.InodeTypeDir)
			if child == -1 {
				return fmt.Errorf("fsview: import: mkdir %s: namespace rejected Create", srcPath)
			}
			if err := importDir(src, dst, srcPath, child); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("fsview: import: stat %s: %w", srcPath, err)
		}
		if !info.Mode().IsRegular() {
			log.WithField("path", srcPath).Debug("skipping non-regular file")
			continue
		}
		if err := importFile(src, dst, srcPath, name, dstDir, info.Size()); err != nil {
			return fmt.Errorf("fsview: import: %s: %w", srcPath, err)
		}
	}
	return nil
}

func importFile(src fs.FS, dst *namespace.Namespace, srcPath, name string, dstDir int, size int64) error {
	if size > layout.MaxFileSize {
		return fmt.Errorf("%d bytes exceeds max file size %d", size, layout.MaxFileSize)
	}

	in, err := src.Open(srcPath)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	ino := dst.Create(dstDir, name, layout.InodeTypeFile)
	if ino == -1 {
		return fmt.Errorf("namespace rejected Create")
	}
	if n := dst.Write(ino, 0, data); n != len(data) {
		return fmt.Errorf("wrote %d of %d bytes", n, len(data))
	}
	return nil
}

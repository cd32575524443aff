package backend

import (
	"errors"
	"io"
	"io/fs"
)

var (
	ErrIncorrectOpenMode = errors.New("disk file or device not open for write")
	ErrNotSuitable       = errors.New("backing file is not suitable")
)

// WritableFile is the write half of a Storage, handed out by Writable()
// once the caller has confirmed the backing file isn't read-only.
type WritableFile interface {
	io.WriterAt
}

// Storage is the random-access file this core's dump format is read from
// and written to (dump/dump.go): random-access reads, a size, and a
// gate for the (possibly absent) write half. Trimmed to exactly what
// dump needs — no ioctl/sector-probing surface, no whole-device creation,
// since this core has no single backing disk image to probe or carve a
// partition out of (see DESIGN.md's backend/substorage.go entry for the
// same reasoning).
type Storage interface {
	io.ReaderAt
	io.Closer
	Stat() (fs.FileInfo, error)
	Writable() (WritableFile, error)
}

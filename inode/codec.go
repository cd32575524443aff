package inode

import (
	"encoding/binary"
	"fmt"

	"github.com/parityfs/parityfs/layout"
)

// Decode is total: it never fails on a correctly-sized buffer, and an
// all-zero buffer decodes to the invalid/empty inode (spec §4.4). b must
// be exactly layout.InodeSize bytes; a caller handing over a block slice
// of the wrong width is a programming error, not a recoverable one (mirrors
// memoryfs_client.py's InodeFromBytearray, which quit()s on oversized
// input).
func Decode(b []byte) (Inode, error) {
	if len(b) != layout.InodeSize {
		return Inode{}, fmt.Errorf("inode: Decode: expected %d bytes, got %d", layout.InodeSize, len(b))
	}
	var n Inode
	n.Size = binary.BigEndian.Uint32(b[0:4])
	n.Type = int(binary.BigEndian.Uint16(b[4:6]))
	n.Refcnt = binary.BigEndian.Uint16(b[6:8])
	for i := 0; i < layout.MaxInodeBlockNumbers; i++ {
		start := 8 + i*4
		n.BlockNumbers[i] = binary.BigEndian.Uint32(b[start : start+4])
	}
	return n, nil
}

// Encode serializes n into a fresh layout.InodeSize-byte big-endian
// record, the reverse of Decode.
func Encode(n Inode) []byte {
	out := make([]byte, layout.InodeSize)
	binary.BigEndian.PutUint32(out[0:4], n.Size)
	binary.BigEndian.PutUint16(out[4:6], uint16(n.Type))
	binary.BigEndian.PutUint16(out[6:8], n.Refcnt)
	for i := 0; i < layout.MaxInodeBlockNumbers; i++ {
		start := 8 + i*4
		binary.BigEndian.PutUint32(out[start:start+4], n.BlockNumbers[i])
	}
	return out
}

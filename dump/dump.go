package dump

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/parityfs/parityfs/backend/file"
	"github.com/parityfs/parityfs/layout"
)

var log = logrus.WithField("component", "dump")

// DefaultCodec is used by DumpToDisk when no particular codec is
// requested; lz4 was picked over xz for the default because a shell's
// `exit` dumps synchronously and lz4 trades ratio for speed.
const DefaultCodec = "lz4"

// FileName renders the exact pattern required by spec §6:
// "<uuid_hex>_BS_<BLOCK_SIZE>_NB_<TOTAL_NUM_BLOCKS>_IS_<INODE_SIZE>_MI_<MAX_NUM_INODES>.dump".
func FileName(uuid []byte) string {
	return fmt.Sprintf("%s_BS_%d_NB_%d_IS_%d_MI_%d.dump",
		hex.EncodeToString(uuid), layout.BlockSize, layout.TotalNumBlocks, layout.InodeSize, layout.MaxNumInodes)
}

// DumpToDisk serializes blocks (exactly TOTAL_NUM_BLOCKS entries, each
// BLOCK_SIZE bytes) to dir/FileName(uuid), compressed with the named
// codec. Grounded on memoryfs_client.py's DumpToDisk, which pickles the
// block list directly; this rewrite adds a small header recording which
// codec compressed the payload so LoadFromDisk doesn't need to be told.
func DumpToDisk(dir string, uuid []byte, blocks [][]byte, codecName string) error {
	if len(blocks) != layout.TotalNumBlocks {
		return fmt.Errorf("dump: DumpToDisk: expected %d blocks, got %d", layout.TotalNumBlocks, len(blocks))
	}
	codec, err := lookupCodec(codecName)
	if err != nil {
		return err
	}

	plain := make([]byte, 0, layout.TotalNumBlocks*layout.BlockSize)
	for i, b := range blocks {
		if len(b) != layout.BlockSize {
			return fmt.Errorf("dump: DumpToDisk: block %d has length %d, want %d", i, len(b), layout.BlockSize)
		}
		plain = append(plain, b...)
	}

	compressed, err := codec.Compress(plain)
	if err != nil {
		return fmt.Errorf("dump: DumpToDisk: compressing with %s: %w", codecName, err)
	}

	header := encodeHeader(codecName)
	path := filepath.Join(dir, FileName(uuid))

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("dump: DumpToDisk: %w", err)
	}
	storage := file.New(f, false)
	defer storage.Close()

	writable, err := storage.Writable()
	if err != nil {
		return fmt.Errorf("dump: DumpToDisk: %w", err)
	}
	if _, err := writable.WriteAt(header, 0); err != nil {
		return fmt.Errorf("dump: DumpToDisk: writing header: %w", err)
	}
	if _, err := writable.WriteAt(compressed, int64(len(header))); err != nil {
		return fmt.Errorf("dump: DumpToDisk: writing payload: %w", err)
	}

	log.WithFields(logrus.Fields{"path": path, "codec": codecName, "bytes": len(compressed)}).Info("dumped cluster to disk")
	return nil
}

// LoadFromDisk reads dir/FileName(uuid) back into TOTAL_NUM_BLOCKS blocks
// of BLOCK_SIZE bytes, using whichever codec the file's header names.
// Grounded on memoryfs_client.py's LoadFromDisk.
func LoadFromDisk(dir string, uuid []byte) ([][]byte, error) {
	path := filepath.Join(dir, FileName(uuid))
	storage, err := file.OpenFromPath(path, true)
	if err != nil {
		return nil, fmt.Errorf("dump: LoadFromDisk: %w", err)
	}
	defer storage.Close()

	info, err := storage.Stat()
	if err != nil {
		return nil, fmt.Errorf("dump: LoadFromDisk: %w", err)
	}
	raw := make([]byte, info.Size())
	if _, err := storage.ReadAt(raw, 0); err != nil {
		return nil, fmt.Errorf("dump: LoadFromDisk: %w", err)
	}

	codecName, payload, err := decodeHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("dump: LoadFromDisk: %w", err)
	}
	codec, err := lookupCodec(codecName)
	if err != nil {
		return nil, fmt.Errorf("dump: LoadFromDisk: %w", err)
	}

	plain, err := codec.Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("dump: LoadFromDisk: decompressing with %s: %w", codecName, err)
	}
	if len(plain) != layout.TotalNumBlocks*layout.BlockSize {
		return nil, fmt.Errorf("dump: LoadFromDisk: decompressed payload is %d bytes, want %d", len(plain), layout.TotalNumBlocks*layout.BlockSize)
	}

	blocks := make([][]byte, layout.TotalNumBlocks)
	for i := range blocks {
		start := i * layout.BlockSize
		blocks[i] = plain[start : start+layout.BlockSize]
	}
	log.WithFields(logrus.Fields{"path": path, "codec": codecName}).Info("loaded cluster from disk")
	return blocks, nil
}

// encodeHeader writes a one-byte length prefix followed by the codec
// name's ASCII bytes.
func encodeHeader(codecName string) []byte {
	out := make([]byte, 1+len(codecName))
	out[0] = byte(len(codecName))
	copy(out[1:], codecName)
	return out
}

func decodeHeader(raw []byte) (codecName string, payload []byte, err error) {
	if len(raw) < 1 {
		return "", nil, fmt.Errorf("truncated dump header")
	}
	n := int(raw[0])
	if len(raw) < 1+n {
		return "", nil, fmt.Errorf("truncated dump header")
	}
	return string(raw[1 : 1+n]), raw[1+n:], nil
}

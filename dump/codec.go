// Package dump implements the persisted-dump-file contract of §6: saving
// and restoring the cluster's TOTAL_NUM_BLOCKS-block shadow to a file
// named by the instance UUID and the four layout constants.
//
// The wire format of a dump file is implementation-defined (spec §6 says
// only that it must be round-trippable); this rewrite adds a pluggable
// compression codec ahead of the raw block concatenation, in the spirit
// of KarpelesLab-squashfs's comp.go compression-ID enum and its
// build-tag-gated init() registration per codec.
package dump

import "fmt"

// Codec compresses and decompresses a dump file's block payload. The
// uncompressed form is always the TOTAL_NUM_BLOCKS*BLOCK_SIZE bytes of
// every logical block concatenated in order.
type Codec interface {
	// Name is the short identifier stored in the dump file header and
	// used to look the codec back up on load.
	Name() string
	Compress(plain []byte) ([]byte, error)
	Decompress(compressed []byte) ([]byte, error)
}

var registry = map[string]Codec{}

// RegisterCodec makes a codec available to DumpToDisk/LoadFromDisk by
// name. Codecs register themselves from an init() in their own file,
// mirroring RegisterCompHandler's per-format registration.
func RegisterCodec(c Codec) {
	registry[c.Name()] = c
}

func lookupCodec(name string) (Codec, error) {
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("dump: unknown codec %q", name)
	}
	return c, nil
}

// noneCodec is the identity codec, registered unconditionally so a dump
// file is always round-trippable even with no compression codec
// available/selected.
type noneCodec struct{}

func (noneCodec) Name() string                                 { return "none" }
func (noneCodec) Compress(plain []byte) ([]byte, error)         { return plain, nil }
func (noneCodec) Decompress(compressed []byte) ([]byte, error)  { return compressed, nil }

func init() {
	RegisterCodec(noneCodec{})
}

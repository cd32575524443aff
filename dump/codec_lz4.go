package dump

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4"
)

// lz4Codec is the default compression codec for dump files: fast enough
// that DumpToDisk on shell `exit` doesn't stall the interactive session.
type lz4Codec struct{}

func (lz4Codec) Name() string { return "lz4" }

func (lz4Codec) Compress(plain []byte) ([]byte, error) {
	var out bytes.Buffer
	w := lz4.NewWriter(&out)
	if _, err := w.Write(plain); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (lz4Codec) Decompress(compressed []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(compressed))
	return io.ReadAll(r)
}

func init() {
	RegisterCodec(lz4Codec{})
}

package dump

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"
)

// xzCodec trades compression speed for a smaller archival dump, for
// operators who persist dumps off-cluster rather than reloading them on
// the next process start.
type xzCodec struct{}

func (xzCodec) Name() string { return "xz" }

func (xzCodec) Compress(plain []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := xz.NewWriter(&out)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plain); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (xzCodec) Decompress(compressed []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func init() {
	RegisterCodec(xzCodec{})
}

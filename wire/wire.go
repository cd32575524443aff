// Package wire defines the block-server wire contract described in spec
// §6: six procedures, their argument/reply shapes, and the Go interface
// every transport (in-process, net/rpc) implements identically.
package wire

// BlockServer is the entire public contract of a block server (C1). Every
// transport — an in-process *blockserver.Server, or a net/rpc client stub —
// satisfies this interface, so the striping client (C2) and the cluster
// lock (C7) never know which one they're talking to.
type BlockServer interface {
	// Get returns the current bytes of shard block b.
	Get(b int) ([]byte, error)
	// Put replaces shard block b with data, which must be exactly
	// layout.BlockSize bytes (callers pad).
	Put(b int, data []byte) error
	// GetChecksum returns the stored MD5 hex digest for shard block b.
	GetChecksum(b int) (string, error)
	// PutChecksum stores the MD5 hex digest for shard block b.
	PutChecksum(b int, digest string) error
	// GetFlag returns the one-shot init flag (0 or 1).
	GetFlag() (int, error)
	// SetFlag sets the init flag to 1. Idempotent.
	SetFlag() error
	// ReadSetBlock atomically returns the previous bytes of block b and
	// writes v into it. The only test-and-set primitive; used exclusively
	// by the cluster lock, and only ever invoked on block 0.
	ReadSetBlock(b int, v []byte) ([]byte, error)
}

// GetArgs/GetReply and friends give the net/rpc transport (blockserver/rpc.go)
// named, gob-encodable request/response types instead of bare positional
// arguments, so the wire shape is documented in one place.

type GetArgs struct{ Block int }
type GetReply struct{ Data []byte }

type PutArgs struct {
	Block int
	Data  []byte
}
type PutReply struct{}

type GetChecksumArgs struct{ Block int }
type GetChecksumReply struct{ Digest string }

type PutChecksumArgs struct {
	Block  int
	Digest string
}
type PutChecksumReply struct{}

type GetFlagArgs struct{}
type GetFlagReply struct{ Flag int }

type SetFlagArgs struct{}
type SetFlagReply struct{}

type ReadSetBlockArgs struct {
	Block int
	Value []byte
}
type ReadSetBlockReply struct{ Previous []byte }

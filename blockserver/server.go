// Package blockserver implements C1: a single block server holding one
// shard of raw blocks plus per-block checksums, with an init flag and a
// test-and-set primitive used only by the cluster lock.
package blockserver

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/parityfs/parityfs/layout"
)

var log = logrus.WithField("component", "blockserver")

// Server holds TotalNumBlocks byte buffers, each BlockSize long, a parallel
// array of MD5 hex-digest checksums, and a one-shot init flag. It is safe
// for concurrent use: ReadSetBlock must be atomic with respect to every
// other operation on the same block (spec §5), so all mutation is guarded
// by a single mutex per server — a server is an RPC handler boundary, not a
// place for fine-grained locking.
type Server struct {
	mu        sync.Mutex
	blocks    [][]byte
	checksums []string
	flag      int

	corrupt    bool
	corruptIdx int
}

// New creates a Server with every block zero-initialized and its checksum
// set to MD5 of the zero block.
func New() *Server {
	zero := make([]byte, layout.BlockSize)
	zeroSum := checksum(zero)

	s := &Server{
		blocks:    make([][]byte, layout.TotalNumBlocks),
		checksums: make([]string, layout.TotalNumBlocks),
	}
	for i := range s.blocks {
		b := make([]byte, layout.BlockSize)
		s.blocks[i] = b
		s.checksums[i] = zeroSum
	}
	return s
}

// Corrupt marks block index idx as born corrupt: its bytes are replaced
// with a fixed "error" marker that will not match its (unchanged) stored
// checksum, so the first verified read of it will trigger a rebuild.
// Mirrors memoryfs_server.py's damage_block_number CLI argument (spec
// §4.1's fault-injection note).
func (s *Server) Corrupt(idx int) error {
	if idx < 0 || idx >= layout.TotalNumBlocks {
		return fmt.Errorf("blockserver: corrupt index %d out of range", idx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	marker := []byte("error")
	padded := make([]byte, layout.BlockSize)
	copy(padded, marker)
	s.blocks[idx] = padded
	s.corrupt = true
	s.corruptIdx = idx
	log.WithField("block", idx).Warn("server started with a corrupt block")
	return nil
}

func checksum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (s *Server) checkRange(b int) error {
	if b < 0 || b >= layout.TotalNumBlocks {
		return fmt.Errorf("blockserver: block %d out of range [0,%d)", b, layout.TotalNumBlocks)
	}
	return nil
}

// Get returns the current bytes of shard block b.
func (s *Server) Get(b int) ([]byte, error) {
	if err := s.checkRange(b); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	log.WithField("block", b).Debug("Get")
	out := make([]byte, len(s.blocks[b]))
	copy(out, s.blocks[b])
	return out, nil
}

// Put replaces shard block b with data. data is assumed caller-padded to
// BlockSize; a short buffer is zero-padded defensively, a long one is an
// error (the source's Put quits on oversized input).
func (s *Server) Put(b int, data []byte) error {
	if err := s.checkRange(b); err != nil {
		return err
	}
	if len(data) > layout.BlockSize {
		return fmt.Errorf("blockserver: Put block %d: data larger than BlockSize (%d)", b, len(data))
	}
	padded := make([]byte, layout.BlockSize)
	copy(padded, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	log.WithField("block", b).Debug("Put")
	s.blocks[b] = padded
	return nil
}

// GetChecksum returns the stored digest for block b.
func (s *Server) GetChecksum(b int) (string, error) {
	if err := s.checkRange(b); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checksums[b], nil
}

// PutChecksum stores digest for block b.
func (s *Server) PutChecksum(b int, digest string) error {
	if err := s.checkRange(b); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checksums[b] = digest
	return nil
}

// GetFlag returns the one-shot init flag.
func (s *Server) GetFlag() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flag, nil
}

// SetFlag sets the init flag to 1. Monotonic: never resets to 0.
func (s *Server) SetFlag() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flag = 1
	return nil
}

// ReadSetBlock atomically returns the previous bytes of block b and writes
// v into it. This is the only primitive in the contract that must be
// atomic with respect to all other operations on that block (spec §5) —
// it is the building block the cluster lock's spinlock is made of.
func (s *Server) ReadSetBlock(b int, v []byte) ([]byte, error) {
	if err := s.checkRange(b); err != nil {
		return nil, err
	}
	padded := make([]byte, layout.BlockSize)
	copy(padded, v)

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := make([]byte, len(s.blocks[b]))
	copy(prev, s.blocks[b])
	s.blocks[b] = padded
	return prev, nil
}

// Snapshot returns a copy of every block, in order, for dump-to-disk use.
func (s *Server) Snapshot() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.blocks))
	for i, b := range s.blocks {
		cp := make([]byte, len(b))
		copy(cp, b)
		out[i] = cp
	}
	return out
}

// DumpBlocks logs the hex contents of blocks [min,max) at debug level.
// Ports memoryfs_client.py's PrintBlocks diagnostic (spec §9 supplemented
// features); this core logs rather than prints, per SPEC_FULL.md's Logging
// section.
func (s *Server) DumpBlocks(tag string, min, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := min; i < max && i < len(s.blocks); i++ {
		log.WithFields(logrus.Fields{
			"tag":   tag,
			"block": i,
		}).Debugf("%x", s.blocks[i])
	}
}

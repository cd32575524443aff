// Package stripe implements C2: the striping and single-parity client. It
// maps a logical block number to a (server, shard-block) pair and its
// rotating parity pair, performs verified reads with rebuild-on-mismatch,
// and read-modify-write parity updates on writes.
//
// Grounded directly on memoryfs_client.py's DiskBlocks class: the mapping
// arithmetic (Map/ParityMap), the verified-read/rebuild shape of Get, and
// the read-old/read-parity/write-both shape of Put are all preserved
// exactly, since spec §4.2 is that class restated.
package stripe

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/parityfs/parityfs/layout"
	"github.com/parityfs/parityfs/wire"
)

var log = logrus.WithField("component", "stripe")

// PhysicalBlock names a (server, shard-block) pair.
type PhysicalBlock struct {
	Server int
	Block  int
}

// Client is the striping and parity client. N servers hold
// TotalNumBlocks/(N-1) shard-blocks each; one server per stripe row holds
// the XOR parity of the row's data shards.
type Client struct {
	servers []wire.BlockServer

	mu   sync.Mutex
	puts []int
	gets []int
}

// NewClient builds a striping client over the given ordered list of block
// server connections. N = len(servers) must be at least 2 (one data shard
// plus one parity shard).
func NewClient(servers []wire.BlockServer) (*Client, error) {
	if len(servers) < 2 {
		return nil, fmt.Errorf("stripe: need at least 2 servers, got %d", len(servers))
	}
	return &Client{
		servers: servers,
		puts:    make([]int, len(servers)),
		gets:    make([]int, len(servers)),
	}, nil
}

// N returns the number of servers in the cluster.
func (c *Client) N() int { return len(c.servers) }

// Counters returns copies of the per-server put/get counters (spec §4.2,
// §8 scenario 5; the original's servers_put/servers_get).
func (c *Client) Counters() (puts, gets []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	puts = make([]int, len(c.puts))
	gets = make([]int, len(c.gets))
	copy(puts, c.puts)
	copy(gets, c.gets)
	return puts, gets
}

// Map returns the data server and shard-block index for logical block b.
func (c *Client) Map(b int) PhysicalBlock {
	n := len(c.servers)
	row := (b / (n - 1)) % n
	parity := n - 1 - row
	mod := b % (n - 1)
	var server int
	if mod >= parity {
		server = mod + 1
	} else {
		server = mod
	}
	return PhysicalBlock{Server: server, Block: b / (n - 1)}
}

// ParityMap returns the parity server and shard-block index for the
// stripe row that logical block b belongs to.
func (c *Client) ParityMap(b int) PhysicalBlock {
	n := len(c.servers)
	row := (b / (n - 1)) % n
	parity := n - 1 - row
	return PhysicalBlock{Server: parity, Block: b / (n - 1)}
}

func checksum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// verifiedRead fetches the shard's checksum and bytes and returns them if
// they match; otherwise it rebuilds from every other server at the same
// shard-block index. A transport failure on either call is treated
// identically to a checksum mismatch (spec §4.2, §7): both trigger rebuild.
func (c *Client) verifiedRead(pb PhysicalBlock) ([]byte, error) {
	srv := c.servers[pb.Server]

	sum, sumErr := srv.GetChecksum(pb.Block)
	data, dataErr := srv.Get(pb.Block)

	if sumErr == nil && dataErr == nil && sum == checksum(data) {
		return data, nil
	}

	log.WithFields(logrus.Fields{
		"server": pb.Server,
		"block":  pb.Block,
	}).Debug("verified read failed, rebuilding from parity peers")
	return c.rebuild(pb)
}

// rebuild reconstructs the contents of physical block pb by XOR-ing the
// corresponding shard-block on every other server. It never writes
// anything back (spec §4.2): the next verified read may rebuild again.
func (c *Client) rebuild(pb PhysicalBlock) ([]byte, error) {
	var result []byte
	for i, srv := range c.servers {
		if i == pb.Server {
			continue
		}
		data, err := srv.Get(pb.Block)
		if err != nil {
			return nil, fmt.Errorf("stripe: rebuild of server %d block %d: peer %d unreachable: %w", pb.Server, pb.Block, i, err)
		}
		if result == nil {
			result = make([]byte, len(data))
			copy(result, data)
			continue
		}
		for j := range result {
			result[j] ^= data[j]
		}
	}
	if result == nil {
		return nil, fmt.Errorf("stripe: rebuild of server %d block %d: no peers", pb.Server, pb.Block)
	}
	return result, nil
}

// Get performs a verified read of logical block b, per spec §4.2: compute
// the data server and shard index, fetch checksum+bytes, verify, rebuild
// on mismatch. Only the data-server get counter is incremented; rebuilds
// are not counted (spec §4.2, §8 scenario 5).
func (c *Client) Get(b int) ([]byte, error) {
	if b < 0 || b >= layout.TotalNumBlocks {
		return nil, fmt.Errorf("stripe: Get: block %d out of range", b)
	}
	pb := c.Map(b)

	c.mu.Lock()
	c.gets[pb.Server]++
	c.mu.Unlock()

	return c.verifiedRead(pb)
}

// Put writes v to logical block b using read-modify-write parity update
// (spec §4.2):
//  1. old <- verified Get(b)
//  2. parity_old <- verified read of the parity shard
//  3. parity_new <- old XOR v XOR parity_old
//  4. write v+checksum to the data server, parity_new+checksum to the
//     parity server; either write failing in transport is silently
//     dropped (spec §9: no hidden retries — the next verified read
//     self-heals via parity).
func (c *Client) Put(b int, v []byte) error {
	if b < 0 || b >= layout.TotalNumBlocks {
		return fmt.Errorf("stripe: Put: block %d out of range", b)
	}
	if len(v) > layout.BlockSize {
		return fmt.Errorf("stripe: Put: block %d: data larger than BlockSize", b)
	}
	padded := make([]byte, layout.BlockSize)
	copy(padded, v)

	dataPB := c.Map(b)
	parityPB := c.ParityMap(b)

	c.mu.Lock()
	c.puts[dataPB.Server]++
	c.puts[parityPB.Server]++
	c.mu.Unlock()

	old, err := c.verifiedRead(dataPB)
	if err != nil {
		return fmt.Errorf("stripe: Put: reading old data shard: %w", err)
	}
	parityOld, err := c.verifiedRead(parityPB)
	if err != nil {
		return fmt.Errorf("stripe: Put: reading old parity shard: %w", err)
	}

	parityNew := make([]byte, layout.BlockSize)
	for i := range parityNew {
		parityNew[i] = old[i] ^ padded[i] ^ parityOld[i]
	}

	c.writeShard(dataPB, padded)
	c.writeShard(parityPB, parityNew)

	return nil
}

// writeShard writes data and its checksum to the given physical block.
// Transport failures are intentionally swallowed here (spec §4.2 step 4,
// §9): a dropped write is indistinguishable, from the caller's
// perspective, from one a flaky network ate, and the next verified read
// will rebuild it from parity.
func (c *Client) writeShard(pb PhysicalBlock, data []byte) {
	srv := c.servers[pb.Server]
	if err := srv.Put(pb.Block, data); err != nil {
		log.WithFields(logrus.Fields{
			"server": pb.Server,
			"block":  pb.Block,
		}).WithError(err).Debug("Put failed in transport, dropped")
		return
	}
	if err := srv.PutChecksum(pb.Block, checksum(data)); err != nil {
		log.WithFields(logrus.Fields{
			"server": pb.Server,
			"block":  pb.Block,
		}).WithError(err).Debug("PutChecksum failed in transport, dropped")
	}
}

// InitializeBlocks establishes a clean-slate layout: writes uuid into
// block 0, the serialized superblock into block 1, and zero-fills the
// rest. Spec §4.2.
func (c *Client) InitializeBlocks(uuid []byte) error {
	if err := c.Put(0, uuid); err != nil {
		return fmt.Errorf("stripe: InitializeBlocks: writing boot block: %w", err)
	}
	sb := EncodeSuperblock()
	if err := c.Put(1, sb); err != nil {
		return fmt.Errorf("stripe: InitializeBlocks: writing superblock: %w", err)
	}
	zero := make([]byte, layout.BlockSize)
	for i := layout.FreeBitmapBlockOffset; i < layout.TotalNumBlocks; i++ {
		if err := c.Put(i, zero); err != nil {
			return fmt.Errorf("stripe: InitializeBlocks: zeroing block %d: %w", i, err)
		}
	}
	return nil
}

// LoadBlocks re-Puts every block from a previously dumped snapshot, in
// order, mirroring memoryfs_client.py's LoadFromDisk.
func (c *Client) LoadBlocks(blocks [][]byte) error {
	if len(blocks) != layout.TotalNumBlocks {
		return fmt.Errorf("stripe: LoadBlocks: expected %d blocks, got %d", layout.TotalNumBlocks, len(blocks))
	}
	for i, b := range blocks {
		if err := c.Put(i, b); err != nil {
			return fmt.Errorf("stripe: LoadBlocks: block %d: %w", i, err)
		}
	}
	return nil
}

// Snapshot reads every logical block back out, via verified Get, for
// DumpToDisk use.
func (c *Client) Snapshot() ([][]byte, error) {
	out := make([][]byte, layout.TotalNumBlocks)
	for i := range out {
		data, err := c.Get(i)
		if err != nil {
			return nil, fmt.Errorf("stripe: Snapshot: block %d: %w", i, err)
		}
		out[i] = data
	}
	return out, nil
}

// EncodeSuperblock serializes the four layout constants as big-endian
// uint32s: [TotalNumBlocks, BlockSize, MaxNumInodes, InodeSize]. The
// original pickles a Python list; this rewrite picks a fixed binary
// encoding instead (stdlib encoding/binary) so the format doesn't depend
// on a language-specific serializer, while keeping the same four values
// in the same order (spec §4.3).
func EncodeSuperblock() []byte {
	out := make([]byte, 16)
	putU32(out[0:4], layout.TotalNumBlocks)
	putU32(out[4:8], layout.BlockSize)
	putU32(out[8:12], layout.MaxNumInodes)
	putU32(out[12:16], layout.InodeSize)
	return out
}

func putU32(b []byte, v int) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

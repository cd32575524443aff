package stripe_test

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/parityfs/parityfs/blockserver"
	"github.com/parityfs/parityfs/layout"
	"github.com/parityfs/parityfs/stripe"
	"github.com/parityfs/parityfs/wire"
)

func newCluster(t *testing.T, n int) (*stripe.Client, []*blockserver.Server) {
	t.Helper()
	servers := make([]*blockserver.Server, n)
	wired := make([]wire.BlockServer, n)
	for i := range servers {
		servers[i] = blockserver.New()
		wired[i] = servers[i]
	}
	c, err := stripe.NewClient(wired)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, servers
}

func TestMapSkipsParityServer(t *testing.T) {
	c, _ := newCluster(t, 3)
	for b := 0; b < layout.TotalNumBlocks; b++ {
		data := c.Map(b)
		parity := c.ParityMap(b)
		if data.Server == parity.Server {
			t.Fatalf("block %d: data server %d collides with parity server", b, data.Server)
		}
		if data.Block != parity.Block {
			t.Fatalf("block %d: data shard index %d != parity shard index %d", b, data.Block, parity.Block)
		}
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c, _ := newCluster(t, 3)
	if err := c.InitializeBlocks([]byte{0x12, 0x34, 0x56, 0x78}); err != nil {
		t.Fatalf("InitializeBlocks: %v", err)
	}
	payload := []byte("some block payload")
	if err := c.Put(42, payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get(42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got[:len(payload)]) != string(payload) {
		t.Fatalf("got %q want prefix %q", got, payload)
	}
}

// TestParityInvariant is I1: for every stripe row, XOR of all shards at a
// given shard index equals zero once the row's data shards and parity
// agree.
func TestParityInvariant(t *testing.T) {
	c, servers := newCluster(t, 3)
	if err := c.InitializeBlocks([]byte{0, 0, 0, 0}); err != nil {
		t.Fatalf("InitializeBlocks: %v", err)
	}
	for b := 2; b < 40; b++ {
		if err := c.Put(b, []byte{byte(b), byte(b * 3), byte(b + 7)}); err != nil {
			t.Fatalf("Put(%d): %v", b, err)
		}
	}

	n := c.N()
	for shardIdx := 0; shardIdx < layout.TotalNumBlocks/(n-1); shardIdx++ {
		xor := make([]byte, layout.BlockSize)
		for _, srv := range servers {
			data, err := srv.Get(shardIdx)
			if err != nil {
				t.Fatalf("Get(%d): %v", shardIdx, err)
			}
			for i := range xor {
				xor[i] ^= data[i]
			}
		}
		for i, v := range xor {
			if v != 0 {
				t.Fatalf("shard index %d: XOR of all servers not zero at byte %d: %v", shardIdx, i, xor)
			}
		}
	}
}

// TestChecksumInvariant is I2.
func TestChecksumInvariant(t *testing.T) {
	c, servers := newCluster(t, 3)
	if err := c.InitializeBlocks([]byte{0, 0, 0, 0}); err != nil {
		t.Fatalf("InitializeBlocks: %v", err)
	}
	if err := c.Put(10, []byte("abc")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	for i, srv := range servers {
		for b := 0; b < layout.TotalNumBlocks/(c.N()-1); b++ {
			data, err := srv.Get(b)
			if err != nil {
				t.Fatalf("server %d Get(%d): %v", i, b, err)
			}
			sum, err := srv.GetChecksum(b)
			if err != nil {
				t.Fatalf("server %d GetChecksum(%d): %v", i, b, err)
			}
			if sum != md5Hex(data) {
				t.Fatalf("server %d block %d: checksum mismatch", i, b)
			}
		}
	}
}

// TestRebuildOnCorruption is I7: a corrupted or unreachable shard is
// masked by rebuild-via-parity, and the get counter only increments for
// the data server (rebuild reads are not counted).
func TestRebuildOnCorruption(t *testing.T) {
	c, servers := newCluster(t, 3)
	if err := c.InitializeBlocks([]byte{0, 0, 0, 0}); err != nil {
		t.Fatalf("InitializeBlocks: %v", err)
	}
	payload := []byte("resilient payload")
	if err := c.Put(5, payload); err != nil {
		t.Fatalf("Put: %v", err)
	}

	pb := c.Map(5)
	if err := servers[pb.Server].Corrupt(pb.Block); err != nil {
		t.Fatalf("Corrupt: %v", err)
	}

	_, getsBefore := c.Counters()
	got, err := c.Get(5)
	if err != nil {
		t.Fatalf("Get after corruption: %v", err)
	}
	if string(got[:len(payload)]) != string(payload) {
		t.Fatalf("got %q want prefix %q after rebuild", got, payload)
	}
	_, getsAfter := c.Counters()
	if getsAfter[pb.Server] != getsBefore[pb.Server]+1 {
		t.Fatalf("expected exactly one get counted on server %d, before=%d after=%d",
			pb.Server, getsBefore[pb.Server], getsAfter[pb.Server])
	}
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

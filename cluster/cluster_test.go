package cluster_test

import (
	"sync"
	"testing"

	"github.com/parityfs/parityfs/blockserver"
	"github.com/parityfs/parityfs/cluster"
	"github.com/parityfs/parityfs/layout"
	"github.com/parityfs/parityfs/testhelper"
	"github.com/parityfs/parityfs/wire"
)

func newClusterWithDump(dir string, uuid []byte) (*cluster.Cluster, error) {
	wired := make([]wire.BlockServer, 3)
	for i := range wired {
		wired[i] = blockserver.New()
	}
	cl, err := cluster.New(wired, cluster.Config{UUID: uuid, DumpDir: dir})
	if err != nil {
		return nil, err
	}
	if err := cl.Bootstrap(); err != nil {
		return nil, err
	}
	return cl, nil
}

// TestScenario1FreshInitMkdirLs exercises §8 scenario 1 end-to-end
// through the assembled Cluster rather than a bare Namespace.
func TestScenario1FreshInitMkdirLs(t *testing.T) {
	cl, _, err := testhelper.NewCluster(3, []byte{0x12, 0x34, 0x56, 0x78})
	if err != nil {
		t.Fatalf("NewCluster: %v", err)
	}
	if m := cl.NS.Create(0, "foo", layout.InodeTypeDir); m == -1 {
		t.Fatal("mkdir foo failed")
	}
	entries, err := cl.NS.ReadDir(0)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "." || entries[1].Name != "foo" {
		t.Fatalf("ls = %+v, want [. foo]", entries)
	}
	refcnt, _ := cl.NS.Refcnt(0)
	if refcnt != 2 {
		t.Fatalf("root refcnt = %d, want 2", refcnt)
	}
}

// TestScenario2AppendCat exercises §8 scenario 2.
func TestScenario2AppendCat(t *testing.T) {
	cl, _, err := testhelper.NewCluster(3, []byte{0, 0, 0, 1})
	if err != nil {
		t.Fatalf("NewCluster: %v", err)
	}
	f := cl.NS.Create(0, "f", layout.InodeTypeFile)
	cl.NS.Write(f, 0, []byte("hello"))
	size, _ := cl.NS.FileSize(f)
	cl.NS.Write(f, size, []byte("world"))
	got := cl.NS.Read(f, 0, 10)
	if string(got) != "helloworld" {
		t.Fatalf("cat f = %q, want helloworld", got)
	}
	size, _ = cl.NS.FileSize(f)
	if size != 10 {
		t.Fatalf("size = %d, want 10", size)
	}
}

// TestScenario5ParityRebuild exercises §8 scenario 5: corrupting the shard
// that holds a file's data block still yields the file's correct contents
// (rebuilt from parity), and the read does not lower that server's get
// counter.
func TestScenario5ParityRebuild(t *testing.T) {
	cl, servers, err := testhelper.NewCluster(3, []byte{0, 0, 0, 2})
	if err != nil {
		t.Fatalf("NewCluster: %v", err)
	}
	f := cl.NS.Create(0, "f", layout.InodeTypeFile)
	cl.NS.Write(f, 0, []byte("parity test payload"))

	size, _ := cl.NS.FileSize(f)
	payload := "parity test payload"
	fileBlockLogical := -1
	for b := layout.DataBlocksOffset; b < layout.TotalNumBlocks; b++ {
		data, err := cl.Stripe.Get(b)
		if err == nil && string(data[:len(payload)]) == payload {
			fileBlockLogical = b
			break
		}
	}
	if fileBlockLogical == -1 {
		t.Skip("no data block holds the file's contents")
	}
	pb := cl.Stripe.Map(fileBlockLogical)
	if err := servers[pb.Server].Corrupt(pb.Block); err != nil {
		t.Fatalf("Corrupt: %v", err)
	}

	_, getsBefore := cl.Stripe.Counters()
	got := cl.NS.Read(f, 0, size)
	if string(got) != "parity test payload" {
		t.Fatalf("Read after corruption = %q", got)
	}
	_, getsAfter := cl.Stripe.Counters()
	if getsAfter[pb.Server] < getsBefore[pb.Server] {
		t.Fatalf("get counter on server %d went backwards", pb.Server)
	}
}

// TestScenario6ClusterLockContention exercises §8 scenario 6: two
// concurrent mkdir operations under the lock never corrupt the parent
// directory, and both succeed in some order.
func TestScenario6ClusterLockContention(t *testing.T) {
	cl, _, err := testhelper.NewCluster(3, []byte{0, 0, 0, 3})
	if err != nil {
		t.Fatalf("NewCluster: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	results := make([]int, 2)
	mkdir := func(i int, name string) {
		defer wg.Done()
		if err := cl.Lock.Acquire(); err != nil {
			t.Errorf("Acquire: %v", err)
			return
		}
		defer cl.Lock.Release()
		results[i] = cl.NS.Create(0, name, layout.InodeTypeDir)
	}
	go mkdir(0, "a")
	go mkdir(1, "b")
	wg.Wait()

	if results[0] == -1 || results[1] == -1 {
		t.Fatalf("expected both mkdirs to succeed, got %v", results)
	}
	refcnt, _ := cl.NS.Refcnt(0)
	if refcnt != 3 {
		t.Fatalf("root refcnt = %d, want 3", refcnt)
	}
	if cl.NS.Lookup("a", 0) == -1 || cl.NS.Lookup("b", 0) == -1 {
		t.Fatal("expected both a and b to exist")
	}
}

func TestDumpAndReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	uuid := []byte{0xaa, 0xbb, 0xcc, 0xdd}

	servers1, err := newClusterWithDump(dir, uuid)
	if err != nil {
		t.Fatalf("first cluster: %v", err)
	}
	f := servers1.NS.Create(0, "persisted", layout.InodeTypeFile)
	servers1.NS.Write(f, 0, []byte("saved"))
	if err := servers1.Dump(); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	servers2, err := newClusterWithDump(dir, uuid)
	if err != nil {
		t.Fatalf("second cluster: %v", err)
	}
	if servers2.NS.Lookup("persisted", 0) == -1 {
		t.Fatal("expected restored cluster to contain the persisted file")
	}
}

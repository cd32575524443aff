package clusterlock_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parityfs/parityfs/blockserver"
	"github.com/parityfs/parityfs/clusterlock"
)

// TestMutualExclusion is I8: under concurrent contention from k clients,
// exactly one client at a time observes the lock as acquired.
func TestMutualExclusion(t *testing.T) {
	srv := blockserver.New()
	const k = 8
	const rounds = 20

	var holders int32
	var maxObserved int32
	var wg sync.WaitGroup
	wg.Add(k)

	for i := 0; i < k; i++ {
		go func() {
			defer wg.Done()
			l := clusterlock.New(srv)
			for r := 0; r < rounds; r++ {
				if err := l.Acquire(); err != nil {
					t.Errorf("Acquire: %v", err)
					return
				}
				n := atomic.AddInt32(&holders, 1)
				for {
					old := atomic.LoadInt32(&maxObserved)
					if n <= old || atomic.CompareAndSwapInt32(&maxObserved, old, n) {
						break
					}
				}
				time.Sleep(time.Microsecond)
				atomic.AddInt32(&holders, -1)
				if err := l.Release(); err != nil {
					t.Errorf("Release: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if maxObserved != 1 {
		t.Fatalf("expected at most 1 concurrent holder, observed %d", maxObserved)
	}
}

func TestBootstrapRunsInitOnce(t *testing.T) {
	srv := blockserver.New()
	l := clusterlock.New(srv)

	var calls int32
	init := func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}

	if err := l.Bootstrap(init); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := l.Bootstrap(init); err != nil {
		t.Fatalf("Bootstrap (second): %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected init to run exactly once, ran %d times", calls)
	}
}

func TestBootstrapZeroesLockByte(t *testing.T) {
	srv := blockserver.New()
	// simulate a dirty lock byte left over from before init, as if
	// something had written non-zero data to block 0.
	if err := srv.Put(0, []byte{0xff, 1, 2, 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	l := clusterlock.New(srv)
	if err := l.Bootstrap(func() error { return nil }); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	data, err := srv.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if data[0] != 0 {
		t.Fatalf("expected lock byte zeroed after bootstrap, got %v", data[0])
	}
}

// Package testhelper provides small in-process stand-ins for exercising
// the cluster package without real network listeners. Grounded on the
// teacher's testhelper package (a stub backing file for filesystem
// tests): the same "small test-only stub" idiom, rewritten here as a
// stub N-server cluster rather than a stub single file, since that is
// what this domain's tests need to drive.
package testhelper

import (
	"fmt"

	"github.com/parityfs/parityfs/blockserver"
	"github.com/parityfs/parityfs/cluster"
	"github.com/parityfs/parityfs/wire"
)

// NewCluster builds an n-server in-process cluster (no RPC listeners,
// direct *blockserver.Server references wrapped as wire.BlockServer) and
// bootstraps it with the given UUID. Returns the cluster and the
// underlying servers, for tests that want to inject corruption or read
// per-server state directly.
func NewCluster(n int, uuid []byte) (*cluster.Cluster, []*blockserver.Server, error) {
	servers := make([]*blockserver.Server, n)
	wired := make([]wire.BlockServer, n)
	for i := range servers {
		servers[i] = blockserver.New()
		wired[i] = servers[i]
	}
	cl, err := cluster.New(wired, cluster.Config{UUID: uuid})
	if err != nil {
		return nil, nil, fmt.Errorf("testhelper: NewCluster: %w", err)
	}
	if err := cl.Bootstrap(); err != nil {
		return nil, nil, fmt.Errorf("testhelper: NewCluster: %w", err)
	}
	return cl, servers, nil
}

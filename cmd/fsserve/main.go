// Command fsserve exposes a running cluster's namespace read-only over
// HTTP. Grounded on examples/serve-image/main.go's flag-driven
// http.FileServer(http.FS(...)) pattern, with the image file replaced by
// a dialed cluster.
package main

import (
	"encoding/hex"
	"flag"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/parityfs/parityfs/blockserver"
	"github.com/parityfs/parityfs/cluster"
	"github.com/parityfs/parityfs/fsview"
	"github.com/parityfs/parityfs/wire"
)

var log = logrus.WithField("component", "cmd/fsserve")

func main() {
	addrList := flag.String("servers", "localhost:9000,localhost:9001,localhost:9002", "comma-separated block server addresses")
	uuidHex := flag.String("uuid", "12345678", "hex-encoded instance UUID")
	dumpDir := flag.String("dump-dir", "", "directory to restore a prior dump from; empty disables persistence")
	httpAddr := flag.String("addr", ":8100", "address & port to serve HTTP on")
	flag.Parse()

	uuid, err := hex.DecodeString(*uuidHex)
	if err != nil {
		log.WithError(err).Fatal("invalid -uuid")
	}

	addrs := strings.Split(*addrList, ",")
	servers := make([]wire.BlockServer, len(addrs))
	for i, addr := range addrs {
		c, err := blockserver.DialRPC(strings.TrimSpace(addr))
		if err != nil {
			log.WithError(err).WithField("addr", addr).Fatal("cannot dial block server")
		}
		servers[i] = c
	}

	cl, err := cluster.New(servers, cluster.Config{UUID: uuid, DumpDir: *dumpDir})
	if err != nil {
		log.WithError(err).Fatal("cannot assemble cluster")
	}
	if err := cl.Bootstrap(); err != nil {
		log.WithError(err).Fatal("bootstrap failed")
	}
	defer cl.Close()

	view := fsview.New(cl.NS, 0)
	http.Handle("/", http.FileServer(http.FS(view)))

	log.WithField("addr", *httpAddr).Info("serving cluster namespace over HTTP")
	if err := http.ListenAndServe(*httpAddr, nil); err != nil {
		log.WithError(err).Fatal("HTTP server exited")
	}
}

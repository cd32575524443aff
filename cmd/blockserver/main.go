// Command blockserver hosts one C1 block server over net/rpc. Grounded on
// examples/serve-image/main.go's flag-parsing shape and on
// memoryfs_server.py's sys.argv handling (port, optional damage-block
// index).
package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/parityfs/parityfs/blockserver"
)

var log = logrus.WithField("component", "cmd/blockserver")

func main() {
	addr := flag.String("addr", ":9000", "address to listen on")
	corrupt := flag.Int("corrupt", -1, "block index to start corrupt (fault injection); -1 disables")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	srv := blockserver.New()
	if *corrupt >= 0 {
		if err := srv.Corrupt(*corrupt); err != nil {
			log.WithError(err).Fatal("failed to apply fault injection")
		}
		log.WithField("block", *corrupt).Warn("started with fault injection")
	}

	log.WithField("addr", *addr).Info("starting block server")
	if err := blockserver.Serve(srv, *addr); err != nil {
		log.WithError(err).Error("block server exited")
		os.Exit(1)
	}
}

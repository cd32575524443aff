// Command fsshell is the interactive shell collaborator described in
// spec §6: cd/ls/cat/mkdir/create/ln/append/show_request/exit, each
// wrapped in the cluster lock's Acquire/Release. Grounded on
// Implementation-with-Lock/memoryfs_shell_rpc.py's FSShell/Interpreter.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/parityfs/parityfs/blockserver"
	"github.com/parityfs/parityfs/cluster"
	"github.com/parityfs/parityfs/layout"
	"github.com/parityfs/parityfs/util"
	"github.com/parityfs/parityfs/wire"
)

var log = logrus.WithField("component", "cmd/fsshell")

type shell struct {
	cl  *cluster.Cluster
	cwd int
}

func (s *shell) cd(path string) error {
	i := s.cl.NS.GeneralPathToInodeNumber(path, s.cwd)
	if i == -1 {
		return fmt.Errorf("not found")
	}
	typ, err := s.cl.NS.InodeType(i)
	if err != nil || typ != layout.InodeTypeDir {
		return fmt.Errorf("not a directory")
	}
	s.cwd = i
	return nil
}

func (s *shell) mkdir(name string) error {
	if s.cl.NS.Create(s.cwd, name, layout.InodeTypeDir) == -1 {
		return fmt.Errorf("cannot create directory")
	}
	return nil
}

func (s *shell) create(name string) error {
	if s.cl.NS.Create(s.cwd, name, layout.InodeTypeFile) == -1 {
		return fmt.Errorf("cannot create file")
	}
	return nil
}

func (s *shell) appendTo(name, payload string) error {
	i := s.cl.NS.Lookup(name, s.cwd)
	if i == -1 {
		return fmt.Errorf("not found")
	}
	typ, err := s.cl.NS.InodeType(i)
	if err != nil || typ != layout.InodeTypeFile {
		return fmt.Errorf("not a file")
	}
	size, err := s.cl.NS.FileSize(i)
	if err != nil {
		return err
	}
	written := s.cl.NS.Write(i, size, []byte(payload))
	if written == -1 {
		return fmt.Errorf("write rejected")
	}
	fmt.Printf("Successfully appended %d bytes.\n", written)
	return nil
}

func (s *shell) link(target, name string) error {
	if s.cl.NS.Link(target, name, s.cwd) != 0 {
		return fmt.Errorf("cannot create link")
	}
	return nil
}

func (s *shell) ls() error {
	entries, err := s.cl.NS.ReadDir(s.cwd)
	if err != nil {
		return err
	}
	for _, e := range entries {
		refcnt, err := s.cl.NS.Refcnt(e.Inode)
		if err != nil {
			return err
		}
		typ, err := s.cl.NS.InodeType(e.Inode)
		if err != nil {
			return err
		}
		if typ == layout.InodeTypeDir {
			fmt.Printf("[%d]:%s/\n", refcnt, e.Name)
		} else {
			fmt.Printf("[%d]:%s\n", refcnt, e.Name)
		}
	}
	return nil
}

func (s *shell) cat(name string) error {
	i := s.cl.NS.Lookup(name, s.cwd)
	if i == -1 {
		return fmt.Errorf("not found")
	}
	typ, err := s.cl.NS.InodeType(i)
	if err != nil || typ != layout.InodeTypeFile {
		return fmt.Errorf("not a file")
	}
	data := s.cl.NS.Read(i, 0, layout.MaxFileSize)
	fmt.Println(string(data))
	return nil
}

func (s *shell) hexdump(name string) error {
	i := s.cl.NS.Lookup(name, s.cwd)
	if i == -1 {
		return fmt.Errorf("not found")
	}
	typ, err := s.cl.NS.InodeType(i)
	if err != nil || typ != layout.InodeTypeFile {
		return fmt.Errorf("not a file")
	}
	data := s.cl.NS.Read(i, 0, layout.MaxFileSize)
	fmt.Print(util.DumpByteSlice(data, 16, true, true, false, nil))
	return nil
}

func (s *shell) showRequest() {
	puts, gets := s.cl.Stripe.Counters()
	fmt.Println()
	fmt.Printf("Put() request count per server: %v\n", puts)
	fmt.Printf("Get() request count per server: %v\n", gets)
}

func (s *shell) dispatch(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	if err := s.cl.Lock.Acquire(); err != nil {
		log.WithError(err).Error("lock acquire failed")
		return
	}
	defer func() {
		if err := s.cl.Lock.Release(); err != nil {
			log.WithError(err).Error("lock release failed")
		}
	}()

	var err error
	switch fields[0] {
	case "cd":
		if len(fields) != 2 {
			err = fmt.Errorf("cd requires one argument")
		} else {
			err = s.cd(fields[1])
		}
	case "cat":
		if len(fields) != 2 {
			err = fmt.Errorf("cat requires one argument")
		} else {
			err = s.cat(fields[1])
		}
	case "mkdir":
		if len(fields) != 2 {
			err = fmt.Errorf("mkdir requires one argument")
		} else {
			err = s.mkdir(fields[1])
		}
	case "create":
		if len(fields) != 2 {
			err = fmt.Errorf("create requires one argument")
		} else {
			err = s.create(fields[1])
		}
	case "ln":
		if len(fields) != 3 {
			err = fmt.Errorf("ln requires two arguments")
		} else {
			err = s.link(fields[1], fields[2])
		}
	case "append":
		if len(fields) != 3 {
			err = fmt.Errorf("append requires two arguments")
		} else {
			err = s.appendTo(fields[1], fields[2])
		}
	case "ls":
		err = s.ls()
	case "hexdump":
		if len(fields) != 2 {
			err = fmt.Errorf("hexdump requires one argument")
		} else {
			err = s.hexdump(fields[1])
		}
	case "show_request":
		s.showRequest()
	default:
		err = fmt.Errorf("command %s not valid", fields[0])
	}
	if err != nil {
		fmt.Printf("Error: %s\n", err)
	}
}

func main() {
	addrList := flag.String("servers", "localhost:9000,localhost:9001,localhost:9002", "comma-separated block server addresses")
	uuidHex := flag.String("uuid", "", "hex-encoded instance UUID; empty generates a random one")
	dumpDir := flag.String("dump-dir", "", "directory to persist/restore the dump file from; empty disables persistence")
	flag.Parse()

	var instanceUUID []byte
	if *uuidHex == "" {
		// The boot block's instance UUID is 4 bytes (spec §3), not
		// uuid.UUID's native 16: take the first 4.
		id := uuid.New()
		instanceUUID = id[:4]
		log.WithField("uuid", id.String()).Info("generated instance UUID")
	} else {
		decoded, err := hex.DecodeString(*uuidHex)
		if err != nil {
			log.WithError(err).Fatal("invalid -uuid")
		}
		instanceUUID = decoded
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

	cl, err := cluster.New(servers, cluster.Config{UUID: instanceUUID, DumpDir: *dumpDir})
	if err != nil {
		log.WithError(err).Fatal("cannot assemble cluster")
	}
	if err := cl.Bootstrap(); err != nil {
		log.WithError(err).Fatal("bootstrap failed")
	}
	defer cl.Close()

	fmt.Print(cl.DescribeLayout())

	sh := &shell{cl: cl}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("[cwd=%d]:", sh.cwd)
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "exit" {
			break
		}
		sh.dispatch(line)
	}

	sh.showRequest()
	if err := cl.Dump(); err != nil {
		log.WithError(err).Error("failed to persist dump on exit")
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		log.WithError(err).Error("input scan error")
	}
}

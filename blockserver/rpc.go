package blockserver

import (
	"net"
	"net/rpc"

	"github.com/parityfs/parityfs/wire"
)

// RPCService adapts a *Server to the net/rpc calling convention (exported
// method, two arguments, error return) for each of the six wire procedures
// in wire.BlockServer. See DESIGN.md for why net/rpc, not grpc: transport
// choice is explicitly out of the core's scope (spec §1), and the wire
// contract (spec §6) is exactly net/rpc's shape.
type RPCService struct {
	srv *Server
}

// NewRPCService wraps srv for registration with a *rpc.Server.
func NewRPCService(srv *Server) *RPCService {
	return &RPCService{srv: srv}
}

func (s *RPCService) Get(args *wire.GetArgs, reply *wire.GetReply) error {
	data, err := s.srv.Get(args.Block)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}

func (s *RPCService) Put(args *wire.PutArgs, reply *wire.PutReply) error {
	return s.srv.Put(args.Block, args.Data)
}

func (s *RPCService) GetChecksum(args *wire.GetChecksumArgs, reply *wire.GetChecksumReply) error {
	digest, err := s.srv.GetChecksum(args.Block)
	if err != nil {
		return err
	}
	reply.Digest = digest
	return nil
}

func (s *RPCService) PutChecksum(args *wire.PutChecksumArgs, reply *wire.PutChecksumReply) error {
	return s.srv.PutChecksum(args.Block, args.Digest)
}

func (s *RPCService) GetFlag(args *wire.GetFlagArgs, reply *wire.GetFlagReply) error {
	flag, err := s.srv.GetFlag()
	if err != nil {
		return err
	}
	reply.Flag = flag
	return nil
}

func (s *RPCService) SetFlag(args *wire.SetFlagArgs, reply *wire.SetFlagReply) error {
	return s.srv.SetFlag()
}

func (s *RPCService) ReadSetBlock(args *wire.ReadSetBlockArgs, reply *wire.ReadSetBlockReply) error {
	prev, err := s.srv.ReadSetBlock(args.Block, args.Value)
	if err != nil {
		return err
	}
	reply.Previous = prev
	return nil
}

// Serve registers srv under the given RPC service name and accepts
// connections on addr until the listener is closed or the process exits.
// One block server, one listener: the registered service exposes all six
// procedures, so the fault-tolerant (checksum) and the locking
// (GetFlag/SetFlag/ReadSetBlock) procedures are served on the same port.
func Serve(srv *Server, addr string) error {
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("BlockServer", NewRPCService(srv)); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.WithField("addr", addr).Info("block server listening")
	rpcServer.Accept(ln)
	return nil
}

// client adapts an *rpc.Client to wire.BlockServer for use by stripe.Client
// and clusterlock.Lock.
type client struct {
	rpc *rpc.Client
}

// DialRPC connects to a block server started with Serve.
func DialRPC(addr string) (wire.BlockServer, error) {
	c, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &client{rpc: c}, nil
}

func (c *client) Get(b int) ([]byte, error) {
	var reply wire.GetReply
	if err := c.rpc.Call("BlockServer.Get", &wire.GetArgs{Block: b}, &reply); err != nil {
		return nil, err
	}
	return reply.Data, nil
}

func (c *client) Put(b int, data []byte) error {
	var reply wire.PutReply
	return c.rpc.Call("BlockServer.Put", &wire.PutArgs{Block: b, Data: data}, &reply)
}

func (c *client) GetChecksum(b int) (string, error) {
	var reply wire.GetChecksumReply
	if err := c.rpc.Call("BlockServer.GetChecksum", &wire.GetChecksumArgs{Block: b}, &reply); err != nil {
		return "", err
	}
	return reply.Digest, nil
}

func (c *client) PutChecksum(b int, digest string) error {
	var reply wire.PutChecksumReply
	return c.rpc.Call("BlockServer.PutChecksum", &wire.PutChecksumArgs{Block: b, Digest: digest}, &reply)
}

func (c *client) GetFlag() (int, error) {
	var reply wire.GetFlagReply
	if err := c.rpc.Call("BlockServer.GetFlag", &wire.GetFlagArgs{}, &reply); err != nil {
		return 0, err
	}
	return reply.Flag, nil
}

func (c *client) SetFlag() error {
	var reply wire.SetFlagReply
	return c.rpc.Call("BlockServer.SetFlag", &wire.SetFlagArgs{}, &reply)
}

func (c *client) ReadSetBlock(b int, v []byte) ([]byte, error) {
	var reply wire.ReadSetBlockReply
	if err := c.rpc.Call("BlockServer.ReadSetBlock", &wire.ReadSetBlockArgs{Block: b, Value: v}, &reply); err != nil {
		return nil, err
	}
	return reply.Previous, nil
}

// Close closes the underlying connection.
func (c *client) Close() error {
	return c.rpc.Close()
}

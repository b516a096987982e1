package rpc

import (
	"fmt"
	"log"
	"net"
	"net/rpc"

	"github.com/ugorji/go/codec"
)

type Server interface {
	RegisterName(name string, rcvr interface{}) error
	Serve() error
	Addr() net.Addr
	Close() error
}

type tcpRpcServer struct {
	net.Listener
	*rpc.Server

	codecHandle codec.Handle
}

// NewServer listens for RPC connections on the given TCP port.
func NewServer(port int) (Server, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen tcp: %v", err)
	}
	return &tcpRpcServer{ln, rpc.NewServer(), CodecHandle()}, nil
}

func (s *tcpRpcServer) Serve() error {
	log.Printf("Serving RPC server over TCP on %s\n", s.Addr().String())
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			return fmt.Errorf("TCP accept failed: %v", err)
		}
		go s.Server.ServeCodec(codec.GoRpc.ServerCodec(conn, s.codecHandle))
	}
}

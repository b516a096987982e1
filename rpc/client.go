package rpc

import (
	"net"
	"net/rpc"

	"github.com/ugorji/go/codec"
)

// ClientProxy issues RPC calls to one server, either over a persistent
// connection or dialing per call.
type ClientProxy struct {
	serverAddr  string
	persistent  bool
	codecHandle codec.Handle

	cachedClient *rpc.Client
}

func NewClientProxy(serverAddr string, usePersistent bool) (*ClientProxy, error) {
	proxy := &ClientProxy{serverAddr: serverAddr, codecHandle: CodecHandle()}
	if usePersistent {
		client, err := proxy.dial()
		if err != nil {
			return nil, err
		}
		proxy.cachedClient = client
		proxy.persistent = true
	}
	return proxy, nil
}

func (p *ClientProxy) dial() (*rpc.Client, error) {
	conn, err := net.Dial("tcp", p.serverAddr)
	if err != nil {
		return nil, err
	}
	return rpc.NewClientWithCodec(codec.GoRpc.ClientCodec(conn, p.codecHandle)), nil
}

func (p *ClientProxy) Call(serviceMethod string, args interface{}, reply interface{}) error {
	if p.persistent {
		return p.cachedClient.Call(serviceMethod, args, reply)
	}
	client, err := p.dial()
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Call(serviceMethod, args, reply)
}

func (p *ClientProxy) Close() error {
	if p.persistent {
		return p.cachedClient.Close()
	}
	return nil
}

package driver

import (
	"time"

	"cubepir/rpc"
)

// rpcProxy forwards PirServerDriver calls to a remote server.
type rpcProxy struct {
	*rpc.ClientProxy
}

func NewRpcProxy(serverAddr string, usePersistent bool) (*rpcProxy, error) {
	proxy, err := rpc.NewClientProxy(serverAddr, usePersistent)
	if err != nil {
		return nil, err
	}
	return &rpcProxy{proxy}, nil
}

func (p *rpcProxy) Configure(cfg TestConfig, none *int) error {
	return p.Call("PirServer.Configure", cfg, none)
}

func (p *rpcProxy) RegisterKeys(req RegisterKeysReq, none *int) error {
	return p.Call("PirServer.RegisterKeys", req, none)
}

func (p *rpcProxy) Answer(req QueryReq, resp *QueryResp) error {
	return p.Call("PirServer.Answer", req, resp)
}

func (p *rpcProxy) ResetMetrics(none int, none2 *int) error {
	return p.Call("PirServer.ResetMetrics", none, none2)
}

func (p *rpcProxy) GetPreprocessTimer(none int, out *time.Duration) error {
	return p.Call("PirServer.GetPreprocessTimer", none, out)
}

func (p *rpcProxy) GetAnswerTimer(none int, out *time.Duration) error {
	return p.Call("PirServer.GetAnswerTimer", none, out)
}

func (p *rpcProxy) GetOnlineBytes(none int, out *int) error {
	return p.Call("PirServer.GetOnlineBytes", none, out)
}

func (p *rpcProxy) GetQueryRate(none int, out *int64) error {
	return p.Call("PirServer.GetQueryRate", none, out)
}

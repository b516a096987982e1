package driver

import (
	"context"
	"sync"
	"time"

	"github.com/paulbellamy/ratecounter"

	"cubepir/pir"
)

// PirServerDriver is the RPC surface of a PIR server: protocol operations
// plus the measurement hooks benchmarks poll.
type PirServerDriver interface {
	Configure(cfg TestConfig, none *int) error
	RegisterKeys(req RegisterKeysReq, none *int) error
	Answer(req QueryReq, resp *QueryResp) error

	ResetMetrics(none int, none2 *int) error
	GetPreprocessTimer(none int, out *time.Duration) error
	GetAnswerTimer(none int, out *time.Duration) error
	GetOnlineBytes(none int, out *int) error
	GetQueryRate(none int, out *int64) error
}

type serverDriver struct {
	mu     sync.Mutex
	params *pir.Params
	server *pir.Server

	preprocessTime, answerTime time.Duration
	onlineBytes                int
	rate                       *ratecounter.RateCounter
}

func NewServerDriver() (*serverDriver, error) {
	return &serverDriver{rate: ratecounter.NewRateCounter(time.Second)}, nil
}

// Configure derives parameters, builds the seeded database and preprocesses
// it. Earlier state is replaced wholesale.
func (d *serverDriver) Configure(cfg TestConfig, none *int) error {
	params, err := pir.DeriveParams(cfg.Pir)
	if err != nil {
		return err
	}
	server := pir.NewServer(params)
	raw := pir.MakeRawDB(cfg.DBSeed, params.NumItems, params.ItemSize)
	if err := server.SetDatabase(raw); err != nil {
		return err
	}

	start := time.Now()
	if err := server.Preprocess(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	d.mu.Lock()
	d.params = params
	d.server = server
	d.preprocessTime += elapsed
	d.mu.Unlock()
	return nil
}

func (d *serverDriver) RegisterKeys(req RegisterKeysReq, none *int) error {
	server, err := d.currentServer()
	if err != nil {
		return err
	}
	var keys pir.ClientKeys
	if err := keys.UnmarshalBinary(req.Keys); err != nil {
		return err
	}
	return server.RegisterKeys(req.ClientID, &keys)
}

func (d *serverDriver) Answer(req QueryReq, resp *QueryResp) error {
	server, err := d.currentServer()
	if err != nil {
		return err
	}
	var query pir.Query
	if err := query.UnmarshalBinary(req.Query); err != nil {
		return err
	}

	reply, metrics, err := server.GenerateReply(context.Background(), &query, req.ClientID)
	if err != nil {
		return err
	}
	if resp.Reply, err = reply.MarshalBinary(); err != nil {
		return err
	}
	resp.Metrics = *metrics

	d.mu.Lock()
	d.answerTime += metrics.Total
	d.onlineBytes += len(req.Query) + len(resp.Reply)
	d.mu.Unlock()
	d.rate.Incr(1)
	return nil
}

func (d *serverDriver) currentServer() (*pir.Server, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.server == nil {
		return nil, pir.ErrUninitializedServer
	}
	return d.server, nil
}

func (d *serverDriver) ResetMetrics(none int, none2 *int) error {
	d.mu.Lock()
	d.preprocessTime = 0
	d.answerTime = 0
	d.onlineBytes = 0
	d.mu.Unlock()
	return nil
}

func (d *serverDriver) GetPreprocessTimer(none int, out *time.Duration) error {
	d.mu.Lock()
	*out = d.preprocessTime
	d.mu.Unlock()
	return nil
}

func (d *serverDriver) GetAnswerTimer(none int, out *time.Duration) error {
	d.mu.Lock()
	*out = d.answerTime
	d.mu.Unlock()
	return nil
}

func (d *serverDriver) GetOnlineBytes(none int, out *int) error {
	d.mu.Lock()
	*out = d.onlineBytes
	d.mu.Unlock()
	return nil
}

func (d *serverDriver) GetQueryRate(none int, out *int64) error {
	*out = d.rate.Rate()
	return nil
}

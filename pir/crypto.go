package pir

import (
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/ring"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
)

// heContext bundles the scheme capabilities the protocol consumes: ring
// arithmetic, coefficient encoding and the precomputed monomials used by
// query expansion. One context serves any number of requests.
type heContext struct {
	params  bfv.Parameters
	encoder *bfv.Encoder
	ringQ   *ring.Ring

	// xPow[i] = X^{-2^i}, NTT and Montgomery domain.
	xPow []ring.Poly
}

func newHEContext(p *Params) *heContext {
	ringQ := p.heParams.RingQ()
	logm := p.maxLogDim()
	if logm == 0 {
		logm = 1
	}
	return &heContext{
		params:  p.heParams,
		encoder: bfv.NewEncoder(p.heParams),
		ringQ:   ringQ,
		xPow:    rlwe.GenXPow2(ringQ, logm, true),
	}
}

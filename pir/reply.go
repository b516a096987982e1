package pir

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
)

type workerTally struct {
	mul, add, relin time.Duration
}

// generateReply runs the reply pipeline: expand the compact query, fold the
// transform-domain hypercube along dimension 0 with plaintext products, then
// fold each remaining dimension with relinearized ciphertext products until
// a single ciphertext is left.
func (s *Server) generateReply(ctx context.Context, db *Database, evk rlwe.EvaluationKeySet, query *Query) (*Reply, *ReplyMetrics, error) {
	start := time.Now()
	metrics := &ReplyMetrics{}
	level := query.Cts[0].Level()
	ringQ := s.he.ringQ.AtLevel(level)

	eval := bfv.NewEvaluator(s.he.params, evk)

	t0 := time.Now()
	expanded := make([][]*rlwe.Ciphertext, s.params.Dims)
	for dim, size := range s.params.DimSizes {
		vec, err := s.he.expandQuery(eval, query.Cts[dim], size)
		if err != nil {
			return nil, nil, err
		}
		expanded[dim] = vec
	}
	metrics.Expansion = time.Since(t0)

	// Dimension 0 multiplies against stored polynomials at the ring level;
	// its expanded vector moves to the Montgomery domain once, up front.
	t0 = time.Now()
	for _, ct := range expanded[0] {
		ringQ.MForm(ct.Value[0], ct.Value[0])
		ringQ.MForm(ct.Value[1], ct.Value[1])
	}
	metrics.QueryTransform = time.Since(t0)

	workers := runtime.GOMAXPROCS(0)
	tallies := make([]workerTally, workers)

	t0 = time.Now()
	inner := s.params.HypercubeSize() / s.params.DimSizes[0]
	cur := make([]*rlwe.Ciphertext, inner)
	md := *query.Cts[0].MetaData
	for j := range cur {
		cur[j] = rlwe.NewCiphertext(s.he.params, 1, level)
		mdj := md
		cur[j].MetaData = &mdj
	}
	metrics.Construction += time.Since(t0)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Fold dimension 0. Each output slot j accumulates the inner product of
	// the expanded selector with the units whose dimension-0 digit is i.
	q0 := expanded[0]
	err := parallelFor(inner, workers, func(w, j int) error {
		tm := time.Now()
		acc := cur[j]
		for i := range q0 {
			unit := db.units[i*inner+j]
			ringQ.MulCoeffsMontgomeryThenAdd(q0[i].Value[0], unit, acc.Value[0])
			ringQ.MulCoeffsMontgomeryThenAdd(q0[i].Value[1], unit, acc.Value[1])
		}
		tallies[w].mul += time.Since(tm)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if s.params.Dims > 1 {
		evals := make([]*bfv.Evaluator, workers)
		accs := make([]*rlwe.Ciphertext, workers)
		prods := make([]*rlwe.Ciphertext, workers)
		for w := range evals {
			evals[w] = eval.ShallowCopy()
			accs[w] = rlwe.NewCiphertext(s.he.params, 2, level)
			prods[w] = rlwe.NewCiphertext(s.he.params, 2, level)
		}

		for r := 1; r < s.params.Dims; r++ {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			qr := expanded[r]
			size := s.params.DimSizes[r]
			outLen := len(cur) / size

			t0 = time.Now()
			next := make([]*rlwe.Ciphertext, outLen)
			for j := range next {
				next[j] = rlwe.NewCiphertext(s.he.params, 1, level)
			}
			metrics.Construction += time.Since(t0)

			prev := cur
			err := parallelFor(outLen, workers, func(w, j int) error {
				ev, acc, prod := evals[w], accs[w], prods[w]
				for i := 0; i < size; i++ {
					dst := prod
					if i == 0 {
						dst = acc
					}
					tm := time.Now()
					if err := ev.Mul(qr[i], prev[i*outLen+j], dst); err != nil {
						return fmt.Errorf("%w: round %d multiply: %v", ErrQueryShape, r+1, err)
					}
					tallies[w].mul += time.Since(tm)
					if i > 0 {
						tm = time.Now()
						if err := ev.Add(acc, prod, acc); err != nil {
							return fmt.Errorf("%w: round %d accumulate: %v", ErrQueryShape, r+1, err)
						}
						tallies[w].add += time.Since(tm)
					}
				}
				tm := time.Now()
				if err := ev.Relinearize(acc, next[j]); err != nil {
					return fmt.Errorf("%w: round %d relinearize: %v", ErrQueryShape, r+1, err)
				}
				tallies[w].relin += time.Since(tm)
				return nil
			})
			if err != nil {
				return nil, nil, err
			}
			cur = next
		}
	}

	for _, t := range tallies {
		metrics.Multiply += t.mul
		metrics.Add += t.add
		metrics.Relinearize += t.relin
	}
	metrics.Total = time.Since(start)

	return &Reply{Cts: cur}, metrics, nil
}

// parallelFor runs fn over [0, n) with a bounded worker pool. Workers pull
// indices from a shared counter; the first error stops the pulling worker
// and is returned after all workers drain.
func parallelFor(n, workers int, fn func(worker, j int) error) error {
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	var (
		cursor atomic.Int64
		wg     sync.WaitGroup
	)
	errs := make([]error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for {
				j := int(cursor.Add(1)) - 1
				if j >= n {
					return
				}
				if err := fn(w, j); err != nil {
					errs[w] = err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

package pir

import (
	"fmt"
	"math/big"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
)

// expandQuery turns one compact ciphertext into a vector of m ciphertexts,
// entry k encrypting 1 when k is the digit encoded in the compact
// ciphertext's coefficients and (noisy) 0 elsewhere.
//
// Each doubling round applies the automorphism X -> X^{N/2^i + 1}: the sum
// with the original keeps the even coefficients, the difference shifted by
// X^{-2^i} keeps the odd ones, so a dimension of size m costs
// ceil(log2 m) automorphism evaluations per surviving ciphertext.
func (he *heContext) expandQuery(eval *bfv.Evaluator, ct *rlwe.Ciphertext, m int) ([]*rlwe.Ciphertext, error) {
	logm := ceilLog2(m)
	level := ct.Level()
	ringQ := he.ringQ.AtLevel(level)

	out := make([]*rlwe.Ciphertext, 1<<uint(logm))
	out[0] = ct.CopyNew()

	// Every doubling multiplies the surviving coefficient by 2; cancel all
	// of them up front with 2^{-logm} mod Q.
	norm := new(big.Int).SetUint64(1 << uint(logm))
	norm.ModInverse(norm, ringQ.ModulusAtLevel[level])
	ringQ.MulScalarBigint(out[0].Value[0], norm, out[0].Value[0])
	ringQ.MulScalarBigint(out[0].Value[1], norm, out[0].Value[1])

	tmp := ct.CopyNew()
	n := he.params.N()
	for i := 0; i < logm; i++ {
		galEl := uint64(n>>uint(i) + 1)
		for j := 0; j < 1<<uint(i); j++ {
			c0 := out[j]
			if err := eval.Automorphism(c0, galEl, tmp); err != nil {
				return nil, fmt.Errorf("expansion automorphism %d: %w", galEl, err)
			}
			c1 := c0.CopyNew()

			// Even coefficients survive in c0, odd ones in c1 after the
			// X^{-2^i} shift.
			ringQ.Add(c0.Value[0], tmp.Value[0], c0.Value[0])
			ringQ.Add(c0.Value[1], tmp.Value[1], c0.Value[1])
			ringQ.Sub(c1.Value[0], tmp.Value[0], c1.Value[0])
			ringQ.Sub(c1.Value[1], tmp.Value[1], c1.Value[1])
			ringQ.MulCoeffsMontgomery(c1.Value[0], he.xPow[i], c1.Value[0])
			ringQ.MulCoeffsMontgomery(c1.Value[1], he.xPow[i], c1.Value[1])
			out[j+(1<<uint(i))] = c1
		}
	}
	return out[:m], nil
}

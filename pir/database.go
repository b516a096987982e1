package pir

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/ring"
)

// Database is the preprocessed hypercube: one polynomial per plaintext
// unit, held in the transform (NTT) domain, addressed by mixed-radix
// strides over DimSizes. It is read-only once built.
type Database struct {
	params *Params
	units  []ring.Poly
}

// newDatabase packs raw item bytes into plaintext units, arranges them into
// the padded hypercube and applies the forward NTT to every unit. This is
// the dominant one-time cost of setup.
func newDatabase(params *Params, raw []byte) (*Database, error) {
	if want := params.NumItems * params.ItemSize; len(raw) != want {
		return nil, fmt.Errorf("%w: database is %d bytes, want %d", ErrParameter, len(raw), want)
	}

	ringQ := params.heParams.RingQ()
	n := params.N()
	slotBytes := params.ItemsPerUnit * params.ItemSize

	units := make([]ring.Poly, params.HypercubeSize())
	coeffs := make([]uint64, n)
	for u := range units {
		units[u] = ringQ.NewPoly()
		if u >= params.NumUnits {
			// Padding units stay zero; the NTT of zero is zero.
			continue
		}
		lo := u * slotBytes
		hi := lo + slotBytes
		if hi > len(raw) {
			hi = len(raw)
		}
		for i := range coeffs {
			coeffs[i] = 0
		}
		bytesToCoeffs(coeffs, raw[lo:hi], params.CoeffBits)
		liftCoeffs(ringQ, coeffs, units[u])
		ringQ.NTT(units[u], units[u])
	}

	return &Database{params: params, units: units}, nil
}

// liftCoeffs embeds plaintext coefficients, already reduced modulo the
// plaintext modulus, into every RNS limb of pol.
func liftCoeffs(ringQ *ring.Ring, coeffs []uint64, pol ring.Poly) {
	for limb := range pol.Coeffs[:ringQ.Level()+1] {
		copy(pol.Coeffs[limb], coeffs)
	}
}

// bytesToCoeffs packs src into dst, bitsPer bits per coefficient, treating
// src as a big-endian bit stream. A partial tail coefficient is
// left-justified so the stream stays byte-aligned on decode.
func bytesToCoeffs(dst []uint64, src []byte, bitsPer int) {
	var acc uint64
	var nbits, di int
	for _, b := range src {
		acc = acc<<8 | uint64(b)
		nbits += 8
		if nbits >= bitsPer {
			nbits -= bitsPer
			dst[di] = acc >> nbits
			acc &= 1<<nbits - 1
			di++
		}
	}
	if nbits > 0 {
		dst[di] = acc << (bitsPer - nbits)
	}
}

// coeffsToBytes is the inverse of bytesToCoeffs; it stops once dst is full.
func coeffsToBytes(dst []byte, src []uint64, bitsPer int) {
	var acc uint64
	var nbits, di int
	for _, c := range src {
		acc = acc<<bitsPer | c&(1<<bitsPer-1)
		nbits += bitsPer
		for nbits >= 8 {
			nbits -= 8
			if di == len(dst) {
				return
			}
			dst[di] = byte(acc >> nbits)
			di++
		}
		acc &= 1<<nbits - 1
	}
}

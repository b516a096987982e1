package pir

import (
	"fmt"
	"math/bits"

	"github.com/tuneinsight/lattigo/v5/ring"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
)

const (
	// minLogDegree is the smallest ring degree accepted at derivation;
	// anything below offers no meaningful lattice security.
	minLogDegree = 12
	maxLogDegree = 16

	minCoeffBits = 8
	maxCoeffBits = 44

	maxDims = 4
)

// Config is the caller-owned knob surface for parameter derivation.
type Config struct {
	// NumItems is the number of fixed-size items in the database.
	NumItems int
	// ItemSize is the size of one item in bytes.
	ItemSize int
	// LogDegree is log2 of the polynomial degree N.
	LogDegree int
	// CoeffBits is the number of database bits packed per plaintext
	// coefficient.
	CoeffBits int
	// Dims is the number of hypercube dimensions d.
	Dims int
	// MaxQueryBytes, if non-zero, bounds the serialized query size.
	MaxQueryBytes int
}

// Params is an immutable derived parameter set shared by client and server.
type Params struct {
	Config

	// UnitBytes is the payload capacity of one plaintext unit (N
	// coefficients of CoeffBits each).
	UnitBytes int
	// ItemsPerUnit is how many whole items one unit stores. Items never
	// straddle unit boundaries.
	ItemsPerUnit int
	// NumUnits is the number of plaintext units the database occupies.
	NumUnits int
	// DimSizes are the per-dimension sizes; their product is the padded
	// hypercube size. DimSizes[0] is the outermost dimension and absorbs
	// the balancing remainder.
	DimSizes []int

	heParams    bfv.Parameters
	plainMod    uint64
	noiseBudget int
}

// DeriveParams computes a parameter set for the given configuration, or
// fails with ErrParameter when the shape is infeasible.
func DeriveParams(cfg Config) (*Params, error) {
	if cfg.NumItems < 1 || cfg.ItemSize < 1 {
		return nil, fmt.Errorf("%w: database must hold at least one non-empty item", ErrParameter)
	}
	if cfg.LogDegree < minLogDegree || cfg.LogDegree > maxLogDegree {
		return nil, fmt.Errorf("%w: LogDegree %d outside [%d, %d]", ErrParameter, cfg.LogDegree, minLogDegree, maxLogDegree)
	}
	if cfg.CoeffBits < minCoeffBits || cfg.CoeffBits > maxCoeffBits {
		return nil, fmt.Errorf("%w: CoeffBits %d outside [%d, %d]", ErrParameter, cfg.CoeffBits, minCoeffBits, maxCoeffBits)
	}
	if cfg.Dims < 1 || cfg.Dims > maxDims {
		return nil, fmt.Errorf("%w: Dims %d outside [1, %d]", ErrParameter, cfg.Dims, maxDims)
	}

	n := 1 << cfg.LogDegree
	unitBytes := n * cfg.CoeffBits / 8
	if cfg.ItemSize > unitBytes {
		return nil, fmt.Errorf("%w: item size %d exceeds unit capacity %d", ErrParameter, cfg.ItemSize, unitBytes)
	}

	itemsPerUnit := unitBytes / cfg.ItemSize
	numUnits := (cfg.NumItems + itemsPerUnit - 1) / itemsPerUnit

	dimSizes, err := balanceDims(numUnits, cfg.Dims)
	if err != nil {
		return nil, err
	}
	for _, m := range dimSizes {
		if m > n {
			return nil, fmt.Errorf("%w: dimension size %d exceeds degree %d", ErrParameter, m, n)
		}
	}

	// An NTT-friendly plaintext modulus with exactly CoeffBits usable bits.
	gen := ring.NewNTTFriendlyPrimesGenerator(uint64(cfg.CoeffBits+1), uint64(2*n))
	t, err := gen.NextDownstreamPrime()
	if err != nil {
		return nil, fmt.Errorf("%w: no plaintext modulus with %d usable bits: %v", ErrParameter, cfg.CoeffBits, err)
	}
	if bits.Len64(t) != cfg.CoeffBits+1 {
		return nil, fmt.Errorf("%w: no plaintext modulus with %d usable bits", ErrParameter, cfg.CoeffBits)
	}

	// One 60-bit base limb, one 50-bit limb per multiplicative level, one
	// auxiliary limb for key switching.
	logQ := make([]int, 1, cfg.Dims+1)
	logQ[0] = 60
	for i := 0; i < cfg.Dims; i++ {
		logQ = append(logQ, 50)
	}

	heParams, err := bfv.NewParametersFromLiteral(bfv.ParametersLiteral{
		LogN:             cfg.LogDegree,
		LogQ:             logQ,
		LogP:             []int{60},
		PlaintextModulus: t,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParameter, err)
	}

	p := &Params{
		Config:       cfg,
		UnitBytes:    unitBytes,
		ItemsPerUnit: itemsPerUnit,
		NumUnits:     numUnits,
		DimSizes:     dimSizes,
		heParams:     heParams,
		plainMod:     t,
	}

	p.noiseBudget = p.estimateNoiseBudget()
	if p.noiseBudget <= 0 {
		return nil, fmt.Errorf("%w: depth %d leaves no noise budget (%d bits short)", ErrParameter, cfg.Dims, -p.noiseBudget+1)
	}

	if cfg.MaxQueryBytes > 0 {
		if qb := p.QueryBytes(); qb > cfg.MaxQueryBytes {
			return nil, fmt.Errorf("%w: query size %d exceeds budget %d", ErrParameter, qb, cfg.MaxQueryBytes)
		}
	}

	return p, nil
}

// balanceDims spreads numUnits over d axes as evenly as possible, growing
// the outermost axes first until the product covers every unit.
func balanceDims(numUnits, d int) ([]int, error) {
	sizes := make([]int, d)
	base := 1
	for pow(base+1, d) <= numUnits {
		base++
	}
	for i := range sizes {
		sizes[i] = base
	}
	prod := pow(base, d)
	for i := 0; prod < numUnits; i = (i + 1) % d {
		prod = prod / sizes[i] * (sizes[i] + 1)
		sizes[i]++
	}
	for _, m := range sizes {
		if m < 2 {
			return nil, fmt.Errorf("%w: %d dimensions leave a trivial axis for %d units", ErrParameter, d, numUnits)
		}
	}
	return sizes, nil
}

func pow(b, e int) int {
	r := 1
	for i := 0; i < e; i++ {
		r *= b
	}
	return r
}

// estimateNoiseBudget is an arithmetic feasibility bound: bits of modulus
// left after the expansion and d reduction rounds consume theirs. It
// deliberately undershoots the true budget.
func (p *Params) estimateNoiseBudget() int {
	totalQ := 0
	for _, qi := range p.heParams.Q() {
		totalQ += bits.Len64(qi)
	}
	logN := p.LogDegree
	fresh := logN/2 + 2
	expansion := p.maxLogDim() + logN
	rounds := p.Dims*(p.CoeffBits+logN+1) + (p.Dims-1)*logN
	return totalQ - bits.Len64(p.plainMod) - fresh - expansion - rounds
}

func (p *Params) maxLogDim() int {
	max := 0
	for _, m := range p.DimSizes {
		if lm := ceilLog2(m); lm > max {
			max = lm
		}
	}
	return max
}

func ceilLog2(m int) int {
	if m <= 1 {
		return 0
	}
	return bits.Len(uint(m - 1))
}

// N returns the polynomial degree.
func (p *Params) N() int { return 1 << p.LogDegree }

// PlainModulus returns the derived plaintext modulus.
func (p *Params) PlainModulus() uint64 { return p.plainMod }

// NoiseBudget returns the conservative post-pipeline noise margin in bits.
func (p *Params) NoiseBudget() int { return p.noiseBudget }

// HEParams exposes the underlying scheme parameters.
func (p *Params) HEParams() bfv.Parameters { return p.heParams }

// HypercubeSize is the padded unit count, the product of DimSizes.
func (p *Params) HypercubeSize() int {
	prod := 1
	for _, m := range p.DimSizes {
		prod *= m
	}
	return prod
}

// QueryCiphertexts is the authoritative number of ciphertexts in a compact
// query: one per dimension, independent of the dimension sizes.
func (p *Params) QueryCiphertexts() int { return p.Dims }

// ReplyCiphertexts is the authoritative number of ciphertexts in a reply.
// One unit always fits one ciphertext, so the bundle size is 1.
func (p *Params) ReplyCiphertexts() int { return 1 }

// ciphertextBytes approximates the serialized size of one degree-1
// ciphertext at the top level.
func (p *Params) ciphertextBytes() int {
	return 2*len(p.heParams.Q())*p.N()*8 + 128
}

// QueryBytes approximates the serialized size of a compact query. It
// depends only on the parameter set, never on NumItems.
func (p *Params) QueryBytes() int {
	return p.QueryCiphertexts() * p.ciphertextBytes()
}

// expansionGaloisElements lists the automorphism elements N/2^j + 1 the
// server needs to expand one compact ciphertext per dimension.
func (p *Params) expansionGaloisElements() []uint64 {
	n := p.N()
	els := make([]uint64, p.maxLogDim())
	for j := range els {
		els[j] = uint64(n>>j + 1)
	}
	return els
}

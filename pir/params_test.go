package pir

import (
	"errors"
	"math/bits"
	"testing"

	"gotest.tools/assert"
)

func TestDeriveParams(t *testing.T) {
	params, err := MakeTestParams(32, 2048, 2)
	assert.NilError(t, err)

	assert.Equal(t, params.UnitBytes, 8192)
	assert.Equal(t, params.ItemsPerUnit, 4)
	assert.Equal(t, params.NumUnits, 8)
	assert.DeepEqual(t, params.DimSizes, []int{3, 3})
	assert.Check(t, params.HypercubeSize() >= params.NumUnits)

	// The plaintext modulus carries exactly CoeffBits usable bits and is
	// NTT-friendly for degree N.
	assert.Equal(t, bits.Len64(params.PlainModulus()), params.CoeffBits+1)
	assert.Equal(t, params.PlainModulus()%uint64(2*params.N()), uint64(1))

	assert.Check(t, params.NoiseBudget() > 0)
	assert.Equal(t, params.QueryCiphertexts(), 2)
	assert.Equal(t, params.ReplyCiphertexts(), 1)
}

func TestDeriveParamsRejects(t *testing.T) {
	base := Config{NumItems: 32, ItemSize: 2048, LogDegree: 12, CoeffBits: 16, Dims: 2}

	cfg := base
	cfg.LogDegree = 10
	_, err := DeriveParams(cfg)
	assert.Check(t, errors.Is(err, ErrParameter))

	cfg = base
	cfg.CoeffBits = 50
	_, err = DeriveParams(cfg)
	assert.Check(t, errors.Is(err, ErrParameter))

	cfg = base
	cfg.Dims = 5
	_, err = DeriveParams(cfg)
	assert.Check(t, errors.Is(err, ErrParameter))

	// Item too large for one unit.
	cfg = base
	cfg.ItemSize = 9000
	_, err = DeriveParams(cfg)
	assert.Check(t, errors.Is(err, ErrParameter))

	// Too few units to fill three non-trivial axes.
	cfg = base
	cfg.NumItems = 4
	cfg.Dims = 3
	_, err = DeriveParams(cfg)
	assert.Check(t, errors.Is(err, ErrParameter))

	// Query budget too small for any parameter set.
	cfg = base
	cfg.MaxQueryBytes = 1
	_, err = DeriveParams(cfg)
	assert.Check(t, errors.Is(err, ErrParameter))
}

// Compact queries must not leak the database size: their byte size depends
// only on the parameter shape, never on NumItems.
func TestQuerySizeIndependentOfDatabase(t *testing.T) {
	mk := func(numItems int) *Params {
		params, err := DeriveParams(Config{
			NumItems:  numItems,
			ItemSize:  15360,
			LogDegree: 12,
			CoeffBits: 30,
			Dims:      2,
		})
		assert.NilError(t, err)
		return params
	}
	small := mk(100)
	large := mk(96151)
	assert.Equal(t, small.QueryBytes(), large.QueryBytes())
	assert.Equal(t, small.QueryCiphertexts(), large.QueryCiphertexts())
}

func TestBalanceDims(t *testing.T) {
	sizes, err := balanceDims(8, 2)
	assert.NilError(t, err)
	assert.DeepEqual(t, sizes, []int{3, 3})

	sizes, err = balanceDims(96151, 2)
	assert.NilError(t, err)
	assert.DeepEqual(t, sizes, []int{311, 310})

	sizes, err = balanceDims(16, 3)
	assert.NilError(t, err)
	assert.DeepEqual(t, sizes, []int{3, 3, 2})

	_, err = balanceDims(1, 2)
	assert.Check(t, errors.Is(err, ErrParameter))
}

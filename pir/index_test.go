package pir

import (
	"errors"
	"testing"

	"gotest.tools/assert"
)

func TestLocate(t *testing.T) {
	params, err := MakeTestParams(32, 2048, 2)
	assert.NilError(t, err)

	unit, offset, err := params.Locate(0)
	assert.NilError(t, err)
	assert.Equal(t, unit, 0)
	assert.Equal(t, offset, 0)

	unit, offset, err = params.Locate(5)
	assert.NilError(t, err)
	assert.Equal(t, unit, 1)
	assert.Equal(t, offset, params.ItemSize)

	unit, offset, err = params.Locate(params.NumItems - 1)
	assert.NilError(t, err)
	assert.Equal(t, unit, params.NumUnits-1)
	assert.Equal(t, offset, (params.ItemsPerUnit-1)*params.ItemSize)

	_, _, err = params.Locate(params.NumItems)
	assert.Check(t, errors.Is(err, ErrIndexOutOfRange))
	_, _, err = params.Locate(-1)
	assert.Check(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestUnitDecomposition(t *testing.T) {
	params, err := MakeTestParams(64, 2048, 3)
	assert.NilError(t, err)

	for unit := 0; unit < params.HypercubeSize(); unit++ {
		digits := params.DecomposeUnit(unit)
		assert.Equal(t, len(digits), params.Dims)
		for i, d := range digits {
			assert.Check(t, d >= 0 && d < params.DimSizes[i])
		}
		assert.Equal(t, params.ComposeUnit(digits), unit)
	}
}

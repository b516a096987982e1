package pir

import "fmt"

// Locate maps a flat item index to the plaintext unit holding it and the
// byte offset of the item inside that unit.
func (p *Params) Locate(index int) (unit, offset int, err error) {
	if index < 0 || index >= p.NumItems {
		return 0, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, p.NumItems)
	}
	return index / p.ItemsPerUnit, (index % p.ItemsPerUnit) * p.ItemSize, nil
}

// DecomposeUnit writes a unit index as d mixed-radix digits, outermost
// dimension first, with DimSizes as the bases. The digit order matches the
// hypercube stride layout used by the server.
func (p *Params) DecomposeUnit(unit int) []int {
	digits := make([]int, p.Dims)
	for i := p.Dims - 1; i >= 0; i-- {
		digits[i] = unit % p.DimSizes[i]
		unit /= p.DimSizes[i]
	}
	return digits
}

// ComposeUnit inverts DecomposeUnit.
func (p *Params) ComposeUnit(digits []int) int {
	unit := 0
	for i, d := range digits {
		unit = unit*p.DimSizes[i] + d
	}
	return unit
}

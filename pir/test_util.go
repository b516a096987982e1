package pir

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
)

// MakeRawDB builds a deterministic database of numItems items of itemSize
// bytes from a keyed stream, so any item can be regenerated for comparison
// without holding a second copy.
func MakeRawDB(seed uint64, numItems, itemSize int) []byte {
	raw := make([]byte, numItems*itemSize)
	stream(seed).XORKeyStream(raw, raw)
	return raw
}

// MakeItem regenerates the single item MakeRawDB placed at index.
func MakeItem(seed uint64, index, itemSize int) []byte {
	skip := make([]byte, index*itemSize)
	item := make([]byte, itemSize)
	s := stream(seed)
	s.XORKeyStream(skip, skip)
	s.XORKeyStream(item, item)
	return item
}

func stream(seed uint64) *chacha20.Cipher {
	key := make([]byte, chacha20.KeySize)
	binary.LittleEndian.PutUint64(key, seed)
	s, err := chacha20.NewUnauthenticatedCipher(key, make([]byte, chacha20.NonceSize))
	if err != nil {
		panic(err)
	}
	return s
}

// MakeTestParams derives a small parameter set suitable for unit tests.
func MakeTestParams(numItems, itemSize, dims int) (*Params, error) {
	return DeriveParams(Config{
		NumItems:  numItems,
		ItemSize:  itemSize,
		LogDegree: 12,
		CoeffBits: 16,
		Dims:      dims,
	})
}

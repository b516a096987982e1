package pir

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
)

// ClientKeys is the key material a client hands the server out-of-band:
// the automorphism keys driving query expansion and the relinearization
// key collapsing ciphertext products during the reduction rounds.
type ClientKeys struct {
	Galois []*rlwe.GaloisKey
	Relin  *rlwe.RelinearizationKey
}

// Query is a compact query: exactly Params.QueryCiphertexts() ciphertexts,
// one per hypercube dimension, regardless of the dimension sizes.
type Query struct {
	Cts []*rlwe.Ciphertext
}

// Reply is the server's answer; it decrypts to the plaintext unit holding
// the requested item.
type Reply struct {
	Cts []*rlwe.Ciphertext
}

// Client owns the secret key material for one query stream.
type Client struct {
	params *Params
	he     *heContext
	sk     *rlwe.SecretKey
	enc    *rlwe.Encryptor
	dec    *rlwe.Decryptor
	kgen   *rlwe.KeyGenerator
}

// NewClient creates a client with fresh secret key material.
func NewClient(params *Params) *Client {
	he := newHEContext(params)
	kgen := rlwe.NewKeyGenerator(params.heParams)
	sk := kgen.GenSecretKeyNew()
	return &Client{
		params: params,
		he:     he,
		sk:     sk,
		enc:    rlwe.NewEncryptor(params.heParams, sk),
		dec:    rlwe.NewDecryptor(params.heParams, sk),
		kgen:   kgen,
	}
}

// GenerateKeys produces the key set the server needs before it can serve
// this client. It must be registered with Server.RegisterKeys.
func (c *Client) GenerateKeys() *ClientKeys {
	return &ClientKeys{
		Galois: c.kgen.GenGaloisKeysNew(c.params.expansionGaloisElements(), c.sk),
		Relin:  c.kgen.GenRelinearizationKeyNew(c.sk),
	}
}

// GenerateQuery builds the compact query for one flat item index: per
// dimension, a one-hot coefficient polynomial selecting that dimension's
// digit, encrypted once.
func (c *Client) GenerateQuery(index int) (*Query, error) {
	unit, _, err := c.params.Locate(index)
	if err != nil {
		return nil, err
	}
	digits := c.params.DecomposeUnit(unit)

	cts := make([]*rlwe.Ciphertext, len(digits))
	coeffs := make([]uint64, c.params.N())
	for i, digit := range digits {
		for j := range coeffs {
			coeffs[j] = 0
		}
		coeffs[digit] = 1

		pt := bfv.NewPlaintext(c.params.heParams)
		pt.IsBatched = false
		if err := c.he.encoder.Encode(coeffs, pt); err != nil {
			return nil, fmt.Errorf("encoding query dimension %d: %w", i, err)
		}
		if cts[i], err = c.enc.EncryptNew(pt); err != nil {
			return nil, fmt.Errorf("encrypting query dimension %d: %w", i, err)
		}
	}
	return &Query{Cts: cts}, nil
}

// DecodeReply decrypts a reply and unpacks it into the full plaintext-unit
// byte buffer. Callers slice it at the offset from Params.Locate.
func (c *Client) DecodeReply(reply *Reply) ([]byte, error) {
	got := 0
	if reply != nil {
		got = len(reply.Cts)
	}
	if got != c.params.ReplyCiphertexts() {
		return nil, fmt.Errorf("%w: reply holds %d ciphertexts, want %d",
			ErrQueryShape, got, c.params.ReplyCiphertexts())
	}
	pt := c.dec.DecryptNew(reply.Cts[0])
	pt.IsBatched = false

	coeffs := make([]uint64, c.params.N())
	if err := c.he.encoder.Decode(pt, coeffs); err != nil {
		return nil, fmt.Errorf("decoding reply: %w", err)
	}
	buf := make([]byte, c.params.UnitBytes)
	coeffsToBytes(buf, coeffs, c.params.CoeffBits)
	return buf, nil
}

// ExtractItem decodes a reply and returns exactly the bytes of the item at
// the given flat index.
func (c *Client) ExtractItem(reply *Reply, index int) ([]byte, error) {
	_, offset, err := c.params.Locate(index)
	if err != nil {
		return nil, err
	}
	unit, err := c.DecodeReply(reply)
	if err != nil {
		return nil, err
	}
	return unit[offset : offset+c.params.ItemSize], nil
}

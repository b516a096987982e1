package pir

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
	"gotest.tools/assert"
)

const testSeed = 17

func setupServer(t *testing.T, params *Params, seed uint64) (*Server, []byte) {
	raw := MakeRawDB(seed, params.NumItems, params.ItemSize)
	server := NewServer(params)
	assert.NilError(t, server.SetDatabase(raw))
	assert.NilError(t, server.Preprocess())
	return server, raw
}

func retrieve(t *testing.T, server *Server, client *Client, clientID uint64, index int) []byte {
	query, err := client.GenerateQuery(index)
	assert.NilError(t, err)
	reply, metrics, err := server.GenerateReply(context.Background(), query, clientID)
	assert.NilError(t, err)
	assert.Check(t, metrics.Total > 0)
	item, err := client.ExtractItem(reply, index)
	assert.NilError(t, err)
	return item
}

func TestRetrieve(t *testing.T) {
	params, err := MakeTestParams(32, 2048, 2)
	assert.NilError(t, err)
	server, raw := setupServer(t, params, testSeed)

	client := NewClient(params)
	assert.NilError(t, server.RegisterKeys(1, client.GenerateKeys()))

	// Boundary units and every offset within one unit.
	indices := []int{0, 1, 2, 3, params.ItemsPerUnit, params.NumItems - 1}
	for _, index := range indices {
		item := retrieve(t, server, client, 1, index)
		assert.DeepEqual(t, item, raw[index*params.ItemSize:(index+1)*params.ItemSize])
	}
}

func TestRetrieveSingleDimension(t *testing.T) {
	params, err := MakeTestParams(8, 2048, 1)
	assert.NilError(t, err)
	server, raw := setupServer(t, params, testSeed)

	client := NewClient(params)
	assert.NilError(t, server.RegisterKeys(1, client.GenerateKeys()))

	item := retrieve(t, server, client, 1, 5)
	assert.DeepEqual(t, item, raw[5*params.ItemSize:6*params.ItemSize])
}

func TestRetrieveThreeDimensions(t *testing.T) {
	params, err := MakeTestParams(64, 2048, 3)
	assert.NilError(t, err)
	server, raw := setupServer(t, params, testSeed)

	client := NewClient(params)
	assert.NilError(t, server.RegisterKeys(1, client.GenerateKeys()))

	for _, index := range []int{0, 33, params.NumItems - 1} {
		item := retrieve(t, server, client, 1, index)
		assert.DeepEqual(t, item, raw[index*params.ItemSize:(index+1)*params.ItemSize])
	}
}

func TestConcurrentClients(t *testing.T) {
	params, err := MakeTestParams(32, 2048, 2)
	assert.NilError(t, err)
	server, raw := setupServer(t, params, testSeed)

	const nClients = 3
	clients := make([]*Client, nClients)
	for i := range clients {
		clients[i] = NewClient(params)
		assert.NilError(t, server.RegisterKeys(uint64(i), clients[i].GenerateKeys()))
	}

	items := make([][]byte, nClients)
	errs := make([]error, nClients)
	var wg sync.WaitGroup
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			index := 7 * (i + 1)
			query, err := clients[i].GenerateQuery(index)
			if err != nil {
				errs[i] = err
				return
			}
			reply, _, err := server.GenerateReply(context.Background(), query, uint64(i))
			if err != nil {
				errs[i] = err
				return
			}
			items[i], errs[i] = clients[i].ExtractItem(reply, index)
		}(i)
	}
	wg.Wait()

	for i := range clients {
		assert.NilError(t, errs[i])
		index := 7 * (i + 1)
		assert.DeepEqual(t, items[i], raw[index*params.ItemSize:(index+1)*params.ItemSize])
	}
}

func TestReplaceDatabase(t *testing.T) {
	params, err := MakeTestParams(32, 2048, 2)
	assert.NilError(t, err)
	server, _ := setupServer(t, params, testSeed)

	client := NewClient(params)
	assert.NilError(t, server.RegisterKeys(1, client.GenerateKeys()))

	raw2 := MakeRawDB(testSeed+1, params.NumItems, params.ItemSize)
	assert.NilError(t, server.SetDatabase(raw2))
	assert.NilError(t, server.Preprocess())

	item := retrieve(t, server, client, 1, 11)
	assert.DeepEqual(t, item, raw2[11*params.ItemSize:12*params.ItemSize])
}

func TestUninitializedServer(t *testing.T) {
	params, err := MakeTestParams(32, 2048, 2)
	assert.NilError(t, err)
	client := NewClient(params)
	query, err := client.GenerateQuery(0)
	assert.NilError(t, err)

	server := NewServer(params)
	assert.NilError(t, server.RegisterKeys(1, client.GenerateKeys()))
	_, _, err = server.GenerateReply(context.Background(), query, 1)
	assert.Check(t, errors.Is(err, ErrUninitializedServer))

	assert.NilError(t, server.SetDatabase(MakeRawDB(testSeed, params.NumItems, params.ItemSize)))
	_, _, err = server.GenerateReply(context.Background(), query, 1)
	assert.Check(t, errors.Is(err, ErrUninitializedServer))

	assert.NilError(t, server.Preprocess())
	_, _, err = server.GenerateReply(context.Background(), query, 2)
	assert.Check(t, errors.Is(err, ErrUninitializedServer))
}

func TestQueryShape(t *testing.T) {
	params, err := MakeTestParams(32, 2048, 2)
	assert.NilError(t, err)
	server, _ := setupServer(t, params, testSeed)

	client := NewClient(params)
	assert.NilError(t, server.RegisterKeys(1, client.GenerateKeys()))

	query, err := client.GenerateQuery(0)
	assert.NilError(t, err)
	short := &Query{Cts: query.Cts[:1]}
	_, _, err = server.GenerateReply(context.Background(), short, 1)
	assert.Check(t, errors.Is(err, ErrQueryShape))

	long := &Query{Cts: append(append([]*rlwe.Ciphertext{}, query.Cts...), query.Cts[0])}
	_, _, err = server.GenerateReply(context.Background(), long, 1)
	assert.Check(t, errors.Is(err, ErrQueryShape))

	_, _, err = server.GenerateReply(context.Background(), nil, 1)
	assert.Check(t, errors.Is(err, ErrQueryShape))

	_, err = client.DecodeReply(nil)
	assert.Check(t, errors.Is(err, ErrQueryShape))

	keys := client.GenerateKeys()
	keys.Relin = nil
	err = server.RegisterKeys(2, keys)
	assert.Check(t, errors.Is(err, ErrQueryShape))
}

// Query ciphertexts must keep the encoder's mod-T plaintext scale so that
// ciphertext products track the message scale. A degenerate scale decodes
// every coefficient to zero after the first ciphertext-by-ciphertext round.
func TestQueryCiphertextProduct(t *testing.T) {
	params, err := MakeTestParams(32, 2048, 2)
	assert.NilError(t, err)
	client := NewClient(params)

	keys := client.GenerateKeys()
	evk := rlwe.NewMemEvaluationKeySet(keys.Relin, keys.Galois...)
	eval := bfv.NewEvaluator(params.heParams, evk)

	// Unit 0 has digit 0 in both dimensions, so both ciphertexts encrypt
	// the constant monomial and their product must decode to exactly 1.
	query, err := client.GenerateQuery(0)
	assert.NilError(t, err)

	prod := rlwe.NewCiphertext(params.heParams, 2, query.Cts[0].Level())
	assert.NilError(t, eval.Mul(query.Cts[0], query.Cts[1], prod))
	out := rlwe.NewCiphertext(params.heParams, 1, prod.Level())
	assert.NilError(t, eval.Relinearize(prod, out))
	assert.Check(t, out.Scale.Uint64() != 0)

	pt := client.dec.DecryptNew(out)
	pt.IsBatched = false
	coeffs := make([]uint64, params.N())
	assert.NilError(t, client.he.encoder.Decode(pt, coeffs))
	assert.Equal(t, coeffs[0], uint64(1))
	for _, c := range coeffs[1:16] {
		assert.Equal(t, c, uint64(0))
	}
}

func TestIndexOutOfRange(t *testing.T) {
	params, err := MakeTestParams(32, 2048, 2)
	assert.NilError(t, err)
	client := NewClient(params)

	_, err = client.GenerateQuery(params.NumItems)
	assert.Check(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = client.GenerateQuery(-1)
	assert.Check(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestCancelledContext(t *testing.T) {
	params, err := MakeTestParams(32, 2048, 2)
	assert.NilError(t, err)
	server, _ := setupServer(t, params, testSeed)

	client := NewClient(params)
	assert.NilError(t, server.RegisterKeys(1, client.GenerateKeys()))

	query, err := client.GenerateQuery(0)
	assert.NilError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = server.GenerateReply(ctx, query, 1)
	assert.Check(t, errors.Is(err, context.Canceled))
}

// TestLargeDatabase runs the full-scale scenario: 96151 items of 15 KiB.
// It needs roughly 10 GiB of memory, so it only runs when asked for.
func TestLargeDatabase(t *testing.T) {
	if os.Getenv("PIR_LARGE_TEST") == "" {
		t.Skip("set PIR_LARGE_TEST=1 to run the full-scale scenario")
	}
	params, err := DeriveParams(Config{
		NumItems:  96151,
		ItemSize:  15360,
		LogDegree: 12,
		CoeffBits: 30,
		Dims:      2,
	})
	assert.NilError(t, err)
	server, _ := setupServer(t, params, testSeed)

	client := NewClient(params)
	assert.NilError(t, server.RegisterKeys(1, client.GenerateKeys()))

	index := 42 * 1000
	item := retrieve(t, server, client, 1, index)
	assert.DeepEqual(t, item, MakeItem(testSeed, index, params.ItemSize))
}

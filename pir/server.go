package pir

import (
	"context"
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
)

// Server holds the preprocessed database and the per-client evaluation
// keys. All methods are safe for concurrent use; GenerateReply calls for
// different clients proceed in parallel against the same database.
type Server struct {
	params *Params
	he     *heContext

	mu   sync.RWMutex
	keys map[uint64]*rlwe.MemEvaluationKeySet
	raw  []byte
	db   *Database
}

// NewServer creates a server for a derived parameter set. It serves no
// queries until a database is set, preprocessed, and at least one client
// has registered keys.
func NewServer(params *Params) *Server {
	return &Server{
		params: params,
		he:     newHEContext(params),
		keys:   make(map[uint64]*rlwe.MemEvaluationKeySet),
	}
}

// RegisterKeys stores the evaluation keys for a client id, overwriting any
// previous registration. Only structural completeness is checked; key
// validity surfaces as garbage decryptions on the client side.
func (s *Server) RegisterKeys(clientID uint64, keys *ClientKeys) error {
	if keys == nil || len(keys.Galois) < s.params.maxLogDim() {
		return fmt.Errorf("%w: expansion needs %d automorphism keys",
			ErrQueryShape, s.params.maxLogDim())
	}
	if s.params.Dims > 1 && keys.Relin == nil {
		return fmt.Errorf("%w: relinearization key required for %d dimensions",
			ErrQueryShape, s.params.Dims)
	}
	evk := rlwe.NewMemEvaluationKeySet(keys.Relin, keys.Galois...)

	s.mu.Lock()
	s.keys[clientID] = evk
	s.mu.Unlock()
	return nil
}

// SetDatabase stages the raw item bytes for preprocessing. The server takes
// ownership of raw; callers must not modify it afterwards. The staged bytes
// only become visible to queries once Preprocess succeeds.
func (s *Server) SetDatabase(raw []byte) error {
	if want := s.params.NumItems * s.params.ItemSize; len(raw) != want {
		return fmt.Errorf("%w: database is %d bytes, want %d", ErrParameter, len(raw), want)
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}

// Preprocess packs the staged bytes into the transform-domain hypercube and
// atomically replaces the served database. In-flight replies keep using the
// snapshot they started with.
func (s *Server) Preprocess() error {
	s.mu.Lock()
	raw := s.raw
	s.mu.Unlock()
	if raw == nil {
		return fmt.Errorf("%w: no database staged", ErrUninitializedServer)
	}

	db, err := newDatabase(s.params, raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.db = db
	s.raw = nil
	s.mu.Unlock()
	return nil
}

// GenerateReply expands the compact query against the preprocessed database
// and reduces the hypercube to a single reply ciphertext. The returned
// metrics describe this call only.
func (s *Server) GenerateReply(ctx context.Context, query *Query, clientID uint64) (*Reply, *ReplyMetrics, error) {
	s.mu.RLock()
	db := s.db
	evk, ok := s.keys[clientID]
	s.mu.RUnlock()

	if db == nil {
		return nil, nil, fmt.Errorf("%w: database not preprocessed", ErrUninitializedServer)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: no keys registered for client %d", ErrUninitializedServer, clientID)
	}
	if query == nil || len(query.Cts) != s.params.QueryCiphertexts() {
		got := 0
		if query != nil {
			got = len(query.Cts)
		}
		return nil, nil, fmt.Errorf("%w: query holds %d ciphertexts, want %d",
			ErrQueryShape, got, s.params.QueryCiphertexts())
	}
	for i, ct := range query.Cts {
		if ct == nil || ct.Degree() != 1 {
			return nil, nil, fmt.Errorf("%w: query ciphertext %d is not a fresh degree-1 ciphertext",
				ErrQueryShape, i)
		}
	}

	return s.generateReply(ctx, db, evk, query)
}

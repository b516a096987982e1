package pir

import "time"

// ReplyMetrics is the request-scoped measurement record returned by
// GenerateReply. Stage times from parallel workers are summed, so a stage
// can exceed the wall-clock Total on multi-core servers. Nothing here is
// shared between requests.
type ReplyMetrics struct {
	// Expansion covers turning the compact query into per-dimension
	// one-hot ciphertext vectors.
	Expansion time.Duration
	// QueryTransform covers moving expanded query vectors into the
	// multiplication domain of the stored hypercube.
	QueryTransform time.Duration
	// Multiply and Add cover the homomorphic inner products of every
	// reduction round.
	Multiply time.Duration
	Add      time.Duration
	// Relinearize covers collapsing the key-switching terms after each
	// ciphertext-by-ciphertext round.
	Relinearize time.Duration
	// Construction covers allocating the intermediate hypercubes.
	Construction time.Duration
	// Total is the wall-clock duration of the whole call.
	Total time.Duration
}

package pir

import "errors"

// Structural errors are detected synchronously at the call that triggers
// them and abort only that call; no partial server state is ever left
// behind. None of them are retried internally.
var (
	// ErrParameter indicates that no parameter set can support the
	// requested database shape at a positive noise budget.
	ErrParameter = errors.New("pir: infeasible parameters")

	// ErrUninitializedServer indicates a reply was requested before the
	// database was preprocessed, or before the requesting client's keys
	// were registered.
	ErrUninitializedServer = errors.New("pir: uninitialized server")

	// ErrIndexOutOfRange indicates a retrieval index outside [0, NumItems).
	ErrIndexOutOfRange = errors.New("pir: index out of range")

	// ErrQueryShape indicates a query whose ciphertext count or dimension
	// structure does not match the parameter set.
	ErrQueryShape = errors.New("pir: malformed query")
)

package interfaces

import "errors"

// Sentinel errors shared by all repository implementations. Services translate
// these into the typed API error taxonomy.
var (
	// ErrNotFound means the referenced document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrPreconditionFailed means a guarded conditional write matched no
	// document: the record exists but is no longer in the required state.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrDuplicateKey means an insert violated a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
)

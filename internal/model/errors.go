package model

import "errors"

// Error classes returned by the core. Every core failure wraps exactly one of
// these, so callers branch with errors.Is.
var (
	// ErrStorage means a persisted artifact is unreadable, corrupt or unwritable.
	ErrStorage = errors.New("storage error")
	// ErrInvalidState means the operation needs a non-empty mapping or store.
	ErrInvalidState = errors.New("invalid state")
	// ErrEmbedding means the embedding collaborator failed.
	ErrEmbedding = errors.New("embedding error")
	// ErrDimensionMismatch means a vector does not match the store's dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrValidation means a structured input was malformed and was rejected.
	ErrValidation = errors.New("validation error")
)

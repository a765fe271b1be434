package rag

import "errors"

// Sentinel errors for callers that need to map failures to HTTP status codes.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmbeddingFailed  = errors.New("embedding failed")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrGenerationFailed = errors.New("generation failed")
)

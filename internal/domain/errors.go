package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound signals a missing job posting.
	ErrJobNotFound = errors.New("job not found")
	// ErrMissingMetadata signals a stored posting without a required field.
	ErrMissingMetadata = errors.New("missing metadata field")
	// ErrInvalidWeights signals a ranking weight set that is negative or does not sum to 1.
	ErrInvalidWeights = errors.New("invalid ranking weights")
	// ErrInvalidQuery signals a malformed search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals that the embedding token budget is spent.
	ErrEmbeddingQuotaExceeded = errors.New("embedding token budget exceeded")
	// ErrIndexNotBuilt signals that the vector index has not been populated yet.
	ErrIndexNotBuilt = errors.New("vector index not built")
)

// MissingFieldError wraps ErrMissingMetadata with the offending field and job key.
type MissingFieldError struct {
	Field string
	Key   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %q (key %s)", ErrMissingMetadata.Error(), e.Field, e.Key)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingMetadata }

// NewMissingField creates a missing-metadata error for a stored posting.
func NewMissingField(field, key string) error {
	return &MissingFieldError{Field: field, Key: key}
}

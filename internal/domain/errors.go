package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus signals an index build attempted with no documents.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrNotFound signals a missing persisted index location or artifact.
	ErrNotFound = errors.New("not found")
	// ErrCorruptIndex signals persisted artifacts that disagree with each other.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrDimensionMismatch signals an embedding dimension skew between
	// query and corpus.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrGeneration signals a text generation failure.
	ErrGeneration = errors.New("generation error")
)

// GenerationKind classifies generation gateway failures.
type GenerationKind string

const (
	// GenerationTransient is a retryable failure (network, timeout, 5xx, 429).
	GenerationTransient GenerationKind = "transient"
	// GenerationRejected is a content-policy rejection; retrying the same
	// prompt will not help.
	GenerationRejected GenerationKind = "rejected"
)

// GenerationError wraps ErrGeneration with the failure kind.
type GenerationError struct {
	Kind GenerationKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrGeneration.Error(), e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return ErrGeneration }

// Retryable reports whether the failure is worth retrying.
func (e *GenerationError) Retryable() bool { return e.Kind == GenerationTransient }

// NewGenerationError creates a classified generation error.
func NewGenerationError(kind GenerationKind, err error) error {
	return &GenerationError{Kind: kind, Err: err}
}

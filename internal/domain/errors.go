package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExtraction signals an unreadable or empty source document.
	ErrExtraction = errors.New("text extraction failed")
	// ErrEmbedding signals an embedding provider failure.
	ErrEmbedding = errors.New("embedding provider error")
	// ErrIndexUnavailable signals an unreachable vector index.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrShapeMismatch signals a caller bug: parallel slices of unequal length.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrCompletion signals a chat completion provider failure.
	ErrCompletion = errors.New("completion provider error")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// RateLimitedError wraps ErrRateLimited with the exhausted window and when to retry.
type RateLimitedError struct {
	Scope      string // "minute" or "hour"
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: %d requests per %s exceeded", ErrRateLimited.Error(), e.Limit, e.Scope)
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// NewRateLimited creates a rate limit rejection for the given window.
func NewRateLimited(scope string, limit int, retryAfter time.Duration) error {
	return &RateLimitedError{Scope: scope, Limit: limit, RetryAfter: retryAfter}
}

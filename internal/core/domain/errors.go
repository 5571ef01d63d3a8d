package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreConflict indicates a version-flip write could not complete
	// atomically. It is fatal for the single write involved and is always
	// surfaced to the caller: a partial flip corrupts the latest-version
	// invariant.
	ErrStoreConflict = errors.New("content store conflict")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Hybrid scoring degrades to keyword-only.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRerankUnavailable indicates the reranking service is not
	// configured. Retrieval returns hybrid-scored results directly.
	ErrRerankUnavailable = errors.New("rerank service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Extraction falls back to pattern rules.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrUnsupportedStrategy indicates an unknown fetch strategy name.
	ErrUnsupportedStrategy = errors.New("unsupported fetch strategy")
)

// FetchErrorKind classifies per-URL fetch failures.
type FetchErrorKind string

const (
	// FetchTimeout is a network or navigation timeout.
	FetchTimeout FetchErrorKind = "timeout"

	// FetchBlocked is an anti-automation response (HTTP 403/429 class).
	FetchBlocked FetchErrorKind = "blocked"

	// FetchNotFound is an HTTP 404/410 class response.
	FetchNotFound FetchErrorKind = "notFound"

	// FetchOther covers all remaining failures.
	FetchOther FetchErrorKind = "other"
)

// FetchError is a typed per-URL fetch failure. It is non-fatal: the frontier
// logs it, marks the URL visited and continues.
type FetchError struct {
	Kind FetchErrorKind
	URL  string
	Err  error
}

// NewFetchError wraps an underlying error with a failure kind.
func NewFetchError(kind FetchErrorKind, url string, err error) *FetchError {
	return &FetchError{Kind: kind, URL: url, Err: err}
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s)", e.URL, e.Kind)
}

// Unwrap exposes the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchKind extracts the failure kind from an error chain.
// Returns FetchOther for errors that are not FetchErrors.
func FetchKind(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return FetchOther
}

// IsBlocked reports whether the error is an anti-automation rejection,
// the signal for escalating to the rendering fetch strategy.
func IsBlocked(err error) bool {
	return FetchKind(err) == FetchBlocked
}

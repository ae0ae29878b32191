package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fetch failure for retry routing.
type ErrorKind string

const (
	// ErrQuotaExceeded means the metered source rejected the credential's
	// quota. Retryable with a different key.
	ErrQuotaExceeded ErrorKind = "quota_exceeded"
	// ErrTimeout means the call exceeded its wall-clock budget.
	ErrTimeout ErrorKind = "timeout"
	// ErrTransient covers network failures and 5xx-class responses.
	ErrTransient ErrorKind = "transient"
	// ErrPermanent covers malformed queries and unsupported input. No retry.
	ErrPermanent ErrorKind = "permanent"
)

// FetchError is the typed failure returned by source clients.
type FetchError struct {
	Kind   ErrorKind
	Source SourceKind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s fetch failed: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s fetch failed (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError wraps err with a kind and source.
func NewFetchError(kind ErrorKind, source SourceKind, err error) *FetchError {
	return &FetchError{Kind: kind, Source: source, Err: err}
}

// KindOf extracts the error kind; unknown errors count as transient.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrTransient
}

// Retryable reports whether a task may attempt the same fetch again.
func Retryable(err error) bool {
	switch KindOf(err) {
	case ErrTimeout, ErrTransient:
		return true
	}
	return false
}

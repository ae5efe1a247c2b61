package enrich

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an enrichment failure so the caller can choose
// retry, skip, or abort without matching on error strings.
type ErrorKind int

const (
	// KindNotConfigured means the provider has no credentials or binding.
	KindNotConfigured ErrorKind = iota
	// KindTransient means the call may succeed if retried (timeout, quota).
	KindTransient
	// KindPermanent means retrying the same call will not help.
	KindPermanent
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotConfigured:
		return "not_configured"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Error is a classified enrichment provider failure.
type Error struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NotConfigured reports that a provider has no usable configuration.
func NotConfigured(provider string) error {
	return &Error{Kind: KindNotConfigured, Provider: provider}
}

// Transient wraps a retryable failure.
func Transient(provider string, err error) error {
	return &Error{Kind: KindTransient, Provider: provider, Err: err}
}

// Permanent wraps a non-retryable failure.
func Permanent(provider string, err error) error {
	return &Error{Kind: KindPermanent, Provider: provider, Err: err}
}

// KindOf extracts the classification from an error chain.
// Unclassified errors are treated as permanent.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPermanent
}

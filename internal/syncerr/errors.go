package syncerr

import (
	"errors"
	"fmt"
)

// Kind classifies a sync failure by how the caller should react to it.
type Kind string

const (
	// KindConfiguration marks missing or unusable credentials. Not retried, surfaced as a skip.
	KindConfiguration Kind = "configuration"
	// KindTransientFetch marks network failures, non-200 responses and empty bodies.
	KindTransientFetch Kind = "transient_fetch"
	// KindUpstreamFormat marks responses whose shape could not be understood.
	KindUpstreamFormat Kind = "upstream_format"
	// KindNotFound marks an expected miss that is handled locally.
	KindNotFound Kind = "not_found"
)

// Error is the typed error returned by fetchers, fact clients and registrar clients.
type Error struct {
	Kind    Kind
	Source  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Source == "" {
		return msg
	}
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether a fresh attempt could succeed.
func (e *Error) Retryable() bool {
	return e != nil && e.Kind == KindTransientFetch
}

func newError(kind Kind, source, message string, err error) *Error {
	return &Error{Kind: kind, Source: source, Message: message, Err: err}
}

func Configuration(source, message string) *Error {
	return newError(KindConfiguration, source, message, nil)
}

func TransientFetch(source, message string, err error) *Error {
	return newError(KindTransientFetch, source, message, err)
}

func UpstreamFormat(source, message string, err error) *Error {
	return newError(KindUpstreamFormat, source, message, err)
}

func NotFound(source, message string) *Error {
	return newError(KindNotFound, source, message, nil)
}

// KindOf returns the kind of the first *Error in the chain, or "" when there is none.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Retryable()
	}
	return false
}

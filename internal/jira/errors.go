package jira

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// LookupError is the classified failure of a single backend call.
// The variants are AuthRequiredError, NotFoundError, StatusError,
// TransportError and UnknownError.
type LookupError interface {
	error
	isLookupError()
}

// AuthRequiredError indicates the backend needs the user to (re)authenticate
type AuthRequiredError struct {
	ReauthURI string
}

func (e *AuthRequiredError) Error() string {
	return "authentication required: " + e.ReauthURI
}

// NotFoundError indicates the backend does not know the requested resource
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Resource
}

// StatusError is a non-2xx response other than "not found"
type StatusError struct {
	Code int
	Text string
	// Diagnostics are the backend's error messages from the response body
	Diagnostics []string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Text)
}

// TransportError is a failure to reach the backend or read its response
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// UnknownError wraps any failure that fits no other class
type UnknownError struct {
	Cause error
}

func (e *UnknownError) Error() string {
	if e.Cause == nil {
		return "unknown error"
	}
	return e.Cause.Error()
}

func (e *UnknownError) Unwrap() error {
	return e.Cause
}

func (*AuthRequiredError) isLookupError() {}
func (*NotFoundError) isLookupError()     {}
func (*StatusError) isLookupError()       {}
func (*TransportError) isLookupError()    {}
func (*UnknownError) isLookupError()      {}

// Classify converts any error returned by a Transport into a LookupError.
// Already classified errors are returned as-is.
func Classify(err error) LookupError {
	if err == nil {
		return nil
	}

	var lookupErr LookupError
	if errors.As(err, &lookupErr) {
		return lookupErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransportError{Message: "request failed", Cause: err}
	}

	return &UnknownError{Cause: err}
}

// isNotFound reports whether err is the NotFound variant
func isNotFound(err LookupError) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// renderLookupError renders err for the user, without the backend prefix
func renderLookupError(err LookupError) string {
	switch e := err.(type) {
	case *AuthRequiredError:
		return fmt.Sprintf("Could not authenticate. Please authenticate at %s to link your account", e.ReauthURI)
	case *StatusError:
		return e.Text
	case *NotFoundError:
		return e.Error()
	case *TransportError:
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return e.Message
	default:
		return fmt.Sprintf("internal error: %s, check logs", err.Error())
	}
}

// BackendError pairs a backend with the error it produced
type BackendError struct {
	Backend *Backend
	Err     LookupError
}

// AggregatedLookupError collects the per-backend errors of one lookup.
// Entries keep backend order and there is always at least one.
type AggregatedLookupError struct {
	Errors []BackendError
}

// newAggregatedLookupError panics when errs is empty
func newAggregatedLookupError(errs []BackendError) *AggregatedLookupError {
	if len(errs) == 0 {
		panic("jira: aggregated lookup error without entries")
	}
	return &AggregatedLookupError{Errors: errs}
}

// PrintableErrors renders one "<backend>: <message>" line per entry
func (e *AggregatedLookupError) PrintableErrors() []string {
	lines := make([]string, 0, len(e.Errors))
	for _, entry := range e.Errors {
		lines = append(lines, entry.Backend.Name+": "+renderLookupError(entry.Err))
	}
	return lines
}

func (e *AggregatedLookupError) Error() string {
	return "jira lookup errors: " + strings.Join(e.PrintableErrors(), ", ")
}

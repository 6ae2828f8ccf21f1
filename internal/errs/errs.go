// Package errs defines the closed set of failure kinds surfaced by cdn-publish.
// Every collaborator boundary maps its library-specific errors onto one of these kinds explicitly.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure. Kinds are strings for debuggability in logs.
type Kind string

const (
	// KindParse indicates a malformed remote path, URL or header value.
	KindParse Kind = "PARSE"

	// KindFileTraverse indicates a filesystem access or containment failure during discovery.
	KindFileTraverse Kind = "FILE_TRAVERSE"

	// KindOperations indicates a violated precondition, e.g. a non-empty remote prefix without overwrite.
	KindOperations Kind = "OPERATIONS"

	// KindHTTPClient indicates a transport level failure.
	KindHTTPClient Kind = "HTTP_CLIENT"

	// KindHTTPResponse indicates a structured API error returned by the storage service.
	KindHTTPResponse Kind = "HTTP_RESPONSE"

	// KindSerialization indicates a malformed API payload.
	KindSerialization Kind = "SERIALIZATION"

	// KindIO indicates a local read or write failure.
	KindIO Kind = "IO"
)

// Error is the single error type returned across package boundaries.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Msg, e.Err)
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind that wraps err. An empty format keeps err's message as is.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	msg := ""
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether any *Error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

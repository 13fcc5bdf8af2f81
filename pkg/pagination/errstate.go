package pagination

import (
	"errors"
	"fmt"
)

// ErrFetchFailed is wrapped by FetchError.
var ErrFetchFailed = errors.New("page fetch failed")

// Kind classifies the last fetch failure.
type Kind string

const (
	// KindNone means the last fetch succeeded or none was attempted.
	KindNone Kind = ""

	// KindTransport means no HTTP response was obtained.
	KindTransport Kind = "transport"

	// KindRemote means the service answered with a status of 300 or above.
	KindRemote Kind = "remote"

	// KindDecode means the service answered successfully but the body was unusable.
	KindDecode Kind = "decode"
)

// ErrorState is the outcome of the most recent fetch. Zero values mean unset.
type ErrorState struct {
	// Code is the negated transport error code (see client.Code*).
	Code int

	// HTTPStatus is the status of the last received response. It stays zero
	// for transport failures and for bodies that could not be decoded.
	HTTPStatus int

	// RawError is the transport error description, or the response body
	// when the response was rejected or could not be decoded.
	RawError string

	Kind Kind
}

// Failed reports whether the last fetch failed: a transport failure, a
// status of 400 or above, or an undecodable body.
func (s ErrorState) Failed() bool {
	return s.Code < 0 || s.HTTPStatus >= 400 || s.Kind == KindDecode
}

// Reset clears the state before a new fetch.
func (s *ErrorState) Reset() {
	*s = ErrorState{}
}

// FetchError reports a failed fetch to callers that prefer Go errors, such as Each.
type FetchError struct {
	Page  int
	State ErrorState
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch e.State.Kind {
	case KindTransport:
		return fmt.Sprintf("%v: page %d: transport error %d: %s", ErrFetchFailed, e.Page, e.State.Code, e.State.RawError)
	case KindRemote:
		return fmt.Sprintf("%v: page %d: status %d", ErrFetchFailed, e.Page, e.State.HTTPStatus)
	default:
		return fmt.Sprintf("%v: page %d: %s payload", ErrFetchFailed, e.Page, e.State.Kind)
	}
}

// Unwrap lets errors.Is match ErrFetchFailed.
func (e *FetchError) Unwrap() error {
	return ErrFetchFailed
}

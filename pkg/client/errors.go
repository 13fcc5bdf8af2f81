package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sony/gobreaker"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrCircuitOpen is returned while the circuit breaker rejects requests.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Transport error codes. The numbering follows libcurl so that codes logged by
// this client line up with those of other ISBN Plus clients.
const (
	CodeUnsupportedProtocol = 1
	CodeMalformedURL        = 3
	CodeResolveHost         = 6
	CodeConnect             = 7
	CodeTimeout             = 28
	CodeAborted             = 42
	CodeTLSHandshake        = 35
	CodeReceive             = 56
	CodePeerCertificate     = 60
)

// TransportError is a failure to obtain any HTTP response.
type TransportError struct {
	// Code is a positive low-level error code (see the Code* constants).
	Code       int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("isbnplus %s error (code %d): %s: %v",
			e.ErrorClass, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("isbnplus %s error (code %d): %s",
		e.ErrorClass, e.Code, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Description is the text recorded as the raw error for this failure.
func (e *TransportError) Description() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// newTransportError classifies err into a TransportError.
func newTransportError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	code, msg := transportCode(err)
	class := ErrorClassNetwork
	if errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) {
		class = ErrorClassCircuitOpen
	}

	return &TransportError{
		Code:       code,
		ErrorClass: class,
		Message:    msg,
		Err:        err,
	}
}

// transportCode maps a Go transport error to a code and short description.
func transportCode(err error) (int, string) {
	var (
		dnsErr      *net.DNSError
		certErr     *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidCert x509.CertificateInvalidError
		recordErr   tls.RecordHeaderError
		opErr       *net.OpError
		netErr      net.Error
	)

	switch {
	case errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests),
		errors.Is(err, ErrCircuitOpen):
		return CodeConnect, "circuit breaker open"
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout, "operation timed out"
	case errors.Is(err, context.Canceled), errors.Is(err, ErrContextCancelled):
		return CodeAborted, "operation aborted"
	case errors.As(err, &dnsErr):
		return CodeResolveHost, "could not resolve host"
	case errors.As(err, &certErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostErr),
		errors.As(err, &invalidCert):
		return CodePeerCertificate, "peer certificate cannot be authenticated"
	case errors.As(err, &recordErr):
		return CodeTLSHandshake, "TLS handshake failed"
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout, "operation timed out"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return CodeConnect, "could not connect to server"
	case strings.Contains(err.Error(), "unsupported protocol scheme"):
		return CodeUnsupportedProtocol, "unsupported protocol"
	default:
		return CodeReceive, "failure receiving data"
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx: the same request will be rejected again
		return false
	case ErrorClassServer:
		return true
	case ErrorClassRateLimit:
		return true
	case ErrorClassNetwork:
		return true
	default:
		return false
	}
}

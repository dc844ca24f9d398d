package api

import (
	"errors"
	"fmt"
)

// Errors returned by Client operations.
//
// Transport and remote failures are typed so callers can tell them apart:
//
//	if api.IsRemote(err) && api.StatusCode(err) == http.StatusNotFound {
//	    // The server no longer knows the record
//	}
var (
	// ErrMissingServerID is returned when a create call succeeds but the
	// response carries no record (or a record without an id).
	ErrMissingServerID = errors.New("create response has no server id")

	// ErrNoToken is returned when a login response carries no token.
	ErrNoToken = errors.New("auth response has no token")

	// ErrNoBaseURL is returned when the client has no API base URL.
	ErrNoBaseURL = errors.New("api base url not configured")
)

// TransportError wraps a failure to reach the server: DNS, connection,
// timeout, TLS, or cancellation.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport failure: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a non-2xx response. Body holds the raw response body and
// Message the server's "message" field when it sent one.
type RemoteError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: server returned %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: server returned %d", e.Method, e.Path, e.StatusCode)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRemote reports whether err is (or wraps) a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// StatusCode returns the HTTP status of a wrapped RemoteError, or 0.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// IsRetryable reports whether err is likely to succeed on retry: transport
// failures other than cancellation, and 5xx / 429 responses.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsTransport(err) {
		return !IsCanceled(err)
	}
	code := StatusCode(err)
	return code >= 500 || code == 429
}

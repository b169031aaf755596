package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means the session could not be recovered; the UI should route to login
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrMalformedResponse means the body was not a valid envelope
	ErrMalformedResponse = errors.New("malformed response")
)

// TransportError is a network-level failure (unreachable host, timeout, reset)
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError is an authentication failure: bad credentials, or an expired token that could not be renewed
type AuthError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authentication failed (status %d)", e.Status)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError is a rejected payload, either client-side or by the server
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// EnvelopeError is an error envelope, including error:true inside an HTTP 200
type EnvelopeError struct {
	Status  int
	Message string
	Err     error
}

func (e *EnvelopeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (status %d)", e.Status)
	}
	return e.Message
}

func (e *EnvelopeError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failure is worth offering a retry affordance for
func IsRetryable(err error) bool {
	var te *TransportError
	var ee *EnvelopeError
	return errors.As(err, &te) || (errors.As(err, &ee) && (ee.Status == 0 || ee.Status >= 500))
}

// IsUnauthenticated reports whether the session is gone
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// Message extracts a user-facing message from any error
func Message(err error) string {
	var ae *AuthError
	var ve *ValidationError
	var ee *EnvelopeError
	var te *TransportError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &ae):
		return ae.Error()
	case errors.As(err, &ee):
		return ee.Error()
	case errors.As(err, &te):
		return "Network error. Please try again."
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}

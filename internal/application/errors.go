package application

import (
	"errors"
	"fmt"
)

// Server error codes with client-side meaning.
const (
	CodeAccessTokenNotAccepted = 104
	CodeUnexpectedError        = 10000
)

var (
	ErrTransport              = errors.New("transport failure")
	ErrAccessTokenNotAccepted = errors.New("access token not accepted")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInvalidLambdaArgs      = errors.New("lambda arguments must be nil, a slice or a string-keyed map")
	ErrMalformedResponse      = errors.New("malformed response")
)

// TransportError means no response was obtained for Action.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Action, ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// ServerError is an error envelope reported by the backend.
type ServerError struct {
	Name    string
	Code    int
	Message string
	// Status is the HTTP status the envelope arrived with.
	Status int
}

func (e *ServerError) Error() string {
	return e.Message
}

func (e *ServerError) Is(target error) bool {
	return target == ErrAccessTokenNotAccepted && e.Code == CodeAccessTokenNotAccepted
}

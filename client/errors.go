package client

import (
	"errors"
	"fmt"
)

// Error types for classifying backend client failures.

// TransportError represents a connection or bridge failure: the request
// never produced a response.
type TransportError struct {
	err error
}

func (e *TransportError) Error() string {
	return e.err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.err
}

// NewTransportError wraps an underlying cause as a transport failure.
func NewTransportError(err error) error {
	return &TransportError{err: err}
}

// IsTransport returns true if the error is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ProtocolError represents a non-2xx response or a malformed top-level
// response body.
type ProtocolError struct {
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, body)
}

// AsProtocol extracts a ProtocolError from an error chain.
func AsProtocol(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	ok := errors.As(err, &pe)
	return pe, ok
}

// DecodeError represents a single malformed stream frame. It is non-fatal:
// the surrounding stream continues.
type DecodeError struct {
	err error
}

func (e *DecodeError) Error() string {
	return e.err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.err
}

// NewDecodeError wraps a frame decoding failure.
func NewDecodeError(err error) error {
	return &DecodeError{err: err}
}

// IsDecode returns true if the error is a per-frame decode failure.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// NotFoundError indicates an absent session or agent, or a stream that
// ended without producing a final message.
type NotFoundError struct {
	msg string
}

func (e *NotFoundError) Error() string {
	return e.msg
}

// NewNotFoundError creates a NotFoundError with the given message.
func NewNotFoundError(msg string) error {
	return &NotFoundError{msg: msg}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

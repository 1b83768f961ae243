// Package bomerr holds the error types shared by the Bureau fetchers.
package bomerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/textproto"
)

// ErrEmptyIndex is returned when a nearest-location search runs over an empty index.
var ErrEmptyIndex = errors.New("location index is empty")

// ErrInvalidCoordinates is returned for a latitude or longitude that is not a
// finite value within range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// TransportError reports a failed network or FTP retrieval.
type TransportError struct {
	Op         string // "http get", "ftp retr", ...
	Target     string // URL or remote path
	StatusCode int    // HTTP status, 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Op, e.Target, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether a caller could reasonably try the same request again.
func (e *TransportError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	case e.StatusCode != 0:
		return false
	}
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	// FTP replies: 4xx are transient, 5xx permanent.
	var reply *textproto.Error
	if errors.As(e.Err, &reply) {
		return reply.Code < 500
	}
	var netErr net.Error
	if errors.As(e.Err, &netErr) {
		return true
	}
	return e.Err != nil
}

// FormatError reports an upstream document that no longer has the expected structure.
type FormatError struct {
	Source  string // "station table", "observation feed", "forecast", ...
	Subject string // jurisdiction, product code, row number
	Err     error
}

func (e *FormatError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Source, e.Subject, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Formatf builds a FormatError with a formatted cause.
func Formatf(source, subject, format string, args ...any) *FormatError {
	return &FormatError{Source: source, Subject: subject, Err: fmt.Errorf(format, args...)}
}

// IsRetryable reports whether err wraps a TransportError that may succeed on retry.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}

// IsFormat reports whether err wraps a FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

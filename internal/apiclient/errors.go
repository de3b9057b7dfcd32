package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindHTTP        Kind = "http"
	KindTimeout     Kind = "timeout"
	KindNetwork     Kind = "network"
	KindCanceled    Kind = "canceled"
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("file has no content")
	ErrCircuitOpen         = errors.New("catalog api circuit open")
)

// Error is returned for every failed call. Status follows HTTP semantics:
// 429 for RateLimited, 408 for Timeout, 0 for Network and Canceled.
type Error struct {
	Kind       Kind
	Status     int
	StatusText string
	Method     string
	Path       string
	RequestID  string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.StatusText
	}
	if e.Path == "" {
		return fmt.Sprintf("%s (status=%d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: %s (status=%d): %s", e.Method, e.Path, e.Kind, e.Status, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func rateLimited(method, path string) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Status:     http.StatusTooManyRequests,
		StatusText: http.StatusText(http.StatusTooManyRequests),
		Method:     method,
		Path:       path,
		Message:    "too many requests, please try again later",
	}
}

func httpError(status int, msg string, err error) *Error {
	return &Error{Kind: KindHTTP, Status: status, StatusText: http.StatusText(status), Message: msg, Err: err}
}

// KindOf returns the Kind of an *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusOf returns the status of an *Error in err's chain, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsRetryable reports whether retrying err could succeed. Client errors other
// than 429 and caller cancellation are final; everything else is transient.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return true
	}
	switch e.Kind {
	case KindCanceled:
		return false
	case KindHTTP:
		return e.Status == http.StatusTooManyRequests || e.Status < 400 || e.Status >= 500
	}
	return true
}

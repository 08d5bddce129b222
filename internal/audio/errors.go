package audio

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindTransport
	KindNotFound
	KindSizeExceeded
	KindHTTPStatus
	KindFilesystem
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not_found"
	case KindSizeExceeded:
		return "size_exceeded"
	case KindHTTPStatus:
		return "http_status"
	case KindFilesystem:
		return "filesystem"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrTransport    = &Error{Kind: KindTransport}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrSizeExceeded = &Error{Kind: KindSizeExceeded}
	ErrHTTPStatus   = &Error{Kind: KindHTTPStatus}
	ErrFilesystem   = &Error{Kind: KindFilesystem}
)

// Error is returned by the download and upload stages.
type Error struct {
	Kind Kind
	Op   string // "download", "upload", "cleanup", ...
	Path string // local path or URL, if any
	Err  error
}

// NewError wraps err with a kind, operation and subject.
func NewError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// SizeError reports a file over the configured limit.
type SizeError struct {
	Size int64
	Max  int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("file too large (%s), max allowed %s", megabytes(e.Size), megabytes(e.Max))
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.Code, e.Body)
}

func megabytes(n int64) string {
	return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
}

package acquire

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sells-group/procurement-leads/internal/model"
)

// ErrorKind classifies why a Reference could not be resolved to text.
type ErrorKind string

const (
	Timeout                  ErrorKind = "timeout"
	NetworkError             ErrorKind = "network_error"
	UnreadableDocument       ErrorKind = "unreadable_document"
	UnsupportedReferenceKind ErrorKind = "unsupported_reference_kind"
)

// Error is returned by Acquire. The reference is skipped by the pipeline.
type Error struct {
	Kind ErrorKind
	Ref  model.Reference
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("acquire: %s (%s)", e.Kind, e.Ref)
	}
	return fmt.Sprintf("acquire: %s (%s): %v", e.Kind, e.Ref, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, ref model.Reference, err error) *Error {
	return &Error{Kind: kind, Ref: ref, Err: err}
}

// transportError maps a failed fetch or render to Timeout or NetworkError.
func transportError(ctx context.Context, ref model.Reference, err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(Timeout, ref, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(Timeout, ref, err)
	}
	return newError(NetworkError, ref, err)
}

// IsKind reports whether err is an acquisition error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

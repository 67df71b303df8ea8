// Package provisioning orchestrates one image provisioning run: selecting the
// target, validating device-type compatibility, resolving answers and version,
// and sequencing configuration writes into the image.
package provisioning

import (
	"errors"
	"fmt"
)

// Kind classifies a provisioning error. The classification tells callers
// whether the image may already have been mutated.
type Kind string

const (
	// KindUsage is a fatal configuration error. Raised before any network or
	// file I/O.
	KindUsage Kind = "usage"

	// KindCompatibility means the override device type cannot run the
	// application's declared device type. Raised before any mutation.
	KindCompatibility Kind = "compatibility"

	// KindRetrieval means a manifest, version, or key could not be obtained.
	// Raised before any mutation.
	KindRetrieval Kind = "retrieval"

	// KindWrite means an image write failed. Prior writes of the same run are
	// not rolled back; the image is left as the earlier writes produced it.
	KindWrite Kind = "write"
)

// Error is a classified provisioning failure with image location context for
// write failures.
type Error struct {
	Kind      Kind
	Message   string
	Partition int
	Path      string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s (partition=%d, path=%s)", msg, e.Partition, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewUsageError creates a usage error.
func NewUsageError(message string) *Error {
	return &Error{Kind: KindUsage, Message: message}
}

// NewCompatibilityError creates a compatibility error.
func NewCompatibilityError(message string, err error) *Error {
	return &Error{Kind: KindCompatibility, Message: message, Err: err}
}

// NewRetrievalError creates a retrieval error.
func NewRetrievalError(message string, err error) *Error {
	return &Error{Kind: KindRetrieval, Message: message, Err: err}
}

// NewWriteError creates a write error carrying the failed location.
func NewWriteError(message string, partition int, path string, err error) *Error {
	return &Error{Kind: KindWrite, Message: message, Partition: partition, Path: path, Err: err}
}

func isKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsUsage reports whether err is a usage error.
func IsUsage(err error) bool { return isKind(err, KindUsage) }

// IsCompatibility reports whether err is a compatibility error.
func IsCompatibility(err error) bool { return isKind(err, KindCompatibility) }

// IsRetrieval reports whether err is a retrieval error.
func IsRetrieval(err error) bool { return isKind(err, KindRetrieval) }

// IsWrite reports whether err is a write error. Write errors mean the image
// may already be partially mutated.
func IsWrite(err error) bool { return isKind(err, KindWrite) }

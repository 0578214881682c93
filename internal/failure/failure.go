// Package failure classifies the errors surfaced by the resolution pipeline so
// callers can render a diagnostic without string matching.
package failure

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindVersionNotFound  Kind = "version_not_found"
	KindNoMatchingAsset  Kind = "no_matching_asset"
	KindSizeMismatch     Kind = "size_mismatch"
	KindChecksumMismatch Kind = "checksum_mismatch"
	KindSignatureInvalid Kind = "signature_invalid"
	KindInvalidInput     Kind = "invalid_input"
	KindFetch            Kind = "fetch_failed"
)

type classifiedError struct {
	kind  Kind
	hint  string
	cause error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return string(e.kind)
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

// New builds a classified error from a format string.
func New(kind Kind, hint, format string, args ...any) error {
	return &classifiedError{kind: kind, hint: hint, cause: fmt.Errorf(format, args...)}
}

// Wrap classifies cause. A nil cause stays nil.
func Wrap(cause error, kind Kind, hint string) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{kind: kind, hint: hint, cause: cause}
}

// KindOf returns the outermost kind attached to err, or "" when unclassified.
func KindOf(err error) Kind {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.kind
	}
	return ""
}

func HintOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.hint
	}
	return ""
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

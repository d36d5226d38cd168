// Package errors provides the error taxonomy of the IaC memory store.
//
// It re-exports github.com/cockroachdb/errors and adds one sentinel per
// failure kind. Wrap a sentinel to add context while keeping the kind:
//
//	return errors.NotFoundf("entity %q", id)
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
//
// Kind and Message turn any error into the structured (kind, message) pair
// the MCP façade returns to callers.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	WithDetail   = crdb.WithDetail
	Mark         = crdb.Mark
	Is           = crdb.Is
	IsAny        = crdb.IsAny
	As           = crdb.As
	Unwrap       = crdb.Unwrap
	UnwrapAll    = crdb.UnwrapAll
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Sentinel errors, one per kind. Use errors.Is to check.
var (
	// ErrNotFound indicates a referenced id or name does not exist.
	ErrNotFound = New("not found")

	// ErrDuplicateName indicates a uniqueness violation.
	ErrDuplicateName = New("duplicate name")

	// ErrDanglingReference indicates a relationship endpoint or foreign key is missing.
	ErrDanglingReference = New("dangling reference")

	// ErrValidation indicates an out-of-range or malformed field.
	ErrValidation = New("validation failed")

	// ErrUnknownVersion indicates a version that is not registered for a resource.
	ErrUnknownVersion = New("unknown version")

	// ErrStorage indicates an underlying I/O or transaction failure.
	ErrStorage = New("storage failure")
)

// Kind names returned by Kind.
const (
	KindNotFound          = "not_found"
	KindDuplicateName     = "duplicate_name"
	KindDanglingReference = "dangling_reference"
	KindValidation        = "validation"
	KindUnknownVersion    = "unknown_version"
	KindStorage           = "storage"
	KindInternal          = "internal"
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return crdb.WrapWithDepthf(1, ErrNotFound, format, args...)
}

// Duplicatef wraps ErrDuplicateName with a formatted message.
func Duplicatef(format string, args ...any) error {
	return crdb.WrapWithDepthf(1, ErrDuplicateName, format, args...)
}

// Danglingf wraps ErrDanglingReference with a formatted message.
func Danglingf(format string, args ...any) error {
	return crdb.WrapWithDepthf(1, ErrDanglingReference, format, args...)
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return crdb.WrapWithDepthf(1, ErrValidation, format, args...)
}

// UnknownVersionf wraps ErrUnknownVersion with a formatted message.
func UnknownVersionf(format string, args ...any) error {
	return crdb.WrapWithDepthf(1, ErrUnknownVersion, format, args...)
}

// Storage marks a driver or transaction error as ErrStorage. Errors that
// already carry a kind are returned unchanged so a typed failure raised
// inside a transaction is not reclassified on the way out.
func Storage(err error, op string) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInternal {
		return err
	}
	return crdb.Mark(crdb.WrapWithDepth(1, err, op), ErrStorage)
}

// Kind classifies err into one of the Kind* names.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrNotFound):
		return KindNotFound
	case Is(err, ErrDuplicateName):
		return KindDuplicateName
	case Is(err, ErrDanglingReference):
		return KindDanglingReference
	case Is(err, ErrValidation):
		return KindValidation
	case Is(err, ErrUnknownVersion):
		return KindUnknownVersion
	case Is(err, ErrStorage):
		return KindStorage
	default:
		return KindInternal
	}
}

// Message returns the human-readable message of err. Stack traces are only
// rendered by the %+v verb, so Error() is safe to show to callers.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsValidation reports whether err is or wraps ErrValidation.
func IsValidation(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

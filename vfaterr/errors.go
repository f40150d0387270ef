package vfaterr

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// DriverError is the error type returned by every exported operation in
// this module. It pairs an Errno with a human-readable message and,
// optionally, one or more underlying causes collected with go-multierror.
type DriverError struct {
	errno   Errno
	message string
	wrapped *multierror.Error
}

// New creates a DriverError for the given code using its default message.
func New(errno Errno) *DriverError {
	return &DriverError{errno: errno, message: StrError(errno)}
}

// NewWithMessage creates a DriverError for the given code with a custom
// message instead of the default one.
func NewWithMessage(errno Errno, format string, args ...interface{}) *DriverError {
	return &DriverError{errno: errno, message: fmt.Sprintf(format, args...)}
}

// NewFromError wraps an arbitrary error under the given Errno, preserving
// it as the wrapped cause so callers can still inspect it with errors.Is
// or errors.Unwrap.
func NewFromError(errno Errno, cause error) *DriverError {
	e := &DriverError{errno: errno, message: StrError(errno)}
	return e.Wrap(cause)
}

// Errno returns the error code carried by this error.
func (e *DriverError) Errno() Errno {
	return e.errno
}

// Error implements the error interface.
func (e *DriverError) Error() string {
	if e.wrapped != nil && len(e.wrapped.Errors) > 0 {
		return fmt.Sprintf("%s: %s", e.message, e.wrapped.Error())
	}
	return e.message
}

// Unwrap exposes the wrapped causes to errors.Is/errors.As.
func (e *DriverError) Unwrap() error {
	if e.wrapped == nil {
		return nil
	}
	return e.wrapped.ErrorOrNil()
}

// WithMessage returns a copy of the error with its message replaced.
func (e *DriverError) WithMessage(format string, args ...interface{}) *DriverError {
	clone := *e
	clone.message = fmt.Sprintf(format, args...)
	return &clone
}

// Wrap appends one or more causes to the error, accumulating them with
// go-multierror so none are lost if the error is wrapped more than once.
func (e *DriverError) Wrap(causes ...error) *DriverError {
	clone := *e
	clone.wrapped = multierror.Append(clone.wrapped, causes...)
	return &clone
}

// Is allows errors.Is(err, vfaterr.New(X)) to match purely on Errno,
// regardless of message or wrapped causes.
func (e *DriverError) Is(target error) bool {
	other, ok := target.(*DriverError)
	if !ok {
		return false
	}
	return e.errno == other.errno
}

// Sentinel errors for conditions common enough to warrant a shared value,
// matching the spread of the underlying Errno enum.
var (
	ErrNotExist           = New(ENOENT)
	ErrExist              = New(EEXIST)
	ErrNotDir             = New(ENOTDIR)
	ErrIsDir              = New(EISDIR)
	ErrInvalid            = New(EINVAL)
	ErrNoSpace            = New(ENOSPC)
	ErrReadOnly           = New(EROFS)
	ErrPermission         = New(EACCES)
	ErrUnknownFormat      = New(EUNKNOWNFORMAT)
	ErrCorruptLabel       = New(ECORRUPTLABEL)
	ErrCorruptBootSector  = New(ECORRUPTBOOTSECTOR)
	ErrCorruptChain       = New(ECORRUPTCHAIN)
	ErrCrossLink          = New(ECROSSLINK)
	ErrDirFull            = New(EDIRFULL)
	ErrPartitionRequired  = New(EPARTITIONREQUIRED)
	ErrPartitionRange     = New(EPARTITIONRANGE)
	ErrAmbiguous          = New(EAMBIGUOUS)
)

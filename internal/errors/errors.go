package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a conversion error code.
type ErrorCode string

const (
	ErrArchiveUnreadable  ErrorCode = "ARCHIVE_UNREADABLE"   // semantic history dir cannot be listed
	ErrPartitionRead      ErrorCode = "PARTITION_READ"       // month file exists but cannot be read/parsed
	ErrMalformedTimestamp ErrorCode = "MALFORMED_TIMESTAMP"  // record timestamp missing or unparseable
	ErrInvalidInterval    ErrorCode = "INVALID_INTERVAL"     // start after end, or bad date string
	ErrInvalidMetadataKey ErrorCode = "INVALID_METADATA_KEY" // metadata key outside the known set
	ErrWriteFailed        ErrorCode = "WRITE_FAILED"         // output file could not be written
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"      // bad flag or config value
	ErrInternal           ErrorCode = "INTERNAL"
)

// ConvertError represents a fatal error with code, message, details and cause.
type ConvertError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *ConvertError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ConvertError) Unwrap() error {
	return e.Err
}

// NewArchiveUnreadable creates an error for an archive directory that cannot be listed.
func NewArchiveUnreadable(dir string, err error) *ConvertError {
	return &ConvertError{
		Code:    ErrArchiveUnreadable,
		Message: fmt.Sprintf("cannot list location history directory %s: %v", dir, err),
		Details: map[string]any{"dir": dir},
		Err:     err,
	}
}

// NewPartitionRead creates an error for a month file that exists but could not be loaded.
func NewPartitionRead(path string, err error) *ConvertError {
	return &ConvertError{
		Code:    ErrPartitionRead,
		Message: fmt.Sprintf("failed to load %s: %v", path, err),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewMalformedTimestamp creates an error for a record whose timestamp cannot be resolved.
func NewMalformedTimestamp(field, value string, err error) *ConvertError {
	msg := fmt.Sprintf("malformed %s %q", field, value)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &ConvertError{
		Code:    ErrMalformedTimestamp,
		Message: msg,
		Details: map[string]any{"field": field, "value": value},
		Err:     err,
	}
}

// NewInvalidInterval creates an error for an unusable date interval.
func NewInvalidInterval(msg string) *ConvertError {
	return &ConvertError{
		Code:    ErrInvalidInterval,
		Message: msg,
	}
}

// NewInvalidMetadataKey creates an error for an unknown metadata key.
func NewInvalidMetadataKey(key string, valid []string) *ConvertError {
	return &ConvertError{
		Code:    ErrInvalidMetadataKey,
		Message: fmt.Sprintf("unknown metadata key %q (valid: %v)", key, valid),
		Details: map[string]any{"key": key, "valid": valid},
	}
}

// NewWriteFailed creates an error for an output file that could not be written.
func NewWriteFailed(path string, err error) *ConvertError {
	return &ConvertError{
		Code:    ErrWriteFailed,
		Message: fmt.Sprintf("failed to write %s: %v", path, err),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewInvalidRequest creates an error for invalid flag or config values.
func NewInvalidRequest(msg string) *ConvertError {
	return &ConvertError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewInternal creates an error for unexpected internal failures.
func NewInternal(err error) *ConvertError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ConvertError{
		Code:    ErrInternal,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err is (or wraps) a ConvertError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *ConvertError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first ConvertError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var cErr *ConvertError
	if stderrors.As(err, &cErr) {
		return cErr.Code
	}
	return ErrInternal
}

// As returns the first ConvertError in err's chain.
func As(err error) (*ConvertError, bool) {
	var cErr *ConvertError
	if stderrors.As(err, &cErr) {
		return cErr, true
	}
	return nil, false
}

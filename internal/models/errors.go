package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange         = errors.New("invalid range")
	ErrInvalidBatchDuration = errors.New("invalid batch duration")
	ErrTransient            = errors.New("transient provider error")
	ErrRejected             = errors.New("provider rejected request")
	ErrMaxRetriesExceeded   = errors.New("max retries exceeded")
	ErrUploadFailed         = errors.New("upload failed")
	ErrCancelled            = errors.New("cancelled")
)

// RangeError reports why a requested date range cannot be synced.
type RangeError struct {
	Reason string
}

func (e *RangeError) Error() string {
	return "invalid range: " + e.Reason
}

func (e *RangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// MaxRetriesError is returned once a window exhausted its retries.
type MaxRetriesError struct {
	Label string
	Tries int
	Last  error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("max retries exceeded for %s after %d tries: %v", e.Label, e.Tries, e.Last)
}

func (e *MaxRetriesError) Is(target error) bool {
	return target == ErrMaxRetriesExceeded
}

func (e *MaxRetriesError) Unwrap() error {
	return e.Last
}

// RejectedError wraps a non-retryable provider failure with its task label.
type RejectedError struct {
	Label string
	Cause error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("provider rejected %s: %v", e.Label, e.Cause)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

func (e *RejectedError) Unwrap() error {
	return e.Cause
}

// UploadError wraps the gateway failure of a combined upload.
type UploadError struct {
	Cause error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %v", e.Cause)
}

func (e *UploadError) Is(target error) bool {
	return target == ErrUploadFailed
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}

// Transient marks err as retryable.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Rejected marks err as a non-retryable provider rejection.
func Rejected(err error) error {
	return fmt.Errorf("%w: %w", ErrRejected, err)
}

func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

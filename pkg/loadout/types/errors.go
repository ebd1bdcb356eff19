package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrRemoteUnavailable indicates a transport failure reaching the manifest
// or file source. It aborts the whole operation; no partial progress is
// meaningful without a remote.
var ErrRemoteUnavailable = errors.New("remote unavailable")

// ErrPlanConflict indicates a manifest violated the plan disjointness
// invariant (the same canonical path appearing twice). It is fatal for the
// diff that detected it.
var ErrPlanConflict = errors.New("plan conflict")

// ErrUnsafePath indicates a manifest-relative path that would escape the
// profile root.
var ErrUnsafePath = errors.New("unsafe relative path")

// IoError wraps a filesystem failure with the path it occurred on.
// Unreadable files are surfaced, never silently skipped.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error at %s: %v", e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// NewIoError wraps err with its path context.
func NewIoError(path string, err error) *IoError {
	return &IoError{Path: path, Err: err}
}

// CorruptTransferError indicates downloaded content whose digest did not
// match the manifest's declared digest after bounded retries.
type CorruptTransferError struct {
	Path string
	Want Digest
	Got  Digest
}

// NewCorruptTransferError reports a digest mismatch for path.
func NewCorruptTransferError(path string, want, got Digest) *CorruptTransferError {
	return &CorruptTransferError{Path: path, Want: want, Got: got}
}

func (e *CorruptTransferError) Error() string {
	return fmt.Sprintf("corrupt transfer for %s: want digest %s, got %s",
		e.Path, e.Want.Short(), e.Got.Short())
}

// ErrorKind classifies a per-file failure in a report so callers can decide
// exit status without parsing prose.
type ErrorKind string

const (
	// ErrKindIo is an unreadable or unwritable path.
	ErrKindIo ErrorKind = "io"
	// ErrKindRemote is a transport failure for a single file.
	ErrKindRemote ErrorKind = "remote"
	// ErrKindCorrupt is a digest mismatch after retries.
	ErrKindCorrupt ErrorKind = "corrupt"
	// ErrKindTimeout is a transfer unit exceeding its deadline.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindCancelled is a unit abandoned by cooperative cancellation.
	ErrKindCancelled ErrorKind = "cancelled"
)

// ClassifyError maps an error to its report kind.
func ClassifyError(err error) ErrorKind {
	var corrupt *CorruptTransferError
	switch {
	case errors.As(err, &corrupt):
		return ErrKindCorrupt
	case errors.Is(err, context.DeadlineExceeded):
		return ErrKindTimeout
	case errors.Is(err, context.Canceled):
		return ErrKindCancelled
	case errors.Is(err, ErrRemoteUnavailable):
		return ErrKindRemote
	default:
		return ErrKindIo
	}
}

package shardvault

import (
	"errors"
	"fmt"
)

type ErrorCode int

const (
	Unknown ErrorCode = iota
	// AlreadyExists signals an upload colliding with a live file of the same name.
	AlreadyExists
	// NotFound signals an unknown filename for the requesting owner.
	NotFound
	// Unrecoverable signals that fewer shards survived than the codec needs.
	Unrecoverable
	// UploadFailed signals a mid-upload failure; compensating cleanup was executed.
	UploadFailed
	// AuthFailure signals a missing or invalid bearer token.
	AuthFailure
	// BackendIOError signals a blob backend call failure.
	BackendIOError
	// Internal signals a codec or metadata store fault.
	Internal
)

// Error is the shardvault custom error carrying the taxonomy code.
type Error struct {
	Code     ErrorCode
	Err      error
	UserData any
}

func (e Error) Error() string {
	if e.UserData == nil {
		return fmt.Sprintf("error %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("error %d: %v, user data: %v", e.Code, e.Err, e.UserData)
}

func (e Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the ErrorCode from an error chain, Unknown if none is found.
func CodeOf(err error) ErrorCode {
	var e Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}

// ErrBlobNotFound is returned by blob backends when no blob exists under a name.
var ErrBlobNotFound = errors.New("blob not found")

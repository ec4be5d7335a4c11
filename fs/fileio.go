// Package fs implements a blob backend storing one shard per file under a base
// folder, typically one folder per physical drive.
package fs

import (
	"context"
	"os"

	retry "github.com/sethvargo/go-retry"

	"github.com/sharedcode/shardvault"
)

// Directory/File permission.
const permission os.FileMode = os.ModeSticky | os.ModePerm

// FileIO defines filesystem operations used by this package. The default
// implementation delegates to the standard library's os package with retry
// semantics for transient errors.
type FileIO interface {
	WriteFile(ctx context.Context, name string, data []byte, perm os.FileMode) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Remove(ctx context.Context, name string) error
	Exists(ctx context.Context, path string) bool
	MkdirAll(ctx context.Context, path string, perm os.FileMode) error
}

type defaultFileIO struct {
}

// NewFileIO returns a FileIO that performs I/O via the os package with basic
// retry handling for transient errors.
func NewFileIO() FileIO {
	return &defaultFileIO{}
}

func (dio defaultFileIO) WriteFile(ctx context.Context, name string, data []byte, perm os.FileMode) error {
	return shardvault.Retry(ctx, func(context.Context) error {
		err := os.WriteFile(name, data, perm)
		if shardvault.ShouldRetry(err) {
			return retry.RetryableError(
				shardvault.Error{
					Code: shardvault.BackendIOError,
					Err:  err,
				})
		}
		return err
	}, nil)
}

func (dio defaultFileIO) ReadFile(ctx context.Context, name string) ([]byte, error) {
	var ba []byte
	err := shardvault.Retry(ctx, func(context.Context) error {
		var err error
		ba, err = os.ReadFile(name)
		if shardvault.ShouldRetry(err) {
			return retry.RetryableError(
				shardvault.Error{
					Code: shardvault.BackendIOError,
					Err:  err,
				})
		}
		return err
	}, nil)
	return ba, err
}

func (dio defaultFileIO) Remove(ctx context.Context, name string) error {
	return shardvault.Retry(ctx, func(context.Context) error {
		err := os.Remove(name)
		if shardvault.ShouldRetry(err) {
			return retry.RetryableError(
				shardvault.Error{
					Code: shardvault.BackendIOError,
					Err:  err,
				})
		}
		return err
	}, nil)
}

func (dio defaultFileIO) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	return shardvault.Retry(ctx, func(context.Context) error {
		err := os.MkdirAll(path, perm)
		if shardvault.ShouldRetry(err) {
			return retry.RetryableError(
				shardvault.Error{
					Code: shardvault.BackendIOError,
					Err:  err,
				})
		}
		return err
	}, nil)
}

func (dio defaultFileIO) Exists(ctx context.Context, path string) bool {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return true
	}
	return false
}

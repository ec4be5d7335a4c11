package shardvault

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"testing"
)

func Test_ShouldRetry(t *testing.T) {
	if ShouldRetry(nil) {
		t.Error("nil is not retryable")
	}
	if ShouldRetry(context.Canceled) || ShouldRetry(context.DeadlineExceeded) {
		t.Error("context errors are not retryable")
	}
	if ShouldRetry(fmt.Errorf("reading x: %w", ErrBlobNotFound)) {
		t.Error("a missing blob is not retryable")
	}
	if ShouldRetry(os.ErrNotExist) || ShouldRetry(os.ErrPermission) {
		t.Error("definitive os errors are not retryable")
	}
	if ShouldRetry(syscall.ENOSPC) || ShouldRetry(syscall.EROFS) {
		t.Error("full or read-only filesystems are not retryable")
	}
	if !ShouldRetry(fmt.Errorf("connection reset by peer")) {
		t.Error("a generic I/O failure is retryable")
	}
}

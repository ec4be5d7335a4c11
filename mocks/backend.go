// Package mocks provides in-memory implementations of the shardvault
// collaborator interfaces with simple fault injection, for use in tests.
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/sharedcode/shardvault"
)

// BlobBackend is an in-memory shardvault.BlobBackend. Set the Fail* fields to
// inject failures per operation.
type BlobBackend struct {
	mu    sync.Mutex
	blobs map[string][]byte

	FailPut    error
	FailGet    error
	FailExists error
	FailDelete error
}

// NewBlobBackend instantiates a new (mocked) blob backend.
func NewBlobBackend() *BlobBackend {
	return &BlobBackend{
		blobs: make(map[string][]byte),
	}
}

func (b *BlobBackend) Put(ctx context.Context, shardName string, ba []byte) error {
	if b.FailPut != nil {
		return b.FailPut
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(ba))
	copy(cp, ba)
	b.blobs[shardName] = cp
	return nil
}

func (b *BlobBackend) Get(ctx context.Context, shardName string) ([]byte, error) {
	if b.FailGet != nil {
		return nil, b.FailGet
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ba, ok := b.blobs[shardName]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", shardName, shardvault.ErrBlobNotFound)
	}
	cp := make([]byte, len(ba))
	copy(cp, ba)
	return cp, nil
}

func (b *BlobBackend) Exists(ctx context.Context, shardName string) (bool, error) {
	if b.FailExists != nil {
		return false, b.FailExists
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blobs[shardName]
	return ok, nil
}

func (b *BlobBackend) Delete(ctx context.Context, shardName string) error {
	if b.FailDelete != nil {
		return b.FailDelete
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, shardName)
	return nil
}

// Blob returns the stored bytes and whether the blob exists.
func (b *BlobBackend) Blob(shardName string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ba, ok := b.blobs[shardName]
	return ba, ok
}

// SetBlob overwrites the stored bytes directly, e.g. to simulate bitrot.
func (b *BlobBackend) SetBlob(shardName string, ba []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[shardName] = ba
}

// Drop removes the blob directly, e.g. to simulate a lost drive.
func (b *BlobBackend) Drop(shardName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, shardName)
}

// Count returns the number of stored blobs.
func (b *BlobBackend) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

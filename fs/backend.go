package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sharedcode/shardvault"
)

type blobBackend struct {
	fileIO         FileIO
	baseFolderPath string
}

// NewBlobBackend instantiates a blob backend writing shard files directly under
// baseFolderPath. Shard names are flat, so one folder holds all blobs of the
// location.
func NewBlobBackend(fileIO FileIO, baseFolderPath string) (shardvault.BlobBackend, error) {
	if baseFolderPath == "" {
		return nil, fmt.Errorf("baseFolderPath can't be empty")
	}
	if fileIO == nil {
		fileIO = NewFileIO()
	}
	return &blobBackend{
		fileIO:         fileIO,
		baseFolderPath: baseFolderPath,
	}, nil
}

func (b *blobBackend) Put(ctx context.Context, shardName string, ba []byte) error {
	if !b.fileIO.Exists(ctx, b.baseFolderPath) {
		if err := b.fileIO.MkdirAll(ctx, b.baseFolderPath, permission); err != nil {
			return err
		}
	}
	return b.fileIO.WriteFile(ctx, b.toFilePath(shardName), ba, permission)
}

func (b *blobBackend) Get(ctx context.Context, shardName string) ([]byte, error) {
	ba, err := b.fileIO.ReadFile(ctx, b.toFilePath(shardName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", shardName, shardvault.ErrBlobNotFound)
		}
		return nil, err
	}
	return ba, nil
}

func (b *blobBackend) Exists(ctx context.Context, shardName string) (bool, error) {
	return b.fileIO.Exists(ctx, b.toFilePath(shardName)), nil
}

func (b *blobBackend) Delete(ctx context.Context, shardName string) error {
	err := b.fileIO.Remove(ctx, b.toFilePath(shardName))
	if err != nil && errors.Is(err, os.ErrNotExist) {
		// Deleting an already gone blob is a success.
		return nil
	}
	return err
}

func (b *blobBackend) toFilePath(shardName string) string {
	return filepath.Join(b.baseFolderPath, shardName)
}

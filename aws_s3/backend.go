package aws_s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sharedcode/shardvault"
)

// Shards at or above this size go through the multipart manager.
const largeObjectMinSize = 10 * 1024 * 1024

type blobBackend struct {
	bucketName string
	s3Client   *s3.Client
}

// NewBlobBackend instantiates a blob backend writing shard objects to bucketName.
func NewBlobBackend(s3Client *s3.Client, bucketName string) (shardvault.BlobBackend, error) {
	if s3Client == nil {
		return nil, fmt.Errorf("s3Client parameter can't be nil")
	}
	if bucketName == "" {
		return nil, fmt.Errorf("bucketName can't be empty")
	}
	return &blobBackend{
		bucketName: bucketName,
		s3Client:   s3Client,
	}, nil
}

func (b *blobBackend) Put(ctx context.Context, shardName string, ba []byte) error {
	if len(ba) >= largeObjectMinSize {
		uploader := manager.NewUploader(b.s3Client, func(u *manager.Uploader) {
			u.PartSize = largeObjectMinSize
		})
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(b.bucketName),
			Key:    aws.String(shardName),
			Body:   bytes.NewReader(ba),
		})
		return err
	}
	_, err := b.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(shardName),
		Body:   bytes.NewReader(ba),
	})
	return err
}

func (b *blobBackend) Get(ctx context.Context, shardName string) ([]byte, error) {
	downloader := manager.NewDownloader(b.s3Client, func(d *manager.Downloader) {
		d.PartSize = largeObjectMinSize
	})
	buffer := manager.NewWriteAtBuffer([]byte{})
	_, err := downloader.Download(ctx, buffer, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(shardName),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("reading %s: %w", shardName, shardvault.ErrBlobNotFound)
		}
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (b *blobBackend) Exists(ctx context.Context, shardName string) (bool, error) {
	_, err := b.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(shardName),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *blobBackend) Delete(ctx context.Context, shardName string) error {
	// DeleteObject succeeds on missing keys, which matches the idempotency contract.
	_, err := b.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(shardName),
	})
	return err
}

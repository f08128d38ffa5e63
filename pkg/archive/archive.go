// Package archive keeps the original uploaded documents in object storage.
// The chunked copy in the room store is what readers sync from; the archive
// holds the untouched upload so it can be re-fetched or re-processed later.
package archive

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive stores and serves original room documents.
type Archive interface {
	PutOriginal(ctx context.Context, roomID string, r io.Reader, size int64, contentType string) error
	PresignOriginal(ctx context.Context, roomID string, expiry time.Duration) (string, error)
	DeleteOriginal(ctx context.Context, roomID string) error
}

// MinioArchive implements Archive on MinIO/S3 compatible storage.
type MinioArchive struct {
	client *minio.Client
	bucket string
}

// NewMinioArchive connects to MinIO and ensures the bucket exists.
func NewMinioArchive(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioArchive{client: client, bucket: bucket}, nil
}

func originalKey(roomID string) string {
	return fmt.Sprintf("rooms/%s/original.pdf", roomID)
}

// PutOriginal uploads the original document for a room.
func (m *MinioArchive) PutOriginal(ctx context.Context, roomID string, r io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := m.client.PutObject(ctx, m.bucket, originalKey(roomID), r, size, opts); err != nil {
		return fmt.Errorf("put original: %w", err)
	}
	return nil
}

// PresignOriginal generates a pre-signed GET URL for the original document.
func (m *MinioArchive) PresignOriginal(ctx context.Context, roomID string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, originalKey(roomID), expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign original: %w", err)
	}
	return url.String(), nil
}

// DeleteOriginal removes the original document for a room.
func (m *MinioArchive) DeleteOriginal(ctx context.Context, roomID string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, originalKey(roomID), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete original: %w", err)
	}
	return nil
}

package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"verifycert-backend/internal/shared/storage/object"
)

// Options configures a MinIO (or any S3-compatible) endpoint.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store implements ObjectStore on a MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO and creates the bucket when it does not exist.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket exists %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket %s: %w", opts.Bucket, err)
		}
	}

	return &Store{client: client, bucket: opts.Bucket}, nil
}

// Save streams the reader into the bucket under the namespace.
func (s *Store) Save(ctx context.Context, namespace string, fileName string, r io.Reader) (string, int64, string, error) {
	storageKey, err := object.NewKey(namespace, fileName)
	if err != nil {
		return "", 0, "", err
	}
	mimeType, body, err := object.Sniff(r)
	if err != nil {
		return "", 0, "", err
	}

	info, err := s.client.PutObject(ctx, s.bucket, storageKey, body, -1, minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return "", 0, "", fmt.Errorf("minio put object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return storageKey, info.Size, mimeType, nil
}

// Open fetches an object. The object is stat'ed first so a missing key fails here
// rather than on the first read.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, object.ErrNotFound
		}
		return nil, fmt.Errorf("minio stat object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return obj, nil
}

// Delete removes an object.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, storageKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return nil
}

// Ping checks that the bucket is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket exists %s: %w", s.bucket, err)
	}
	if !ok {
		return fmt.Errorf("minio bucket %s missing", s.bucket)
	}
	return nil
}

var _ object.ObjectStore = (*Store)(nil)

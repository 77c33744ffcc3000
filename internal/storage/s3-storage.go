package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/BerylCAtieno/finreport/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectTooLarge is returned by Download for objects above the size limit.
var ErrObjectTooLarge = errors.New("object exceeds size limit")

// Storage is the object store the CLI reads batches from and writes reports to.
type Storage interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
}

type s3Storage struct {
	client     *minio.Client
	bucketName string
	maxSize    int64
}

// NewS3Storage connects to the configured bucket. Downloads are capped at
// cfg.MaxFileSize, the same limit the HTTP upload applies.
func NewS3Storage(ctx context.Context, cfg *config.Config) (Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.S3BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to reach bucket %q: %w", cfg.S3BucketName, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.S3BucketName)
	}

	return &s3Storage{
		client:     client,
		bucketName: cfg.S3BucketName,
		maxSize:    cfg.MaxFileSize,
	}, nil
}

// List returns the object keys under prefix in lexical order. Directory
// markers are skipped.
func (s *s3Storage) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}

	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucketName, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", prefix, obj.Err)
		}
		if obj.Size == 0 && len(obj.Key) > 0 && obj.Key[len(obj.Key)-1] == '/' {
			continue
		}
		keys = append(keys, obj.Key)
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *s3Storage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *s3Storage) Download(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer object.Close()

	info, err := object.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	if s.maxSize > 0 && info.Size > s.maxSize {
		return nil, fmt.Errorf("%s (%d bytes): %w", key, info.Size, ErrObjectTooLarge)
	}

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

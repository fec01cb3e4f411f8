package kvstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/animuse/animuse/pkg/kv"
)

// R2Store keeps each value as an object in Cloudflare R2 (or any S3-compatible
// bucket).
type R2Store struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// R2Options configures NewR2Store.
type R2Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
}

// NewR2Store constructs the object storage adapter.
func NewR2Store(opts R2Options, logger *slog.Logger) (*R2Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	useSSL := strings.HasPrefix(strings.ToLower(opts.Endpoint), "https")
	client, err := minio.New(sanitizeEndpoint(opts.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       useSSL,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init r2 client: %w", err)
	}
	return &R2Store{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
		logger: logger.With("component", "kvstore.r2"),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *R2Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	s.logger.Info("bucket ready", "bucket", s.bucket)
	return nil
}

// Get implements kv.Store.
func (s *R2Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, true, nil
}

// Set implements kv.Store.
func (s *R2Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(key), bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType:      "application/json",
		DisableMultipart: true,
	})
	return err
}

// Remove implements kv.Store.
func (s *R2Store) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, s.objectKey(key), minio.RemoveObjectOptions{})
}

func (s *R2Store) objectKey(key string) string {
	key = strings.ReplaceAll(key, ":", "/")
	if s.prefix == "" {
		return key + ".json"
	}
	return s.prefix + "/" + key + ".json"
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if idx := strings.Index(raw, "/"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}

var _ kv.Store = (*R2Store)(nil)

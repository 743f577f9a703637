package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"govbid/internal/logger"
)

// Bucket names a logical bucket; the physical name comes from configuration.
type Bucket string

const (
	BucketRFP       Bucket = "rfp"
	BucketDocuments Bucket = "documents"
)

var ErrNotFound = errors.New("object not found")

type Store interface {
	// Upload writes the object, replacing any existing object under key.
	Upload(ctx context.Context, bucket Bucket, key string, r io.Reader, contentType string) error
	Download(ctx context.Context, bucket Bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket Bucket, key string) error
}

type Config struct {
	RFPBucket      string
	DocumentBucket string
	EmulatorHost   string
}

type gcsStore struct {
	log     *logger.Logger
	client  *storage.Client
	buckets map[Bucket]string
}

// NewGCS connects to Cloud Storage, or to a local emulator when
// EmulatorHost is set.
func NewGCS(ctx context.Context, log *logger.Logger, cfg Config) (Store, error) {
	var opts []option.ClientOption
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		// the client library reads the emulator address from the environment
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	log.Info("Object storage initialized",
		"rfp_bucket", cfg.RFPBucket,
		"document_bucket", cfg.DocumentBucket,
		"emulator_host", cfg.EmulatorHost,
	)
	return &gcsStore{
		log:    log.With("service", "ObjectStore"),
		client: client,
		buckets: map[Bucket]string{
			BucketRFP:       cfg.RFPBucket,
			BucketDocuments: cfg.DocumentBucket,
		},
	}, nil
}

func (s *gcsStore) bucketName(b Bucket) (string, error) {
	name, ok := s.buckets[b]
	if !ok || name == "" {
		return "", fmt.Errorf("unknown bucket: %s", b)
	}
	return name, nil
}

func (s *gcsStore) Upload(ctx context.Context, bucket Bucket, key string, r io.Reader, contentType string) error {
	name, err := s.bucketName(bucket)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(name).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (s *gcsStore) Download(ctx context.Context, bucket Bucket, key string) ([]byte, error) {
	name, err := s.bucketName(bucket)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	rc, err := s.client.Bucket(name).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open GCS object %q: %w", key, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *gcsStore) Delete(ctx context.Context, bucket Bucket, key string) error {
	name, err := s.bucketName(bucket)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.client.Bucket(name).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, name, err)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// GCSOpener opens GCSStore views over buckets of one client.
type GCSOpener struct {
	client *gcs.Client
	logger *slog.Logger
}

// NewGCSOpener wraps an authenticated GCS client.
func NewGCSOpener(client *gcs.Client, logger *slog.Logger) *GCSOpener {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSOpener{client: client, logger: logger}
}

// Bucket returns a BlobStore over the named bucket.
func (o *GCSOpener) Bucket(name string) BlobStore {
	return &GCSStore{bucket: o.client.Bucket(name), name: name, logger: o.logger}
}

// GCSStore implements BlobStore over one Google Cloud Storage bucket.
type GCSStore struct {
	bucket *gcs.BucketHandle
	name   string
	logger *slog.Logger
}

// NewGCSStore builds a store over a single bucket.
func NewGCSStore(client *gcs.Client, bucket string, logger *slog.Logger) *GCSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSStore{bucket: client.Bucket(bucket), name: bucket, logger: logger}
}

func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s/%s: %w", s.name, key, err)
	}
	return true, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("get %s/%s: %w", s.name, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", s.name, key, err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			s.logger.Warn("storage.gcs.reader_close_error", "bucket", s.name, "key", key, "error", cerr)
		}
	}()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", s.name, key, err)
	}
	return b, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s/%s: %w", s.name, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write %s/%s: %w", s.name, key, err)
	}
	return nil
}

// PutIfAbsent uses a generation-zero precondition, so concurrent racers for
// the same key cannot both succeed.
func (s *GCSStore) PutIfAbsent(ctx context.Context, key string, data []byte, contentType string) (bool, error) {
	w := s.bucket.Object(key).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		if isPreconditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("create %s/%s: %w", s.name, key, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("create %s/%s: %w", s.name, key, err)
	}
	return true, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.name, key, err)
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s prefix %q: %w", s.name, prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

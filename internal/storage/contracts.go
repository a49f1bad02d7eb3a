package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a missing blob.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the behavior the pipeline needs from one bucket of the
// external object store. Implementations: GCS for production, memory for
// tests.
type BlobStore interface {
	// Exists reports whether the named blob exists.
	Exists(ctx context.Context, key string) (bool, error)
	// Get returns the blob bytes, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes the blob unconditionally, overwriting any existing one.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// PutIfAbsent atomically creates the blob only if it does not exist.
	// Returns false (and no error) when the blob was already there.
	PutIfAbsent(ctx context.Context, key string, data []byte, contentType string) (bool, error)
	// Delete removes the blob. Deleting a missing blob is a no-op.
	Delete(ctx context.Context, key string) error
	// List returns the keys of all blobs whose name starts with prefix.
	// An empty prefix lists everything.
	List(ctx context.Context, prefix string) ([]string, error)
}

// BucketOpener hands out a BlobStore for a named bucket. The events endpoint
// receives arbitrary source bucket names, so the pipeline cannot hold a fixed
// source store.
type BucketOpener interface {
	Bucket(name string) BlobStore
}

// Package lock provides advisory mutual exclusion over source objects, using
// the results bucket as the coordination medium. A marker blob {key}.LOCK
// exists while the key is held. Locks carry no owner and no expiry: a crash
// between acquire and release leaves the key locked until someone deletes
// the marker by hand. That gap is inherited from the deployed system and is
// deliberately not papered over here.
package lock

import (
	"context"
	"log/slog"

	"github.com/jae-tennis/scan-pipeline/constants"
	"github.com/jae-tennis/scan-pipeline/internal/storage"
)

// Locker guards per-key processing with marker blobs.
type Locker struct {
	store  storage.BlobStore
	logger *slog.Logger
}

// NewLocker builds a Locker over the results bucket.
func NewLocker(store storage.BlobStore, logger *slog.Logger) *Locker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{store: store, logger: logger}
}

func lockKey(key string) string {
	return key + constants.LockSuffix
}

// TryAcquire attempts to take the lock for key. It returns false both when
// the lock is already held and when the store call fails; the caller skips
// the event either way and redelivery retries later.
func (l *Locker) TryAcquire(ctx context.Context, key string) bool {
	created, err := l.store.PutIfAbsent(ctx, lockKey(key), nil, "application/octet-stream")
	if err != nil {
		l.logger.Error("lock.acquire_error", "key", key, "error", err)
		return false
	}
	if !created {
		l.logger.Info("lock.already_held", "key", key)
	}
	return created
}

// IsHeld reports whether the lock marker for key exists.
func (l *Locker) IsHeld(ctx context.Context, key string) bool {
	held, err := l.store.Exists(ctx, lockKey(key))
	if err != nil {
		l.logger.Error("lock.check_error", "key", key, "error", err)
		return false
	}
	return held
}

// Release deletes the lock marker. Releasing an unheld lock is a no-op.
func (l *Locker) Release(ctx context.Context, key string) {
	if err := l.store.Delete(ctx, lockKey(key)); err != nil {
		l.logger.Error("lock.release_error", "key", key, "error", err)
	}
}

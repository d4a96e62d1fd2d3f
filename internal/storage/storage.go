// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider (MinIO, AWS S3).
package storage

import (
	"context"
	"io"
	"time"
)

// Storage is the interface for uploading, retrieving, and cleaning up objects.
// Operations pass failures straight through to the caller; whether a failure
// is fatal or best-effort is the caller's decision, not the adapter's.
type Storage interface {
	// Upload streams data to the store under the given key. Re-uploading to
	// an existing key overwrites it.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes a single object identified by key.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object whose key starts with prefix, paging
	// through listings until none remain. Deleting an empty prefix is a no-op.
	DeletePrefix(ctx context.Context, prefix string) error
	// Rename moves a single object by copying it to dstKey and deleting srcKey.
	Rename(ctx context.Context, srcKey, dstKey string) error
	// RenamePrefix relocates every object under oldPrefix to newPrefix,
	// preserving the relative suffix of each key.
	RenamePrefix(ctx context.Context, oldPrefix, newPrefix string) error
	// SignedURL returns a time-limited URL granting read access to key.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
}

package vault

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by BlobStore.Get for a key that was never written
var ErrBlobNotFound = errors.New("vault: blob not found")

// BlobStore keeps opaque sealed blobs by key
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, blob []byte) error
}

// Package redis stores sealed vault blobs in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/walletsync/internal/infra/vault"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// KeyPrefix is the prefix for vault blob keys
const KeyPrefix = "vault:"

// BlobStore implements vault.BlobStore on Redis. Blobs never expire.
type BlobStore struct {
	client *redis.Client
	logger *logger.Logger
}

var _ vault.BlobStore = (*BlobStore)(nil)

// NewBlobStore creates a Redis-backed blob store
func NewBlobStore(client *redis.Client, log *logger.Logger) *BlobStore {
	if log == nil {
		log = logger.Discard()
	}
	return &BlobStore{
		client: client,
		logger: log.WithComponent("redis_blobs"),
	}
}

// NewClient connects to addr and verifies the connection
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Get retrieves the blob stored under key
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, vault.ErrBlobNotFound
	}
	if err != nil {
		s.logger.Error("redis error", "operation", "get", "key", key, "error", err)
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return val, nil
}

// Put overwrites the blob stored under key
func (s *BlobStore) Put(ctx context.Context, key string, blob []byte) error {
	if err := s.client.Set(ctx, KeyPrefix+key, blob, 0).Err(); err != nil {
		s.logger.Error("redis error", "operation", "set", "key", key, "error", err)
		return fmt.Errorf("failed to put blob: %w", err)
	}
	return nil
}

// Health pings the server
func (s *BlobStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kislikjeka/walletsync/internal/infra/vault"
)

// BlobRepository implements vault.BlobStore on the secure_blobs table
type BlobRepository struct {
	pool *pgxpool.Pool
}

var _ vault.BlobStore = (*BlobRepository)(nil)

// NewBlobRepository creates a new PostgreSQL blob repository
func NewBlobRepository(pool *pgxpool.Pool) *BlobRepository {
	return &BlobRepository{pool: pool}
}

// Get returns the blob stored under key
func (r *BlobRepository) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT payload FROM secure_blobs WHERE blob_key = $1`

	var payload []byte
	err := r.pool.QueryRow(ctx, query, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, vault.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}

	return payload, nil
}

// Put inserts or overwrites the blob stored under key
func (r *BlobRepository) Put(ctx context.Context, key string, blob []byte) error {
	query := `
		INSERT INTO secure_blobs (blob_key, payload)
		VALUES ($1, $2)
		ON CONFLICT (blob_key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, key, blob); err != nil {
		return fmt.Errorf("failed to put blob: %w", err)
	}

	return nil
}

package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rpggio/waitwatch/internal/repository"
)

// APIKeyRepository stores hashed bearer tokens.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Add stores the hash of token for client.
func (r *APIKeyRepository) Add(ctx context.Context, token, client, description string) error {
	if token == "" || client == "" {
		return repository.ErrInvalidInput
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (key_hash, client, description, created_unix)
		VALUES (?, ?, ?, ?)
	`, HashToken(token), client, description, toUnix(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: key already exists", repository.ErrInvalidInput)
		}
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// ResolveClient returns the client owning token and records its use.
func (r *APIKeyRepository) ResolveClient(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)
	var client string
	err := r.db.QueryRowContext(ctx, `SELECT client FROM api_keys WHERE key_hash = ?`, hash).Scan(&client)
	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_unix = ? WHERE key_hash = ?`, toUnix(time.Now()), hash); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return client, nil
}

// Revoke deletes every key belonging to client and returns how many were removed.
func (r *APIKeyRepository) Revoke(ctx context.Context, client string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE client = ?`, client)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke api keys: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// HashToken returns the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

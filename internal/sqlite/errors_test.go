package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO api_keys (key_hash, client, created_unix) VALUES ('h', 'c', 0)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO api_keys (key_hash, client, created_unix) VALUES ('h', 'c', 0)`)
	require.Error(t, err)
	require.True(t, isUniqueViolation(err))
	require.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", err)))

	_, err = db.ExecContext(ctx, `INSERT INTO api_keys (key_hash, client, created_unix) VALUES ('x', NULL, 0)`)
	require.Error(t, err)
	require.False(t, isUniqueViolation(err))

	require.False(t, isUniqueViolation(nil))
	require.False(t, isUniqueViolation(errors.New("disk full")))
}

package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/waitwatch/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyRepository(t *testing.T) {
	db := NewTestDB(t)
	repo := NewAPIKeyRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "secret-token", "front-desk", "lobby display"))
	require.ErrorIs(t, repo.Add(ctx, "secret-token", "other", ""), repository.ErrInvalidInput)
	require.ErrorIs(t, repo.Add(ctx, "", "other", ""), repository.ErrInvalidInput)

	client, err := repo.ResolveClient(ctx, "secret-token")
	require.NoError(t, err)
	require.Equal(t, "front-desk", client)

	var used float64
	require.NoError(t, db.QueryRow(`SELECT last_used_unix FROM api_keys WHERE client = 'front-desk'`).Scan(&used))
	require.Positive(t, used)

	_, err = repo.ResolveClient(ctx, "wrong")
	require.ErrorIs(t, err, repository.ErrNotFound)

	n, err := repo.Revoke(ctx, "front-desk")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = repo.ResolveClient(ctx, "secret-token")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHashTokenIsStable(t *testing.T) {
	require.Equal(t, HashToken("abc"), HashToken("abc"))
	require.NotEqual(t, HashToken("abc"), HashToken("abd"))
	require.Len(t, HashToken("abc"), 64)
}

package sqlite

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/repository"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func closedSession(source, identity string, entered time.Time, seconds int) occupancy.Session {
	exited := entered.Add(time.Duration(seconds) * time.Second)
	return occupancy.Session{Source: source, Identity: identity, EnteredAt: entered, ExitedAt: &exited}
}

func TestSessionRepository_CreateFindClose(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	created, err := repo.CreateOpen(ctx, "cam-1", "1", baseTime)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.True(t, created.IsOpen())

	found, err := repo.FindOpen(ctx, "cam-1", "1")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
	require.True(t, baseTime.Equal(found.EnteredAt))

	closed, err := repo.CloseOpen(ctx, "cam-1", "1", baseTime.Add(600*time.Second))
	require.NoError(t, err)
	require.NotNil(t, closed)
	require.False(t, closed.IsOpen())
	d, ok := closed.Duration()
	require.True(t, ok)
	require.InDelta(t, 600, d, 1e-3)

	_, err = repo.FindOpen(ctx, "cam-1", "1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.InDelta(t, 600, *stored.DurationSeconds, 1e-3)
	require.True(t, baseTime.Add(600*time.Second).Equal(*stored.ExitedAt))
}

func TestSessionRepository_DoubleCloseIsNoop(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	_, err := repo.CreateOpen(ctx, "cam-1", "1", baseTime)
	require.NoError(t, err)

	first, err := repo.CloseOpen(ctx, "cam-1", "1", baseTime.Add(30*time.Second))
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := repo.CloseOpen(ctx, "cam-1", "1", baseTime.Add(90*time.Second))
	require.NoError(t, err)
	require.Nil(t, second)

	stored, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	require.InDelta(t, 30, *stored.DurationSeconds, 1e-3, "duration must not be recomputed")
}

func TestSessionRepository_OneOpenPerIdentity(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	_, err := repo.CreateOpen(ctx, "cam-1", "7", baseTime)
	require.NoError(t, err)

	_, err = repo.CreateOpen(ctx, "cam-1", "7", baseTime.Add(time.Second))
	require.ErrorIs(t, err, repository.ErrAlreadyOpen)

	// Same identity on another camera is independent.
	_, err = repo.CreateOpen(ctx, "cam-2", "7", baseTime)
	require.NoError(t, err)

	// After closing, the identity may open again.
	_, err = repo.CloseOpen(ctx, "cam-1", "7", baseTime.Add(10*time.Second))
	require.NoError(t, err)
	_, err = repo.CreateOpen(ctx, "cam-1", "7", baseTime.Add(20*time.Second))
	require.NoError(t, err)
}

func TestSessionRepository_ConcurrentCreateOpen(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.CreateOpen(ctx, "cam-1", "1", baseTime); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, created)

	open, err := repo.ListOpen(ctx, "cam-1")
	require.NoError(t, err)
	require.Len(t, open, 1)
}

func TestSessionRepository_CreateOpenRejectsEmptyIdentity(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)

	_, err := repo.CreateOpen(context.Background(), "cam-1", "", baseTime)
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestSessionRepository_ListOpenOrdering(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	_, err := repo.CreateOpen(ctx, "cam-1", "3", baseTime.Add(2*time.Second))
	require.NoError(t, err)
	_, err = repo.CreateOpen(ctx, "cam-1", "2", baseTime)
	require.NoError(t, err)
	_, err = repo.CreateOpen(ctx, "cam-1", "1", baseTime)
	require.NoError(t, err)
	_, err = repo.CreateOpen(ctx, "cam-2", "9", baseTime)
	require.NoError(t, err)

	open, err := repo.ListOpen(ctx, "cam-1")
	require.NoError(t, err)
	require.Len(t, open, 3)
	require.Equal(t, []string{"1", "2", "3"}, []string{open[0].Identity, open[1].Identity, open[2].Identity})

	all, err := repo.ListOpen(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestSessionRepository_QueryByWindow(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.BulkInsert(ctx, []occupancy.Session{
		closedSession("cam-1", "1", baseTime, 600),
		closedSession("cam-1", "2", baseTime.Add(time.Hour), 1),
		closedSession("cam-1", "3", baseTime.Add(2*time.Hour), 120),
		closedSession("cam-2", "1", baseTime.Add(time.Hour), 300),
	}))
	_, err := repo.CreateOpen(ctx, "cam-1", "4", baseTime.Add(90*time.Minute))
	require.NoError(t, err)

	all, err := repo.QueryByWindow(ctx, occupancy.WindowQuery{})
	require.NoError(t, err)
	require.Len(t, all, 5)

	windowed, err := repo.QueryByWindow(ctx, occupancy.WindowQuery{
		Source: "cam-1",
		Start:  baseTime.Add(30 * time.Minute),
		End:    baseTime.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, windowed, 3)

	closed, err := repo.QueryByWindow(ctx, occupancy.WindowQuery{Source: "cam-1", ClosedOnly: true})
	require.NoError(t, err)
	require.Len(t, closed, 3)

	longer, err := repo.QueryByWindow(ctx, occupancy.WindowQuery{Source: "cam-1", MinDuration: 1})
	require.NoError(t, err)
	require.Len(t, longer, 2)
	require.Equal(t, "1", longer[0].Identity)
	require.Equal(t, "3", longer[1].Identity)
}

func TestSessionRepository_MaxIdentity(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	last, err := repo.MaxIdentity(ctx, "cam-1")
	require.NoError(t, err)
	require.Zero(t, last)

	for _, id := range []int{2, 11, 5} {
		_, err := repo.CreateOpen(ctx, "cam-1", strconv.Itoa(id), baseTime)
		require.NoError(t, err)
	}
	_, err = repo.CreateOpen(ctx, "cam-1", "sim_99", baseTime)
	require.NoError(t, err)
	_, err = repo.CreateOpen(ctx, "cam-2", "40", baseTime)
	require.NoError(t, err)

	last, err = repo.MaxIdentity(ctx, "cam-1")
	require.NoError(t, err)
	require.EqualValues(t, 11, last)
}

func TestSessionRepository_BulkInsertRejectsOpen(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)

	err := repo.BulkInsert(context.Background(), []occupancy.Session{
		{Source: "cam-1", Identity: "1", EnteredAt: baseTime},
	})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestSessionRepository_BulkInsertDerivesDuration(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	sess := closedSession("cam-1", "1", baseTime, 120)
	stale := 999.0
	sess.DurationSeconds = &stale
	require.NoError(t, repo.BulkInsert(ctx, []occupancy.Session{sess}))

	stored, err := repo.QueryByWindow(ctx, occupancy.WindowQuery{Source: "cam-1"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	d, ok := stored[0].Duration()
	require.True(t, ok)
	require.InDelta(t, 120, d, 1e-6)

	longer, err := repo.QueryByWindow(ctx, occupancy.WindowQuery{Source: "cam-1", MinDuration: 500})
	require.NoError(t, err)
	require.Empty(t, longer)
}

func TestUnixRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 15, 250_000_000, time.UTC)
	require.True(t, at.Equal(fromUnix(toUnix(at))))
}

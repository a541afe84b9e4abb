package testserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpggio/waitwatch/internal/app"
	"github.com/rpggio/waitwatch/internal/config"
	"github.com/rpggio/waitwatch/internal/ingest"
	"github.com/rpggio/waitwatch/internal/sqlite"
	"github.com/rpggio/waitwatch/internal/timeutil"
	"github.com/stretchr/testify/require"
)

// Now is the initial mock time: Tuesday 2024-03-05 09:30 UTC.
var Now = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

type TestServer struct {
	Server *httptest.Server
	App    *app.App
	DB     *sqlite.DB
	Clock  *timeutil.MockClock
	Frames *ingest.ChannelSource
	Token  string
	Client string

	loopDone chan error
}

// New starts the full stack on an in-memory database with auth enabled and
// the lifecycle loop consuming pushed frames.
func New(t *testing.T, token, client string) *TestServer {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	cfg := config.Default()
	cfg.Auth.Enabled = true
	cfg.Live.Interval = time.Second

	clock := timeutil.NewMockClock(Now)
	a, err := app.New(db, cfg, clock, nil)
	require.NoError(t, err)

	frames := ingest.NewChannelSource(cfg.Tracking.QueueSize)
	server := httptest.NewServer(a.HTTPHandler(frames, a.MCPServer()))

	ctx, cancel := context.WithCancel(context.Background())
	ts := &TestServer{
		Server:   server,
		App:      a,
		DB:       db,
		Clock:    clock,
		Frames:   frames,
		Token:    token,
		Client:   client,
		loopDone: make(chan error, 1),
	}
	go func() {
		ts.loopDone <- a.Lifecycle.Run(ctx, frames)
	}()

	require.NoError(t, ts.AddAPIKey(token, client))

	t.Cleanup(func() {
		server.Close()
		frames.Close()
		cancel()
		<-ts.loopDone
		_ = db.Close()
	})

	return ts
}

// AddAPIKey registers a bearer token for client.
func (ts *TestServer) AddAPIKey(token, client string) error {
	return ts.App.APIKeys.Add(context.Background(), token, client, "test")
}

// WaitForOpen blocks until every pushed frame has been taken by the loop
// and the store reports want open sessions.
func (ts *TestServer) WaitForOpen(t *testing.T, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		if ts.Frames.Pending() > 0 {
			return false
		}
		open, err := ts.App.Sessions.ListOpen(context.Background(), "")
		return err == nil && len(open) == want
	}, 5*time.Second, 10*time.Millisecond)
}

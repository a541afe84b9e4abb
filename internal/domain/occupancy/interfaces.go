package occupancy

import (
	"context"
	"time"
)

// Store provides the atomic session operations the lifecycle loop needs.
type Store interface {
	FindOpen(ctx context.Context, source, identity string) (*Session, error)
	CreateOpen(ctx context.Context, source, identity string, enteredAt time.Time) (*Session, error)
	// CloseOpen returns nil, nil when the identity has no open session.
	CloseOpen(ctx context.Context, source, identity string, exitedAt time.Time) (*Session, error)
	ListOpen(ctx context.Context, source string) ([]Session, error)
	MaxIdentity(ctx context.Context, source string) (int64, error)
}

// FrameSource yields frames in arrival order. It returns io.EOF when exhausted.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// CloseObserver is notified of every session the loop closes.
type CloseObserver interface {
	SessionClosed(sess Session)
}

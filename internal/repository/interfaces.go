package repository

import (
	"context"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/occupancy"
)

// SessionRepository manages occupancy session persistence.
type SessionRepository interface {
	// CreateOpen atomically checks for and inserts an open session.
	CreateOpen(ctx context.Context, source, identity string, enteredAt time.Time) (*occupancy.Session, error)
	FindOpen(ctx context.Context, source, identity string) (*occupancy.Session, error)
	// CloseOpen stamps exit time and duration; nil, nil when nothing is open.
	CloseOpen(ctx context.Context, source, identity string, exitedAt time.Time) (*occupancy.Session, error)
	ListOpen(ctx context.Context, source string) ([]occupancy.Session, error)
	QueryByWindow(ctx context.Context, q occupancy.WindowQuery) ([]occupancy.Session, error)
	Get(ctx context.Context, id string) (*occupancy.Session, error)
	MaxIdentity(ctx context.Context, source string) (int64, error)
	Count(ctx context.Context) (int64, error)
	// BulkInsert stores closed historical sessions.
	BulkInsert(ctx context.Context, sessions []occupancy.Session) error
}

package estimate

import (
	"context"

	"github.com/rpggio/waitwatch/internal/domain/occupancy"
)

// SessionReader provides read access to session history.
type SessionReader interface {
	QueryByWindow(ctx context.Context, q occupancy.WindowQuery) ([]occupancy.Session, error)
}

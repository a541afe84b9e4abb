package mocks

import (
	"context"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/stretchr/testify/mock"
)

// SessionRepository is a mock for repository.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) CreateOpen(ctx context.Context, source, identity string, enteredAt time.Time) (*occupancy.Session, error) {
	args := m.Called(ctx, source, identity, enteredAt)
	if sess, ok := args.Get(0).(*occupancy.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) FindOpen(ctx context.Context, source, identity string) (*occupancy.Session, error) {
	args := m.Called(ctx, source, identity)
	if sess, ok := args.Get(0).(*occupancy.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) CloseOpen(ctx context.Context, source, identity string, exitedAt time.Time) (*occupancy.Session, error) {
	args := m.Called(ctx, source, identity, exitedAt)
	if sess, ok := args.Get(0).(*occupancy.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) ListOpen(ctx context.Context, source string) ([]occupancy.Session, error) {
	args := m.Called(ctx, source)
	if list, ok := args.Get(0).([]occupancy.Session); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) QueryByWindow(ctx context.Context, q occupancy.WindowQuery) ([]occupancy.Session, error) {
	args := m.Called(ctx, q)
	if list, ok := args.Get(0).([]occupancy.Session); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Get(ctx context.Context, id string) (*occupancy.Session, error) {
	args := m.Called(ctx, id)
	if sess, ok := args.Get(0).(*occupancy.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) MaxIdentity(ctx context.Context, source string) (int64, error) {
	args := m.Called(ctx, source)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SessionRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SessionRepository) BulkInsert(ctx context.Context, sessions []occupancy.Session) error {
	args := m.Called(ctx, sessions)
	return args.Error(0)
}

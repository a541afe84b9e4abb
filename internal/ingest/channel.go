package ingest

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rpggio/waitwatch/internal/domain/occupancy"
)

// ErrClosed is returned by Push after the source is closed.
var ErrClosed = errors.New("frame source closed")

// ChannelSource hands frames pushed by request handlers to the lifecycle loop.
type ChannelSource struct {
	frames chan occupancy.Frame
	done   chan struct{}
	once   sync.Once
}

// NewChannelSource creates a source buffering up to size frames.
func NewChannelSource(size int) *ChannelSource {
	if size <= 0 {
		size = 1
	}
	return &ChannelSource{
		frames: make(chan occupancy.Frame, size),
		done:   make(chan struct{}),
	}
}

// Push queues a frame, blocking while the buffer is full.
func (s *ChannelSource) Push(ctx context.Context, frame occupancy.Frame) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	select {
	case s.frames <- frame:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next queued frame, or io.EOF once closed and drained.
func (s *ChannelSource) Next(ctx context.Context) (occupancy.Frame, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	default:
	}

	select {
	case frame := <-s.frames:
		return frame, nil
	case <-s.done:
		select {
		case frame := <-s.frames:
			return frame, nil
		default:
			return occupancy.Frame{}, io.EOF
		}
	case <-ctx.Done():
		return occupancy.Frame{}, ctx.Err()
	}
}

// Close stops accepting frames. Queued frames are still delivered.
func (s *ChannelSource) Close() {
	s.once.Do(func() { close(s.done) })
}

// Pending returns the number of queued frames.
func (s *ChannelSource) Pending() int {
	return len(s.frames)
}

package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const liveWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleLive streams queue snapshots over a websocket until the client leaves.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Incoming messages are ignored; a read error means the client is gone.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	source := r.URL.Query().Get("source")
	ticker := s.clock.NewTicker(s.liveInterval)
	defer ticker.Stop()

	for {
		if err := s.sendSnapshot(ctx, conn, source); err != nil {
			s.logger.Debug("live feed closed", "error", err)
			return
		}
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(liveWriteWait))
			return
		case <-ticker.C():
		}
	}
}

func (s *Server) sendSnapshot(ctx context.Context, conn *websocket.Conn, source string) error {
	snap, err := s.services.Queue.Snapshot(ctx, source)
	if err != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		_ = conn.WriteJSON(errorResponse{Error: Error{Code: "internal", Message: "snapshot unavailable"}})
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(liveWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(snap)
}

package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// sseWriter frames text/event-stream messages.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func startSSE(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, true
}

func (s *sseWriter) event(name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// handleLeaderboardStream holds a stream lease for the life of the
// connection and sends a snapshot on every state change.
func (s *Server) handleLeaderboardStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lease := s.engine.AcquireStream(ctx)
	defer lease.Release()

	states, cancel := s.engine.Watch()
	defer cancel()

	stream, ok := startSSE(w)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Streaming not supported")
		return
	}

	// Pull once so the first snapshot reflects the backend, not a stale cache.
	if err := s.engine.FetchLeaderboard(ctx); err != nil {
		s.logger.Debug("initial stream fetch failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := stream.event("snapshot", s.leaderboardView(st)); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.comment("keepalive"); err != nil {
				return
			}
		}
	}
}

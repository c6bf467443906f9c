package httpserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/ratings"
	"github.com/Clark-Hu/bitebuzz/internal/ratings/httpapi"
)

// The /ratings routes expose the configured backend as a rating service, so
// one instance can act as RATINGS_BACKEND=http for another.

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := s.cfg.RatingsAPIKey
		if want != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("X-API-Key")), []byte(want)) != 1 {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) backendTimeout() time.Duration {
	if t := s.cfg.RatingsTimeout(); t > 0 {
		return t
	}
	return 4 * time.Second
}

func (s *Server) requireBackend(w http.ResponseWriter) (ratings.Backend, bool) {
	backend := s.engine.Backend()
	if backend == nil {
		s.respondError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "Rating backend is not configured")
		return nil, false
	}
	return backend, true
}

func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	backend, ok := s.requireBackend(w)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.backendTimeout())
	defer cancel()

	events, err := backend.Query(ctx)
	if err != nil {
		s.logger.Warn("list ratings failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to list ratings")
		return
	}
	items := make([]httpapi.RatingPayload, 0, len(events))
	for _, ev := range events {
		items = append(items, httpapi.FromDomain(ev))
	}
	s.respondJSON(w, http.StatusOK, httpapi.RatingList{Items: items})
}

func (s *Server) handleAppendRating(w http.ResponseWriter, r *http.Request) {
	backend, ok := s.requireBackend(w)
	if !ok {
		return
	}

	var req httpapi.AppendRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := domain.ValidateRating(req.ItemID, req.Value); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.backendTimeout())
	defer cancel()
	err := backend.Append(ctx, domain.RatingInput{ItemID: req.ItemID, Value: req.Value, SubmittedBy: req.SubmittedBy})
	switch {
	case errors.Is(err, domain.ErrInvalidItem), errors.Is(err, domain.ErrInvalidValue):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
	case err != nil:
		s.logger.Warn("append rating failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to store rating")
	default:
		s.respondJSON(w, http.StatusCreated, req)
	}
}

// handleRatingEvents relays backend push notifications as "changed" events.
func (s *Server) handleRatingEvents(w http.ResponseWriter, r *http.Request) {
	backend, ok := s.requireBackend(w)
	if !ok {
		return
	}
	subscriber, ok := backend.(ratings.Subscriber)
	if !ok {
		s.respondError(w, http.StatusNotImplemented, "NOT_SUPPORTED", "Rating backend has no push channel")
		return
	}

	changed := make(chan struct{}, 1)
	subCtx, cancel := context.WithTimeout(r.Context(), s.backendTimeout())
	sub, err := subscriber.Subscribe(subCtx, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	cancel()
	if err != nil {
		s.logger.Warn("subscribe for rating events failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to subscribe to rating changes")
		return
	}
	defer func() {
		if err := sub.Close(); err != nil {
			s.logger.Debug("close rating subscription", zap.Error(err))
		}
	}()

	stream, ok := startSSE(w)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Streaming not supported")
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-changed:
			if err := stream.event(httpapi.ChangedEvent, struct{}{}); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.comment("keepalive"); err != nil {
				return
			}
		}
	}
}

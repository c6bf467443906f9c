package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Clark-Hu/bitebuzz/internal/chat"
	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/feedback"
	"github.com/Clark-Hu/bitebuzz/internal/leaderboard"
	"github.com/Clark-Hu/bitebuzz/internal/menu"
	"github.com/Clark-Hu/bitebuzz/internal/ratings"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Error   string `json:"error,omitempty"`
}

type menuResponse struct {
	Items []menu.Dish `json:"items"`
}

type leaderboardResponse struct {
	Ratings    domain.Snapshot       `json:"ratings"`
	Loading    bool                  `json:"loading"`
	Error      *string               `json:"error"`
	Entries    []leaderboard.Entry   `json:"entries"`
	HasRatings bool                  `json:"hasRatings"`
	Stream     feedback.StreamStatus `json:"stream"`
}

type ratingRequest struct {
	Rating *int   `json:"rating"`
	UserID string `json:"userId"`
}

type ratingResponse struct {
	DishID      string              `json:"dishId"`
	Rating      int                 `json:"rating"`
	Leaderboard leaderboardResponse `json:"leaderboard"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Backend: s.cfg.RatingsBackend}
	backend := s.engine.Backend()
	if backend == nil {
		resp.Backend = "none"
	} else if hc, ok := backend.(ratings.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			s.logger.Warn("backend health check failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Error = err.Error()
			s.respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	items := s.catalog.All()
	if r.URL.Query().Get("available") == "true" {
		items = s.catalog.Available()
	}
	s.respondJSON(w, http.StatusOK, menuResponse{Items: items})
}

// handleLeaderboard serves the engine state. Without live subscribers nothing
// keeps the state fresh, so it re-fetches first.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.engine.StreamStatus().Subscribers == 0 || r.URL.Query().Get("refresh") == "true" {
		if err := s.engine.FetchLeaderboard(r.Context()); err != nil {
			s.logger.Debug("leaderboard fetch failed, serving fallback", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, s.leaderboardView(s.engine.State()))
}

func (s *Server) handleRefreshLeaderboard(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.FetchLeaderboard(r.Context()); err != nil {
		s.logger.Debug("leaderboard refresh failed, serving fallback", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, s.leaderboardView(s.engine.State()))
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	dishID := strings.TrimSpace(chi.URLParam(r, "dishID"))
	if _, ok := s.catalog.Get(dishID); !ok {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Dish not found")
		return
	}

	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Rating == nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rating is required")
		return
	}

	err := s.engine.SubmitRating(r.Context(), dishID, *req.Rating, strings.TrimSpace(req.UserID))
	view := s.leaderboardView(s.engine.State())
	switch {
	case errors.Is(err, domain.ErrInvalidValue):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			fmt.Sprintf("rating must be between %d and %d", domain.MinScore, domain.MaxScore))
	case errors.Is(err, domain.ErrInvalidItem):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "dish id is required")
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away; nothing to write to.
	case err != nil:
		s.logger.Warn("rating rolled back", zap.String("dish", dishID), zap.Error(err))
		s.respondJSON(w, http.StatusBadGateway, errorResponse{
			Code:    "UPSTREAM_ERROR",
			Message: "Rating could not be saved and was rolled back",
			Details: view,
		})
	default:
		s.respondJSON(w, http.StatusOK, ratingResponse{DishID: dishID, Rating: *req.Rating, Leaderboard: view})
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.LatestUserMessage() == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "history must contain a user message")
		return
	}
	if req.Persona == "" {
		req.Persona = chat.Persona(r.URL.Query().Get("persona"))
	}
	if len(req.Dishes) == 0 {
		req.Dishes = s.catalog.Available()
	}
	if len(req.Leaderboard) == 0 {
		for _, e := range leaderboard.Rank(s.catalog.All(), s.engine.State().Ratings) {
			if e.Pending {
				continue
			}
			req.Leaderboard = append(req.Leaderboard, chat.LeaderEntry{Name: e.Name, Dish: e.ID, Score: e.Rating})
		}
	}
	s.respondJSON(w, http.StatusOK, s.chat.Reply(r.Context(), req))
}

func (s *Server) leaderboardView(st feedback.State) leaderboardResponse {
	entries := leaderboard.Rank(s.catalog.All(), st.Ratings)
	resp := leaderboardResponse{
		Ratings:    st.Ratings,
		Loading:    st.Loading,
		Entries:    entries,
		HasRatings: leaderboard.HasAnyRatings(entries),
		Stream:     s.engine.StreamStatus(),
	}
	if resp.Ratings == nil {
		resp.Ratings = domain.Snapshot{}
	}
	if st.Error != "" {
		msg := st.Error
		resp.Error = &msg
	}
	return resp
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Warn("failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Clark-Hu/bitebuzz/internal/chat"
	"github.com/Clark-Hu/bitebuzz/internal/config"
	"github.com/Clark-Hu/bitebuzz/internal/feedback"
	"github.com/Clark-Hu/bitebuzz/internal/menu"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	engine  *feedback.Engine
	catalog *menu.Catalog
	chat    *chat.Service
	limiter *visitorLimiter
	logger  *zap.Logger
	router  chi.Router
	httpSrv *http.Server

	keepAlive time.Duration
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, engine *feedback.Engine, catalog *menu.Catalog, chatSvc *chat.Service, logger *zap.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if logger == nil {
		logger = zap.NewNop()
	}
	if chatSvc == nil {
		chatSvc = chat.NewService(nil, cfg.ChatTimeout(), logger)
	}
	rps, burst := cfg.RateLimitRPS, cfg.RateLimitBurst
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}

	s := &Server{
		cfg:       cfg,
		engine:    engine,
		catalog:   catalog,
		chat:      chatSvc,
		limiter:   newVisitorLimiter(rps, burst),
		logger:    logger.Named("http"),
		router:    r,
		keepAlive: 15 * time.Second,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/menu", s.handleMenu)
	s.router.Route("/leaderboard", func(r chi.Router) {
		r.Get("/", s.handleLeaderboard)
		r.Post("/refresh", s.handleRefreshLeaderboard)
		r.Get("/stream", s.handleLeaderboardStream)
	})
	s.router.With(s.rateLimited).Post("/dishes/{dishID}/ratings", s.handleSubmitRating)
	s.router.Route("/ratings", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Get("/", s.handleListRatings)
		r.Post("/", s.handleAppendRating)
		r.Get("/events", s.handleRatingEvents)
	})
	s.router.Route("/builder", func(r chi.Router) {
		r.Get("/", s.handleBuilderCatalog)
		r.Post("/", s.handleBuildBowl)
	})
	s.router.With(s.rateLimited).Post("/chat", s.handleChat)
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx is done or it fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

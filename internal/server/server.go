package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/oficina-virtual/apiserver/config"
	"github.com/oficina-virtual/apiserver/internal/analytics"
	"github.com/oficina-virtual/apiserver/internal/db"
	"github.com/oficina-virtual/apiserver/internal/handlers"
	"github.com/oficina-virtual/apiserver/internal/logging"
	"github.com/oficina-virtual/apiserver/internal/mq"
	"github.com/oficina-virtual/apiserver/internal/services"
	"github.com/oficina-virtual/apiserver/internal/store"
	"github.com/rs/zerolog"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	log        zerolog.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open mq: %w", err)
	}

	userRepo := store.NewUserRepository(dbConn)
	opts := []services.UserServiceOption{services.WithLogger(log)}
	if queue != nil {
		opts = append(opts, services.WithEvents(mq.NewUserEvents(queue, cfg.MQ.Channel)))
		log.Info().Str("backend", cfg.MQ.Backend).Str("channel", cfg.MQ.Channel).Msg("publishing user events")
	}
	userService := services.NewUserService(userRepo, opts...)

	router := NewRouter(cfg, log, userService, analytics.NewGenerator(nil))

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         queue,
		log:        log,
	}, nil
}

// NewRouter builds the HTTP routes and middleware stack.
func NewRouter(cfg config.Config, log zerolog.Logger, userService *services.UserService, generator *analytics.Generator) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(log),
		logging.Recoverer(log),
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/docs", func(r chi.Router) {
		handlers.DocsRouter(r, log)
	})
	router.Route("/analytics", func(r chi.Router) {
		handlers.AnalyticsRouter(r, generator)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, log)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("api listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the database pool and
// the broker connection.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bookify/apiserver/config"
	"github.com/bookify/apiserver/internal/db"
	"github.com/bookify/apiserver/internal/handlers"
	"github.com/bookify/apiserver/internal/logging"
	"github.com/bookify/apiserver/internal/services"
	"github.com/bookify/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     logging.Logger
	closers    []closeFunc
}

// New wires the database, the account services and the notification
// backend into an HTTP server.
func New(ctx context.Context, cfg config.Config, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Server{logger: logger, closers: []closeFunc{dbConn.Close}}

	templates, closeTemplates, err := newTemplateSource(ctx, cfg, dbConn)
	if err != nil {
		s.close()
		return nil, err
	}
	s.closers = append(s.closers, closeTemplates)

	sender, closeSender, err := newMailSender(ctx, cfg, logger)
	if err != nil {
		s.close()
		return nil, err
	}
	s.closers = append(s.closers, closeSender)

	accounts := services.NewAccountService(
		store.NewAccountRepository(dbConn),
		store.NewRoleRepository(dbConn),
		store.NewClaimRepository(dbConn),
		services.WithLogger(logger.With("component", "accounts")),
		services.WithVerificationTTL(cfg.Verification.TokenTTL),
	)
	mailer := services.NewVerificationMailer(templates, sender, cfg.Verification)

	var exchange handlers.TokenExchanger
	if cfg.OAuth.Enabled() {
		exchange = services.NewTokenExchange(cfg.OAuth, nil)
	}

	s.router = NewRouter(handlers.NewUserHandler(accounts, mailer, exchange, jwtSecret, logger), logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// NewRouter mounts the account routes behind the common middleware stack.
func NewRouter(users *handlers.UserHandler, logger logging.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.Recover(logger),
		middleware.Logger,
		handlers.CORS,
		middleware.Timeout(60*time.Second),
	)
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/users", func(r chi.Router) {
		handlers.UsersRouter(r, users)
	})
	return router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the database and the
// notification backend.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	s.closers = nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	ginhandler "user-mvi/internal/adapter/gin/handler"
	"user-mvi/internal/adapter/gin/middleware"
	ginrouter "user-mvi/internal/adapter/gin/router"
)

// Server serves the users REST API over HTTP.
type Server struct {
	HTTP   *http.Server
	Logger *zap.Logger
}

// New builds the gin router and the HTTP server listening on :port.
// rateLimiter may be nil.
func New(port string, handler *ginhandler.UserHandler, rateLimiter *middleware.RateLimiter, l *zap.Logger) *Server {
	router := ginrouter.SetupRouter(handler, rateLimiter, l)

	return &Server{
		HTTP: &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 2 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		Logger: l,
	}
}

// Start listens and serves until Shutdown. It returns nil after a graceful
// shutdown.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", s.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.Logger.Info("HTTP server running", zap.String("address", lis.Addr().String()))
	if err := s.HTTP.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("shutting down HTTP server...")
	return s.HTTP.Shutdown(ctx)
}

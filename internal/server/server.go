// Package server exposes invoice validation over HTTP.
//
// Routes:
//   - GET  /health
//   - POST /validate-json               JSON array of invoice records
//   - POST /extract-and-validate-pdfs   multipart upload, field "files"
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"invoiceqc/internal/logger"
)

// Options configures the HTTP server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server represents the HTTP server for invoice validation
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	log        zerolog.Logger
}

// New creates and configures a new server instance
func New(opts Options, h *Handler) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger())

	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", h.Health)
	router.POST("/validate-json", h.ValidateJSON)
	router.POST("/extract-and-validate-pdfs", h.ExtractAndValidate)

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      router,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		log: logger.WithComponent("server"),
	}
}

// Router returns the gin router instance
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("Server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}

	s.log.Info().Msg("Server exited gracefully")
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"quadra_financeiro/internal/handlers"
	"quadra_financeiro/internal/transport/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	// Tokens enables bearer auth on every route but /health when set.
	Tokens      *auth.Tokens
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter wires the HTTP API onto a gin engine.
func NewRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(RequestID(), AccessLog(log), Recovery(log), cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/health", h.Health)

	api := r.Group("/")
	if opts.Tokens != nil {
		api.Use(auth.Middleware(opts.Tokens, log))
	}

	api.GET("/options", h.Options)

	api.POST("/rentals", h.AddRental)
	api.PATCH("/rentals/:id/status", h.UpdateRentalStatus)
	api.POST("/transactions", h.AddTransaction)
	api.DELETE("/records/:collection/:id", h.Delete)

	api.GET("/months/:year/:month", h.Month)
	api.GET("/months/:year/:month/summary", h.Summary)
	api.GET("/years/:year", h.Year)

	api.POST("/import", h.Import)
	api.POST("/upload", h.Upload)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

type Server struct {
	httpServer *http.Server
	handlers   *handlers.Handlers
}

func NewServer(port string, h *handlers.Handlers, engine http.Handler) *Server {
	return &Server{
		handlers: h,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", port),
			Handler:      engine,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down and waits for
// background imports.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.httpServer.Shutdown(shCtx)
		if s.handlers != nil {
			s.handlers.Wait()
		}
		return err
	case err := <-errCh:
		return err
	}
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/config"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// multipart headers and boundaries on top of the file itself
const formOverhead = 1024 * 1024

// Server is the local web UI in front of an upload client.
type Server struct {
	cfg    config.Analysis
	client *upload.Client
	// submissions outlive their http request, they are bound to ctx instead
	ctx  context.Context
	echo *echo.Echo
}

// New creates the web UI. Submissions started by the UI are cancelled when ctx is done.
func New(ctx context.Context, cfg config.Analysis, client *upload.Client) *Server {
	s := &Server{
		cfg:    cfg,
		client: client,
		ctx:    ctx,
		echo:   echo.New(),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path

			return path == "/health" || path == "/api/state"
		},
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).
				Dur("latency", v.Latency).Msg("request")

			return nil
		},
	}))
	e.Use(middleware.Recover())
	if cfg.MaxFileSize > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", (cfg.MaxFileSize+formOverhead)/1024)))
	}

	e.GET("/", s.HandleIndex)
	e.POST("/upload", s.HandleUpload)
	e.POST("/reset", s.HandleReset)
	e.GET("/api/state", s.HandleState)
	e.GET("/health", s.HandleHealth)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called. A regular shutdown returns nil.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Msgf("Listening on http://%s", addr)

	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s stopped %w", addr, err)
	}

	return nil
}

// Shutdown stops accepting requests and cancels pending submissions.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	s.client.Close()

	return err
}

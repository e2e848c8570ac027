// Package server is the thin HTTP layer over the ticket registry.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/internal/tickets"
	"github.com/mohammad-safakhou/itinerary/models"
)

// TicketService is what the HTTP layer needs from the registry.
type TicketService interface {
	Submit(ctx context.Context, req models.ItineraryRequest) (*tickets.Job, error)
	Poll(id string) models.Ticket
}

// Server wires routes onto an echo instance.
type Server struct {
	Echo    *echo.Echo
	tickets TicketService
	logger  *zap.Logger
}

// New builds the HTTP server. metrics may be nil.
func New(svc TicketService, metrics http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		if code >= http.StatusInternalServerError {
			logger.Error("request failed", zap.Int("status", code), zap.String("method", req.Method), zap.String("path", req.URL.Path), zap.String("remote", c.RealIP()), zap.Error(err))
		} else {
			logger.Info("request rejected", zap.Int("status", code), zap.String("method", req.Method), zap.String("path", req.URL.Path), zap.String("remote", c.RealIP()), zap.Error(err))
		}
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}

	s := &Server{Echo: e, tickets: svc, logger: logger}
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
	e.POST("/generate-itinerary", s.generate)
	e.GET("/itinerary-status/:request_id", s.status)
	return s
}

// Run serves until ctx is cancelled, then shuts down within shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	return s.Echo.Shutdown(sctx)
}

// Package server exposes the chat service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aivy-conversation/internal/aivy/chat"
	"aivy-conversation/internal/common/config"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/metrics"
)

const defaultRequestTimeout = 60 * time.Second

// ChatService is the part of chat.Service the HTTP layer calls.
type ChatService interface {
	HandleMessage(ctx context.Context, req chat.ChatRequest) (*chat.ChatResponse, error)
	SubmitLeadContact(ctx context.Context, req chat.LeadRequest) (*chat.LeadResponse, error)
	History(ctx context.Context, sessionID string, limit int) (*chat.HistoryResponse, error)
	Wait()
}

// ReadinessCheck is consulted by /ready. Check should honour ctx.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	echo           *echo.Echo
	chat           ChatService
	checks         []ReadinessCheck
	limiter        *RateLimiter
	address        string
	requestTimeout time.Duration
	logger         logger.Logger
}

func New(cfg config.ServerConfig, svc ChatService, log logger.Logger, checks ...ReadinessCheck) *Server {
	timeout := defaultRequestTimeout
	if cfg.RequestTimeout > 0 {
		timeout = config.GetDuration(cfg.RequestTimeout)
	}

	s := &Server{
		echo:           echo.New(),
		chat:           svc,
		checks:         checks,
		limiter:        NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		address:        cfg.Address,
		requestTimeout: timeout,
		logger:         logger.ForComponent(log, "http-server"),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(s.requestLogger)

	e.GET("/health", s.health)
	e.GET("/ready", s.ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/ai", s.rateLimit)
	api.POST("/chat", s.postChat)
	api.POST("/leads", s.postLead)
	api.GET("/sessions/:id/history", s.getHistory)

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.address})
	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then waits for in-flight turn
// recordings.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	s.chat.Wait()
	return err
}

func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.RealIP()
		if !s.limiter.Allow(key) {
			metrics.RateLimited.Inc()
			return apperrors.NewRateLimitedError(key)
		}
		return next(c)
	}
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if c.Path() == "/health" || c.Path() == "/metrics" {
			return err
		}
		fields := map[string]interface{}{
			"method":     c.Request().Method,
			"path":       c.Path(),
			"requestId":  c.Response().Header().Get(echo.HeaderXRequestID),
			"durationMs": time.Since(start).Milliseconds(),
		}
		if err != nil {
			fields["error"] = err.Error()
			s.logger.Warn("request failed", fields)
		} else {
			fields["status"] = c.Response().Status
			s.logger.Debug("request handled", fields)
		}
		return err
	}
}

type errorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId,omitempty"`
	Retryable bool      `json:"retryable"`
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := errorResponse{
		Error:     "Internal server error",
		Code:      string(apperrors.ErrCodeInternal),
		Timestamp: time.Now().UTC(),
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	}

	var stdErr *apperrors.StandardError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &stdErr):
		status = apperrors.HTTPStatus(stdErr.Code)
		body.Error = stdErr.Message
		body.Code = string(stdErr.Code)
		body.Retryable = stdErr.Retryable
		if status < http.StatusInternalServerError {
			body.Details = stdErr.Details
		}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		body.Error = http.StatusText(status)
		body.Code = http.StatusText(status)
	default:
		s.logger.Error("unhandled error", map[string]interface{}{
			"path":  c.Path(),
			"error": err.Error(),
		})
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Error("failed to write error response", map[string]interface{}{"error": err.Error()})
	}
}

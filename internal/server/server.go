// Package server is the analytics backend behind the dashboard. It proxies
// the merchant profile and transaction history from the payment processor and
// serves the aggregates computed by package analytics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/derickschaefer/tally/internal/analytics"
	"github.com/derickschaefer/tally/internal/model"
	"github.com/derickschaefer/tally/internal/sumup"
	"github.com/derickschaefer/tally/internal/util"
)

// Query defaults.
const (
	DefaultTransactionLimit = 100
	AnalyticsLimit          = 1000
	DefaultDailyDays        = 30
	DefaultHourlyDays       = 7
	DefaultCardTypeDays     = 30
)

const shutdownTimeout = 5 * time.Second

// Upstream is the subset of the payment-processor client the handlers use.
type Upstream interface {
	Merchant(ctx context.Context) (json.RawMessage, error)
	TransactionsRaw(ctx context.Context, opts sumup.ListOptions) (json.RawMessage, error)
	Transactions(ctx context.Context, opts sumup.ListOptions) ([]model.Transaction, error)
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string // empty allows every origin
	APIKeySet      bool
	RedactedKey    string
	UpstreamURL    string
	Now            func() time.Time
}

// Server holds the gin engine and its upstream.
type Server struct {
	up     Upstream
	opts   Options
	engine *gin.Engine
}

// New builds the router. Call gin.SetMode beforehand to change gin's mode.
func New(up Upstream, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{up: up, opts: opts, engine: gin.New()}
	s.engine.Use(gin.Recovery(), requestLogger(), corsMiddleware(opts.AllowedOrigins))
	s.routes()
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/health", s.health)

	api := s.engine.Group("/api")
	{
		api.GET("/merchant", s.merchant)
		api.GET("/transactions", s.transactions)
		api.GET("/debug", s.debug)

		an := api.Group("/analytics")
		{
			an.GET("/summary", s.summary)
			an.GET("/daily", s.daily)
			an.GET("/hourly", s.hourly)
			an.GET("/card-types", s.cardTypes)
		}
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("analytics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down analytics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

// ─── Middleware ───────────────────────────────────────────────────────────────

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	return cors.New(cfg)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) debug(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"api_key_set":    s.opts.APIKeySet,
		"api_key_prefix": s.opts.RedactedKey,
		"base_url":       s.opts.UpstreamURL,
	})
}

func (s *Server) merchant(c *gin.Context) {
	raw, err := s.up.Merchant(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, gin.MIMEJSON, raw)
}

func (s *Server) transactions(c *gin.Context) {
	opts := sumup.ListOptions{Limit: DefaultTransactionLimit}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		opts.Limit = n
	}
	var err error
	if opts.Oldest, err = dateQuery(c, "start_date"); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if opts.Newest, err = dateQuery(c, "end_date"); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	raw, err := s.up.TransactionsRaw(c.Request.Context(), opts)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, gin.MIMEJSON, raw)
}

func (s *Server) summary(c *gin.Context) {
	txns, ok := s.window(c, analytics.SummaryDays)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.Summarize(txns))
}

func (s *Server) daily(c *gin.Context) {
	txns, ok := s.windowFromQuery(c, DefaultDailyDays)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.Daily(txns))
}

func (s *Server) hourly(c *gin.Context) {
	txns, ok := s.windowFromQuery(c, DefaultHourlyDays)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.Hourly(txns))
}

func (s *Server) cardTypes(c *gin.Context) {
	txns, ok := s.windowFromQuery(c, DefaultCardTypeDays)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analytics.CardTypes(txns))
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func (s *Server) windowFromQuery(c *gin.Context, def int) ([]model.Transaction, bool) {
	days := def
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, fmt.Errorf("days must be a positive integer, got %q", v))
			return nil, false
		}
		days = n
	}
	return s.window(c, days)
}

// window fetches up to AnalyticsLimit transactions from the trailing days.
func (s *Server) window(c *gin.Context, days int) ([]model.Transaction, bool) {
	txns, err := s.up.Transactions(c.Request.Context(), sumup.Window(s.opts.Now(), days, AnalyticsLimit))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return nil, false
	}
	return txns, true
}

func dateQuery(c *gin.Context, name string) (time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := util.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

func fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Warn("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// Package httpapi exposes the signal webhook and the read-only
// monitoring endpoints over gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"sinalbot/internal/executor"
	"sinalbot/internal/logger"
	"sinalbot/internal/store"
	"sinalbot/internal/trader"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout = 5 * time.Second
	signalTimeout   = 30 * time.Second
)

// SignalHandler runs a validated signal through the trading pipeline.
type SignalHandler interface {
	HandleSignal(ctx context.Context, sig executor.Signal) executor.Outcome
}

// PositionReader is the state the monitoring endpoints expose.
type PositionReader interface {
	Snapshot() *trader.Snapshot
	PendingLimits() []trader.PendingLimit
}

// ServerConfig wires the server's dependencies.
type ServerConfig struct {
	Addr          string
	AuthToken     string
	SymbolAllowed func(symbol string) bool
	Signals       SignalHandler
	Positions     PositionReader
	Events        store.Recorder
}

// Server hosts the webhook plus health, positions, events and metrics.
type Server struct {
	addr   string
	router *gin.Engine
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Signals == nil {
		return nil, errors.New("http server requires a signal handler")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handlers{cfg: cfg}
	api := router.Group("/api")
	if strings.TrimSpace(cfg.AuthToken) != "" {
		api.Use(bearerAuth(cfg.AuthToken))
	}
	api.POST("/signals", h.handleSignal)
	api.GET("/positions", h.handlePositions)
	api.GET("/events", h.handleEvents)

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Handler exposes the router, mainly to httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

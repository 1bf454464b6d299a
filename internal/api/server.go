// Package api exposes the operational status of the runner over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/orchestrator"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/config"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
)

// Status tracks the current and last cycle. Safe for concurrent use.
type Status struct {
	mu      sync.RWMutex
	running bool
	last    *orchestrator.Result
}

// NewStatus creates an empty status tracker
func NewStatus() *Status {
	return &Status{}
}

// CycleStarted marks a cycle as in flight.
func (s *Status) CycleStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

// CycleFinished records the result of the completed cycle.
func (s *Status) CycleFinished(result *orchestrator.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if result != nil {
		s.last = result
	}
}

// Snapshot returns the running flag and last result.
func (s *Status) Snapshot() (bool, *orchestrator.Result) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running, s.last
}

// Server serves the health and status endpoints.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer builds the HTTP server around a status tracker
func NewServer(cfg *config.ServerConfig, status *Status, debug bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", healthHandler)
	router.GET("/status", statusHandler(status))

	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: router,
		},
		logger: logging.GetLogger().With(zap.String("component", "status-server")),
	}
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("Status server starting", zap.String("address", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"service": "tgchannelrec",
	})
}

func statusHandler(status *Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		running, last := status.Snapshot()
		body := gin.H{
			"running": running,
			"time":    time.Now().UTC().Format(time.RFC3339),
		}
		if last != nil {
			body["last_cycle"] = last
		}
		c.JSON(http.StatusOK, body)
	}
}

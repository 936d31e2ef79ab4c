// Package server serves the cart-pole to browsers. Each websocket client
// gets its own engine, stepped by the configured policy, and receives SVG
// attribute updates as frames.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/polecart/internal/config"
	"github.com/san-kum/polecart/internal/render"
)

const shutdownGrace = 5 * time.Second

type Server struct {
	mu     sync.RWMutex
	cfg    *config.Config
	logger *slog.Logger

	router   *gin.Engine
	upgrader websocket.Upgrader

	// ctx is cancelled on shutdown so hijacked websocket connections,
	// which http.Server.Shutdown does not track, end too.
	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
}

func New(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		logger: logger,
		router: gin.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		ctx:    ctx,
		cancel: cancel,
	}
	s.router.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/api/config", s.handleConfig)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) Handler() http.Handler { return s.router }

// Config returns the config new episodes start from. Callers must not
// modify it.
func (s *Server) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetConfig swaps the config. Running sessions pick it up at their next
// reset.
func (s *Server) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.logger.Info("server config updated", "preset", cfg.Preset, "policy", cfg.Policy)
}

// Watch reloads the config file at path on change until ctx is done.
func (s *Server) Watch(ctx context.Context, path string) error {
	w, err := config.NewWatcher(path, s.SetConfig, s.logger)
	if err != nil {
		return err
	}
	defer w.Stop()
	return w.Start(ctx)
}

func (s *Server) handleIndex(c *gin.Context) {
	cfg := s.Config()
	scene := render.DefaultScene(cfg.Env.XThreshold, cfg.Env.PoleHalfLength)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := writePage(c.Writer, scene); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.Config())
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("failed to upgrade the websocket", "error", err)
		return
	}

	sess, err := newSession(s, conn)
	if err != nil {
		s.logger.Error("failed to start session", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session setup failed"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	s.sessions.Add(1)
	defer s.sessions.Done()
	if err := sess.run(s.ctx); err != nil {
		sess.logger.Warn("session failed", "error", err)
	}
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Config().Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close ends every websocket session and waits for them to finish.
func (s *Server) Close() {
	s.cancel()
	s.sessions.Wait()
}

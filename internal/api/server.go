package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gstd/internal/metrics"
	"gstd/pkg/parser"
)

// Protocol names the transport in logs and metrics
const Protocol = "http"

// shutdownTimeout bounds the graceful stop of in-flight requests
const shutdownTimeout = 5 * time.Second

// Config holds the HTTP listener settings
type Config struct {
	Address string
	Port    int
	// MaxThreads caps concurrent requests, -1 means unlimited
	MaxThreads    int
	Websocket     bool
	WebsocketPath string
	Metrics       bool
	MetricsPath   string
}

// Server represents the API server
type Server struct {
	router   *gin.Engine
	config   Config
	parser   *parser.Parser
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	sockets  map[*websocket.Conn]struct{}
}

// NewServer creates a new API server instance. m may be nil, which
// disables /metrics and connection accounting.
func NewServer(config Config, p *parser.Parser, m *metrics.Metrics) *Server {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add basic middleware
	router.Use(requestLogger())
	router.Use(gin.Recovery())
	if config.MaxThreads > 0 {
		router.Use(limitConcurrency(config.MaxThreads))
	}

	s := &Server{
		router:  router,
		config:  config,
		parser:  p,
		metrics: m,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(_ *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sockets: make(map[*websocket.Conn]struct{}),
	}
	s.SetupRoutes()
	return s
}

// SetupRoutes configures all API routes. Every path that is not one of the
// fixed endpoints is a resource URI.
func (s *Server) SetupRoutes() {
	// API v1 group
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/command", s.CommandHandler)
		v1.GET("/commands", s.CommandsHandler)
	}

	if s.config.Websocket {
		s.router.GET(s.websocketPath(), s.WebsocketHandler)
	}
	if s.config.Metrics && s.metrics != nil {
		s.router.GET(s.metricsPath(), gin.WrapH(s.metrics.Handler()))
	}

	s.router.NoRoute(s.ResourceHandler)
}

func (s *Server) websocketPath() string {
	if s.config.WebsocketPath == "" {
		return "/ws"
	}
	return s.config.WebsocketPath
}

func (s *Server) metricsPath() string {
	if s.config.MetricsPath == "" {
		return "/metrics"
	}
	return s.config.MetricsPath
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("api server already started")
	}

	addr := net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 논블로킹으로 서버 시작
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server error", "err", err)
		}
	}(s.server)

	slog.Info("API Server started", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the HTTP server down and closes open websockets
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	sockets := make([]*websocket.Conn, 0, len(s.sockets))
	for conn := range s.sockets {
		sockets = append(sockets, conn)
	}
	s.mu.Unlock()

	if srv == nil {
		return
	}
	slog.Info("API Server stopping...")

	for _, conn := range sockets {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("API server did not stop cleanly", "err", err)
	}
	slog.Info("API Server stopped successfully")
}

// Name 서버 이름 반환
func (s *Server) Name() string {
	return Protocol
}

// Addr returns the bound address, nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// GetRouter returns the gin router (for testing)
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

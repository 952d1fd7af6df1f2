// Package natsipc serves the command protocol over NATS request/reply. A
// request on the configured subject carries one command line; the reply
// carries the response envelope.
package natsipc

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

// Protocol names the transport in logs and metrics
const Protocol = "nats"

// Handler executes one command line and renders the reply
type Handler interface {
	Handle(line string) string
}

// Server answers command requests published on a subject
type Server struct {
	config  Config
	handler Handler

	mu   sync.Mutex
	conn *nats.Conn
	sub  *nats.Subscription
}

// NewServer creates a NATS IPC server
func NewServer(config Config, handler Handler) *Server {
	return &Server{config: config, handler: handler}
}

// Start connects and subscribes
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return ErrAlreadyStarted
	}
	if s.handler == nil {
		return ErrNoHandler
	}
	if s.config.Subject == "" {
		return ErrNoSubject
	}

	conn, err := nats.Connect(s.config.URL, s.options()...)
	if err != nil {
		return fmt.Errorf("failed to connect to nats at %s: %w", s.config.URL, err)
	}

	sub, err := conn.QueueSubscribe(s.config.Subject, s.config.Queue, s.handleRequest)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", s.config.Subject, err)
	}

	s.conn = conn
	s.sub = sub
	slog.Info("NATS IPC listening", "url", conn.ConnectedUrl(), "subject", s.config.Subject)
	return nil
}

func (s *Server) options() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(s.config.MaxReconnects),
		nats.ReconnectWait(s.config.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	}
	if s.config.Timeout > 0 {
		opts = append(opts, nats.Timeout(s.config.Timeout))
	}
	if s.config.Name != "" {
		opts = append(opts, nats.Name(s.config.Name))
	}
	return opts
}

// handleRequest runs each command on its own goroutine; reads such as
// signal_connect block until their wait ends
func (s *Server) handleRequest(msg *nats.Msg) {
	if msg.Reply == "" {
		slog.Debug("Ignoring NATS command without reply subject", "subject", msg.Subject)
		return
	}
	go func() {
		reply := s.handler.Handle(string(msg.Data))
		if err := msg.Respond([]byte(reply)); err != nil {
			slog.Error("Failed to send NATS reply", "subject", msg.Reply, "err", err)
		}
	}()
}

// Stop unsubscribes and closes the connection
func (s *Server) Stop() {
	s.mu.Lock()
	conn, sub := s.conn, s.sub
	s.conn, s.sub = nil, nil
	s.mu.Unlock()

	if conn == nil {
		return
	}
	slog.Info("NATS IPC stopping...")
	if err := sub.Unsubscribe(); err != nil {
		slog.Debug("Error unsubscribing", "subject", s.config.Subject, "err", err)
	}
	conn.Close()
	slog.Info("NATS IPC stopped successfully")
}

// Name 서버 이름 반환
func (s *Server) Name() string {
	return Protocol
}

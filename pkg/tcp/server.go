// Package tcp serves the command protocol over plain TCP or Unix domain
// sockets. Every read on a connection is one command line; the reply is
// the response envelope followed by a NUL byte.
package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"

	"gstd/pkg/utils"
)

// Protocol names the transport in logs and metrics
const Protocol = "tcp"

// UnixProtocol names the Unix domain socket transport
const UnixProtocol = "unix"

// DefaultUnixPath is the socket base path; the first socket is
// DefaultUnixPath + "_0"
const DefaultUnixPath = "/tmp/gstd_unix_socket"

// Handler executes one command line and renders the reply
type Handler interface {
	Handle(line string) string
}

// Observer is told when clients come and go
type Observer interface {
	ConnectionOpened(protocol string)
	ConnectionClosed(protocol string)
}

// Server accepts command connections on one or more consecutive ports, or
// on one or more socket files for the unix network
type Server struct {
	config    Config
	handler   Handler
	observer  Observer
	listeners []net.Listener
	sessions  map[string]*Session // sessionId -> session
	mu        sync.Mutex
	wg        sync.WaitGroup // accept loops
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
}

// NewServer creates a command server. observer may be nil.
func NewServer(config Config, handler Handler, observer Observer) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:   config,
		handler:  handler,
		observer: observer,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start opens every listener and starts accepting. Either all ports are
// bound or none is.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyStarted
	}
	if s.handler == nil {
		return ErrNoHandler
	}
	if s.config.NumPorts < 1 {
		return ErrNoPorts
	}
	switch s.Name() {
	case Protocol:
	case UnixProtocol:
		if s.config.Path == "" {
			return ErrNoPath
		}
	default:
		return ErrBadNetwork
	}

	for i := 0; i < s.config.NumPorts; i++ {
		ln, err := s.createListener(i)
		if err != nil {
			for j, opened := range s.listeners {
				utils.CloseWithLog(opened)
				if s.Name() == UnixProtocol {
					removeSocket(s.SocketPath(j))
				}
			}
			s.listeners = nil
			return err
		}
		s.listeners = append(s.listeners, ln)
	}
	s.running = true

	for _, ln := range s.listeners {
		s.wg.Add(1)
		go s.acceptConnections(ln)
		slog.Info("Command server listening", "protocol", s.Name(), "addr", ln.Addr().String())
	}
	return nil
}

func (s *Server) port(i int) int {
	if s.config.BasePort == 0 {
		return 0
	}
	return s.config.BasePort + i
}

// SocketPath returns the socket file of the i-th unix port
func (s *Server) SocketPath(i int) string {
	return fmt.Sprintf("%s_%d", s.config.Path, i)
}

// Stop closes the listeners and every open session, then waits for the
// accept loops. A session blocked in a command finishes once the command
// returns. Unix socket files are removed.
func (s *Server) Stop() {
	slog.Info("Command server stopping...", "protocol", s.Name())
	s.cancel()

	s.mu.Lock()
	for _, ln := range s.listeners {
		if err := ln.Close(); err != nil {
			slog.Debug("Error closing listener", "protocol", s.Name(), "err", err)
		}
	}
	if s.Name() == UnixProtocol && s.running {
		for i := range s.listeners {
			removeSocket(s.SocketPath(i))
		}
	}
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.running = false
	s.mu.Unlock()

	slog.Info("Closing all sessions", "protocol", s.Name(), "sessionCount", len(sessions))
	for _, session := range sessions {
		session.Stop()
	}

	s.wg.Wait()
	slog.Info("Command server stopped successfully", "protocol", s.Name())
}

// Name 서버 이름 반환, 네트워크 이름과 같다
func (s *Server) Name() string {
	if s.config.Network == "" {
		return Protocol
	}
	return s.config.Network
}

// Addrs returns the bound listener addresses
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	addrs := make([]net.Addr, 0, len(s.listeners))
	for _, ln := range s.listeners {
		addrs = append(addrs, ln.Addr())
	}
	return addrs
}

// SessionCount returns the number of open sessions
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// createListener creates the listener of the i-th port
func (s *Server) createListener(i int) (net.Listener, error) {
	network := s.Name()
	addr := net.JoinHostPort(s.config.Address, strconv.Itoa(s.port(i)))
	if network == UnixProtocol {
		addr = s.SocketPath(i)
	}
	ln, err := net.Listen(network, addr)
	if err != nil {
		slog.Error("Error starting command server", "protocol", network, "addr", addr, "err", err)
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if ul, ok := ln.(*net.UnixListener); ok {
		// removed explicitly in Stop
		ul.SetUnlinkOnClose(false)
	}
	return ln, nil
}

func removeSocket(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Unable to delete unix socket", "path", path, "err", err)
	}
}

// acceptConnections accepts incoming connections
func (s *Server) acceptConnections(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			// 리스너가 닫힌 경우
			select {
			case <-s.ctx.Done():
				slog.Info("Accept loop stopped (listener closed)", "protocol", s.Name(), "addr", ln.Addr().String())
			default:
				slog.Error("Accept failed", "protocol", s.Name(), "err", err)
			}
			return
		}

		session, ok := s.addSession(conn)
		if !ok {
			slog.Warn("Too many connections, rejecting", "protocol", s.Name(), "remoteAddr", conn.RemoteAddr(), "max", s.config.MaxConnections)
			utils.CloseWithLog(conn)
			continue
		}

		go func() {
			session.Run()
			s.removeSession(session.ID())
		}()

		slog.Info("New session created", "protocol", s.Name(), "sessionId", session.ID(), "remoteAddr", conn.RemoteAddr())
	}
}

func (s *Server) addSession(conn net.Conn) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil, false
	}
	if s.config.MaxConnections >= 0 && len(s.sessions) >= s.config.MaxConnections {
		return nil, false
	}
	session := NewSession(conn, s.handler)
	s.sessions[session.ID()] = session
	if s.observer != nil {
		s.observer.ConnectionOpened(s.Name())
	}
	return session, true
}

// 세션 종료 시 세션 맵에서 제거
func (s *Server) removeSession(sessionId string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionId]
	delete(s.sessions, sessionId)
	s.mu.Unlock()

	if ok && s.observer != nil {
		s.observer.ConnectionClosed(s.Name())
	}
	slog.Info("Session removed from server", "protocol", s.Name(), "sessionId", sessionId)
}

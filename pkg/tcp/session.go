package tcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
)

// MaxCommandSize is the largest command a single read accepts
const MaxCommandSize = 1024 * 1024

// Terminator ends every reply
const Terminator = 0x00

// Session is one client connection
type Session struct {
	sessionId string
	conn      net.Conn
	handler   Handler
	ctx       context.Context
	cancel    context.CancelFunc
	once      sync.Once
}

// NewSession creates a session for conn
func NewSession(conn net.Conn, handler Handler) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		sessionId: uuid.NewString(),
		conn:      conn,
		handler:   handler,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.sessionId
}

// Run serves commands until the client hangs up or the session is stopped
func (s *Session) Run() {
	defer s.Stop()

	buf := make([]byte, MaxCommandSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			if werr := s.reply(string(buf[:n])); werr != nil {
				slog.Error("Failed to write TCP reply", "sessionId", s.sessionId, "err", werr)
				return
			}
		}
		if err != nil {
			select {
			case <-s.ctx.Done():
			default:
				if errors.Is(err, io.EOF) {
					slog.Debug("TCP client closed the connection", "sessionId", s.sessionId)
				} else {
					slog.Error("Failed to read from connection", "sessionId", s.sessionId, "err", err)
				}
			}
			return
		}
	}
}

func (s *Session) reply(command string) error {
	slog.Debug("TCP command received", "sessionId", s.sessionId, "size", len(command))
	response := s.handler.Handle(command)
	out := make([]byte, 0, len(response)+1)
	out = append(out, response...)
	out = append(out, Terminator)
	_, err := s.conn.Write(out)
	return err
}

// Stop closes the connection. It is safe to call more than once.
func (s *Session) Stop() {
	s.once.Do(func() {
		s.cancel()
		if err := s.conn.Close(); err != nil {
			slog.Debug("Error closing TCP connection", "sessionId", s.sessionId, "err", err)
		}
		slog.Info("TCP session closed", "sessionId", s.sessionId)
	})
}

package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebsocketProtocol names the websocket transport in logs and metrics
const WebsocketProtocol = "websocket"

const maxCommandSize = 1024 * 1024

// WebsocketHandler upgrades the request and serves commands on it. Each
// text frame is one command line, answered by one envelope frame.
func (s *Server) WebsocketHandler(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", "remoteAddr", c.Request.RemoteAddr, "err", err)
		return
	}
	conn.SetReadLimit(maxCommandSize)

	if !s.addSocket(conn) {
		_ = conn.Close()
		return
	}
	defer s.removeSocket(conn)

	sessionId := uuid.NewString()
	slog.Info("New websocket session created", "sessionId", sessionId, "remoteAddr", c.Request.RemoteAddr)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("Websocket read failed", "sessionId", sessionId, "err", err)
			}
			break
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		reply := s.parser.Handle(string(data))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			slog.Error("Failed to write websocket reply", "sessionId", sessionId, "err", err)
			break
		}
	}
	slog.Info("Websocket session closed", "sessionId", sessionId)
}

// addSocket registers conn unless the server is stopping
func (s *Server) addSocket(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil && s.listener != nil {
		return false
	}
	s.sockets[conn] = struct{}{}
	if s.metrics != nil {
		s.metrics.ConnectionOpened(WebsocketProtocol)
	}
	return true
}

func (s *Server) removeSocket(conn *websocket.Conn) {
	s.mu.Lock()
	_, ok := s.sockets[conn]
	delete(s.sockets, conn)
	s.mu.Unlock()

	_ = conn.Close()
	if ok && s.metrics != nil {
		s.metrics.ConnectionClosed(WebsocketProtocol)
	}
}

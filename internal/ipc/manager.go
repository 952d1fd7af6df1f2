// Package ipc starts and stops the enabled command transports as a group
package ipc

import (
	"fmt"
	"log/slog"
	"sync"
)

// Manager owns the enabled IPC servers
type Manager struct {
	mu      sync.Mutex
	servers []Server
	started []Server
}

// NewManager creates a manager for servers, started in the given order
func NewManager(servers ...Server) *Manager {
	return &Manager{servers: servers}
}

// Add appends a server. It has no effect once the manager is started.
func (m *Manager) Add(s Server) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, s)
}

// Names returns the names of the managed servers
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.servers))
	for _, s := range m.servers {
		names = append(names, s.Name())
	}
	return names
}

// Start starts every server in order. If one fails the servers already
// started are stopped again and the error is returned.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.started) > 0 {
		return fmt.Errorf("ipc servers already started")
	}
	slog.Info("IPC servers starting...", "count", len(m.servers))

	for _, s := range m.servers {
		if err := s.Start(); err != nil {
			slog.Error("Failed to start IPC server", "name", s.Name(), "err", err)
			stopAll(m.started)
			m.started = nil
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		m.started = append(m.started, s)
		slog.Info("IPC server started", "name", s.Name())
	}
	return nil
}

// Stop stops the started servers in reverse order
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.started
	m.started = nil
	m.mu.Unlock()

	stopAll(started)
	slog.Info("IPC servers stopped", "count", len(started))
}

func stopAll(servers []Server) {
	for i := len(servers) - 1; i >= 0; i-- {
		servers[i].Stop()
		slog.Info("IPC server stopped", "name", servers[i].Name())
	}
}

package tcp

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gstd/pkg/engine/local"
	"gstd/pkg/parser"
	"gstd/pkg/pipeline"
	"gstd/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct{}

func (echoHandler) Handle(line string) string { return "echo:" + line }

type countingObserver struct {
	mu     sync.Mutex
	opened int
	closed int
}

func (c *countingObserver) ConnectionOpened(string) {
	c.mu.Lock()
	c.opened++
	c.mu.Unlock()
}

func (c *countingObserver) ConnectionClosed(string) {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
}

func (c *countingObserver) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened, c.closed
}

func testConfig() Config {
	return Config{Address: "127.0.0.1", BasePort: 0, NumPorts: 1, MaxConnections: -1}
}

func startServer(t *testing.T, config Config, handler Handler, observer Observer) *Server {
	t.Helper()
	s := NewServer(config, handler, observer)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

func dial(t *testing.T, s *Server, i int) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addrs()[i].String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, bufio.NewReader(conn)
}

func roundTrip(t *testing.T, conn net.Conn, r *bufio.Reader, command string) string {
	t.Helper()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err := conn.Write([]byte(command))
	require.NoError(t, err)
	reply, err := r.ReadString(Terminator)
	require.NoError(t, err)
	return strings.TrimSuffix(reply, "\x00")
}

func TestServerRoundTrip(t *testing.T) {
	s := startServer(t, testConfig(), echoHandler{}, nil)
	conn, r := dial(t, s, 0)

	assert.Equal(t, "echo:hello", roundTrip(t, conn, r, "hello"))
	assert.Equal(t, "echo:again", roundTrip(t, conn, r, "again"))
	assert.Equal(t, "tcp", s.Name())
}

func TestServerParserEnvelope(t *testing.T) {
	sess, err := session.New(session.Config{Engine: local.New(), Pipeline: pipeline.DefaultOptions()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	s := startServer(t, testConfig(), parser.New(sess), nil)
	conn, r := dial(t, s, 0)

	var reply struct {
		Code        int             `json:"code"`
		Description string          `json:"description"`
		Response    json.RawMessage `json:"response"`
	}
	require.NoError(t, json.Unmarshal([]byte(roundTrip(t, conn, r, "pipeline_create p0 identity-source ! identity-sink")), &reply))
	assert.Equal(t, 0, reply.Code)
	assert.Contains(t, string(reply.Response), `"p0"`)

	require.NoError(t, json.Unmarshal([]byte(roundTrip(t, conn, r, "read /pipelines/missing")), &reply))
	assert.Equal(t, 6, reply.Code)
	assert.Equal(t, "null", string(reply.Response))
}

func TestServerMultiplePorts(t *testing.T) {
	config := testConfig()
	config.NumPorts = 3
	s := startServer(t, config, echoHandler{}, nil)
	require.Len(t, s.Addrs(), 3)

	for i := range s.Addrs() {
		conn, r := dial(t, s, i)
		assert.Equal(t, "echo:ping", roundTrip(t, conn, r, "ping"))
	}
}

func TestServerConsecutivePorts(t *testing.T) {
	free, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := free.Addr().(*net.TCPAddr).Port
	require.NoError(t, free.Close())

	config := testConfig()
	config.BasePort = base
	config.NumPorts = 2
	s := NewServer(config, echoHandler{}, nil)
	if err := s.Start(); err != nil {
		t.Skipf("ports %d-%d not available: %v", base, base+1, err)
	}
	defer s.Stop()

	addrs := s.Addrs()
	require.Len(t, addrs, 2)
	assert.Equal(t, base, addrs[0].(*net.TCPAddr).Port)
	assert.Equal(t, base+1, addrs[1].(*net.TCPAddr).Port)
}

func TestServerStartFailures(t *testing.T) {
	assert.ErrorIs(t, NewServer(testConfig(), nil, nil).Start(), ErrNoHandler)

	config := testConfig()
	config.NumPorts = 0
	assert.ErrorIs(t, NewServer(config, echoHandler{}, nil).Start(), ErrNoPorts)

	s := startServer(t, testConfig(), echoHandler{}, nil)
	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)

	taken := testConfig()
	taken.BasePort = s.Addrs()[0].(*net.TCPAddr).Port
	assert.Error(t, NewServer(taken, echoHandler{}, nil).Start())
}

func TestServerMaxConnections(t *testing.T) {
	config := testConfig()
	config.MaxConnections = 1
	s := startServer(t, config, echoHandler{}, nil)

	first, r := dial(t, s, 0)
	assert.Equal(t, "echo:one", roundTrip(t, first, r, "one"))

	second, r2 := dial(t, s, 0)
	require.NoError(t, second.SetDeadline(time.Now().Add(5*time.Second)))
	_, _ = second.Write([]byte("two"))
	_, err := r2.ReadString(Terminator)
	assert.Error(t, err, "rejected connections are closed")
}

func TestServerSessionLifecycle(t *testing.T) {
	observer := &countingObserver{}
	s := startServer(t, testConfig(), echoHandler{}, observer)

	conn, r := dial(t, s, 0)
	roundTrip(t, conn, r, "x")
	assert.Equal(t, 1, s.SessionCount())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.SessionCount() == 0 }, 5*time.Second, 10*time.Millisecond)

	opened, closed := observer.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
}

func TestServerStopClosesSessions(t *testing.T) {
	s := NewServer(testConfig(), echoHandler{}, nil)
	require.NoError(t, s.Start())

	conn, r := dial(t, s, 0)
	roundTrip(t, conn, r, "x")

	s.Stop()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err := r.ReadByte()
	assert.Error(t, err)
}

func unixConfig(t *testing.T, numPorts int) Config {
	t.Helper()
	config := DefaultUnixConfig()
	// socket paths are limited to ~100 bytes, keep it short
	dir, err := os.MkdirTemp("", "gstd")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	config.Path = filepath.Join(dir, "sock")
	config.NumPorts = numPorts
	return config
}

func dialUnix(t *testing.T, path string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, bufio.NewReader(conn)
}

func TestUnixServerRoundTrip(t *testing.T) {
	observer := &countingObserver{}
	s := startServer(t, unixConfig(t, 2), echoHandler{}, observer)
	assert.Equal(t, "unix", s.Name())

	for i := 0; i < 2; i++ {
		path := s.SocketPath(i)
		assert.Equal(t, path, s.Addrs()[i].String())
		conn, r := dialUnix(t, path)
		assert.Equal(t, "echo:ping", roundTrip(t, conn, r, "ping"))
	}
	opened, _ := observer.counts()
	assert.Equal(t, 2, opened)
}

func TestUnixServerRemovesSockets(t *testing.T) {
	config := unixConfig(t, 2)
	s := NewServer(config, echoHandler{}, nil)
	require.NoError(t, s.Start())

	for _, suffix := range []string{"_0", "_1"} {
		info, err := os.Stat(config.Path + suffix)
		require.NoError(t, err)
		assert.Equal(t, os.ModeSocket, info.Mode().Type())
	}

	s.Stop()
	for _, suffix := range []string{"_0", "_1"} {
		_, err := os.Stat(config.Path + suffix)
		assert.True(t, os.IsNotExist(err), "socket %s left behind", suffix)
	}
}

func TestUnixServerStartFailures(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		err    error
	}{
		{"no path", Config{Network: UnixProtocol, NumPorts: 1}, ErrNoPath},
		{"no ports", Config{Network: UnixProtocol, Path: "/tmp/x", NumPorts: 0}, ErrNoPorts},
		{"bad network", Config{Network: "udp", NumPorts: 1}, ErrBadNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, NewServer(tt.config, echoHandler{}, nil).Start(), tt.err)
		})
	}

	config := unixConfig(t, 1)
	startServer(t, config, echoHandler{}, nil)
	assert.Error(t, NewServer(config, echoHandler{}, nil).Start(), "socket already bound")
	_, err := os.Stat(config.Path + "_0")
	assert.NoError(t, err, "a failed start leaves the running server's socket alone")
}

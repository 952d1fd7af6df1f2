package app

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAppConfig() *Config {
	config := GetConfigWithDefaults()
	config.TCP.BasePort = 0
	config.HTTP.Enabled = true
	config.HTTP.Port = 0
	config.Logging.Level = "error"
	return config
}

func TestNewAppServers(t *testing.T) {
	config := testAppConfig()
	config.NATS.Enabled = true
	config.Unix.Enabled = true

	app, err := NewApp(config)
	require.NoError(t, err)
	defer app.session.Close()

	assert.Equal(t, []string{"tcp", "unix", "http", "nats"}, app.Servers())
}

func TestAppServesCommands(t *testing.T) {
	app, err := NewApp(testAppConfig())
	require.NoError(t, err)
	require.NoError(t, app.Start())

	done := make(chan struct{})
	go func() {
		app.waitForShutdown()
		close(done)
	}()
	defer func() {
		app.Shutdown()
		<-done
	}()

	code, _ := app.Parser().Parse("pipeline_create p0 identity-source ! identity-sink")
	assert.Equal(t, 0, int(code))
	assert.Equal(t, 1, app.session.Pipelines().Count())

	metricsBody := scrape(t, app)
	assert.Contains(t, metricsBody, "gstd_pipelines 1")
	assert.Contains(t, metricsBody, `gstd_commands_total{code="EOK",verb="pipeline_create"} 1`)
}

func TestAppTCPEndToEnd(t *testing.T) {
	config := testAppConfig()
	config.HTTP.Enabled = false

	app, err := NewApp(config)
	require.NoError(t, err)
	require.NoError(t, app.Start())
	defer app.shutdown()

	conn, err := net.Dial("tcp", tcpAddr(t, app))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = conn.Write([]byte("list_pipelines"))
	require.NoError(t, err)
	reply, err := bufio.NewReader(conn).ReadString(0)
	require.NoError(t, err)

	var env struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(reply, "\x00")), &env))
	assert.Equal(t, 0, env.Code)
}

func TestAppUnixEndToEnd(t *testing.T) {
	dir, err := os.MkdirTemp("", "gstd")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	config := testAppConfig()
	config.TCP.Enabled = false
	config.HTTP.Enabled = false
	config.Unix.Enabled = true
	config.Unix.Path = filepath.Join(dir, "sock")
	config.Daemon.PidFile = filepath.Join(dir, "gstd.pid")

	app, err := NewApp(config)
	require.NoError(t, err)
	assert.Equal(t, []string{"unix"}, app.Servers())
	require.NoError(t, app.Start())

	pid, err := ReadPidFile(config.Daemon.PidFile)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	conn, err := net.Dial("unix", config.Unix.Path+"_0")
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err = conn.Write([]byte("list_pipelines"))
	require.NoError(t, err)
	reply, err := bufio.NewReader(conn).ReadString(0)
	require.NoError(t, err)
	var env struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(reply, "\x00")), &env))
	assert.Equal(t, 0, env.Code)
	require.NoError(t, conn.Close())

	app.shutdown()
	for _, path := range []string{config.Unix.Path + "_0", config.Daemon.PidFile} {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "%s left behind", path)
	}
}

func TestAppStartFailureKeepsPidFile(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	config := testAppConfig()
	config.HTTP.Port = busy.Addr().(*net.TCPAddr).Port
	config.Daemon.PidFile = filepath.Join(t.TempDir(), "gstd.pid")
	require.NoError(t, os.WriteFile(config.Daemon.PidFile, []byte("1\n"), 0o644))

	app, err := NewApp(config)
	require.NoError(t, err)
	require.Error(t, app.Start())
	app.shutdown()

	pid, err := ReadPidFile(config.Daemon.PidFile)
	require.NoError(t, err)
	assert.Equal(t, 1, pid, "a failed start leaves another daemon's pid file alone")
}

func TestAppStartFailureRollsBack(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	config := testAppConfig()
	config.HTTP.Port = busy.Addr().(*net.TCPAddr).Port

	app, err := NewApp(config)
	require.NoError(t, err)
	defer app.session.Close()

	err = app.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http")
}

func scrape(t *testing.T, app *App) string {
	t.Helper()
	require.NotNil(t, app.http)
	resp, err := http.Get("http://" + app.http.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func tcpAddr(t *testing.T, app *App) string {
	t.Helper()
	require.NotNil(t, app.tcp)
	addrs := app.tcp.Addrs()
	require.NotEmpty(t, addrs)
	return addrs[0].String()
}

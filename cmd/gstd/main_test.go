package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstd/internal/app"
)

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	f, err := parseFlags([]string{"-p", "6000", "-e", "--http-port=6001", "--log-level", "debug"})
	require.NoError(t, err)

	config := app.GetConfigWithDefaults()
	config.TCP.Address = "0.0.0.0"
	config.TCP.NumPorts = 4
	f.apply(config)

	assert.Equal(t, 6000, config.TCP.BasePort)
	assert.Equal(t, "0.0.0.0", config.TCP.Address, "unset flags keep the file value")
	assert.Equal(t, 4, config.TCP.NumPorts)
	assert.True(t, config.HTTP.Enabled)
	assert.Equal(t, 6001, config.HTTP.Port)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.False(t, config.NATS.Enabled)
}

func TestFlagsDisableTCP(t *testing.T) {
	f, err := parseFlags([]string{"--enable-tcp-protocol=false", "--enable-nats-protocol", "--nats-url", "nats://example:4222"})
	require.NoError(t, err)

	config := app.GetConfigWithDefaults()
	f.apply(config)
	assert.False(t, config.TCP.Enabled)
	assert.True(t, config.NATS.Enabled)
	assert.Equal(t, "nats://example:4222", config.NATS.URL)
}

func TestFlagsDefaults(t *testing.T) {
	f, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, app.DefaultConfigPath, f.config)
	assert.False(t, f.showVersion)

	_, err = parseFlags([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestFlagsUnixAndDaemon(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		enabled bool
		path    string
		ports   int
		pidFile string
	}{
		{"defaults", nil, false, "/tmp/gstd_unix_socket", 1, ""},
		{"short", []string{"-u", "-b", "/run/gstd/sock", "-c", "3", "-f", "/run/gstd.pid"}, true, "/run/gstd/sock", 3, "/run/gstd.pid"},
		{"long", []string{"--enable-unix-protocol", "--unix-path=/var/sock", "--pid-path", "/var/gstd.pid"}, true, "/var/sock", 1, "/var/gstd.pid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFlags(tt.args)
			require.NoError(t, err)
			config := app.GetConfigWithDefaults()
			f.apply(config)
			assert.Equal(t, tt.enabled, config.Unix.Enabled)
			assert.Equal(t, tt.path, config.Unix.Path)
			assert.Equal(t, tt.ports, config.Unix.NumPorts)
			assert.Equal(t, tt.pidFile, config.Daemon.PidFile)
			assert.NoError(t, config.Validate())
		})
	}

	f, err := parseFlags([]string{"--kill"})
	require.NoError(t, err)
	assert.True(t, f.kill)
}

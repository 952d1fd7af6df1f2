package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when no --config flag is given
const DefaultConfigPath = "configs/default.yaml"

// BusTimeoutEnv overrides pipeline.bus_timeout_default when set
const BusTimeoutEnv = "GSTD_PIPELINE_BUS_TIMEOUT_DEFAULT"

type Config struct {
	TCP       TCPConfig       `yaml:"tcp"`
	Unix      UnixConfig      `yaml:"unix"`
	HTTP      HTTPConfig      `yaml:"http"`
	Websocket WebsocketConfig `yaml:"websocket"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	NATS      NATSConfig      `yaml:"nats"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
	Debug     DebugConfig     `yaml:"debug"`
	Daemon    DaemonConfig    `yaml:"daemon"`
}

type TCPConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Address        string `yaml:"address"`
	BasePort       int    `yaml:"base_port"`
	NumPorts       int    `yaml:"num_ports"`
	MaxConnections int    `yaml:"max_connections"`
}

type UnixConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path is the socket base path, "_<i>" is appended per port
	Path           string `yaml:"path"`
	NumPorts       int    `yaml:"num_ports"`
	MaxConnections int    `yaml:"max_connections"`
}

type HTTPConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Address    string `yaml:"address"`
	Port       int    `yaml:"port"`
	MaxThreads int    `yaml:"max_threads"`
}

type WebsocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type NATSConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Subject string        `yaml:"subject"`
	Name    string        `yaml:"name"`
	Queue   string        `yaml:"queue"`
	Timeout time.Duration `yaml:"timeout"`
}

type PipelineConfig struct {
	// BusTimeoutDefault is in nanoseconds, -1 waits forever
	BusTimeoutDefault int64 `yaml:"bus_timeout_default"`
	// SignalTimeoutDefault is in microseconds, -1 waits forever
	SignalTimeoutDefault int64 `yaml:"signal_timeout_default"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

type DebugConfig struct {
	Enable    bool   `yaml:"enable"`
	Color     bool   `yaml:"color"`
	Threshold string `yaml:"threshold"`
}

type DaemonConfig struct {
	// PidFile receives the process id while the daemon runs, empty disables it
	PidFile string `yaml:"pid_file"`
}

// GetConfigWithDefaults returns default configuration values
func GetConfigWithDefaults() *Config {
	return &Config{
		TCP: TCPConfig{
			Enabled:        true,
			Address:        "127.0.0.1",
			BasePort:       5000,
			NumPorts:       1,
			MaxConnections: -1,
		},
		Unix: UnixConfig{
			Enabled:        false,
			Path:           "/tmp/gstd_unix_socket",
			NumPorts:       1,
			MaxConnections: -1,
		},
		HTTP: HTTPConfig{
			Enabled:    false,
			Address:    "127.0.0.1",
			Port:       5001,
			MaxThreads: -1,
		},
		Websocket: WebsocketConfig{
			Enabled: true,
			Path:    "/ws",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
			Subject: "gstd.cmd",
			Name:    "gstd",
			Queue:   "gstd",
			Timeout: 2 * time.Second,
		},
		Pipeline: PipelineConfig{
			BusTimeoutDefault:    -1,
			SignalTimeoutDefault: -1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Debug: DebugConfig{
			Enable:    false,
			Color:     true,
			Threshold: "0",
		},
	}
}

// LoadConfig loads configuration from the yaml file at path. A missing
// file leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	// 기본 설정값으로 초기화
	config := GetConfigWithDefaults()

	if path == "" {
		path = DefaultConfigPath
	}

	// 파일 존재 확인 - 없으면 기본값 사용
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Info("Config file not found, using default values", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// YAML 파싱 - 기존 기본값 위에 덮어쓰기
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	// 설정 검증
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	v, ok := os.LookupEnv(BusTimeoutEnv)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q (must be an integer in nanoseconds)", BusTimeoutEnv, v)
	}
	c.Pipeline.BusTimeoutDefault = n
	return nil
}

// Validate checks the configuration after flags were applied
func (c *Config) Validate() error {
	return c.validate()
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	// TCP 포트 검증
	if c.TCP.Enabled {
		if c.TCP.NumPorts < 1 {
			return fmt.Errorf("invalid tcp num_ports: %d (must be positive)", c.TCP.NumPorts)
		}
		if c.TCP.BasePort < 0 || c.TCP.BasePort+c.TCP.NumPorts-1 > 65535 {
			return fmt.Errorf("invalid tcp base_port: %d (must be between 0-65535 for all %d ports)", c.TCP.BasePort, c.TCP.NumPorts)
		}
		if c.TCP.MaxConnections < -1 {
			return fmt.Errorf("invalid tcp max_connections: %d (must be -1 or non-negative)", c.TCP.MaxConnections)
		}
	}

	if c.Unix.Enabled {
		if c.Unix.Path == "" {
			return fmt.Errorf("invalid unix path: %q (must not be empty)", c.Unix.Path)
		}
		if c.Unix.NumPorts < 1 {
			return fmt.Errorf("invalid unix num_ports: %d (must be positive)", c.Unix.NumPorts)
		}
		if c.Unix.MaxConnections < -1 {
			return fmt.Errorf("invalid unix max_connections: %d (must be -1 or non-negative)", c.Unix.MaxConnections)
		}
	}

	// HTTP 포트 검증
	if c.HTTP.Enabled {
		if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
			return fmt.Errorf("invalid http port: %d (must be between 0-65535)", c.HTTP.Port)
		}
		if c.HTTP.MaxThreads < -1 || c.HTTP.MaxThreads == 0 {
			return fmt.Errorf("invalid http max_threads: %d (must be -1 or positive)", c.HTTP.MaxThreads)
		}
	}

	if c.Websocket.Enabled && !strings.HasPrefix(c.Websocket.Path, "/") {
		return fmt.Errorf("invalid websocket path: %q (must start with /)", c.Websocket.Path)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics path: %q (must start with /)", c.Metrics.Path)
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return fmt.Errorf("invalid nats url: %q (must not be empty)", c.NATS.URL)
		}
		if c.NATS.Subject == "" {
			return fmt.Errorf("invalid nats subject: %q (must not be empty)", c.NATS.Subject)
		}
	}

	// 타임아웃 검증
	if c.Pipeline.BusTimeoutDefault < -1 {
		return fmt.Errorf("invalid pipeline bus_timeout_default: %d (must be -1 or non-negative)", c.Pipeline.BusTimeoutDefault)
	}
	if c.Pipeline.SignalTimeoutDefault < -1 {
		return fmt.Errorf("invalid pipeline signal_timeout_default: %d (must be -1 or non-negative)", c.Pipeline.SignalTimeoutDefault)
	}

	// 로그 레벨 검증
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, level := range validLevels {
		if strings.ToLower(c.Logging.Level) == level {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %v)", c.Logging.Level, validLevels)
	}

	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.Logging.Format)
	}
	return nil
}

// BusTimeout converts pipeline.bus_timeout_default into a duration
func (c *Config) BusTimeout() time.Duration {
	if c.Pipeline.BusTimeoutDefault < 0 {
		return -1
	}
	return time.Duration(c.Pipeline.BusTimeoutDefault)
}

// GetSlogLevel returns slog.Level from config
func (c *Config) GetSlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo // 기본값
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gstd/internal/api"
	"gstd/internal/ipc"
	"gstd/internal/metrics"
	"gstd/pkg/engine/local"
	"gstd/pkg/natsipc"
	"gstd/pkg/parser"
	"gstd/pkg/pipeline"
	"gstd/pkg/session"
	"gstd/pkg/tcp"
)

// App represents the main application
type App struct {
	config  *Config
	level   *slog.LevelVar
	metrics *metrics.Metrics
	session *session.Session
	parser  *parser.Parser
	ipc     *ipc.Manager
	tcp     *tcp.Server
	unix    *tcp.Server
	http    *api.Server
	pidFile string // set once written
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewApp builds the root session and the enabled IPC servers from config
func NewApp(config *Config) (*App, error) {
	// 설정을 기반으로 로거 초기화
	level := InitLogger(config)

	m := metrics.New()

	opts := pipeline.DefaultOptions()
	opts.BusTimeout = config.BusTimeout()
	opts.SignalTimeout = config.Pipeline.SignalTimeoutDefault
	opts.Hooks = pipeline.Hooks{
		Deleted: m.ForgetPipeline,
		Message: m.ObserveMessage,
	}

	sess, err := session.New(session.Config{
		Engine:         local.New(),
		Pipeline:       opts,
		Stats:          m,
		LogLevel:       level,
		DebugThreshold: config.Debug.Threshold,
		DebugColor:     config.Debug.Color,
		DebugEnable:    config.Debug.Enable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := m.TrackPipelines(sess.Pipelines().Count); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("failed to register pipelines gauge: %w", err)
	}

	p := parser.New(sess, parser.WithObserver(m.ObserveCommand))

	// 취소 가능한 컨텍스트 생성
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		config:  config,
		level:   level,
		metrics: m,
		session: sess,
		parser:  p,
		ipc:     ipc.NewManager(),
		ctx:     ctx,
		cancel:  cancel,
	}
	app.addServers()
	return app, nil
}

func (app *App) addServers() {
	c := app.config
	if c.TCP.Enabled {
		app.tcp = tcp.NewServer(tcp.Config{
			Address:        c.TCP.Address,
			BasePort:       c.TCP.BasePort,
			NumPorts:       c.TCP.NumPorts,
			MaxConnections: c.TCP.MaxConnections,
		}, app.parser, app.metrics)
		app.ipc.Add(app.tcp)
	}
	if c.Unix.Enabled {
		app.unix = tcp.NewServer(tcp.Config{
			Network:        tcp.UnixProtocol,
			Path:           c.Unix.Path,
			NumPorts:       c.Unix.NumPorts,
			MaxConnections: c.Unix.MaxConnections,
		}, app.parser, app.metrics)
		app.ipc.Add(app.unix)
	}
	if c.HTTP.Enabled {
		app.http = api.NewServer(api.Config{
			Address:       c.HTTP.Address,
			Port:          c.HTTP.Port,
			MaxThreads:    c.HTTP.MaxThreads,
			Websocket:     c.Websocket.Enabled,
			WebsocketPath: c.Websocket.Path,
			Metrics:       c.Metrics.Enabled,
			MetricsPath:   c.Metrics.Path,
		}, app.parser, app.metrics)
		app.ipc.Add(app.http)
	}
	if c.NATS.Enabled {
		natsConfig := natsipc.DefaultConfig()
		natsConfig.URL = c.NATS.URL
		natsConfig.Subject = c.NATS.Subject
		natsConfig.Name = c.NATS.Name
		natsConfig.Queue = c.NATS.Queue
		if c.NATS.Timeout > 0 {
			natsConfig.Timeout = c.NATS.Timeout
		}
		app.ipc.Add(natsipc.NewServer(natsConfig, app.parser))
	}
}

// Parser returns the command parser bound to the root session
func (app *App) Parser() *parser.Parser { return app.parser }

// Servers returns the names of the enabled IPC servers
func (app *App) Servers() []string { return app.ipc.Names() }

// Start starts every enabled IPC server and writes the pid file
func (app *App) Start() error {
	slog.Info("Application starting...", "servers", app.ipc.Names())
	if err := app.ipc.Start(); err != nil {
		return err
	}
	if path := app.config.Daemon.PidFile; path != "" {
		if err := WritePidFile(path); err != nil {
			app.ipc.Stop()
			return err
		}
		app.pidFile = path
		slog.Info("Pid file written", "path", path, "pid", os.Getpid())
	}
	return nil
}

// Run starts the application and blocks until a shutdown signal
func (app *App) Run() {
	if err := app.Start(); err != nil {
		slog.Error("Failed to start IPC servers", "err", err)
		app.shutdown()
		os.Exit(1)
	}

	// 시그널 처리
	app.waitForShutdown()
}

// Shutdown asks a running application to stop
func (app *App) Shutdown() {
	app.cancel()
}

// waitForShutdown waits for shutdown signals and performs graceful shutdown
func (app *App) waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down application", "signal", sig)
	case <-app.ctx.Done():
		slog.Info("Context cancelled, shutting down application")
	}

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *App) shutdown() {
	slog.Info("Stopping application...")

	// 컨텍스트 취소
	app.cancel()

	// IPC 서버 종료 후 세션 정리
	app.ipc.Stop()
	if app.pidFile != "" {
		if err := RemovePidFile(app.pidFile); err != nil {
			slog.Warn("Failed to remove pid file", "path", app.pidFile, "err", err)
		}
		app.pidFile = ""
	}
	if err := app.session.Close(); err != nil {
		slog.Warn("Failed to close session", "err", err)
	}

	slog.Info("Application stopped successfully")
}

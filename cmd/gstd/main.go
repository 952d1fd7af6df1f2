package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"gstd/internal/app"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

type flags struct {
	set *pflag.FlagSet

	config      string
	showVersion bool

	tcpEnabled  bool
	tcpAddress  string
	tcpBasePort int
	tcpNumPorts int

	unixEnabled  bool
	unixPath     string
	unixNumPorts int

	httpEnabled bool
	httpAddress string
	httpPort    int

	natsEnabled bool
	natsURL     string

	logLevel string

	pidFile string
	kill    bool
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{set: pflag.NewFlagSet("gstd", pflag.ContinueOnError)}
	fs := f.set

	fs.StringVar(&f.config, "config", app.DefaultConfigPath, "Path to the YAML configuration file")
	fs.BoolVar(&f.showVersion, "version", false, "Print the version and exit")

	fs.BoolVarP(&f.tcpEnabled, "enable-tcp-protocol", "t", true, "Enable the TCP protocol")
	fs.StringVarP(&f.tcpAddress, "tcp-address", "a", "127.0.0.1", "Address the TCP server binds to")
	fs.IntVarP(&f.tcpBasePort, "tcp-base-port", "p", 5000, "First TCP port")
	fs.IntVarP(&f.tcpNumPorts, "tcp-num-ports", "n", 1, "Number of consecutive TCP ports")

	fs.BoolVarP(&f.unixEnabled, "enable-unix-protocol", "u", false, "Enable the Unix domain socket protocol")
	fs.StringVarP(&f.unixPath, "unix-path", "b", "/tmp/gstd_unix_socket", "Unix socket base path, \"_<port>\" is appended per port")
	fs.IntVarP(&f.unixNumPorts, "unix-num-ports", "c", 1, "Number of Unix sockets")

	fs.BoolVarP(&f.httpEnabled, "enable-http-protocol", "e", false, "Enable the HTTP protocol")
	fs.StringVarP(&f.httpAddress, "http-address", "l", "127.0.0.1", "Address the HTTP server binds to")
	fs.IntVarP(&f.httpPort, "http-port", "k", 5001, "HTTP port")

	fs.BoolVar(&f.natsEnabled, "enable-nats-protocol", false, "Enable the NATS request/reply protocol")
	fs.StringVar(&f.natsURL, "nats-url", "nats://127.0.0.1:4222", "NATS server URL")

	fs.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	fs.StringVarP(&f.pidFile, "pid-path", "f", "", "Write the process id to this file while running")
	fs.BoolVar(&f.kill, "kill", false, "Stop the gstd recorded in the pid file and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// apply copies the flags given on the command line over config
func (f *flags) apply(config *app.Config) {
	changed := f.set.Changed
	if changed("enable-tcp-protocol") {
		config.TCP.Enabled = f.tcpEnabled
	}
	if changed("tcp-address") {
		config.TCP.Address = f.tcpAddress
	}
	if changed("tcp-base-port") {
		config.TCP.BasePort = f.tcpBasePort
	}
	if changed("tcp-num-ports") {
		config.TCP.NumPorts = f.tcpNumPorts
	}
	if changed("enable-unix-protocol") {
		config.Unix.Enabled = f.unixEnabled
	}
	if changed("unix-path") {
		config.Unix.Path = f.unixPath
	}
	if changed("unix-num-ports") {
		config.Unix.NumPorts = f.unixNumPorts
	}
	if changed("enable-http-protocol") {
		config.HTTP.Enabled = f.httpEnabled
	}
	if changed("http-address") {
		config.HTTP.Address = f.httpAddress
	}
	if changed("http-port") {
		config.HTTP.Port = f.httpPort
	}
	if changed("enable-nats-protocol") {
		config.NATS.Enabled = f.natsEnabled
	}
	if changed("nats-url") {
		config.NATS.URL = f.natsURL
	}
	if changed("log-level") {
		config.Logging.Level = f.logLevel
	}
	if changed("pid-path") {
		config.Daemon.PidFile = f.pidFile
	}
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if f.showVersion {
		fmt.Println("gstd", version)
		return
	}

	// 설정 로드
	config, err := app.LoadConfig(f.config)
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	f.apply(config)
	if err := config.Validate(); err != nil {
		slog.Error("Invalid command line options", "err", err)
		os.Exit(1)
	}

	if f.kill {
		pid, err := app.Kill(config.Daemon.PidFile)
		if err != nil {
			slog.Error("Failed to kill gstd", "err", err)
			os.Exit(1)
		}
		slog.Info("Sent SIGTERM to gstd", "pid", pid)
		return
	}

	gstd, err := app.NewApp(config)
	if err != nil {
		slog.Error("Failed to create application", "err", err)
		os.Exit(1)
	}
	gstd.Run()
}

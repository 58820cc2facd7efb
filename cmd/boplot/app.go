package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/BOSS-tools/boplot/internal/config"
	"github.com/BOSS-tools/boplot/internal/engine"
	"github.com/BOSS-tools/boplot/internal/influx"
	"github.com/BOSS-tools/boplot/internal/logging"
	intOtel "github.com/BOSS-tools/boplot/internal/otel"
	"github.com/BOSS-tools/boplot/internal/service"
	"github.com/BOSS-tools/boplot/internal/typedata"
)

const appName = "boplot"

// app carries the process-wide wiring shared by every subcommand.
type app struct {
	configDir string
	logLevel  string

	sessionStart time.Time
	configErr    error

	slogManager *logging.SlogManager
	logger      *slog.Logger
	zlog        zerolog.Logger

	logFile       *os.File
	graylogWriter *gelf.Writer
	otelProvider  *intOtel.Provider
	metrics       *influx.Manager

	closers []func() error
}

func newApp() *app {
	return &app{
		sessionStart: time.Now(),
		slogManager:  logging.NewSlogManager(),
		logger:       slog.Default(),
		zlog:         zerolog.Nop(),
	}
}

// loadConfig reads boplot.cfg.json. A missing file is not fatal: defaults
// apply and the failure is logged once logging is up.
func (a *app) loadConfig() {
	if err := config.Load(a.configDir); err != nil {
		config.Defaults()
		a.configErr = err
	}
	if a.logLevel != "" {
		viper.Set("logLevel", a.logLevel)
	}
}

// setupLogging wires slog and zerolog. One-shot commands log to stderr so
// stdout stays machine readable; serve logs to a session file as well.
func (a *app) setupLogging(stderr io.Writer, toFile bool) error {
	level := viper.GetString("logLevel")

	var outputs []logging.Output
	if viper.GetBool("graylog.enabled") {
		w, err := gelf.NewWriter(viper.GetString("graylog.address"))
		if err != nil {
			return fmt.Errorf("graylog writer: %w", err)
		}
		a.graylogWriter = w
		outputs = append(outputs, logging.Output{Name: "graylog", Writer: w})
	}

	var zfile io.Writer
	if toFile {
		f, err := logging.OpenLogFile(viper.GetString("logsDir"), appName, a.sessionStart)
		if err != nil {
			return err
		}
		a.logFile = f
		a.closers = append(a.closers, f.Close)
		zfile = f
		outputs = append(outputs, logging.Output{Name: "file", Writer: f})

		provider, err := intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), f))
		if err != nil {
			return fmt.Errorf("otel provider: %w", err)
		}
		a.otelProvider = provider
	}
	outputs = append(outputs, logging.Output{Name: "stderr", Writer: stderr})

	a.slogManager.Setup(level, a.otelLoggerProvider(), outputs...)
	a.logger = a.slogManager.Logger()
	a.zlog = logging.NewZerolog(level, stderr, zfile, zerologExtra(a.graylogWriter)...)

	if a.configErr != nil {
		a.logger.Warn("Using default configuration", "configDir", a.configDir, "error", a.configErr)
	}
	if a.logFile != nil {
		a.logger.Info("Logging to file", "path", a.logFile.Name())
	}
	if a.otelProvider != nil && a.otelProvider.Enabled() {
		a.logger.Info("OTel provider initialized", "service", a.otelProvider.ServiceName(), "endpoint", config.GetOTelConfig().Endpoint)
	}
	return nil
}

func zerologExtra(w *gelf.Writer) []io.Writer {
	if w == nil {
		return nil
	}
	return []io.Writer{w}
}

func (a *app) otelLoggerProvider() *sdklog.LoggerProvider {
	if a.otelProvider == nil {
		return nil
	}
	return a.otelProvider.LoggerProvider()
}

// loadTable reads the type table named by the typeTable key.
func (a *app) loadTable() (*typedata.Table, error) {
	path := viper.GetString("typeTable")
	table, err := typedata.Load(path)
	if err != nil {
		return nil, fmt.Errorf("type table %s: %w", path, err)
	}
	a.logger.Debug("Type table loaded", "path", path, "types", table.Len())
	return table, nil
}

type serviceOptions struct {
	storage bool
	engine  bool
	metrics bool
}

// newService builds the service with the collaborators a command needs.
func (a *app) newService(ctx context.Context, opts serviceOptions) (*service.Service, error) {
	table, err := a.loadTable()
	if err != nil {
		return nil, err
	}

	deps := service.Dependencies{
		Table:   table,
		Options: config.GetLayoutOptions(),
		Logger:  a.logger,
	}

	if opts.storage {
		backend, err := createStorageBackend(config.GetStorageConfig(), a.zlog)
		if err != nil {
			return nil, err
		}
		if err := backend.Init(); err != nil {
			return nil, fmt.Errorf("init %s storage: %w", config.GetStorageConfig().Type, err)
		}
		a.closers = append(a.closers, backend.Close)
		deps.Storage = backend
		a.logger.Info("Storage backend initialized", "type", config.GetStorageConfig().Type)
	}

	if opts.engine {
		ec := config.GetEngineConfig()
		if ec.URL != "" {
			deps.Engine = engine.New(ec.URL, ec.Timeout)
		}
	}

	if opts.metrics && viper.GetBool("influx.enabled") {
		backupPath := viper.GetString("influx.backupPath")
		if backupPath == "" {
			backupPath = filepath.Join(viper.GetString("logsDir"), "influx_backup.log.gz")
		}
		m := influx.NewManager(a.zlog, backupPath)
		if err := m.Connect(ctx); err != nil {
			a.logger.Warn("InfluxDB metrics disabled", "error", err)
		} else {
			a.closers = append(a.closers, m.Close)
			a.metrics = m
			deps.Metrics = m
		}
	}

	return service.New(deps)
}

// close releases everything opened by the command, newest first.
func (a *app) close() error {
	var errs []error
	if a.otelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.otelProvider.Shutdown(ctx))
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

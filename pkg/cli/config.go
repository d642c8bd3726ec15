package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/getmockd/soapd/pkg/config"
	"github.com/getmockd/soapd/pkg/logging"
	"github.com/getmockd/soapd/pkg/scripted"
	"github.com/getmockd/soapd/pkg/soap"
)

// loadConfig loads the service file, applies SOAPD_* overrides and the
// persistent log flags, then validates.
func loadConfig() (*config.ServiceConfig, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service file %s:\n%w", configPath, err)
	}
	return cfg, nil
}

// newLogger writes to w and, when log.file is set, also appends JSON records
// to that file. The returned func closes the file.
func newLogger(cfg *config.ServiceConfig, w io.Writer) (*slog.Logger, func() error, error) {
	lc := cfg.Logging()
	lc.Output = w

	path := cfg.LogFile()
	if path == "" {
		return logging.New(lc), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	fc := lc
	fc.Format = logging.FormatJSON
	fc.Output = f
	return slog.New(logging.Tee{logging.NewHandler(lc), logging.NewHandler(fc)}), f.Close, nil
}

// buildEngine creates an engine with every configured operation registered.
func buildEngine(cfg *config.ServiceConfig, logger *slog.Logger) (*soap.Engine, error) {
	ops, err := scripted.BuildAll(cfg.Operations, nil)
	if err != nil {
		return nil, err
	}
	e := soap.NewEngine(cfg.EngineOptions(logger, nil))
	if err := e.Registry().Replace(ops); err != nil {
		return nil, err
	}
	return e, nil
}

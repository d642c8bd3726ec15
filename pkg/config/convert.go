package config

import (
	"log/slog"
	"os"

	"github.com/getmockd/soapd/pkg/logging"
	"github.com/getmockd/soapd/pkg/soap"
)

// Logging converts the log section into a logging.Config writing to stderr.
func (c *ServiceConfig) Logging() logging.Config {
	return logging.Config{
		Level:  logging.ParseLevel(c.Log.Level),
		Format: logging.ParseFormat(c.Log.Format),
		Output: os.Stderr,
	}
}

// EngineOptions converts the service section into soap.Options.
func (c *ServiceConfig) EngineOptions(logger *slog.Logger, obs soap.Observer) soap.Options {
	return soap.Options{
		Namespace:   c.Namespace,
		ServiceName: c.Name,
		BaseURI:     c.BaseURI,
		LegacyTypes: c.LegacyTypes,
		MaskErrors:  c.MaskErrors,
		MaxBodySize: c.MaxBodySize,
		Logger:      logger,
		Observer:    obs,
	}
}

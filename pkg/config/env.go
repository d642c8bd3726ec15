package config

import (
	"os"
	"strconv"
)

// Environment variables read by ApplyEnv.
const (
	EnvAddress     = "SOAPD_ADDRESS"
	EnvBaseURI     = "SOAPD_BASE_URI"
	EnvLogLevel    = "SOAPD_LOG_LEVEL"
	EnvLogFormat   = "SOAPD_LOG_FORMAT"
	EnvLogFile     = "SOAPD_LOG_FILE"
	EnvMaxBodySize = "SOAPD_MAX_BODY_SIZE"
)

// ApplyEnv overrides fields from SOAPD_* environment variables. Unset or
// empty variables leave the field alone.
func (c *ServiceConfig) ApplyEnv() {
	if v := os.Getenv(EnvAddress); v != "" {
		c.Address = v
	}
	if v := os.Getenv(EnvBaseURI); v != "" {
		c.BaseURI = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv(EnvMaxBodySize); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxBodySize = n
		}
	}
}

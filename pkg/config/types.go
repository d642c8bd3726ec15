package config

import "path/filepath"

// Defaults applied by Default and by ServiceConfig.applyDefaults.
const (
	DefaultName        = "Service"
	DefaultNamespace   = "server"
	DefaultAddress     = ":8080"
	DefaultPath        = "/"
	DefaultMetricsPath = "/metrics"
	DefaultMaxBodySize = 10 << 20 // 10MB
)

// ServiceConfig is the top-level service file.
type ServiceConfig struct {
	Name        string            `yaml:"name"`
	Namespace   string            `yaml:"namespace"`
	BaseURI     string            `yaml:"baseURI,omitempty"`
	Address     string            `yaml:"address,omitempty"`
	Path        string            `yaml:"path,omitempty"`
	MaxBodySize int64             `yaml:"maxBodySize,omitempty"`
	LegacyTypes bool              `yaml:"legacyTypes,omitempty"`
	MaskErrors  bool              `yaml:"maskErrors,omitempty"`
	Log         LogConfig         `yaml:"log,omitempty"`
	Metrics     MetricsConfig     `yaml:"metrics,omitempty"`
	Operations  []OperationConfig `yaml:"operations,omitempty"`
	Include     []string          `yaml:"include,omitempty"`

	// path is the file the config was loaded from; includes resolve
	// relative to its directory.
	path  string
	files []string
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`

	// File additionally writes JSON records to this path, resolved
	// relative to the service file.
	File string `yaml:"file,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// OperationConfig declares one operation. Outputs are computed by their
// expressions; a Fault, when present and matching, replaces the result.
type OperationConfig struct {
	Name    string         `yaml:"name"`
	Doc     string         `yaml:"doc,omitempty"`
	Inputs  []ParamConfig  `yaml:"inputs,omitempty"`
	Outputs []OutputConfig `yaml:"outputs,omitempty"`
	Fault   *FaultConfig   `yaml:"fault,omitempty"`
}

// ParamConfig is a named, typed input. Type is an XML Schema type name
// with or without the "xsd:" prefix; empty means string.
type ParamConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
}

// OutputConfig is a typed output computed by an expression over the inputs.
type OutputConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
	Expr string `yaml:"expr"`
}

// FaultConfig raises a fault instead of producing outputs. When is an
// optional boolean expression; an empty When always faults.
type FaultConfig struct {
	When   string `yaml:"when,omitempty"`
	Code   string `yaml:"code,omitempty"`
	String string `yaml:"string"`
	Actor  string `yaml:"actor,omitempty"`
	Detail string `yaml:"detail,omitempty"`
}

// operationsFile is the shape of an included file.
type operationsFile struct {
	Operations []OperationConfig `yaml:"operations"`
}

// Default returns a config with every default applied and no operations.
func Default() *ServiceConfig {
	cfg := &ServiceConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *ServiceConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// LogFile returns the resolved log.file path, or "" when unset.
func (c *ServiceConfig) LogFile() string {
	if c.Log.File == "" {
		return ""
	}
	if c.path == "" {
		return c.Log.File
	}
	return ResolvePath(filepath.Dir(c.path), c.Log.File)
}

// Source returns the file the config was loaded from, or "" for parsed input.
func (c *ServiceConfig) Source() string { return c.path }

// WithOperationsFrom returns a copy of c whose operations and includes come
// from next. Endpoint settings are kept from c.
func (c *ServiceConfig) WithOperationsFrom(next *ServiceConfig) *ServiceConfig {
	out := *c
	out.Operations = next.Operations
	out.Include = next.Include
	out.files = next.files
	return &out
}

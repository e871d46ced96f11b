// Package config provides configuration management for actorbench
package config

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvProduction:
		return true
	default:
		return false
	}
}

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelFatal:
		return true
	default:
		return false
	}
}

// Config represents the complete actorbench configuration
type Config struct {
	App        AppConfig         `yaml:"app" json:"app"`
	Log        LogConfig         `yaml:"log" json:"log"`
	Runtime    RuntimeConfig     `yaml:"runtime" json:"runtime"`
	Metrics    MetricsConfig     `yaml:"metrics" json:"metrics"`
	Benchmarks []BenchmarkConfig `yaml:"benchmarks,omitempty" json:"benchmarks,omitempty"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string      `yaml:"name" json:"name"`
	Environment Environment `yaml:"environment" json:"environment"`
	Debug       bool        `yaml:"debug" json:"debug"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level LogLevel `yaml:"level" json:"level"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`

	// Output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	Color bool `yaml:"color" json:"color"`
}

// RuntimeConfig configures the actor runtimes and the suite runner
type RuntimeConfig struct {
	// Dispatch goroutines per runtime; 0 means GOMAXPROCS
	Workers int `yaml:"workers" json:"workers"`

	// Messages handled per actor turn
	Throughput int `yaml:"throughput" json:"throughput"`

	// Benchmarks running at the same time
	Parallelism int `yaml:"parallelism" json:"parallelism"`

	// Upper bound for one benchmark run; 0 disables it
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// MetricsConfig configures the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// BenchmarkConfig selects one workload and its parameters. Args uses the
// underscore form ("_20_1000000_") or space separated integers; empty Args
// selects the workload defaults.
type BenchmarkConfig struct {
	Name string `yaml:"name" json:"name"`
	Args string `yaml:"args,omitempty" json:"args,omitempty"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "actorbench",
			Environment: EnvDevelopment,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: "text",
			Output: "stderr",
		},
		Runtime: RuntimeConfig{
			Throughput:  64,
			Parallelism: 1,
		},
		Metrics: MetricsConfig{
			Address: "127.0.0.1:9090",
			Path:    "/metrics",
		},
	}
}

// Validate validates the configuration and reports every problem found
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.App.Name == "" {
		result = multierror.Append(result, ErrInvalidAppName)
	}
	if !c.App.Environment.IsValid() {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidEnvironment, "%q", c.App.Environment))
	}

	if !c.Log.Level.IsValid() {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidLogLevel, "%q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidLogFormat, "%q", c.Log.Format))
	}

	if c.Runtime.Workers < 0 {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidWorkers, "%d", c.Runtime.Workers))
	}
	if c.Runtime.Throughput < 0 {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidThroughput, "%d", c.Runtime.Throughput))
	}
	if c.Runtime.Parallelism < 0 {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidParallelism, "%d", c.Runtime.Parallelism))
	}
	if c.Runtime.Timeout < 0 {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidTimeout, "%s", c.Runtime.Timeout))
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		result = multierror.Append(result, ErrInvalidMetricsAddress)
	}

	for i, b := range c.Benchmarks {
		if b.Name == "" {
			result = multierror.Append(result, errors.Wrapf(ErrInvalidBenchmark, "benchmarks[%d] has no name", i))
		}
	}

	return result.ErrorOrNil()
}

// IsDebugEnabled returns true if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.Log.Level == LogLevelDebug || c.Log.Level == LogLevelTrace
}

// LogSettings returns the log configuration with the level raised to debug
// when app.debug is set.
func (c *Config) LogSettings() LogConfig {
	settings := c.Log
	if c.IsDebugEnabled() && settings.Level != LogLevelTrace {
		settings.Level = LogLevelDebug
	}
	return settings
}

package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// FormatOf determines the format from the file extension
func FormatOf(filename string) (ConfigFormat, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}
}

// Loader handles configuration loading from various sources
type Loader struct {
	// Configuration search paths
	searchPaths []string

	// Environment variable prefix
	envPrefix string

	// Environment lookup, os.LookupEnv unless replaced
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	paths := []string{".", "./config", "./configs", "/etc/actorbench"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".actorbench"))
	}
	return &Loader{
		searchPaths: paths,
		envPrefix:   "ACTORBENCH",
		lookupEnv:   os.LookupEnv,
	}
}

// SetSearchPaths sets the configuration file search paths
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvLookup replaces the environment lookup function
func (l *Loader) SetEnvLookup(lookup func(string) (string, bool)) *Loader {
	l.lookupEnv = lookup
	return l
}

// Load loads configuration from the specified file, or from the first file
// found in the search paths when filename is empty
func (l *Loader) Load(filename string) (*Config, error) {
	if filename == "" {
		return l.AutoLoad()
	}
	return l.LoadFromFile(filename)
}

// LoadFromFile loads, merges, overrides and validates one file
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", filename)
	}
	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from file %s", filename)
	}
	return l.finish(l.mergeConfig(DefaultConfig(), config))
}

// LoadFromReader loads configuration from an io.Reader
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read configuration data")
	}
	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}
	return l.finish(l.mergeConfig(DefaultConfig(), config))
}

// AutoLoad discovers and loads configuration; defaults are used when no file
// exists
func (l *Loader) AutoLoad() (*Config, error) {
	configFile, err := l.findConfigFile()
	if errors.Is(err, ErrConfigFileNotFound) {
		return l.finish(DefaultConfig())
	}
	if err != nil {
		return nil, err
	}
	return l.LoadFromFile(configFile)
}

// finish applies environment overrides and validates
func (l *Loader) finish(config *Config) (*Config, error) {
	if err := l.loadFromEnv(config); err != nil {
		return nil, errors.Wrap(err, "failed to load config from environment")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// findConfigFile searches for configuration files in search paths
func (l *Loader) findConfigFile() (string, error) {
	filenames := []string{
		"actorbench.yaml", "actorbench.yml",
		"config.yaml", "config.yml",
		"actorbench.json", "config.json",
	}

	for _, searchPath := range l.searchPaths {
		for _, filename := range filenames {
			fullPath := filepath.Join(searchPath, filename)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath, nil
			}
		}
	}

	return "", ErrConfigFileNotFound
}

// parseConfig parses configuration data based on format
func (l *Loader) parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := &Config{}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(ErrConfigParseError, "YAML: %v", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, errors.Wrapf(ErrConfigParseError, "JSON: %v", err)
		}
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}

	return config, nil
}

// loadFromEnv loads configuration overrides from environment variables
func (l *Loader) loadFromEnv(config *Config) error {
	env := func(key string) (string, bool) {
		val, ok := l.lookupEnv(l.envPrefix + "_" + key)
		return val, ok && val != ""
	}
	var err error
	intVar := func(key string, dst *int) {
		if val, ok := env(key); ok && err == nil {
			n, perr := strconv.Atoi(val)
			if perr != nil {
				err = errors.Wrapf(ErrEnvironmentVarError, "%s_%s=%q", l.envPrefix, key, val)
				return
			}
			*dst = n
		}
	}
	boolVar := func(key string, dst *bool) {
		if val, ok := env(key); ok && err == nil {
			b, perr := strconv.ParseBool(val)
			if perr != nil {
				err = errors.Wrapf(ErrEnvironmentVarError, "%s_%s=%q", l.envPrefix, key, val)
				return
			}
			*dst = b
		}
	}

	// App configuration
	if val, ok := env("APP_NAME"); ok {
		config.App.Name = val
	}
	if val, ok := env("APP_ENVIRONMENT"); ok {
		config.App.Environment = Environment(val)
	}
	boolVar("APP_DEBUG", &config.App.Debug)

	// Log configuration
	if val, ok := env("LOG_LEVEL"); ok {
		config.Log.Level = LogLevel(strings.ToLower(val))
	}
	if val, ok := env("LOG_FORMAT"); ok {
		config.Log.Format = val
	}
	if val, ok := env("LOG_OUTPUT"); ok {
		config.Log.Output = val
	}
	boolVar("LOG_COLOR", &config.Log.Color)

	// Runtime configuration
	intVar("RUNTIME_WORKERS", &config.Runtime.Workers)
	intVar("RUNTIME_THROUGHPUT", &config.Runtime.Throughput)
	intVar("RUNTIME_PARALLELISM", &config.Runtime.Parallelism)
	if val, ok := env("RUNTIME_TIMEOUT"); ok && err == nil {
		d, perr := time.ParseDuration(val)
		if perr != nil {
			err = errors.Wrapf(ErrEnvironmentVarError, "%s_RUNTIME_TIMEOUT=%q", l.envPrefix, val)
		} else {
			config.Runtime.Timeout = d
		}
	}

	// Metrics configuration
	boolVar("METRICS_ENABLED", &config.Metrics.Enabled)
	if val, ok := env("METRICS_ADDRESS"); ok {
		config.Metrics.Address = val
	}

	return err
}

// mergeConfig merges user config with default config
func (l *Loader) mergeConfig(defaultConfig, userConfig *Config) *Config {
	merged := *defaultConfig

	// App config
	if userConfig.App.Name != "" {
		merged.App.Name = userConfig.App.Name
	}
	if userConfig.App.Environment != "" {
		merged.App.Environment = userConfig.App.Environment
	}
	merged.App.Debug = merged.App.Debug || userConfig.App.Debug

	// Log config
	if userConfig.Log.Level != "" {
		merged.Log.Level = userConfig.Log.Level
	}
	if userConfig.Log.Format != "" {
		merged.Log.Format = userConfig.Log.Format
	}
	if userConfig.Log.Output != "" {
		merged.Log.Output = userConfig.Log.Output
	}
	merged.Log.Color = merged.Log.Color || userConfig.Log.Color

	// Runtime config
	if userConfig.Runtime.Workers != 0 {
		merged.Runtime.Workers = userConfig.Runtime.Workers
	}
	if userConfig.Runtime.Throughput != 0 {
		merged.Runtime.Throughput = userConfig.Runtime.Throughput
	}
	if userConfig.Runtime.Parallelism != 0 {
		merged.Runtime.Parallelism = userConfig.Runtime.Parallelism
	}
	if userConfig.Runtime.Timeout != 0 {
		merged.Runtime.Timeout = userConfig.Runtime.Timeout
	}

	// Metrics config
	merged.Metrics.Enabled = merged.Metrics.Enabled || userConfig.Metrics.Enabled
	if userConfig.Metrics.Address != "" {
		merged.Metrics.Address = userConfig.Metrics.Address
	}
	if userConfig.Metrics.Path != "" {
		merged.Metrics.Path = userConfig.Metrics.Path
	}

	// Benchmarks replace the default list as a whole
	if len(userConfig.Benchmarks) > 0 {
		merged.Benchmarks = userConfig.Benchmarks
	}

	return &merged
}

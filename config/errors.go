package config

import "github.com/pkg/errors"

// Configuration validation errors
var (
	ErrInvalidAppName        = errors.New("invalid application name")
	ErrInvalidEnvironment    = errors.New("invalid environment")
	ErrInvalidLogLevel       = errors.New("invalid log level")
	ErrInvalidLogFormat      = errors.New("invalid log format")
	ErrInvalidWorkers        = errors.New("invalid worker count")
	ErrInvalidThroughput     = errors.New("invalid throughput")
	ErrInvalidParallelism    = errors.New("invalid parallelism")
	ErrInvalidTimeout        = errors.New("invalid run timeout")
	ErrInvalidMetricsAddress = errors.New("invalid metrics address")
	ErrInvalidBenchmark      = errors.New("invalid benchmark entry")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound  = errors.New("configuration file not found")
	ErrConfigParseError    = errors.New("configuration parse error")
	ErrEnvironmentVarError = errors.New("environment variable error")
	ErrUnsupportedFormat   = errors.New("unsupported configuration format")
)

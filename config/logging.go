package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SetLogrus applies c to the standard logrus logger. The returned closer
// releases the log file, if any.
func SetLogrus(c LogConfig) (io.Closer, error) {
	return ApplyLogrus(logrus.StandardLogger(), c)
}

// ApplyLogrus configures logger according to c.
func ApplyLogrus(logger *logrus.Logger, c LogConfig) (io.Closer, error) {
	level, err := logrus.ParseLevel(string(c.Level))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidLogLevel, "%q", c.Level)
	}

	var out io.Writer
	closer := io.Closer(nopCloser{})
	switch c.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(c.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "opening log file %s", c.Output)
		}
		out, closer = f, f
	}

	logger.SetLevel(level)
	logger.SetOutput(out)
	switch c.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   c.Color,
			DisableColors: !c.Color,
		})
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

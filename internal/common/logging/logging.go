package logging

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/promrus"
)

type Config struct {
	// One of trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Either text or json.
	Format string `mapstructure:"format"`
}

// ConfigureLogging sets up the global logrus logger with defaults suitable until configuration
// has been loaded.
func ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

// ApplyConfig reconfigures the global logger and installs a hook exporting log line counts to
// Prometheus. It must only be called once per process.
func ApplyConfig(config Config) error {
	level, err := log.ParseLevel(defaultIfEmpty(config.Level, "info"))
	if err != nil {
		return errors.WithMessagef(err, "invalid log level %q", config.Level)
	}
	log.SetLevel(level)

	switch strings.ToLower(defaultIfEmpty(config.Format, "text")) {
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Errorf("invalid log format %q; must be one of text, json", config.Format)
	}

	hook, err := promrus.NewPrometheusHook()
	if err != nil {
		return errors.WithMessage(err, "error registering log metrics hook")
	}
	log.AddHook(hook)
	return nil
}

func defaultIfEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

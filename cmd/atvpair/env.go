package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pion/logging"

	"github.com/backkem/mediapair/pkg/storage"
)

func parseLogLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(s) {
	case "trace":
		return logging.LogLevelTrace, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "warn", "":
		return logging.LogLevelWarn, nil
	case "error":
		return logging.LogLevelError, nil
	case "disabled":
		return logging.LogLevelDisabled, nil
	}
	return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", s)
}

func newLoggerFactory(level string, w io.Writer) (*logging.DefaultLoggerFactory, error) {
	lvl, err := parseLogLevel(level)
	if err != nil {
		return nil, err
	}
	lf := logging.NewDefaultLoggerFactory()
	lf.Writer = w
	lf.DefaultLogLevel = lvl
	return lf, nil
}

// env is what every command needs: the merged configuration and a logger
// factory.
type env struct {
	config  Config
	loggers logging.LoggerFactory
}

func loadEnv() (*env, error) {
	cfg, err := LoadConfig(optionsData.Config)
	if err != nil {
		return nil, err
	}
	if optionsData.LogLevel != "" {
		cfg.LogLevel = optionsData.LogLevel
	}
	if optionsData.Storage != "" {
		cfg.StoragePath = optionsData.Storage
	}

	lf, err := newLoggerFactory(cfg.LogLevel, Stderr)
	if err != nil {
		return nil, err
	}
	return &env{config: cfg, loggers: lf}, nil
}

func (e *env) openStore() (*storage.BoltStore, error) {
	return storage.OpenBolt(storage.BoltConfig{
		Path:          e.config.StoragePath,
		LoggerFactory: e.loggers,
	})
}

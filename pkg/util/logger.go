package util

import (
	"fmt"
	"io"
	"os"

	"github.com/mpapenbr/pipeflow/log"
	"github.com/mpapenbr/pipeflow/pkg/config"
)

// SetupLogger creates the process logger from the command line args and makes
// it the package default. A log config file takes precedence over level and format.
func SetupLogger(cfg *config.CliArgs) *log.Logger {
	var logger *log.Logger
	if cfg.LogConfig != "" {
		l, err := loggerFromConfig(cfg.LogConfig)
		if err == nil {
			log.ResetDefault(l)
			return l
		}
		fmt.Fprintf(os.Stderr, "Could not use log config %s: %v\n", cfg.LogConfig, err)
	}
	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not open log file %s: %v\n", cfg.LogFile, err)
		} else {
			w = f
		}
	}
	switch cfg.LogFormat {
	case "json":
		logger = log.New(
			w,
			parseLogLevel(cfg.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			w,
			parseLogLevel(cfg.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}

	log.ResetDefault(logger)
	return logger
}

func loggerFromConfig(filename string) (*log.Logger, error) {
	logCfg, err := log.LoadConfig(filename)
	if err != nil {
		return nil, err
	}
	return log.NewFromConfig(logCfg, log.WithCaller(true), log.AddCallerSkip(1))
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// Package logging builds the logrus logger shared by borderless commands.
//
// Console output always goes to the provided writer (stderr in the CLI) so that
// stdout stays reserved for command results.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02 15:04:05"

// Config controls log level and optional rotating file output.
type Config struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputFile string `yaml:"outputFile"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// New returns a logger writing to console and, when configured, to a rotated file.
// The returned close function releases the file handle.
func New(cfg Config, console io.Writer) (*logrus.Logger, func() error, error) {
	logger := logrus.New()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	default:
		return nil, nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	if console == nil {
		console = os.Stderr
	}
	closeFn := func() error { return nil }
	writers := []io.Writer{console}

	if path := strings.TrimSpace(cfg.OutputFile); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		fileWriter := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, fileWriter)
		closeFn = fileWriter.Close
	}

	logger.SetOutput(io.MultiWriter(writers...))
	return logger, closeFn, nil
}

// ParseLevel maps a config level to a logrus level, defaulting to info.
func ParseLevel(raw string) (logrus.Level, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(trimmed)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// Discard returns a logger that drops every entry.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

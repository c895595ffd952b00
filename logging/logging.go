// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/warp/timesheet/config"
)

// Init builds a JSON logger writing to stdout and/or a rotating file,
// installs it as the slog default and returns it.
func Init(cfg config.LogConfig) *slog.Logger {
	logger := New(cfg, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("logger initialized", "level", cfg.Level, "file", cfg.File)
	return logger
}

// New builds the logger without installing it. console is used when
// cfg.Console is set, or when no file is configured.
func New(cfg config.LogConfig, console io.Writer) *slog.Logger {
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, console)
	}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
		})
	}
	if len(writers) == 0 {
		writers = append(writers, console)
	}

	h := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	return slog.New(h)
}

// Discard is a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

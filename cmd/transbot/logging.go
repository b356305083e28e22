package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"transbot/internal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxSizeMB  = 32
	logFileMaxBackups = 5
)

// newLogger builds the process logger. With general.logFile set, output is
// also written to a size-rotated file; the returned func closes it.
func newLogger(cfg config.GeneralConfig, console io.Writer) (*slog.Logger, func(), error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	out := console
	closeFn := func() {}
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
		}
		out = io.MultiWriter(console, rotator)
		closeFn = func() { _ = rotator.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h), closeFn, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

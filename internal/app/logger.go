package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/link-shortener/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "link-shortener"

// newLogger builds the service logger. When a log file is configured the
// output is also written there and rotated. The returned closer releases
// the file.
func newLogger(env string, cfg config.Log) (*httplog.Logger, io.Closer, error) {
	const op = "app.newLogger"

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("%s: invalid log level %q: %w", op, cfg.Level, err)
	}

	var (
		w      io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, rotator)
		closer = rotator
	}

	logger := httplog.NewLogger(serviceName, httplog.Options{
		LogLevel:         level,
		JSON:             cfg.JSON,
		Concise:          !cfg.JSON,
		RequestHeaders:   env != config.EnvProd,
		MessageFieldName: "message",
		Tags: map[string]string{
			"env": env,
		},
		QuietDownRoutes: []string{"/api/v1/ping", "/metrics"},
		Writer:          w,
	})

	return logger, closer, nil
}

// Package observability builds the structured logger shared by the tools.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/lootweight/internal/config"
)

// NewLogger creates a structured logger that writes to stderr, so command
// results on stdout stay machine readable.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger tagged with component, or a non-nil error.
func NewLogger(cfg config.LoggingConfig, component string) (*zap.Logger, error) {
	return NewLoggerTo(cfg, component, zapcore.Lock(os.Stderr))
}

// NewLoggerTo is NewLogger with an explicit sink. The core is unsampled:
// per-draw debug records must not be dropped.
func NewLoggerTo(cfg config.LoggingConfig, component string, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var enc zapcore.Encoder
	var opts []zap.Option
	switch cfg.Format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	case "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewConsoleEncoder(ec)
		opts = append(opts, zap.Development())
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	opts = append(opts, zap.AddCaller(), zap.ErrorOutput(sink))

	logger := zap.New(zapcore.NewCore(enc, sink, level), opts...)
	if component != "" {
		logger = logger.With(zap.String("component", component))
	}
	return logger, nil
}

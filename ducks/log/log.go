// Package log carries a fire-and-forget structured logger in a context.Context.
package log

import (
	"context"
	"fmt"

	"github.com/on-the-ground/reducks_go/ducks/internal/handlers"
	"go.uber.org/zap"
)

// Level defines the severity level for log messages.
type Level string

const (
	// LevelDebug is used for debugging messages with detailed internal information.
	LevelDebug Level = "debug"

	// LevelInfo is used for general informational messages.
	LevelInfo Level = "info"

	// LevelWarn is used for potentially harmful situations.
	LevelWarn Level = "warn"

	// LevelError is used for error events that might still allow the application to continue running.
	LevelError Level = "error"
)

// Payload is one log entry.
type Payload struct {
	Level   Level
	Message string
	Fields  map[string]any
}

type handlerKey struct{}

// WithZapHandler installs a handler writing entries to logger from a single worker goroutine.
// Entries are queued with room for bufferSize pending writes.
// The teardown function flushes pending entries, syncs the logger and returns the parent context.
func WithZapHandler(
	ctx context.Context,
	bufferSize int,
	logger *zap.Logger,
) (context.Context, func() context.Context) {
	parent := ctx
	queue := handlers.NewSingleQueue(ctx, bufferSize, func(_ context.Context, p Payload) {
		write(logger, p)
	})
	return context.WithValue(ctx, handlerKey{}, queue), func() context.Context {
		queue.Close()
		if err := logger.Sync(); err != nil {
			logger.Debug("failed to sync logger", zap.Error(err))
		}
		return parent
	}
}

// Effect logs through the handler installed in ctx. Without a handler it does nothing.
func Effect(ctx context.Context, level Level, msg string, fields map[string]any) {
	queue, ok := ctx.Value(handlerKey{}).(*handlers.Queue[Payload])
	if !ok {
		return
	}
	queue.Send(context.WithoutCancel(ctx), Payload{Level: level, Message: msg, Fields: fields})
}

// NewZapLogger builds a production JSON logger at the given level.
func NewZapLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

func write(logger *zap.Logger, p Payload) {
	fields := make([]zap.Field, 0, len(p.Fields))
	for k, v := range p.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	switch p.Level {
	case LevelDebug:
		logger.Debug(p.Message, fields...)
	case LevelWarn:
		logger.Warn(p.Message, fields...)
	case LevelError:
		logger.Error(p.Message, fields...)
	default:
		logger.Info(p.Message, fields...)
	}
}

// Package logsink adapts nctx log events to structured loggers.
package logsink

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/zap"

	nctx "github.com/goliatone/go-nctx"
)

// Slog writes events to logger. Failed evaluations log at warn, skipped steps
// at debug and everything else at info.
func Slog(logger *slog.Logger) nctx.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return nctx.LoggerFunc(func(event nctx.LogEvent) {
		attrs := []slog.Attr{slog.String("context", event.Context)}
		if event.Registry != "" {
			attrs = append(attrs, slog.String("registry_id", event.Registry))
		}
		if event.Parent != "" {
			attrs = append(attrs, slog.String("parent_id", event.Parent))
		}
		if event.Ref != nil {
			attrs = append(attrs, slog.String("ref", fmt.Sprint(event.Ref)))
		}
		if event.Deep {
			attrs = append(attrs, slog.Bool("deep", true))
		}
		if event.Joined {
			attrs = append(attrs, slog.Bool("joined", true))
		}
		if event.Skipped {
			attrs = append(attrs, slog.Bool("skipped", true))
		}
		if event.Engine != "" {
			attrs = append(attrs,
				slog.String("engine", event.Engine),
				slog.String("expr", event.Expr),
				slog.Duration("duration", event.Duration),
			)
		}
		if event.Err != nil {
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		logger.LogAttrs(context.Background(), slogLevel(event), "nctx."+event.Op, attrs...)
	})
}

func slogLevel(event nctx.LogEvent) slog.Level {
	switch {
	case event.Err != nil:
		return slog.LevelWarn
	case event.Skipped:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Zap writes events to logger using the same levels as Slog.
func Zap(logger *zap.Logger) nctx.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return nctx.LoggerFunc(func(event nctx.LogEvent) {
		fields := []zap.Field{zap.String("context", event.Context)}
		if event.Registry != "" {
			fields = append(fields, zap.String("registry_id", event.Registry))
		}
		if event.Parent != "" {
			fields = append(fields, zap.String("parent_id", event.Parent))
		}
		if event.Ref != nil {
			fields = append(fields, zap.Any("ref", event.Ref))
		}
		if event.Deep {
			fields = append(fields, zap.Bool("deep", true))
		}
		if event.Joined {
			fields = append(fields, zap.Bool("joined", true))
		}
		if event.Skipped {
			fields = append(fields, zap.Bool("skipped", true))
		}
		if event.Engine != "" {
			fields = append(fields,
				zap.String("engine", event.Engine),
				zap.String("expr", event.Expr),
				zap.Duration("duration", event.Duration),
			)
		}
		msg := "nctx." + event.Op
		switch {
		case event.Err != nil:
			logger.Warn(msg, append(fields, zap.Error(event.Err))...)
		case event.Skipped:
			logger.Debug(msg, fields...)
		default:
			logger.Info(msg, fields...)
		}
	})
}

// Package log exposes structured logging to effect code through the service
// map: a zap logger is provided as a service and the Debug/Info/Warn/Error
// effects write through it. Without a provided logger the effects are
// no-ops, so library code can log unconditionally.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/LuxXx/effect"
	"github.com/LuxXx/effect/servicemap"
)

// Tag is the service key the logging effects read their logger from.
var Tag = servicemap.NewTag[*zap.Logger]("effect.logger")

// WithLogger runs self with logger bound as the logging service.
func WithLogger[A any](self effect.Effect[A], logger *zap.Logger) effect.Effect[A] {
	return effect.ProvideService(self, Tag, logger)
}

// Debug logs at debug level through the provided logger.
func Debug(msg string, fields ...zap.Field) effect.Effect[effect.Void] {
	return logAt(zapcore.DebugLevel, msg, fields)
}

// Info logs at info level through the provided logger.
func Info(msg string, fields ...zap.Field) effect.Effect[effect.Void] {
	return logAt(zapcore.InfoLevel, msg, fields)
}

// Warn logs at warn level through the provided logger.
func Warn(msg string, fields ...zap.Field) effect.Effect[effect.Void] {
	return logAt(zapcore.WarnLevel, msg, fields)
}

// Error logs at error level through the provided logger.
func Error(msg string, fields ...zap.Field) effect.Effect[effect.Void] {
	return logAt(zapcore.ErrorLevel, msg, fields)
}

func logAt(level zapcore.Level, msg string, fields []zap.Field) effect.Effect[effect.Void] {
	return effect.FlatMap(
		effect.ServiceOrElse(Tag, zap.NewNop),
		func(logger *zap.Logger) effect.Effect[effect.Void] {
			return effect.Sync(func() effect.Void {
				logger.Log(level, msg, fields...)
				return effect.Void{}
			})
		},
	)
}

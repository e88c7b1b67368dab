// Package log provides structured logging stamped with pool identity.
//
// Two logger variants are available:
//   - Logger: Non-sugared zap.Logger for core runtime (high performance, structured fields)
//   - SugaredLogger: Printf-style logging for CLI/debug surfaces (convenience over performance)
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/justapithecus/chunkstream/types"
)

// Logger provides structured logging with pool identity fields attached.
//
// Use this for core runtime paths where performance matters.
// For CLI/debug surfaces, use Sugar() to get a SugaredLogger.
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger provides printf-style logging for CLI and debug surfaces.
// Wraps zap.SugaredLogger with pool identity fields.
//
// Use this for CLI output, debug logging, and surfaces where convenience
// matters more than performance.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger stamped with the pool's identity.
// Output defaults to os.Stderr.
func NewLogger(meta *types.LoaderMeta) *Logger {
	return newLoggerWithWriter(meta, os.Stderr)
}

// WithOutput returns a new logger with a different output writer.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	// Clone with new core pointing to new writer
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return &Logger{zap: l.zap.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))}
}

// newLoggerWithWriter creates a logger writing to the specified writer.
func newLoggerWithWriter(meta *types.LoaderMeta, w io.Writer) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)

	contextFields := []zap.Field{}
	if meta != nil {
		contextFields = append(contextFields,
			zap.String("pool_id", meta.PoolID),
			zap.String("source", meta.Source),
		)
	}

	zapLogger := zap.New(core).With(contextFields...)
	return &Logger{zap: zapLogger}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sugar returns a SugaredLogger for printf-style logging.
// Use for CLI/debug surfaces where convenience matters more than performance.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) {
	s.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}

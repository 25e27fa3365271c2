// Package logger wraps zap behind the small leveled interface the rest
// of the codebase logs through.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the key-value logging interface used throughout. Keys and
// values alternate in kv, SugaredLogger style.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)

	// With returns a child logger that carries the given key-value
	// pairs on every entry.
	With(kv ...any) Logger

	Sync() error
}

// Options configure New. The zero value logs INFO and above to stderr
// as JSON.
type Options struct {
	Level      string // debug, info, warn or error; empty means info
	File       string // when set, output also rotates through this file
	MaxSizeMB  int    // rotate after this many megabytes
	MaxBackups int    // rotated files to keep
	MaxAgeDays int    // days to keep rotated files
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.sugar.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, kv...) }

func (l *zapLogger) With(kv ...any) Logger {
	return &zapLogger{sugar: l.sugar.With(kv...)}
}

func (l *zapLogger) Sync() error { return l.sugar.Sync() }

// New builds a production logger: JSON encoding, ISO8601 timestamps,
// stderr plus an optional rotating file.
func New(opts Options) (Logger, error) {
	lvl := zapcore.InfoLevel
	if opts.Level != "" {
		var err error
		lvl, err = zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if opts.File != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    intOr(opts.MaxSizeMB, 50),
			MaxBackups: intOr(opts.MaxBackups, 5),
			MaxAge:     intOr(opts.MaxAgeDays, 14),
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), lvl)
	return &zapLogger{sugar: zap.New(core).Sugar()}, nil
}

// NewNop returns a logger that discards everything. Tests use it.
func NewNop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

func intOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

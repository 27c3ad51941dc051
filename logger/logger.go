// Package logger builds the zap loggers used across entitycore.
//
// Store and manager constructors accept a *zap.SugaredLogger; nil means
// silent operation, so library consumers are never forced to configure
// logging.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production logger at the given level. Unrecognized level
// text falls back to info.
func New(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return z.Sugar(), nil
}

// NewDevelopment builds a console logger for local runs and tests.
func NewDevelopment() *zap.SugaredLogger {
	z, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return z.Sugar()
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the log file created inside a session directory.
const FileName = "gatesearch.log"

// New builds a logger that writes human-readable lines to stderr and JSON
// lines to dir/gatesearch.log so failed sweeps can be inspected afterwards.
// An empty dir logs to the console only.
func New(dir string, verbose bool) (*zap.Logger, error) {
	return build(dir, verbose, true)
}

// NewFileOnly is New without the console core, for when a TUI owns the
// terminal. An empty dir yields a no-op logger.
func NewFileOnly(dir string, verbose bool) (*zap.Logger, error) {
	if dir == "" {
		return zap.NewNop(), nil
	}
	return build(dir, verbose, false)
}

func build(dir string, verbose, console bool) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	var cores []zapcore.Core
	if console {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level))
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: ensure log dir: %w", err)
		}
		path := filepath.Join(dir, FileName)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.RFC3339TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(f), level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

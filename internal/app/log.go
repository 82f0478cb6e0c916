package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"albumd/internal/album"
)

// LogFileName is the JSON log written under the configured log directory.
const LogFileName = "albumd.log"

// newLogger creates a zap logger that writes JSON lines to logDir/albumd.log
// and human-readable lines to console, both at level.
// It returns the logger, the open log file (for cleanup), and any error.
func newLogger(logDir, level string, console io.Writer) (*zap.Logger, *os.File, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level: %w", err)
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, LogFileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	fileConfig := zap.NewProductionEncoderConfig()
	fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleConfig := zap.NewProductionEncoderConfig()
	consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	atom := zap.NewAtomicLevelAt(lvl)
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(f), atom),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(zapcore.AddSync(console)), atom),
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), f, nil
}

// zapAdapter wraps a sugared zap logger to satisfy album.Logger.
type zapAdapter struct {
	s *zap.SugaredLogger
}

var _ album.Logger = (*zapAdapter)(nil)

// NewLogger adapts l to album.Logger. The caller frame is skipped so log
// lines point at the code that logged, not at the adapter.
func NewLogger(l *zap.Logger) album.Logger {
	return &zapAdapter{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (a *zapAdapter) Debug(msg string, args ...any) { a.s.Debugw(msg, args...) }
func (a *zapAdapter) Info(msg string, args ...any)  { a.s.Infow(msg, args...) }
func (a *zapAdapter) Warn(msg string, args ...any)  { a.s.Warnw(msg, args...) }
func (a *zapAdapter) Error(msg string, args ...any) { a.s.Errorw(msg, args...) }

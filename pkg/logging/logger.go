// Package logging provides the engine's structured logger. It mirrors the
// global-logger-behind-a-mutex shape used throughout the codebase, backed
// by zap instead of the standard library's log/slog.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger   *zap.SugaredLogger
	loggerMu sync.RWMutex
	isInited bool
	initOnce sync.Once
)

// Level is the logging verbosity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Config controls logger construction.
type Config struct {
	Level      Level
	OutputPath string // empty for stdout
	Format     string // "json" or "console"
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init initializes the global logger. Calling Init twice without an
// intervening Close returns an error, matching the teacher's
// single-initialization discipline.
func Init(cfg Config) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if isInited {
		return fmt.Errorf("logging: already initialized; call Close() first")
	}

	outputs := []string{"stdout"}
	if cfg.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0o750); err != nil {
			return err
		}
		outputs = []string{cfg.OutputPath}
	}

	encoding := "console"
	if cfg.Format == "json" {
		encoding = "json"
	}

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel(cfg.Level)),
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := zcfg.Build()
	if err != nil {
		return err
	}

	logger = z.Sugar()
	isInited = true
	return nil
}

// InitDefault initializes the logger with INFO/stderr/console defaults. It
// is idempotent.
func InitDefault() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if isInited {
		return
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	z, _ := zcfg.Build()
	logger = z.Sugar()
	isInited = true
}

// Close flushes and releases the global logger. Safe to call multiple
// times. A Sync failure of EINVAL or ENOTTY, which syncing a console
// stream such as stdout reports on many platforms, is not returned.
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if !isInited {
		return nil
	}
	var err error
	if logger != nil {
		if serr := logger.Sync(); serr != nil &&
			!errors.Is(serr, syscall.EINVAL) && !errors.Is(serr, syscall.ENOTTY) {
			err = serr
		}
	}
	logger = nil
	isInited = false
	initOnce = sync.Once{}
	return err
}

// Get returns the current logger, lazily initializing with defaults the
// first time it is called with no prior Init.
func Get() *zap.SugaredLogger {
	loggerMu.RLock()
	if isInited {
		l := logger
		loggerMu.RUnlock()
		return l
	}
	loggerMu.RUnlock()

	initOnce.Do(InitDefault)

	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	return l
}

func Debug(msg string, args ...any) { Get().Debugw(msg, args...) }
func Info(msg string, args ...any)  { Get().Infow(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warnw(msg, args...) }
func Error(msg string, args ...any) { Get().Errorw(msg, args...) }

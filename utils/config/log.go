package config

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbose and Debug mirror the global CLI flags
var (
	Verbose bool
	Debug   bool
)

var (
	loggerMu sync.RWMutex
	logger   = zap.NewNop().Sugar()
)

// InitLogger builds the process-wide logger. Debug wins over verbose;
// without either only warnings and errors are written.
func InitLogger(verbose, debug bool) error {
	Verbose = verbose
	Debug = debug

	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	switch {
	case debug:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case verbose:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLogger replaces the process-wide logger
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l.Sugar()
}

// Logger returns the process-wide sugared logger
func Logger() *zap.SugaredLogger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SyncLogger flushes buffered log entries
func SyncLogger() {
	_ = Logger().Sync()
}

// DebugLog logs at debug level; it is a no-op unless --debug is set
func DebugLog(format string, args ...interface{}) {
	Logger().Debugf(format, args...)
}

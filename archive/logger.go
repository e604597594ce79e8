package archive

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
	loggerMu   sync.RWMutex
)

// Logger returns the archive package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		loggerMu.Lock()
		if logger == nil {
			logger = zap.NewNop()
		}
		loggerMu.Unlock()
	})
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SetLogger configures the archive package's logger.
// Sessions opened afterwards use it unless Config.Logger is set.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerOnce.Do(func() {})
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

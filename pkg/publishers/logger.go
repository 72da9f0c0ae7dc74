package publishers

import "github.com/arcanalyse/encounter-builder/internal/logger"

// Logger is the logging surface publishers rely on.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger {
	return logger.Ensure(log)
}

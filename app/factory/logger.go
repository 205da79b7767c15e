package factory

import (
	"github.com/sirupsen/logrus"
)

// NewModuleLogger returns a logger tagged with the originating module name.
func NewModuleLogger(module string) logrus.FieldLogger {
	return logrus.StandardLogger().WithField("module", module)
}

// LoggerWithProcess tags a logger with the payment process id so every line
// of one session can be correlated.
func LoggerWithProcess(logger logrus.FieldLogger, processID string) logrus.FieldLogger {
	if processID == "" {
		return logger
	}
	return logger.WithField("process_id", processID)
}

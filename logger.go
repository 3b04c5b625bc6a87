package browserkit

import (
	"io"

	"browserkit/logger"
)

// ------------------------------------------------------------------------

// Logger represents a logger that processes browser events.
type Logger = logger.Logger

// A LogLevel is a logging priority. Higher levels are more important.
type LogLevel = logger.Level

// LoggerEvent represents an action taken by the Browser.
type LoggerEvent = logger.Event

// Logging levels
const (
	LOG_DEBUG_LEVEL = logger.DEBUG
	LOG_INFO_LEVEL  = logger.INFO
	LOG_WARN_LEVEL  = logger.WARN
	LOG_ERR_LEVEL   = logger.ERROR
)

// NewStdLogger returns a pointer to a newly created standard logger backed
// by the standard library "log" package.
func NewStdLogger(dest io.Writer, prefix string, flag int) Logger {
	return logger.New(dest, prefix, flag)
}

// ------------------------------------------------------------------------

func (b *Browser) hasLogger() bool {
	return b.Config.Logger != nil
}

func (b *Browser) logEvent(level LogLevel, eventType string, requestID uint32, args map[string]string) {
	if b.hasLogger() {
		b.Config.Logger.LogEvent(level, logger.NewEvent(eventType, requestID, args))
	}
}

func (b *Browser) logError(level LogLevel, err error) {
	if b.hasLogger() {
		b.Config.Logger.LogError(level, err)
	}
}

package logger

import (
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"
)

// ------------------------------------------------------------------------

// Std is a logger that writes to an io.Writer via the standard log package.
type Std struct {
	l       *log.Logger
	counter int32
	start   time.Time
}

// ------------------------------------------------------------------------

var levelNames = []string{"DEBUG", "INFO", "WARN", "ERROR"}

// ------------------------------------------------------------------------

// New returns a pointer to a newly created standard logger.
// A nil destination defaults to os.Stderr.
func New(dest io.Writer, prefix string, flag int) *Std {
	if dest == nil {
		dest = os.Stderr
	}

	return &Std{
		l:     log.New(dest, prefix, flag),
		start: time.Now(),
	}
}

// ------------------------------------------------------------------------

// LogEvent logs an event.
func (s *Std) LogEvent(level Level, e *Event) {
	i := atomic.AddInt32(&s.counter, 1)
	s.l.Printf("%s: [%06d] [%6d - %s] %q (%s)\n", levelNames[level], i, e.RequestID, e.Type, e.Values, time.Since(s.start))
}

// LogError logs an error.
func (s *Std) LogError(level Level, err error) {
	i := atomic.AddInt32(&s.counter, 1)
	s.l.Printf("%s: [%06d] %s (%s)\n", levelNames[level], i, err.Error(), time.Since(s.start))
}

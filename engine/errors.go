package engine

import (
	"fmt"

	"github.com/zy643208/gearmand/gearr"
)

// SetError formats "<function>:<message>". If a log sink
// is installed, the message is delivered at FATAL verbosity and
// discarded; otherwise it is stored, truncated to the buffer size and
// NUL-free, into the last-error field for later retrieval.
func (e *Engine) SetError(function, format string, args ...any) {
	msg := fmt.Sprintf("%s:%s", function, fmt.Sprintf(format, args...))
	if e.logSink != nil {
		e.logSink.Log(gearr.VerbFatal, msg)
		return
	}
	if len(msg) > lastErrorBufSize {
		msg = msg[:lastErrorBufSize]
	}
	e.lastError = msg
}

// LastError returns a borrowed view of the most recent formatted error
// message; valid until the next engine operation that calls SetError or
// until Free tears the engine down.
func (e *Engine) LastError() string { return e.lastError }

// LastErrno returns the numeric errno captured by the most recent
// StatusErrnoBound outcome, or 0 if none has occurred.
func (e *Engine) LastErrno() int { return e.lastErrno }

// Log delivers a formatted message at the given verbosity if it passes
// the engine's verbosity filter. With a sink installed,
// delivery goes there; otherwise it prints to standard output prefixed
// by the verbosity name. Below-filter calls are dropped without
// formatting their arguments.
func (e *Engine) Log(verbosity gearr.Verbosity, format string, args ...any) {
	if verbosity > e.verbosity {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if e.logSink != nil {
		e.logSink.Log(verbosity, msg)
		return
	}
	fmt.Printf("[%s] %s\n", verbosity, msg)
}

func (e *Engine) recordErrno(status gearr.Status, err error) {
	if status != gearr.StatusErrnoBound {
		return
	}
	if gerr, ok := err.(*gearr.Error); ok {
		e.lastErrno = gerr.Errno
	}
}

// Package gearlog provides a default gearr.LogSink backed by zerolog,
// wired so a program using engine.Engine gets structured logging without
// writing its own sink.
package gearlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/zy643208/gearmand/gearr"
)

// Sink adapts a zerolog.Logger to gearr.LogSink.
type Sink struct {
	logger zerolog.Logger
}

// New builds a Sink writing to w in zerolog's compact JSON form.
func New(w io.Writer) *Sink {
	return &Sink{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// NewConsole builds a Sink writing human-readable lines to stderr, for
// interactive use.
func NewConsole() *Sink {
	return &Sink{logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()}
}

// Log implements gearr.LogSink, mapping the engine's verbosity scale onto
// zerolog's level scale.
func (s *Sink) Log(verbosity gearr.Verbosity, message string) {
	s.event(verbosity).Msg(message)
}

func (s *Sink) event(verbosity gearr.Verbosity) *zerolog.Event {
	switch verbosity {
	case gearr.VerbFatal:
		return s.logger.Error() // engine-fatal is connection-scoped, not process-fatal
	case gearr.VerbError:
		return s.logger.Error()
	case gearr.VerbWarn:
		return s.logger.Warn()
	case gearr.VerbInfo:
		return s.logger.Info()
	default:
		return s.logger.Debug()
	}
}

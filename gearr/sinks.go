package gearr

// EventMask is the set of readiness directions a connection can declare
// interest in, or that a readiness wait can report back.
type EventMask uint8

const (
	EventRead EventMask = 1 << iota
	EventWrite
	EventError
)

// Intersects reports whether m shares any bit with other.
func (m EventMask) Intersects(other EventMask) bool { return m&other != 0 }

// Verbosity filters Log calls; higher values are chattier.
type Verbosity int

const (
	VerbFatal Verbosity = iota
	VerbError
	VerbWarn
	VerbInfo
	VerbDebug
)

func (v Verbosity) String() string {
	switch v {
	case VerbFatal:
		return "FATAL"
	case VerbError:
		return "ERROR"
	case VerbWarn:
		return "WARN"
	case VerbInfo:
		return "INFO"
	case VerbDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// LogSink receives formatted log lines from an engine. Installing one
// diverts messages that would otherwise land in the bounded last-error
// buffer (for FATAL-level SetError calls) or standard output (for Log).
type LogSink interface {
	Log(verbosity Verbosity, message string)
}

// EventWatchSink is notified whenever a connection's readiness changes
// during Wait's post-wait dispatch. Installing one does not change engine
// behavior; it exists purely for observability (metrics, tracing).
type EventWatchSink interface {
	OnReady(connID string, revents EventMask)
}

// PayloadAllocator supplies payload storage for inbound packets in place
// of the default allocator. Implementations must return a slice of at
// least size bytes.
type PayloadAllocator interface {
	Allocate(size int) []byte
}

// PayloadDeallocator releases storage obtained from a PayloadAllocator.
// It is invoked exactly once per buffer that was allocated through the
// paired allocator, never for caller-supplied (non-owned) payloads.
type PayloadDeallocator interface {
	Deallocate(buf []byte)
}

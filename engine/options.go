package engine

import (
	"github.com/zy643208/gearmand/control"
	"github.com/zy643208/gearmand/gearr"
)

// AddOption enables a recognized engine option. Unknown options,
// including OptMax itself, return StatusInvalidCommand.
func (e *Engine) AddOption(opt Option) gearr.Status {
	switch opt {
	case OptNonBlocking:
		e.opts.nonBlocking = true
	case OptDontTrackPackets:
		e.opts.dontTrackPackets = true
	default:
		return gearr.StatusInvalidCommand
	}
	return gearr.StatusOK
}

// SetOption sets a recognized option to an explicit boolean value.
func (e *Engine) SetOption(opt Option, value bool) gearr.Status {
	switch opt {
	case OptNonBlocking:
		e.opts.nonBlocking = value
	case OptDontTrackPackets:
		e.opts.dontTrackPackets = value
	default:
		return gearr.StatusInvalidCommand
	}
	return gearr.StatusOK
}

// DontTrackPackets reports the current value of that option.
func (e *Engine) DontTrackPackets() bool { return e.opts.dontTrackPackets }

// SetTimeout sets the engine's global Wait timeout in milliseconds.
// Negative means wait indefinitely.
func (e *Engine) SetTimeout(ms int) { e.timeoutMS = ms }

// Timeout returns the engine's current Wait timeout in milliseconds.
func (e *Engine) Timeout() int { return e.timeoutMS }

// SetVerbosity sets the chattiest verbosity Log will deliver; messages
// with a higher Verbosity value are dropped.
func (e *Engine) SetVerbosity(v gearr.Verbosity) { e.verbosity = v }

// SetLogSink installs a sink that receives every Log/SetError message.
// Absence falls back to the bounded last-error buffer (SetError) or
// standard output (Log).
func (e *Engine) SetLogSink(sink gearr.LogSink) { e.logSink = sink }

// SetEventWatchSink installs a sink notified on every readiness change
// Wait's post-wait dispatch produces.
func (e *Engine) SetEventWatchSink(sink gearr.EventWatchSink) { e.eventSink = sink }

// SetWorkloadAllocatorSink installs the payload allocator/deallocator
// pair new connections will use for their receive scratch buffers.
// Existing connections are not retroactively updated.
func (e *Engine) SetWorkloadAllocatorSink(a gearr.PayloadAllocator, d gearr.PayloadDeallocator) {
	e.allocator = a
	e.deallocator = d
}

// ApplyDefaults sets the engine's timeout and verbosity from a
// control.Store snapshot. It does not touch host/port, since those are
// per-connection (AddConnection) rather than engine-level; a caller
// reads d.Host/d.Port itself when dialing. Safe to call again after a
// control.Store.OnReload fires, to pick up a live config change.
func (e *Engine) ApplyDefaults(d control.EngineDefaults) {
	e.SetTimeout(d.TimeoutMS)
	e.SetVerbosity(gearr.Verbosity(d.Verbosity))
}

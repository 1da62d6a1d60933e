package engine

import (
	"bytes"

	"github.com/zy643208/gearmand/gearr"
	"github.com/zy643208/gearmand/wire"
)

// enterBlockingScope saves the current non-blocking setting into
// storedNonBlocking and clears it, forcing synchronous I/O regardless of
// the caller's configured mode. Blocking scopes do not nest within
// themselves on one engine; calling this while already inside a scope
// is a programming error in this package. Echo is the only caller and it
// does not re-enter itself; inBlockingScope is not checked on entry.
func (e *Engine) enterBlockingScope() {
	e.storedNonBlocking = e.opts.nonBlocking
	e.opts.nonBlocking = false
	e.inBlockingScope = true
}

// exitBlockingScope restores the mode saved by enterBlockingScope. It
// must run on every exit path, including error paths, so every call site
// reaches it through defer.
func (e *Engine) exitBlockingScope() {
	e.opts.nonBlocking = e.storedNonBlocking
	e.inBlockingScope = false
}

// Echo performs a synchronous round-trip across every connection the
// engine owns: it enters a blocking scope, builds an ECHO_REQ packet from
// workload, and for each connection issues a flushed Send followed by a
// flushed Recv. Corruption (length or byte mismatch) in any reply yields
// StatusEchoDataCorruption; any other non-success status frees
// intermediate packets and exits the blocking scope before returning.
func (e *Engine) Echo(workload []byte) gearr.Status {
	e.enterBlockingScope()
	defer e.exitBlockingScope()

	req, err := wire.NewEcho(workload)
	if err != nil {
		e.SetError("Echo", "%v", err)
		return gearr.StatusMemoryAllocFailure
	}
	defer wire.Free(req)

	for _, c := range e.conns {
		status, sendErr := c.Send(req, true)
		e.recordErrno(status, sendErr)
		if status != gearr.StatusOK {
			if sendErr != nil {
				e.SetError("Echo", "%v", sendErr)
			}
			return status
		}

		reply, status, recvErr := e.Recv(c, true)
		if status != gearr.StatusOK {
			if recvErr != nil {
				e.SetError("Echo", "%v", recvErr)
			}
			return status
		}
		if e.opts.dontTrackPackets {
			// Not on the tracked list: Echo owns it and must free it itself.
			defer wire.Free(reply)
		}

		args := wire.SplitArgs(reply.Payload, 1)
		if len(args) != 1 || !bytes.Equal(args[0], workload) {
			e.SetError("Echo", "reply payload does not match workload sent")
			return gearr.StatusEchoDataCorruption
		}
	}

	return gearr.StatusOK
}

// Package engine implements the multiplex engine: the object that owns
// a set of connections, arbitrates their readiness through a single OS
// readiness wait, and offers the blocking-mode scope synchronous helpers
// like Echo depend on.
package engine

import (
	"fmt"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/zy643208/gearmand/conn"
	"github.com/zy643208/gearmand/gearr"
	"github.com/zy643208/gearmand/wire"
)

// Option is a recognized engine option token.
type Option int

const (
	OptNonBlocking Option = iota
	OptDontTrackPackets
	OptMax // sentinel: applying this, or any unrecognized token, is invalid-command
)

type options struct {
	nonBlocking      bool
	dontTrackPackets bool
}

// Engine is the top-level multiplex object.
type Engine struct {
	conns   []*conn.Connection
	pollFds []unix.PollFd // grow-only, capacity >= len(conns)

	timeoutMS int
	verbosity gearr.Verbosity
	opts      options

	lastError string
	lastErrno int

	logSink     gearr.LogSink
	eventSink   gearr.EventWatchSink
	allocator   gearr.PayloadAllocator
	deallocator gearr.PayloadDeallocator

	packets *queue.Queue // in-flight inbound packets, tracked unless DontTrackPackets

	storedNonBlocking bool
	inBlockingScope   bool

	allocatedSelf bool
}

const lastErrorBufSize = 512

// Create initializes a new Engine. Passing an existing *Engine reuses its
// storage (allocatedSelf stays false, so Free will not consider itself
// responsible for releasing it); passing nil allocates a fresh Engine
// that Free is responsible for tearing down.
func Create(reuse *Engine) *Engine {
	e := reuse
	allocatedSelf := false
	if e == nil {
		e = &Engine{}
		allocatedSelf = true
	}
	e.timeoutMS = -1
	e.verbosity = gearr.VerbFatal
	e.opts = options{}
	e.conns = nil
	e.pollFds = nil
	e.lastError = ""
	e.lastErrno = 0
	e.packets = queue.New()
	e.allocatedSelf = allocatedSelf
	return e
}

// NonBlocking reports whether the engine's global mode is currently
// non-blocking. Satisfies conn.Mode so connections can query their
// owner's mode without importing this package.
func (e *Engine) NonBlocking() bool { return e.opts.nonBlocking }

// ConnCount returns the number of connections owned by the engine.
func (e *Engine) ConnCount() int { return len(e.conns) }

// PollCapacity exposes the poll-descriptor array's current capacity, for
// tests asserting the grow-only invariant.
func (e *Engine) PollCapacity() int { return cap(e.pollFds) }

// AddConnection creates a Connection attached to this engine, dials it,
// and appends it to the engine's connection list.
func (e *Engine) AddConnection(host string, port int) (*conn.Connection, error) {
	c := conn.New(host, port, e)
	c.SetAllocator(e.allocator, e.deallocator)
	if err := c.Dial(); err != nil {
		return nil, err
	}
	e.conns = append(e.conns, c)
	return c, nil
}

// FreeConnection detaches c from the engine's list and frees it. A no-op
// if c does not belong to this engine.
func (e *Engine) FreeConnection(c *conn.Connection) {
	for i, cc := range e.conns {
		if cc == c {
			e.conns = append(e.conns[:i], e.conns[i+1:]...)
			c.Free()
			return
		}
	}
}

// FreeAllConnections tears down every connection the engine owns.
func (e *Engine) FreeAllConnections() {
	for _, c := range e.conns {
		c.Free()
	}
	e.conns = nil
}

// FreeAllPackets drains the engine's tracked inbound-packet list,
// freeing each one. No-op when DontTrackPackets is set, since nothing is
// tracked in that mode.
func (e *Engine) FreeAllPackets() {
	for e.packets.Length() > 0 {
		p := e.packets.Remove().(*wire.Packet)
		if e.deallocator != nil && p.FromPool {
			e.deallocator.Deallocate(p.Payload)
		}
		wire.Free(p)
	}
}

// TrackPacket records an inbound packet on the engine's packet list,
// unless DontTrackPackets is set.
func (e *Engine) TrackPacket(p *wire.Packet) {
	if e.opts.dontTrackPackets {
		return
	}
	e.packets.Add(p)
}

// Recv receives on c and, on success, hands the resulting packet to
// TrackPacket, so every inbound packet the engine drives — not just ones
// a caller tracks by hand — lands on the tracked list. When
// DontTrackPackets is set, TrackPacket is a no-op and ownership of the
// returned packet stays with the caller, who must wire.Free it.
func (e *Engine) Recv(c *conn.Connection, flushNow bool) (*wire.Packet, gearr.Status, error) {
	p, status, err := c.Recv(flushNow)
	e.recordErrno(status, err)
	if status == gearr.StatusOK {
		e.TrackPacket(p)
	}
	return p, status, err
}

// Free tears down every connection, releases the poll-descriptor array,
// and releases the engine's own storage iff Create allocated it.
func (e *Engine) Free() {
	e.FreeAllConnections()
	e.FreeAllPackets()
	e.pollFds = nil
	e.logSink = nil
	e.eventSink = nil
	e.allocator = nil
	e.deallocator = nil
	// allocatedSelf storage has no explicit release step in Go (the GC
	// reclaims it); the flag is preserved so Free only claims ownership it
	// was actually given by Create.
}

// Clone produces a new engine with the same timeout, the same
// non-blocking/dont-track-packets options, and a per-connection clone of
// every entry in src's connection list. Transient packet state is never
// cloned. If any per-connection clone fails, the partial clone is rolled
// back.
func Clone(dst, src *Engine) (*Engine, error) {
	e := Create(dst)
	e.timeoutMS = src.timeoutMS
	e.opts = src.opts

	for _, c := range src.conns {
		cc := c.Clone(e)
		if err := cc.Dial(); err != nil {
			e.FreeAllConnections()
			return nil, fmt.Errorf("engine: Clone: %w", err)
		}
		e.conns = append(e.conns, cc)
	}
	return e, nil
}

// Package metrics provides an optional gearr.EventWatchSink that counts
// readiness events and engine-level waits, for callers that want basic
// observability without pulling in a full metrics backend.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/zy643208/gearmand/gearr"
)

// Collector counts readiness dispatches by direction, plus waits that
// ended in a timeout. It satisfies gearr.EventWatchSink; install it with
// Engine.SetEventWatchSink.
type Collector struct {
	reads     atomic.Int64
	writes    atomic.Int64
	errors    atomic.Int64
	timeouts  atomic.Int64
	perConnMu sync.Mutex
	perConn   map[string]int64
}

var _ gearr.EventWatchSink = (*Collector)(nil)

// New creates an empty Collector.
func New() *Collector {
	return &Collector{perConn: make(map[string]int64)}
}

// OnReady implements gearr.EventWatchSink, tallying the readiness
// directions reported for connID and bumping its per-connection count.
func (c *Collector) OnReady(connID string, revents gearr.EventMask) {
	if revents.Intersects(gearr.EventRead) {
		c.reads.Add(1)
	}
	if revents.Intersects(gearr.EventWrite) {
		c.writes.Add(1)
	}
	if revents.Intersects(gearr.EventError) {
		c.errors.Add(1)
	}

	c.perConnMu.Lock()
	c.perConn[connID]++
	c.perConnMu.Unlock()
}

// OnTimeout records a Wait call that returned StatusTimeout. Engine.Wait
// calls this through an optional-interface check, so a Collector need not
// be type-asserted by name anywhere outside this package.
func (c *Collector) OnTimeout() {
	c.timeouts.Add(1)
}

// Snapshot is a point-in-time copy of the collector's counters.
type Snapshot struct {
	Reads, Writes, Errors, Timeouts int64
	PerConnection                   map[string]int64
}

// Snapshot returns the current counter values.
func (c *Collector) Snapshot() Snapshot {
	c.perConnMu.Lock()
	perConn := make(map[string]int64, len(c.perConn))
	for k, v := range c.perConn {
		perConn[k] = v
	}
	c.perConnMu.Unlock()

	return Snapshot{
		Reads:          c.reads.Load(),
		Writes:         c.writes.Load(),
		Errors:         c.errors.Load(),
		Timeouts:       c.timeouts.Load(),
		PerConnection:  perConn,
	}
}

package engine

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/zy643208/gearmand/conn"
	"github.com/zy643208/gearmand/gearr"
	"github.com/zy643208/gearmand/reactor"
)

func toPollEvents(m gearr.EventMask) int16 {
	var e int16
	if m.Intersects(gearr.EventRead) {
		e |= unix.POLLIN
	}
	if m.Intersects(gearr.EventWrite) {
		e |= unix.POLLOUT
	}
	return e
}

func fromPollEvents(e int16) gearr.EventMask {
	var m gearr.EventMask
	if e&unix.POLLIN != 0 {
		m |= gearr.EventRead
	}
	if e&unix.POLLOUT != 0 {
		m |= gearr.EventWrite
	}
	if e&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		m |= gearr.EventError
	}
	return m
}

// growPollFds ensures e.pollFds has capacity >= n without ever shrinking
// below the current connection count.
func (e *Engine) growPollFds(n int) {
	if cap(e.pollFds) >= n {
		return
	}
	grown := make([]unix.PollFd, len(e.pollFds), n)
	copy(grown, e.pollFds)
	e.pollFds = grown
}

// Wait arbitrates readiness across every connection via a single OS
// readiness-wait call. With no connection holding interest, it returns
// StatusNoActiveFDs without invoking the OS primitive at all.
func (e *Engine) Wait() (gearr.Status, error) {
	e.growPollFds(len(e.conns))

	active := e.pollFds[:0]
	watched := make([]int, 0, len(e.conns))
	for i, c := range e.conns {
		if c.Interest() == 0 {
			continue
		}
		active = append(active, unix.PollFd{Fd: int32(c.FD()), Events: toPollEvents(c.Interest())})
		watched = append(watched, i)
	}

	if len(active) == 0 {
		return gearr.StatusNoActiveFDs, nil
	}

	n, err := reactor.Poll(active, e.timeoutMS)
	if err != nil {
		errno, _ := err.(unix.Errno)
		wrapped := gearr.NewErrnoError("Wait", int(errno), err.Error())
		e.SetError("Wait", "%v", err)
		e.recordErrno(gearr.StatusErrnoBound, wrapped)
		return gearr.StatusErrnoBound, wrapped
	}
	if n == 0 {
		if timeoutObserver, ok := e.eventSink.(interface{ OnTimeout() }); ok {
			timeoutObserver.OnTimeout()
		}
		return gearr.StatusTimeout, nil
	}

	for i, connIdx := range watched {
		c := e.conns[connIdx]
		revents := fromPollEvents(active[i].Revents)
		status, _ := c.SetRevents(revents)
		if e.eventSink != nil {
			e.eventSink.OnReady(fmt.Sprintf("%s:%d", c.Host, c.Port), revents)
		}
		if status != gearr.StatusOK {
			return status, nil
		}
	}
	return gearr.StatusOK, nil
}

// Ready performs a linear scan for a connection with its ready flag set,
// clearing the flag and returning it. The scan is restartable and keeps
// no cursor state across calls, so it tolerates connections being added
// or removed between invocations.
func (e *Engine) Ready() (*conn.Connection, bool) {
	for _, c := range e.conns {
		if c.ConsumeReady() {
			return c, true
		}
	}
	return nil, false
}

// FlushAll drains every connection whose write-interest is not already
// pending. It stops and returns the first non-success, non-io-wait
// status; io-wait on any individual connection is swallowed because the
// caller is expected to call Wait next.
func (e *Engine) FlushAll() gearr.Status {
	for _, c := range e.conns {
		if c.Interest().Intersects(gearr.EventWrite) {
			continue
		}
		status, _ := c.Flush()
		if status != gearr.StatusOK && status != gearr.StatusIOWait {
			return status
		}
	}
	return gearr.StatusOK
}

package conn

import (
	"golang.org/x/sys/unix"

	"github.com/zy643208/gearmand/gearr"
	"github.com/zy643208/gearmand/reactor"
	"github.com/zy643208/gearmand/wire"
)

const recvScratchSize = 64 * 1024

// Send appends packet's serialized form to the send buffer. If flushNow,
// it attempts to drain immediately; otherwise it only sets write-interest
// and leaves draining to the next Flush/Wait cycle.
func (c *Connection) Send(packet *wire.Packet, flushNow bool) (gearr.Status, error) {
	c.sendPending = append(c.sendPending, wire.Encode(packet)...)
	if !flushNow {
		c.interest |= gearr.EventWrite
		return gearr.StatusIOWait, nil
	}
	return c.drainSend(c.nonBlocking())
}

// Flush drains the send buffer using the connection's current mode.
func (c *Connection) Flush() (gearr.Status, error) {
	return c.drainSend(c.nonBlocking())
}

// drainSend writes sendPending to the socket. In blocking mode it loops
// until the buffer empties or a hard error occurs; in non-blocking mode a
// single EAGAIN returns StatusIOWait with write-interest set.
func (c *Connection) drainSend(nonBlocking bool) (gearr.Status, error) {
	if err := c.finalizeConnect(); err != nil {
		return gearr.StatusErrnoBound, err
	}

	for len(c.sendPending) > 0 {
		n, err := unix.Write(c.fd, c.sendPending)
		if n > 0 {
			c.sendPending = c.sendPending[n:]
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				c.interest |= gearr.EventWrite
				if nonBlocking {
					return gearr.StatusIOWait, nil
				}
				if _, perr := reactor.Poll([]unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLOUT}}, -1); perr != nil {
					return gearr.StatusErrnoBound, gearr.NewErrnoError("Flush", errnoOf(perr), perr.Error())
				}
				continue
			}
			return gearr.StatusErrnoBound, gearr.NewErrnoError("Flush", errnoOf(err), err.Error())
		}
	}
	c.interest &^= gearr.EventWrite
	return gearr.StatusOK, nil
}

// Recv reads available bytes into the in-flight receive packet. On
// completion it hands the packet over and clears the in-flight slot. In
// non-blocking mode, a would-suspend read sets read-interest and
// returns StatusIOWait. With flushNow forced (the engine's blocking
// scope), it loops until the frame completes, the peer closes
// (StatusConnectionLost), or a hard error occurs (StatusErrnoBound).
func (c *Connection) Recv(flushNow bool) (*wire.Packet, gearr.Status, error) {
	if err := c.finalizeConnect(); err != nil {
		return nil, gearr.StatusErrnoBound, err
	}

	if c.recvPkt == nil {
		c.recvPkt = wire.NewIncomplete()
	}
	if c.recvScratch == nil {
		c.recvScratch = c.allocScratch()
	}

	nonBlocking := c.nonBlocking() && !flushNow

	for {
		n, err := unix.Read(c.fd, c.recvScratch)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				c.interest |= gearr.EventRead
				if nonBlocking {
					return nil, gearr.StatusIOWait, nil
				}
				if _, perr := reactor.Poll([]unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}, -1); perr != nil {
					return nil, gearr.StatusErrnoBound, gearr.NewErrnoError("Recv", errnoOf(perr), perr.Error())
				}
				continue
			}
			return nil, gearr.StatusErrnoBound, gearr.NewErrnoError("Recv", errnoOf(err), err.Error())
		}
		if n == 0 {
			return nil, gearr.StatusConnectionLost, nil
		}

		chunk := c.recvScratch[:n]
		for len(chunk) > 0 {
			consumed, result := wire.FeedAlloc(c.recvPkt, chunk, c.allocator)
			chunk = chunk[consumed:]

			switch result {
			case wire.ParseProtocolViolation:
				return nil, gearr.StatusProtocolViolation, nil
			case wire.ParseComplete:
				pkt := c.recvPkt
				c.recvPkt = nil
				c.interest &^= gearr.EventRead
				return pkt, gearr.StatusOK, nil
			default: // ParseNeedMore
				if len(chunk) == 0 {
					break
				}
			}
		}

		if nonBlocking {
			c.interest |= gearr.EventRead
			return nil, gearr.StatusIOWait, nil
		}
	}
}

func (c *Connection) allocScratch() []byte {
	if c.allocator != nil {
		return c.allocator.Allocate(recvScratchSize)
	}
	return make([]byte, recvScratchSize)
}

// Package conn implements one non-blocking TCP endpoint to a broker: a raw
// socket, send/receive buffers, and the interest/readiness bookkeeping an
// owning engine drives through a single OS readiness wait.
package conn

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/zy643208/gearmand/gearr"
	"github.com/zy643208/gearmand/wire"
)

// errnoOf extracts the numeric errno from a syscall error, or 0 if err
// did not originate as a raw unix.Errno (e.g. it came from the reactor's
// own wrapping rather than a direct syscall return).
func errnoOf(err error) int {
	if errno, ok := err.(unix.Errno); ok {
		return int(errno)
	}
	return 0
}

// Mode is the minimal view of an owning engine a Connection needs: whether
// non-blocking mode is currently in effect. Declaring this as an interface
// (rather than importing the engine package directly) keeps conn free of a
// dependency on engine: connections are driven by the engine, not the
// reverse.
type Mode interface {
	NonBlocking() bool
}

// Options holds per-connection overrides layered on top of the owning
// engine's mode.
type Options struct {
	// NonBlockingOverride, when non-nil, replaces the engine's mode for
	// this connection alone.
	NonBlockingOverride *bool
}

// Connection is one TCP link from an engine to a broker endpoint, with its
// own buffers and interest mask.
type Connection struct {
	Host string
	Port int

	fd int // -1 when closed

	interest gearr.EventMask
	revents  gearr.EventMask
	ready    bool

	connecting bool

	sendPending []byte
	recvPkt     *wire.Packet
	recvScratch []byte

	Options Options
	owner   Mode

	allocator   gearr.PayloadAllocator
	deallocator gearr.PayloadDeallocator
}

// New creates a Connection detached from any socket; Dial must be called
// before Send/Recv will make progress.
func New(host string, port int, owner Mode) *Connection {
	return &Connection{
		Host: host,
		Port: port,
		fd:   -1,
		owner: owner,
	}
}

// SetAllocator installs the payload allocator/deallocator pair this
// connection uses for its receive scratch buffer. When unset, a plain
// make([]byte, n) is used.
func (c *Connection) SetAllocator(a gearr.PayloadAllocator, d gearr.PayloadDeallocator) {
	c.allocator = a
	c.deallocator = d
}

// FD returns the raw file descriptor, or -1 if not connected.
func (c *Connection) FD() int { return c.fd }

// Interest returns the connection's current interest mask.
func (c *Connection) Interest() gearr.EventMask { return c.interest }

// ConsumeReady reports whether the last SetRevents call marked this connection
// ready, and clears the flag (consumed exactly like engine.Ready's scan).
func (c *Connection) ConsumeReady() bool {
	r := c.ready
	c.ready = false
	return r
}

// IsReady reports readiness without consuming it.
func (c *Connection) IsReady() bool { return c.ready }

func (c *Connection) nonBlocking() bool {
	if c.Options.NonBlockingOverride != nil {
		return *c.Options.NonBlockingOverride
	}
	if c.owner != nil {
		return c.owner.NonBlocking()
	}
	return false
}

// Dial opens a non-blocking TCP socket to Host:Port. A non-blocking
// connect that returns EINPROGRESS is not an error here: the connection
// is left pending with zero interest (no work is in flight yet), and
// completion is confirmed through SO_ERROR the next time Send, Flush, or
// Recv runs.
func (c *Connection) Dial() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, unix.IPPROTO_TCP)
	if err != nil {
		return gearr.NewErrnoError("Dial", errnoOf(err), err.Error())
	}

	addr, err := resolveIPv4(c.Host)
	if err != nil {
		unix.Close(fd)
		return gearr.NewError(gearr.StatusErrnoBound, "Dial", err.Error())
	}

	sa := &unix.SockaddrInet4{Port: c.Port, Addr: addr}
	err = unix.Connect(fd, sa)
	c.fd = fd
	if err == nil {
		c.connecting = false
		c.interest = 0
		return nil
	}
	if err == unix.EINPROGRESS {
		c.connecting = true
		c.interest = 0
		return nil
	}
	unix.Close(fd)
	c.fd = -1
	return gearr.NewErrnoError("Dial", errnoOf(err), err.Error())
}

// finalizeConnect checks SO_ERROR once the socket reports writable during
// an in-progress non-blocking connect.
func (c *Connection) finalizeConnect() error {
	if !c.connecting {
		return nil
	}
	soerr, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return gearr.NewErrnoError("finalizeConnect", errnoOf(err), err.Error())
	}
	if soerr != 0 {
		return gearr.NewErrnoError("finalizeConnect", soerr, unix.Errno(soerr).Error())
	}
	c.connecting = false
	return nil
}

// SetRevents stores the readiness bits from the latest wait. ready is
// set iff revents intersects interest. A hang-up that
// coincides with read-interest (peer closed while we were waiting for
// data) is surfaced as StatusConnectionLost so callers can free the
// connection instead of spinning on Wait.
func (c *Connection) SetRevents(revents gearr.EventMask) (gearr.Status, error) {
	c.revents = revents
	c.ready = revents.Intersects(c.interest)

	if revents.Intersects(gearr.EventError) && c.interest.Intersects(gearr.EventRead) {
		return gearr.StatusConnectionLost, nil
	}
	return gearr.StatusOK, nil
}

// Clone creates a peer connection with identical endpoint and options on
// a (possibly different) owner. Transient buffers and readiness are never
// cloned.
func (c *Connection) Clone(owner Mode) *Connection {
	clone := New(c.Host, c.Port, owner)
	clone.Options = c.Options
	clone.allocator = c.allocator
	clone.deallocator = c.deallocator
	return clone
}

// Free closes the socket if open and releases buffers. Safe to call more
// than once.
func (c *Connection) Free() {
	if c.fd >= 0 {
		unix.Close(c.fd)
		c.fd = -1
	}
	if c.recvPkt != nil {
		if c.deallocator != nil && c.recvPkt.FromPool {
			c.deallocator.Deallocate(c.recvPkt.Payload)
		}
		wire.Free(c.recvPkt)
		c.recvPkt = nil
	}
	if c.recvScratch != nil {
		if c.deallocator != nil {
			c.deallocator.Deallocate(c.recvScratch)
		}
		c.recvScratch = nil
	}
	c.sendPending = nil
	c.interest = 0
	c.ready = false
}

func resolveIPv4(host string) ([4]byte, error) {
	var addr [4]byte
	ip, err := parseOrLookup(host)
	if err != nil {
		return addr, err
	}
	copy(addr[:], ip)
	return addr, nil
}

func parseOrLookup(host string) ([]byte, error) {
	ip := parseIPv4Literal(host)
	if ip != nil {
		return ip, nil
	}
	return nil, fmt.Errorf("conn: only IPv4 literal addresses are supported, got %q", host)
}

// parseIPv4Literal parses a dotted-quad without pulling in net.ParseIP,
// since this package intentionally stays below the net package, talking
// to unix sockets directly rather than through net.Conn.
func parseIPv4Literal(s string) []byte {
	var out [4]byte
	part := 0
	val := 0
	digits := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if digits == 0 || val > 255 || part > 3 {
				return nil
			}
			out[part] = byte(val)
			part++
			val = 0
			digits = 0
			continue
		}
		ch := s[i]
		if ch < '0' || ch > '9' {
			return nil
		}
		val = val*10 + int(ch-'0')
		digits++
		if digits > 3 {
			return nil
		}
	}
	if part != 4 {
		return nil
	}
	return out[:]
}

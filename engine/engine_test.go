package engine

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/zy643208/gearmand/wire"
)

// closedCheck returns an error iff fd is no longer a valid open
// descriptor, by way of fstat, which fails with EBADF on a closed fd.
func closedCheck(fd int) error {
	var st unix.Stat_t
	return unix.Fstat(fd, &st)
}

// TestBulkTeardown covers bulk teardown: an engine with several
// connections, some in-flight tracked packets, and a Free call that must
// close every socket and release every tracked packet.
func TestBulkTeardown(t *testing.T) {
	host, port := startSilentListener(t)

	e := Create(nil)

	var fds []int
	for i := 0; i < 3; i++ {
		c, err := e.AddConnection(host, port)
		if err != nil {
			t.Fatalf("AddConnection %d: %v", i, err)
		}
		fds = append(fds, c.FD())
	}
	if e.ConnCount() != 3 {
		t.Fatalf("ConnCount = %d, want 3", e.ConnCount())
	}

	pkt, err := wire.NewEcho([]byte("in-flight"))
	if err != nil {
		t.Fatalf("NewEcho: %v", err)
	}
	e.TrackPacket(pkt)
	if e.packets.Length() != 1 {
		t.Fatalf("packets.Length() = %d, want 1", e.packets.Length())
	}

	e.Free()

	if e.ConnCount() != 0 {
		t.Fatalf("ConnCount after Free = %d, want 0", e.ConnCount())
	}
	if e.packets.Length() != 0 {
		t.Fatalf("packets.Length() after Free = %d, want 0", e.packets.Length())
	}
	for i, fd := range fds {
		// A closed fd is no longer a valid argument to fstat; EBADF
		// confirms the socket was actually closed rather than merely
		// forgotten by the engine.
		if err := closedCheck(fd); err == nil {
			t.Fatalf("fd %d (conn %d) was not closed by Free", fd, i)
		}
	}
}

// TestBulkTeardownDontTrackPackets confirms FreeAllPackets has nothing to
// do, and does not panic, when DontTrackPackets is set.
func TestBulkTeardownDontTrackPackets(t *testing.T) {
	host, port := startSilentListener(t)

	e := Create(nil)
	e.AddOption(OptDontTrackPackets)

	if _, err := e.AddConnection(host, port); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}

	pkt, err := wire.NewEcho([]byte("ignored"))
	if err != nil {
		t.Fatalf("NewEcho: %v", err)
	}
	e.TrackPacket(pkt)
	if e.packets.Length() != 0 {
		t.Fatalf("packets.Length() = %d, want 0 with DontTrackPackets set", e.packets.Length())
	}
	wire.Free(pkt)

	e.Free()
	if e.ConnCount() != 0 {
		t.Fatalf("ConnCount after Free = %d, want 0", e.ConnCount())
	}
}

// TestCreateReuseOwnership confirms that Create(existing) does not mark the
// reused engine as self-allocated: an engine only frees storage it
// allocated itself.
func TestCreateReuseOwnership(t *testing.T) {
	e := Create(nil)
	if !e.allocatedSelf {
		t.Fatalf("allocatedSelf = false for a fresh Create(nil)")
	}

	reused := Create(e)
	if reused != e {
		t.Fatalf("Create(e) returned a different pointer than e")
	}
	if reused.allocatedSelf {
		t.Fatalf("allocatedSelf = true for a reused engine")
	}
}

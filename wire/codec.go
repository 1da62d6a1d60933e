package wire

import (
	"encoding/binary"

	"github.com/zy643208/gearmand/gearr"
)

// ParseResult is Feed's outcome: whether the packet needs more bytes, has
// completed, or the peer sent something that doesn't parse as a frame.
type ParseResult int

const (
	ParseNeedMore ParseResult = iota
	ParseComplete
	ParseProtocolViolation
)

// Feed advances p's incremental parser with the next chunk of inbound
// bytes. It is safe to call repeatedly across arbitrary byte boundaries —
// a caller may hand it one byte at a time or the whole frame at once.
// It never reads past the declared payload length: bytes beyond the frame
// are left unconsumed for the next call to parse as the start of the next
// frame. Payload storage is a plain make(), not pool-backed; callers that
// want inbound payloads sourced from a PayloadAllocator should use
// FeedAlloc instead.
func Feed(p *Packet, data []byte) (consumed int, result ParseResult) {
	return FeedAlloc(p, data, nil)
}

// FeedAlloc is Feed with an installable payload allocator. When alloc is
// non-nil, the payload's backing storage is obtained from it (and marked
// FromPool, so the paired PayloadDeallocator is the one responsible for
// releasing it); when nil, it falls back to a plain make(), matching Feed.
func FeedAlloc(p *Packet, data []byte, alloc gearr.PayloadAllocator) (consumed int, result ParseResult) {
	if p.Complete {
		return 0, ParseComplete
	}

	n := 0

	// Header phase: accumulate into DataSize/Magic/Command via a scratch
	// header buffer tracked in cursor terms. We buffer header bytes
	// directly into Payload's backing array reserved for that purpose by
	// reusing a small fixed array on the packet itself would add a field;
	// instead we keep a lazily grown header byte slice on first feed.
	if p.cursor < headerSize {
		need := headerSize - p.cursor
		take := need
		if take > len(data) {
			take = len(data)
		}
		p.header = append(p.header, data[:take]...)
		data = data[take:]
		n += take
		p.cursor += take

		if p.cursor < headerSize {
			return n, ParseNeedMore
		}

		p.Magic = Magic(binary.BigEndian.Uint32(p.header[0:4]))
		p.Command = Command(binary.BigEndian.Uint32(p.header[4:8]))
		p.DataSize = int(binary.BigEndian.Uint32(p.header[8:12]))

		if p.Magic != MagicRequest && p.Magic != MagicResponse && p.Magic != MagicText {
			return n, ParseProtocolViolation
		}
		if p.DataSize < 0 || p.DataSize > maxPayloadSize {
			return n, ParseProtocolViolation
		}

		if alloc != nil {
			p.Payload = alloc.Allocate(p.DataSize)[:0]
			p.FromPool = true
		} else {
			p.Payload = make([]byte, 0, p.DataSize)
		}
		p.Allocated = true
		p.FreeData = true
	}

	// Payload phase.
	remaining := p.DataSize - len(p.Payload)
	take := remaining
	if take > len(data) {
		take = len(data)
	}
	if take > 0 {
		p.Payload = append(p.Payload, data[:take]...)
		n += take
	}

	if len(p.Payload) == p.DataSize {
		p.Complete = true
		return n, ParseComplete
	}
	return n, ParseNeedMore
}

// maxPayloadSize bounds a single frame's declared payload length so a
// corrupt or malicious length prefix can't be used to force an unbounded
// allocation.
const maxPayloadSize = 64 << 20 // 64 MiB

// NewIncomplete returns a zero Packet ready to be driven by repeated Feed
// calls.
func NewIncomplete() *Packet {
	return &Packet{}
}

// statusFor maps a ParseResult to the engine-facing Status taxonomy.
func statusFor(r ParseResult) gearr.Status {
	switch r {
	case ParseComplete:
		return gearr.StatusOK
	case ParseProtocolViolation:
		return gearr.StatusProtocolViolation
	default:
		return gearr.StatusIOWait
	}
}

// StatusFor exposes statusFor to other packages that drive Feed directly
// (conn.Recv) without re-deriving the mapping.
func StatusFor(r ParseResult) gearr.Status { return statusFor(r) }

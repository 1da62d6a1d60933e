// Package wire implements the broker's binary packet protocol: framing,
// argument packing/unpacking, and incremental parsing. It is a pure
// function library over byte buffers — no I/O, no connection or engine
// dependency, so it can be fuzzed and unit tested in isolation.
package wire

import (
	"encoding/binary"

	"github.com/zy643208/gearmand/gearr"
)

// Magic identifies which side of the protocol framed a packet.
type Magic uint32

const (
	// MagicRequest marks a frame sent from a client to the broker.
	MagicRequest Magic = 0x00524551 // "\0REQ"
	// MagicResponse marks a frame sent from the broker back to a client.
	MagicResponse Magic = 0x00524553 // "\0RES"
	// MagicText marks a human-readable (non length-prefixed) error line,
	// used only by a handful of legacy broker replies.
	MagicText Magic = 0x00544558 // "\0TEX"
)

const headerSize = 12 // magic(4) + command(4) + payload length(4)

// Packet is one framed protocol message: magic, command, argument count,
// per-argument length vector, payload, and incremental-parse state.
type Packet struct {
	Magic   Magic
	Command Command

	// ArgLens holds the length of each argument in Payload, in order, not
	// counting the NUL separators, so their sum is len(Payload) minus
	// len(ArgLens)-1. Only CreateArgs sets it; packets parsed by Feed leave
	// it nil and are split with SplitArgs.
	ArgLens []int
	Payload []byte

	// DataSize is the declared payload length from the header; during
	// incremental parsing it may exceed len(Payload) until Complete.
	DataSize int

	// cursor tracks how many header bytes have been consumed so far by
	// Feed; payload progress is len(Payload). 0 means parsing has not
	// started.
	cursor int
	// header accumulates the fixed-size header across short Feed calls
	// until cursor reaches headerSize.
	header []byte

	Allocated bool // Payload was allocated by this package (vs. caller-owned)
	Complete  bool // true once the full frame has been parsed or built
	FreeData  bool // Free() should release Payload
	FromPool  bool // Payload came from an installed PayloadAllocator, not a plain make()
}

// CreateArgs builds a complete, ready-to-send Packet from a magic, command,
// and an ordered list of arguments. Arguments are concatenated NUL-separated
// except the last, which is not terminated (spec: the last argument extends
// to end-of-frame). Returns StatusMemoryAllocFailure only in the degenerate
// case of a negative total size, which cannot happen with well-formed input
// but is checked defensively since this path feeds a fixed-size header.
func CreateArgs(magic Magic, command Command, args [][]byte) (*Packet, error) {
	total := 0
	for i, a := range args {
		total += len(a)
		if i < len(args)-1 {
			total++ // NUL separator
		}
	}
	if total < 0 {
		return nil, gearr.NewError(gearr.StatusMemoryAllocFailure, "CreateArgs", "negative payload size")
	}

	payload := make([]byte, 0, total)
	lens := make([]int, len(args))
	for i, a := range args {
		lens[i] = len(a)
		payload = append(payload, a...)
		if i < len(args)-1 {
			payload = append(payload, 0)
		}
	}

	return &Packet{
		Magic:     magic,
		Command:   command,
		ArgLens:   lens,
		Payload:   payload,
		DataSize:  len(payload),
		Complete:  true,
		Allocated: true,
		FreeData:  true,
	}, nil
}

// Encode serializes a complete packet to its wire representation.
func Encode(p *Packet) []byte {
	buf := make([]byte, headerSize+len(p.Payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(p.Magic))
	binary.BigEndian.PutUint32(buf[4:8], uint32(p.Command))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(p.Payload)))
	copy(buf[headerSize:], p.Payload)
	return buf
}

// Free releases the packet's payload storage iff it owns it. Idempotent:
// calling Free twice, or on a packet whose payload it never owned, is a
// no-op.
func Free(p *Packet) {
	if p == nil || !p.FreeData {
		return
	}
	p.Payload = nil
	p.FreeData = false
	p.Allocated = false
}

// SplitArgs divides a complete payload into its NUL-separated arguments,
// with the final argument consuming the remainder (no trailing NUL).
// nArgs of 0 returns an empty slice.
func SplitArgs(payload []byte, nArgs int) [][]byte {
	if nArgs <= 0 {
		return nil
	}
	out := make([][]byte, 0, nArgs)
	rest := payload
	for i := 0; i < nArgs-1; i++ {
		idx := -1
		for j, b := range rest {
			if b == 0 {
				idx = j
				break
			}
		}
		if idx < 0 {
			out = append(out, rest)
			for len(out) < nArgs {
				out = append(out, nil)
			}
			return out
		}
		out = append(out, rest[:idx])
		rest = rest[idx+1:]
	}
	out = append(out, rest)
	return out
}

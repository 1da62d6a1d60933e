package wire

import (
	"encoding/binary"
	"fmt"
)

// Command is the broker's command code, the second 4-byte field of every
// frame header.
type Command uint32

// Recognized commands. Values are assigned in the order the source
// protocol historically introduced them; only the subset this core needs
// to parse/build is enumerated, not the full broker vocabulary.
const (
	CommandNone Command = iota
	CommandEchoReq
	CommandEchoRes
	CommandSubmitJob
	CommandSubmitJobBG
	CommandSubmitJobEpoch
	CommandJobCreated
	CommandGetStatus
	CommandStatusRes
	CommandWorkComplete
	CommandWorkFail
)

func (c Command) String() string {
	switch c {
	case CommandEchoReq:
		return "ECHO_REQ"
	case CommandEchoRes:
		return "ECHO_RES"
	case CommandSubmitJob:
		return "SUBMIT_JOB"
	case CommandSubmitJobBG:
		return "SUBMIT_JOB_BG"
	case CommandSubmitJobEpoch:
		return "SUBMIT_JOB_EPOCH"
	case CommandJobCreated:
		return "JOB_CREATED"
	case CommandGetStatus:
		return "GET_STATUS"
	case CommandStatusRes:
		return "STATUS_RES"
	case CommandWorkComplete:
		return "WORK_COMPLETE"
	case CommandWorkFail:
		return "WORK_FAIL"
	default:
		return fmt.Sprintf("COMMAND(%d)", uint32(c))
	}
}

// NewEcho builds an ECHO_REQ packet carrying workload as its sole argument.
func NewEcho(workload []byte) (*Packet, error) {
	return CreateArgs(MagicRequest, CommandEchoReq, [][]byte{workload})
}

// NewSubmitJob builds a SUBMIT_JOB packet: function name, unique job name,
// and the opaque invocation payload (three NUL-separated arguments, per
// the broker's job-submission convention).
func NewSubmitJob(function, uniqueName string, payload []byte) (*Packet, error) {
	return CreateArgs(MagicRequest, CommandSubmitJob, [][]byte{
		[]byte(function), []byte(uniqueName), payload,
	})
}

// NewSubmitJobBG is NewSubmitJob's background-submission variant: fire and
// forget, no status is tracked by the caller unless it separately polls
// GET_STATUS with the returned handle.
func NewSubmitJobBG(function, uniqueName string, payload []byte) (*Packet, error) {
	return CreateArgs(MagicRequest, CommandSubmitJobBG, [][]byte{
		[]byte(function), []byte(uniqueName), payload,
	})
}

// NewSubmitJobEpoch builds a SUBMIT_JOB_EPOCH packet, requesting the broker
// not run the job before the given absolute Unix timestamp. The epoch
// field is encoded as a big-endian uint32 (Unix seconds), matching the
// source protocol's scheduled-run encoding.
func NewSubmitJobEpoch(function, uniqueName string, epochSeconds int64, payload []byte) (*Packet, error) {
	var epochBuf [4]byte
	binary.BigEndian.PutUint32(epochBuf[:], uint32(epochSeconds))
	return CreateArgs(MagicRequest, CommandSubmitJobEpoch, [][]byte{
		[]byte(function), []byte(uniqueName), epochBuf[:], payload,
	})
}

// NewGetStatus builds a GET_STATUS packet for the given opaque job handle.
func NewGetStatus(handle string) (*Packet, error) {
	return CreateArgs(MagicRequest, CommandGetStatus, [][]byte{[]byte(handle)})
}

// JobHandle is the opaque identifier a broker issues for a submitted job,
// used for status polling.
type JobHandle string

// JobCreated parses a JOB_CREATED reply's sole argument into a handle.
func JobCreated(p *Packet) (JobHandle, error) {
	args := SplitArgs(p.Payload, 1)
	if len(args) != 1 {
		return "", fmt.Errorf("wire: malformed JOB_CREATED payload")
	}
	return JobHandle(args[0]), nil
}

// Status mirrors the broker's STATUS_RES fields: whether the handle is
// known at all, whether a worker currently holds it, and
// numerator/denominator progress (both zero before the first update).
type Status struct {
	Handle      JobHandle
	Known       bool
	Running     bool
	Numerator   int64
	Denominator int64
}

// DecodeStatus parses a STATUS_RES packet's five NUL-separated arguments
// (handle, known, running, numerator, denominator).
func DecodeStatus(p *Packet) (Status, error) {
	args := SplitArgs(p.Payload, 5)
	if len(args) != 5 {
		return Status{}, fmt.Errorf("wire: malformed STATUS_RES payload")
	}
	var s Status
	s.Handle = JobHandle(args[0])
	s.Known = string(args[1]) == "1"
	s.Running = string(args[2]) == "1"
	fmt.Sscanf(string(args[3]), "%d", &s.Numerator)
	fmt.Sscanf(string(args[4]), "%d", &s.Denominator)
	return s, nil
}

// EncodeStatus serializes a Status as a STATUS_RES packet; used by test
// fakes standing in for a broker.
func EncodeStatus(s Status) (*Packet, error) {
	boolByte := func(b bool) []byte {
		if b {
			return []byte("1")
		}
		return []byte("0")
	}
	return CreateArgs(MagicResponse, CommandStatusRes, [][]byte{
		[]byte(s.Handle),
		boolByte(s.Known),
		boolByte(s.Running),
		[]byte(fmt.Sprintf("%d", s.Numerator)),
		[]byte(fmt.Sprintf("%d", s.Denominator)),
	})
}

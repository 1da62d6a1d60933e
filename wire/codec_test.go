package wire

import (
	"bytes"
	"testing"
)

func TestCreateArgsEncodeFeedRoundTrip(t *testing.T) {
	args := [][]byte{[]byte("submit_job"), []byte("job-1"), []byte("payload-bytes")}
	p, err := CreateArgs(MagicRequest, CommandSubmitJob, args)
	if err != nil {
		t.Fatalf("CreateArgs: %v", err)
	}

	raw := Encode(p)

	got := NewIncomplete()
	consumed, result := Feed(got, raw)
	if result != ParseComplete {
		t.Fatalf("Feed result = %v, want ParseComplete", result)
	}
	if consumed != len(raw) {
		t.Fatalf("consumed = %d, want %d", consumed, len(raw))
	}

	if got.Magic != p.Magic || got.Command != p.Command {
		t.Fatalf("magic/command mismatch: got %v/%v want %v/%v", got.Magic, got.Command, p.Magic, p.Command)
	}
	if !bytes.Equal(got.Payload, p.Payload) {
		t.Fatalf("payload mismatch: got %q want %q", got.Payload, p.Payload)
	}

	split := SplitArgs(got.Payload, len(args))
	for i, a := range args {
		if !bytes.Equal(split[i], a) {
			t.Fatalf("arg %d = %q, want %q", i, split[i], a)
		}
	}
}

func TestFeedAcrossArbitraryByteBoundaries(t *testing.T) {
	p, err := CreateArgs(MagicRequest, CommandEchoReq, [][]byte{[]byte("hello")})
	if err != nil {
		t.Fatalf("CreateArgs: %v", err)
	}
	raw := Encode(p)

	got := NewIncomplete()
	total := 0
	for i := 0; i < len(raw); i++ {
		n, result := Feed(got, raw[i:i+1])
		total += n
		if i < len(raw)-1 {
			if result != ParseNeedMore {
				t.Fatalf("at byte %d: result = %v, want ParseNeedMore", i, result)
			}
		} else {
			if result != ParseComplete {
				t.Fatalf("at final byte: result = %v, want ParseComplete", result)
			}
		}
	}
	if total != len(raw) {
		t.Fatalf("total consumed = %d, want %d", total, len(raw))
	}
	if !bytes.Equal(got.Payload, []byte("hello")) {
		t.Fatalf("payload = %q, want %q", got.Payload, "hello")
	}
}

func TestFeedTrailingBytesBelongToNextFrame(t *testing.T) {
	p1, _ := CreateArgs(MagicRequest, CommandEchoReq, [][]byte{[]byte("a")})
	p2, _ := CreateArgs(MagicRequest, CommandEchoReq, [][]byte{[]byte("bb")})
	raw := append(Encode(p1), Encode(p2)...)

	got1 := NewIncomplete()
	n1, result := Feed(got1, raw)
	if result != ParseComplete {
		t.Fatalf("first frame result = %v, want ParseComplete", result)
	}
	if n1 != len(Encode(p1)) {
		t.Fatalf("first frame consumed %d bytes, want %d (must not eat into next frame)", n1, len(Encode(p1)))
	}

	got2 := NewIncomplete()
	n2, result2 := Feed(got2, raw[n1:])
	if result2 != ParseComplete {
		t.Fatalf("second frame result = %v, want ParseComplete", result2)
	}
	if !bytes.Equal(got2.Payload, []byte("bb")) {
		t.Fatalf("second frame payload = %q, want %q", got2.Payload, "bb")
	}
	if n1+n2 != len(raw) {
		t.Fatalf("total consumed %d, want %d", n1+n2, len(raw))
	}
}

func TestFeedProtocolViolationOnBadMagic(t *testing.T) {
	raw := make([]byte, headerSize)
	// Leave magic as zero, which is not MagicRequest/Response/Text.
	raw[11] = 0 // payload length 0

	got := NewIncomplete()
	_, result := Feed(got, raw)
	if result != ParseProtocolViolation {
		t.Fatalf("result = %v, want ParseProtocolViolation", result)
	}
}

func TestFreeIsIdempotent(t *testing.T) {
	p, _ := CreateArgs(MagicRequest, CommandEchoReq, [][]byte{[]byte("x")})
	Free(p)
	if p.FreeData {
		t.Fatalf("FreeData still true after Free")
	}
	Free(p) // must not panic
}

func TestStatusRoundTrip(t *testing.T) {
	want := Status{Handle: "H:job:1", Known: true, Running: true, Numerator: 3, Denominator: 10}
	p, err := EncodeStatus(want)
	if err != nil {
		t.Fatalf("EncodeStatus: %v", err)
	}
	got, err := DecodeStatus(p)
	if err != nil {
		t.Fatalf("DecodeStatus: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

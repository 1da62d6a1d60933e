package engine

import (
	"testing"

	"github.com/zy643208/gearmand/gearr"
	"github.com/zy643208/gearmand/metrics"
	"github.com/zy643208/gearmand/wire"
)

// TestEventWatchSinkReceivesReady wires a metrics.Collector in as the
// engine's EventWatchSink and checks the OnReady dispatch during a ready
// wait. The OnTimeout path is covered by TestEventWatchSinkReceivesTimeout.
func TestEventWatchSinkReceivesReady(t *testing.T) {
	host, port := startFakeBroker(t, nil)

	e := Create(nil)
	defer e.Free()
	e.AddOption(OptNonBlocking)
	e.SetTimeout(200)

	collector := metrics.New()
	e.SetEventWatchSink(collector)

	c, err := e.AddConnection(host, port)
	if err != nil {
		t.Fatalf("AddConnection: %v", err)
	}

	req, err := wire.NewEcho([]byte("hi"))
	if err != nil {
		t.Fatalf("wire.NewEcho: %v", err)
	}
	if status, sendErr := c.Send(req, false); status != gearr.StatusIOWait && status != gearr.StatusOK {
		t.Fatalf("Send status = %v (%v)", status, sendErr)
	}

	status, err := e.Wait()
	if status != gearr.StatusOK {
		t.Fatalf("Wait status = %v (%v), want StatusOK", status, err)
	}

	snap := collector.Snapshot()
	if snap.Writes == 0 {
		t.Fatalf("expected at least one write-readiness dispatch, snapshot = %+v", snap)
	}
}

func TestEventWatchSinkReceivesTimeout(t *testing.T) {
	host, port := startSilentListener(t)

	e := Create(nil)
	defer e.Free()
	e.AddOption(OptNonBlocking)
	e.SetTimeout(30)

	collector := metrics.New()
	e.SetEventWatchSink(collector)

	c, err := e.AddConnection(host, port)
	if err != nil {
		t.Fatalf("AddConnection: %v", err)
	}
	if _, _, err := c.Recv(false); err != nil {
		t.Fatalf("Recv: %v", err)
	}

	status, _ := e.Wait()
	if status != gearr.StatusTimeout {
		t.Fatalf("Wait status = %v, want StatusTimeout", status)
	}
	if got := collector.Snapshot().Timeouts; got != 1 {
		t.Fatalf("Timeouts = %d, want 1", got)
	}
}

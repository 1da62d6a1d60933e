package control

import (
	"sync"
	"testing"
)

func TestStoreSetAndSnapshot(t *testing.T) {
	s := NewStore()
	s.Set(map[string]any{KeyHost: "10.0.0.1", KeyPort: 4731})

	snap := s.Snapshot()
	if snap[KeyHost] != "10.0.0.1" {
		t.Fatalf("host = %v, want 10.0.0.1", snap[KeyHost])
	}
	if snap[KeyPort] != 4731 {
		t.Fatalf("port = %v, want 4731", snap[KeyPort])
	}
}

func TestStoreEngineDefaultsFallback(t *testing.T) {
	s := NewStore()
	d := s.EngineDefaults()
	if d.Host != "127.0.0.1" || d.Port != 4730 || d.TimeoutMS != -1 {
		t.Fatalf("defaults = %+v, want host=127.0.0.1 port=4730 timeout=-1", d)
	}
}

func TestStoreEngineDefaultsOverride(t *testing.T) {
	s := NewStore()
	s.Set(map[string]any{KeyHost: "broker.internal", KeyPort: 5000, KeyTimeoutMS: 250})

	d := s.EngineDefaults()
	if d.Host != "broker.internal" || d.Port != 5000 || d.TimeoutMS != 250 {
		t.Fatalf("defaults = %+v, want overridden host/port/timeout", d)
	}
}

func TestStoreOnReloadFiresOnSet(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	wg.Add(1)
	s.OnReload(func() { wg.Done() })

	s.Set(map[string]any{KeyPort: 4732})
	wg.Wait() // blocks forever (failing the test via timeout) if the listener never fires
}

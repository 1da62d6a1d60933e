package reactor

import (
	"os"
	"os/signal"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestPollTimeout(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	fds := []unix.PollFd{{Fd: int32(r.Fd()), Events: unix.POLLIN}}
	n, err := Poll(fds, 20)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0 (nothing written to the pipe)", n)
	}
}

func TestPollReady(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte("x"))
	}()

	fds := []unix.PollFd{{Fd: int32(r.Fd()), Events: unix.POLLIN}}
	n, err := Poll(fds, 1000)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
	if fds[0].Revents&unix.POLLIN == 0 {
		t.Fatalf("Revents = %v, want POLLIN set", fds[0].Revents)
	}
}

// TestPollRestartsOnInterrupt exercises the EINTR-retry loop directly. A
// goroutine repeatedly signals this process with SIGUSR1 for the duration
// of a long-timeout Poll call, so the blocking syscall is actually
// interrupted rather than merely hoping a stray signal arrives; a second
// goroutine makes the watched pipe readable once, after the signaling has
// had time to land a few rounds. Poll must still return success once the
// real event arrives, and the signal channel must show at least one
// delivery, confirming the retry path was actually exercised rather than
// trivially satisfied by a Poll call that never saw a signal.
func TestPollRestartsOnInterrupt(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	sigCh := make(chan os.Signal, 16)
	signal.Notify(sigCh, unix.SIGUSR1)
	defer signal.Stop(sigCh)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				unix.Kill(unix.Getpid(), unix.SIGUSR1)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	go func() {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("x"))
	}()

	fds := []unix.PollFd{{Fd: int32(r.Fd()), Events: unix.POLLIN}}
	n, err := Poll(fds, 5000)
	if err != nil {
		t.Fatalf("Poll returned an error (should retry internally on EINTR): %v", err)
	}
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}

	select {
	case <-sigCh:
	default:
		t.Fatalf("no SIGUSR1 was observed during the call; the EINTR path was never exercised")
	}
}

// Package reactor wraps the single OS readiness-wait primitive the engine
// drives every connection through. It is deliberately thin — one function
// — so the engine's Wait stays free of direct syscall plumbing. A growable
// array of poll descriptors sized to the connection count is driven
// through a single readiness-wait call: POSIX poll(2), not an
// fd-registration model with separate backends per platform.
package reactor

import "golang.org/x/sys/unix"

// Poll blocks on fds for up to timeoutMS milliseconds (negative means wait
// indefinitely), restarting transparently on EINTR so the interrupt is
// invisible to the caller. It returns the number of descriptors with
// non-zero Revents, or an error for any failure other than EINTR.
func Poll(fds []unix.PollFd, timeoutMS int) (int, error) {
	for {
		n, err := unix.Poll(fds, timeoutMS)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

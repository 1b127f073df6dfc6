// Package portprobe confirms a candidate TCP port is actually bindable
// (spec §4.6). It is an instantaneous probe, not a reservation: the
// registry combines a successful probe with a persisted entry to turn a
// momentary observation into a stable allocation.
package portprobe

import (
	"fmt"
	"net"
)

// Available reports whether port can be bound on loopback right now. It
// binds a TCP listener and immediately closes it; binding failure for any
// reason (already in use, out of range, permission denied) means the port
// is considered unavailable.
func Available(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}

	_ = ln.Close()

	return true
}

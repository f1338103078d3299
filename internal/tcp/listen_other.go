//go:build !linux

package tcp

import (
	"context"
	"net"
)

// listen opens a listening TCP socket. The backlog cannot be chosen through
// the standard library here, so the system default applies.
func listen(address string, backlog int) (net.Listener, error) {
	log.DebugS(context.Background(), "Backlog setting not supported on "+
		"this platform", "backlog", backlog)

	return net.Listen("tcp", address)
}

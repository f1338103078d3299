package tcp

import "net"

// Peer handles the traffic of one connection. Its methods are always called
// from the connection's actor, one at a time, so a Peer needs no locking of
// its own.
type Peer interface {
	// OnReceive is handed the bytes buf[offset:offset+size] exactly as
	// they arrived. buf is only valid for the duration of the call.
	OnReceive(buf []byte, offset, size int)

	// OnDisconnect is called once, after every received chunk has been
	// passed to OnReceive.
	OnDisconnect()
}

// BasePeer can be embedded to get a no-op OnDisconnect.
type BasePeer struct{}

// OnDisconnect does nothing.
func (BasePeer) OnDisconnect() {}

// Conn is the connection handle given to a PeerFactory.
type Conn interface {
	// ID is the server unique, monotonically assigned connection id.
	ID() uint64

	// Name is the name of the connection's actor.
	Name() string

	// RemoteAddr is the address of the remote end.
	RemoteAddr() net.Addr

	// Write sends p to the remote end. It is safe to call from any
	// goroutine.
	Write(p []byte) (int, error)

	// Close tears the connection down. OnDisconnect follows once the
	// chunks already received have been processed.
	Close() error
}

// PeerFactory creates the peer of a newly accepted connection.
type PeerFactory func(conn Conn) Peer

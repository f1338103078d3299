package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"syscall"

	"github.com/roasbeef/agata/internal/actor"
)

// connection is the server side state of one accepted socket.
type connection struct {
	id     uint64
	name   string
	server *Server
	sock   *net.TCPConn

	// peer is bound right after the connection is built, before the
	// receive loop starts.
	peer *actor.Ref[Peer]

	connected atomic.Bool
}

// ID implements Conn.
func (c *connection) ID() uint64 {
	return c.id
}

// Name implements Conn.
func (c *connection) Name() string {
	return c.name
}

// RemoteAddr implements Conn.
func (c *connection) RemoteAddr() net.Addr {
	return c.sock.RemoteAddr()
}

// Write implements Conn.
func (c *connection) Write(p []byte) (int, error) {
	return c.sock.Write(p)
}

// Close implements Conn. It only closes the socket; the receive loop sees
// the closed socket and routes the teardown through the peer's mailbox.
func (c *connection) Close() error {
	err := c.sock.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

// receive is the read loop of the connection. It runs until the socket
// fails or reaches EOF. The goroutine is parked in the runtime netpoller
// between reads, so idle connections hold no OS thread.
func (c *connection) receive() {
	defer c.server.wg.Done()

	pool := c.server.buffers
	for {
		buf := pool.Acquire()
		n, err := c.sock.Read(buf)
		if n > 0 {
			c.deliver(buf, n)
		} else {
			_ = pool.Release(buf)
		}

		if err == nil {
			continue
		}

		// Already torn down by Server.Close, nothing left to do.
		if !c.connected.Load() {
			return
		}

		// Queued behind every delivered chunk, so the peer sees all of
		// them before OnDisconnect.
		c.peer.Schedule(func(Peer) {
			c.disconnect(err)
		})

		return
	}
}

// deliver hands buf[:n] to the peer's mailbox. The buffer goes back to the
// pool once OnReceive returns.
func (c *connection) deliver(buf []byte, n int) {
	pool := c.server.buffers
	c.peer.Schedule(func(p Peer) {
		defer func() {
			_ = pool.Release(buf)
		}()

		p.OnReceive(buf, 0, n)
	})
}

// disconnect tears the connection down. Only the first call does anything.
func (c *connection) disconnect(cause error) {
	if !c.connected.CompareAndSwap(true, false) {
		return
	}

	ctx := context.Background()
	if isExpectedDisconnect(cause) {
		log.DebugS(ctx, "Peer disconnected", "peer", c.name,
			"reason", cause)
	} else {
		log.ErrorS(ctx, "Connection failed", cause, "peer", c.name)
	}

	c.peer.Kill(func(p Peer) {
		p.OnDisconnect()
	})

	c.server.removeConnection(c.id)

	_ = c.sock.CloseWrite()
	if err := c.sock.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.DebugS(ctx, "Error closing socket", "peer", c.name,
			"err", err)
	}
}

// isExpectedDisconnect reports whether err is an ordinary way for a
// connection to end.
func isExpectedDisconnect(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, io.EOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ESHUTDOWN):

		return true

	default:
		return false
	}
}

var _ Conn = (*connection)(nil)

package tcp

import "fmt"

const (
	// DefaultBacklog is the default length of the pending accept queue.
	DefaultBacklog = 64

	// DefaultReceiveBufferSize is the default size of each receive
	// buffer.
	DefaultReceiveBufferSize = 8192

	// DefaultMaxPooledBuffers is the default number of idle receive
	// buffers a server keeps when it creates its own buffer pool.
	DefaultMaxPooledBuffers = 1024
)

// Settings are the socket level options of a server. Settings are values:
// every With method returns a modified copy.
type Settings struct {
	backlog           int
	keepAlive         bool
	noDelay           bool
	receiveBufferSize int
}

// DefaultSettings returns a backlog of 64, keep-alive on, Nagle's algorithm
// on (no-delay off) and 8 KiB receive buffers.
func DefaultSettings() Settings {
	return Settings{
		backlog:           DefaultBacklog,
		keepAlive:         true,
		noDelay:           false,
		receiveBufferSize: DefaultReceiveBufferSize,
	}
}

// Backlog returns the accept queue length.
func (s Settings) Backlog() int {
	return s.backlog
}

// KeepAlive reports whether TCP keep-alive is enabled on accepted sockets.
func (s Settings) KeepAlive() bool {
	return s.keepAlive
}

// NoDelay reports whether Nagle's algorithm is disabled on accepted
// sockets.
func (s Settings) NoDelay() bool {
	return s.noDelay
}

// ReceiveBufferSize returns the size of each receive buffer.
func (s Settings) ReceiveBufferSize() int {
	return s.receiveBufferSize
}

// WithBacklog returns a copy of s with the given backlog.
func (s Settings) WithBacklog(backlog int) Settings {
	s.backlog = backlog
	return s
}

// WithKeepAlive returns a copy of s with keep-alive set to on.
func (s Settings) WithKeepAlive(on bool) Settings {
	s.keepAlive = on
	return s
}

// WithNoDelay returns a copy of s with no-delay set to on.
func (s Settings) WithNoDelay(on bool) Settings {
	s.noDelay = on
	return s
}

// WithReceiveBufferSize returns a copy of s with the given receive buffer
// size.
func (s Settings) WithReceiveBufferSize(size int) Settings {
	s.receiveBufferSize = size
	return s
}

// String implements fmt.Stringer.
func (s Settings) String() string {
	return fmt.Sprintf("backlog=%d keepalive=%v nodelay=%v rcvbuf=%d",
		s.backlog, s.keepAlive, s.noDelay, s.receiveBufferSize)
}

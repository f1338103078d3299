// Package tcp is an actor backed TCP server. Every accepted connection gets
// its own actor whose subject is a user supplied Peer, so all processing of
// one connection is serialized without dedicating a thread to it.
package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/google/uuid"
	"github.com/roasbeef/agata/internal/actor"
	"github.com/roasbeef/agata/internal/bufpool"
	"github.com/roasbeef/agata/internal/ensure"
)

// Config describes a server.
type Config struct {
	// Address is the host:port to listen on.
	Address string

	// Settings are the socket options. The zero value means
	// DefaultSettings().
	Settings Settings

	// System hosts the connection actors. Several servers may share
	// one system.
	System *actor.System

	// Buffers supplies receive buffers. If nil, a pool of
	// Settings.ReceiveBufferSize() buffers is created.
	Buffers *bufpool.Pool

	// NewPeer creates the peer of each accepted connection.
	NewPeer PeerFactory
}

// validate checks c and fills in the defaults.
func (c *Config) validate() error {
	if c.Settings == (Settings{}) {
		c.Settings = DefaultSettings()
	}

	if err := ensure.NotBlank(c.Address, "address"); err != nil {
		return err
	}
	if err := ensure.NotNil(c.System, "actor system"); err != nil {
		return err
	}
	if err := ensure.NotNil(c.NewPeer, "peer factory"); err != nil {
		return err
	}
	if err := ensure.That(c.Settings.Backlog() > 0, "backlog",
		"must be positive"); err != nil {

		return err
	}

	if c.Buffers == nil {
		pool, err := bufpool.New(c.Settings.ReceiveBufferSize(),
			DefaultMaxPooledBuffers)
		if err != nil {
			return err
		}
		c.Buffers = pool
	}

	return nil
}

// Server accepts connections and drives one peer actor per connection.
type Server struct {
	id       uuid.UUID
	cfg      Config
	buffers  *bufpool.Pool
	listener net.Listener

	nextID atomix.Uint64

	mu    sync.Mutex
	conns map[uint64]*connection

	closed atomic.Bool
	wg     sync.WaitGroup
}

// Listen binds cfg.Address and starts accepting.
func Listen(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ln, err := listen(cfg.Address, cfg.Settings.Backlog())
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	s := &Server{
		id:       uuid.New(),
		cfg:      cfg,
		buffers:  cfg.Buffers,
		listener: ln,
		conns:    make(map[uint64]*connection),
	}

	log.InfoS(context.Background(), "Server listening",
		"addr", ln.Addr().String(), "server", s.id.String(),
		"settings", cfg.Settings.String())

	s.wg.Add(1)
	go s.acceptLoop()

	return s, nil
}

// ID returns the server instance id used in peer names.
func (s *Server) ID() uuid.UUID {
	return s.id
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.conns)
}

// Close stops accepting, disconnects every open connection and waits for
// the server goroutines to exit.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := s.listener.Close()

	s.mu.Lock()
	conns := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.disconnect(net.ErrClosed)
	}

	s.wg.Wait()

	log.InfoS(context.Background(), "Server stopped",
		"server", s.id.String())

	return err
}

// acceptLoop accepts until the listener is closed. Accept errors are
// logged and retried after a backoff.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	var bo iox.Backoff
	for {
		sock, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}

			log.ErrorS(context.Background(), "Accept failed", err,
				"server", s.id.String())
			bo.Wait()

			continue
		}
		bo.Reset()

		s.handle(sock)
	}
}

// handle sets up a freshly accepted socket.
func (s *Server) handle(sock net.Conn) {
	ctx := context.Background()

	tcpConn, ok := sock.(*net.TCPConn)
	if !ok {
		log.ErrorS(ctx, "Unexpected connection type",
			fmt.Errorf("%T", sock), "server", s.id.String())
		_ = sock.Close()

		return
	}

	settings := s.cfg.Settings
	if err := tcpConn.SetKeepAlive(settings.KeepAlive()); err != nil {
		log.WarnS(ctx, "Unable to set keep-alive", err)
	}
	if err := tcpConn.SetNoDelay(settings.NoDelay()); err != nil {
		log.WarnS(ctx, "Unable to set no-delay", err)
	}

	id := s.nextID.Add(1)
	c := &connection{
		id:     id,
		name:   fmt.Sprintf("tcp/%s/%d", s.id, id),
		server: s,
		sock:   tcpConn,
	}
	c.connected.Store(true)

	peer, err := actor.ActorOfWith(s.cfg.System, c.name,
		func() (Peer, error) {
			return s.cfg.NewPeer(c), nil
		},
	)
	if err != nil {
		log.ErrorS(ctx, "Unable to create peer", err, "peer", c.name)
		_ = tcpConn.Close()

		return
	}
	c.peer = peer

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		c.disconnect(net.ErrClosed)

		return
	}
	s.conns[id] = c
	s.wg.Add(1)
	s.mu.Unlock()

	log.DebugS(ctx, "Connection accepted", "peer", c.name,
		"remote", tcpConn.RemoteAddr().String())

	go c.receive()
}

// removeConnection drops id from the registry.
func (s *Server) removeConnection(id uint64) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

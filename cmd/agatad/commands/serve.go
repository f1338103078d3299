package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/agata/internal/actor"
	"github.com/roasbeef/agata/internal/tcp"
	"github.com/roasbeef/agata/internal/threadpool"
	"github.com/spf13/cobra"
)

// runServe starts the echo server and blocks until SIGINT or SIGTERM.
func runServe(cmd *cobra.Command, _ []string) error {
	rotator, err := setupLogging(logDir, logLevel)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	if rotator != nil {
		defer rotator.Close()
	}

	prio, err := threadpool.ParsePriority(priority)
	if err != nil {
		return err
	}

	poolCfg := threadpool.DefaultFixedPoolConfig()
	poolCfg.Name = fn.Some("agatad")
	poolCfg.Priority = prio
	if workers > 0 {
		poolCfg.Workers = fn.Some(workers)
	}

	pool, err := threadpool.NewFixedPool(poolCfg)
	if err != nil {
		return fmt.Errorf("start thread pool: %w", err)
	}
	defer pool.Close()

	sys, err := actor.NewSystem("agatad", pool)
	if err != nil {
		return err
	}

	settings := tcp.DefaultSettings().
		WithBacklog(backlog).
		WithKeepAlive(keepAlive).
		WithNoDelay(noDelay).
		WithReceiveBufferSize(bufSize)

	srv, err := tcp.Listen(tcp.Config{
		Address:  listenAddr,
		Settings: settings,
		System:   sys,
		NewPeer:  newEchoPeer,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	log.InfoS(ctx, "agatad started", "addr", srv.Addr().String(),
		"workers", pool.Workers(), "priority", prio.String())

	<-ctx.Done()

	log.InfoS(cmd.Context(), "Shutting down",
		"connections", srv.Connections())

	return srv.Close()
}

// echoPeer writes every chunk back to the client.
type echoPeer struct {
	conn     tcp.Conn
	received int
}

// newEchoPeer is the server's PeerFactory.
func newEchoPeer(conn tcp.Conn) tcp.Peer {
	log.DebugS(context.Background(), "New peer", "peer", conn.Name(),
		"remote", conn.RemoteAddr().String())

	return &echoPeer{conn: conn}
}

// OnReceive implements tcp.Peer.
func (e *echoPeer) OnReceive(buf []byte, offset, size int) {
	e.received += size

	if _, err := e.conn.Write(buf[offset : offset+size]); err != nil {
		log.WarnS(context.Background(), "Echo failed", err,
			"peer", e.conn.Name())
		_ = e.conn.Close()
	}
}

// OnDisconnect implements tcp.Peer.
func (e *echoPeer) OnDisconnect() {
	log.InfoS(context.Background(), "Peer disconnected",
		"peer", e.conn.Name(), "bytes", e.received)
}

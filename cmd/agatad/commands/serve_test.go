package commands

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/roasbeef/agata/internal/actor"
	"github.com/roasbeef/agata/internal/tcp"
	"github.com/roasbeef/agata/internal/threadpool"
	"github.com/stretchr/testify/require"
)

// TestEchoPeer runs the daemon's peer behind a real server.
func TestEchoPeer(t *testing.T) {
	sys, err := actor.NewSystem("echo", threadpool.NewSharedPool("echo"))
	require.NoError(t, err)

	srv, err := tcp.Listen(tcp.Config{
		Address:  "127.0.0.1:0",
		Settings: tcp.DefaultSettings().WithNoDelay(true),
		System:   sys,
		NewPeer:  newEchoPeer,
	})
	require.NoError(t, err)
	defer srv.Close()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	msg := []byte("ping")
	_, err = conn.Write(msg)
	require.NoError(t, err)

	got := make([]byte, len(msg))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

// TestSetupLogging checks level parsing and the rotating file.
func TestSetupLogging(t *testing.T) {
	rotator, err := setupLogging(t.TempDir(), "ACTR=debug,TCPS=info")
	require.NoError(t, err)
	require.NotNil(t, rotator)
	require.NoError(t, rotator.Close())

	_, err = setupLogging("", "loud")
	require.Error(t, err)

	rotator, err = setupLogging("", "warn")
	require.NoError(t, err)
	require.Nil(t, rotator)
}

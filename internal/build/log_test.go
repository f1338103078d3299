package build

import (
	"bytes"
	"strings"
	"testing"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
	"github.com/stretchr/testify/require"
)

// TestSubLoggerManager checks registration and level parsing.
func TestSubLoggerManager(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	mgr := NewSubLoggerManager(btclogv2.NewDefaultHandler(&out))

	var first, second btclogv2.Logger
	mgr.Register("AAAA", func(l btclogv2.Logger) { first = l })
	mgr.Register("BBBB", func(l btclogv2.Logger) { second = l })
	require.Equal(t, []string{"AAAA", "BBBB"}, mgr.Subsystems())

	require.NoError(t, mgr.SetLogLevels("warn"))
	require.Equal(t, btclog.LevelWarn, first.Level())
	require.Equal(t, btclog.LevelWarn, second.Level())
	require.False(t, DebugEnabled(first))

	require.NoError(t, mgr.SetLogLevels("AAAA=debug,BBBB=error"))
	require.Equal(t, btclog.LevelDebug, first.Level())
	require.Equal(t, btclog.LevelError, second.Level())
	require.True(t, DebugEnabled(first))

	first.Debugf("hello %s", "there")
	require.True(t, strings.Contains(out.String(), "AAAA"))
	require.True(t, strings.Contains(out.String(), "hello there"))

	require.Error(t, mgr.SetLogLevels("noisy"))
	require.Error(t, mgr.SetLogLevels("CCCC=info"))
	require.Error(t, mgr.SetLogLevels("AAAA=noisy"))
	require.Error(t, mgr.SetLogLevels("AAAA"+"=debug=x"))
}

// TestVersion checks the version string shape.
func TestVersion(t *testing.T) {
	t.Parallel()

	require.True(t, strings.HasPrefix(Version(), AppVersion))
	require.NotEmpty(t, GoVersion())
	require.Nil(t, Tags())
}

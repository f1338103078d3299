package commands

import (
	"github.com/roasbeef/agata/internal/tcp"
	"github.com/spf13/cobra"
)

var (
	// listenAddr is the address the echo server binds.
	listenAddr string

	// backlog is the accept queue length.
	backlog int

	// keepAlive toggles TCP keep-alive on accepted sockets.
	keepAlive bool

	// noDelay disables Nagle's algorithm on accepted sockets.
	noDelay bool

	// bufSize is the receive buffer size in bytes.
	bufSize int

	// workers is the number of dedicated pool workers, 0 for one per
	// CPU.
	workers int

	// priority is the worker thread priority.
	priority string

	// logLevel is a level or a list of subsystem=level pairs.
	logLevel string

	// logDir enables the rotating log file when set.
	logDir string
)

// rootCmd runs the echo server.
var rootCmd = &cobra.Command{
	Use:   "agatad",
	Short: "Actor backed TCP echo server",
	Long: `agatad accepts TCP connections and echoes every chunk it receives.

Each connection is served by its own actor running on a fixed pool of
dedicated workers; no thread is held per connection.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	def := tcp.DefaultSettings()

	flags := rootCmd.Flags()
	flags.StringVar(
		&listenAddr, "listen", "127.0.0.1:7000",
		"Address to accept connections on",
	)
	flags.IntVar(
		&backlog, "backlog", def.Backlog(),
		"Length of the pending accept queue",
	)
	flags.BoolVar(
		&keepAlive, "keepalive", def.KeepAlive(),
		"Enable TCP keep-alive on accepted sockets",
	)
	flags.BoolVar(
		&noDelay, "nodelay", def.NoDelay(),
		"Disable Nagle's algorithm on accepted sockets",
	)
	flags.IntVar(
		&bufSize, "bufsize", def.ReceiveBufferSize(),
		"Receive buffer size in bytes",
	)
	flags.IntVar(
		&workers, "workers", 0,
		"Number of dedicated workers (default: one per CPU)",
	)
	flags.StringVar(
		&priority, "priority", "normal",
		"Worker thread priority: lowest, below-normal, normal, "+
			"above-normal, highest",
	)

	rootCmd.PersistentFlags().StringVar(
		&logLevel, "loglevel", "info",
		"Log level for all subsystems, or SUBSYS=level pairs",
	)
	rootCmd.PersistentFlags().StringVar(
		&logDir, "logdir", "",
		"Directory for the rotating log file (default: console only)",
	)

	rootCmd.AddCommand(versionCmd)
}

package commands

import (
	"os"

	"github.com/btcsuite/btclog/v2"
	"github.com/roasbeef/agata/internal/actor"
	"github.com/roasbeef/agata/internal/awaiter"
	"github.com/roasbeef/agata/internal/bufpool"
	"github.com/roasbeef/agata/internal/build"
	"github.com/roasbeef/agata/internal/future"
	"github.com/roasbeef/agata/internal/tcp"
	"github.com/roasbeef/agata/internal/threadpool"
)

// Subsystem is the logging tag of the daemon itself.
const Subsystem = "AGTD"

var log = btclog.Disabled

// setupLogging wires every package logger to the console and, if logDir is
// set, to a rotating log file. The returned writer must be closed on exit.
func setupLogging(logDir, level string) (*build.RotatingLogWriter, error) {
	handlers := []btclog.Handler{btclog.NewDefaultHandler(os.Stdout)}

	var rotator *build.RotatingLogWriter
	if logDir != "" {
		rotator = build.NewRotatingLogWriter()
		err := rotator.Init(build.DefaultLogRotatorConfig(logDir))
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, btclog.NewDefaultHandler(rotator))
	}

	mgr := build.NewSubLoggerManager(handlers...)
	mgr.Register(Subsystem, func(l btclog.Logger) { log = l })
	mgr.Register(threadpool.Subsystem, threadpool.UseLogger)
	mgr.Register(future.Subsystem, future.UseLogger)
	mgr.Register(awaiter.Subsystem, awaiter.UseLogger)
	mgr.Register(actor.Subsystem, actor.UseLogger)
	mgr.Register(bufpool.Subsystem, bufpool.UseLogger)
	mgr.Register(tcp.Subsystem, tcp.UseLogger)

	if err := mgr.SetLogLevels(level); err != nil {
		if rotator != nil {
			_ = rotator.Close()
		}

		return nil, err
	}

	return rotator, nil
}

package actor

import (
	"github.com/btcsuite/btclog/v2"
	"github.com/roasbeef/agata/internal/build"
)

// Subsystem is the logging tag of this package.
const Subsystem = "ACTR"

// log is disabled until UseLogger is called.
var log = btclog.Disabled

// DisableLog disables all package log output.
func DisableLog() {
	UseLogger(btclog.Disabled)
}

// UseLogger installs logger as the package logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// DebugEnabled reports whether the package logger emits debug records.
func DebugEnabled() bool {
	return build.DebugEnabled(log)
}

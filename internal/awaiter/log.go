package awaiter

import "github.com/btcsuite/btclog/v2"

// Subsystem is the logging tag of this package.
const Subsystem = "AWTR"

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

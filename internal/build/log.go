// Package build holds the logging backend shared by the agata packages and
// the daemon: sub-logger registration, level parsing, console/file fan-out
// and log file rotation.
package build

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// LoggerSetter installs a logger into a package, e.g. actor.UseLogger.
type LoggerSetter func(btclogv2.Logger)

// SubLoggerManager creates one tagged logger per subsystem on top of a
// single handler and keeps track of them so their levels can be changed
// together.
type SubLoggerManager struct {
	handler btclogv2.Handler

	mu      sync.Mutex
	loggers map[string]btclogv2.Logger
}

// NewSubLoggerManager creates a manager writing to the given handlers.
func NewSubLoggerManager(handlers ...btclogv2.Handler) *SubLoggerManager {
	return &SubLoggerManager{
		handler: NewHandlerSet(handlers...),
		loggers: make(map[string]btclogv2.Logger),
	}
}

// Register creates the logger for subsystem and hands it to setter.
// Registering the same subsystem twice replaces the previous logger.
func (m *SubLoggerManager) Register(subsystem string, setter LoggerSetter) {
	logger := btclogv2.NewSLogger(m.handler.SubSystem(subsystem))

	m.mu.Lock()
	m.loggers[subsystem] = logger
	m.mu.Unlock()

	setter(logger)
}

// Subsystems returns the registered subsystem tags in sorted order.
func (m *SubLoggerManager) Subsystems() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	tags := make([]string, 0, len(m.loggers))
	for tag := range m.loggers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return tags
}

// SetLogLevels parses a level spec and applies it. The spec is either a
// single level applied to every subsystem ("debug") or a comma separated
// list of subsystem=level pairs ("ACTR=trace,TCPS=info").
func (m *SubLoggerManager) SetLogLevels(spec string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !strings.Contains(spec, "=") {
		level, ok := btclog.LevelFromString(spec)
		if !ok {
			return fmt.Errorf("invalid log level %q", spec)
		}
		for _, logger := range m.loggers {
			logger.SetLevel(level)
		}

		return nil
	}

	for _, pair := range strings.Split(spec, ",") {
		fields := strings.Split(pair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("invalid subsystem level pair %q",
				pair)
		}

		tag, levelStr := fields[0], fields[1]
		logger, ok := m.loggers[tag]
		if !ok {
			return fmt.Errorf("unknown subsystem %q", tag)
		}

		level, ok := btclog.LevelFromString(levelStr)
		if !ok {
			return fmt.Errorf("invalid log level %q for %s",
				levelStr, tag)
		}
		logger.SetLevel(level)
	}

	return nil
}

// DebugEnabled reports whether logger would emit debug records. It is the
// guard used before building expensive debug messages.
func DebugEnabled(logger btclogv2.Logger) bool {
	return logger.Level() <= btclog.LevelDebug
}

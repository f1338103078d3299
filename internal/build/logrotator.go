package build

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
)

const (
	// DefaultMaxLogFiles is the number of rotated files kept on disk.
	DefaultMaxLogFiles = 10

	// DefaultMaxLogFileSize is the size in MB at which a log file is
	// rotated.
	DefaultMaxLogFileSize = 20

	// DefaultLogFilename is the daemon's log file name.
	DefaultLogFilename = "agatad.log"
)

// LogRotatorConfig configures the rotating file writer.
type LogRotatorConfig struct {
	// LogDir is the directory log files are written to.
	LogDir string

	// MaxLogFiles is the number of rotated files to keep. Zero keeps a
	// single, unbounded file.
	MaxLogFiles int

	// MaxLogFileSize is the rotation threshold in megabytes.
	MaxLogFileSize int

	// Filename overrides DefaultLogFilename when set.
	Filename string
}

// DefaultLogRotatorConfig returns the rotation defaults for the given
// directory.
func DefaultLogRotatorConfig(dir string) *LogRotatorConfig {
	return &LogRotatorConfig{
		LogDir:         dir,
		MaxLogFiles:    DefaultMaxLogFiles,
		MaxLogFileSize: DefaultMaxLogFileSize,
		Filename:       DefaultLogFilename,
	}
}

// RotatingLogWriter is an io.Writer that feeds a jrick/logrotate rotator
// through a pipe. Writes before Init are discarded.
type RotatingLogWriter struct {
	pipe    *io.PipeWriter
	rotator *rotator.Rotator
}

// NewRotatingLogWriter returns an uninitialised writer.
func NewRotatingLogWriter() *RotatingLogWriter {
	return &RotatingLogWriter{}
}

// Init creates the log directory and starts the rotator goroutine.
func (r *RotatingLogWriter) Init(cfg *LogRotatorConfig) error {
	filename := cfg.Filename
	if filename == "" {
		filename = DefaultLogFilename
	}

	logFile := filepath.Join(cfg.LogDir, filename)
	if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
		return fmt.Errorf("unable to create log directory: %w", err)
	}

	// The rotator takes its threshold in kilobytes.
	var err error
	r.rotator, err = rotator.New(
		logFile, int64(cfg.MaxLogFileSize*1024), false,
		cfg.MaxLogFiles,
	)
	if err != nil {
		return fmt.Errorf("unable to create file rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		// The rotator is the log destination, so failures can only
		// go to stderr.
		if err := r.rotator.Run(pr); err != nil {
			_, _ = fmt.Fprintf(
				os.Stderr, "log rotator stopped: %v\n", err,
			)
		}
	}()

	r.pipe = pw

	return nil
}

// Write sends b to the rotator.
func (r *RotatingLogWriter) Write(b []byte) (int, error) {
	if r.pipe == nil {
		return len(b), nil
	}

	return r.pipe.Write(b)
}

// Close flushes and stops the rotator.
func (r *RotatingLogWriter) Close() error {
	if r.pipe == nil {
		return nil
	}

	if err := r.pipe.Close(); err != nil {
		return err
	}

	return r.rotator.Close()
}

//go:build linux

package threadpool

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setThreadPriority applies p to the calling thread. On Linux setpriority
// with a thread id only affects that thread.
func setThreadPriority(p Priority) error {
	tid := unix.Gettid()
	err := unix.Setpriority(unix.PRIO_PROCESS, tid, p.niceValue())
	if err != nil {
		return fmt.Errorf("setpriority(tid=%d, nice=%d): %w", tid,
			p.niceValue(), err)
	}

	return nil
}

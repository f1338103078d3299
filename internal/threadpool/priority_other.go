//go:build !linux

package threadpool

// setThreadPriority is a no-op where per-thread nice values are not
// available.
func setThreadPriority(Priority) error {
	return nil
}

package threadpool

import (
	"fmt"
	"runtime"
	"strings"
)

// Priority is the scheduling priority of a dedicated worker thread. The
// zero value is PriorityNormal.
type Priority int

const (
	// PriorityLowest runs workers at the lowest OS priority.
	PriorityLowest Priority = iota - 2

	// PriorityBelowNormal runs workers below the default priority.
	PriorityBelowNormal

	// PriorityNormal leaves the OS default untouched.
	PriorityNormal

	// PriorityAboveNormal raises worker priority. Usually needs
	// privileges.
	PriorityAboveNormal

	// PriorityHighest raises worker priority to the highest level we
	// use. Usually needs privileges.
	PriorityHighest
)

var priorityNames = map[Priority]string{
	PriorityLowest:      "lowest",
	PriorityBelowNormal: "below-normal",
	PriorityNormal:      "normal",
	PriorityAboveNormal: "above-normal",
	PriorityHighest:     "highest",
}

// String returns the flag spelling of p.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}

	return fmt.Sprintf("Priority(%d)", int(p))
}

// niceValue maps p onto a unix nice value.
func (p Priority) niceValue() int {
	switch p {
	case PriorityLowest:
		return 19
	case PriorityBelowNormal:
		return 10
	case PriorityAboveNormal:
		return -5
	case PriorityHighest:
		return -10
	default:
		return 0
	}
}

// ParsePriority parses the flag spelling of a priority.
func ParsePriority(s string) (Priority, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for p, name := range priorityNames {
		if name == want {
			return p, nil
		}
	}

	return PriorityNormal, fmt.Errorf("unknown thread priority %q", s)
}

// PinThread locks the calling goroutine to its OS thread and applies p to
// that thread. The thread stays locked for the rest of the goroutine's
// life, so it is discarded by the runtime when the goroutine exits and the
// priority never leaks to other goroutines.
func PinThread(p Priority) error {
	runtime.LockOSThread()

	if p == PriorityNormal {
		return nil
	}

	return setThreadPriority(p)
}

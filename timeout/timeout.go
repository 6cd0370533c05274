// Package timeout implements the LoopDriver hook that kills a run's child
// process once wall-clock elapsed exceeds a configured threshold.
package timeout

import "time"

// Termination is returned by [Hook.Check] once the deadline has passed.
type Termination struct {
	Code   int
	Output string
}

// Hook tracks elapsed wall-clock time since construction and, once past
// Limit, invokes Stop (expected to deliver SIGKILL to the child, and its
// process group if configured) exactly once.
//
// Timeout is checked only at chunk boundaries by the LoopDriver; worst-case
// lateness is one main poll interval.
type Hook struct {
	start   time.Time
	limit   time.Duration
	stop    func()
	stopped bool
}

// New returns a Hook that calls stop the first time Check observes elapsed
// time beyond limit.
func New(limit time.Duration, stop func()) *Hook {
	return &Hook{start: time.Now(), limit: limit, stop: stop}
}

// Check is invoked once per LoopDriver poll tick, whether or not a chunk
// arrived. It returns a non-nil
// [Termination] (code 123, empty output) the first time the deadline has
// passed; subsequent calls after that are no-ops (stop already requested).
func (h *Hook) Check() *Termination {
	if h.stopped {
		return nil
	}
	if time.Since(h.start) <= h.limit {
		return nil
	}
	h.stopped = true
	h.stop()
	return &Termination{Code: 123, Output: ""}
}

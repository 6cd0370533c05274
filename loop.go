package cmdrun

import "time"

// Poll cadence constants from spec.md §4.4.
const (
	initDelay = 100 * time.Millisecond
	mainDelay = 1 * time.Second
)

// earlyTermination carries the sentinel (code, output) pair a chunk hook
// uses to cut a run short (timeout, QA miss-limit).
type earlyTermination struct {
	code   int
	output string
}

// chunkHook observes each received chunk against the full accumulated
// buffer and may request early termination.
type chunkHook interface {
	onChunk(buf, chunk []byte) *earlyTermination
}

// loopResult is what runLoop hands back to RunCore.
type loopResult struct {
	output []byte
	early  *earlyTermination
	waitErr error
}

// runLoop replaces a blocking Wait with a poll/read cycle: it drains
// output in chunks, invokes every hook on each chunk (first hook to
// request termination wins), and keeps going until the child exits or a
// hook cuts the run short. After exit it performs one final blocking
// drain so no trailing bytes are lost, matching spec.md §4.4.
//
// prevOutputLen tracking for "no hit but still receiving" belongs to the
// QA hook itself (qa.Engine), not here — the LoopDriver only owns the
// buffer and the poll cadence.
func runLoop(h *processHandle, hooks []chunkHook) loopResult {
	var buf []byte

	waitCh := make(chan error, 1)
	go func() { waitCh <- h.cmd.Wait() }()

	time.Sleep(initDelay)

	var waitErr error
	exited := false
	for !exited {
		select {
		case waitErr = <-waitCh:
			exited = true
		default:
		}

		chunk := h.recvSome()
		if len(chunk) > 0 {
			buf = append(buf, chunk...)
		}
		// Hooks run every tick, not only when a chunk arrived: timeout and
		// QA's miss-count bailout both need to notice a silent, unresponsive
		// child, which by definition never produces a chunk to key off of.
		for _, hook := range hooks {
			if term := hook.onChunk(buf, chunk); term != nil {
				return loopResult{output: buf, early: term, waitErr: waitErr}
			}
		}
		if len(chunk) == 0 && !exited {
			time.Sleep(mainDelay)
		}
	}

	if remaining := h.drainAll(); len(remaining) > 0 {
		buf = append(buf, remaining...)
	}
	// A hook firing during the final drain still counts: the child has
	// already exited, but a QA table waiting on a trailing prompt should
	// still report its miss-limit honestly rather than silently succeeding.
	for _, hook := range hooks {
		if term := hook.onChunk(buf, nil); term != nil {
			return loopResult{output: buf, early: term, waitErr: waitErr}
		}
	}

	return loopResult{output: buf, waitErr: waitErr}
}

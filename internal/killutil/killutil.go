//go:build !windows

// Package killutil implements best-effort process (and process-group)
// termination, grounded on the teacher's signalProcess helper
// (engine/cli/process.go) generalized from "already exited" tolerance to
// full ESRCH tolerance and optional group delivery.
package killutil

import (
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// KillTasks sends sig to each pid in pids. Invalid pids (<= 0) are logged
// and skipped. When killPgid is true, the process group is resolved
// (best-effort — failure to resolve it is logged but not fatal) and the
// signal is delivered to the group as well as the pid. Errors reporting
// "no such process" are swallowed silently, matching kill(2)'s ESRCH for a
// task that already exited; any other error is logged and swallowed —
// killing is always best-effort, never fatal to the caller.
func KillTasks(pids []int, sig unix.Signal, killPgid bool, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, pid := range pids {
		if pid <= 0 {
			logger.Warn("killtasks: skipping invalid pid", zap.Int("pid", pid))
			continue
		}
		if killPgid {
			pgid, err := unix.Getpgid(pid)
			if err != nil {
				logger.Debug("killtasks: could not resolve process group", zap.Int("pid", pid), zap.Error(err))
			} else {
				deliver(-pgid, sig, logger)
			}
		}
		deliver(pid, sig, logger)
	}
}

// deliver sends sig to pid (or, when pid is negative, to the process group)
// and swallows ESRCH.
func deliver(pid int, sig unix.Signal, logger *zap.Logger) {
	if err := unix.Kill(pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return
		}
		logger.Debug("killtasks: signal delivery failed", zap.Int("pid", pid), zap.Error(err))
	}
}

// StopTask sends SIGKILL to pid without touching its process group. RunCore's
// chunk-hook-driven shutdown (timeout, QA miss-limit) does not use it: that
// path calls [KillTasks] with killPgid set, so the group is signalled too.
// Reaping is left to the caller's normal cmd.Wait(): this package only
// signals.
func StopTask(pid int, logger *zap.Logger) {
	KillTasks([]int{pid}, unix.SIGKILL, false, logger)
}

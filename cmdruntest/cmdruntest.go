//go:build !windows

// Package cmdruntest provides small shell-script fixtures for exercising
// cmdrun's timeout and QA miss-count paths without depending on any host
// binary beyond /bin/sh, grounded on the teacher's enginetest/clitest
// helper-factory shape (plain functions returning ready-to-run fixtures,
// no test-framework dependency of their own so callers can use them from
// any *_test.go).
package cmdruntest

import (
	"strconv"

	"github.com/vscrun/cmdrun"
)

// SleepLonger returns a Command that sleeps for seconds before exiting 0 —
// used to exercise [cmdrun.Timeout] against a genuinely slow child.
func SleepLonger(seconds int) cmdrun.Command {
	return cmdrun.Tokens("sleep", strconv.Itoa(seconds))
}

// InfiniteSilentStream returns a Command that produces no output at all and
// blocks well past any reasonable miss-count window, used to exercise QA's
// miss-count bailout ([cmdrun.QAMissExitCode]): a genuinely silent child,
// not merely one whose output never matches.
func InfiniteSilentStream() cmdrun.Command {
	return cmdrun.Tokens("sleep", "1000")
}

// Prompt returns a Command that prints prompt, reads one line, and echoes
// it back, used to exercise a single QA hit.
func Prompt(prompt string) cmdrun.Command {
	return cmdrun.Tokens("sh", "-c", `printf '`+prompt+`'; read -r x; printf '%s\n' "$x"`)
}

// RepeatedPrompt returns a Command that prints prompt n times, reading and
// discarding a line after each, used to exercise QA's cyclic answer reuse.
func RepeatedPrompt(prompt string, n int) cmdrun.Command {
	script := ""
	for i := 0; i < n; i++ {
		script += `printf '` + prompt + `'; read -r x; `
	}
	return cmdrun.Tokens("sh", "-c", script)
}

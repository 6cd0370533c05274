//go:build !windows

// Command runcmd demonstrates the cmdrun lifecycle: a plain run, a
// timeout-bounded run, and a scripted QA dialogue.
//
// It doubles as a smoke test — exits 0 on success, 1 on failure.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vscrun/cmdrun"
	"github.com/vscrun/cmdrun/qa"
)

func main() {
	fmt.Println("cmdrun smoke test")
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ok: run, timeout, and QA variants all behaved as expected")
}

func run() error {
	if err := checkPlainRun(); err != nil {
		return fmt.Errorf("plain run: %w", err)
	}
	if err := checkTimeout(); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	if err := checkQA(); err != nil {
		return fmt.Errorf("qa: %w", err)
	}
	return nil
}

func checkPlainRun() error {
	code, output, err := cmdrun.Run(cmdrun.Tokens("echo", "hi"))
	if err != nil {
		return err
	}
	if code != 0 || output != "hi\n" {
		return fmt.Errorf("want (0, %q), got (%d, %q)", "hi\n", code, output)
	}
	return nil
}

func checkTimeout() error {
	start := time.Now()
	code, output, err := cmdrun.Timeout(cmdrun.Tokens("sleep", "5"), 200*time.Millisecond)
	if err != nil {
		return err
	}
	if code != cmdrun.TimeoutExitCode || output != "" {
		return fmt.Errorf("want (%d, \"\"), got (%d, %q)", cmdrun.TimeoutExitCode, code, output)
	}
	if elapsed := time.Since(start); elapsed > 1300*time.Millisecond {
		return fmt.Errorf("timeout took too long: %s", elapsed)
	}
	return nil
}

func checkQA() error {
	script := `printf 'Name? '; read x; echo hello $x`
	table := qa.Table{Exact: map[string][]string{"Name? ": {"world"}}}
	code, output, err := cmdrun.QA(cmdrun.Tokens("sh", "-c", script), table)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("want exit 0, got %d (output %q)", code, output)
	}
	if !strings.Contains(output, "hello world") {
		return fmt.Errorf("want output containing %q, got %q", "hello world", output)
	}
	return nil
}

//go:build !windows

package cmdrun

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vscrun/cmdrun/cmdruntest"
	"github.com/vscrun/cmdrun/qa"
)

func TestRun_EchoHi(t *testing.T) {
	code, output, err := Run(Tokens("echo", "hi"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 || output != "hi\n" {
		t.Fatalf("want (0, %q), got (%d, %q)", "hi\n", code, output)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	code, output, err := Run(Tokens("sh", "-c", "exit 7"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 7 || output != "" {
		t.Fatalf("want (7, \"\"), got (%d, %q)", code, output)
	}
}

func TestRun_MergesStdoutAndStderr(t *testing.T) {
	code, output, err := Run(Tokens("sh", "-c", "echo out; echo err 1>&2"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("want exit 0, got %d", code)
	}
	if output != "out\nerr\n" {
		t.Fatalf("want merged streams in write order, got %q", output)
	}
}

func TestRun_InvalidCommand(t *testing.T) {
	if _, _, err := Run(Command{}); err != ErrInvalidCommand {
		t.Fatalf("want ErrInvalidCommand, got %v", err)
	}
}

func TestShell_ComposesAndRuns(t *testing.T) {
	code, output, err := Run(Shell("echo shell-mode"), WithShell(true))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 || output != "shell-mode\n" {
		t.Fatalf("want (0, %q), got (%d, %q)", "shell-mode\n", code, output)
	}
}

func TestRun_NoShell_TokenizesWithoutShellReinterpretation(t *testing.T) {
	// With shell disabled, a single-quoted argument is tokenized by
	// mvdan.cc/sh's parser, not re-split by a live shell: "a b" survives as
	// one argv element.
	code, output, err := Run(Shell(`echo 'a b'`))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 || output != "a b\n" {
		t.Fatalf("want (0, %q), got (%d, %q)", "a b\n", code, output)
	}
}

func TestWithInput_FeedsStdin(t *testing.T) {
	code, output, err := Run(Tokens("cat"), WithInputText("piped\n"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 || output != "piped\n" {
		t.Fatalf("want (0, %q), got (%d, %q)", "piped\n", code, output)
	}
}

func TestWithStartPath_ChdirsAndRestores(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marker"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	before, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	code, output, err := Run(Tokens("ls"), WithStartPath(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 || output != "marker\n" {
		t.Fatalf("want (0, %q), got (%d, %q)", "marker\n", code, output)
	}

	after, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if after != before {
		t.Fatalf("want working directory restored to %q, got %q", before, after)
	}
}

func TestWithStartPath_RejectsMissingDir(t *testing.T) {
	_, _, err := Run(Tokens("echo", "hi"), WithStartPath("/no/such/path/at/all"))
	if !errors.Is(err, ErrInvalidStartPath) {
		t.Fatalf("want ErrInvalidStartPath, got %v", err)
	}
}

func TestTimeout_KillsSlowChild(t *testing.T) {
	start := time.Now()
	code, output, err := Timeout(cmdruntest.SleepLonger(5), 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Timeout: %v", err)
	}
	if code != TimeoutExitCode || output != "" {
		t.Fatalf("want (%d, \"\"), got (%d, %q)", TimeoutExitCode, code, output)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout took too long to fire: %s", elapsed)
	}
}

func TestTimeout_FastChildUnaffected(t *testing.T) {
	code, output, err := Timeout(Tokens("echo", "fast"), time.Second)
	if err != nil {
		t.Fatalf("Timeout: %v", err)
	}
	if code != 0 || output != "fast\n" {
		t.Fatalf("want (0, %q), got (%d, %q)", "fast\n", code, output)
	}
}

func TestRunFile_WritesOutputAndReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	code, output, err := RunFile(Tokens("printf", "abc"), path)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if code != 0 || output != "" {
		t.Fatalf("want (0, \"\"), got (%d, %q)", code, output)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file target: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("want file contents %q, got %q", "abc", string(got))
	}
}

func TestRunFile_OverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	code, _, err := RunFile(Tokens("printf", "fresh"), path)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if code != 0 {
		t.Fatalf("want exit 0, got %d", code)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file target: %v", err)
	}
	if string(got) != "fresh" {
		t.Fatalf("want overwritten contents %q, got %q", "fresh", string(got))
	}
}

func TestRunFile_RejectsDirectoryTarget(t *testing.T) {
	dir := t.TempDir()
	_, _, err := RunFile(Tokens("echo", "hi"), dir)
	if err != ErrFileTargetIsDir {
		t.Fatalf("want ErrFileTargetIsDir, got %v", err)
	}
}

func TestQA_SingleHit(t *testing.T) {
	table := qa.Table{Exact: map[string][]string{"Name? ": {"world"}}}
	code, output, err := QA(cmdruntest.Prompt("Name? "), table)
	if err != nil {
		t.Fatalf("QA: %v", err)
	}
	if code != 0 {
		t.Fatalf("want exit 0, got %d (output %q)", code, output)
	}
	if output != "Name? world\n" {
		t.Fatalf("want %q, got %q", "Name? world\n", output)
	}
}

func TestQA_CyclesAnswerList(t *testing.T) {
	table := qa.Table{Exact: map[string][]string{"next? ": {"A", "B"}}}
	code, output, err := QA(cmdruntest.RepeatedPrompt("next? ", 3), table)
	if err != nil {
		t.Fatalf("QA: %v", err)
	}
	if code != 0 {
		t.Fatalf("want exit 0, got %d (output %q)", code, output)
	}
	want := "next? next? next? "
	if output != want {
		t.Fatalf("want %q, got %q", want, output)
	}
}

func TestQA_MissCountBailsOut(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises the full 20-tick miss-count window; slow")
	}
	table := qa.Table{Exact: map[string][]string{"never-matches": {"z"}}}
	code, _, err := QA(cmdruntest.InfiniteSilentStream(), table)
	if err != nil {
		t.Fatalf("QA: %v", err)
	}
	if code != QAMissExitCode {
		t.Fatalf("want exit %d, got %d", QAMissExitCode, code)
	}
}

func TestNoWorries_DoesNotError(t *testing.T) {
	code, _, err := NoWorries(Tokens("sh", "-c", "exit 3"))
	if err != nil {
		t.Fatalf("NoWorries: %v", err)
	}
	if code != 3 {
		t.Fatalf("want exit 3, got %d", code)
	}
}

func TestAsyncRun_ObservablyIdenticalToRun(t *testing.T) {
	code, output, err := AsyncRun(Tokens("echo", "async"))
	if err != nil {
		t.Fatalf("AsyncRun: %v", err)
	}
	if code != 0 || output != "async\n" {
		t.Fatalf("want (0, %q), got (%d, %q)", "async\n", code, output)
	}
}

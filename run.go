//go:build !windows

package cmdrun

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"

	"github.com/vscrun/cmdrun/internal/killutil"
	"github.com/vscrun/cmdrun/internal/shellcompose"
	"github.com/vscrun/cmdrun/internal/textutil"
	"github.com/vscrun/cmdrun/qa"
	"github.com/vscrun/cmdrun/sink"
	"github.com/vscrun/cmdrun/timeout"
)

// Execute is RunCore (C3): the single entry point every named variant below
// funnels through. It composes the command, spawns the child, feeds
// stdin, drives it to completion (blocking or loop-driven, depending on
// what hooks are installed), cleans up, and returns the sentinel-aware
// result.
func Execute(cmd Command, opts ...Option) (int, string, error) {
	cfg := ResolveOptions(opts...)
	return execute(cmd, cfg)
}

func execute(cmd Command, cfg Config) (int, string, error) {
	if cmd.isZero() {
		return 0, "", ErrInvalidCommand
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// Every log line this Run emits carries the same correlation ID, so
	// concurrent Runs' interleaved logs (external parallelism, §5) can be
	// told apart in a shared sink.
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	// Prep: optionally chdir, remembering the prior directory so it can be
	// restored on any exit path, success or failure.
	if cfg.StartPath != "" {
		prev, err := enterStartPath(cfg.StartPath)
		if err != nil {
			return 0, "", err
		}
		defer restorePath(prev, logger)
	}

	// Compose: build argv for no-shell spawn, or a single shell string.
	argv, shellStr, err := compose(cmd, cfg, logger)
	if err != nil {
		return 0, "", err
	}

	var fileHandle *os.File
	if cfg.FileTarget != "" {
		fileHandle, err = openFileTarget(cfg.FileTarget, logger)
		if err != nil {
			return 0, "", err
		}
		defer fileHandle.Close()
	}

	h, err := spawn(spawnOptions{
		argv:       argv,
		shellCmd:   shellStr,
		useShell:   cfg.UseShell,
		shellExe:   cfg.ShellExecutable,
		env:        buildEnv(cfg.Env),
		fileTarget: fileHandle,
		usePty:     cfg.Pty,
		readSize:   cfg.ReadSize,
	})
	if err != nil {
		return 0, "", err
	}

	feedStdin(h, cfg, logger)

	hooks, _ := buildHooks(h, cfg, logger)

	var result loopResult
	switch {
	case cfg.FileTarget != "":
		// File redirect shadows reading hooks: the child's stdout never
		// passes through the engine, so no hook ever observes a chunk.
		result = loopResult{waitErr: h.cmd.Wait()}
	case len(hooks) > 0 || cfg.ForceLoop:
		result = runLoop(h, hooks)
	default:
		waitErr := h.cmd.Wait()
		result = loopResult{output: h.drainAll(), waitErr: waitErr}
	}

	cleanupErr := multierr.Combine(h.closeStdout(), h.closeStdin(), h.waitReader())
	if cleanupErr != nil {
		logger.Debug("cmdrun: cleanup encountered an error", zap.Error(cleanupErr))
	}

	code, output := finalize(result)

	logPostExit(logger, code, cfg.NoWorries, cmdDescription(cmd), shellStr, output)

	return code, output, nil
}

// enterStartPath validates dir and chdirs into it, returning the previous
// working directory for restoration.
func enterStartPath(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrInvalidStartPath, dir)
	}
	prev, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cmdrun: getwd: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return "", fmt.Errorf("cmdrun: chdir: %w", err)
	}
	return prev, nil
}

// restorePath changes back to prev. A failure to restore, or a mismatch
// between the restored directory and prev, is warned but never fails the
// run — matching spec.md §4.3 step 8.
func restorePath(prev string, logger *zap.Logger) {
	if err := os.Chdir(prev); err != nil {
		logger.Warn("cmdrun: failed to restore working directory", zap.String("path", prev), zap.Error(err))
		return
	}
	if cur, err := os.Getwd(); err == nil && cur != prev {
		logger.Warn("cmdrun: working directory after restore does not match", zap.String("want", prev), zap.String("got", cur))
	}
}

// compose builds the no-shell argv or the shell-mode command string per
// spec.md §4.3 step 2.
func compose(cmd Command, cfg Config, logger *zap.Logger) (argv []string, shellStr string, err error) {
	if cfg.UseShell {
		if cmd.shell != "" {
			return nil, cmd.shell, nil
		}
		return nil, shellcompose.ComposeShell(cmd.tokens, logger), nil
	}
	if cmd.shell != "" {
		tokens, err := shellcompose.Tokenize(cmd.shell)
		if err != nil {
			return nil, "", fmt.Errorf("cmdrun: tokenize: %w", err)
		}
		if len(tokens) == 0 {
			return nil, "", ErrInvalidCommand
		}
		return tokens, "", nil
	}
	if len(cmd.tokens) == 0 {
		return nil, "", ErrInvalidCommand
	}
	return cmd.tokens, "", nil
}

// buildEnv converts a string map into the KEY=VALUE slice os/exec expects.
// A nil map means "inherit the parent's environment" (os/exec.Cmd.Env nil).
func buildEnv(env map[string]string) []string {
	if env == nil {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// openFileTarget opens filename for the FileSink redirect, creating
// missing parent directories, overwriting an existing regular file (with
// a warning), and failing if the target is a directory.
func openFileTarget(filename string, logger *zap.Logger) (*os.File, error) {
	if info, err := os.Stat(filename); err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrFileTargetIsDir, filename)
		}
		logger.Warn("cmdrun: overwriting existing file target", zap.String("path", filename))
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("cmdrun: stat file target: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cmdrun: create parent directories: %w", err)
		}
	}
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cmdrun: open file target: %w", err)
	}
	return f, nil
}

// feedStdin writes the configured input (if any) and, unless the run keeps
// stdin open for a QA dialogue, closes it immediately.
func feedStdin(h *processHandle, cfg Config, logger *zap.Logger) {
	if len(cfg.Input) > 0 {
		if _, err := h.sendAll(cfg.Input); err != nil {
			logger.Warn("cmdrun: error writing input to stdin", zap.Error(err))
		}
	}
	if !cfg.KeepStdinOpen {
		_ = h.closeStdin()
	}
}

// buildHooks assembles the chunk hooks for this run (sink, timeout, QA)
// in the order spec.md §4.7 step 1 matches questions: sinks observe every
// chunk unconditionally, then timeout, then QA — though only the first
// hook to request termination in a given chunk actually matters.
func buildHooks(h *processHandle, cfg Config, logger *zap.Logger) ([]chunkHook, *qa.Engine) {
	var hooks []chunkHook

	sinkHook := cfg.Sink
	if sinkHook == nil && cfg.wantLogSink {
		sinkHook = sink.NewLogger(logger, cfg.logSinkLevel)
	}
	if sinkHook != nil {
		hooks = append(hooks, sinkHookAdapter{s: sinkHook})
	}

	if cfg.Timeout > 0 {
		pid := h.pid
		th := timeout.New(cfg.Timeout, func() {
			killutilStopGroup(pid, logger)
		})
		hooks = append(hooks, timeoutHookAdapter{h: th})
	}

	var qaEngine *qa.Engine
	if cfg.QATable != nil {
		pid := h.pid
		eng, err := qa.Compile(cfg.QATable, cfg.AddNewline, func() {
			killutilStopGroup(pid, logger)
		}, func(written, wanted int) {
			logger.Warn("cmdrun: short write answering QA prompt",
				zap.Int("written", written), zap.Int("wanted", wanted))
		})
		if err != nil {
			logger.Error("cmdrun: invalid QA table", zap.Error(err))
		} else {
			qaEngine = eng
			hooks = append(hooks, qaHookAdapter{e: eng, send: h.sendAll})
		}
	}

	return hooks, qaEngine
}

// sinkHookAdapter adapts a [sink.Hook] to [chunkHook]; sinks never request
// termination, and ignore the empty chunk runLoop passes on ticks where the
// child produced nothing.
type sinkHookAdapter struct{ s sink.Hook }

func (a sinkHookAdapter) onChunk(_ []byte, chunk []byte) *earlyTermination {
	if len(chunk) == 0 {
		return nil
	}
	_ = a.s.OnChunk(chunk)
	return nil
}

// timeoutHookAdapter adapts a [timeout.Hook] to [chunkHook].
type timeoutHookAdapter struct{ h *timeout.Hook }

func (a timeoutHookAdapter) onChunk(_ []byte, _ []byte) *earlyTermination {
	t := a.h.Check()
	if t == nil {
		return nil
	}
	return &earlyTermination{code: t.Code, output: t.Output}
}

// qaHookAdapter adapts a [qa.Engine] to [chunkHook].
type qaHookAdapter struct {
	e    *qa.Engine
	send func([]byte) (int, error)
}

func (a qaHookAdapter) onChunk(buf []byte, _ []byte) *earlyTermination {
	term, err := a.e.Feed(buf, a.send)
	if err != nil || term == nil {
		return nil
	}
	return &earlyTermination{code: term.Code, output: term.Output}
}

// finalize extracts the returned (code, output) pair from a loopResult,
// coercing the output through [textutil.ToASCII] in both cases: the child's
// real output and the output carried by a sentinel early termination.
func finalize(r loopResult) (int, string) {
	if r.early != nil {
		return r.early.code, textutil.ToASCII([]byte(r.early.output))
	}
	return exitCodeFrom(r.waitErr), textutil.ToASCII(r.output)
}

// exitCodeFrom extracts a real exit status from the error [*exec.Cmd.Wait]
// returned, treating nil as success and anything that isn't an
// [*exec.ExitError] as an unknown failure (-1).
func exitCodeFrom(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// cmdDescription renders the original (pre-composition) command for
// logging.
func cmdDescription(cmd Command) string {
	if cmd.shell != "" {
		return cmd.shell
	}
	return strings.Join(cmd.tokens, " ")
}

// logPostExit logs a non-zero exit at error level, or debug for the
// NoWorries variant, including the original command, the shell-composed
// form, and the captured output — matching spec.md §4.3 step 7.
func logPostExit(logger *zap.Logger, code int, noWorries bool, original, composed, output string) {
	if code == 0 {
		return
	}
	level := zapcore.ErrorLevel
	if noWorries {
		level = zapcore.DebugLevel
	}
	logger.Log(level, "cmdrun: command exited non-zero",
		zap.Int("code", code),
		zap.String("command", original),
		zap.String("shell_command", composed),
		zap.String("output", output),
	)
}

// killutilStopGroup delivers SIGKILL to pid and its process group,
// matching the engine's "cancellation via group-kill" design (§1, §5).
func killutilStopGroup(pid int, logger *zap.Logger) {
	killutil.KillTasks([]int{pid}, unix.SIGKILL, true, logger)
}

// --- Public surface (spec.md §6) ---

// Run executes cmd and returns (exit code, captured output). Default:
// no-shell, blocking, non-zero exits logged at error level.
func Run(cmd Command, opts ...Option) (int, string, error) {
	return Execute(cmd, opts...)
}

// NoWorries is [Run] with non-zero-exit logging demoted to debug.
func NoWorries(cmd Command, opts ...Option) (int, string, error) {
	return Execute(cmd, append(opts, withNoWorries())...)
}

// AsyncRun is [Run] driven through the loop-driven (non-blocking) read
// path instead of a single post-Wait drain. Observably identical to Run;
// present because spec.md names it as a distinct entry point historically
// tied to a different process back-end.
func AsyncRun(cmd Command, opts ...Option) (int, string, error) {
	return Execute(cmd, append(opts, withForceLoop())...)
}

// AsyncLoop is [AsyncRun] under the name spec.md uses when the caller
// cares specifically that the LoopDriver (not a blocking wait) is active,
// e.g. because other hooks will be layered in by the caller's own Option
// values.
func AsyncLoop(cmd Command, opts ...Option) (int, string, error) {
	return Execute(cmd, append(opts, withForceLoop())...)
}

// AsyncToStdout is [AsyncLoop] with a [sink.Stdout] attached, so output
// streams to the calling process's stdout as it arrives.
func AsyncToStdout(cmd Command, opts ...Option) (int, string, error) {
	return Execute(cmd, append(opts, withSink(sink.NewStdout(os.Stdout)), withForceLoop())...)
}

// Timeout runs cmd, killing it (and its process group) if it has not
// exited after d. On expiry, returns ([TimeoutExitCode], "").
func Timeout(cmd Command, d time.Duration, opts ...Option) (int, string, error) {
	return Execute(cmd, append(opts, withTimeout(d))...)
}

// RunFile runs cmd with its merged stdout/stderr redirected directly to
// filename. The returned output is always empty — the engine never reads
// the bytes, since the file handle, not the engine, owns the file
// descriptor.
func RunFile(cmd Command, filename string, opts ...Option) (int, string, error) {
	return Execute(cmd, append(opts, withFileTarget(filename))...)
}

// QA runs cmd with a scripted question/answer dialogue: table's patterns
// are matched against the accumulating output, and the corresponding
// (cyclically reused) answer is written back through stdin. Returns
// ([QAMissExitCode], <accumulated output>) if more than
// [qa.MaxMissCount] consecutive polls pass with no match and no progress.
func QA(cmd Command, table qa.Table, opts ...Option) (int, string, error) {
	return Execute(cmd, append(opts, withQA(&table))...)
}

// QALog is [QA] with a [sink.Logger] side-sink at info level, so the
// dialogue's raw output is also streamed to the logger as it arrives.
func QALog(cmd Command, table qa.Table, opts ...Option) (int, string, error) {
	return Execute(cmd, append(opts, withQA(&table), withLogSink(zapcore.InfoLevel))...)
}

// QAStdout is [QA] with a [sink.Stdout] side-sink, so the dialogue's raw
// output is also echoed to the calling process's stdout as it arrives.
func QAStdout(cmd Command, table qa.Table, opts ...Option) (int, string, error) {
	return Execute(cmd, append(opts, withQA(&table), withSink(sink.NewStdout(os.Stdout)))...)
}

// Pty runs cmd with the child attached to a pseudo-terminal master/slave
// pair bound to all three standard fds. The engine never reads from the
// pty master, so the returned output is always empty for this variant. The
// master is not handed to the caller and no sink ever sees the pty's bytes;
// the master is closed during cleanup once the child has exited.
func Pty(cmd Command, opts ...Option) (int, string, error) {
	return Execute(cmd, append(opts, withPty())...)
}

package cmdrun

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vscrun/cmdrun/qa"
	"github.com/vscrun/cmdrun/sink"
)

// DefaultShell is the shell executable used when shell interpretation is
// requested and no explicit executable is configured.
const DefaultShell = "/bin/bash"

// DefaultReadSize is the chunk size, in bytes, requested from the process
// adapter on each non-blocking read.
const DefaultReadSize = 4096

// Config holds resolved, immutable-for-the-run configuration. Callers never
// build one directly; it is assembled by [ResolveOptions] from a slice of
// [Option] values, mirroring the teacher library's StartOptions/Option
// pattern.
type Config struct {
	Input           []byte
	StartPath       string
	UseShell        bool
	ShellExecutable string
	Env             map[string]string
	ReadSize        int
	KeepStdinOpen   bool

	Logger     *zap.Logger
	DisableLog bool
	NoWorries  bool // demote non-zero-exit logging from error to debug

	FileTarget string
	Timeout    time.Duration
	QATable    *qa.Table
	AddNewline bool
	Sink       sink.Hook
	Pty        bool
	ForceLoop  bool

	wantLogSink  bool
	logSinkLevel zapcore.Level
}

// Option configures a [Execute] invocation.
type Option func(*Config)

// ResolveOptions applies functional options over a zero-value [Config] with
// package defaults, then returns the resolved config. Later options win
// over earlier ones for the same field; nil options are skipped.
func ResolveOptions(opts ...Option) Config {
	cfg := Config{
		ShellExecutable: DefaultShell,
		ReadSize:        DefaultReadSize,
		AddNewline:      true,
		Logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.DisableLog {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

// WithInput feeds data to the child's stdin before it is closed (or, for
// QA runs, kept open for the duration of the dialogue).
func WithInput(data []byte) Option {
	return func(c *Config) { c.Input = data }
}

// WithInputText is [WithInput] for text input, encoded as UTF-8.
func WithInputText(text string) Option {
	return func(c *Config) { c.Input = []byte(text) }
}

// WithStartPath changes into dir before spawning the child and restores
// the previous working directory afterward, success or failure.
func WithStartPath(dir string) Option {
	return func(c *Config) { c.StartPath = dir }
}

// WithShell enables shell interpretation of the command.
func WithShell(enable bool) Option {
	return func(c *Config) { c.UseShell = enable }
}

// WithShellExecutable overrides the shell binary used when shell
// interpretation is enabled.
func WithShellExecutable(path string) Option {
	return func(c *Config) { c.ShellExecutable = path }
}

// WithEnv sets the child's environment. A nil map means "inherit the
// parent's environment", matching [os/exec.Cmd.Env] semantics.
func WithEnv(env map[string]string) Option {
	return func(c *Config) { c.Env = env }
}

// WithReadSize overrides the chunk size requested from the process adapter.
func WithReadSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ReadSize = n
		}
	}
}

// WithLogger sets the structured logger used for post-exit and streaming
// logs. The zero value (unset) logs nowhere, matching [zap.NewNop].
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithDisableLog routes all log output for this run to a no-op sink,
// overriding any logger set via [WithLogger].
func WithDisableLog() Option {
	return func(c *Config) { c.DisableLog = true }
}

// withNoWorries demotes post-exit non-zero-exit logging to debug. Set by
// [NoWorries]; not exported since it is a variant selector, not a
// general-purpose knob.
func withNoWorries() Option {
	return func(c *Config) { c.NoWorries = true }
}

// withFileTarget redirects the child's stdout directly to filename. Set by
// [RunFile].
func withFileTarget(filename string) Option {
	return func(c *Config) { c.FileTarget = filename }
}

// withTimeout installs the [timeout] hook. Set by [Timeout].
func withTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// withQA installs a QA dialogue table and keeps stdin open for its
// duration. Set by [QA], [QALog], and [QAStdout].
func withQA(table *qa.Table) Option {
	return func(c *Config) {
		c.QATable = table
		c.KeepStdinOpen = true
	}
}

// withSink installs a streaming output sink. Set by [AsyncToStdout] and
// [QAStdout]; [QALog] uses [withLogSink] instead.
func withSink(h sink.Hook) Option {
	return func(c *Config) { c.Sink = h }
}

// withLogSink requests a logger-backed sink built from the run's resolved
// Logger once options are collapsed. Set by [QALog].
func withLogSink(level zapcore.Level) Option {
	return func(c *Config) {
		c.wantLogSink = true
		c.logSinkLevel = level
	}
}

// withForceLoop forces the loop-driven (async) read path even when no
// hook is installed. Set by [AsyncRun] and [AsyncLoop].
func withForceLoop() Option {
	return func(c *Config) { c.ForceLoop = true }
}

// withPty requests a pseudo-terminal-backed spawn. The pty master is the
// same fd as both stdin and stdout, so the default feedStdin close (meant
// for a plain pipe) would deliver SIGHUP to the child within microseconds
// of spawn; keeping stdin open lets the master survive for the run's
// duration, matching [withQA]'s same reasoning for a dialogue's lifetime.
func withPty() Option {
	return func(c *Config) {
		c.Pty = true
		c.KeepStdinOpen = true
	}
}

// WithAddNewline controls whether a QA answer lacking a trailing newline
// gets one appended before being written to stdin. Defaults to true.
func WithAddNewline(enable bool) Option {
	return func(c *Config) { c.AddNewline = enable }
}

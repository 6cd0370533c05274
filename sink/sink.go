// Package sink provides composable LoopDriver chunk hooks for observing a
// run's output as it streams in, grounded in the shape of the teacher's
// filter package (composable, single-purpose middleware over a stream) but
// adapted from channel middleware to synchronous per-chunk callbacks, since
// the engine's loop is a single-goroutine cooperative poller, not a
// fan-out pipeline.
package sink

import (
	"bufio"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Hook observes one output chunk as it is received. Implementations must
// not block for long: the LoopDriver calls Hook synchronously between
// reads, and a slow hook delays the next poll.
type Hook interface {
	OnChunk(chunk []byte) error
}

// HookFunc adapts a plain function to [Hook].
type HookFunc func(chunk []byte) error

func (f HookFunc) OnChunk(chunk []byte) error { return f(chunk) }

// Logger streams each chunk to a [zap.Logger] at the configured level.
type Logger struct {
	L     *zap.Logger
	Level zapcore.Level
}

// NewLogger returns a [Logger] sink streaming chunks at level.
func NewLogger(l *zap.Logger, level zapcore.Level) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{L: l, Level: level}
}

func (s *Logger) OnChunk(chunk []byte) error {
	s.L.Log(s.Level, "run output", zap.ByteString("chunk", chunk))
	return nil
}

// Stdout writes each chunk directly to an io.Writer (typically os.Stdout)
// and flushes immediately, so interactive callers see output as it arrives
// rather than buffered.
type Stdout struct {
	w *bufio.Writer
}

// NewStdout wraps w (commonly os.Stdout) as a flush-on-every-chunk sink.
func NewStdout(w io.Writer) *Stdout {
	return &Stdout{w: bufio.NewWriter(w)}
}

func (s *Stdout) OnChunk(chunk []byte) error {
	if _, err := s.w.Write(chunk); err != nil {
		return err
	}
	return s.w.Flush()
}

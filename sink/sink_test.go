package sink

import (
	"bytes"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHookFunc_AdaptsPlainFunction(t *testing.T) {
	var got []byte
	h := HookFunc(func(chunk []byte) error {
		got = append(got, chunk...)
		return nil
	})
	if err := h.OnChunk([]byte("hi")); err != nil {
		t.Fatalf("OnChunk: %v", err)
	}
	if string(got) != "hi" {
		t.Fatalf("want %q, got %q", "hi", got)
	}
}

func TestStdout_WritesAndFlushesEachChunk(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	if err := s.OnChunk([]byte("a")); err != nil {
		t.Fatalf("OnChunk: %v", err)
	}
	if err := s.OnChunk([]byte("b")); err != nil {
		t.Fatalf("OnChunk: %v", err)
	}
	if buf.String() != "ab" {
		t.Fatalf("want %q, got %q", "ab", buf.String())
	}
}

func TestLogger_StreamsChunksAtConfiguredLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewLogger(zap.New(core), zapcore.InfoLevel)

	if err := l.OnChunk([]byte("chunk-data")); err != nil {
		t.Fatalf("OnChunk: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("want 1 log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("want InfoLevel, got %v", entries[0].Level)
	}
}

func TestNewLogger_NilLoggerDefaultsToNop(t *testing.T) {
	s := NewLogger(nil, zapcore.InfoLevel)
	if err := s.OnChunk([]byte("x")); err != nil {
		t.Fatalf("OnChunk on nop logger must not error: %v", err)
	}
}

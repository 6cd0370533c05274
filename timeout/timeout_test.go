package timeout

import (
	"testing"
	"time"
)

func TestHook_Check_FiresOnceAfterLimit(t *testing.T) {
	calls := 0
	h := New(10*time.Millisecond, func() { calls++ })

	if term := h.Check(); term != nil {
		t.Fatalf("want nil before limit elapses, got %+v", term)
	}

	time.Sleep(20 * time.Millisecond)

	term := h.Check()
	if term == nil {
		t.Fatal("want a termination once past the limit")
	}
	if term.Code != 123 || term.Output != "" {
		t.Fatalf("want (123, \"\"), got (%d, %q)", term.Code, term.Output)
	}
	if calls != 1 {
		t.Fatalf("want stop called exactly once, got %d", calls)
	}

	if term := h.Check(); term != nil {
		t.Fatalf("want nil on repeated Check after already stopped, got %+v", term)
	}
	if calls != 1 {
		t.Fatalf("want stop still called exactly once, got %d", calls)
	}
}

func TestHook_Check_NeverFiresBeforeLimit(t *testing.T) {
	h := New(time.Hour, func() { t.Fatal("stop must not be called") })
	for i := 0; i < 3; i++ {
		if term := h.Check(); term != nil {
			t.Fatalf("want nil well before the limit, got %+v", term)
		}
	}
}

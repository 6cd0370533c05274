package cmdrun

import (
	"errors"
	"testing"
)

func TestCmdBuilder_Add_RejectsSpaces(t *testing.T) {
	b, err := NewCmdBuilder()
	if err != nil {
		t.Fatalf("NewCmdBuilder: %v", err)
	}
	if err := b.Add("a b", nil, false); !errors.Is(err, ErrSpacesForbidden) {
		t.Fatalf("want ErrSpacesForbidden, got %v", err)
	}
	if len(b.Tokens()) != 0 {
		t.Fatalf("rejected item must not be added, got %v", b.Tokens())
	}
}

func TestCmdBuilder_Add_AllowsSpacesByDefault(t *testing.T) {
	b, err := NewCmdBuilder()
	if err != nil {
		t.Fatalf("NewCmdBuilder: %v", err)
	}
	if err := b.Add("a b", nil, true); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := b.Tokens(); len(got) != 1 || got[0] != "a b" {
		t.Fatalf("want [%q], got %v", "a b", got)
	}
}

func TestCmdBuilder_Append_AlwaysForbidden(t *testing.T) {
	b, _ := NewCmdBuilder("cmd")
	if err := b.Append("x"); !errors.Is(err, ErrDirectMutationForbidden) {
		t.Fatalf("want ErrDirectMutationForbidden, got %v", err)
	}
	if err := b.Extend([]string{"x"}); !errors.Is(err, ErrDirectMutationForbidden) {
		t.Fatalf("want ErrDirectMutationForbidden, got %v", err)
	}
	if got := b.Tokens(); len(got) != 1 || got[0] != "cmd" {
		t.Fatalf("Append/Extend must not mutate, got %v", got)
	}
}

func TestCmdBuilder_Add_Template(t *testing.T) {
	b, _ := NewCmdBuilder()
	if err := b.Add("--name=%(name)s", map[string]string{"name": "worker1"}, true); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := b.Tokens(); len(got) != 1 || got[0] != "--name=worker1" {
		t.Fatalf("want [%q], got %v", "--name=worker1", got)
	}
}

func TestCmdBuilder_Add_RejectsNonString(t *testing.T) {
	b, _ := NewCmdBuilder()
	if err := b.Add(42, nil, true); err == nil {
		t.Fatal("want error for non-string/[]string item")
	}
}

func TestFromBuilder_CopiesTokens(t *testing.T) {
	b, _ := NewCmdBuilder("echo", "hi")
	cmd := FromBuilder(b)
	_ = b.Add("more", nil, true)
	if len(cmd.tokens) != 2 {
		t.Fatalf("FromBuilder must snapshot, got %v after later mutation", cmd.tokens)
	}
}

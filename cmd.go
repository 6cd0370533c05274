package cmdrun

import (
	"fmt"
	"regexp"
	"strings"
)

var templatePlaceholder = regexp.MustCompile(`%\((\w+)\)s`)

// Command is either an opaque shell string or an ordered sequence of argv
// tokens. Construct one with [Shell], [Tokens], or [FromBuilder].
type Command struct {
	shell  string
	tokens []string
}

// Shell wraps script as an opaque shell string, passed verbatim to the
// shell when [WithShell] is enabled, or POSIX-tokenized into argv when it
// is not.
func Shell(script string) Command {
	return Command{shell: script}
}

// Tokens wraps an already-tokenized argv sequence.
func Tokens(tokens ...string) Command {
	return Command{tokens: append([]string(nil), tokens...)}
}

// FromBuilder captures the current token sequence of b.
func FromBuilder(b *CmdBuilder) Command {
	return Command{tokens: b.Tokens()}
}

// isZero reports whether the command carries neither a shell string nor
// any tokens.
func (c Command) isZero() bool {
	return c.shell == "" && len(c.tokens) == 0
}

// CmdBuilder is an append-only sequence of command tokens. Every insertion
// must go through [CmdBuilder.Add] so type and space validation always
// runs — [CmdBuilder.Append] and [CmdBuilder.Extend] exist only to return
// [ErrDirectMutationForbidden], preserving that invariant even for callers
// reaching for the conventional slice-mutation names.
type CmdBuilder struct {
	items []string
}

// NewCmdBuilder creates a CmdBuilder seeded with cmd (the command itself,
// added via [CmdBuilder.Add] with default validation).
func NewCmdBuilder(cmd ...string) (*CmdBuilder, error) {
	b := &CmdBuilder{}
	if len(cmd) == 0 {
		return b, nil
	}
	if err := b.Add(cmd, nil, true); err != nil {
		return nil, err
	}
	return b, nil
}

// Add appends items (a single string or a slice of strings) to the builder.
//
//   - If tmplVals is non-nil, each item is formatted with it via
//     Python-%-format-style `%(key)s` substitution before validation;
//     placeholders whose key is absent from tmplVals are left as they are.
//   - If allowSpaces is false, any item containing an ASCII space is
//     rejected with [ErrSpacesForbidden] and nothing is added.
func (b *CmdBuilder) Add(items any, tmplVals map[string]string, allowSpaces bool) error {
	var list []string
	switch v := items.(type) {
	case string:
		list = []string{v}
	case []string:
		list = v
	default:
		return fmt.Errorf("cmdrun: items must be a string or []string, got %T", items)
	}

	resolved := make([]string, 0, len(list))
	for _, item := range list {
		if tmplVals != nil {
			item = substituteTemplate(item, tmplVals)
		}
		if !allowSpaces && strings.Contains(item, " ") {
			return fmt.Errorf("%w: %q", ErrSpacesForbidden, item)
		}
		resolved = append(resolved, item)
	}
	b.items = append(b.items, resolved...)
	return nil
}

// Append always fails: see [CmdBuilder].
func (b *CmdBuilder) Append(string) error { return ErrDirectMutationForbidden }

// Extend always fails: see [CmdBuilder].
func (b *CmdBuilder) Extend([]string) error { return ErrDirectMutationForbidden }

// Tokens returns a copy of the builder's current token sequence.
func (b *CmdBuilder) Tokens() []string {
	return append([]string(nil), b.items...)
}

// substituteTemplate replaces `%(key)s` placeholders in item with values
// from vals, Python-%-format style.
func substituteTemplate(item string, vals map[string]string) string {
	return templatePlaceholder.ReplaceAllStringFunc(item, func(m string) string {
		key := templatePlaceholder.FindStringSubmatch(m)[1]
		if v, ok := vals[key]; ok {
			return v
		}
		return m
	})
}

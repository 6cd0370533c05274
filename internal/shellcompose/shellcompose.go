// Package shellcompose implements the two command-composition paths
// RunCore needs before spawning a child: joining an argv-style token list
// into a single shell string, and tokenizing a shell string into argv when
// shell interpretation is disabled.
package shellcompose

import (
	"strings"

	"go.uber.org/zap"
	"mvdan.cc/sh/v3/shell"
)

// ComposeShell joins tokens into a single string suitable for `sh -c`.
// Spaces inside a token are backslash-escaped so the token survives the
// shell's own re-tokenization; this is deliberately naive — it is not safe
// against other shell metacharacters (quotes, `$`, backticks, `;`, ...).
// Every composition that escapes at least one space warns through logger
// that shell composition here is unsafe quoting, not a parser — matching
// the original's unconditional per-composition warning, not a once-ever one.
func ComposeShell(tokens []string, logger *zap.Logger) string {
	escaped := make([]string, len(tokens))
	warned := false
	for i, tok := range tokens {
		if strings.Contains(tok, " ") {
			if !warned {
				logger.Warn("shell composition only escapes spaces; other shell metacharacters in command tokens are not safe")
				warned = true
			}
			tok = strings.ReplaceAll(tok, " ", `\ `)
		}
		escaped[i] = tok
	}
	return strings.Join(escaped, " ")
}

// Tokenize splits a shell command string into argv using POSIX shell
// word-splitting rules (quoting, escapes), without invoking a shell.
// Grounded on mvdan.cc/sh's tokenizer, the same POSIX-shell parser family
// referenced by the shlex-equivalent entries in the retrieval pack.
func Tokenize(command string) ([]string, error) {
	return shell.Fields(command, func(string) string { return "" })
}

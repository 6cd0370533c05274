// Package textutil provides the ASCII-coercion helper the engine applies to
// all captured process output before returning it to the caller.
//
// Grounded on the teacher's stoputil/errfmt packages: validate-then-clean,
// idempotent on already-clean input.
package textutil

import "strings"

// ToASCII coerces arbitrary bytes read from a child process into printable,
// ASCII-safe text. Bytes outside the printable ASCII range (and not plain
// newline/tab) are replaced with '?' rather than dropped, so the returned
// string always has the same length in runes as chunks it was built from
// minus any already-stripped carriage returns. Idempotent: running it twice
// produces the same result as running it once.
func ToASCII(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		switch {
		case c == '\n' || c == '\t':
			sb.WriteByte(c)
		case c == '\r':
			// drop bare CR; CRLF becomes LF
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			sb.WriteByte('?')
		}
	}
	return sb.String()
}

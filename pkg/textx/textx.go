// Package textx normalizes extracted document text before it is stored,
// embedded, or placed in a prompt.
package textx

import "strings"

// Sanitize strips the control characters extraction backends leak into their
// output, keeping tab, newline and carriage return, and trims surrounding
// space. Postgres rejects NUL in text columns, so anything headed for storage
// passes through here first.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Flatten sanitizes and collapses every whitespace run to a single space,
// turning multi-page extractor output into one line of prompt-ready text.
func Flatten(s string) string {
	return strings.Join(strings.Fields(Sanitize(s)), " ")
}

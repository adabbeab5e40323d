// Package security holds input sanitisers for values that end up on disk.
package security

import "strings"

// maxFilenameLen bounds a sanitised name.
const maxFilenameLen = 96

// SanitizeFilename turns an arbitrary label (a source name, a session id, a
// replay path) into a single path element. Runs of characters outside
// [A-Za-z0-9._-] collapse to one underscore and leading or trailing dots and
// underscores are trimmed. An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			if pendingSep {
				b.WriteByte('_')
				pendingSep = false
			}
			b.WriteRune(r)
		default:
			pendingSep = b.Len() > 0
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" || out == ".." {
		return "unknown"
	}
	return out
}

// Package security validates file names and paths derived from request or
// session data before they touch the filesystem.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

const maxFilenameLen = 128

// SanitizeFilename maps s onto ASCII letters, digits, dot, underscore and
// dash. Runs of other characters collapse into one underscore; the result
// is trimmed of leading and trailing dots and underscores and capped in
// length. An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// ResolveWithin joins dir and name and returns the absolute result, or an
// error if it would land outside dir. Symlinked parents are resolved so a
// link inside dir cannot point the write elsewhere.
func ResolveWithin(dir, name string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve directory: %w", err)
	}
	if realDir, err := filepath.EvalSymlinks(absDir); err == nil {
		absDir = realDir
	}

	target := filepath.Join(absDir, name)
	resolved := target
	if real, err := filepath.EvalSymlinks(filepath.Dir(target)); err == nil {
		resolved = filepath.Join(real, filepath.Base(target))
	}

	rel, err := filepath.Rel(absDir, resolved)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %q escapes %s", name, dir)
	}
	return resolved, nil
}

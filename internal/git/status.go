package git

import "strings"

// StatusEntry is one line of `git status --porcelain=v1 -z`.
type StatusEntry struct {
	// Code is the two-letter XY status, e.g. " M", "??", "R ".
	Code     string
	Path     string
	OrigPath string
}

// Untracked reports whether the entry is a file git does not know yet
func (e StatusEntry) Untracked() bool {
	return e.Code == "??"
}

// ParseStatus parses NUL-separated porcelain v1 output. Paths are not quoted
// in -z mode, so any byte except NUL may appear in them.
func ParseStatus(out string) []StatusEntry {
	var entries []StatusEntry
	fields := strings.Split(out, "\x00")
	for i := 0; i < len(fields); i++ {
		field := fields[i]
		if len(field) < 4 {
			continue
		}
		entry := StatusEntry{Code: field[:2], Path: field[3:]}
		// Renames and copies carry the source path in the next field
		if entry.Code[0] == 'R' || entry.Code[0] == 'C' {
			if i+1 < len(fields) {
				entry.OrigPath = fields[i+1]
				i++
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// Paths returns the affected paths of entries, in order
func Paths(entries []StatusEntry) []string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths
}

package metatree

import "strings"

// Path is an ordered sequence of name segments identifying a leaf or
// subtree, e.g. ["Survey", "STARTDATE"].
type Path []string

// ParsePath splits a comma-delimited path string into segments, trimming
// whitespace and dropping empty segments.
func ParsePath(s string) Path {
	parts := strings.Split(s, ",")
	path := make(Path, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			path = append(path, p)
		}
	}
	return path
}

// String returns the comma-joined form of the path.
func (p Path) String() string {
	return strings.Join(p, ",")
}

// Child returns a new path with an extra trailing segment.
func (p Path) Child(segment string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = segment
	return out
}

// Package filter implements the ordered byte-replacement pipeline (C1) used
// to normalize compiler output before it is compared against golden files.
package filter

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
)

// Match is a filter needle: either a literal byte sequence or a compiled
// regular expression.
type Match struct {
	regex *regexp.Regexp // nil if this is an Exact match
	exact []byte
}

// Exact builds a literal substring match. needle must not be empty.
func Exact(needle []byte) Match {
	if len(needle) == 0 {
		panic("filter: exact needle must not be empty")
	}
	return Match{exact: needle}
}

// FromRegex builds a regex match.
func FromRegex(re *regexp.Regexp) Match {
	return Match{regex: re}
}

// FromPath builds the literal Match for a filesystem path the way the
// original `impl From<&Path> for Match` does: strip a Windows verbatim
// prefix (`\\?\`) if present, then normalize backslashes to forward
// slashes so output is path-separator independent across platforms.
func FromPath(p string) Match {
	s := filepath.ToSlash(p)
	s = strings.ReplaceAll(s, `\`, "/")
	s = strings.TrimPrefix(s, "//?/")
	return Exact([]byte(s))
}

// IsRegex reports whether this Match is regex-based.
func (m Match) IsRegex() bool { return m.regex != nil }

// replaceAll applies this match to text, replacing every non-overlapping
// occurrence with replacement.
func (m Match) replaceAll(text []byte, replacement []byte) []byte {
	if m.regex != nil {
		return m.regex.ReplaceAll(text, replacement)
	}
	return bytes.ReplaceAll(text, m.exact, replacement)
}

// Entry is one (needle, replacement) pair in a Filter pipeline.
type Entry struct {
	Match       Match
	Replacement []byte
}

// Filter is an ordered list of replacements. Order is significant: later
// entries operate on the output of earlier ones.
type Filter []Entry

// Apply runs the whole pipeline over text, in order.
func (f Filter) Apply(text []byte) []byte {
	out := text
	for _, e := range f {
		out = e.Match.replaceAll(out, e.Replacement)
	}
	return out
}

// Append returns a new Filter with extra entries appended, leaving f
// untouched (Config's filter lists are read-only once workers start).
func (f Filter) Append(entries ...Entry) Filter {
	out := make(Filter, 0, len(f)+len(entries))
	out = append(out, f...)
	out = append(out, entries...)
	return out
}

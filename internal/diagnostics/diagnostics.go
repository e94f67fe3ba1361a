// Package diagnostics decodes a compiler's JSON-lines diagnostic output (C2)
// into the Message/Diagnostics tables the matcher walks. Decoding is
// gjson-based rather than struct-unmarshal: compiler diagnostic JSON carries
// many optional, deeply nested fields the matcher never looks at, and gjson
// lets us pull only the handful of paths that matter without maintaining a
// brittle schema mirror.
package diagnostics

import (
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/michaelciraci/ui-test/internal/level"
)

// Span is a region a diagnostic points at, recorded by its 1-indexed start
// line and column.
type Span struct {
	Line      int
	Column    int
	IsPrimary bool
	FileName  string
}

// Message is one decoded diagnostic: a level, rendered text, and zero or
// more spans into the source file that produced it.
type Message struct {
	Level   level.Level
	Text    string
	Code    string // compiler lint/error code, e.g. "E0308"; empty if none
	Spans   []Span
	Raw     string // the raw JSON line, kept for CI-sink rendering
}

// Diagnostics is every decoded Message from a compiler invocation, indexed
// by the primary span's line number. Messages with no primary span, or
// whose primary span falls outside the test file (e.g. in an included
// auxiliary crate), land in Unlocated.
type Diagnostics struct {
	ByLine    map[int][]Message
	Unlocated []Message
	// Rendered is the concatenated byte stream compared against the
	// `.stderr` golden file: each diagnostic's own `rendered` field (or a
	// synthesized one-line rendering if absent), plus any non-diagnostic
	// lines, in encounter order.
	Rendered []byte
}

// New returns an empty Diagnostics table.
func New() *Diagnostics {
	return &Diagnostics{ByLine: make(map[int][]Message)}
}

// testFile is the path this Diagnostics table is being decoded for. Only
// a primary span whose FileName resolves to this file lands in ByLine;
// every other primary span (an auxiliary crate, a macro-expansion site in
// some other file) falls into Unlocated, per spec.md §4.2.
func (d *Diagnostics) add(m Message, testFile string) {
	for _, s := range m.Spans {
		if s.IsPrimary && sameFile(s.FileName, testFile) {
			d.ByLine[s.Line] = append(d.ByLine[s.Line], m)
			return
		}
	}
	d.Unlocated = append(d.Unlocated, m)
}

// sameFile compares a diagnostic span's reported file name against the
// test path. Spans with no file name (synthesized diagnostics) never
// match; otherwise comparison is by path suffix so it's indifferent to
// the compiler rendering an absolute path where the invocation used a
// relative one, or vice versa.
func sameFile(spanFile, testFile string) bool {
	if spanFile == "" {
		return false
	}
	a, b := filepath.ToSlash(spanFile), filepath.ToSlash(testFile)
	return a == b || strings.HasSuffix(a, "/"+b) || strings.HasSuffix(b, "/"+a)
}

// Decode parses newline-delimited compiler diagnostic JSON, ignoring lines
// that aren't themselves diagnostics (build systems interleave other JSON
// messages, e.g. cargo's `compiler-artifact`). testFile is the path under
// test; see sameFile.
func Decode(output []byte, testFile string) *Diagnostics {
	d := New()
	lines := strings.Split(string(output), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed[0] != '{' || !gjson.Valid(trimmed) {
			d.Rendered = append(d.Rendered, []byte(line+"\n")...)
			continue
		}
		root := gjson.Parse(trimmed)
		if !root.Get("level").Exists() {
			d.Rendered = append(d.Rendered, []byte(line+"\n")...)
			continue
		}
		decodeInto(d, root, trimmed, testFile)
	}
	return d
}

func decodeOne(root gjson.Result, raw string) (Message, bool) {
	lvlField := root.Get("level")
	if !lvlField.Exists() {
		return Message{}, false
	}
	lvl, ok := level.Parse(lvlField.String())
	if !ok {
		return Message{}, false
	}

	msg := Message{
		Level: lvl,
		Text:  root.Get("message").String(),
		Code:  root.Get("code.code").String(),
		Raw:   raw,
	}

	root.Get("spans").ForEach(func(_, span gjson.Result) bool {
		msg.Spans = append(msg.Spans, Span{
			Line:      int(span.Get("line_start").Int()),
			Column:    int(span.Get("column_start").Int()),
			IsPrimary: span.Get("is_primary").Bool(),
			FileName:  span.Get("file_name").String(),
		})
		return true
	})

	return msg, true
}

// decodeInto decodes root and every nested child diagnostic (e.g.
// "help: consider..." notes) into d, each as an independent Message so the
// matcher can satisfy annotations written against a child's own level.
// Children inherit the parent's spans when they declare none of their own,
// since nested notes are usually unspanned.
func decodeInto(d *Diagnostics, root gjson.Result, raw, testFile string) {
	msg, ok := decodeOne(root, raw)
	if !ok {
		return
	}
	d.add(msg, testFile)
	d.Rendered = append(d.Rendered, renderedBytes(root, msg)...)

	root.Get("children").ForEach(func(_, child gjson.Result) bool {
		childMsg, ok := decodeOne(child, raw)
		if !ok {
			return true
		}
		if len(childMsg.Spans) == 0 {
			childMsg.Spans = msg.Spans
		}
		d.add(childMsg, testFile)
		return true
	})
}

// renderedBytes returns a diagnostic's own "rendered" field if the
// compiler supplied one, else a synthesized "level: message" line.
func renderedBytes(root gjson.Result, msg Message) []byte {
	if r := root.Get("rendered"); r.Exists() && r.String() != "" {
		s := r.String()
		if !strings.HasSuffix(s, "\n") {
			s += "\n"
		}
		return []byte(s)
	}
	return []byte(msg.Level.String() + ": " + msg.Text + "\n")
}

// AtLine returns every Message whose primary span points at line.
func (d *Diagnostics) AtLine(line int) []Message {
	return d.ByLine[line]
}

// Lines returns the sorted set of line numbers carrying at least one
// located diagnostic. Callers needing deterministic iteration order should
// use this rather than ranging over ByLine directly.
func (d *Diagnostics) Lines() []int {
	lines := make([]int, 0, len(d.ByLine))
	for l := range d.ByLine {
		lines = append(lines, l)
	}
	for i := 1; i < len(lines); i++ {
		for j := i; j > 0 && lines[j-1] > lines[j]; j-- {
			lines[j-1], lines[j] = lines[j], lines[j-1]
		}
	}
	return lines
}

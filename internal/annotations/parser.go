// Package annotations implements the annotation parser (C3): it reads a
// source file line by line and turns `//@` directives and `//~` inline
// diagnostic expectations into a Comments tree.
package annotations

import (
	"regexp"
	"strings"

	shellwords "github.com/kballard/go-shellquote"

	"github.com/michaelciraci/ui-test/internal/errs"
	"github.com/michaelciraci/ui-test/internal/filter"
	"github.com/michaelciraci/ui-test/internal/level"
	"github.com/michaelciraci/ui-test/internal/mode"
	"github.com/michaelciraci/ui-test/internal/pattern"
)

type parser struct {
	comments       Comments
	errors         errs.Errors
	lastAnchorLine int
	haveAnchor     bool
	revisionsSet   bool
	lineCount      int
}

// Parse scans src (the full text of one source file) and returns its
// annotation tree. Malformed directives are reported as InvalidComment
// errors but never stop the scan — later lines are still parsed.
func Parse(src []byte) (*Comments, errs.Errors) {
	lines := strings.Split(string(src), "\n")
	p := &parser{lineCount: len(lines)}
	for i, raw := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(trimmed, "//@"):
			p.directive(strings.TrimSpace(trimmed[len("//@"):]), lineNo)
		case strings.Contains(raw, "//~"):
			p.inline(raw[strings.Index(raw, "//~")+len("//~"):], lineNo)
		}
	}
	return &p.comments, p.errors
}

func (p *parser) fail(msg string, line int) {
	p.errors = append(p.errors, errs.InvalidCommentErr(msg, line))
}

// directive dispatches one `//@ <content>` line, first peeling off an
// optional `[<rev>,...]` scope prefix.
func (p *parser) directive(content string, line int) {
	scope, rest := splitScope(content)
	if rest == "" {
		p.fail("empty directive", line)
		return
	}

	name, arg, hasArg := splitDirective(rest)

	// revisions: is global only and may not be scoped or repeated.
	if name == "revisions" {
		if len(scope) != 0 {
			p.fail("revisions: directive may not be scoped to a revision", line)
			return
		}
		if p.revisionsSet {
			p.fail("revisions: declared more than once", line)
			return
		}
		if !hasArg || strings.TrimSpace(arg) == "" {
			p.fail("revisions: requires at least one revision name", line)
			return
		}
		p.comments.Revisions = strings.Fields(arg)
		p.revisionsSet = true
		return
	}

	var rev Revisioned
	ok := p.parseBody(&rev, name, arg, hasArg, line)
	if !ok {
		return
	}
	p.comments.entries = append(p.comments.entries, revisionedEntry{Revisions: scope, Data: rev})
}

// parseBody fills in one field of rev from a single directive. Returns
// false (after recording an error) if the directive couldn't be parsed.
func (p *parser) parseBody(rev *Revisioned, name, arg string, hasArg bool, line int) bool {
	switch {
	case strings.HasPrefix(name, "ignore-"):
		c, err := parseCondToken(strings.TrimPrefix(name, "ignore-"))
		if err != "" {
			p.fail(err, line)
			return false
		}
		rev.Ignore = []Condition{c}
		return true

	case strings.HasPrefix(name, "only-"):
		c, err := parseCondToken(strings.TrimPrefix(name, "only-"))
		if err != "" {
			p.fail(err, line)
			return false
		}
		rev.Only = []Condition{c}
		return true

	case name == "needs-asm-support":
		rev.NeedsAsmSupport = true
		return true

	case name == "stderr-per-bitwidth":
		rev.StderrPerBitwidth = true
		return true

	case name == "compile-flags":
		args, err := shellwords.Split(arg)
		if err != nil {
			p.fail("invalid compile-flags: "+err.Error(), line)
			return false
		}
		rev.CompileFlags = args
		return true

	case name == "rustc-env":
		vars, err := parseEnvPairs(arg)
		if err != "" {
			p.fail(err, line)
			return false
		}
		rev.EnvVars = vars
		return true

	case name == "env-var":
		vars, err := parseEnvPairs(arg)
		if err != "" {
			p.fail(err, line)
			return false
		}
		if len(vars) != 1 {
			p.fail("env-var: expects exactly one K=V pair", line)
			return false
		}
		rev.EnvVars = vars
		return true

	case name == "normalize-stderr-test":
		entry, err := parseNormalize(arg)
		if err != "" {
			p.fail(err, line)
			return false
		}
		rev.NormalizeStderr = filter.Filter{entry}
		return true

	case name == "error-pattern":
		if strings.TrimSpace(arg) == "" {
			p.fail("error-pattern: requires text", line)
			return false
		}
		pat, err := pattern.Parse(strings.TrimSpace(arg))
		if err != nil {
			p.fail(err.Error(), line)
			return false
		}
		rev.ErrorPatterns = []ErrorPattern{{Pattern: pat, DefinitionLine: line}}
		return true

	case name == "require-annotations-for-level":
		lvl, ok := level.Parse(strings.TrimSpace(arg))
		if !ok {
			p.fail("require-annotations-for-level: unknown level "+arg, line)
			return false
		}
		rev.RequireAnnotationsLevel = &lvl
		return true

	case name == "run-rustfix":
		rev.RunRustfix = true
		return true

	case name == "aux-build":
		ab, err := parseAuxBuild(arg)
		if err != "" {
			p.fail(err, line)
			return false
		}
		rev.AuxBuilds = []AuxBuild{ab}
		return true

	case name == "edition":
		ed := strings.TrimSpace(arg)
		if ed == "" {
			p.fail("edition: requires a value", line)
			return false
		}
		rev.Edition = &ed
		return true

	case name == "check-pass", name == "build-pass", name == "run-pass":
		rev.Mode = &ModeOverride{Mode: mode.Mode{Kind: mode.Pass}, Line: line}
		return true

	case name == "panic":
		rev.Mode = &ModeOverride{Mode: mode.Mode{Kind: mode.Panic}, Line: line}
		return true

	case name == "fail":
		rev.Mode = &ModeOverride{Mode: mode.NewFail(true), Line: line}
		return true

	case name == "yolo":
		rev.Mode = &ModeOverride{Mode: mode.Mode{Kind: mode.Yolo}, Line: line}
		return true

	default:
		p.fail("unknown directive: "+name, line)
		return false
	}
}

// inline parses one `//~`, `//~^...` or `//~|` line into an ErrorMatch.
func (p *parser) inline(rest string, line int) {
	k := 0
	usesPrev := false
	i := 0
	for i < len(rest) && rest[i] == '^' {
		k++
		i++
	}
	if k == 0 && i < len(rest) && rest[i] == '|' {
		usesPrev = true
		i++
	}
	rest = strings.TrimSpace(rest[i:])

	var anchor int
	switch {
	case usesPrev:
		if !p.haveAnchor {
			p.fail("//~| has no preceding inline expectation to anchor to", line)
			return
		}
		anchor = p.lastAnchorLine
	default:
		anchor = line - k
		if anchor < 1 || anchor > p.lineCount {
			p.fail("inline expectation anchors outside the file", line)
			return
		}
	}

	lvl := level.Error
	fields := strings.SplitN(rest, " ", 2)
	text := rest
	if len(fields) == 2 {
		if parsed, ok := level.Parse(fields[0]); ok {
			lvl = parsed
			text = strings.TrimSpace(fields[1])
		}
	} else if len(fields) == 1 {
		if parsed, ok := level.Parse(fields[0]); ok {
			lvl = parsed
			text = ""
		}
	}
	if text == "" {
		p.fail("inline expectation has no pattern text", line)
		return
	}

	pat, err := pattern.Parse(text)
	if err != nil {
		p.fail(err.Error(), line)
		return
	}

	p.comments.entries = append(p.comments.entries, revisionedEntry{
		Data: Revisioned{ErrorMatches: []ErrorMatch{{
			Pattern:        pat,
			DefinitionLine: line,
			Line:           anchor,
			Level:          lvl,
		}}},
	})
	p.lastAnchorLine = anchor
	p.haveAnchor = true
}

// splitScope peels an optional leading `[rev,rev2]` prefix off a directive
// line, returning the revision set (nil if there was no prefix) and the
// remaining text.
func splitScope(content string) (map[string]bool, string) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "[") {
		return nil, content
	}
	end := strings.Index(content, "]")
	if end < 0 {
		return nil, content
	}
	inner := content[1:end]
	rest := strings.TrimSpace(content[end+1:])
	set := make(map[string]bool)
	for _, name := range strings.FieldsFunc(inner, func(r rune) bool { return r == ',' || r == ' ' }) {
		if name != "" {
			set[name] = true
		}
	}
	if len(set) == 0 {
		return nil, rest
	}
	return set, rest
}

// splitDirective splits "name: arg" or a bare "name" into its parts.
func splitDirective(s string) (name, arg string, hasArg bool) {
	idx := strings.Index(s, ":")
	if idx < 0 {
		return strings.TrimSpace(s), "", false
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+1:]), true
}

func parseCondToken(tok string) (Condition, string) {
	switch tok {
	case "16bit":
		return BitwidthCond(16), ""
	case "32bit":
		return BitwidthCond(32), ""
	case "64bit":
		return BitwidthCond(64), ""
	case "on-host":
		return OnHostCond(), ""
	case "host":
		// No substring parameter exists in this grammar position; treat as
		// an alias for on-host rather than constructing a vacuous Host("").
		return OnHostCond(), ""
	case "":
		return Condition{}, "ignore-/only- requires a condition"
	default:
		return TargetCond(tok), ""
	}
}

func parseEnvPairs(arg string) ([]EnvVar, string) {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return nil, "expected at least one K=V pair"
	}
	out := make([]EnvVar, 0, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, "malformed K=V pair: " + f
		}
		out = append(out, EnvVar{Key: k, Value: v})
	}
	return out, ""
}

// parseNormalize parses `"<from>" -> "<to>"`: from is a regex needle, to is
// a literal replacement.
func parseNormalize(arg string) (filter.Entry, string) {
	parts := strings.SplitN(arg, "->", 2)
	if len(parts) != 2 {
		return filter.Entry{}, "normalize-stderr-test: expected \"<from>\" -> \"<to>\""
	}
	from, ok1 := unquote(strings.TrimSpace(parts[0]))
	to, ok2 := unquote(strings.TrimSpace(parts[1]))
	if !ok1 || !ok2 {
		return filter.Entry{}, "normalize-stderr-test: both sides must be quoted strings"
	}
	re, err := regexp.Compile(from)
	if err != nil {
		return filter.Entry{}, "normalize-stderr-test: invalid regex: " + err.Error()
	}
	return filter.Entry{Match: filter.FromRegex(re), Replacement: []byte(to)}, ""
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1], true
	}
	return "", false
}

func parseAuxBuild(arg string) (AuxBuild, string) {
	parts := strings.Fields(arg)
	if len(parts) == 0 {
		return AuxBuild{}, "aux-build: requires a filename"
	}
	ab := AuxBuild{File: parts[0]}
	for _, p := range parts[1:] {
		if k, v, ok := strings.Cut(p, "="); ok && k == "crate-type" {
			ab.CrateType = v
		}
	}
	return ab, ""
}

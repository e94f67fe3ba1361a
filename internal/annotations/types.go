package annotations

import (
	"sort"

	"github.com/michaelciraci/ui-test/internal/filter"
	"github.com/michaelciraci/ui-test/internal/level"
	"github.com/michaelciraci/ui-test/internal/mode"
	"github.com/michaelciraci/ui-test/internal/pattern"
)

// EnvVar is one K=V pair from a rustc-env:/env-var: directive.
type EnvVar struct {
	Key   string
	Value string
}

// AuxBuild names a helper source file under auxiliary/ and the crate kind
// it should be built as.
type AuxBuild struct {
	File      string
	CrateType string // empty means the builder's default crate type
}

// ErrorPattern is a file-wide expectation declared by `error-pattern:`.
type ErrorPattern struct {
	Pattern        pattern.Pattern
	DefinitionLine int
}

// ErrorMatch is a line-anchored expectation parsed from an inline `//~`
// comment.
type ErrorMatch struct {
	Pattern        pattern.Pattern
	DefinitionLine int
	Line           int
	Level          level.Level
}

// ModeOverride is a (Mode, line) pair set by a mode directive such as
// `//@ check-pass`.
type ModeOverride struct {
	Mode mode.Mode
	Line int
}

// Revisioned holds every directive scoped to some set of revisions (or to
// all revisions, when that set is empty).
type Revisioned struct {
	Ignore                  []Condition
	Only                    []Condition
	NeedsAsmSupport         bool
	StderrPerBitwidth       bool
	CompileFlags            []string
	EnvVars                 []EnvVar
	NormalizeStderr         filter.Filter
	ErrorPatterns           []ErrorPattern
	ErrorMatches            []ErrorMatch
	RequireAnnotationsLevel *level.Level
	RunRustfix              bool
	AuxBuilds               []AuxBuild
	Edition                 *string
	Mode                    *ModeOverride
}

// merge folds other into a copy of r: list fields are appended in
// encounter order, boolean flags are OR'd, and scalar optionals are
// overridden by other's value when other sets one.
func (r Revisioned) merge(other Revisioned) Revisioned {
	out := r
	out.Ignore = append(append([]Condition{}, r.Ignore...), other.Ignore...)
	out.Only = append(append([]Condition{}, r.Only...), other.Only...)
	out.NeedsAsmSupport = r.NeedsAsmSupport || other.NeedsAsmSupport
	out.StderrPerBitwidth = r.StderrPerBitwidth || other.StderrPerBitwidth
	out.CompileFlags = append(append([]string{}, r.CompileFlags...), other.CompileFlags...)
	out.EnvVars = append(append([]EnvVar{}, r.EnvVars...), other.EnvVars...)
	out.NormalizeStderr = r.NormalizeStderr.Append(other.NormalizeStderr...)
	out.ErrorPatterns = append(append([]ErrorPattern{}, r.ErrorPatterns...), other.ErrorPatterns...)
	out.ErrorMatches = append(append([]ErrorMatch{}, r.ErrorMatches...), other.ErrorMatches...)
	out.RunRustfix = r.RunRustfix || other.RunRustfix
	out.AuxBuilds = append(append([]AuxBuild{}, r.AuxBuilds...), other.AuxBuilds...)
	if other.RequireAnnotationsLevel != nil {
		out.RequireAnnotationsLevel = other.RequireAnnotationsLevel
	}
	if other.Edition != nil {
		out.Edition = other.Edition
	}
	if other.Mode != nil {
		out.Mode = other.Mode
	}
	return out
}

// revisionedEntry is one key/value pair of the original's
// `HashMap<BTreeSet<String>, Revisioned>`: Revisions == nil means "applies
// to every revision of this file".
type revisionedEntry struct {
	Revisions map[string]bool
	Data      Revisioned
}

func (e revisionedEntry) appliesTo(rev string) bool {
	if len(e.Revisions) == 0 {
		return true
	}
	return e.Revisions[rev]
}

// Comments is the parsed annotation tree for one source file (C3's output).
type Comments struct {
	Revisions []string // nil means a single unnamed revision ""
	entries   []revisionedEntry
}

// RevisionList returns the declared revisions, or [""] if the file declared
// none.
func (c *Comments) RevisionList() []string {
	if len(c.Revisions) == 0 {
		return []string{""}
	}
	out := append([]string{}, c.Revisions...)
	sort.Strings(out)
	return out
}

// ForRevision merges every entry applicable to rev, in the order they were
// parsed. Unscoped and `[rev]`-scoped entries are not reordered, so for
// scalar fields the entry parsed last wins.
func (c *Comments) ForRevision(rev string) Revisioned {
	var out Revisioned
	for _, e := range c.entries {
		if e.appliesTo(rev) {
			out = out.merge(e.Data)
		}
	}
	return out
}

// HasRevisions reports whether the file declared a `revisions:` directive.
func (c *Comments) HasRevisions() bool {
	return len(c.Revisions) > 0
}

// FromRevisioned builds a single-revision Comments whose unscoped entry is
// exactly rev — used by the suggestion rerun (C8) to synthesize a minimal
// Comments for the fixed-source re-invocation.
func FromRevisioned(rev Revisioned) *Comments {
	return &Comments{entries: []revisionedEntry{{Data: rev}}}
}

// EditionsFor returns every distinct edition string declared by an entry
// applicable to rev, in encounter order. The command builder uses this to
// detect conflicting `edition:` directives, which ForRevision's last-wins
// merge would otherwise silently resolve.
func (c *Comments) EditionsFor(rev string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range c.entries {
		if !e.appliesTo(rev) || e.Data.Edition == nil {
			continue
		}
		if !seen[*e.Data.Edition] {
			seen[*e.Data.Edition] = true
			out = append(out, *e.Data.Edition)
		}
	}
	return out
}

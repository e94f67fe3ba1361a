// Package uitest is a UI test harness for a compiler-like program: it
// walks a directory tree of source files, invokes an external compiler
// binary on each, and verifies the output against inline source
// annotations and golden reference files.
//
// A consumer builds a Config, optionally appends filters, and calls
// RunTests, RunTestsGeneric, or RunFile.
package uitest

import (
	"github.com/michaelciraci/ui-test/internal/annotations"
	"github.com/michaelciraci/ui-test/internal/config"
	"github.com/michaelciraci/ui-test/internal/errs"
	"github.com/michaelciraci/ui-test/internal/filter"
	"github.com/michaelciraci/ui-test/internal/level"
	"github.com/michaelciraci/ui-test/internal/mode"
	"github.com/michaelciraci/ui-test/internal/pattern"
)

// Re-exported core types: these live in small internal leaf packages so
// both this public API and the internal pipeline packages can depend on
// them without an import cycle (see DESIGN.md).

type (
	// Config is the process-wide configuration (spec.md §3).
	Config = config.Config
	// DependencyBuilder describes how to invoke the external dependency
	// builder for the prebuild step (C5).
	DependencyBuilder = config.DependencyBuilder
	// OutputConflictHandling decides what a golden-file mismatch does.
	OutputConflictHandling = config.ConflictHandling
	// Mode decides what is expected of a test's exit status.
	Mode = mode.Mode
	// Level is a diagnostic severity.
	Level = level.Level
	// Match is a filter needle, literal or regex.
	Match = filter.Match
	// Filter is an ordered list of (Match, replacement) pairs.
	Filter = filter.Filter
	// Pattern is a substring or regex diagnostic expectation.
	Pattern = pattern.Pattern
	// Error is the per-test error taxonomy (spec.md §3, §7).
	Error = errs.Error
	// Errors is a list of per-test errors.
	Errors = errs.Errors
	// Comments is one file's parsed annotation tree (C3).
	Comments = annotations.Comments
)

const (
	// ConflictError reports OutputDiffers on a golden-file mismatch.
	ConflictError = config.Error
	// ConflictIgnore silences golden-file mismatches.
	ConflictIgnore = config.Ignore
	// ConflictBless overwrites the golden file with actual output.
	ConflictBless = config.Bless
)

const (
	LevelError = level.Error
	LevelWarn  = level.Warn
	LevelHelp  = level.Help
	LevelNote  = level.Note
	LevelIco   = level.Ico
)

// NewPassMode, NewPanicMode, NewFailMode and NewYoloMode build the four
// Mode values (spec.md §3).
func NewPassMode() Mode  { return Mode{Kind: mode.Pass} }
func NewPanicMode() Mode { return Mode{Kind: mode.Panic} }
func NewFailMode(requirePatterns bool) Mode {
	return mode.NewFail(requirePatterns)
}
func NewYoloMode() Mode { return Mode{Kind: mode.Yolo} }

// DefaultConfig returns a Config matching the defaults described in
// spec.md §3's Config lifecycle: JSON diagnostics args, Fail mode
// requiring patterns, program "rustc", edition "2021".
func DefaultConfig() Config { return config.Default() }

// ExactMatch builds a literal-substring filter needle.
func ExactMatch(needle []byte) Match { return filter.Exact(needle) }

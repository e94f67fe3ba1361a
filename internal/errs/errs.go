// Package errs implements the per-test error taxonomy (spec.md §3, §7).
// All "open" error variants are modeled as a single closed tagged union —
// one struct carrying a Kind discriminant plus whichever fields that kind
// needs — rather than a type hierarchy, matching spec.md §9's design note.
package errs

import (
	"fmt"

	"github.com/michaelciraci/ui-test/internal/diagnostics"
	"github.com/michaelciraci/ui-test/internal/mode"
	"github.com/michaelciraci/ui-test/internal/pattern"
)

// Kind discriminates the error variants from spec.md §3.
type Kind int

const (
	// ExitStatus: the process exited with a code the test's Mode didn't expect.
	ExitStatus Kind = iota
	// PatternNotFound: an annotation's pattern never matched a diagnostic.
	PatternNotFound
	// NoPatternsFound: a Fail{require_patterns:true} test declared none.
	NoPatternsFound
	// PatternFoundInPassTest: a Pass/Panic test declared error patterns.
	PatternFoundInPassTest
	// OutputDiffers: rendered output didn't match the golden file.
	OutputDiffers
	// ErrorsWithoutPattern: diagnostics existed with no matching annotation.
	ErrorsWithoutPattern
	// InvalidComment: a directive or inline annotation was malformed.
	InvalidComment
	// Command: an auxiliary build or rustfix rerun exited non-zero.
	Command
	// Bug: an internal panic, caught and converted.
	Bug
)

// Error is the tagged union of all per-test error variants.
type Error struct {
	Kind Kind

	// ExitStatus
	Mode     mode.Mode
	Status   int
	Expected int

	// PatternNotFound
	Pattern        pattern.Pattern
	DefinitionLine int

	// OutputDiffers
	GoldenPath string
	Actual     []byte
	Expected_  []byte

	// ErrorsWithoutPattern
	Messages    []diagnostics.Message
	AtPath      string
	AtLine      int
	HasLocation bool

	// InvalidComment
	Msg  string
	Line int

	// Command
	CommandKind string

	// Bug
	BugMessage string
}

// Errors is a list of per-test errors, never aborting a run.
type Errors []Error

// ExitStatusErr builds an ExitStatus error.
func ExitStatusErr(m mode.Mode, status, expected int) Error {
	return Error{Kind: ExitStatus, Mode: m, Status: status, Expected: expected}
}

// PatternNotFoundErr builds a PatternNotFound error.
func PatternNotFoundErr(p pattern.Pattern, definitionLine int) Error {
	return Error{Kind: PatternNotFound, Pattern: p, DefinitionLine: definitionLine}
}

// NoPatternsFoundErr builds a NoPatternsFound error.
func NoPatternsFoundErr() Error { return Error{Kind: NoPatternsFound} }

// PatternFoundInPassTestErr builds a PatternFoundInPassTest error.
func PatternFoundInPassTestErr() Error { return Error{Kind: PatternFoundInPassTest} }

// OutputDiffersErr builds an OutputDiffers error.
func OutputDiffersErr(goldenPath string, actual, expected []byte) Error {
	return Error{Kind: OutputDiffers, GoldenPath: goldenPath, Actual: actual, Expected_: expected}
}

// ErrorsWithoutPatternErr builds an ErrorsWithoutPattern error. When
// hasLocation is false, atPath/atLine are ignored (the "unknown bucket"
// case) — per SPEC_FULL.md's Open Question decision this implementation
// still carries the test's own path in AtPath even then, for the CI sink's
// convenience, but HasLocation stays false so callers can still tell the
// two cases apart.
func ErrorsWithoutPatternErr(msgs []diagnostics.Message, atPath string, atLine int, hasLocation bool) Error {
	return Error{Kind: ErrorsWithoutPattern, Messages: msgs, AtPath: atPath, AtLine: atLine, HasLocation: hasLocation}
}

// InvalidCommentErr builds an InvalidComment error.
func InvalidCommentErr(msg string, line int) Error {
	return Error{Kind: InvalidComment, Msg: msg, Line: line}
}

// CommandErr builds a Command error.
func CommandErr(kind string, status int) Error {
	return Error{Kind: Command, CommandKind: kind, Status: status}
}

// BugErr builds a Bug error from a recovered panic.
func BugErr(msg string) Error { return Error{Kind: Bug, BugMessage: msg} }

// Error implements the error interface with a single-line summary.
func (e Error) Error() string {
	switch e.Kind {
	case ExitStatus:
		return fmt.Sprintf("%s test got exit status %d, but expected %d", e.Mode, e.Status, e.Expected)
	case PatternNotFound:
		return fmt.Sprintf("pattern %s not found (declared at line %d)", e.Pattern, e.DefinitionLine)
	case NoPatternsFound:
		return "no error patterns found in fail test"
	case PatternFoundInPassTest:
		return "error pattern found in pass test"
	case OutputDiffers:
		return fmt.Sprintf("actual output differs from expected at %s", e.GoldenPath)
	case ErrorsWithoutPattern:
		if e.HasLocation {
			return fmt.Sprintf("%d unmatched diagnostic(s) at %s:%d", len(e.Messages), e.AtPath, e.AtLine)
		}
		return fmt.Sprintf("%d unmatched diagnostic(s) outside the test file", len(e.Messages))
	case InvalidComment:
		return fmt.Sprintf("could not parse comment at line %d: %s", e.Line, e.Msg)
	case Command:
		return fmt.Sprintf("%s failed with status %d", e.CommandKind, e.Status)
	case Bug:
		return fmt.Sprintf("internal bug: %s", e.BugMessage)
	default:
		return "unknown error"
	}
}

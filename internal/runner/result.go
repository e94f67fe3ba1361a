// Package runner implements the parallel test runner (C9): it discovers
// source files, fans work out across a worker pool, and collects results
// for reporting.
package runner

import (
	"github.com/michaelciraci/ui-test/internal/errs"
)

// Outcome discriminates how one revision of one test file concluded.
type Outcome int

const (
	// Ok means every check passed.
	Ok Outcome = iota
	// Ignored means an ignore-* / needs-asm-support condition skipped it.
	Ignored
	// Filtered means the runner's path filter excluded it before parsing.
	Filtered
	// Errored means one or more errs.Error accumulated.
	Errored
)

// RevisionResult is one revision's outcome within a TestRun.
type RevisionResult struct {
	Revision string
	Outcome  Outcome
	Errors   errs.Errors
	Command  string // the rendered compiler invocation, for failure reports
	Stderr   []byte // raw stderr, for failure reports
}

// TestRun is everything the reporter needs about one test file.
type TestRun struct {
	Path      string
	Revisions []RevisionResult
}

// HasErrors reports whether any revision of this run Errored.
func (t TestRun) HasErrors() bool {
	for _, r := range t.Revisions {
		if r.Outcome == Errored {
			return true
		}
	}
	return false
}

// Summary aggregates every TestRun the reporter collected.
type Summary struct {
	Runs        []TestRun
	OkCount     int
	IgnoredCount int
	FilteredCount int
	FailedCount int
}

// Failed returns every TestRun carrying at least one Errored revision.
func (s Summary) Failed() []TestRun {
	var out []TestRun
	for _, r := range s.Runs {
		if r.HasErrors() {
			out = append(out, r)
		}
	}
	return out
}

// ExitCode is 1 if any test failed, else 0 (spec.md §7).
func (s Summary) ExitCode() int {
	if len(s.Failed()) > 0 {
		return 1
	}
	return 0
}

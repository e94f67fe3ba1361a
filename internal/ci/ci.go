// Package ci implements the CI sink (C10): a best-effort side channel that
// emits GitHub Actions-style workflow commands for every accumulated
// error, plus a best-effort Sentry report for caught panics (Error::Bug).
package ci

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"

	"github.com/michaelciraci/ui-test/internal/errs"
	"github.com/michaelciraci/ui-test/internal/runner"
)

// Sink emits workflow-command annotations to out. Absence of a real CI
// runtime is tolerated: these are plain lines on a writer, never a network
// call, so nothing breaks when nobody is scraping them.
type Sink struct {
	out         io.Writer
	sentryOnce  sync.Once
	sentryReady bool
}

// New builds a Sink writing to out. Pass a DSN to enable Sentry reporting
// of Error::Bug occurrences; an empty DSN makes Report a no-op for those
// (everything else still prints normally).
func New(out io.Writer, sentryDSN string) *Sink {
	s := &Sink{out: out}
	if sentryDSN != "" {
		s.sentryOnce.Do(func() {
			err := sentry.Init(sentry.ClientOptions{Dsn: sentryDSN})
			s.sentryReady = err == nil
		})
	}
	return s
}

// BeginGroup opens a collapsible log group, mirroring
// `github_actions::group` in the original.
func (s *Sink) BeginGroup(name string) {
	fmt.Fprintf(s.out, "::group::%s\n", escapeMessage(name))
}

// EndGroup closes the most recently opened group.
func (s *Sink) EndGroup() {
	fmt.Fprintln(s.out, "::endgroup::")
}

// Emit prints one `::error file=...,line=...,title=...::message` record.
// line <= 0 omits the line property (the unknown-location bucket case).
func (s *Sink) Emit(path string, line int, title, message string) {
	props := []string{"file=" + escapeProperty(path)}
	if line > 0 {
		props = append(props, fmt.Sprintf("line=%d", line))
	}
	props = append(props, "title="+escapeProperty(title))
	fmt.Fprintf(s.out, "::error %s::%s\n", strings.Join(props, ","), escapeMessage(message))
}

// Report walks every error in run and emits its CI annotation, and
// best-effort reports Error::Bug to Sentry if configured. A failing run's
// annotations are wrapped in their own named group, mirroring the
// original's `github_actions::group` scoping around each failure's detail
// block (spec.md §12). A run with no errors emits nothing.
func (s *Sink) Report(run runner.TestRun) {
	if !run.HasErrors() {
		return
	}
	s.BeginGroup(run.Path)
	for _, rev := range run.Revisions {
		for _, e := range rev.Errors {
			s.reportOne(run.Path, e)
		}
	}
	s.EndGroup()
}

func (s *Sink) reportOne(path string, e errs.Error) {
	line := 0
	switch e.Kind {
	case errs.PatternNotFound:
		line = e.DefinitionLine
	case errs.ErrorsWithoutPattern:
		if e.HasLocation {
			line = e.AtLine
		}
	case errs.InvalidComment:
		line = e.Line
	}

	s.Emit(path, line, title(e.Kind), e.Error())

	if e.Kind == errs.Bug && s.sentryReady {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("test_path", path)
			sentry.CaptureMessage("ui-test bug: " + e.BugMessage)
		})
	}
}

func title(k errs.Kind) string {
	switch k {
	case errs.ExitStatus:
		return "unexpected exit status"
	case errs.PatternNotFound:
		return "pattern not found"
	case errs.NoPatternsFound:
		return "no patterns found"
	case errs.PatternFoundInPassTest:
		return "pattern found in pass test"
	case errs.OutputDiffers:
		return "output differs"
	case errs.ErrorsWithoutPattern:
		return "unmatched diagnostic"
	case errs.InvalidComment:
		return "invalid comment"
	case errs.Command:
		return "command failed"
	case errs.Bug:
		return "internal bug"
	default:
		return "error"
	}
}

// escapeMessage escapes a workflow command's data segment per GitHub
// Actions' rules: %, CR and LF.
func escapeMessage(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}

// escapeProperty escapes a workflow command property value: the message
// escapes plus `:` and `,`.
func escapeProperty(s string) string {
	s = escapeMessage(s)
	s = strings.ReplaceAll(s, ":", "%3A")
	s = strings.ReplaceAll(s, ",", "%2C")
	return s
}

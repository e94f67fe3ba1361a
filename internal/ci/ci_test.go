package ci

import (
	"bytes"
	"strings"
	"testing"

	"github.com/michaelciraci/ui-test/internal/errs"
	"github.com/michaelciraci/ui-test/internal/runner"
)

func TestReportEmitsNothingForAnErrorFreeRun(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, "")
	s.Report(runner.TestRun{Path: "a.rs", Revisions: []runner.RevisionResult{{Outcome: runner.Ok}}})
	if buf.Len() != 0 {
		t.Errorf("expected no output for a passing run, got %q", buf.String())
	}
}

func TestReportGroupsAnnotationsUnderTheFailingPath(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, "")
	s.Report(runner.TestRun{Path: "bad.rs", Revisions: []runner.RevisionResult{{
		Outcome: runner.Errored,
		Errors:  errs.Errors{errs.NoPatternsFoundErr()},
	}}})

	out := buf.String()
	if !strings.HasPrefix(out, "::group::bad.rs\n") {
		t.Errorf("expected a leading group line, got %q", out)
	}
	// title escaping only touches %, CR, LF, : and , — spaces pass through untouched.
	if !strings.Contains(out, "::error file=bad.rs,title=no patterns found::no error patterns found in fail test") {
		t.Errorf("missing error annotation, got %q", out)
	}
	if !strings.HasSuffix(out, "::endgroup::\n") {
		t.Errorf("expected a trailing endgroup line, got %q", out)
	}
}

func TestEmitOmitsLinePropertyWhenNonPositive(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, "")
	s.Emit("a.rs", 0, "title", "message")
	if strings.Contains(buf.String(), "line=") {
		t.Errorf("expected no line= property for line<=0, got %q", buf.String())
	}
	s.Emit("a.rs", 12, "title", "message")
	if !strings.Contains(buf.String(), "line=12") {
		t.Errorf("expected line=12 property, got %q", buf.String())
	}
}

func TestEscapeMessageEscapesPercentCRLF(t *testing.T) {
	got := escapeMessage("100% done\r\nnext")
	want := "100%25 done%0D%0Anext"
	if got != want {
		t.Errorf("escapeMessage = %q, want %q", got, want)
	}
}

func TestEscapePropertyAlsoEscapesColonAndComma(t *testing.T) {
	got := escapeProperty("a:b,c")
	want := "a%3Ab%2Cc"
	if got != want {
		t.Errorf("escapeProperty = %q, want %q", got, want)
	}
}

func TestBeginEndGroupWrapLines(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, "")
	s.BeginGroup("my group")
	s.EndGroup()
	if buf.String() != "::group::my group\n::endgroup::\n" {
		t.Errorf("got %q", buf.String())
	}
}

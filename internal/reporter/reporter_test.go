package reporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/michaelciraci/ui-test/internal/errs"
	"github.com/michaelciraci/ui-test/internal/runner"
)

func TestResultPrintsOneLinePerRevisionWhenNotQuiet(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false, false)

	r.Result(runner.TestRun{Path: "a.rs", Revisions: []runner.RevisionResult{
		{Outcome: runner.Ok},
		{Revision: "foo", Outcome: runner.Ignored},
	}})

	out := buf.String()
	if !strings.Contains(out, "ok  a.rs") {
		t.Errorf("missing ok line, got %q", out)
	}
	if !strings.Contains(out, "ignored  a.rs (revision foo)") {
		t.Errorf("missing revision-qualified ignored line, got %q", out)
	}
}

func TestResultTicksInQuietMode(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true, false)

	r.Result(runner.TestRun{Path: "a.rs", Revisions: []runner.RevisionResult{{Outcome: runner.Ok}}})
	r.Result(runner.TestRun{Path: "b.rs", Revisions: []runner.RevisionResult{{Outcome: runner.Errored}}})
	r.Result(runner.TestRun{Path: "c.rs", Revisions: []runner.RevisionResult{{Outcome: runner.Filtered}}})

	if buf.String() != ".F" {
		t.Errorf("quiet ticks = %q, want %q (filtered revisions are silent)", buf.String(), ".F")
	}
}

func TestSummaryReportsFailureDetailAndTotals(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false, false)

	s := runner.Summary{
		OkCount: 1, FailedCount: 1, IgnoredCount: 0, FilteredCount: 0,
		Runs: []runner.TestRun{
			{Path: "ok.rs", Revisions: []runner.RevisionResult{{Outcome: runner.Ok}}},
			{Path: "bad.rs", Revisions: []runner.RevisionResult{{
				Outcome: runner.Errored,
				Errors:  errs.Errors{errs.NoPatternsFoundErr()},
				Command: "rustc bad.rs",
			}}},
		},
	}
	r.Summary(s)

	out := buf.String()
	if !strings.Contains(out, "---- bad.rs ----") {
		t.Errorf("missing failure header, got %q", out)
	}
	if !strings.Contains(out, "no error patterns found in fail test") {
		t.Errorf("missing rendered error, got %q", out)
	}
	if !strings.Contains(out, "test result: 1 passed, 1 failed, 0 ignored, 0 filtered out") {
		t.Errorf("missing totals line, got %q", out)
	}
}

func TestSummaryVerboseReindentsJSONStderr(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false, true)

	s := runner.Summary{
		FailedCount: 1,
		Runs: []runner.TestRun{{Path: "bad.rs", Revisions: []runner.RevisionResult{{
			Outcome: runner.Errored,
			Errors:  errs.Errors{errs.NoPatternsFoundErr()},
			Stderr:  []byte(`{"message":"boom","level":"error"}` + "\n"),
		}}}},
	}
	r.Summary(s)

	out := buf.String()
	if !strings.Contains(out, "\"message\": \"boom\"") {
		t.Errorf("expected re-indented JSON in verbose mode, got %q", out)
	}
}

func TestFormatErrorRendersDiffForOutputDiffers(t *testing.T) {
	e := errs.OutputDiffersErr("a.stderr", []byte("actual\n"), []byte("expected\n"))
	got := FormatError(e)
	if !strings.Contains(got, "actual output differs from expected at a.stderr") {
		t.Errorf("missing summary line, got %q", got)
	}
	if !strings.Contains(got, "- expected") || !strings.Contains(got, "+ actual") {
		t.Errorf("expected a line-level diff, got %q", got)
	}
}

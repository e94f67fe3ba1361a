// Package reporter prints the runner's per-file progress and final failure
// report, mirroring the teacher's direct-to-stderr reporting style rather
// than routing through a structured logger.
package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/michaelciraci/ui-test/internal/errs"
	"github.com/michaelciraci/ui-test/internal/runner"
)

// Reporter accumulates and prints the runner's progress exactly as the
// original's reporter thread does: a line per result, or a tick per
// result with a newline every 100 in quiet mode.
type Reporter struct {
	out      io.Writer
	quiet    bool
	verbose  bool
	color    bool
	ticks    int
	okStyle  lipgloss.Style
	badStyle lipgloss.Style
	dimStyle lipgloss.Style
}

// New builds a Reporter writing to out. Color is enabled only when out is
// a terminal, matching the original's delegation of color decisions to the
// "color/terminal rendering" external collaborator named in spec.md §1.
// verbose additionally pretty-prints each failing revision's raw compiler
// diagnostic JSON, for troubleshooting what the matcher actually saw.
func New(out io.Writer, quiet, verbose bool) *Reporter {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd())
	}
	r := &Reporter{out: out, quiet: quiet, verbose: verbose, color: color}
	if color {
		r.okStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
		r.badStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
		r.dimStyle = lipgloss.NewStyle().Faint(true)
	}
	return r
}

// Result prints one completed TestRun, called as each worker finishes.
func (r *Reporter) Result(run runner.TestRun) {
	if r.quiet {
		r.tick(run)
		return
	}
	for _, rev := range run.Revisions {
		fmt.Fprintln(r.out, r.line(run.Path, rev))
	}
}

func (r *Reporter) tick(run runner.TestRun) {
	for _, rev := range run.Revisions {
		ch := "."
		switch rev.Outcome {
		case runner.Errored:
			ch = "F"
		case runner.Ignored:
			ch = "i"
		case runner.Filtered:
			continue
		}
		fmt.Fprint(r.out, r.tickStyle(rev.Outcome, ch))
		r.ticks++
		if r.ticks%100 == 0 {
			fmt.Fprintln(r.out)
		}
	}
}

func (r *Reporter) tickStyle(o runner.Outcome, s string) string {
	if !r.color {
		return s
	}
	if o == runner.Errored {
		return r.badStyle.Render(s)
	}
	return r.okStyle.Render(s)
}

func (r *Reporter) line(path string, rev runner.RevisionResult) string {
	label := path
	if rev.Revision != "" {
		label = fmt.Sprintf("%s (revision %s)", path, rev.Revision)
	}
	switch rev.Outcome {
	case runner.Ok:
		return r.style(r.okStyle, "ok") + "  " + label
	case runner.Ignored:
		return r.style(r.dimStyle, "ignored") + "  " + label
	case runner.Filtered:
		return r.style(r.dimStyle, "filtered") + "  " + label
	default:
		return r.style(r.badStyle, "FAILED") + "  " + label
	}
}

func (r *Reporter) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// Summary prints full failure detail for every failed run, then the
// one-line totals, matching the original's end-of-run report.
func (r *Reporter) Summary(s runner.Summary) {
	if r.ticks > 0 && r.ticks%100 != 0 {
		fmt.Fprintln(r.out)
	}
	for _, run := range s.Failed() {
		r.reportFailure(run)
	}
	fmt.Fprintf(r.out, "\ntest result: %d passed, %d failed, %d ignored, %d filtered out\n",
		s.OkCount, s.FailedCount, s.IgnoredCount, s.FilteredCount)
}

func (r *Reporter) reportFailure(run runner.TestRun) {
	fmt.Fprintln(r.out, r.style(r.badStyle, "---- "+run.Path+" ----"))
	for _, rev := range run.Revisions {
		if rev.Outcome != runner.Errored {
			continue
		}
		if rev.Command != "" {
			fmt.Fprintln(r.out, "command:", rev.Command)
		}
		for _, e := range rev.Errors {
			fmt.Fprintln(r.out, FormatError(e))
		}
		if len(rev.Stderr) > 0 {
			fmt.Fprintln(r.out, "full stderr:")
			if r.verbose {
				fmt.Fprintln(r.out, prettyDiagnostics(rev.Stderr))
			} else {
				fmt.Fprintln(r.out, string(rev.Stderr))
			}
		}
	}
}

// prettyDiagnostics re-indents every JSON-lines diagnostic in raw for
// --verbose troubleshooting output, leaving non-JSON lines (build-script
// chatter interleaved in stderr) untouched.
func prettyDiagnostics(raw []byte) string {
	var sb strings.Builder
	for _, line := range strings.Split(string(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed[0] != '{' || !gjson.Valid(trimmed) {
			sb.WriteString(line)
			sb.WriteByte('\n')
			continue
		}
		sb.Write(pretty.Pretty([]byte(trimmed)))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// FormatError renders one errs.Error in the stable, human-readable form
// spec.md §7 requires. OutputDiffers gets a line-level diff rendering
// (sergi/go-diff) instead of a raw before/after dump.
func FormatError(e errs.Error) string {
	if e.Kind == errs.OutputDiffers {
		return "error: " + e.Error() + "\n" + renderDiff(e.Expected_, e.Actual)
	}
	return "error: " + e.Error()
}

func renderDiff(expected, actual []byte) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(expected), string(actual))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			sb.WriteString(prefix + line + "\n")
		}
	}
	return sb.String()
}

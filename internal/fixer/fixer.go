// Package fixer implements the suggestion rerun (C8): it applies
// machine-applicable compiler suggestions to a test's source, writes the
// result to a sibling `.fixed` file, and schedules a pass-mode re-run of
// the fixed source.
package fixer

import (
	"context"
	"os"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/michaelciraci/ui-test/internal/annotations"
	"github.com/michaelciraci/ui-test/internal/command"
	"github.com/michaelciraci/ui-test/internal/config"
	"github.com/michaelciraci/ui-test/internal/errs"
	"github.com/michaelciraci/ui-test/internal/filter"
	"github.com/michaelciraci/ui-test/internal/matcher"
	"github.com/michaelciraci/ui-test/internal/mode"
)

// Applier is the out-of-scope "machine-applicable-suggestion applier"
// collaborator (spec.md §1): a pure source-to-source transform driven by
// the compiler's own diagnostic JSON. Callers may supply their own (e.g. a
// real rustfix binary shelled out to); DefaultApplier is a self-contained
// fallback.
type Applier interface {
	Apply(source []byte, diagnosticJSON []byte) ([]byte, error)
}

// Replacement is one machine-applicable edit extracted from a diagnostic's
// spans.
type Replacement struct {
	ByteStart int
	ByteEnd   int
	Text      string
}

// DefaultApplier extracts `suggested_replacement` spans flagged
// "MachineApplicable" from the compiler's JSON diagnostics and splices
// them into the source text, rightmost edit first so earlier byte offsets
// stay valid.
type DefaultApplier struct{}

// Apply implements Applier.
func (DefaultApplier) Apply(source []byte, diagnosticJSON []byte) ([]byte, error) {
	fixes := extractReplacementsFromLines(splitLines(string(diagnosticJSON)))
	out := append([]byte{}, source...)
	for _, r := range fixes {
		if r.ByteStart < 0 || r.ByteEnd > len(out) || r.ByteStart > r.ByteEnd {
			continue
		}
		out = append(out[:r.ByteStart:r.ByteStart], append([]byte(r.Text), out[r.ByteEnd:]...)...)
	}
	return out, nil
}

// extractReplacementsFromLines walks each JSON-lines diagnostic looking
// for spans carrying a MachineApplicable suggested_replacement, collecting
// them in reverse byte-offset order.
func extractReplacementsFromLines(lines []string) []Replacement {
	var fixes []Replacement
	for _, line := range lines {
		if !gjson.Valid(line) {
			continue
		}
		root := gjson.Parse(line)
		root.Get("spans").ForEach(func(_, span gjson.Result) bool {
			if span.Get("suggested_replacement").Exists() && span.Get("suggestion_applicability").String() == "MachineApplicable" {
				fixes = append(fixes, Replacement{
					ByteStart: int(span.Get("byte_start").Int()),
					ByteEnd:   int(span.Get("byte_end").Int()),
					Text:      span.Get("suggested_replacement").String(),
				})
			}
			return true
		})
	}
	for i := 1; i < len(fixes); i++ {
		for j := i; j > 0 && fixes[j-1].ByteStart < fixes[j].ByteStart; j-- {
			fixes[j-1], fixes[j] = fixes[j], fixes[j-1]
		}
	}
	return fixes
}

// auditJSON renders the applied fixes as a JSON array, returned to the
// caller in Result.AuditJSON.
func auditJSON(fixes []Replacement) string {
	out := "[]"
	for i, f := range fixes {
		idx := strconv.Itoa(i)
		var err error
		out, err = sjson.Set(out, idx+".byte_start", f.ByteStart)
		if err != nil {
			continue
		}
		out, _ = sjson.Set(out, idx+".byte_end", f.ByteEnd)
		out, _ = sjson.Set(out, idx+".text", f.Text)
	}
	return out
}

// Result carries what the rerun produced, for the runner's reporting.
type Result struct {
	FixedPath string
	Applied   []Replacement
	AuditJSON string
}

// Rerun implements C8: apply fixes, write the `.fixed` file through the
// normal golden-file conflict policy, then build and execute against it in
// forced Pass mode.
func Rerun(ctx context.Context, cfg config.Config, applier Applier, comments *annotations.Comments, testPath, revision string, parentRev annotations.Revisioned, diagnosticJSON []byte) (*Result, errs.Errors) {
	source, err := os.ReadFile(testPath)
	if err != nil {
		return nil, errs.Errors{errs.CommandErr("rustfix: reading source", -1)}
	}

	lines := splitLines(string(diagnosticJSON))
	fixes := extractReplacementsFromLines(lines)

	fixed, err := applier.Apply(source, diagnosticJSON)
	if err != nil {
		return nil, errs.Errors{errs.CommandErr("rustfix", -1)}
	}

	fixedComments := syntheticComments(parentRev)

	goldenPath, goldenErr := matcher.CompareGolden(cfg, fixedComments, fixedComments.ForRevision(""), testPath, revision, "fixed", filter.Filter{}, fixed)
	var outErrs errs.Errors
	if goldenErr != nil {
		outErrs = append(outErrs, *goldenErr)
	}

	if err := os.WriteFile(goldenPath, fixed, 0o644); err != nil && cfg.Conflict != config.Ignore {
		outErrs = append(outErrs, errs.CommandErr("rustfix: writing fixed file", -1))
	}

	inv, buildErrs := command.Build(cfg, fixedComments, revision, goldenPath)
	outErrs = append(outErrs, buildErrs...)

	cmd := inv.CmdContext(ctx)
	if err := cmd.Run(); err != nil {
		status := -1
		if cmd.ProcessState != nil {
			status = cmd.ProcessState.ExitCode()
		}
		if status != 0 {
			outErrs = append(outErrs, errs.CommandErr("rustfix", status))
		}
	} else if cmd.ProcessState.ExitCode() != 0 {
		outErrs = append(outErrs, errs.CommandErr("rustfix", cmd.ProcessState.ExitCode()))
	}

	return &Result{FixedPath: goldenPath, Applied: fixes, AuditJSON: auditJSON(fixes)}, outErrs
}

// syntheticComments builds the minimal Comments the original constructs
// for the rustfix re-run: parent's compile_flags/env_vars/aux_builds
// survive, but mode is forced to Pass and error expectations are cleared.
func syntheticComments(parentRev annotations.Revisioned) *annotations.Comments {
	rev := annotations.Revisioned{
		CompileFlags: parentRev.CompileFlags,
		EnvVars:      parentRev.EnvVars,
		AuxBuilds:    parentRev.AuxBuilds,
		Mode:         &annotations.ModeOverride{Mode: modePass()},
	}
	return annotations.FromRevisioned(rev)
}

func modePass() mode.Mode { return mode.Mode{Kind: mode.Pass} }

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/michaelciraci/ui-test/internal/annotations"
	"github.com/michaelciraci/ui-test/internal/auxiliary"
	"github.com/michaelciraci/ui-test/internal/command"
	"github.com/michaelciraci/ui-test/internal/config"
	"github.com/michaelciraci/ui-test/internal/diagnostics"
	"github.com/michaelciraci/ui-test/internal/errs"
	"github.com/michaelciraci/ui-test/internal/fixer"
	"github.com/michaelciraci/ui-test/internal/matcher"
)

// Pipeline bundles everything a worker needs to run one file end to end,
// besides the path itself. Config is expected to already carry any
// dependency-prebuild artifacts baked into its Args/TrailingArgs — the
// prebuild step runs exactly once, before Run is ever called, never per
// file or per revision (spec.md §5).
type Pipeline struct {
	Config      config.Config
	Applier     fixer.Applier
	PathFilters []string
	// Transform, when set, lets run-all-generic callers derive a per-file
	// Config (e.g. extra compile flags keyed off the path) before that
	// file's revisions run.
	Transform func(path string, cfg config.Config) config.Config
}

// runFile runs every revision of path and returns its TestRun. A panic
// inside the pipeline is caught at this boundary (spec.md §5, "Panic
// isolation") and converted into a single Errored revision carrying
// Error::Bug, so one broken test can never take down a worker.
func runFile(ctx context.Context, p Pipeline, path string) (result TestRun) {
	defer func() {
		if r := recover(); r != nil {
			result = TestRun{
				Path: path,
				Revisions: []RevisionResult{{
					Outcome: Errored,
					Errors:  errs.Errors{errs.BugErr(fmt.Sprintf("%v", r))},
				}},
			}
		}
	}()

	if p.Transform != nil {
		p.Config = p.Transform(path, p.Config)
	}

	if !p.Config.PathFilterMatches(path) {
		return TestRun{Path: path, Revisions: []RevisionResult{{Outcome: Filtered}}}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return TestRun{Path: path, Revisions: []RevisionResult{{
			Outcome: Errored,
			Errors:  errs.Errors{errs.BugErr("reading " + path + ": " + err.Error())},
		}}}
	}

	comments, parseErrs := annotations.Parse(src)

	run := TestRun{Path: path}
	for _, revision := range comments.RevisionList() {
		run.Revisions = append(run.Revisions, runRevision(ctx, p, comments, path, revision, parseErrs))
	}
	return run
}

func runRevision(ctx context.Context, p Pipeline, comments *annotations.Comments, path, revision string, parseErrs errs.Errors) RevisionResult {
	rev := comments.ForRevision(revision)

	if !annotations.Evaluate(rev, p.Config.Target, p.Config.Host) {
		return RevisionResult{Revision: revision, Outcome: Ignored}
	}

	cfg := p.Config

	var errors errs.Errors
	errors = append(errors, parseErrs...)

	if len(rev.AuxBuilds) > 0 {
		subDir := filepath.Join(cfg.OutDir, strings.TrimSuffix(path, filepath.Ext(path)))
		aux, auxErrs := auxiliary.Build(ctx, cfg, path, rev.AuxBuilds, subDir)
		errors = append(errors, auxErrs...)
		for _, a := range aux {
			cfg.TrailingArgs = append(cfg.TrailingArgs, "--extern", a.CrateName+"="+a.Path)
		}
	}

	inv, buildErrs := command.Build(cfg, comments, revision, path)
	errors = append(errors, buildErrs...)

	cmd := inv.CmdContext(ctx)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	runErr := cmd.Run()
	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	} else if runErr != nil {
		exitCode = -1
	}

	diag := diagnostics.Decode(stderrBuf.Bytes(), path)

	effectiveMode := p.Config.Mode
	if rev.Mode != nil {
		effectiveMode = rev.Mode.Mode
	}

	errors = append(errors, matcher.CheckAnnotations(diag, rev, effectiveMode, exitCode, path)...)

	if _, gerr := matcher.CompareGolden(cfg, comments, rev, path, revision, "stderr", cfg.StderrFilters, diag.Rendered); gerr != nil {
		errors = append(errors, *gerr)
	}
	if _, gerr := matcher.CompareGolden(cfg, comments, rev, path, revision, "stdout", cfg.StdoutFilters, stdoutBuf.Bytes()); gerr != nil {
		errors = append(errors, *gerr)
	}

	if rev.RunRustfix {
		applier := p.Applier
		if applier == nil {
			applier = fixer.DefaultApplier{}
		}
		_, fixErrs := fixer.Rerun(ctx, cfg, applier, comments, path, revision, rev, stderrBuf.Bytes())
		errors = append(errors, fixErrs...)
	}

	outcome := Ok
	if len(errors) > 0 {
		outcome = Errored
	}
	return RevisionResult{
		Revision: revision,
		Outcome:  outcome,
		Errors:   errors,
		Command:  inv.String(),
		Stderr:   stderrBuf.Bytes(),
	}
}

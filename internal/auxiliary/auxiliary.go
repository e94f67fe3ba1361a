// Package auxiliary implements the auxiliary builder (C6): it compiles the
// helper source files a test lists via `aux-build:` and exposes their
// emitted artifacts to the parent invocation as `--extern` flags.
package auxiliary

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/michaelciraci/ui-test/internal/annotations"
	"github.com/michaelciraci/ui-test/internal/command"
	"github.com/michaelciraci/ui-test/internal/config"
	"github.com/michaelciraci/ui-test/internal/errs"
)

// Result is what one aux-build entry contributes to the parent invocation.
type Result struct {
	CrateName string
	Path      string
}

// Build compiles every aux-build entry declared for parentPath's revision
// and returns the --extern mapping to thread into the main command.
// subDir is "<out_dir>/<path-without-extension>/", partitioned per test so
// concurrent workers never collide (spec.md §5).
func Build(ctx context.Context, cfg config.Config, parentPath string, builds []annotations.AuxBuild, subDir string) ([]Result, errs.Errors) {
	if len(builds) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		return nil, errs.Errors{errs.CommandErr("auxiliary build", -1)}
	}

	var results []Result
	var errors errs.Errors
	for _, b := range command.SortedAuxBuilds(builds) {
		res, errList := buildOne(ctx, cfg, parentPath, b, subDir)
		errors = append(errors, errList...)
		results = append(results, res...)
	}
	return results, errors
}

func buildOne(ctx context.Context, cfg config.Config, parentPath string, b annotations.AuxBuild, subDir string) ([]Result, errs.Errors) {
	auxPath := filepath.Join(filepath.Dir(parentPath), "auxiliary", b.File)

	src, err := os.ReadFile(auxPath)
	if err != nil {
		return nil, errs.Errors{errs.InvalidCommentErr("cannot read aux-build file "+auxPath+": "+err.Error(), 0)}
	}

	auxComments, parseErrs := annotations.Parse(src)
	if auxComments.HasRevisions() {
		parseErrs = append(parseErrs, errs.InvalidCommentErr("auxiliary build files may not declare revisions: "+auxPath, 0))
	}

	inv, buildErrs := command.Build(cfg, auxComments, "", auxPath)
	parseErrs = append(parseErrs, buildErrs...)

	crateType := b.CrateType
	if crateType == "" {
		crateType = "lib"
	}
	inv.Args = append(inv.Args, "--out-dir", subDir, "--crate-type", crateType, "--emit=link")

	status, _, stderr, err := run(ctx, inv)
	if err != nil || status != 0 {
		parseErrs = append(parseErrs, errs.CommandErr("auxiliary build", status))
		_ = stderr
		return nil, parseErrs
	}

	namesInv := inv
	namesInv.Args = append(append([]string{}, inv.Args...), "--print", "file-names")
	status, stdout, _, err := run(ctx, namesInv)
	if err != nil || status != 0 {
		parseErrs = append(parseErrs, errs.CommandErr("auxiliary build (--print file-names)", status))
		return nil, parseErrs
	}

	crateName := strings.ReplaceAll(strings.TrimSuffix(filepath.Base(b.File), filepath.Ext(b.File)), "-", "_")

	names := strings.Fields(string(stdout))
	if len(names) == 0 {
		parseErrs = append(parseErrs, errs.CommandErr("auxiliary build produced no artifact names for "+b.File, 0))
		return nil, parseErrs
	}
	// Every emitted artifact name is threaded into the parent command as
	// its own --extern flag (spec.md §4.5); --print file-names usually
	// emits exactly one per crate-type, but the grammar allows more.
	out := make([]Result, len(names))
	for i, name := range names {
		out[i] = Result{CrateName: crateName, Path: filepath.Join(subDir, name)}
	}
	return out, parseErrs
}

func run(ctx context.Context, inv command.Invocation) (status int, stdout, stderr []byte, err error) {
	cmd := inv.CmdContext(ctx)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	runErr := cmd.Run()
	if cmd.ProcessState == nil {
		return -1, outBuf.Bytes(), errBuf.Bytes(), fmt.Errorf("auxiliary: %w", runErr)
	}
	status = cmd.ProcessState.ExitCode()
	if runErr != nil && status < 0 {
		return status, outBuf.Bytes(), errBuf.Bytes(), fmt.Errorf("auxiliary: %w", runErr)
	}
	return status, outBuf.Bytes(), errBuf.Bytes(), nil
}

package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/michaelciraci/ui-test/internal/config"
	"github.com/michaelciraci/ui-test/internal/mode"
)

// fakeCompiler writes a minimal shell script standing in for the
// out-of-scope compiler binary: it always exits 0 and prints nothing,
// simulating a clean Pass-mode compile.
func fakeCompiler(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler script requires a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-rustc.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return script
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunWalksAndReportsOk(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.rs", "//@ check-pass\nfn main() {}\n")

	cfg := config.Config{
		Program:  fakeCompiler(t),
		Edition:  "2021",
		Mode:     mode.Mode{Kind: mode.Pass},
		Conflict: config.Ignore,
	}
	pipeline := Pipeline{Config: cfg}

	summary := Run(context.Background(), pipeline, Options{
		Root:       root,
		FileFilter: ExtensionFilter(".rs"),
		NumWorkers: 2,
	})

	if summary.OkCount != 1 {
		t.Fatalf("OkCount = %d, want 1; runs=%+v", summary.OkCount, summary.Runs)
	}
	if summary.ExitCode() != 0 {
		t.Fatalf("ExitCode() = %d, want 0", summary.ExitCode())
	}
}

func TestRunPrunesAuxiliaryDirectory(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.rs", "//@ check-pass\nfn main() {}\n")
	auxDir := filepath.Join(root, "auxiliary")
	if err := os.MkdirAll(auxDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, auxDir, "helper.rs", "pub fn helper() {}\n")

	cfg := config.Config{
		Program:  fakeCompiler(t),
		Edition:  "2021",
		Mode:     mode.Mode{Kind: mode.Pass},
		Conflict: config.Ignore,
	}
	summary := Run(context.Background(), Pipeline{Config: cfg}, Options{
		Root:       root,
		FileFilter: ExtensionFilter(".rs"),
		NumWorkers: 1,
	})

	if len(summary.Runs) != 1 {
		t.Fatalf("Runs = %+v, want exactly the one top-level file (auxiliary/ must be pruned)", summary.Runs)
	}
}

func TestRunIgnoresMatchingCondition(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.rs", "//@ ignore-on-host\nfn main() {}\n")

	cfg := config.Config{
		Program:  fakeCompiler(t),
		Edition:  "2021",
		Mode:     mode.NewFail(true),
		Conflict: config.Ignore,
		Host:     "x86_64-unknown-linux-gnu",
		Target:   "x86_64-unknown-linux-gnu",
	}
	summary := Run(context.Background(), Pipeline{Config: cfg}, Options{
		Root:       root,
		FileFilter: ExtensionFilter(".rs"),
		NumWorkers: 1,
	})

	if summary.IgnoredCount != 1 {
		t.Fatalf("IgnoredCount = %d, want 1; runs=%+v", summary.IgnoredCount, summary.Runs)
	}
}

func TestRunPathFilterExcludesNonMatching(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.rs", "//@ check-pass\nfn main() {}\n")
	writeTestFile(t, root, "b.rs", "//@ check-pass\nfn main() {}\n")

	cfg := config.Config{
		Program:     fakeCompiler(t),
		Edition:     "2021",
		Mode:        mode.Mode{Kind: mode.Pass},
		Conflict:    config.Ignore,
		PathFilters: []string{"a.rs"},
	}
	summary := Run(context.Background(), Pipeline{Config: cfg}, Options{
		Root:       root,
		FileFilter: ExtensionFilter(".rs"),
		NumWorkers: 2,
	})

	if summary.OkCount != 1 || summary.FilteredCount != 1 {
		t.Fatalf("OkCount=%d FilteredCount=%d, want 1/1; runs=%+v", summary.OkCount, summary.FilteredCount, summary.Runs)
	}
}

func TestRunFileCatchesPanicAsBug(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.rs", "fn main() {}\n")

	pipeline := Pipeline{
		Config: config.Config{Program: fakeCompiler(t), Edition: "2021"},
		Transform: func(path string, cfg config.Config) config.Config {
			panic("boom")
		},
	}
	result := runFile(context.Background(), pipeline, filepath.Join(root, "a.rs"))
	if len(result.Revisions) != 1 || result.Revisions[0].Outcome != Errored {
		t.Fatalf("expected a single Errored revision carrying the caught panic, got %+v", result)
	}
	if len(result.Revisions[0].Errors) != 1 || result.Revisions[0].Errors[0].Error() != "internal bug: boom" {
		t.Fatalf("expected a single Bug error, got %+v", result.Revisions[0].Errors)
	}
}

package command

import (
	"strings"
	"testing"

	"github.com/michaelciraci/ui-test/internal/annotations"
	"github.com/michaelciraci/ui-test/internal/config"
)

func TestBuildOrdersArgumentsPerSpec(t *testing.T) {
	cfg := config.Config{
		Program:      "rustc",
		Args:         []string{"--error-format=json"},
		TrailingArgs: []string{"--crate-type=bin"},
		Edition:      "2021",
		OutDir:       "/tmp/out",
	}
	src := "//@ compile-flags: -C opt-level=0\nfn main() {}\n"
	comments, _ := annotations.Parse([]byte(src))

	inv, errs := Build(cfg, comments, "foo", "t.rs")
	if len(errs) != 0 {
		t.Fatalf("unexpected build errors: %+v", errs)
	}

	want := []string{"--out-dir", "/tmp/out", "--error-format=json", "t.rs", "--cfg=foo", "-C", "opt-level=0", "--edition", "2021", "--crate-type=bin"}
	if len(inv.Args) != len(want) {
		t.Fatalf("Args = %v, want %v", inv.Args, want)
	}
	for i := range want {
		if inv.Args[i] != want[i] {
			t.Errorf("Args[%d] = %q, want %q", i, inv.Args[i], want[i])
		}
	}
}

func TestBuildUnnamedRevisionOmitsCfgFlag(t *testing.T) {
	cfg := config.Config{Program: "rustc", Edition: "2021"}
	comments, _ := annotations.Parse([]byte("fn main() {}\n"))
	inv, _ := Build(cfg, comments, "", "t.rs")
	for _, a := range inv.Args {
		if strings.HasPrefix(a, "--cfg=") {
			t.Errorf("unnamed revision must not emit --cfg=, got %v", inv.Args)
		}
	}
}

func TestBuildEditionDirectiveOverridesDefault(t *testing.T) {
	cfg := config.Config{Program: "rustc", Edition: "2021"}
	comments, _ := annotations.Parse([]byte("//@ edition: 2018\nfn main() {}\n"))
	inv, errs := Build(cfg, comments, "", "t.rs")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	found := false
	for i, a := range inv.Args {
		if a == "--edition" && i+1 < len(inv.Args) {
			found = inv.Args[i+1] == "2018"
		}
	}
	if !found {
		t.Errorf("expected --edition 2018, got %v", inv.Args)
	}
}

func TestBuildConflictingEditionDirectivesIsInvalidComment(t *testing.T) {
	cfg := config.Config{Program: "rustc", Edition: "2021"}
	comments, _ := annotations.Parse([]byte("//@ edition: 2018\n//@ edition: 2015\nfn main() {}\n"))
	_, errs := Build(cfg, comments, "", "t.rs")
	if len(errs) == 0 {
		t.Fatalf("expected an InvalidComment error for conflicting edition: directives")
	}
}

func TestInvocationEnvOverlaySetsAndUnsets(t *testing.T) {
	t.Setenv("UITEST_UNSET_ME", "present")
	cfg := config.Config{Program: "rustc", Env: map[string]config.EnvValue{
		"RUSTC_BOOTSTRAP": {Value: "1", Set: true},
		"UITEST_UNSET_ME": {Set: false},
	}}
	comments, _ := annotations.Parse([]byte("//@ rustc-env: FOO=bar\nfn main() {}\n"))
	inv, _ := Build(cfg, comments, "", "t.rs")

	if inv.Env["RUSTC_BOOTSTRAP"].Value != "1" {
		t.Errorf("config env not carried through: %+v", inv.Env)
	}
	if inv.Env["FOO"].Value != "bar" {
		t.Errorf("per-revision env-var not applied: %+v", inv.Env)
	}
	for _, kv := range inv.Cmd().Env {
		if strings.HasPrefix(kv, "UITEST_UNSET_ME=") {
			t.Errorf("unset overlay entry still reaches the child environment: %q", kv)
		}
	}
}

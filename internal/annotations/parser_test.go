package annotations

import (
	"testing"

	"github.com/michaelciraci/ui-test/internal/level"
	"github.com/michaelciraci/ui-test/internal/mode"
)

func TestParseDirectives(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		check   func(t *testing.T, c *Comments, errs int)
	}{
		{
			name: "compile-flags tokenizes like a shell",
			src:  "//@ compile-flags: --edition=2021 -C opt-level=0\nfn main() {}\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				if errCount != 0 {
					t.Fatalf("got %d errors, want 0", errCount)
				}
				rev := c.ForRevision("")
				want := []string{"--edition=2021", "-C", "opt-level=0"}
				if len(rev.CompileFlags) != len(want) {
					t.Fatalf("CompileFlags = %v, want %v", rev.CompileFlags, want)
				}
				for i := range want {
					if rev.CompileFlags[i] != want[i] {
						t.Errorf("CompileFlags[%d] = %q, want %q", i, rev.CompileFlags[i], want[i])
					}
				}
			},
		},
		{
			name: "quoted compile-flags argument stays one token",
			src:  `//@ compile-flags: --cfg 'feature="x y"'` + "\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				if errCount != 0 {
					t.Fatalf("got %d errors, want 0", errCount)
				}
				rev := c.ForRevision("")
				want := []string{"--cfg", `feature="x y"`}
				if len(rev.CompileFlags) != len(want) || rev.CompileFlags[1] != want[1] {
					t.Fatalf("CompileFlags = %v, want %v", rev.CompileFlags, want)
				}
			},
		},
		{
			name: "revisions directive",
			src:  "//@ revisions: a b\nfn main() {}\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				if errCount != 0 {
					t.Fatalf("got %d errors, want 0", errCount)
				}
				if !c.HasRevisions() {
					t.Fatal("expected HasRevisions() to be true")
				}
			},
		},
		{
			name: "revisions directive may not be scoped",
			src:  "//@[a] revisions: a b\n",
			check: func(t *testing.T, _ *Comments, errCount int) {
				if errCount != 1 {
					t.Fatalf("got %d errors, want 1", errCount)
				}
			},
		},
		{
			name: "revisions directive declared twice is an error",
			src:  "//@ revisions: a b\n//@ revisions: c\n",
			check: func(t *testing.T, _ *Comments, errCount int) {
				if errCount != 1 {
					t.Fatalf("got %d errors, want 1", errCount)
				}
			},
		},
		{
			name: "scoped directive only applies to its revision",
			src:  "//@ revisions: a b\n//@[a] run-rustfix\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				if errCount != 0 {
					t.Fatalf("got %d errors, want 0", errCount)
				}
				if !c.ForRevision("a").RunRustfix {
					t.Error("revision a should have RunRustfix set")
				}
				if c.ForRevision("b").RunRustfix {
					t.Error("revision b should not have RunRustfix set")
				}
			},
		},
		{
			name: "unknown directive is an error",
			src:  "//@ not-a-real-directive\n",
			check: func(t *testing.T, _ *Comments, errCount int) {
				if errCount != 1 {
					t.Fatalf("got %d errors, want 1", errCount)
				}
			},
		},
		{
			name: "check-pass sets pass mode",
			src:  "//@ check-pass\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				rev := c.ForRevision("")
				if rev.Mode == nil || rev.Mode.Mode.Kind != mode.Pass {
					t.Fatalf("Mode = %+v, want Pass", rev.Mode)
				}
			},
		},
		{
			name: "aux-build with crate-type",
			src:  "//@ aux-build: helper.rs crate-type=dylib\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				if errCount != 0 {
					t.Fatalf("got %d errors, want 0", errCount)
				}
				rev := c.ForRevision("")
				if len(rev.AuxBuilds) != 1 || rev.AuxBuilds[0].File != "helper.rs" || rev.AuxBuilds[0].CrateType != "dylib" {
					t.Errorf("AuxBuilds = %+v", rev.AuxBuilds)
				}
			},
		},
		{
			name: "rustc-env requires K=V pairs",
			src:  "//@ rustc-env: RUST_BACKTRACE=1\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				if errCount != 0 {
					t.Fatalf("got %d errors, want 0", errCount)
				}
				rev := c.ForRevision("")
				if len(rev.EnvVars) != 1 || rev.EnvVars[0] != (EnvVar{Key: "RUST_BACKTRACE", Value: "1"}) {
					t.Errorf("EnvVars = %+v", rev.EnvVars)
				}
			},
		},
		{
			name: "normalize-stderr-test parses quoted regex and replacement",
			src:  `//@ normalize-stderr-test: "0x[0-9a-f]+" -> "0xNUM"` + "\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				if errCount != 0 {
					t.Fatalf("got %d errors, want 0", errCount)
				}
				rev := c.ForRevision("")
				if len(rev.NormalizeStderr) != 1 {
					t.Fatalf("NormalizeStderr = %+v, want 1 entry", rev.NormalizeStderr)
				}
				got := rev.NormalizeStderr.Apply([]byte("addr 0xdeadbeef"))
				if string(got) != "addr 0xNUM" {
					t.Errorf("Apply() = %q", got)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, errList := Parse([]byte(tt.src))
			tt.check(t, c, len(errList))
		})
	}
}

func TestParseInlineExpectations(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		check  func(t *testing.T, c *Comments, errs int)
	}{
		{
			name: "caret anchors to a preceding line",
			src:  "fn main() {\n    let x: i32 = \"\";\n    //~^ ERROR mismatched types\n}\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				if errCount != 0 {
					t.Fatalf("got %d errors, want 0", errCount)
				}
				rev := c.ForRevision("")
				if len(rev.ErrorMatches) != 1 {
					t.Fatalf("ErrorMatches = %+v", rev.ErrorMatches)
				}
				em := rev.ErrorMatches[0]
				if em.Line != 2 || em.Level != level.Error {
					t.Errorf("ErrorMatch = %+v, want line=2 level=Error", em)
				}
			},
		},
		{
			name: "bare line anchors to itself",
			src:  "fn main() {} //~ ERROR unexpected\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				if errCount != 0 {
					t.Fatalf("got %d errors, want 0", errCount)
				}
				if c.ForRevision("").ErrorMatches[0].Line != 1 {
					t.Error("expected anchor line 1")
				}
			},
		},
		{
			name: "pipe anchors to the previous expectation's line",
			src:  "let x = 1; //~ ERROR first\nlet y = 2; //~| ERROR second\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				if errCount != 0 {
					t.Fatalf("got %d errors, want 0", errCount)
				}
				ms := c.ForRevision("").ErrorMatches
				if len(ms) != 2 || ms[0].Line != ms[1].Line {
					t.Fatalf("ErrorMatches = %+v, want both anchored to the same line", ms)
				}
			},
		},
		{
			name: "pipe with no preceding anchor is an error",
			src:  "//~| ERROR orphaned\n",
			check: func(t *testing.T, _ *Comments, errCount int) {
				if errCount != 1 {
					t.Fatalf("got %d errors, want 1", errCount)
				}
			},
		},
		{
			name: "caret anchoring before line 1 is an error",
			src:  "//~^ ERROR too far up\nfn main() {}\n",
			check: func(t *testing.T, _ *Comments, errCount int) {
				if errCount != 1 {
					t.Fatalf("got %d errors, want 1", errCount)
				}
			},
		},
		{
			name: "missing level defaults to Error",
			src:  "fn main() {} //~ mismatched types\n",
			check: func(t *testing.T, c *Comments, errCount int) {
				if errCount != 0 {
					t.Fatalf("got %d errors, want 0", errCount)
				}
				em := c.ForRevision("").ErrorMatches[0]
				if em.Level != level.Error {
					t.Errorf("Level = %v, want Error", em.Level)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, errList := Parse([]byte(tt.src))
			tt.check(t, c, len(errList))
		})
	}
}

func TestRevisionListDefaultsToUnnamed(t *testing.T) {
	c, _ := Parse([]byte("fn main() {}\n"))
	got := c.RevisionList()
	if len(got) != 1 || got[0] != "" {
		t.Fatalf("RevisionList() = %v, want [\"\"]", got)
	}
}

func TestEditionsForDetectsConflicts(t *testing.T) {
	c, _ := Parse([]byte("//@ edition: 2018\n//@ edition: 2021\n"))
	eds := c.EditionsFor("")
	if len(eds) != 2 {
		t.Fatalf("EditionsFor = %v, want 2 distinct editions", eds)
	}
}

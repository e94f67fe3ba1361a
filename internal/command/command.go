// Package command implements the command builder (C4): it assembles a
// fully-configured compiler invocation from a Config, a file's Comments,
// and the revision under test.
package command

import (
	"context"
	"os"
	"os/exec"
	"sort"

	"github.com/michaelciraci/ui-test/internal/annotations"
	"github.com/michaelciraci/ui-test/internal/config"
	"github.com/michaelciraci/ui-test/internal/errs"
)

// Invocation is a fully-resolved compiler command, ready to run.
type Invocation struct {
	Program string
	Args    []string
	Env     map[string]config.EnvValue
}

// String renders the invocation the way a failure report shows the
// "command" line: program followed by its arguments, space-separated and
// unquoted.
func (inv Invocation) String() string {
	s := inv.Program
	for _, a := range inv.Args {
		s += " " + a
	}
	return s
}

// Cmd builds an *exec.Cmd from the invocation, applying its environment
// overlay on top of the current process environment.
func (inv Invocation) Cmd() *exec.Cmd {
	return inv.CmdContext(context.Background())
}

// CmdContext is like Cmd but ties the subprocess's lifetime to ctx, so a
// cancelled run (e.g. the runner's errgroup context) tears down in-flight
// compiler invocations instead of leaking them.
func (inv Invocation) CmdContext(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	if len(inv.Env) > 0 {
		cmd.Env = applyEnv(inv.Env)
	}
	return cmd
}

func applyEnv(overlay map[string]config.EnvValue) []string {
	base := os.Environ()
	filtered := make([]string, 0, len(base))
	for _, kv := range base {
		k, _, _ := cutEnv(kv)
		if _, overridden := overlay[k]; !overridden {
			filtered = append(filtered, kv)
		}
	}
	for k, v := range overlay {
		if v.Set {
			filtered = append(filtered, k+"="+v.Value)
		}
	}
	return filtered
}

func cutEnv(kv string) (string, string, bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return kv, "", false
}

// Build assembles the invocation for one revision of path, per spec.md
// §4.5:
//
//	program [--out-dir out] config.Args envs path [--cfg=<rev>]
//	per-revision compile_flags --edition <chosen> config.TrailingArgs
//	per-revision env_vars
func Build(cfg config.Config, comments *annotations.Comments, rev string, path string) (Invocation, errs.Errors) {
	r := comments.ForRevision(rev)

	editions := comments.EditionsFor(rev)
	chosen := cfg.Edition
	var errors errs.Errors
	switch len(editions) {
	case 0:
		// keep config default
	case 1:
		chosen = editions[0]
	default:
		errors = append(errors, errs.InvalidCommentErr("multiple edition: directives apply to revision "+displayRev(rev), 0))
	}

	inv := Invocation{Program: cfg.Program, Env: make(map[string]config.EnvValue)}
	for k, v := range cfg.Env {
		inv.Env[k] = v
	}

	if cfg.OutDir != "" {
		inv.Args = append(inv.Args, "--out-dir", cfg.OutDir)
	}
	inv.Args = append(inv.Args, cfg.Args...)
	inv.Args = append(inv.Args, path)
	if rev != "" {
		inv.Args = append(inv.Args, "--cfg="+rev)
	}
	inv.Args = append(inv.Args, r.CompileFlags...)
	inv.Args = append(inv.Args, "--edition", chosen)
	inv.Args = append(inv.Args, cfg.TrailingArgs...)

	for _, ev := range r.EnvVars {
		inv.Env[ev.Key] = config.EnvValue{Value: ev.Value, Set: true}
	}

	return inv, errors
}

func displayRev(rev string) string {
	if rev == "" {
		return "<unnamed>"
	}
	return rev
}

// SortedAuxBuilds returns r's aux_builds in a deterministic order (file
// discovery order is not guaranteed stable across merge(), since entries
// fold in revision-declaration order, not alphabetic order).
func SortedAuxBuilds(builds []annotations.AuxBuild) []annotations.AuxBuild {
	out := append([]annotations.AuxBuild{}, builds...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}

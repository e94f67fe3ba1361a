// Package config holds Config, the process-wide, build-once settings
// object threaded through every component (spec.md §3). It is kept as a
// small leaf package, like level/mode/filter/pattern, so that both the
// public embedding API and the internal pipeline packages can depend on it
// without an import cycle.
package config

import (
	"runtime"
	"strings"

	"github.com/michaelciraci/ui-test/internal/filter"
	"github.com/michaelciraci/ui-test/internal/mode"
)

// ConflictHandling decides what a golden-file mismatch does.
type ConflictHandling int

const (
	// Error reports OutputDiffers on any mismatch.
	Error ConflictHandling = iota
	// Ignore silences golden-file mismatches (annotation errors still fire).
	Ignore
	// Bless overwrites the golden file with the actual output.
	Bless
)

// EnvValue is one entry in Config's environment overlay: Set == false
// means the variable is explicitly unset for the child process rather than
// merely absent from the overlay.
type EnvValue struct {
	Value string
	Set   bool
}

// DependencyBuilder describes how to invoke the external package-manifest
// builder for C5.
type DependencyBuilder struct {
	// Program is the builder binary; empty means "read it from the
	// implementation-defined CARGO-equivalent env var, else a hardcoded
	// fallback."
	Program string
	Args    []string
	// Crate, when set, builds only this package from the manifest instead
	// of the whole workspace.
	Crate string
}

// Config is the process-wide configuration built once by the embedding CLI
// and treated as read-only once workers start (spec.md §5).
type Config struct {
	Program       string
	Args          []string
	TrailingArgs  []string
	Env           map[string]EnvValue
	Host          string
	Target        string
	StderrFilters filter.Filter
	StdoutFilters filter.Filter
	RootDir       string
	Mode          mode.Mode
	Conflict      ConflictHandling
	PathFilters   []string
	ManifestPath  string
	Dependencies  *DependencyBuilder
	Quiet         bool
	Verbose       bool
	NumWorkers    int
	OutDir        string
	Edition       string
}

// Default returns a Config matching the original's Config::default(): JSON
// diagnostics requested by default, mode Fail{require_patterns:true},
// program "rustc", edition "2021", worker count the host's CPU count.
func Default() Config {
	return Config{
		Program:      "rustc",
		Args:         []string{"--error-format=json"},
		Mode:         mode.NewFail(true),
		Conflict:     Error,
		NumWorkers:   runtime.NumCPU(),
		Edition:      "2021",
		Env:          make(map[string]EnvValue),
	}
}

// FillHostAndTarget sets Target to Host whenever Target is empty, matching
// the original's "target defaults to host" rule. host must already be
// known (queried from the compiler by the caller).
func (c *Config) FillHostAndTarget(host string) {
	if c.Host == "" {
		c.Host = host
	}
	if c.Target == "" {
		c.Target = c.Host
	}
}

// WithStderrFilter appends a stderr filter entry, literal or regex (§6: "append
// entries to the filter lists").
func (c *Config) WithStderrFilter(m filter.Match, replacement []byte) {
	c.StderrFilters = c.StderrFilters.Append(filter.Entry{Match: m, Replacement: replacement})
}

// WithStdoutFilter appends a stdout filter entry.
func (c *Config) WithStdoutFilter(m filter.Match, replacement []byte) {
	c.StdoutFilters = c.StdoutFilters.Append(filter.Entry{Match: m, Replacement: replacement})
}

// PathFilterMatches reports whether path should be tested, per the
// runner's path_filter rule: empty filter list means "run everything."
func (c *Config) PathFilterMatches(path string) bool {
	if len(c.PathFilters) == 0 {
		return true
	}
	for _, f := range c.PathFilters {
		if f == "" || strings.Contains(path, f) {
			return true
		}
	}
	return false
}

// Package dependencies implements the dependency prebuilder (C5): it runs
// the external package-manifest builder exactly once before fan-out and
// extracts the artifact paths and search directories every test invocation
// needs linked in.
package dependencies

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nightlyone/lockfile"
	"github.com/tidwall/gjson"

	"github.com/michaelciraci/ui-test/internal/config"
)

// Artifacts is what the prebuild step hands back to the command builder:
// linker search directories and a name→path table for `--extern` flags.
type Artifacts struct {
	SearchDirs []string
	Externs    map[string]string
}

func defaultProgram() string {
	if p := os.Getenv("CARGO"); p != "" {
		return p
	}
	return "cargo"
}

// lockPath is where Build takes its cross-process lock, so two ui-test
// invocations sharing a manifest's target directory never race the same
// build.
func lockPath(manifestPath string) string {
	dir := filepath.Dir(manifestPath)
	return filepath.Join(dir, ".ui-test-deps.lock")
}

// Build runs the manifest builder once and parses its machine-readable
// build-message stream into Artifacts. cfg.ManifestPath must be set;
// returns a zero Artifacts, nil if it isn't (dependencies are optional).
func Build(ctx context.Context, cfg config.Config) (Artifacts, error) {
	if cfg.ManifestPath == "" {
		return Artifacts{}, nil
	}

	lock, err := lockfile.New(lockPath(cfg.ManifestPath))
	if err != nil {
		return Artifacts{}, fmt.Errorf("dependencies: creating lockfile: %w", err)
	}
	if err := acquireWithRetry(lock, 30*time.Second); err != nil {
		return Artifacts{}, fmt.Errorf("dependencies: locking %s: %w", cfg.ManifestPath, err)
	}
	defer lock.Unlock()

	builder := cfg.Dependencies
	program := defaultProgram()
	args := []string{"build", "--message-format=json", "--manifest-path", cfg.ManifestPath}
	if builder != nil {
		if builder.Program != "" {
			program = builder.Program
		}
		if builder.Crate != "" {
			args = append(args, "-p", builder.Crate)
		}
		args = append(args, builder.Args...)
	}

	cmd := exec.CommandContext(ctx, program, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Artifacts{}, fmt.Errorf("dependencies: %s %s: %w\n%s", program, strings.Join(args, " "), err, stderr.String())
	}

	return parseBuildMessages(stdout.Bytes()), nil
}

// acquireWithRetry polls for the lock since nightlyone/lockfile's TryLock
// is non-blocking and stale locks left by a crashed sibling process resolve
// themselves once their owning PID is gone.
func acquireWithRetry(lock lockfile.Lockfile, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		err := lock.TryLock()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	return lastErr
}

// parseBuildMessages walks a `cargo build --message-format=json`-shaped
// stream (newline-delimited JSON) and collects every compiler-artifact
// message's library filenames and the directories they live in.
func parseBuildMessages(out []byte) Artifacts {
	art := Artifacts{Externs: make(map[string]string)}
	seenDirs := make(map[string]bool)

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] != '{' || !gjson.Valid(line) {
			continue
		}
		msg := gjson.Parse(line)
		if msg.Get("reason").String() != "compiler-artifact" {
			continue
		}
		crateName := msg.Get("target.name").String()
		if crateName == "" {
			continue
		}
		msg.Get("filenames").ForEach(func(_, f gjson.Result) bool {
			path := f.String()
			if path == "" {
				return true
			}
			dir := filepath.Dir(path)
			if !seenDirs[dir] {
				seenDirs[dir] = true
				art.SearchDirs = append(art.SearchDirs, dir)
			}
			if isLinkable(path) {
				art.Externs[crateName] = path
			}
			return true
		})
	}
	return art
}

func isLinkable(path string) bool {
	switch filepath.Ext(path) {
	case ".rlib", ".so", ".a", ".dylib", ".dll":
		return true
	default:
		return false
	}
}

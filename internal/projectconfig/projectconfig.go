// Package projectconfig loads the optional `.uitest.yaml` project file the
// CLI layer merges under explicit flags (spec.md §10's AMBIENT STACK:
// configuration). It follows the same defense-in-depth content validation
// as the teacher's workflow YAML loader before handing the bytes to
// goccy/go-yaml.
package projectconfig

import (
	"bytes"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// maxFileSizeBytes caps a project config file the same way the teacher
// caps a workflow file: large "YAML" is almost certainly not a project
// config someone hand-wrote.
const maxFileSizeBytes = 1 * 1024 * 1024

// maxControlChars is the same excessive-control-character threshold the
// teacher's workflow loader uses as a cheap malformed-file signal.
const maxControlChars = 10

// File is the subset of Config that's sensible to externalize into a
// project file rather than requiring it on every CLI invocation.
type File struct {
	Program      string            `yaml:"program"`
	Args         []string          `yaml:"args"`
	TrailingArgs []string          `yaml:"trailing-args"`
	Target       string            `yaml:"target"`
	Host         string            `yaml:"host"`
	Edition      string            `yaml:"edition"`
	RootDir      string            `yaml:"root-dir"`
	OutDir       string            `yaml:"out-dir"`
	ManifestPath string            `yaml:"manifest-path"`
	Quiet        bool              `yaml:"quiet"`
	NumWorkers   int               `yaml:"jobs"`
	Env          map[string]string `yaml:"env"`
}

// Load reads and parses path, applying the same validation the teacher's
// ParseWorkflowFile does before unmarshalling. A missing file is not an
// error — callers fall back to flag-only defaults, the same tolerance the
// teacher extends to a missing/broken persisted config.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied, not request-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading project config: %w", err)
	}

	if err := validateContent(data); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing project config %s: %w", path, err)
	}
	return &f, nil
}

// validateContent provides the same defense-in-depth the teacher's
// workflow loader applies: reject oversized files, binary content
// disguised as YAML, and files with suspiciously many control characters.
func validateContent(data []byte) error {
	if len(data) > maxFileSizeBytes {
		return fmt.Errorf("project config exceeds maximum size of %d bytes", maxFileSizeBytes)
	}
	if bytes.Contains(data, []byte{0x00}) {
		return fmt.Errorf("project config contains null bytes (binary content not allowed)")
	}
	controlCount := 0
	for _, b := range data {
		if b < 32 && b != '\n' && b != '\r' && b != '\t' {
			controlCount++
		}
	}
	if controlCount > maxControlChars {
		return fmt.Errorf("project config contains excessive control characters (%d found)", controlCount)
	}
	return nil
}

package matcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/michaelciraci/ui-test/internal/annotations"
	"github.com/michaelciraci/ui-test/internal/config"
	"github.com/michaelciraci/ui-test/internal/errs"
	"github.com/michaelciraci/ui-test/internal/filter"
)

// RustlibEnvVar names the implementation-defined variable pointing at the
// compiler's sysroot library path; when its value shows up in output it is
// rewritten to the literal "RUSTLIB" (spec.md §6, "Environment consumed").
const RustlibEnvVar = "RUSTC_LIB_PATH"

// Revised mirrors the original's `revised(revision, extension)` helper:
// the kind gets a `<revision>.` prefix whenever a revision is in play.
func Revised(revision, kind string) string {
	if revision == "" {
		return kind
	}
	return revision + "." + kind
}

// OutputPath derives the golden-file path for one (revision, kind) pair,
// following the original's output_path exactly: a `<bits>bit.` infix is
// prepended to kind when the revision turned on stderr_per_bitwidth, and
// the whole thing replaces the test file's own extension.
func OutputPath(testPath string, comments *annotations.Comments, revision, kind, target string) string {
	k := Revised(revision, kind)
	if comments.ForRevision(revision).StderrPerBitwidth {
		k = fmt.Sprintf("%dbit.%s", annotations.PointerWidth(target), k)
	}
	ext := filepath.Ext(testPath)
	stem := strings.TrimSuffix(testPath, ext)
	return stem + "." + k
}

// Normalize applies the lib-path rewrite, the caller-supplied filter list
// (with an implicit $DIR replacement for the test file's own directory
// appended), and finally the revision's normalize_stderr filters, in that
// order — matching the original's normalize().
func Normalize(testPath string, text []byte, filters filter.Filter, rev annotations.Revisioned) []byte {
	out := append([]byte{}, text...)

	if libPath := os.Getenv(RustlibEnvVar); libPath != "" {
		out = []byte(strings.ReplaceAll(string(out), libPath, "RUSTLIB"))
	}

	dirFilter := filter.Entry{Match: filter.FromPath(filepath.Dir(testPath)), Replacement: []byte("$DIR")}
	out = filters.Append(dirFilter).Apply(out)

	out = rev.NormalizeStderr.Apply(out)
	return out
}

// CompareGolden implements C7's golden-file half, via C1's filters: normalize actual,
// compute the golden path, and apply the conflict-handling policy.
// Returns the golden path that was checked (or written, under Bless).
func CompareGolden(cfg config.Config, comments *annotations.Comments, rev annotations.Revisioned, testPath, revision, kind string, filters filter.Filter, actual []byte) (string, *errs.Error) {
	normalized := Normalize(testPath, actual, filters, rev)
	goldenPath := OutputPath(testPath, comments, revision, kind, cfg.Target)

	switch cfg.Conflict {
	case config.Bless:
		if len(normalized) == 0 {
			_ = os.Remove(goldenPath)
			return goldenPath, nil
		}
		if err := os.WriteFile(goldenPath, normalized, 0o644); err != nil {
			e := errs.CommandErr("bless write "+goldenPath, -1)
			return goldenPath, &e
		}
		return goldenPath, nil

	case config.Ignore:
		return goldenPath, nil

	default: // config.Error
		expected, _ := os.ReadFile(goldenPath)
		if string(expected) != string(normalized) {
			e := errs.OutputDiffersErr(goldenPath, normalized, expected)
			return goldenPath, &e
		}
		return goldenPath, nil
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	uitest "github.com/michaelciraci/ui-test"
	"github.com/michaelciraci/ui-test/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every test under --root and report pass/fail",
	Example: `  ui-test run --root tests --program rustc
  ui-test run --filter parser`,
	Args:          cobra.NoArgs,
	RunE:          runRun,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func runRun(c *cobra.Command, _ []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Conflict = config.Error

	summary, err := uitest.RunTests(c.Context(), cfg)
	if err != nil {
		return err
	}
	if summary.ExitCode() != 0 {
		return errSilentFailure{code: summary.ExitCode(), runs: len(summary.Failed())}
	}
	return nil
}

// errSilentFailure carries a nonzero exit code through cobra's RunE without
// cobra printing its own "Error:" line — the reporter already told the
// operator what failed, the way the teacher's apps/go-cli commands let a
// dedicated reporter own all user-facing output.
type errSilentFailure struct {
	code int
	runs int
}

func (e errSilentFailure) Error() string {
	return fmt.Sprintf("%d test file(s) failed", e.runs)
}

// ExitCode lets main map this sentinel to a process exit status without
// printing anything further.
func (e errSilentFailure) ExitCode() int { return e.code }

package cmd

import (
	"github.com/spf13/cobra"

	uitest "github.com/michaelciraci/ui-test"
	"github.com/michaelciraci/ui-test/internal/config"
)

var blessCmd = &cobra.Command{
	Use:   "bless",
	Short: "Run every test under --root, overwriting golden files with actual output",
	Example: `  ui-test bless --root tests --filter parser`,
	Args:          cobra.NoArgs,
	RunE:          runBless,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func runBless(c *cobra.Command, _ []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Conflict = config.Bless

	summary, err := uitest.RunTests(c.Context(), cfg)
	if err != nil {
		return err
	}
	if summary.ExitCode() != 0 {
		return errSilentFailure{code: summary.ExitCode(), runs: len(summary.Failed())}
	}
	return nil
}

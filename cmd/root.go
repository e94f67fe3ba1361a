// Package cmd implements the CLI shell around the uitest harness, the way
// the teacher's apps/go-cli/cmd structures one root command with
// persistent flags and mode-specific subcommands (spec.md §10).
package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/michaelciraci/ui-test/internal/config"
	"github.com/michaelciraci/ui-test/internal/projectconfig"
)

// Version is set at build time via -ldflags, the same convention the
// teacher's version.go uses ("dev" until overridden).
var Version = "dev"

var (
	flagRoot         string
	flagProgram      string
	flagTarget       string
	flagHost         string
	flagEdition      string
	flagOutDir       string
	flagManifestPath string
	flagConfigFile   string
	flagQuiet        bool
	flagVerbose      bool
	flagJobs         int
	flagPathFilters  []string
)

var rootCmd = &cobra.Command{
	Use:     "ui-test",
	Short:   "A UI test harness for a compiler-like program",
	Version: Version,
	Long: `ui-test walks a directory of source files, invokes a compiler binary on
each, and checks its diagnostics against inline source annotations and
golden reference files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "tests", "root directory to walk for test files")
	rootCmd.PersistentFlags().StringVar(&flagProgram, "program", "rustc", "compiler binary to invoke")
	rootCmd.PersistentFlags().StringVar(&flagTarget, "target", "", "target triple (defaults to host)")
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "host triple override (normally queried from --program)")
	rootCmd.PersistentFlags().StringVar(&flagEdition, "edition", "2021", "default language edition")
	rootCmd.PersistentFlags().StringVar(&flagOutDir, "out-dir", "", "build artifact output directory")
	rootCmd.PersistentFlags().StringVar(&flagManifestPath, "manifest-path", "", "dependency package manifest to prebuild")
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", ".uitest.yaml", "project config file")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "print a tick per result instead of a line")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "dump parsed comments and built commands to stderr")
	rootCmd.PersistentFlags().IntVarP(&flagJobs, "jobs", "j", runtime.NumCPU(), "number of parallel workers")
	rootCmd.PersistentFlags().StringArrayVar(&flagPathFilters, "filter", nil, "only run tests whose path contains this substring (repeatable)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(blessCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// buildConfig merges the project config file (if present) under the
// explicit CLI flags, then returns a Config ready for uitest.RunTests*.
// Flags always win over the file, matching the teacher's
// flag-overrides-persisted-config convention in persistence.Load.
func buildConfig() (config.Config, error) {
	cfg := config.Default()
	cfg.Program = flagProgram
	cfg.Target = flagTarget
	cfg.Host = flagHost
	cfg.Edition = flagEdition
	cfg.RootDir = flagRoot
	cfg.OutDir = flagOutDir
	cfg.ManifestPath = flagManifestPath
	cfg.Quiet = flagQuiet
	cfg.Verbose = flagVerbose
	cfg.NumWorkers = flagJobs
	cfg.PathFilters = flagPathFilters

	if flagConfigFile != "" {
		file, err := projectconfig.Load(flagConfigFile)
		if err != nil {
			return config.Config{}, err
		}
		if file != nil {
			applyProjectFile(&cfg, file)
		}
	}

	if flagVerbose {
		fmt.Fprintln(os.Stderr, "resolved config:")
		fmt.Fprintln(os.Stderr, spew.Sdump(cfg))
	}

	return cfg, nil
}

// applyProjectFile overlays file's settings onto cfg wherever the matching
// CLI flag was not given on the command line, so an explicit flag always
// takes priority. The file's args, trailing args and env are added to cfg.
func applyProjectFile(cfg *config.Config, file *projectconfig.File) {
	flags := rootCmd.PersistentFlags()
	if file.Program != "" && !flags.Changed("program") {
		cfg.Program = file.Program
	}
	if len(file.Args) > 0 {
		cfg.Args = append(cfg.Args, file.Args...)
	}
	if len(file.TrailingArgs) > 0 {
		cfg.TrailingArgs = append(cfg.TrailingArgs, file.TrailingArgs...)
	}
	if file.Target != "" && !flags.Changed("target") {
		cfg.Target = file.Target
	}
	if file.Host != "" && !flags.Changed("host") {
		cfg.Host = file.Host
	}
	if file.RootDir != "" && !flags.Changed("root") {
		cfg.RootDir = file.RootDir
	}
	if file.OutDir != "" && !flags.Changed("out-dir") {
		cfg.OutDir = file.OutDir
	}
	if file.ManifestPath != "" && !flags.Changed("manifest-path") {
		cfg.ManifestPath = file.ManifestPath
	}
	if file.NumWorkers > 0 && !flags.Changed("jobs") {
		cfg.NumWorkers = file.NumWorkers
	}
	if file.Edition != "" && !flags.Changed("edition") {
		cfg.Edition = file.Edition
	}
	if file.Quiet && !flags.Changed("quiet") {
		cfg.Quiet = true
	}
	for k, v := range file.Env {
		if cfg.Env == nil {
			cfg.Env = make(map[string]config.EnvValue)
		}
		if _, exists := cfg.Env[k]; !exists {
			cfg.Env[k] = config.EnvValue{Value: v, Set: true}
		}
	}
}


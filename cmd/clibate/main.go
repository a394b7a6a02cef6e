package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-logger/glog"
	"github.com/spf13/cobra"

	"github.com/clibate/clibate/internal/config"
	"github.com/clibate/clibate/internal/logging"
	"github.com/clibate/clibate/internal/runner"
)

const version = "0.1.0"

var (
	flagConfig  string
	flagEnv     string
	flagShell   string
	flagVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clibate",
		Short: "Black-box CLI integration testing",
		Long:  "clibate materializes sandboxed fixtures, runs a command against them, and compares the captured output against expectations declared in a test-spec file.",
	}
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a clibate.yaml config file")
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "path to a .env file to load before running")
	rootCmd.PersistentFlags().StringVar(&flagShell, "shell", "", "shell used to run command: lines (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug-level logging")

	rootCmd.AddCommand(newRunCmd(), newCheckCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <spec-file>",
		Short: "Run every test: section in a test-spec file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			r := runner.New(cfg.Shell, logger)
			result, err := runSuite(context.Background(), r, args[0])
			if err != nil {
				return err
			}

			for _, tr := range result.Results {
				status := "ok"
				if !tr.Passed {
					status = "FAIL"
				}
				fmt.Printf("%-4s %s\n", status, tr.Name)
				if !tr.Passed {
					if tr.StdoutDiff != "" {
						fmt.Println(tr.StdoutDiff)
					}
					if tr.StderrDiff != "" {
						fmt.Println(tr.StderrDiff)
					}
				}
			}
			fmt.Printf("\n%d passed, %d failed, %d total\n", result.Passed, result.Failed(), result.Total)

			if result.Failed() > 0 {
				return fmt.Errorf("%d test(s) failed", result.Failed())
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <spec-file>",
		Short: "Parse a test-spec file (and its include: chain) without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := resolveDocument(args[0], nil, map[string]bool{})
			if err != nil {
				return err
			}

			var files, copies, includes, tests int
			for _, sec := range sections {
				switch {
				case sec.File != nil:
					files++
				case sec.Copy != nil:
					copies++
				case sec.Include != nil:
					includes++
				case sec.Test != nil:
					tests++
				}
			}
			fmt.Printf("%s: ok — %d file(s), %d copy pattern(s), %d include(s), %d test(s)\n",
				args[0], files, copies, includes, tests)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the clibate version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("clibate v%s\n", version)
			return nil
		},
	}
}

// bootstrap loads the .env file and config file named by the flags,
// and builds the logger the run subcommand logs through.
func bootstrap() (config.RunnerConfig, glog.Logger, error) {
	config.LoadEnv(flagEnv)

	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return config.RunnerConfig{}, nil, err
		}
		cfg = loaded
	}
	if flagShell != "" {
		cfg.Shell = flagShell
	}
	if flagVerbose {
		cfg.Verbose = true
	}

	logger := logging.New(logging.Options{
		Name:    "clibate",
		Level:   cfg.LogLevel,
		Verbose: cfg.Verbose,
	})
	return cfg, logger, nil
}

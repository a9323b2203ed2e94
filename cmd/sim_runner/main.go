package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/miretskiy/endurer/trace"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		logrus.Error(err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// newRootCommand builds the sim_runner command tree. The root command parses
// its own arguments with parseArgs.
func newRootCommand(stdout io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sim_runner",
		Short: "Simulate memory wear-out under random page remapping",
		Long: `sim_runner replays per-page write histograms against a memory with a finite
cell write endurance, remapping pages at random offsets, and reports how long
the memory lasts normalized per GiB.`,
		Example: `  sim_runner -m write -p 4096 -c 100000000 -r 1000 -i app.bin -t 2.5e9
  sim_runner -m write -p 4096 -c 100000000 -r 1000 -i a.bin -t 1e9 -i b.bin -t 3e9
  sim_runner -m lifetime -p 4096 -c 100000000 -i app.bin -t 2.5e9`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, opts, err := parseArgs(args)
			if errors.Is(err, pflag.ErrHelp) {
				return cmd.Help()
			}
			if err != nil {
				return err
			}
			if err := setLogLevel(opts.logLevel); err != nil {
				return err
			}
			return run(config, opts, stdout)
		},
	}
	// Declared for help output only
	addRunFlags(rootCmd.Flags())

	rootCmd.AddCommand(newGenTraceCommand())
	return rootCmd
}

func newGenTraceCommand() *cobra.Command {
	var (
		cfg      trace.GenerateConfig
		distName string
		output   string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:           "gentrace",
		Short:         "Write a synthetic write histogram",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setLogLevel(logLevel); err != nil {
				return err
			}
			dist, err := trace.ParseDistributionType(distName)
			if err != nil {
				return err
			}
			cfg.Distribution = dist

			counts, err := trace.Generate(cfg)
			if err != nil {
				return err
			}
			if err := trace.Save(output, counts); err != nil {
				return err
			}
			logrus.Infof("Wrote %d pages (%s, writes in [%d, %d]) to %s",
				len(counts), dist, cfg.MinWrites, cfg.MaxWrites, output)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&cfg.Pages, "pages", 1024, "Number of pages")
	cmd.Flags().Uint64Var(&cfg.MinWrites, "min-writes", 0, "Smallest per-page write count")
	cmd.Flags().Uint64Var(&cfg.MaxWrites, "max-writes", 1000, "Largest per-page write count")
	cmd.Flags().StringVar(&distName, "distribution", "exponential", "uniform, exponential, geometric or fixed")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 0, "Random seed (0 = time-based)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Trace file to write")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")
	if err := cmd.MarkFlagRequired("output"); err != nil {
		panic(err)
	}
	return cmd
}

func setLogLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level: %s", name)
	}
	logrus.SetLevel(level)
	return nil
}

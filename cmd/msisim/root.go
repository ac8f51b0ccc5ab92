package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/msisim/timing/latency"
)

type rootOptions struct {
	configPath string
	envFiles   []string
	cores      int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "msisim",
		Short: "msisim simulates private caches kept coherent by an MSI directory.",
		Long: `msisim simulates a multi-core memory hierarchy in which private L1 ` +
			`caches are kept coherent by a shared MSI directory. It runs ` +
			`synthetic sharing-pattern workloads and reports timing and traffic.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "",
		"Path to timing configuration JSON file")
	flags.StringSliceVar(&opts.envFiles, "env-file", nil,
		"Env files with MSISIM_* overrides (default: ./.env if present)")
	flags.IntVar(&opts.cores, "cores", 0,
		"Number of cores, overriding the configuration")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newBenchCmd(opts),
		newConfigCmd(opts),
	)

	return rootCmd
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then env overrides, then flags.
func (o *rootOptions) loadConfig() (*latency.TimingConfig, error) {
	config := latency.DefaultTimingConfig()

	if o.configPath != "" {
		var err error
		config, err = latency.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
	}

	if err := config.ApplyEnv(o.envFiles...); err != nil {
		return nil, err
	}

	if o.cores > 0 {
		config.NumCores = o.cores
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Execute runs the root command and exits through atexit so that trace
// writers get flushed.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/msisim/benchmarks"
)

type benchOptions struct {
	jsonOutput bool
	csvOutput  bool
	quick      bool
	verbose    bool
}

func newBenchCmd(root *rootOptions) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run every sharing-pattern workload and compare them.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := root.loadConfig()
			if err != nil {
				return err
			}

			harnessConfig := benchmarks.DefaultConfig()
			harnessConfig.Timing = config
			harnessConfig.Output = cmd.OutOrStdout()
			harnessConfig.Verbose = opts.verbose

			harness := benchmarks.NewHarness(harnessConfig)
			if opts.quick {
				harness.AddWorkloads(benchmarks.GetCoreWorkloads())
			} else {
				harness.AddWorkloads(benchmarks.GetWorkloads())
			}

			results, err := harness.RunAll()
			if err != nil {
				return err
			}

			switch {
			case opts.jsonOutput:
				return harness.PrintJSON(results)
			case opts.csvOutput:
				harness.PrintCSV(results)
			default:
				harness.PrintResults(results)
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")
	flags.BoolVar(&opts.csvOutput, "csv", false, "Print results as CSV")
	flags.BoolVar(&opts.quick, "quick", false, "Run the reduced workload set")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Print the full report of every run")

	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/sarchlab/msisim/benchmarks"
	"github.com/sarchlab/msisim/loader"
	"github.com/sarchlab/msisim/monitoring"
	"github.com/sarchlab/msisim/timing/core"
	"github.com/sarchlab/msisim/timing/hierarchy"
	"github.com/sarchlab/msisim/tracing"
)

type runOptions struct {
	workload    string
	seed        int64
	traceFile   string
	dumpTrace   string
	traceDB     string
	traceStderr bool
	monitor     bool
	monitorPort int
	openBrowser bool
	cpuProfile  string
	memProfile  string
	jsonOutput  bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one workload and print the simulation report.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkload(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.workload, "workload", "random_mix",
		"Workload to run (private, read_shared, producer_consumer, "+
			"migratory, false_sharing, random_mix)")
	flags.Int64Var(&opts.seed, "seed", 1, "Seed of the random_mix workload")
	flags.StringVar(&opts.traceFile, "trace-file", "",
		"Replay the accesses of a trace file instead of a workload")
	flags.StringVar(&opts.dumpTrace, "dump-trace", "",
		"Write the accesses of the run to a trace file")
	flags.StringVar(&opts.traceDB, "trace-db", "",
		"Record transitions and flows into <prefix>_<id>.sqlite3")
	flags.BoolVar(&opts.traceStderr, "trace-stderr", false,
		"Print every transition to stderr")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"Serve the monitoring API while simulating")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"Port of the monitoring server (default: random)")
	flags.BoolVar(&opts.openBrowser, "open-browser", false,
		"Open the monitoring server in a browser")
	flags.StringVar(&opts.cpuProfile, "cpuprofile", "",
		"Write a CPU profile of the simulator to file")
	flags.StringVar(&opts.memProfile, "memprofile", "",
		"Write a heap profile of the simulator to file after the run")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print the report as JSON")

	return cmd
}

func findWorkload(opts *runOptions) (benchmarks.Workload, error) {
	if opts.workload == "random_mix" {
		return benchmarks.RandomMix(opts.seed, 256, 64, 0.3), nil
	}

	w, ok := benchmarks.FindWorkload(opts.workload)
	if !ok {
		return benchmarks.Workload{}, fmt.Errorf("unknown workload %q", opts.workload)
	}

	return w, nil
}

func loadTraces(
	opts *runOptions,
	numCores int,
) (string, [][]core.Access, error) {
	if opts.traceFile != "" {
		traces, err := loader.Load(opts.traceFile)
		if err != nil {
			return "", nil, err
		}

		traces, err = loader.Fit(traces, numCores)
		if err != nil {
			return "", nil, err
		}

		return filepath.Base(opts.traceFile), traces, nil
	}

	w, err := findWorkload(opts)
	if err != nil {
		return "", nil, err
	}

	return w.Name, w.Generate(numCores), nil
}

func dumpTraces(path string, traces [][]core.Access) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return loader.Write(f, traces)
}

func runWorkload(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	config, err := root.loadConfig()
	if err != nil {
		return err
	}

	name, traces, err := loadTraces(opts, config.NumCores)
	if err != nil {
		return err
	}

	if opts.dumpTrace != "" {
		if err := dumpTraces(opts.dumpTrace, traces); err != nil {
			return err
		}
	}

	builder := hierarchy.MakeBuilder().WithConfig(config)

	if opts.traceDB != "" {
		writer := tracing.NewSQLiteFlowWriter(opts.traceDB)
		if err := writer.Init(); err != nil {
			return err
		}
		defer func() { _ = writer.Close() }()

		fmt.Fprintf(os.Stderr, "Trace is collected in database: %s\n",
			writer.DBName())
		builder = builder.WithHook(writer)
	}

	if opts.traceStderr {
		builder = builder.WithHook(tracing.NewStderrTracer())
	}

	system, err := builder.Build()
	if err != nil {
		return err
	}

	if err := system.SetTraces(traces); err != nil {
		return err
	}

	if opts.monitor {
		m := monitoring.NewMonitor().WithPortNumber(opts.monitorPort)
		if opts.openBrowser {
			m = m.WithBrowser()
		}
		m.RegisterSystem(system)
		m.StartServer()
	}

	if opts.cpuProfile != "" {
		f, err := os.Create(opts.cpuProfile)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	report, err := system.Run()
	if err != nil {
		return err
	}

	if opts.memProfile != "" {
		if err := writeHeapProfile(opts.memProfile); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	_, _ = fmt.Fprintf(out, "Workload: %s (%d cores)\n", name, config.NumCores)
	report.WriteText(out)

	return nil
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}

	return nil
}

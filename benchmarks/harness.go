package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/msisim/timing/hierarchy"
	"github.com/sarchlab/msisim/timing/latency"
)

// BenchmarkResult holds the results of a single workload run.
type BenchmarkResult struct {
	// Name identifies the workload
	Name string `json:"name"`

	// Description explains the sharing pattern
	Description string `json:"description"`

	// SimulatedCycles is the cycle at which the last core halted
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// Accesses is the number of completed loads and stores
	Accesses uint64 `json:"accesses"`

	// HitRate is the fraction of L1 lookups that hit
	HitRate float64 `json:"hit_rate"`

	// AverageLatency is the mean access latency in cycles
	AverageLatency float64 `json:"average_latency"`

	// Messages and Bytes count the coherence traffic
	Messages uint64 `json:"messages"`
	Bytes    uint64 `json:"bytes"`

	Invalidations uint64 `json:"invalidations"`
	Recalls       uint64 `json:"recalls"`
	MemoryReads   uint64 `json:"memory_reads"`
	MemoryWrites  uint64 `json:"memory_writes"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Timing is the hierarchy every workload runs on
	Timing *latency.TimingConfig

	// Hooks are attached to every system the harness builds
	Hooks []sim.Hook

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose prints the full report of every run
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Timing:  latency.DefaultTimingConfig(),
		Output:  os.Stdout,
		Verbose: false,
	}
}

// Harness runs workloads and reports results.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	return &Harness{
		config:    config,
		workloads: []Workload{},
	}
}

// AddWorkload adds a workload to the harness.
func (h *Harness) AddWorkload(w Workload) {
	h.workloads = append(h.workloads, w)
}

// AddWorkloads adds multiple workloads to the harness.
func (h *Harness) AddWorkloads(workloads []Workload) {
	h.workloads = append(h.workloads, workloads...)
}

// RunAll executes all workloads and returns results. It stops at the first
// workload that fails.
func (h *Harness) RunAll() ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.workloads))

	for _, w := range h.workloads {
		result, err := h.Run(w)
		if err != nil {
			return results, fmt.Errorf("workload %s: %w", w.Name, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// Run executes a single workload on a freshly built system.
func (h *Harness) Run(w Workload) (BenchmarkResult, error) {
	builder := hierarchy.MakeBuilder().WithConfig(h.config.Timing)
	for _, hook := range h.config.Hooks {
		builder = builder.WithHook(hook)
	}

	system, err := builder.Build()
	if err != nil {
		return BenchmarkResult{}, err
	}

	err = system.SetTraces(w.Generate(h.config.Timing.NumCores))
	if err != nil {
		return BenchmarkResult{}, err
	}

	start := time.Now()
	report, err := system.Run()
	wallTime := time.Since(start)
	if err != nil {
		return BenchmarkResult{}, err
	}

	if h.config.Verbose {
		report.WriteText(h.config.Output)
	}

	return BenchmarkResult{
		Name:            w.Name,
		Description:     w.Description,
		SimulatedCycles: report.Cycles,
		Accesses:        report.Accesses(),
		HitRate:         report.HitRate(),
		AverageLatency:  report.AverageLatency(),
		Messages:        report.Messages,
		Bytes:           report.Bytes,
		Invalidations:   report.Directory.Invalidations,
		Recalls:         report.Directory.Recalls,
		MemoryReads:     report.Memory.Reads,
		MemoryWrites:    report.Memory.Writes,
		WallTime:        wallTime,
	}, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output
	_, _ = fmt.Fprintln(out, "=== MSI Coherence Benchmark Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(out, "  Simulated Cycles: %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(out, "  Accesses:         %d\n", r.Accesses)
		_, _ = fmt.Fprintf(out, "  Hit Rate:         %.3f\n", r.HitRate)
		_, _ = fmt.Fprintf(out, "  Average Latency:  %.2f\n", r.AverageLatency)
		_, _ = fmt.Fprintln(out, "  --- Traffic ---")
		_, _ = fmt.Fprintf(out, "  Messages:      %d (%d bytes)\n", r.Messages, r.Bytes)
		_, _ = fmt.Fprintf(out, "  Invalidations: %d\n", r.Invalidations)
		_, _ = fmt.Fprintf(out, "  Recalls:       %d\n", r.Recalls)
		_, _ = fmt.Fprintf(out, "  Memory:        %d reads, %d writes\n",
			r.MemoryReads, r.MemoryWrites)
		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,accesses,hit_rate,avg_latency,messages,bytes,invalidations,recalls,mem_reads,mem_writes")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%.2f,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.Accesses,
			r.HitRate,
			r.AverageLatency,
			r.Messages,
			r.Bytes,
			r.Invalidations,
			r.Recalls,
			r.MemoryReads,
			r.MemoryWrites,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	Timestamp string                `json:"timestamp"`
	Version   string                `json:"version"`
	Config    *latency.TimingConfig `json:"config"`
}

// ReportSummary contains aggregate statistics across all workloads.
type ReportSummary struct {
	TotalBenchmarks int           `json:"total_benchmarks"`
	TotalCycles     uint64        `json:"total_cycles"`
	TotalAccesses   uint64        `json:"total_accesses"`
	TotalMessages   uint64        `json:"total_messages"`
	TotalWallTime   time.Duration `json:"total_wall_time_ns"`
}

// Version is reported in the JSON metadata.
const Version = "0.1.0"

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalAccesses += r.Accesses
		summary.TotalMessages += r.Messages
		summary.TotalWallTime += r.WallTime
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config:    h.config.Timing,
		},
		Results: results,
		Summary: summary,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

package hierarchy

import (
	"fmt"
	"io"

	"github.com/sarchlab/msisim/timing/coherence"
	"github.com/sarchlab/msisim/timing/core"
	"github.com/sarchlab/msisim/timing/mem"
	"github.com/sarchlab/msisim/timing/network"
)

// CoreReport holds the statistics of one core.
type CoreReport struct {
	Name  string     `json:"name"`
	Stats core.Stats `json:"stats"`
}

// CacheReport holds the statistics of one private cache.
type CacheReport struct {
	Name         string               `json:"name"`
	Stats        coherence.CacheStats `json:"stats"`
	MessagesSent uint64               `json:"messages_sent"`
}

// Report summarizes a finished simulation.
type Report struct {
	// Cycles is the cycle of the last simulated event.
	Cycles uint64 `json:"cycles"`

	Cores     []CoreReport             `json:"cores"`
	Caches    []CacheReport            `json:"caches"`
	Directory coherence.DirectoryStats `json:"directory"`
	Memory    mem.Stats                `json:"memory"`

	// Messages and Bytes count the network traffic.
	Messages       uint64              `json:"messages"`
	Bytes          uint64              `json:"bytes"`
	MessagesByKind map[string]uint64   `json:"messages_by_kind"`
	Links          []network.LinkStats `json:"links"`
}

// Report collects the statistics of every component.
func (s *System) Report() *Report {
	r := &Report{
		Cycles:         s.Queue.CurrentCycle(),
		Directory:      s.Directory.Stats(),
		Memory:         s.Memory.Stats(),
		Messages:       s.Network.Messages,
		Bytes:          s.Network.Bytes,
		MessagesByKind: make(map[string]uint64),
		Links:          s.Network.Links(),
	}

	for _, c := range s.Cores {
		r.Cores = append(r.Cores, CoreReport{Name: c.Name(), Stats: c.Stats()})
	}

	for _, c := range s.Caches {
		r.Caches = append(r.Caches, CacheReport{
			Name:         c.Name(),
			Stats:        c.Stats(),
			MessagesSent: c.TotalMessagesSent(),
		})
	}

	for _, kind := range coherence.MessageKinds() {
		n := s.Directory.MessagesSent(kind)
		for _, c := range s.Caches {
			n += c.MessagesSent(kind)
		}

		if n > 0 {
			r.MessagesByKind[kind.String()] = n
		}
	}

	return r
}

// Accesses returns the number of accesses completed by all cores.
func (r *Report) Accesses() uint64 {
	n := uint64(0)
	for _, c := range r.Cores {
		n += c.Stats.Completed
	}
	return n
}

// HitRate returns the fraction of cache lookups that hit.
func (r *Report) HitRate() float64 {
	hits := uint64(0)
	lookups := uint64(0)
	for _, c := range r.Caches {
		hits += c.Stats.Hits
		lookups += c.Stats.Hits + c.Stats.Misses + c.Stats.Upgrades
	}

	if lookups == 0 {
		return 0
	}
	return float64(hits) / float64(lookups)
}

// AverageLatency returns the mean access latency over all cores.
func (r *Report) AverageLatency() float64 {
	total := uint64(0)
	completed := uint64(0)
	for _, c := range r.Cores {
		total += c.Stats.TotalLatency
		completed += c.Stats.Completed
	}

	if completed == 0 {
		return 0
	}
	return float64(total) / float64(completed)
}

// WriteText prints the report in a human-readable format.
func (r *Report) WriteText(w io.Writer) {
	_, _ = fmt.Fprintln(w, "=== MSI Coherence Simulation Report ===")
	_, _ = fmt.Fprintf(w, "Cycles:          %d\n", r.Cycles)
	_, _ = fmt.Fprintf(w, "Accesses:        %d\n", r.Accesses())
	_, _ = fmt.Fprintf(w, "Hit Rate:        %.3f\n", r.HitRate())
	_, _ = fmt.Fprintf(w, "Average Latency: %.2f cycles\n", r.AverageLatency())
	_, _ = fmt.Fprintf(w, "Messages:        %d (%d bytes)\n", r.Messages, r.Bytes)

	_, _ = fmt.Fprintln(w, "--- Cores ---")
	for _, c := range r.Cores {
		_, _ = fmt.Fprintf(w, "  %s: %d loads, %d stores, %d cycles, %.2f avg latency\n",
			c.Name, c.Stats.Loads, c.Stats.Stores, c.Stats.Cycles,
			c.Stats.AverageLatency())
	}

	_, _ = fmt.Fprintln(w, "--- Caches ---")
	for _, c := range r.Caches {
		_, _ = fmt.Fprintf(w,
			"  %s: %d hits, %d misses, %d upgrades, %d evictions, %d writebacks, %d stalls\n",
			c.Name, c.Stats.Hits, c.Stats.Misses, c.Stats.Upgrades,
			c.Stats.Evictions, c.Stats.Writebacks, c.Stats.Stalls)
	}

	d := r.Directory
	_, _ = fmt.Fprintln(w, "--- Directory ---")
	_, _ = fmt.Fprintf(w, "  GetS: %d  GetM: %d  PutS: %d  PutMAndData: %d\n",
		d.GetS, d.GetM, d.PutS, d.PutMAndData)
	_, _ = fmt.Fprintf(w, "  Invalidations: %d  Recalls: %d  Evictions: %d  Stalls: %d\n",
		d.Invalidations, d.Recalls, d.Evictions, d.Stalls)

	_, _ = fmt.Fprintln(w, "--- Memory ---")
	_, _ = fmt.Fprintf(w, "  Reads: %d  Writes: %d\n", r.Memory.Reads, r.Memory.Writes)

	_, _ = fmt.Fprintln(w, "--- Messages ---")
	for _, kind := range coherence.MessageKinds() {
		if n, ok := r.MessagesByKind[kind.String()]; ok {
			_, _ = fmt.Fprintf(w, "  %-12s %d\n", kind.String()+":", n)
		}
	}
}

// Package benchmarks provides sharing-pattern workloads and a harness that
// runs them on the coherence hierarchy.
package benchmarks

import (
	"math/rand"

	"github.com/sarchlab/msisim/timing/core"
)

const (
	lineSize = 64

	// privateBase separates per-core regions so that private workloads never
	// touch the same line.
	privateBase   = 0x100000
	privateStride = 0x10000

	sharedBase = 0x800000
)

// Workload describes a synthetic access pattern.
type Workload struct {
	// Name identifies the workload
	Name string

	// Description explains the sharing pattern
	Description string

	// Generate returns one trace per core.
	Generate func(cores int) [][]core.Access
}

// GetWorkloads returns the standard set of sharing-pattern workloads.
func GetWorkloads() []Workload {
	return []Workload{
		Private(64),
		ReadShared(16, 4),
		ProducerConsumer(16),
		Migratory(8, 4),
		FalseSharing(32),
		RandomMix(1, 256, 64, 0.3),
	}
}

// GetCoreWorkloads returns a minimal set for quick validation.
func GetCoreWorkloads() []Workload {
	return []Workload{
		Private(16),
		ReadShared(4, 2),
		Migratory(2, 2),
	}
}

// FindWorkload returns the standard workload with the given name.
func FindWorkload(name string) (Workload, bool) {
	for _, w := range GetWorkloads() {
		if w.Name == name {
			return w, true
		}
	}
	return Workload{}, false
}

// Private makes every core store then load lines of its own region. No line
// is ever shared.
func Private(lines int) Workload {
	return Workload{
		Name:        "private",
		Description: "each core writes and reads its own lines - no coherence traffic",
		Generate: func(cores int) [][]core.Access {
			traces := make([][]core.Access, cores)
			for c := range traces {
				base := uint64(privateBase + c*privateStride)
				for i := 0; i < lines; i++ {
					traces[c] = append(traces[c],
						core.Access{Kind: core.Store, Addr: base + uint64(i*lineSize)})
				}
				for i := 0; i < lines; i++ {
					traces[c] = append(traces[c],
						core.Access{Kind: core.Load, Addr: base + uint64(i*lineSize) + 8})
				}
			}
			return traces
		},
	}
}

// ReadShared makes every core read the same lines repeatedly.
func ReadShared(lines, rounds int) Workload {
	return Workload{
		Name:        "read_shared",
		Description: "all cores read the same lines - sharers accumulate in S",
		Generate: func(cores int) [][]core.Access {
			traces := make([][]core.Access, cores)
			for c := range traces {
				for r := 0; r < rounds; r++ {
					for i := 0; i < lines; i++ {
						traces[c] = append(traces[c], core.Access{
							Kind: core.Load,
							Addr: sharedBase + uint64(i*lineSize),
						})
					}
				}
			}
			return traces
		},
	}
}

// ProducerConsumer makes core 0 write a buffer that every other core reads.
func ProducerConsumer(lines int) Workload {
	return Workload{
		Name:        "producer_consumer",
		Description: "core 0 writes a buffer the other cores read - forwarded data and invalidations",
		Generate: func(cores int) [][]core.Access {
			traces := make([][]core.Access, cores)
			for i := 0; i < lines; i++ {
				addr := sharedBase + uint64(i*lineSize)
				traces[0] = append(traces[0], core.Access{Kind: core.Store, Addr: addr})
				for c := 1; c < cores; c++ {
					traces[c] = append(traces[c], core.Access{Kind: core.Load, Addr: addr})
				}
			}
			return traces
		},
	}
}

// Migratory makes each core read then write a small set of lines in turn.
func Migratory(lines, rounds int) Workload {
	return Workload{
		Name:        "migratory",
		Description: "read-modify-write of the same lines by every core - ownership migrates",
		Generate: func(cores int) [][]core.Access {
			traces := make([][]core.Access, cores)
			for c := range traces {
				for r := 0; r < rounds; r++ {
					for i := 0; i < lines; i++ {
						addr := sharedBase + uint64(i*lineSize)
						traces[c] = append(traces[c],
							core.Access{Kind: core.Load, Addr: addr},
							core.Access{Kind: core.Store, Addr: addr},
						)
					}
				}
			}
			return traces
		},
	}
}

// FalseSharing makes each core write its own word of one shared line.
func FalseSharing(iterations int) Workload {
	return Workload{
		Name:        "false_sharing",
		Description: "cores write disjoint words of one line - the line ping-pongs",
		Generate: func(cores int) [][]core.Access {
			traces := make([][]core.Access, cores)
			for c := range traces {
				addr := uint64(sharedBase + (c*8)%lineSize)
				for i := 0; i < iterations; i++ {
					traces[c] = append(traces[c], core.Access{Kind: core.Store, Addr: addr})
				}
			}
			return traces
		},
	}
}

// RandomMix draws accesses uniformly from a pool of lines. The same seed
// always produces the same traces.
func RandomMix(seed int64, length, lines int, storeRatio float64) Workload {
	return Workload{
		Name:        "random_mix",
		Description: "seeded random loads and stores over a shared pool of lines",
		Generate: func(cores int) [][]core.Access {
			r := rand.New(rand.NewSource(seed))
			traces := make([][]core.Access, cores)
			for c := range traces {
				for i := 0; i < length; i++ {
					kind := core.Load
					if r.Float64() < storeRatio {
						kind = core.Store
					}
					traces[c] = append(traces[c], core.Access{
						Kind: kind,
						Addr: sharedBase + uint64(r.Intn(lines)*lineSize),
					})
				}
			}
			return traces
		},
	}
}

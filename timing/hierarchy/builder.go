// Package hierarchy assembles cores, private caches, the directory and main
// memory into a simulated coherent memory system.
package hierarchy

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/msisim/timing/cache"
	"github.com/sarchlab/msisim/timing/coherence"
	"github.com/sarchlab/msisim/timing/core"
	"github.com/sarchlab/msisim/timing/event"
	"github.com/sarchlab/msisim/timing/latency"
	"github.com/sarchlab/msisim/timing/mem"
	"github.com/sarchlab/msisim/timing/network"
)

// Component names.
const (
	DirectoryName = "Directory"
	MemoryName    = "Memory"
)

// CacheName returns the name of the private cache of core i.
func CacheName(i int) string {
	return fmt.Sprintf("L1[%d]", i)
}

// CoreName returns the name of core i.
func CoreName(i int) string {
	return fmt.Sprintf("Core[%d]", i)
}

// Builder can build a System.
type Builder struct {
	config *latency.TimingConfig
	hooks  []sim.Hook
}

// MakeBuilder creates a Builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		config: latency.DefaultTimingConfig(),
	}
}

// WithConfig sets the timing configuration of the System to build.
func (b Builder) WithConfig(config *latency.TimingConfig) Builder {
	b.config = config.Clone()
	return b
}

// WithHook adds a hook that is attached to every controller.
func (b Builder) WithHook(hook sim.Hook) Builder {
	hooks := make([]sim.Hook, len(b.hooks), len(b.hooks)+1)
	copy(hooks, b.hooks)
	b.hooks = append(hooks, hook)
	return b
}

// Build creates a new System.
func (b Builder) Build() (*System, error) {
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config: %w", err)
	}

	cfg := b.config
	s := &System{
		Config: cfg,
		routes: make(map[string]receiver),
	}

	s.Queue = event.NewQueue(sim.Freq(cfg.FrequencyGHz) * sim.GHz)
	s.Network = network.NewNetwork(s.Queue, network.Config{
		LinkLatency:   cfg.LinkLatency,
		BytesPerCycle: cfg.LinkBytesPerCycle,
	})
	s.Memory = mem.NewController(MemoryName, s.Queue, cfg.MemoryLatency)

	s.Directory = coherence.NewDirectoryController(
		DirectoryName,
		cache.Config{
			Size:          cfg.DirectorySize,
			Associativity: cfg.DirectoryAssociativity,
			BlockSize:     cfg.LineSize,
			HitLatency:    cfg.DirectoryHitLatency,
		},
		s.Queue, s, s.Memory,
	)
	s.register(s.Directory)

	for i := 0; i < cfg.NumCores; i++ {
		c := coherence.NewCacheController(
			CacheName(i),
			cache.Config{
				Size:          cfg.L1Size,
				Associativity: cfg.L1Associativity,
				BlockSize:     cfg.LineSize,
				HitLatency:    cfg.L1HitLatency,
			},
			DirectoryName, s.Queue, s,
		)
		s.register(c)
		s.Caches = append(s.Caches, c)

		s.Cores = append(s.Cores,
			core.NewCore(CoreName(i), s.Queue, c, cfg.IssueWindow))
	}

	for _, h := range b.hooks {
		s.AcceptHook(h)
	}

	return s, nil
}

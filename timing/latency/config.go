// Package latency holds the timing and geometry configuration of the
// simulated coherence hierarchy.
package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds the parameters of the simulated memory hierarchy.
type TimingConfig struct {
	// NumCores is the number of cores, each with a private L1 cache.
	// Default: 4.
	NumCores int `json:"num_cores"`

	// FrequencyGHz is the clock of every component. Default: 1 GHz.
	FrequencyGHz float64 `json:"frequency_ghz"`

	// LineSize is the coherence granularity in bytes. Default: 64.
	LineSize int `json:"line_size"`

	// L1Size is the capacity of each private cache in bytes.
	// Default: 32KB.
	L1Size int `json:"l1_size"`

	// L1Associativity is the number of ways of each private cache.
	// Default: 8.
	L1Associativity int `json:"l1_associativity"`

	// L1HitLatency is the tag lookup latency of a private cache.
	// Default: 1 cycle.
	L1HitLatency uint64 `json:"l1_hit_latency"`

	// DirectorySize is the capacity covered by the shared directory in bytes.
	// Default: 1MB.
	DirectorySize int `json:"directory_size"`

	// DirectoryAssociativity is the number of ways of the directory.
	// Default: 16.
	DirectoryAssociativity int `json:"directory_associativity"`

	// DirectoryHitLatency is the lookup latency of the directory.
	// Default: 10 cycles.
	DirectoryHitLatency uint64 `json:"directory_hit_latency"`

	// MemoryLatency is the main memory access latency.
	// Default: 150 cycles.
	MemoryLatency uint64 `json:"memory_latency"`

	// LinkLatency is the fixed latency of one network hop.
	// Default: 2 cycles.
	LinkLatency uint64 `json:"link_latency"`

	// LinkBytesPerCycle is the link bandwidth. Default: 16 bytes per cycle.
	LinkBytesPerCycle int `json:"link_bytes_per_cycle"`

	// IssueWindow is the number of accesses a core keeps in flight.
	// Default: 4.
	IssueWindow int `json:"issue_window"`
}

// DefaultTimingConfig returns a TimingConfig with the default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		NumCores:               4,
		FrequencyGHz:           1,
		LineSize:               64,
		L1Size:                 32 * 1024,
		L1Associativity:        8,
		L1HitLatency:           1,
		DirectorySize:          1024 * 1024,
		DirectoryAssociativity: 16,
		DirectoryHitLatency:    10,
		MemoryLatency:          150,
		LinkLatency:            2,
		LinkBytesPerCycle:      16,
		IssueWindow:            4,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration describes a buildable hierarchy.
func (c *TimingConfig) Validate() error {
	if c.NumCores <= 0 {
		return fmt.Errorf("num_cores must be > 0")
	}
	if c.FrequencyGHz <= 0 {
		return fmt.Errorf("frequency_ghz must be > 0")
	}
	if c.LineSize <= 0 || c.LineSize&(c.LineSize-1) != 0 {
		return fmt.Errorf("line_size must be a power of two")
	}
	if c.L1Associativity <= 0 {
		return fmt.Errorf("l1_associativity must be > 0")
	}
	if c.L1Size <= 0 || c.L1Size%(c.L1Associativity*c.LineSize) != 0 {
		return fmt.Errorf("l1_size must be a multiple of l1_associativity * line_size")
	}
	if c.L1HitLatency == 0 {
		return fmt.Errorf("l1_hit_latency must be > 0")
	}
	if c.DirectoryAssociativity <= 0 {
		return fmt.Errorf("directory_associativity must be > 0")
	}
	if c.DirectorySize <= 0 ||
		c.DirectorySize%(c.DirectoryAssociativity*c.LineSize) != 0 {
		return fmt.Errorf(
			"directory_size must be a multiple of directory_associativity * line_size")
	}
	if c.DirectoryHitLatency == 0 {
		return fmt.Errorf("directory_hit_latency must be > 0")
	}
	if c.MemoryLatency == 0 {
		return fmt.Errorf("memory_latency must be > 0")
	}
	if c.LinkBytesPerCycle <= 0 {
		return fmt.Errorf("link_bytes_per_cycle must be > 0")
	}
	if c.IssueWindow <= 0 {
		return fmt.Errorf("issue_window must be > 0")
	}
	return nil
}

// L1NumSets returns the number of sets of a private cache.
func (c *TimingConfig) L1NumSets() int {
	return c.L1Size / (c.L1Associativity * c.LineSize)
}

// DirectoryNumSets returns the number of sets of the directory.
func (c *TimingConfig) DirectoryNumSets() int {
	return c.DirectorySize / (c.DirectoryAssociativity * c.LineSize)
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}

// Package cache provides the set-associative tag arrays of the private
// caches and of the directory, built on Akita cache components.
package cache

import (
	"log"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds tag array configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
}

// NumSets returns the number of sets described by the config.
func (c Config) NumSets() int {
	return c.Size / (c.Associativity * c.BlockSize)
}

// Access describes where a request for a tag lands in the array.
type Access struct {
	// Tag is the line-aligned address being accessed.
	Tag uint64
	// Set and Way locate the slot that serves the access.
	Set int
	Way int
	// Hit is true if the slot already holds the tag.
	Hit bool
	// Replacement is true if the slot holds another valid line that must be
	// evicted first.
	Replacement bool
	// VictimTag is the tag of the line to evict when Replacement is true.
	VictimTag uint64
}

// Line is a read-only view of one slot.
type Line struct {
	Set    int
	Way    int
	Tag    uint64
	Valid  bool
	Locked bool
}

// Statistics holds tag array statistics.
type Statistics struct {
	Accesses     uint64
	Hits         uint64
	Misses       uint64
	Replacements uint64
}

// TagArray tracks which line occupies every slot. Validity follows the
// coherence state of the slot: a slot is valid whenever its state is not I.
type TagArray struct {
	config Config

	// Akita cache directory for tag and LRU management
	directory *akitacache.DirectoryImpl

	stats Statistics
}

// New creates a tag array with the given configuration.
func New(config Config) *TagArray {
	if config.Associativity <= 0 || config.BlockSize <= 0 ||
		config.NumSets() <= 0 {
		log.Panicf("invalid tag array config %+v", config)
	}

	return &TagArray{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the tag array configuration.
func (c *TagArray) Config() Config {
	return c.config
}

// NumSets returns the number of sets.
func (c *TagArray) NumSets() int {
	return c.config.NumSets()
}

// Associativity returns the number of ways.
func (c *TagArray) Associativity() int {
	return c.config.Associativity
}

// Stats returns tag array statistics.
func (c *TagArray) Stats() Statistics {
	return c.stats
}

// Tag returns the line-aligned address of addr.
func (c *TagArray) Tag(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Set returns the set index that addr maps to.
func (c *TagArray) Set(addr uint64) int {
	return int((addr / uint64(c.config.BlockSize)) % uint64(c.NumSets()))
}

func (c *TagArray) block(set, way int) *akitacache.Block {
	return c.directory.GetSets()[set].Blocks[way]
}

// FindWay returns the way holding tag in its set, or -1.
func (c *TagArray) FindWay(tag uint64) int {
	block := c.directory.Lookup(0, c.Tag(tag))
	if block == nil || !block.IsValid {
		return -1
	}

	return block.WayID
}

// NewAccess locates the slot for tag. On a miss it selects the LRU victim,
// preferring invalid and unlocked slots.
func (c *TagArray) NewAccess(tag uint64) Access {
	tag = c.Tag(tag)
	c.stats.Accesses++

	access := Access{Tag: tag, Set: c.Set(tag)}

	block := c.directory.Lookup(0, tag)
	if block != nil && block.IsValid {
		c.stats.Hits++
		access.Hit = true
		access.Way = block.WayID
		return access
	}

	c.stats.Misses++

	victim := c.directory.FindVictim(tag)
	access.Way = victim.WayID
	if victim.IsValid {
		c.stats.Replacements++
		access.Replacement = true
		access.VictimTag = victim.Tag
	}

	return access
}

// Line returns a view of one slot.
func (c *TagArray) Line(set, way int) Line {
	block := c.block(set, way)
	return Line{
		Set:    set,
		Way:    way,
		Tag:    block.Tag,
		Valid:  block.IsValid,
		Locked: block.IsLocked,
	}
}

// Install records that the slot now holds tag and makes it most recently
// used.
func (c *TagArray) Install(set, way int, tag uint64) {
	block := c.block(set, way)
	block.Tag = c.Tag(tag)
	block.IsValid = true
	c.directory.Visit(block)
}

// Touch makes the slot most recently used.
func (c *TagArray) Touch(set, way int) {
	c.directory.Visit(c.block(set, way))
}

// Invalidate marks the slot as free.
func (c *TagArray) Invalidate(set, way int) {
	block := c.block(set, way)
	block.IsValid = false
	block.IsDirty = false
	block.IsLocked = false
}

// SetLocked marks a slot that is busy with an outstanding transaction so that
// victim selection avoids it while other candidates exist.
func (c *TagArray) SetLocked(set, way int, locked bool) {
	c.block(set, way).IsLocked = locked
}

// OccupancyRatio returns the fraction of valid slots.
func (c *TagArray) OccupancyRatio() float64 {
	valid := 0
	total := 0
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			total++
			if block.IsValid {
				valid++
			}
		}
	}

	return float64(valid) / float64(total)
}

// Reset invalidates every slot and clears the statistics.
func (c *TagArray) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

// Package core provides the synthetic core model. A core replays a trace of
// loads and stores against its private cache.
package core

import (
	"log"
)

// AccessKind tells whether an access reads or writes.
type AccessKind int

// Access kinds.
const (
	Load AccessKind = iota
	Store
)

func (k AccessKind) String() string {
	if k == Store {
		return "store"
	}
	return "load"
}

// Access is one entry of a core's trace.
type Access struct {
	Kind AccessKind
	Addr uint64
}

// Scheduler runs actions on future cycles.
type Scheduler interface {
	CurrentCycle() uint64
	Schedule(delay uint64, action func())
}

// Memory is the cache a core issues its accesses to.
type Memory interface {
	Load(addr uint64, onCompleted func())
	Store(addr uint64, onCompleted func())
}

// Stats holds performance statistics for the core.
type Stats struct {
	// Issued is the number of accesses sent to the cache.
	Issued uint64
	// Completed is the number of accesses the cache has finished.
	Completed uint64
	Loads     uint64
	Stores    uint64
	// Cycles is the number of cycles from the first issue to the last
	// completion.
	Cycles uint64
	// TotalLatency sums the issue-to-completion cycles of every access.
	TotalLatency uint64
}

// AverageLatency returns the mean access latency in cycles.
func (s Stats) AverageLatency() float64 {
	if s.Completed == 0 {
		return 0
	}
	return float64(s.TotalLatency) / float64(s.Completed)
}

// Core issues at most one access per cycle and keeps at most window
// accesses outstanding.
type Core struct {
	name      string
	scheduler Scheduler
	memory    Memory
	window    int

	trace       []Access
	next        int
	outstanding int
	ticking     bool
	started     bool
	startCycle  uint64

	onHalted func()
	stats    Stats
}

// NewCore creates a core that issues to memory.
func NewCore(
	name string,
	scheduler Scheduler,
	memory Memory,
	window int,
) *Core {
	if window <= 0 {
		log.Panicf("%s: issue window must be positive, got %d", name, window)
	}

	return &Core{
		name:      name,
		scheduler: scheduler,
		memory:    memory,
		window:    window,
	}
}

// Name returns the name of the core.
func (c *Core) Name() string {
	return c.name
}

// SetTrace sets the accesses the core will replay.
func (c *Core) SetTrace(trace []Access) {
	if c.started {
		log.Panicf("%s: cannot change the trace of a running core", c.name)
	}

	c.trace = trace
}

// Start begins issuing on the current cycle. onHalted runs once every
// access has completed.
func (c *Core) Start(onHalted func()) {
	if c.started {
		log.Panicf("%s: started twice", c.name)
	}

	c.started = true
	c.onHalted = onHalted
	c.startCycle = c.scheduler.CurrentCycle()

	if len(c.trace) == 0 {
		c.halt()
		return
	}

	c.ticking = true
	c.scheduler.Schedule(0, c.Tick)
}

// Tick issues the next access if the window allows it.
func (c *Core) Tick() {
	if c.next >= len(c.trace) || c.outstanding >= c.window {
		c.ticking = false
		return
	}

	a := c.trace[c.next]
	c.next++
	c.issue(a)

	if c.next < len(c.trace) && c.outstanding < c.window {
		c.scheduler.Schedule(1, c.Tick)
		return
	}

	c.ticking = false
}

func (c *Core) issue(a Access) {
	issueCycle := c.scheduler.CurrentCycle()
	c.outstanding++
	c.stats.Issued++

	done := func() {
		c.complete(issueCycle)
	}

	switch a.Kind {
	case Load:
		c.stats.Loads++
		c.memory.Load(a.Addr, done)
	case Store:
		c.stats.Stores++
		c.memory.Store(a.Addr, done)
	default:
		log.Panicf("%s: unknown access kind %d", c.name, a.Kind)
	}
}

func (c *Core) complete(issueCycle uint64) {
	now := c.scheduler.CurrentCycle()

	c.outstanding--
	c.stats.Completed++
	c.stats.TotalLatency += now - issueCycle

	if c.Halted() {
		c.halt()
		return
	}

	if !c.ticking && c.next < len(c.trace) {
		c.ticking = true
		c.scheduler.Schedule(1, c.Tick)
	}
}

func (c *Core) halt() {
	c.stats.Cycles = c.scheduler.CurrentCycle() - c.startCycle

	if c.onHalted != nil {
		c.onHalted()
	}
}

// Halted returns true once every access of the trace has completed.
func (c *Core) Halted() bool {
	return c.started && c.next >= len(c.trace) && c.outstanding == 0
}

// Outstanding returns the number of accesses in flight.
func (c *Core) Outstanding() int {
	return c.outstanding
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return c.stats
}

// Reset rewinds the trace and clears the statistics.
func (c *Core) Reset() {
	if c.outstanding > 0 {
		log.Panicf("%s: reset with %d accesses in flight", c.name, c.outstanding)
	}

	c.next = 0
	c.ticking = false
	c.started = false
	c.onHalted = nil
	c.stats = Stats{}
}

// Package event provides the cycle-accurate scheduler that drives the
// coherence hierarchy. It is built on the Akita serial engine.
package event

import (
	"log"
	"sync"

	"github.com/sarchlab/akita/v4/sim"
)

// cycleEvent fires all the actions that are due in one cycle.
type cycleEvent struct {
	*sim.EventBase
	cycle uint64
}

// Queue schedules actions at cycle granularity.
//
// The Akita event heap orders events by time only, so two events at the same
// time may be handled in any order. Queue keeps one bucket of actions per
// cycle and schedules a single engine event for each non-empty bucket, which
// makes same-cycle actions run in the order they were scheduled.
type Queue struct {
	mu sync.Mutex

	engine  *sim.SerialEngine
	freq    sim.Freq
	now     uint64
	buckets map[uint64][]func()

	// ActionsExecuted counts every action that has run.
	ActionsExecuted uint64
}

// NewQueue creates a Queue ticking at the given frequency.
func NewQueue(freq sim.Freq) *Queue {
	if freq <= 0 {
		log.Panic("queue frequency must be positive")
	}

	return &Queue{
		engine:  sim.NewSerialEngine(),
		freq:    freq,
		buckets: make(map[uint64][]func()),
	}
}

// Engine returns the underlying Akita engine so hooks can be attached.
func (q *Queue) Engine() *sim.SerialEngine {
	return q.engine
}

// CurrentCycle returns the cycle of the action being executed, or the cycle
// of the last executed action if the queue is idle.
func (q *Queue) CurrentCycle() uint64 {
	return q.now
}

// Schedule runs action delay cycles after the current cycle.
func (q *Queue) Schedule(delay uint64, action func()) {
	if action == nil {
		log.Panic("cannot schedule a nil action")
	}

	cycle := q.now + delay

	bucket, found := q.buckets[cycle]
	q.buckets[cycle] = append(bucket, action)

	if found {
		return
	}

	t := sim.VTimeInSec(float64(cycle) / float64(q.freq))
	q.engine.Schedule(&cycleEvent{
		EventBase: sim.NewEventBase(t, q),
		cycle:     cycle,
	})
}

// Handle executes the actions of one cycle in FIFO order. Actions added to
// the same cycle while the bucket is draining run in the same pass.
func (q *Queue) Handle(e sim.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	evt := e.(*cycleEvent)
	q.now = evt.cycle

	for i := 0; i < len(q.buckets[evt.cycle]); i++ {
		action := q.buckets[evt.cycle][i]
		action()
		q.ActionsExecuted++
	}

	delete(q.buckets, evt.cycle)

	return nil
}

// Pending returns the number of actions that have not run yet.
func (q *Queue) Pending() int {
	n := 0
	for _, bucket := range q.buckets {
		n += len(bucket)
	}

	return n
}

// Run executes actions until none are left.
func (q *Queue) Run() error {
	return q.engine.Run()
}

// Pause stops the engine from dispatching further cycles.
func (q *Queue) Pause() {
	q.engine.Pause()
}

// Continue resumes a paused engine.
func (q *Queue) Continue() {
	q.engine.Continue()
}

// WithLock runs fn while no cycle is being handled. Readers on other
// goroutines use it to see a consistent state of a running simulation.
func (q *Queue) WithLock(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	fn()
}

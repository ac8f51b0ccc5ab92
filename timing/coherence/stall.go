package coherence

import "log"

// stallQueue holds deferred events of one automaton in arrival order.
type stallQueue[E any] struct {
	events []E
}

func (q *stallQueue[E]) push(e E) {
	q.events = append(q.events, e)
}

func (q *stallQueue[E]) len() int {
	return len(q.events)
}

// snapshot returns a copy of the deferred events.
func (q *stallQueue[E]) snapshot() []E {
	events := make([]E, len(q.events))
	copy(events, q.events)
	return events
}

// takeAll empties the queue and returns what it held. Replayed events that
// stall again are appended to the emptied queue, so a replay never sees its
// own re-stalled events.
func (q *stallQueue[E]) takeAll() []E {
	events := q.events
	q.events = nil
	return events
}

// ackCounter counts the acknowledgments of one invalidation or recall
// episode.
type ackCounter struct {
	pending int
	// due is set when the last acknowledgment arrives and cleared when the
	// synthetic last-ack event fires.
	due bool
}

func (c *ackCounter) begin(n int) {
	if n <= 0 {
		log.Panicf("ack episode must expect at least one ack, got %d", n)
	}
	if c.pending != 0 || c.due {
		log.Panicf("ack episode started with %d acks outstanding", c.pending)
	}

	c.pending = n
}

// ack records one acknowledgment.
func (c *ackCounter) ack() {
	if c.pending <= 0 {
		log.Panic("ack counter would become negative")
	}

	c.pending--
	if c.pending == 0 {
		c.due = true
	}
}

// takeDue returns true exactly once after the counter reaches zero.
func (c *ackCounter) takeDue() bool {
	if !c.due {
		return false
	}

	c.due = false
	return true
}

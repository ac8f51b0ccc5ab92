package tracing

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/msisim/timing/coherence"
)

// StderrTracer prints every transition as one line.
type StderrTracer struct {
	out     io.Writer
	tags    map[uint64]bool
	stalled bool
}

// NewStderrTracer creates a tracer that writes to standard error.
func NewStderrTracer() *StderrTracer {
	return &StderrTracer{out: os.Stderr}
}

// WithWriter redirects the output.
func (t *StderrTracer) WithWriter(w io.Writer) *StderrTracer {
	t.out = w
	return t
}

// WithTags limits the output to the given tags.
func (t *StderrTracer) WithTags(tags ...uint64) *StderrTracer {
	t.tags = make(map[uint64]bool)
	for _, tag := range tags {
		t.tags[tag] = true
	}
	return t
}

// WithStalls also prints events that were stalled or retried.
func (t *StderrTracer) WithStalls() *StderrTracer {
	t.stalled = true
	return t
}

// Func implements sim.Hook.
func (t *StderrTracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != coherence.HookPosTransition {
		return
	}

	tr := ctx.Item.(coherence.Transition)
	if t.tags != nil && !t.tags[tr.Tag] {
		return
	}

	if tr.Outcome != coherence.OutcomeFired && !t.stalled {
		return
	}

	_, _ = fmt.Fprintf(t.out, "%10d %-10s [%d,%d] %#x %s --%s--> %s",
		tr.Cycle, tr.Controller, tr.Set, tr.Way, tr.Tag,
		tr.From, tr.Event, tr.To)
	if tr.Outcome != coherence.OutcomeFired {
		_, _ = fmt.Fprintf(t.out, " (%s)", tr.Outcome)
	}
	_, _ = fmt.Fprintln(t.out)
}

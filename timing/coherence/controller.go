package coherence

import (
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
)

// Scheduler runs actions on future cycles.
type Scheduler interface {
	CurrentCycle() uint64
	Schedule(delay uint64, action func())
}

// Transport carries messages between controllers.
type Transport interface {
	Transfer(dst string, sizeBytes int, msg *Message)
}

// Memory serves the line fetches and writebacks of the directory.
type Memory interface {
	MemReadRequestReceive(requester string, tag uint64, onCompleted func())
	MemWriteRequestReceive(requester string, tag uint64, onCompleted func())
}

// HookPosTransition marks an event being applied to an automaton.
var HookPosTransition = &sim.HookPos{Name: "Coherence Transition"}

// Outcomes of an event recorded in a Transition.
const (
	OutcomeFired   = "fired"
	OutcomeStalled = "stalled"
	OutcomeRetried = "retried"
)

// Transition records one event applied to one automaton.
type Transition struct {
	Cycle      uint64
	Controller string
	Set        int
	Way        int
	Tag        uint64
	From       string
	Event      string
	To         string
	Outcome    string
	FlowID     string
}

// controllerBase holds what cache and directory controllers share.
type controllerBase struct {
	*sim.HookableBase

	hooked    bool
	name      string
	lineSize  int
	scheduler Scheduler
	transport Transport

	messagesSent [numMessageKinds]uint64
}

func newControllerBase(
	name string,
	lineSize int,
	scheduler Scheduler,
	transport Transport,
) controllerBase {
	return controllerBase{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		lineSize:     lineSize,
		scheduler:    scheduler,
		transport:    transport,
	}
}

// AcceptHook registers a hook that observes transitions and flows.
func (c *controllerBase) AcceptHook(hook sim.Hook) {
	c.hooked = true
	c.HookableBase.AcceptHook(hook)
}

// Name returns the name of the controller.
func (c *controllerBase) Name() string {
	return c.name
}

// MessagesSent returns the number of messages of a kind sent so far.
func (c *controllerBase) MessagesSent(kind MessageKind) uint64 {
	return c.messagesSent[kind]
}

// TotalMessagesSent returns the number of messages sent so far.
func (c *controllerBase) TotalMessagesSent() uint64 {
	total := uint64(0)
	for _, n := range c.messagesSent {
		total += n
	}
	return total
}

func (c *controllerBase) now() uint64 {
	return c.scheduler.CurrentCycle()
}

func (c *controllerBase) beginFlow(
	domain sim.Hookable,
	kind string,
	tag uint64,
	producer *Flow,
) *Flow {
	f := newFlow(kind, c.name, tag, producer, c.now())

	if c.hooked {
		c.InvokeHook(sim.HookCtx{Domain: domain, Pos: HookPosFlowBegin, Item: f})
	}

	return f
}

func (c *controllerBase) endFlow(domain sim.Hookable, f *Flow) {
	if f == nil || f.Completed {
		return
	}

	f.Completed = true
	f.EndCycle = c.now()

	if c.hooked {
		c.InvokeHook(sim.HookCtx{Domain: domain, Pos: HookPosFlowEnd, Item: f})
	}
}

// send builds a message, opens its flow and hands it to the transport.
func (c *controllerBase) send(domain sim.Hookable, msg *Message, producer *Flow) {
	msg.ID = xid.New().String()
	msg.Src = c.name
	msg.Flow = c.beginFlow(domain, msg.Kind.String(), msg.Tag, producer)

	c.messagesSent[msg.Kind]++
	c.transport.Transfer(msg.Dst, msg.Size(c.lineSize), msg)
}

func (c *controllerBase) traceTransition(domain sim.Hookable, t Transition) {
	if !c.hooked {
		return
	}

	t.Cycle = c.now()
	t.Controller = c.name
	c.InvokeHook(sim.HookCtx{Domain: domain, Pos: HookPosTransition, Item: t})
}

package coherence

import (
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
)

// HookPosFlowBegin marks a flow being created.
var HookPosFlowBegin = &sim.HookPos{Name: "Flow Begin"}

// HookPosFlowEnd marks a flow being completed.
var HookPosFlowEnd = &sim.HookPos{Name: "Flow End"}

// Flow correlates the messages and events caused by one request. The root
// flow of a chain is a core access or a directory eviction.
type Flow struct {
	ID        string
	Kind      string
	Generator string
	Tag       uint64

	Producer *Flow
	Ancestor *Flow

	BeginCycle uint64
	EndCycle   uint64
	Completed  bool
}

func newFlow(
	kind, generator string,
	tag uint64,
	producer *Flow,
	now uint64,
) *Flow {
	f := &Flow{
		ID:         xid.New().String(),
		Kind:       kind,
		Generator:  generator,
		Tag:        tag,
		Producer:   producer,
		BeginCycle: now,
	}

	f.Ancestor = f
	if producer != nil {
		f.Ancestor = producer.Ancestor
	}

	return f
}

// ProducerID returns the id of the producer, or an empty string for a root.
func (f *Flow) ProducerID() string {
	if f.Producer == nil {
		return ""
	}
	return f.Producer.ID
}

// AncestorID returns the id of the root of the chain.
func (f *Flow) AncestorID() string {
	return f.Ancestor.ID
}

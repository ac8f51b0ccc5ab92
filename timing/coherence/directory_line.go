package coherence

import (
	"fmt"
	"log"
)

// DirectoryLine is the coherence automaton of one directory slot.
type DirectoryLine struct {
	controller *DirectoryController
	set        int
	way        int

	tag           uint64
	state         DirectoryState
	previousState DirectoryState
	entry         DirectoryEntry

	// evicterTag is the tag that will take the slot once an eviction ends.
	evicterTag uint64
	evicting   bool

	recallAcks  ackCounter
	stalled     stallQueue[*DirectoryEvent]
	onCompleted Continuation
}

// Set returns the set index of the slot.
func (l *DirectoryLine) Set() int { return l.set }

// Way returns the way index of the slot.
func (l *DirectoryLine) Way() int { return l.way }

// Tag returns the line-aligned address tracked by the slot.
func (l *DirectoryLine) Tag() uint64 { return l.tag }

// State returns the current state.
func (l *DirectoryLine) State() DirectoryState { return l.state }

// PreviousState returns the state before the last state change.
func (l *DirectoryLine) PreviousState() DirectoryState {
	return l.previousState
}

// Entry returns the sharer and owner record.
func (l *DirectoryLine) Entry() *DirectoryEntry { return &l.entry }

// Sharers returns a copy of the sharer set.
func (l *DirectoryLine) Sharers() []string { return l.entry.Sharers() }

// Owner returns the owner and whether there is one.
func (l *DirectoryLine) Owner() (string, bool) { return l.entry.Owner() }

// EvicterTag returns the tag waiting for the slot, if an eviction is in
// progress.
func (l *DirectoryLine) EvicterTag() (uint64, bool) {
	return l.evicterTag, l.evicting
}

// PendingRecallAcks returns the number of RecallAcks still expected.
func (l *DirectoryLine) PendingRecallAcks() int { return l.recallAcks.pending }

// StalledEvents returns a copy of the deferred events in arrival order.
func (l *DirectoryLine) StalledEvents() []DirectoryEvent {
	events := make([]DirectoryEvent, 0, l.stalled.len())
	for _, e := range l.stalled.snapshot() {
		events = append(events, *e)
	}
	return events
}

// OnGetS applies a read request from requester.
func (l *DirectoryLine) OnGetS(
	flow *Flow,
	requester string,
	tag uint64,
	onStalled Continuation,
) {
	l.fire(&DirectoryEvent{
		Kind:      DirectoryEventGetS,
		Message:   MessageGetS,
		Tag:       tag,
		Sender:    requester,
		Flow:      flow,
		OnStalled: onStalled,
	})
}

// OnGetM applies a write request from requester.
func (l *DirectoryLine) OnGetM(
	flow *Flow,
	requester string,
	tag uint64,
	onStalled Continuation,
) {
	l.fire(&DirectoryEvent{
		Kind:      DirectoryEventGetM,
		Message:   MessageGetM,
		Tag:       tag,
		Sender:    requester,
		Flow:      flow,
		OnStalled: onStalled,
	})
}

// OnReplacement evicts the tracked line so that evicter can use the slot.
func (l *DirectoryLine) OnReplacement(
	flow *Flow,
	evicter uint64,
	onCompleted, onStalled Continuation,
) {
	l.fire(&DirectoryEvent{
		Kind:        DirectoryEventReplacement,
		Tag:         l.tag,
		Evicter:     evicter,
		Flow:        flow,
		OnCompleted: onCompleted,
		OnStalled:   onStalled,
	})
}

// OnRecallAck applies one recall acknowledgment. The acknowledgment that
// brings the counter to zero is followed by LAST_RECALL_ACK.
func (l *DirectoryLine) OnRecallAck(flow *Flow, sender string, tag uint64) {
	l.fire(&DirectoryEvent{
		Kind:    DirectoryEventRecallAck,
		Message: MessageRecallAck,
		Tag:     tag,
		Sender:  sender,
		Flow:    flow,
	})

	if l.recallAcks.takeDue() {
		l.fire(&DirectoryEvent{
			Kind:    DirectoryEventLastRecallAck,
			Message: MessageRecallAck,
			Tag:     tag,
			Sender:  sender,
			Flow:    flow,
		})
	}
}

// OnPutS applies an eviction notice from a sharer.
func (l *DirectoryLine) OnPutS(flow *Flow, sender string, tag uint64) {
	l.fire(&DirectoryEvent{
		Kind:    l.classifyPutS(sender),
		Message: MessagePutS,
		Tag:     tag,
		Sender:  sender,
		Flow:    flow,
	})
}

// OnPutMAndData applies a writeback. A sender that lost ownership to a
// FwdGetS is still a sharer and is handled like a PutS.
func (l *DirectoryLine) OnPutMAndData(flow *Flow, sender string, tag uint64) {
	kind := DirectoryEventPutMAndDataFromNonOwner
	switch {
	case l.entry.IsOwner(sender):
		kind = DirectoryEventPutMAndDataFromOwner
	case l.entry.HasSharer(sender):
		kind = l.classifyPutS(sender)
	}

	l.fire(&DirectoryEvent{
		Kind:    kind,
		Message: MessagePutMAndData,
		Tag:     tag,
		Sender:  sender,
		Flow:    flow,
	})
}

// classifyPutS tells whether releasing sender frees the line. Only the
// sole remaining sharer is the last one. A sender that is no longer tracked
// is acknowledged without touching the entry.
func (l *DirectoryLine) classifyPutS(sender string) DirectoryEventKind {
	if l.entry.NumSharers() == 1 && l.entry.HasSharer(sender) {
		return DirectoryEventPutSLast
	}
	return DirectoryEventPutSNotLast
}

// OnData applies the data echo of a former owner.
func (l *DirectoryLine) OnData(flow *Flow, sender string, tag uint64) {
	l.fire(&DirectoryEvent{
		Kind:    DirectoryEventData,
		Message: MessageData,
		Tag:     tag,
		Sender:  sender,
		Flow:    flow,
	})
}

func (l *DirectoryLine) onDataFromMem(flow *Flow, requester string, tag uint64) {
	l.fire(&DirectoryEvent{
		Kind:   DirectoryEventDataFromMem,
		Tag:    tag,
		Sender: requester,
		Flow:   flow,
	})
}

func (l *DirectoryLine) fire(e *DirectoryEvent) {
	t := directoryTransitions[l.state][e.Kind]

	switch t.kind {
	case transitionFire:
		from := l.state
		for _, action := range t.actions {
			action(l, e)
		}
		l.trace(e, from, t.next, OutcomeFired)
		l.changeState(t.next)
	case transitionStall:
		l.stalled.push(e)
		l.controller.stats.Stalls++
		l.trace(e, l.state, l.state, OutcomeStalled)
	case transitionRetry:
		l.trace(e, l.state, l.state, OutcomeRetried)
		l.retry(e)
	default:
		log.Panicf("%s[%d][%d]: %s transition for event %s in state %s, tag 0x%x",
			l.controller.name, l.set, l.way, t.kind, e.Kind, l.state, e.Tag)
	}
}

// stall defers a request that targets another tag of the same set.
func (l *DirectoryLine) stall(e *DirectoryEvent) {
	l.stalled.push(e)
	l.controller.stats.Stalls++
	l.trace(e, l.state, l.state, OutcomeStalled)
}

func (l *DirectoryLine) retry(e *DirectoryEvent) {
	if e.OnStalled == nil {
		log.Panicf("%s[%d][%d]: event %s cannot be retried",
			l.controller.name, l.set, l.way, e.Kind)
	}

	e.OnStalled()
}

func (l *DirectoryLine) changeState(next DirectoryState) {
	prev := l.state
	l.previousState = prev
	l.state = next

	if prev == next {
		return
	}

	l.controller.lineStateChanged(l, prev)

	if next.IsStable() {
		if err := l.checkEntry(); err != nil {
			log.Panicf("%s[%d][%d]: %v", l.controller.name, l.set, l.way, err)
		}

		if l.onCompleted != nil {
			onCompleted := l.onCompleted
			l.onCompleted = nil
			onCompleted()
		}
	}

	if prev.IsTransient() {
		l.replayStalled()
	}
}

// checkEntry verifies that the entry matches a stable state.
func (l *DirectoryLine) checkEntry() error {
	_, hasOwner := l.entry.Owner()
	sharers := l.entry.NumSharers()

	switch l.state {
	case DirectoryStateI:
		if hasOwner || sharers > 0 {
			return fmt.Errorf("line 0x%x in I has owner %v and %d sharers",
				l.tag, hasOwner, sharers)
		}
	case DirectoryStateS:
		if hasOwner || sharers == 0 {
			return fmt.Errorf("line 0x%x in S has owner %v and %d sharers",
				l.tag, hasOwner, sharers)
		}
	case DirectoryStateM:
		if !hasOwner || sharers > 0 {
			return fmt.Errorf("line 0x%x in M has owner %v and %d sharers",
				l.tag, hasOwner, sharers)
		}
	}

	return nil
}

func (l *DirectoryLine) replayStalled() {
	for _, e := range l.stalled.takeAll() {
		l.replay(e)
	}
}

// replay dispatches a deferred event again. Requests go back to the
// controller so the slot lookup is repeated, put messages are classified
// again against the current entry.
func (l *DirectoryLine) replay(e *DirectoryEvent) {
	switch e.Message {
	case MessagePutS:
		l.OnPutS(e.Flow, e.Sender, e.Tag)
		return
	case MessagePutMAndData:
		l.OnPutMAndData(e.Flow, e.Sender, e.Tag)
		return
	}

	switch e.Kind {
	case DirectoryEventGetS, DirectoryEventGetM, DirectoryEventReplacement:
		l.retry(e)
	default:
		log.Panicf("%s[%d][%d]: event %s cannot be replayed",
			l.controller.name, l.set, l.way, e.Kind)
	}
}

func (l *DirectoryLine) trace(
	e *DirectoryEvent,
	from, to DirectoryState,
	outcome string,
) {
	if !l.controller.hooked {
		return
	}

	flowID := ""
	if e.Flow != nil {
		flowID = e.Flow.ID
	}

	l.controller.traceTransition(l.controller, Transition{
		Set:     l.set,
		Way:     l.way,
		Tag:     e.Tag,
		From:    from.String(),
		Event:   e.Kind.String(),
		To:      to.String(),
		Outcome: outcome,
		FlowID:  flowID,
	})
}

func (l *DirectoryLine) setTag(e *DirectoryEvent) {
	l.tag = e.Tag
}

func (l *DirectoryLine) holdCompletion(e *DirectoryEvent) {
	if l.onCompleted != nil {
		log.Panicf("%s[%d][%d]: second completion registered in state %s, "+
			"tag 0x%x", l.controller.name, l.set, l.way, l.state, e.Tag)
	}
	if e.OnCompleted == nil {
		log.Panicf("%s[%d][%d]: %s without completion",
			l.controller.name, l.set, l.way, e.Kind)
	}

	l.onCompleted = e.OnCompleted
}

func (l *DirectoryLine) setEvicter(e *DirectoryEvent) {
	l.evicterTag = e.Evicter
	l.evicting = true
	l.controller.stats.Evictions++
}

func (l *DirectoryLine) fetchFromMemory(e *DirectoryEvent) {
	l.controller.fetch(l, e.Flow, e.Sender, l.tag)
}

func (l *DirectoryLine) writeBack(_ *DirectoryEvent) {
	l.controller.writeBack(l.tag)
}

func (l *DirectoryLine) sendDataToRequester(e *DirectoryEvent) {
	l.controller.sendData(e.Sender, l.tag, 0, e.Flow)
}

func (l *DirectoryLine) sendDataWithAcksToRequester(e *DirectoryEvent) {
	numAcks := l.entry.NumSharers()
	if l.entry.HasSharer(e.Sender) {
		numAcks--
	}

	l.controller.sendData(e.Sender, l.tag, numAcks, e.Flow)
}

func (l *DirectoryLine) invalidateOtherSharers(e *DirectoryEvent) {
	for _, sharer := range l.entry.Sharers() {
		if sharer == e.Sender {
			continue
		}

		l.controller.stats.Invalidations++
		l.controller.send(l.controller, &Message{
			Kind:      MessageInv,
			Dst:       sharer,
			Tag:       l.tag,
			Requester: e.Sender,
		}, e.Flow)
	}
}

func (l *DirectoryLine) forwardGetSToOwner(e *DirectoryEvent) {
	owner, _ := l.entry.Owner()
	l.controller.send(l.controller, &Message{
		Kind:      MessageFwdGetS,
		Dst:       owner,
		Tag:       l.tag,
		Requester: e.Sender,
	}, e.Flow)
}

func (l *DirectoryLine) forwardGetMToOwner(e *DirectoryEvent) {
	owner, _ := l.entry.Owner()
	l.controller.send(l.controller, &Message{
		Kind:      MessageFwdGetM,
		Dst:       owner,
		Tag:       l.tag,
		Requester: e.Sender,
	}, e.Flow)
}

func (l *DirectoryLine) recallSharers(e *DirectoryEvent) {
	sharers := l.entry.Sharers()
	l.recallAcks.begin(len(sharers))

	for _, sharer := range sharers {
		l.controller.sendRecall(sharer, l.tag, e.Flow)
	}

	l.entry.clearSharers()
}

func (l *DirectoryLine) recallOwner(e *DirectoryEvent) {
	owner, _ := l.entry.Owner()
	l.recallAcks.begin(1)
	l.controller.sendRecall(owner, l.tag, e.Flow)
	l.entry.clearOwner()
}

func (l *DirectoryLine) countRecallAck(_ *DirectoryEvent) {
	l.recallAcks.ack()
}

func (l *DirectoryLine) addRequesterToSharers(e *DirectoryEvent) {
	l.entry.addSharer(e.Sender)
}

func (l *DirectoryLine) addRequesterAndOwnerToSharers(e *DirectoryEvent) {
	owner, _ := l.entry.Owner()
	l.entry.addSharer(e.Sender)
	l.entry.addSharer(owner)
}

func (l *DirectoryLine) setRequesterAsOwner(e *DirectoryEvent) {
	l.entry.setOwner(e.Sender)
}

func (l *DirectoryLine) clearOwner(_ *DirectoryEvent) {
	l.entry.clearOwner()
}

func (l *DirectoryLine) clearSharers(_ *DirectoryEvent) {
	l.entry.clearSharers()
}

// removeSender drops the sender from the sharer set. A stale PutS from a
// cache that was already invalidated leaves the entry untouched.
func (l *DirectoryLine) removeSender(e *DirectoryEvent) {
	if l.entry.HasSharer(e.Sender) {
		l.entry.removeSharer(e.Sender)
	}
}

func (l *DirectoryLine) sendPutAck(e *DirectoryEvent) {
	l.controller.sendPutAck(e.Sender, l.tag, e.Flow)
}

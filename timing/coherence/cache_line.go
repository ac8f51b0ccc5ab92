package coherence

import (
	"log"
)

// CacheLine is the coherence automaton of one private cache slot.
type CacheLine struct {
	controller *CacheController
	set        int
	way        int

	tag           uint64
	state         CacheState
	previousState CacheState

	invAcks     ackCounter
	stalled     stallQueue[*CacheEvent]
	onCompleted Continuation
}

// Set returns the set index of the slot.
func (l *CacheLine) Set() int { return l.set }

// Way returns the way index of the slot.
func (l *CacheLine) Way() int { return l.way }

// Tag returns the line-aligned address held by the slot.
func (l *CacheLine) Tag() uint64 { return l.tag }

// State returns the current state.
func (l *CacheLine) State() CacheState { return l.state }

// PreviousState returns the state before the last state change.
func (l *CacheLine) PreviousState() CacheState { return l.previousState }

// PendingInvAcks returns the number of InvAcks still expected.
func (l *CacheLine) PendingInvAcks() int { return l.invAcks.pending }

// HasPendingCompletion returns true while a request waits on this slot.
func (l *CacheLine) HasPendingCompletion() bool { return l.onCompleted != nil }

// StalledEvents returns a copy of the deferred events in arrival order.
func (l *CacheLine) StalledEvents() []CacheEvent {
	events := make([]CacheEvent, 0, l.stalled.len())
	for _, e := range l.stalled.snapshot() {
		events = append(events, *e)
	}
	return events
}

// OnLoad applies a load from the core.
func (l *CacheLine) OnLoad(
	flow *Flow,
	tag uint64,
	onCompleted, onStalled Continuation,
) {
	l.fire(&CacheEvent{
		Kind:        CacheEventLoad,
		Tag:         tag,
		Flow:        flow,
		OnCompleted: onCompleted,
		OnStalled:   onStalled,
	})
}

// OnStore applies a store from the core.
func (l *CacheLine) OnStore(
	flow *Flow,
	tag uint64,
	onCompleted, onStalled Continuation,
) {
	l.fire(&CacheEvent{
		Kind:        CacheEventStore,
		Tag:         tag,
		Flow:        flow,
		OnCompleted: onCompleted,
		OnStalled:   onStalled,
	})
}

// OnReplacement evicts the line held by the slot. onCompleted runs when the
// slot is back in I. onStalled runs if the slot is busy.
func (l *CacheLine) OnReplacement(
	flow *Flow,
	tag uint64,
	onCompleted, onStalled Continuation,
) {
	l.fire(&CacheEvent{
		Kind:        CacheEventReplacement,
		Tag:         tag,
		Flow:        flow,
		OnCompleted: onCompleted,
		OnStalled:   onStalled,
	})
}

// OnFwdGetS applies a GetS forwarded by the directory on behalf of requester.
func (l *CacheLine) OnFwdGetS(flow *Flow, requester string, tag uint64) {
	l.fire(&CacheEvent{
		Kind:      CacheEventFwdGetS,
		Tag:       tag,
		Sender:    l.controller.directory,
		Requester: requester,
		Flow:      flow,
	})
}

// OnFwdGetM applies a GetM forwarded by the directory on behalf of requester.
func (l *CacheLine) OnFwdGetM(flow *Flow, requester string, tag uint64) {
	l.fire(&CacheEvent{
		Kind:      CacheEventFwdGetM,
		Tag:       tag,
		Sender:    l.controller.directory,
		Requester: requester,
		Flow:      flow,
	})
}

// OnInv applies an invalidation that must be acknowledged to requester.
func (l *CacheLine) OnInv(flow *Flow, requester string, tag uint64) {
	l.fire(&CacheEvent{
		Kind:      CacheEventInv,
		Tag:       tag,
		Sender:    l.controller.directory,
		Requester: requester,
		Flow:      flow,
	})
}

// OnRecall applies a recall issued by a directory eviction.
func (l *CacheLine) OnRecall(flow *Flow, tag uint64) {
	l.fire(&CacheEvent{
		Kind:   CacheEventRecall,
		Tag:    tag,
		Sender: l.controller.directory,
		Flow:   flow,
	})
}

// OnPutAck applies the directory's acknowledgment of a PutS or PutMAndData.
func (l *CacheLine) OnPutAck(flow *Flow, tag uint64) {
	l.fire(&CacheEvent{
		Kind:   CacheEventPutAck,
		Tag:    tag,
		Sender: l.controller.directory,
		Flow:   flow,
	})
}

// OnData applies a data reply. Data from the directory carries the number
// of InvAcks to collect, data from a peer owner never does.
func (l *CacheLine) OnData(flow *Flow, sender string, tag uint64, numAcks int) {
	kind := CacheEventDataFromOwner
	if sender == l.controller.directory {
		kind = CacheEventDataFromDirAcksEq0
		if numAcks > 0 {
			kind = CacheEventDataFromDirAcksGt0
		}
	}

	l.fire(&CacheEvent{
		Kind:    kind,
		Tag:     tag,
		Sender:  sender,
		NumAcks: numAcks,
		Flow:    flow,
	})
}

// OnInvAck applies one invalidation acknowledgment. The acknowledgment that
// brings the counter to zero is followed by LAST_INV_ACK.
func (l *CacheLine) OnInvAck(flow *Flow, sender string, tag uint64) {
	l.fire(&CacheEvent{
		Kind:   CacheEventInvAck,
		Tag:    tag,
		Sender: sender,
		Flow:   flow,
	})

	if l.invAcks.takeDue() {
		l.fire(&CacheEvent{
			Kind:   CacheEventLastInvAck,
			Tag:    tag,
			Sender: sender,
			Flow:   flow,
		})
	}
}

func (l *CacheLine) fire(e *CacheEvent) {
	t := cacheTransitions[l.state][e.Kind]

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

func (l *CacheLine) retry(e *CacheEvent) {
	if e.OnStalled == nil {
		log.Panicf("%s[%d][%d]: event %s cannot be retried",
			l.controller.name, l.set, l.way, e.Kind)
	}

	e.OnStalled()
}

func (l *CacheLine) changeState(next CacheState) {
	prev := l.state
	l.previousState = prev
	l.state = next

	if prev == next {
		return
	}

	l.controller.lineStateChanged(l, prev)

	if next.IsStable() && l.onCompleted != nil {
		onCompleted := l.onCompleted
		l.onCompleted = nil
		onCompleted()
	}

	if prev.IsTransient() {
		l.replayStalled()
	}
}

func (l *CacheLine) replayStalled() {
	for _, e := range l.stalled.takeAll() {
		l.replay(e)
	}
}

// replay dispatches a deferred event again. Local requests go back to the
// controller so the lookup is repeated, peer messages go through the public
// handlers so classification happens against the current state.
func (l *CacheLine) replay(e *CacheEvent) {
	switch e.Kind {
	case CacheEventLoad, CacheEventStore, CacheEventReplacement:
		l.retry(e)
	case CacheEventFwdGetS:
		l.OnFwdGetS(e.Flow, e.Requester, e.Tag)
	case CacheEventFwdGetM:
		l.OnFwdGetM(e.Flow, e.Requester, e.Tag)
	case CacheEventInv:
		l.OnInv(e.Flow, e.Requester, e.Tag)
	case CacheEventRecall:
		l.OnRecall(e.Flow, e.Tag)
	case CacheEventInvAck:
		l.OnInvAck(e.Flow, e.Sender, e.Tag)
	default:
		log.Panicf("%s[%d][%d]: event %s cannot be replayed",
			l.controller.name, l.set, l.way, e.Kind)
	}
}

func (l *CacheLine) trace(e *CacheEvent, from, to CacheState, outcome string) {
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

func (l *CacheLine) setTag(e *CacheEvent) {
	l.tag = e.Tag
}

func (l *CacheLine) holdCompletion(e *CacheEvent) {
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

func (l *CacheLine) hit(e *CacheEvent) {
	l.controller.hit(l, e)
}

func (l *CacheLine) sendGetS(e *CacheEvent) {
	l.controller.stats.Misses++
	l.controller.sendToDirectory(MessageGetS, l.tag, e.Flow)
}

func (l *CacheLine) sendGetM(e *CacheEvent) {
	l.controller.stats.Misses++
	l.controller.sendToDirectory(MessageGetM, l.tag, e.Flow)
}

func (l *CacheLine) sendUpgrade(e *CacheEvent) {
	l.controller.stats.Upgrades++
	l.controller.sendToDirectory(MessageGetM, l.tag, e.Flow)
}

func (l *CacheLine) sendPutS(e *CacheEvent) {
	l.controller.stats.Evictions++
	l.controller.sendToDirectory(MessagePutS, l.tag, e.Flow)
}

func (l *CacheLine) sendPutMAndData(e *CacheEvent) {
	l.controller.stats.Evictions++
	l.controller.stats.Writebacks++
	l.controller.sendToDirectory(MessagePutMAndData, l.tag, e.Flow)
}

func (l *CacheLine) sendDataToRequester(e *CacheEvent) {
	l.controller.sendData(e.Requester, l.tag, e.Flow)
}

func (l *CacheLine) sendDataToRequesterAndDirectory(e *CacheEvent) {
	l.controller.sendData(e.Requester, l.tag, e.Flow)
	l.controller.sendData(l.controller.directory, l.tag, e.Flow)
}

func (l *CacheLine) sendInvAck(e *CacheEvent) {
	l.controller.send(l.controller, &Message{
		Kind: MessageInvAck,
		Dst:  e.Requester,
		Tag:  l.tag,
	}, e.Flow)
}

func (l *CacheLine) sendRecallAck(e *CacheEvent) {
	l.controller.sendRecallAck(l.tag, false, e.Flow)
}

func (l *CacheLine) sendRecallAckWithData(e *CacheEvent) {
	l.controller.sendRecallAck(l.tag, true, e.Flow)
}

func (l *CacheLine) beginInvAcks(e *CacheEvent) {
	l.invAcks.begin(e.NumAcks)
}

func (l *CacheLine) countInvAck(_ *CacheEvent) {
	l.invAcks.ack()
}

package coherence

type cacheAction func(l *CacheLine, e *CacheEvent)

type cacheTransition struct {
	kind    transitionKind
	next    CacheState
	actions []cacheAction
}

var (
	cacheIllegal = cacheTransition{kind: transitionIllegal}
	cacheStall   = cacheTransition{kind: transitionStall}
	cacheRetry   = cacheTransition{kind: transitionRetry}
)

func cacheGoTo(next CacheState, actions ...cacheAction) cacheTransition {
	return cacheTransition{kind: transitionFire, next: next, actions: actions}
}

type cacheTable [numCacheStates][numCacheEventKinds]cacheTransition

var cacheTransitions cacheTable

func init() {
	cacheTransitions = newCacheTable()
}

//nolint:funlen
func newCacheTable() (t cacheTable) {
	t[CacheStateI] = [numCacheEventKinds]cacheTransition{
		CacheEventLoad: cacheGoTo(CacheStateISD,
			(*CacheLine).setTag,
			(*CacheLine).holdCompletion,
			(*CacheLine).sendGetS),
		CacheEventStore: cacheGoTo(CacheStateIMAD,
			(*CacheLine).setTag,
			(*CacheLine).holdCompletion,
			(*CacheLine).sendGetM),
		CacheEventReplacement:        cacheIllegal,
		CacheEventFwdGetS:            cacheIllegal,
		CacheEventFwdGetM:            cacheIllegal,
		CacheEventInv:                cacheIllegal,
		CacheEventRecall:             cacheIllegal,
		CacheEventPutAck:             cacheIllegal,
		CacheEventDataFromDirAcksEq0: cacheIllegal,
		CacheEventDataFromDirAcksGt0: cacheIllegal,
		CacheEventDataFromOwner:      cacheIllegal,
		CacheEventInvAck:             cacheIllegal,
		CacheEventLastInvAck:         cacheIllegal,
	}

	t[CacheStateISD] = [numCacheEventKinds]cacheTransition{
		CacheEventLoad:               cacheStall,
		CacheEventStore:              cacheStall,
		CacheEventReplacement:        cacheRetry,
		CacheEventFwdGetS:            cacheIllegal,
		CacheEventFwdGetM:            cacheIllegal,
		CacheEventInv:                cacheStall,
		CacheEventRecall:             cacheStall,
		CacheEventPutAck:             cacheIllegal,
		CacheEventDataFromDirAcksEq0: cacheGoTo(CacheStateS),
		CacheEventDataFromDirAcksGt0: cacheIllegal,
		CacheEventDataFromOwner:      cacheGoTo(CacheStateS),
		CacheEventInvAck:             cacheIllegal,
		CacheEventLastInvAck:         cacheIllegal,
	}

	t[CacheStateIMAD] = [numCacheEventKinds]cacheTransition{
		CacheEventLoad:               cacheStall,
		CacheEventStore:              cacheStall,
		CacheEventReplacement:        cacheRetry,
		CacheEventFwdGetS:            cacheStall,
		CacheEventFwdGetM:            cacheStall,
		CacheEventInv:                cacheIllegal,
		CacheEventRecall:             cacheStall,
		CacheEventPutAck:             cacheIllegal,
		CacheEventDataFromDirAcksEq0: cacheGoTo(CacheStateM),
		CacheEventDataFromDirAcksGt0: cacheGoTo(CacheStateIMA,
			(*CacheLine).beginInvAcks),
		CacheEventDataFromOwner: cacheGoTo(CacheStateM),
		// Acks may overtake the data that says how many to expect.
		CacheEventInvAck:     cacheStall,
		CacheEventLastInvAck: cacheIllegal,
	}

	t[CacheStateIMA] = [numCacheEventKinds]cacheTransition{
		CacheEventLoad:               cacheStall,
		CacheEventStore:              cacheStall,
		CacheEventReplacement:        cacheRetry,
		CacheEventFwdGetS:            cacheStall,
		CacheEventFwdGetM:            cacheStall,
		CacheEventInv:                cacheIllegal,
		CacheEventRecall:             cacheStall,
		CacheEventPutAck:             cacheIllegal,
		CacheEventDataFromDirAcksEq0: cacheIllegal,
		CacheEventDataFromDirAcksGt0: cacheIllegal,
		CacheEventDataFromOwner:      cacheIllegal,
		CacheEventInvAck: cacheGoTo(CacheStateIMA,
			(*CacheLine).countInvAck),
		CacheEventLastInvAck: cacheGoTo(CacheStateM),
	}

	t[CacheStateS] = [numCacheEventKinds]cacheTransition{
		CacheEventLoad: cacheGoTo(CacheStateS, (*CacheLine).hit),
		CacheEventStore: cacheGoTo(CacheStateSMAD,
			(*CacheLine).holdCompletion,
			(*CacheLine).sendUpgrade),
		CacheEventReplacement: cacheGoTo(CacheStateSIA,
			(*CacheLine).holdCompletion,
			(*CacheLine).sendPutS),
		CacheEventFwdGetS: cacheIllegal,
		CacheEventFwdGetM: cacheIllegal,
		CacheEventInv: cacheGoTo(CacheStateI,
			(*CacheLine).sendInvAck),
		CacheEventRecall: cacheGoTo(CacheStateI,
			(*CacheLine).sendRecallAck),
		CacheEventPutAck:             cacheIllegal,
		CacheEventDataFromDirAcksEq0: cacheIllegal,
		CacheEventDataFromDirAcksGt0: cacheIllegal,
		CacheEventDataFromOwner:      cacheIllegal,
		CacheEventInvAck:             cacheIllegal,
		CacheEventLastInvAck:         cacheIllegal,
	}

	t[CacheStateSMAD] = [numCacheEventKinds]cacheTransition{
		// The line still holds valid data while the upgrade is pending.
		CacheEventLoad:        cacheGoTo(CacheStateSMAD, (*CacheLine).hit),
		CacheEventStore:       cacheStall,
		CacheEventReplacement: cacheRetry,
		CacheEventFwdGetS:     cacheStall,
		CacheEventFwdGetM:     cacheStall,
		CacheEventInv: cacheGoTo(CacheStateIMAD,
			(*CacheLine).sendInvAck),
		CacheEventRecall: cacheGoTo(CacheStateIMAD,
			(*CacheLine).sendRecallAck),
		CacheEventPutAck:             cacheIllegal,
		CacheEventDataFromDirAcksEq0: cacheGoTo(CacheStateM),
		CacheEventDataFromDirAcksGt0: cacheGoTo(CacheStateSMA,
			(*CacheLine).beginInvAcks),
		CacheEventDataFromOwner: cacheGoTo(CacheStateM),
		CacheEventInvAck:        cacheStall,
		CacheEventLastInvAck:    cacheIllegal,
	}

	t[CacheStateSMA] = [numCacheEventKinds]cacheTransition{
		CacheEventLoad:               cacheGoTo(CacheStateSMA, (*CacheLine).hit),
		CacheEventStore:              cacheStall,
		CacheEventReplacement:        cacheRetry,
		CacheEventFwdGetS:            cacheStall,
		CacheEventFwdGetM:            cacheStall,
		CacheEventInv:                cacheIllegal,
		CacheEventRecall:             cacheStall,
		CacheEventPutAck:             cacheIllegal,
		CacheEventDataFromDirAcksEq0: cacheIllegal,
		CacheEventDataFromDirAcksGt0: cacheIllegal,
		CacheEventDataFromOwner:      cacheIllegal,
		CacheEventInvAck: cacheGoTo(CacheStateSMA,
			(*CacheLine).countInvAck),
		CacheEventLastInvAck: cacheGoTo(CacheStateM),
	}

	t[CacheStateM] = [numCacheEventKinds]cacheTransition{
		CacheEventLoad:  cacheGoTo(CacheStateM, (*CacheLine).hit),
		CacheEventStore: cacheGoTo(CacheStateM, (*CacheLine).hit),
		CacheEventReplacement: cacheGoTo(CacheStateMIA,
			(*CacheLine).holdCompletion,
			(*CacheLine).sendPutMAndData),
		CacheEventFwdGetS: cacheGoTo(CacheStateS,
			(*CacheLine).sendDataToRequesterAndDirectory),
		CacheEventFwdGetM: cacheGoTo(CacheStateI,
			(*CacheLine).sendDataToRequester),
		CacheEventInv: cacheIllegal,
		CacheEventRecall: cacheGoTo(CacheStateI,
			(*CacheLine).sendRecallAckWithData),
		CacheEventPutAck:             cacheIllegal,
		CacheEventDataFromDirAcksEq0: cacheIllegal,
		CacheEventDataFromDirAcksGt0: cacheIllegal,
		CacheEventDataFromOwner:      cacheIllegal,
		CacheEventInvAck:             cacheIllegal,
		CacheEventLastInvAck:         cacheIllegal,
	}

	t[CacheStateMIA] = [numCacheEventKinds]cacheTransition{
		CacheEventLoad:        cacheStall,
		CacheEventStore:       cacheStall,
		CacheEventReplacement: cacheRetry,
		CacheEventFwdGetS: cacheGoTo(CacheStateSIA,
			(*CacheLine).sendDataToRequesterAndDirectory),
		CacheEventFwdGetM: cacheGoTo(CacheStateIIA,
			(*CacheLine).sendDataToRequester),
		CacheEventInv: cacheIllegal,
		CacheEventRecall: cacheGoTo(CacheStateIIA,
			(*CacheLine).sendRecallAck),
		CacheEventPutAck:             cacheGoTo(CacheStateI),
		CacheEventDataFromDirAcksEq0: cacheIllegal,
		CacheEventDataFromDirAcksGt0: cacheIllegal,
		CacheEventDataFromOwner:      cacheIllegal,
		CacheEventInvAck:             cacheIllegal,
		CacheEventLastInvAck:         cacheIllegal,
	}

	t[CacheStateSIA] = [numCacheEventKinds]cacheTransition{
		CacheEventLoad:        cacheStall,
		CacheEventStore:       cacheStall,
		CacheEventReplacement: cacheRetry,
		CacheEventFwdGetS:     cacheIllegal,
		CacheEventFwdGetM:     cacheIllegal,
		CacheEventInv: cacheGoTo(CacheStateIIA,
			(*CacheLine).sendInvAck),
		CacheEventRecall: cacheGoTo(CacheStateIIA,
			(*CacheLine).sendRecallAck),
		CacheEventPutAck:             cacheGoTo(CacheStateI),
		CacheEventDataFromDirAcksEq0: cacheIllegal,
		CacheEventDataFromDirAcksGt0: cacheIllegal,
		CacheEventDataFromOwner:      cacheIllegal,
		CacheEventInvAck:             cacheIllegal,
		CacheEventLastInvAck:         cacheIllegal,
	}

	t[CacheStateIIA] = [numCacheEventKinds]cacheTransition{
		CacheEventLoad:               cacheStall,
		CacheEventStore:              cacheStall,
		CacheEventReplacement:        cacheRetry,
		CacheEventFwdGetS:            cacheIllegal,
		CacheEventFwdGetM:            cacheIllegal,
		CacheEventInv:                cacheIllegal,
		CacheEventRecall:             cacheIllegal,
		CacheEventPutAck:             cacheGoTo(CacheStateI),
		CacheEventDataFromDirAcksEq0: cacheIllegal,
		CacheEventDataFromDirAcksGt0: cacheIllegal,
		CacheEventDataFromOwner:      cacheIllegal,
		CacheEventInvAck:             cacheIllegal,
		CacheEventLastInvAck:         cacheIllegal,
	}

	return t
}

package coherence

type directoryAction func(l *DirectoryLine, e *DirectoryEvent)

type directoryTransition struct {
	kind    transitionKind
	next    DirectoryState
	actions []directoryAction
}

var (
	directoryIllegal = directoryTransition{kind: transitionIllegal}
	directoryStall   = directoryTransition{kind: transitionStall}
	directoryRetry   = directoryTransition{kind: transitionRetry}
)

func directoryGoTo(
	next DirectoryState,
	actions ...directoryAction,
) directoryTransition {
	return directoryTransition{kind: transitionFire, next: next, actions: actions}
}

type directoryTable [numDirectoryStates][numDirectoryEventKinds]directoryTransition

var directoryTransitions directoryTable

func init() {
	directoryTransitions = newDirectoryTable()
}

//nolint:funlen
func newDirectoryTable() (t directoryTable) {
	t[DirectoryStateI] = [numDirectoryEventKinds]directoryTransition{
		DirectoryEventGetS: directoryGoTo(DirectoryStateISD,
			(*DirectoryLine).setTag,
			(*DirectoryLine).fetchFromMemory),
		DirectoryEventGetM: directoryGoTo(DirectoryStateIMD,
			(*DirectoryLine).setTag,
			(*DirectoryLine).fetchFromMemory),
		DirectoryEventReplacement:             directoryIllegal,
		DirectoryEventRecallAck:               directoryIllegal,
		DirectoryEventLastRecallAck:           directoryIllegal,
		DirectoryEventPutSNotLast:             directoryIllegal,
		DirectoryEventPutSLast:                directoryIllegal,
		DirectoryEventPutMAndDataFromOwner:    directoryIllegal,
		DirectoryEventPutMAndDataFromNonOwner: directoryIllegal,
		DirectoryEventData:                    directoryIllegal,
		DirectoryEventDataFromMem:             directoryIllegal,
	}

	t[DirectoryStateISD] = [numDirectoryEventKinds]directoryTransition{
		DirectoryEventGetS:                    directoryStall,
		DirectoryEventGetM:                    directoryStall,
		DirectoryEventReplacement:             directoryRetry,
		DirectoryEventRecallAck:               directoryIllegal,
		DirectoryEventLastRecallAck:           directoryIllegal,
		DirectoryEventPutSNotLast:             directoryStall,
		DirectoryEventPutSLast:                directoryStall,
		DirectoryEventPutMAndDataFromOwner:    directoryIllegal,
		DirectoryEventPutMAndDataFromNonOwner: directoryStall,
		DirectoryEventData:                    directoryIllegal,
		DirectoryEventDataFromMem: directoryGoTo(DirectoryStateS,
			(*DirectoryLine).sendDataToRequester,
			(*DirectoryLine).addRequesterToSharers),
	}

	t[DirectoryStateIMD] = [numDirectoryEventKinds]directoryTransition{
		DirectoryEventGetS:                    directoryStall,
		DirectoryEventGetM:                    directoryStall,
		DirectoryEventReplacement:             directoryRetry,
		DirectoryEventRecallAck:               directoryIllegal,
		DirectoryEventLastRecallAck:           directoryIllegal,
		DirectoryEventPutSNotLast:             directoryStall,
		DirectoryEventPutSLast:                directoryStall,
		DirectoryEventPutMAndDataFromOwner:    directoryIllegal,
		DirectoryEventPutMAndDataFromNonOwner: directoryStall,
		DirectoryEventData:                    directoryIllegal,
		DirectoryEventDataFromMem: directoryGoTo(DirectoryStateM,
			(*DirectoryLine).sendDataToRequester,
			(*DirectoryLine).setRequesterAsOwner),
	}

	t[DirectoryStateS] = [numDirectoryEventKinds]directoryTransition{
		DirectoryEventGetS: directoryGoTo(DirectoryStateS,
			(*DirectoryLine).sendDataToRequester,
			(*DirectoryLine).addRequesterToSharers),
		DirectoryEventGetM: directoryGoTo(DirectoryStateM,
			(*DirectoryLine).sendDataWithAcksToRequester,
			(*DirectoryLine).invalidateOtherSharers,
			(*DirectoryLine).clearSharers,
			(*DirectoryLine).setRequesterAsOwner),
		DirectoryEventReplacement: directoryGoTo(DirectoryStateSIA,
			(*DirectoryLine).holdCompletion,
			(*DirectoryLine).setEvicter,
			(*DirectoryLine).recallSharers),
		DirectoryEventRecallAck:     directoryIllegal,
		DirectoryEventLastRecallAck: directoryIllegal,
		DirectoryEventPutSNotLast: directoryGoTo(DirectoryStateS,
			(*DirectoryLine).removeSender,
			(*DirectoryLine).sendPutAck),
		DirectoryEventPutSLast: directoryGoTo(DirectoryStateI,
			(*DirectoryLine).removeSender,
			(*DirectoryLine).sendPutAck),
		DirectoryEventPutMAndDataFromOwner: directoryIllegal,
		DirectoryEventPutMAndDataFromNonOwner: directoryGoTo(DirectoryStateS,
			(*DirectoryLine).sendPutAck),
		DirectoryEventData:        directoryIllegal,
		DirectoryEventDataFromMem: directoryIllegal,
	}

	t[DirectoryStateM] = [numDirectoryEventKinds]directoryTransition{
		DirectoryEventGetS: directoryGoTo(DirectoryStateSD,
			(*DirectoryLine).forwardGetSToOwner,
			(*DirectoryLine).addRequesterAndOwnerToSharers,
			(*DirectoryLine).clearOwner),
		DirectoryEventGetM: directoryGoTo(DirectoryStateM,
			(*DirectoryLine).forwardGetMToOwner,
			(*DirectoryLine).setRequesterAsOwner),
		DirectoryEventReplacement: directoryGoTo(DirectoryStateMIA,
			(*DirectoryLine).holdCompletion,
			(*DirectoryLine).setEvicter,
			(*DirectoryLine).recallOwner),
		DirectoryEventRecallAck:     directoryIllegal,
		DirectoryEventLastRecallAck: directoryIllegal,
		DirectoryEventPutSNotLast: directoryGoTo(DirectoryStateM,
			(*DirectoryLine).sendPutAck),
		DirectoryEventPutSLast: directoryIllegal,
		DirectoryEventPutMAndDataFromOwner: directoryGoTo(DirectoryStateI,
			(*DirectoryLine).writeBack,
			(*DirectoryLine).clearOwner,
			(*DirectoryLine).sendPutAck),
		DirectoryEventPutMAndDataFromNonOwner: directoryGoTo(DirectoryStateM,
			(*DirectoryLine).sendPutAck),
		DirectoryEventData:        directoryIllegal,
		DirectoryEventDataFromMem: directoryIllegal,
	}

	t[DirectoryStateSD] = [numDirectoryEventKinds]directoryTransition{
		DirectoryEventGetS:          directoryStall,
		DirectoryEventGetM:          directoryStall,
		DirectoryEventReplacement:   directoryRetry,
		DirectoryEventRecallAck:     directoryIllegal,
		DirectoryEventLastRecallAck: directoryIllegal,
		DirectoryEventPutSNotLast: directoryGoTo(DirectoryStateSD,
			(*DirectoryLine).removeSender,
			(*DirectoryLine).sendPutAck),
		// Releasing the last sharer must wait for the owner's data.
		DirectoryEventPutSLast:             directoryStall,
		DirectoryEventPutMAndDataFromOwner: directoryIllegal,
		DirectoryEventPutMAndDataFromNonOwner: directoryGoTo(DirectoryStateSD,
			(*DirectoryLine).sendPutAck),
		DirectoryEventData: directoryGoTo(DirectoryStateS,
			(*DirectoryLine).writeBack),
		DirectoryEventDataFromMem: directoryIllegal,
	}

	t[DirectoryStateMIA] = [numDirectoryEventKinds]directoryTransition{
		DirectoryEventGetS:        directoryStall,
		DirectoryEventGetM:        directoryStall,
		DirectoryEventReplacement: directoryRetry,
		DirectoryEventRecallAck: directoryGoTo(DirectoryStateMIA,
			(*DirectoryLine).countRecallAck),
		DirectoryEventLastRecallAck: directoryGoTo(DirectoryStateI,
			(*DirectoryLine).writeBack),
		DirectoryEventPutSNotLast: directoryGoTo(DirectoryStateMIA,
			(*DirectoryLine).sendPutAck),
		DirectoryEventPutSLast:             directoryIllegal,
		DirectoryEventPutMAndDataFromOwner: directoryIllegal,
		DirectoryEventPutMAndDataFromNonOwner: directoryGoTo(DirectoryStateMIA,
			(*DirectoryLine).sendPutAck),
		DirectoryEventData:        directoryIllegal,
		DirectoryEventDataFromMem: directoryIllegal,
	}

	t[DirectoryStateSIA] = [numDirectoryEventKinds]directoryTransition{
		DirectoryEventGetS:        directoryStall,
		DirectoryEventGetM:        directoryStall,
		DirectoryEventReplacement: directoryRetry,
		DirectoryEventRecallAck: directoryGoTo(DirectoryStateSIA,
			(*DirectoryLine).countRecallAck),
		DirectoryEventLastRecallAck: directoryGoTo(DirectoryStateI,
			(*DirectoryLine).writeBack),
		DirectoryEventPutSNotLast: directoryGoTo(DirectoryStateSIA,
			(*DirectoryLine).sendPutAck),
		DirectoryEventPutSLast:             directoryIllegal,
		DirectoryEventPutMAndDataFromOwner: directoryIllegal,
		DirectoryEventPutMAndDataFromNonOwner: directoryGoTo(DirectoryStateSIA,
			(*DirectoryLine).sendPutAck),
		DirectoryEventData:        directoryIllegal,
		DirectoryEventDataFromMem: directoryIllegal,
	}

	// II_A is never entered by the directory.
	t[DirectoryStateIIA] = [numDirectoryEventKinds]directoryTransition{
		DirectoryEventGetS:                    directoryIllegal,
		DirectoryEventGetM:                    directoryIllegal,
		DirectoryEventReplacement:             directoryIllegal,
		DirectoryEventRecallAck:               directoryIllegal,
		DirectoryEventLastRecallAck:           directoryIllegal,
		DirectoryEventPutSNotLast:             directoryIllegal,
		DirectoryEventPutSLast:                directoryIllegal,
		DirectoryEventPutMAndDataFromOwner:    directoryIllegal,
		DirectoryEventPutMAndDataFromNonOwner: directoryIllegal,
		DirectoryEventData:                    directoryIllegal,
		DirectoryEventDataFromMem:             directoryIllegal,
	}

	return t
}

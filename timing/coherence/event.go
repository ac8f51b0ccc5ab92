package coherence

// Continuation resumes a request once the protocol lets it proceed.
type Continuation func()

// CacheEventKind is the kind of an event that drives a CacheLine.
type CacheEventKind int

// Cache events.
const (
	CacheEventLoad CacheEventKind = iota
	CacheEventStore
	CacheEventReplacement
	CacheEventFwdGetS
	CacheEventFwdGetM
	CacheEventInv
	CacheEventRecall
	CacheEventPutAck
	CacheEventDataFromDirAcksEq0
	CacheEventDataFromDirAcksGt0
	CacheEventDataFromOwner
	CacheEventInvAck
	CacheEventLastInvAck
	numCacheEventKinds
)

var cacheEventNames = [numCacheEventKinds]string{
	"LOAD", "STORE", "REPLACEMENT", "FWD_GETS", "FWD_GETM", "INV", "RECALL",
	"PUT_ACK", "DATA_FROM_DIR_ACKS_EQ_0", "DATA_FROM_DIR_ACKS_GT_0",
	"DATA_FROM_OWNER", "INV_ACK", "LAST_INV_ACK",
}

func (k CacheEventKind) String() string {
	if k < 0 || k >= numCacheEventKinds {
		return "CacheEventKind(?)"
	}
	return cacheEventNames[k]
}

// IsLocal returns true for requests that come from the core side.
func (k CacheEventKind) IsLocal() bool {
	return k == CacheEventLoad || k == CacheEventStore ||
		k == CacheEventReplacement
}

// CacheEventKinds returns every cache event kind in declaration order.
func CacheEventKinds() []CacheEventKind {
	kinds := make([]CacheEventKind, numCacheEventKinds)
	for i := range kinds {
		kinds[i] = CacheEventKind(i)
	}
	return kinds
}

// CacheEvent is a reified input of a CacheLine. Stalled events are kept in
// this form until they are replayed.
type CacheEvent struct {
	Kind CacheEventKind
	Tag  uint64

	// Sender is the controller that sent the message behind the event.
	Sender string

	// Requester is the cache to answer for FwdGetS, FwdGetM and Inv.
	Requester string

	// NumAcks is carried by data from the directory.
	NumAcks int

	Flow *Flow

	// OnCompleted and OnStalled belong to local requests only.
	OnCompleted Continuation
	OnStalled   Continuation
}

// DirectoryEventKind is the kind of an event that drives a DirectoryLine.
type DirectoryEventKind int

// Directory events.
const (
	DirectoryEventGetS DirectoryEventKind = iota
	DirectoryEventGetM
	DirectoryEventReplacement
	DirectoryEventRecallAck
	DirectoryEventLastRecallAck
	DirectoryEventPutSNotLast
	DirectoryEventPutSLast
	DirectoryEventPutMAndDataFromOwner
	DirectoryEventPutMAndDataFromNonOwner
	DirectoryEventData
	DirectoryEventDataFromMem
	numDirectoryEventKinds
)

var directoryEventNames = [numDirectoryEventKinds]string{
	"GETS", "GETM", "REPLACEMENT", "RECALL_ACK", "LAST_RECALL_ACK",
	"PUTS_NOT_LAST", "PUTS_LAST", "PUTM_AND_DATA_FROM_OWNER",
	"PUTM_AND_DATA_FROM_NONOWNER", "DATA", "DATA_FROM_MEM",
}

func (k DirectoryEventKind) String() string {
	if k < 0 || k >= numDirectoryEventKinds {
		return "DirectoryEventKind(?)"
	}
	return directoryEventNames[k]
}

// DirectoryEventKinds returns every directory event kind in declaration
// order.
func DirectoryEventKinds() []DirectoryEventKind {
	kinds := make([]DirectoryEventKind, numDirectoryEventKinds)
	for i := range kinds {
		kinds[i] = DirectoryEventKind(i)
	}
	return kinds
}

// DirectoryEvent is a reified input of a DirectoryLine.
type DirectoryEvent struct {
	Kind DirectoryEventKind
	Tag  uint64

	// Message is the message kind the event was classified from. Put events
	// are classified again when they are replayed.
	Message MessageKind

	// Sender is the cache that sent the message. For GetS and GetM it is
	// the requester.
	Sender string

	// Evicter is the tag that needs the slot of a REPLACEMENT.
	Evicter uint64

	Flow *Flow

	OnCompleted Continuation
	OnStalled   Continuation
}

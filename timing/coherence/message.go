package coherence

import "fmt"

// MessageKind identifies a protocol message.
type MessageKind int

// Protocol messages.
const (
	MessageGetS MessageKind = iota
	MessageGetM
	MessagePutS
	MessagePutMAndData
	MessageData
	MessageInv
	MessageInvAck
	MessageFwdGetS
	MessageFwdGetM
	MessageRecall
	MessageRecallAck
	MessagePutAck
	numMessageKinds
)

var messageKindNames = [numMessageKinds]string{
	"GetS", "GetM", "PutS", "PutMAndData", "Data", "Inv", "InvAck", "FwdGetS",
	"FwdGetM", "Recall", "RecallAck", "PutAck",
}

func (k MessageKind) String() string {
	if k < 0 || k >= numMessageKinds {
		return "MessageKind(?)"
	}
	return messageKindNames[k]
}

// MessageKinds returns every message kind in declaration order.
func MessageKinds() []MessageKind {
	kinds := make([]MessageKind, numMessageKinds)
	for i := range kinds {
		kinds[i] = MessageKind(i)
	}
	return kinds
}

// HeaderSize is the size of a message without a line payload.
const HeaderSize = 8

// Message is a request or reply exchanged between controllers.
type Message struct {
	ID   string
	Kind MessageKind
	Src  string
	Dst  string
	Tag  uint64

	// Requester is the cache that the receiver must answer for FwdGetS,
	// FwdGetM and Inv.
	Requester string

	// NumAcks is the number of InvAcks the receiver of a Data message from
	// the directory has to collect.
	NumAcks int

	// CarriesData is true if the message holds a full line.
	CarriesData bool

	// Flow links the message to the request that caused it.
	Flow *Flow
}

// Size returns the number of bytes the message occupies on a link.
func (m *Message) Size(lineSize int) int {
	if m.CarriesData {
		return HeaderSize + lineSize
	}
	return HeaderSize
}

func (m *Message) String() string {
	return fmt.Sprintf("%s(%s->%s, 0x%x)", m.Kind, m.Src, m.Dst, m.Tag)
}

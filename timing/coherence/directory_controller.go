package coherence

import (
	"fmt"
	"log"

	"github.com/sarchlab/msisim/timing/cache"
)

// DirectoryStats holds the statistics of the directory controller.
type DirectoryStats struct {
	GetS             uint64
	GetM             uint64
	PutS             uint64
	PutMAndData      uint64
	Invalidations    uint64
	Recalls          uint64
	Evictions        uint64
	MemReads         uint64
	MemWrites        uint64
	Stalls           uint64
	RetriedAccesses  uint64
	AbsentLinePutAck uint64
}

// DirectoryController is the shared directory. It owns one DirectoryLine per
// slot and arbitrates all requests to the lines it tracks.
type DirectoryController struct {
	controllerBase

	tags   *cache.TagArray
	lines  []DirectoryLine
	memory Memory

	stats DirectoryStats
}

// NewDirectoryController creates a directory backed by memory.
func NewDirectoryController(
	name string,
	config cache.Config,
	scheduler Scheduler,
	transport Transport,
	memory Memory,
) *DirectoryController {
	d := &DirectoryController{
		controllerBase: newControllerBase(
			name, config.BlockSize, scheduler, transport),
		tags:   cache.New(config),
		memory: memory,
	}

	d.lines = make([]DirectoryLine, d.tags.NumSets()*d.tags.Associativity())
	for set := 0; set < d.tags.NumSets(); set++ {
		for way := 0; way < d.tags.Associativity(); way++ {
			l := d.Line(set, way)
			l.controller = d
			l.set = set
			l.way = way
		}
	}

	return d
}

// Stats returns the statistics of the directory.
func (d *DirectoryController) Stats() DirectoryStats {
	return d.stats
}

// Tags returns the tag array of the directory.
func (d *DirectoryController) Tags() *cache.TagArray {
	return d.tags
}

// Line returns the automaton of a slot.
func (d *DirectoryController) Line(set, way int) *DirectoryLine {
	return &d.lines[set*d.tags.Associativity()+way]
}

// LineFor returns the automaton tracking addr, or nil.
func (d *DirectoryController) LineFor(addr uint64) *DirectoryLine {
	tag := d.tags.Tag(addr)

	way := d.tags.FindWay(tag)
	if way < 0 {
		return nil
	}

	return d.Line(d.tags.Set(tag), way)
}

// Lines returns every automaton of the directory.
func (d *DirectoryController) Lines() []*DirectoryLine {
	lines := make([]*DirectoryLine, len(d.lines))
	for i := range d.lines {
		lines[i] = &d.lines[i]
	}
	return lines
}

// Receive handles a message delivered by the transport.
func (d *DirectoryController) Receive(msg *Message) {
	d.endFlow(d, msg.Flow)

	switch msg.Kind {
	case MessageGetS:
		d.stats.GetS++
		d.scheduleAccess(msg)
	case MessageGetM:
		d.stats.GetM++
		d.scheduleAccess(msg)
	case MessagePutS:
		d.stats.PutS++
		d.receivePut(msg)
	case MessagePutMAndData:
		d.stats.PutMAndData++
		d.receivePut(msg)
	case MessageData:
		d.mustFindLine(msg).OnData(msg.Flow, msg.Src, msg.Tag)
	case MessageRecallAck:
		d.mustFindLine(msg).OnRecallAck(msg.Flow, msg.Src, msg.Tag)
	default:
		log.Panicf("%s: unexpected message %s", d.name, msg)
	}
}

func (d *DirectoryController) mustFindLine(msg *Message) *DirectoryLine {
	line := d.LineFor(msg.Tag)
	if line == nil {
		log.Panicf("%s: %s for absent line 0x%x", d.name, msg, msg.Tag)
	}
	return line
}

func (d *DirectoryController) scheduleAccess(msg *Message) {
	d.scheduler.Schedule(d.tags.Config().HitLatency, func() {
		d.access(msg.Kind, msg.Flow, msg.Src, msg.Tag)
	})
}

// receivePut handles PutS and PutMAndData. A put for a line the directory
// no longer tracks is acknowledged at once, written back if it holds data.
func (d *DirectoryController) receivePut(msg *Message) {
	line := d.LineFor(msg.Tag)
	if line == nil {
		d.stats.AbsentLinePutAck++
		if msg.Kind == MessagePutMAndData {
			d.writeBack(msg.Tag)
		}
		d.sendPutAck(msg.Src, msg.Tag, msg.Flow)
		return
	}

	if msg.Kind == MessagePutS {
		line.OnPutS(msg.Flow, msg.Src, msg.Tag)
		return
	}

	line.OnPutMAndData(msg.Flow, msg.Src, msg.Tag)
}

// access finds the slot for a GetS or GetM. A request for a tag whose slot
// is still being recycled for it waits on the evicting line.
func (d *DirectoryController) access(
	kind MessageKind,
	flow *Flow,
	requester string,
	tag uint64,
) {
	onStalled := func() {
		d.access(kind, flow, requester, tag)
	}

	eventKind := DirectoryEventGetS
	if kind == MessageGetM {
		eventKind = DirectoryEventGetM
	}

	if evicting := d.evictingLineFor(tag); evicting != nil {
		evicting.stall(&DirectoryEvent{
			Kind:      eventKind,
			Message:   kind,
			Tag:       tag,
			Sender:    requester,
			Flow:      flow,
			OnStalled: onStalled,
		})
		return
	}

	acc := d.tags.NewAccess(tag)
	line := d.Line(acc.Set, acc.Way)

	apply := func() {
		if kind == MessageGetM {
			line.OnGetM(flow, requester, tag, onStalled)
			return
		}
		line.OnGetS(flow, requester, tag, onStalled)
	}

	if !acc.Replacement {
		apply()
		return
	}

	evictionFlow := d.beginFlow(d, "Eviction", acc.VictimTag, flow)
	line.OnReplacement(evictionFlow, tag,
		func() {
			d.endFlow(d, evictionFlow)
			apply()
		},
		func() {
			d.endFlow(d, evictionFlow)
			d.stats.RetriedAccesses++
			d.scheduler.Schedule(1, onStalled)
		},
	)
}

func (d *DirectoryController) evictingLineFor(tag uint64) *DirectoryLine {
	set := d.tags.Set(tag)
	for way := 0; way < d.tags.Associativity(); way++ {
		l := d.Line(set, way)
		if (l.state == DirectoryStateMIA || l.state == DirectoryStateSIA) &&
			l.evicting && l.evicterTag == tag {
			return l
		}
	}
	return nil
}

func (d *DirectoryController) lineStateChanged(
	l *DirectoryLine,
	prev DirectoryState,
) {
	switch {
	case l.state == DirectoryStateI:
		l.evicting = false
		l.evicterTag = 0
		d.tags.Invalidate(l.set, l.way)
	case prev == DirectoryStateI:
		d.tags.Install(l.set, l.way, l.tag)
		d.tags.SetLocked(l.set, l.way, true)
	default:
		d.tags.SetLocked(l.set, l.way, l.state.IsTransient())
	}
}

func (d *DirectoryController) fetch(
	l *DirectoryLine,
	flow *Flow,
	requester string,
	tag uint64,
) {
	d.stats.MemReads++
	d.memory.MemReadRequestReceive(d.name, tag, func() {
		l.onDataFromMem(flow, requester, tag)
	})
}

func (d *DirectoryController) writeBack(tag uint64) {
	d.stats.MemWrites++
	d.memory.MemWriteRequestReceive(d.name, tag, func() {})
}

func (d *DirectoryController) sendData(
	dst string,
	tag uint64,
	numAcks int,
	producer *Flow,
) {
	d.send(d, &Message{
		Kind:        MessageData,
		Dst:         dst,
		Tag:         tag,
		NumAcks:     numAcks,
		CarriesData: true,
	}, producer)
}

func (d *DirectoryController) sendRecall(dst string, tag uint64, producer *Flow) {
	d.stats.Recalls++
	d.send(d, &Message{
		Kind: MessageRecall,
		Dst:  dst,
		Tag:  tag,
	}, producer)
}

func (d *DirectoryController) sendPutAck(dst string, tag uint64, producer *Flow) {
	d.send(d, &Message{
		Kind: MessagePutAck,
		Dst:  dst,
		Tag:  tag,
	}, producer)
}

// CheckInvariants verifies the entry of every slot in a stable state.
func (d *DirectoryController) CheckInvariants() error {
	for i := range d.lines {
		l := &d.lines[i]
		if l.state.IsTransient() {
			continue
		}

		if err := l.checkEntry(); err != nil {
			return fmt.Errorf("%s[%d][%d]: %w", d.name, l.set, l.way, err)
		}
	}

	return nil
}

// Quiescent returns true if every slot is in a stable state with nothing
// deferred.
func (d *DirectoryController) Quiescent() bool {
	for i := range d.lines {
		l := &d.lines[i]
		if l.state.IsTransient() || l.stalled.len() > 0 ||
			l.onCompleted != nil {
			return false
		}
	}

	return true
}

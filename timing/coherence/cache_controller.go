package coherence

import (
	"log"

	"github.com/sarchlab/msisim/timing/cache"
)

// CacheStats holds the statistics of a private cache controller.
type CacheStats struct {
	Loads              uint64
	Stores             uint64
	Hits               uint64
	Misses             uint64
	Upgrades           uint64
	Evictions          uint64
	Writebacks         uint64
	Stalls             uint64
	RetriedAccesses    uint64
	CoalescedRequests  uint64
	CompletedRequests  uint64
	TotalRequestCycles uint64
}

// CacheController is a private cache. It owns one CacheLine per slot and
// serves the loads and stores of one core.
type CacheController struct {
	controllerBase

	directory string
	tags      *cache.TagArray
	lines     []CacheLine

	// inFlight admits one request per tag. Later requests to the same tag
	// wait here in arrival order.
	inFlight map[uint64][]func()

	stats CacheStats
}

// NewCacheController creates a private cache named name whose misses go to
// the directory named directory.
func NewCacheController(
	name string,
	config cache.Config,
	directory string,
	scheduler Scheduler,
	transport Transport,
) *CacheController {
	c := &CacheController{
		controllerBase: newControllerBase(
			name, config.BlockSize, scheduler, transport),
		directory: directory,
		tags:      cache.New(config),
		inFlight:  make(map[uint64][]func()),
	}

	c.lines = make([]CacheLine, c.tags.NumSets()*c.tags.Associativity())
	for set := 0; set < c.tags.NumSets(); set++ {
		for way := 0; way < c.tags.Associativity(); way++ {
			l := c.Line(set, way)
			l.controller = c
			l.set = set
			l.way = way
		}
	}

	return c
}

// Stats returns the statistics of the controller.
func (c *CacheController) Stats() CacheStats {
	return c.stats
}

// Tags returns the tag array of the controller.
func (c *CacheController) Tags() *cache.TagArray {
	return c.tags
}

// Line returns the automaton of a slot.
func (c *CacheController) Line(set, way int) *CacheLine {
	return &c.lines[set*c.tags.Associativity()+way]
}

// LineFor returns the automaton that holds addr, or nil.
func (c *CacheController) LineFor(addr uint64) *CacheLine {
	tag := c.tags.Tag(addr)

	way := c.tags.FindWay(tag)
	if way < 0 {
		return nil
	}

	return c.Line(c.tags.Set(tag), way)
}

// Lines returns every automaton of the cache.
func (c *CacheController) Lines() []*CacheLine {
	lines := make([]*CacheLine, len(c.lines))
	for i := range c.lines {
		lines[i] = &c.lines[i]
	}
	return lines
}

// Load reads addr and calls onCompleted once the line is readable.
func (c *CacheController) Load(addr uint64, onCompleted func()) {
	c.stats.Loads++
	c.request(CacheEventLoad, addr, onCompleted)
}

// Store writes addr and calls onCompleted once the line is writable.
func (c *CacheController) Store(addr uint64, onCompleted func()) {
	c.stats.Stores++
	c.request(CacheEventStore, addr, onCompleted)
}

func (c *CacheController) request(
	kind CacheEventKind,
	addr uint64,
	onCompleted func(),
) {
	tag := c.tags.Tag(addr)

	c.admit(tag, func() {
		flow := c.beginFlow(c, kind.String(), tag, nil)
		start := c.now()

		done := func() {
			c.endFlow(c, flow)
			c.stats.CompletedRequests++
			c.stats.TotalRequestCycles += c.now() - start
			c.release(tag)
			onCompleted()
		}

		c.scheduler.Schedule(c.tags.Config().HitLatency, func() {
			c.access(kind, flow, tag, done)
		})
	})
}

func (c *CacheController) admit(tag uint64, start func()) {
	waiting, busy := c.inFlight[tag]
	if busy {
		c.stats.CoalescedRequests++
		c.inFlight[tag] = append(waiting, start)
		return
	}

	c.inFlight[tag] = nil
	start()
}

func (c *CacheController) release(tag uint64) {
	waiting := c.inFlight[tag]
	if len(waiting) == 0 {
		delete(c.inFlight, tag)
		return
	}

	next := waiting[0]
	c.inFlight[tag] = waiting[1:]
	next()
}

// access finds the slot for tag and applies the request to it, evicting
// the slot's current line first if needed.
func (c *CacheController) access(
	kind CacheEventKind,
	flow *Flow,
	tag uint64,
	onCompleted Continuation,
) {
	onStalled := func() {
		c.access(kind, flow, tag, onCompleted)
	}

	acc := c.tags.NewAccess(tag)
	line := c.Line(acc.Set, acc.Way)

	if !acc.Replacement {
		c.apply(line, kind, flow, tag, onCompleted, onStalled)
		return
	}

	line.OnReplacement(flow, acc.VictimTag,
		func() {
			c.apply(line, kind, flow, tag, onCompleted, onStalled)
		},
		func() {
			c.stats.RetriedAccesses++
			c.scheduler.Schedule(1, onStalled)
		},
	)
}

func (c *CacheController) apply(
	line *CacheLine,
	kind CacheEventKind,
	flow *Flow,
	tag uint64,
	onCompleted, onStalled Continuation,
) {
	switch kind {
	case CacheEventLoad:
		line.OnLoad(flow, tag, onCompleted, onStalled)
	case CacheEventStore:
		line.OnStore(flow, tag, onCompleted, onStalled)
	default:
		log.Panicf("%s: %s is not a core request", c.name, kind)
	}
}

// Receive handles a message delivered by the transport.
func (c *CacheController) Receive(msg *Message) {
	c.endFlow(c, msg.Flow)

	line := c.LineFor(msg.Tag)
	if line == nil {
		log.Panicf("%s: %s for absent line 0x%x", c.name, msg, msg.Tag)
	}

	switch msg.Kind {
	case MessageFwdGetS:
		line.OnFwdGetS(msg.Flow, msg.Requester, msg.Tag)
	case MessageFwdGetM:
		line.OnFwdGetM(msg.Flow, msg.Requester, msg.Tag)
	case MessageInv:
		line.OnInv(msg.Flow, msg.Requester, msg.Tag)
	case MessageRecall:
		line.OnRecall(msg.Flow, msg.Tag)
	case MessagePutAck:
		line.OnPutAck(msg.Flow, msg.Tag)
	case MessageData:
		line.OnData(msg.Flow, msg.Src, msg.Tag, msg.NumAcks)
	case MessageInvAck:
		line.OnInvAck(msg.Flow, msg.Src, msg.Tag)
	default:
		log.Panicf("%s: unexpected message %s", c.name, msg)
	}
}

func (c *CacheController) hit(l *CacheLine, e *CacheEvent) {
	c.stats.Hits++
	c.tags.Touch(l.set, l.way)
	c.scheduler.Schedule(1, func() { e.OnCompleted() })
}

func (c *CacheController) lineStateChanged(l *CacheLine, prev CacheState) {
	switch {
	case l.state == CacheStateI:
		c.tags.Invalidate(l.set, l.way)
	case prev == CacheStateI:
		c.tags.Install(l.set, l.way, l.tag)
		c.tags.SetLocked(l.set, l.way, true)
	default:
		c.tags.SetLocked(l.set, l.way, l.state.IsTransient())
	}
}

func (c *CacheController) sendToDirectory(
	kind MessageKind,
	tag uint64,
	producer *Flow,
) {
	c.send(c, &Message{
		Kind:        kind,
		Dst:         c.directory,
		Tag:         tag,
		CarriesData: kind == MessagePutMAndData,
	}, producer)
}

func (c *CacheController) sendData(dst string, tag uint64, producer *Flow) {
	c.send(c, &Message{
		Kind:        MessageData,
		Dst:         dst,
		Tag:         tag,
		CarriesData: true,
	}, producer)
}

func (c *CacheController) sendRecallAck(
	tag uint64,
	withData bool,
	producer *Flow,
) {
	c.send(c, &Message{
		Kind:        MessageRecallAck,
		Dst:         c.directory,
		Tag:         tag,
		CarriesData: withData,
	}, producer)
}

// Quiescent returns true if no request is in flight and every slot is in a
// stable state with nothing deferred.
func (c *CacheController) Quiescent() bool {
	if len(c.inFlight) > 0 {
		return false
	}

	for i := range c.lines {
		l := &c.lines[i]
		if l.state.IsTransient() || l.stalled.len() > 0 ||
			l.onCompleted != nil {
			return false
		}
	}

	return true
}

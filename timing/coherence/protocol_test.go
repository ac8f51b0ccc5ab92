package coherence_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/msisim/timing/cache"
	"github.com/sarchlab/msisim/timing/coherence"
	"github.com/sarchlab/msisim/timing/event"
	"github.com/sarchlab/msisim/timing/mem"
	"github.com/sarchlab/msisim/timing/network"
)

type receiver interface {
	Receive(msg *coherence.Message)
}

// fabric wires caches, a directory and memory over the network model.
type fabric struct {
	q      *event.Queue
	net    *network.Network
	mem    *mem.Controller
	dir    *coherence.DirectoryController
	caches []*coherence.CacheController
	nodes  map[string]receiver
	log    []*coherence.Message
}

func newFabric(numCaches int, dirConfig cache.Config) *fabric {
	f := &fabric{
		q:     event.NewQueue(1 * sim.GHz),
		nodes: make(map[string]receiver),
	}
	f.net = network.NewNetwork(f.q, network.Config{
		LinkLatency:   2,
		BytesPerCycle: 16,
	})
	f.mem = mem.NewController("Mem", f.q, 20)
	f.dir = coherence.NewDirectoryController("Dir", dirConfig, f.q, f, f.mem)
	f.nodes["Dir"] = f.dir

	for i := 0; i < numCaches; i++ {
		c := coherence.NewCacheController(fmt.Sprintf("L1[%d]", i),
			cache.Config{
				Size:          4096,
				Associativity: 4,
				BlockSize:     64,
				HitLatency:    1,
			},
			"Dir", f.q, f)
		f.caches = append(f.caches, c)
		f.nodes[c.Name()] = c
	}

	return f
}

func (f *fabric) Transfer(dst string, size int, msg *coherence.Message) {
	f.log = append(f.log, msg)
	f.net.Transfer(msg.Src, dst, size, func() {
		f.nodes[dst].Receive(msg)
	})
}

func (f *fabric) run() {
	Expect(f.q.Run()).To(Succeed())
}

func (f *fabric) access(i int, store bool, addr uint64) *int {
	completed := new(int)
	if store {
		f.caches[i].Store(addr, func() { *completed++ })
	} else {
		f.caches[i].Load(addr, func() { *completed++ })
	}
	return completed
}

func (f *fabric) messages(kind coherence.MessageKind) []*coherence.Message {
	var msgs []*coherence.Message
	for _, m := range f.log {
		if m.Kind == kind {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

func (f *fabric) quiescent() bool {
	if !f.dir.Quiescent() {
		return false
	}
	for _, c := range f.caches {
		if !c.Quiescent() {
			return false
		}
	}
	return true
}

type transitionRecorder struct {
	transitions []coherence.Transition
}

func (r *transitionRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != coherence.HookPosTransition {
		return
	}
	r.transitions = append(r.transitions, ctx.Item.(coherence.Transition))
}

// visited returns the distinct states a fired transition entered, in order.
func (r *transitionRecorder) visited(tag uint64) []string {
	var states []string
	for _, t := range r.transitions {
		if t.Tag != tag || t.Outcome != coherence.OutcomeFired {
			continue
		}
		if len(states) > 0 && states[len(states)-1] == t.To {
			continue
		}
		states = append(states, t.To)
	}
	return states
}

// fired returns the events that fired at controller, in order.
func (r *transitionRecorder) fired(controller string) []string {
	var events []string
	for _, t := range r.transitions {
		if t.Controller == controller && t.Outcome == coherence.OutcomeFired {
			events = append(events, t.Event)
		}
	}
	return events
}

// count returns how many times event fired at controller.
func (r *transitionRecorder) count(controller, event string) int {
	n := 0
	for _, e := range r.fired(controller) {
		if e == event {
			n++
		}
	}
	return n
}

var bigDirectory = cache.Config{
	Size:          16384,
	Associativity: 4,
	BlockSize:     64,
	HitLatency:    2,
}

var _ = Describe("MSI protocol", func() {
	var f *fabric

	BeforeEach(func() {
		f = newFabric(4, bigDirectory)
	})

	AfterEach(func() {
		Expect(f.dir.CheckInvariants()).To(Succeed())
	})

	It("should fetch a line into S on a cold load", func() {
		rec := &transitionRecorder{}
		f.caches[0].AcceptHook(rec)

		completed := f.access(0, false, 0x100)
		f.run()

		Expect(*completed).To(Equal(1))
		Expect(rec.visited(0x100)).To(Equal([]string{"IS_D", "S"}))
		Expect(f.messages(coherence.MessageGetS)).To(HaveLen(1))
		Expect(f.messages(coherence.MessageData)).To(HaveLen(1))
		Expect(f.mem.Stats().Reads).To(Equal(uint64(1)))
		Expect(f.dir.LineFor(0x100).Sharers()).To(Equal([]string{"L1[0]"}))
		Expect(f.quiescent()).To(BeTrue())
	})

	It("should move ownership between caches on a store", func() {
		f.access(0, true, 0x200)
		f.run()
		f.log = nil

		rec := &transitionRecorder{}
		f.caches[1].AcceptHook(rec)

		completed := f.access(1, true, 0x200)
		f.run()

		Expect(*completed).To(Equal(1))

		fwd := f.messages(coherence.MessageFwdGetM)
		Expect(fwd).To(HaveLen(1))
		Expect(fwd[0].Dst).To(Equal("L1[0]"))
		data := f.messages(coherence.MessageData)
		Expect(data).To(HaveLen(1))
		Expect(data[0].Src).To(Equal("L1[0]"))
		Expect(data[0].Dst).To(Equal("L1[1]"))

		Expect(f.caches[0].LineFor(0x200)).To(BeNil())
		Expect(f.caches[1].LineFor(0x200).State()).
			To(Equal(coherence.CacheStateM))
		Expect(f.caches[1].LineFor(0x200).PendingInvAcks()).To(Equal(0))
		Expect(rec.visited(0x200)).To(Equal([]string{"IM_AD", "M"}))

		line := f.dir.LineFor(0x200)
		Expect(line.State()).To(Equal(coherence.DirectoryStateM))
		owner, _ := line.Owner()
		Expect(owner).To(Equal("L1[1]"))
		Expect(f.quiescent()).To(BeTrue())
	})

	It("should invalidate the other sharer when a sharer stores", func() {
		f.access(0, false, 0x300)
		f.access(1, false, 0x300)
		f.run()
		f.log = nil

		rec := &transitionRecorder{}
		f.caches[1].AcceptHook(rec)

		completed := f.access(1, true, 0x300)
		f.run()

		Expect(*completed).To(Equal(1))
		inv := f.messages(coherence.MessageInv)
		Expect(inv).To(HaveLen(1))
		Expect(inv[0].Dst).To(Equal("L1[0]"))
		acks := f.messages(coherence.MessageInvAck)
		Expect(acks).To(HaveLen(1))
		Expect(acks[0].Dst).To(Equal("L1[1]"))

		Expect(f.caches[0].LineFor(0x300)).To(BeNil())
		Expect(rec.visited(0x300)).To(Equal([]string{"SM_AD", "SM_A", "M"}))
	})

	It("should collect acks from every sharer when a cache in I stores", func() {
		f.access(0, false, 0x300)
		f.access(2, false, 0x300)
		f.run()
		f.log = nil

		rec := &transitionRecorder{}
		f.caches[1].AcceptHook(rec)

		completed := f.access(1, true, 0x300)
		f.run()

		Expect(*completed).To(Equal(1))
		Expect(f.messages(coherence.MessageInv)).To(HaveLen(2))
		Expect(f.messages(coherence.MessageInvAck)).To(HaveLen(2))
		Expect(f.caches[0].LineFor(0x300)).To(BeNil())
		Expect(f.caches[2].LineFor(0x300)).To(BeNil())
		Expect(rec.visited(0x300)).To(Equal([]string{"IM_AD", "IM_A", "M"}))
		Expect(f.quiescent()).To(BeTrue())
	})

	It("should serve a read of a modified line through the owner", func() {
		f.access(0, true, 0x400)
		f.run()

		completed := f.access(1, false, 0x400)
		f.run()

		Expect(*completed).To(Equal(1))
		Expect(f.caches[0].LineFor(0x400).State()).
			To(Equal(coherence.CacheStateS))
		Expect(f.caches[1].LineFor(0x400).State()).
			To(Equal(coherence.CacheStateS))
		Expect(f.dir.LineFor(0x400).Sharers()).
			To(ConsistOf("L1[0]", "L1[1]"))
		Expect(f.mem.Stats().Writes).To(Equal(uint64(1)))
	})

	It("should answer stalled requests in arrival order", func() {
		var order []int
		for i := 0; i < 3; i++ {
			i := i
			f.caches[i].Load(0x500, func() { order = append(order, i) })
		}
		f.run()

		Expect(order).To(Equal([]int{0, 1, 2}))
		Expect(f.mem.Stats().Reads).To(Equal(uint64(1)))
		Expect(f.dir.Stats().Stalls).To(BeNumerically(">", 0))
	})

	Context("when the directory is full", func() {
		BeforeEach(func() {
			f = newFabric(4, cache.Config{
				Size:          64,
				Associativity: 1,
				BlockSize:     64,
				HitLatency:    2,
			})
		})

		It("should recall both sharers and write back before reuse", func() {
			f.access(0, false, 0x100)
			f.access(1, false, 0x100)
			f.run()

			recalling := 0
			f.dir.AcceptHook(hookFunc(func(ctx sim.HookCtx) {
				t, ok := ctx.Item.(coherence.Transition)
				if ok && t.Event == "REPLACEMENT" && t.To == "SI_A" {
					recalling = f.dir.Line(0, 0).PendingRecallAcks()
				}
			}))

			completed := f.access(2, false, 0x200)
			f.run()

			Expect(recalling).To(Equal(2))
			recalls := f.messages(coherence.MessageRecall)
			Expect(recalls).To(HaveLen(2))
			Expect([]string{recalls[0].Dst, recalls[1].Dst}).
				To(ConsistOf("L1[0]", "L1[1]"))
			Expect(f.messages(coherence.MessageRecallAck)).To(HaveLen(2))
			Expect(f.mem.Stats().Writes).To(Equal(uint64(1)))

			Expect(*completed).To(Equal(1))
			Expect(f.caches[0].LineFor(0x100)).To(BeNil())
			Expect(f.caches[1].LineFor(0x100)).To(BeNil())
			Expect(f.dir.LineFor(0x100)).To(BeNil())
			Expect(f.dir.LineFor(0x200).Sharers()).To(Equal([]string{"L1[2]"}))
			Expect(f.quiescent()).To(BeTrue())
		})

		It("should keep every cache consistent under contention", func() {
			completed := 0
			for round := 0; round < 8; round++ {
				for i := range f.caches {
					addr := uint64(0x100 * (1 + (round+i)%3))
					store := (round+i)%2 == 0
					if store {
						f.caches[i].Store(addr, func() { completed++ })
					} else {
						f.caches[i].Load(addr, func() { completed++ })
					}
				}
			}
			f.run()

			Expect(completed).To(Equal(32))
			Expect(f.quiescent()).To(BeTrue())
		})
	})
})

type hookFunc func(ctx sim.HookCtx)

func (h hookFunc) Func(ctx sim.HookCtx) { h(ctx) }

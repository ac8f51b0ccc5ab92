package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/msisim/timing/event"
	"github.com/sarchlab/msisim/timing/mem"
)

var _ = Describe("Controller", func() {
	var (
		q    *event.Queue
		ctrl *mem.Controller
	)

	BeforeEach(func() {
		q = event.NewQueue(1 * sim.GHz)
		ctrl = mem.NewController("Mem", q, 100)
	})

	It("should complete a read after the memory latency", func() {
		var done uint64
		ctrl.MemReadRequestReceive("Dir", 0x40, func() { done = q.CurrentCycle() })
		Expect(ctrl.Pending()).To(Equal(1))

		Expect(q.Run()).To(Succeed())
		Expect(done).To(Equal(uint64(100)))
		Expect(ctrl.Pending()).To(Equal(0))
		Expect(ctrl.Stats().Reads).To(Equal(uint64(1)))
	})

	It("should count writebacks", func() {
		completed := 0
		ctrl.MemWriteRequestReceive("Dir", 0x40, func() { completed++ })
		ctrl.MemWriteRequestReceive("Dir", 0x80, func() { completed++ })

		Expect(q.Run()).To(Succeed())
		Expect(completed).To(Equal(2))
		Expect(ctrl.Stats().Writes).To(Equal(uint64(2)))
	})
})

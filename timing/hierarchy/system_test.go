package hierarchy_test

import (
	"bytes"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/msisim/timing/coherence"
	"github.com/sarchlab/msisim/timing/core"
	"github.com/sarchlab/msisim/timing/hierarchy"
	"github.com/sarchlab/msisim/timing/latency"
)

type countingHook struct {
	transitions int
	flowsBegun  int
	flowsEnded  int
}

func (h *countingHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case coherence.HookPosTransition:
		h.transitions++
	case coherence.HookPosFlowBegin:
		h.flowsBegun++
	case coherence.HookPosFlowEnd:
		h.flowsEnded++
	}
}

func smallConfig() *latency.TimingConfig {
	cfg := latency.DefaultTimingConfig()
	cfg.NumCores = 2
	cfg.L1Size = 1024
	cfg.L1Associativity = 2
	cfg.DirectorySize = 2048
	cfg.DirectoryAssociativity = 2
	cfg.DirectoryHitLatency = 4
	cfg.MemoryLatency = 20
	return cfg
}

func randomTraces(
	seed int64,
	numCores, length, numLines int,
	storeRatio float64,
) [][]core.Access {
	r := rand.New(rand.NewSource(seed))
	traces := make([][]core.Access, numCores)
	for i := range traces {
		for j := 0; j < length; j++ {
			a := core.Access{
				Kind: core.Load,
				Addr: uint64(r.Intn(numLines)*64 + r.Intn(8)*8),
			}
			if r.Float64() < storeRatio {
				a.Kind = core.Store
			}
			traces[i] = append(traces[i], a)
		}
	}
	return traces
}

var _ = Describe("System", func() {
	It("should reject an invalid config", func() {
		cfg := smallConfig()
		cfg.NumCores = 0

		_, err := hierarchy.MakeBuilder().WithConfig(cfg).Build()

		Expect(err).To(HaveOccurred())
	})

	It("should name and route every controller", func() {
		s, err := hierarchy.MakeBuilder().WithConfig(smallConfig()).Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.ComponentNames()).To(Equal([]string{
			"Directory", "L1[0]", "L1[1]",
		}))
		Expect(s.Component("L1[1]")).To(BeIdenticalTo(s.Caches[1]))
		Expect(s.Component("L2")).To(BeNil())
		Expect(func() {
			s.Transfer("L2", 8, &coherence.Message{Kind: coherence.MessageGetS})
		}).To(Panic())
	})

	It("should reject traces that do not match the cores", func() {
		s, _ := hierarchy.MakeBuilder().WithConfig(smallConfig()).Build()

		Expect(s.SetTraces(make([][]core.Access, 3))).NotTo(Succeed())
	})

	It("should hit on private data after the first miss", func() {
		s, err := hierarchy.MakeBuilder().WithConfig(smallConfig()).Build()
		Expect(err).NotTo(HaveOccurred())

		traces := [][]core.Access{
			{{Kind: core.Store, Addr: 0x1000}, {Kind: core.Load, Addr: 0x1008}},
			{{Kind: core.Load, Addr: 0x2000}, {Kind: core.Load, Addr: 0x2010}},
		}
		Expect(s.SetTraces(traces)).To(Succeed())

		report, err := s.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(report.Accesses()).To(Equal(uint64(4)))
		Expect(report.Caches[0].Stats.Misses).To(Equal(uint64(1)))
		Expect(report.Caches[0].Stats.Hits).To(Equal(uint64(1)))
		Expect(report.Caches[1].Stats.Hits).To(Equal(uint64(1)))
		Expect(report.Memory.Reads).To(Equal(uint64(2)))
		Expect(report.Directory.Invalidations).To(BeZero())
		Expect(report.MessagesByKind).To(HaveKeyWithValue("GetS", uint64(1)))
		Expect(report.MessagesByKind).To(HaveKeyWithValue("GetM", uint64(1)))
		Expect(report.HitRate()).To(Equal(0.5))

		_, err = s.Run()
		Expect(err).To(HaveOccurred())
	})

	It("should invalidate readers when a core writes shared data", func() {
		s, _ := hierarchy.MakeBuilder().WithConfig(smallConfig()).Build()

		traces := [][]core.Access{
			{{Kind: core.Load, Addr: 0x1000}},
			{{Kind: core.Load, Addr: 0x3000}, {Kind: core.Load, Addr: 0x3040},
				{Kind: core.Load, Addr: 0x3080}, {Kind: core.Store, Addr: 0x1000}},
		}
		Expect(s.SetTraces(traces)).To(Succeed())

		report, err := s.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Caches[0].LineFor(0x1000)).To(BeNil())
		Expect(s.Caches[1].LineFor(0x1000).State()).
			To(Equal(coherence.CacheStateM))
		Expect(report.Directory.Invalidations).To(Equal(uint64(1)))
	})

	It("should publish transitions and flows to hooks", func() {
		hook := &countingHook{}
		s, _ := hierarchy.MakeBuilder().
			WithConfig(smallConfig()).
			WithHook(hook).
			Build()

		Expect(s.SetTraces(randomTraces(1, 2, 20, 8, 0.3))).To(Succeed())
		_, err := s.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(hook.transitions).To(BeNumerically(">", 0))
		Expect(hook.flowsEnded).To(Equal(hook.flowsBegun))
	})

	It("should write the report as text", func() {
		s, _ := hierarchy.MakeBuilder().WithConfig(smallConfig()).Build()
		Expect(s.SetTraces(randomTraces(2, 2, 10, 4, 0.5))).To(Succeed())

		report, err := s.Run()
		Expect(err).NotTo(HaveOccurred())

		buf := &bytes.Buffer{}
		report.WriteText(buf)

		Expect(buf.String()).To(ContainSubstring("Cycles:"))
		Expect(buf.String()).To(ContainSubstring("L1[1]:"))
	})

	DescribeTable("should stay coherent under random sharing",
		func(seed int64, numLines int, storeRatio float64) {
			cfg := smallConfig()
			cfg.NumCores = 4
			cfg.L1Size = 256
			cfg.DirectorySize = 512

			s, err := hierarchy.MakeBuilder().WithConfig(cfg).Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetTraces(
				randomTraces(seed, 4, 200, numLines, storeRatio))).To(Succeed())

			report, err := s.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Accesses()).To(Equal(uint64(800)))
		},
		Entry("few hot lines", int64(7), 4, 0.5),
		Entry("more lines than the directory", int64(11), 24, 0.3),
		Entry("read mostly", int64(13), 16, 0.05),
		Entry("write mostly", int64(17), 12, 0.9),
	)
})

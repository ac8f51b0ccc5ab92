package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/msisim/benchmarks"
	"github.com/sarchlab/msisim/timing/core"
	"github.com/sarchlab/msisim/timing/hierarchy"
	"github.com/sarchlab/msisim/timing/latency"
)

func smallSystem() *hierarchy.System {
	cfg := latency.DefaultTimingConfig()
	cfg.NumCores = 2
	cfg.L1Size = 1024
	cfg.L1Associativity = 2
	cfg.DirectorySize = 4096
	cfg.DirectoryAssociativity = 4
	cfg.MemoryLatency = 20

	s, err := hierarchy.MakeBuilder().WithConfig(cfg).Build()
	Expect(err).ToNot(HaveOccurred())

	Expect(s.SetTraces([][]core.Access{
		{{Kind: core.Load, Addr: 0x1000}},
		{{Kind: core.Load, Addr: 0x1000}, {Kind: core.Store, Addr: 0x2000}},
	})).To(Succeed())

	return s
}

// busySystem runs long enough for requests to overlap the simulation.
func busySystem() *hierarchy.System {
	cfg := latency.DefaultTimingConfig()
	cfg.NumCores = 4
	cfg.L1Size = 1024
	cfg.L1Associativity = 2
	cfg.DirectorySize = 4096
	cfg.DirectoryAssociativity = 4

	s, err := hierarchy.MakeBuilder().WithConfig(cfg).Build()
	Expect(err).ToNot(HaveOccurred())

	w := benchmarks.Migratory(16, 32)
	Expect(s.SetTraces(w.Generate(cfg.NumCores))).To(Succeed())

	return s
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		system *hierarchy.System
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		m.Router().ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		system = smallSystem()
		m = NewMonitor().WithProfileDuration(10 * time.Millisecond)
		m.RegisterSystem(system)
	})

	It("should fall back to a random port for reserved ports", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	Context("after the simulation finished", func() {
		var report *hierarchy.Report

		BeforeEach(func() {
			var err error
			report, err = system.Run()
			Expect(err).ToNot(HaveOccurred())
		})

		It("should report the current cycle", func() {
			rec := get("/api/now")

			var rsp struct{ Now uint64 }
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp.Now).To(Equal(report.Cycles))
		})

		It("should list components", func() {
			rec := get("/api/list_components")

			var names []string
			Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
			Expect(names).To(Equal([]string{"Directory", "L1[0]", "L1[1]"}))
		})

		It("should return 404 for an unknown component", func() {
			Expect(get("/api/component/L2").Code).To(Equal(http.StatusNotFound))
			Expect(get("/api/line/L2/0x40").Code).To(Equal(http.StatusNotFound))
		})

		It("should show a cache line", func() {
			rec := get("/api/line/L1[0]/0x1000")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var rsp lineRsp
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp.State).To(Equal("S"))
			Expect(rsp.Tag).To(Equal(uint64(0x1000)))
			Expect(rsp.Stalled).To(BeEmpty())
		})

		It("should show a directory line", func() {
			rec := get("/api/line/Directory/0x2000")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var rsp lineRsp
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp.State).To(Equal("M"))
			Expect(rsp.Owner).To(Equal("L1[1]"))
		})

		It("should reject a malformed tag", func() {
			Expect(get("/api/line/Directory/xyz").Code).
				To(Equal(http.StatusBadRequest))
		})

		It("should return 404 for a line that is not cached", func() {
			Expect(get("/api/line/L1[0]/0x2000").Code).
				To(Equal(http.StatusNotFound))
		})

		It("should report statistics", func() {
			rec := get("/api/stats")

			var rsp hierarchy.Report
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp.Accesses()).To(Equal(uint64(3)))
			Expect(rsp.Memory.Reads).To(Equal(uint64(2)))
		})

		It("should report resources", func() {
			rec := get("/api/resource")

			var rsp resourceRsp
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp.MemorySize).To(BeNumerically(">", 0))
		})

		It("should collect a profile", func() {
			rec := get("/api/profile")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.Len()).To(BeNumerically(">", 0))
		})
	})

	It("should serve state while the simulation runs", func() {
		system = busySystem()
		m.RegisterSystem(system)

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			_, err := system.Run()
			Expect(err).ToNot(HaveOccurred())
		}()

		paths := []string{
			"/api/now",
			"/api/stats",
			"/api/component/L1[0]",
			"/api/line/Directory/0x800000",
			"/api/line/L1[1]/0x800000",
		}

		polls := 0
		for running := true; running; polls++ {
			select {
			case <-done:
				running = false
			default:
			}

			for _, path := range paths {
				Expect(get(path).Code).To(
					Or(Equal(http.StatusOK), Equal(http.StatusNotFound)), path)
			}
		}

		Expect(polls).To(BeNumerically(">=", 1))

		var rsp hierarchy.Report
		Expect(json.Unmarshal(get("/api/stats").Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Accesses()).To(Equal(uint64(4 * 16 * 32 * 2)))
	})

	It("should pause and continue the simulation", func() {
		get("/api/pause")

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			_, err := system.Run()
			Expect(err).ToNot(HaveOccurred())
			close(done)
		}()

		Consistently(done, 50*time.Millisecond).ShouldNot(BeClosed())

		get("/api/continue")

		Eventually(done, time.Second).Should(BeClosed())
	})
})

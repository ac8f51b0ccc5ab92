package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/msisim/timing/latency"
)

var _ = Describe("TimingConfig", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			config := latency.DefaultTimingConfig()
			Expect(config.Validate()).To(Succeed())
		})

		It("should derive the number of sets", func() {
			config := latency.DefaultTimingConfig()
			Expect(config.L1NumSets()).To(Equal(64))
			Expect(config.DirectoryNumSets()).To(Equal(1024))
		})
	})

	Describe("Validation", func() {
		var config *latency.TimingConfig

		BeforeEach(func() {
			config = latency.DefaultTimingConfig()
		})

		It("should reject zero cores", func() {
			config.NumCores = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("num_cores")))
		})

		It("should reject a line size that is not a power of two", func() {
			config.LineSize = 48
			Expect(config.Validate()).To(MatchError(ContainSubstring("line_size")))
		})

		It("should reject an L1 size that does not fill whole sets", func() {
			config.L1Size = 1000
			Expect(config.Validate()).To(MatchError(ContainSubstring("l1_size")))
		})

		It("should reject a directory size that does not fill whole sets", func() {
			config.DirectorySize = 64 * 15
			Expect(config.Validate()).
				To(MatchError(ContainSubstring("directory_size")))
		})

		It("should reject zero memory latency", func() {
			config.MemoryLatency = 0
			Expect(config.Validate()).
				To(MatchError(ContainSubstring("memory_latency")))
		})

		It("should reject zero link bandwidth", func() {
			config.LinkBytesPerCycle = 0
			Expect(config.Validate()).
				To(MatchError(ContainSubstring("link_bytes_per_cycle")))
		})

		It("should accept a zero link latency", func() {
			config.LinkLatency = 0
			Expect(config.Validate()).To(Succeed())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()

			clone.NumCores = 16

			Expect(original.NumCores).To(Equal(4))
			Expect(clone.NumCores).To(Equal(16))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.NumCores = 8
			original.MemoryLatency = 200

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for missing fields", func() {
			path := filepath.Join(tempDir, "partial.json")
			err := os.WriteFile(path, []byte(`{"num_cores": 2}`), 0644)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.NumCores).To(Equal(2))
			Expect(loaded.LineSize).To(Equal(64))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/msisim/timing/hierarchy"
	"github.com/sarchlab/msisim/timing/latency"
)

var _ = Describe("msisim command", func() {
	var (
		out *bytes.Buffer
		dir string
	)

	execute := func(args ...string) error {
		cmd := newRootCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		out = &bytes.Buffer{}
		dir = GinkgoT().TempDir()
	})

	AfterEach(func() {
		Expect(os.Unsetenv(latency.EnvPrefix + "NUM_CORES")).To(Succeed())
	})

	Describe("config", func() {
		It("should print the default configuration", func() {
			Expect(execute("config")).To(Succeed())

			var config latency.TimingConfig
			Expect(json.Unmarshal(out.Bytes(), &config)).To(Succeed())
			Expect(config).To(Equal(*latency.DefaultTimingConfig()))
		})

		It("should apply the cores flag", func() {
			Expect(execute("config", "--cores", "2")).To(Succeed())

			var config latency.TimingConfig
			Expect(json.Unmarshal(out.Bytes(), &config)).To(Succeed())
			Expect(config.NumCores).To(Equal(2))
		})

		It("should apply env files", func() {
			envFile := filepath.Join(dir, "test.env")
			Expect(os.WriteFile(envFile,
				[]byte("MSISIM_NUM_CORES=3\n"), 0644)).To(Succeed())

			Expect(execute("config", "--env-file", envFile)).To(Succeed())

			var config latency.TimingConfig
			Expect(json.Unmarshal(out.Bytes(), &config)).To(Succeed())
			Expect(config.NumCores).To(Equal(3))
		})

		It("should write a configuration that run can load", func() {
			path := filepath.Join(dir, "timing.json")
			Expect(execute("config", "--cores", "2", "--write", path)).To(Succeed())

			config, err := latency.LoadConfig(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(config.NumCores).To(Equal(2))

			out.Reset()
			Expect(execute("run", "--config", path, "--workload", "private")).
				To(Succeed())
			Expect(out.String()).To(ContainSubstring("Workload: private (2 cores)"))
		})

		It("should reject an invalid configuration", func() {
			path := filepath.Join(dir, "bad.json")
			Expect(os.WriteFile(path, []byte(`{"line_size": 48}`), 0644)).
				To(Succeed())

			Expect(execute("config", "--config", path)).
				To(MatchError(ContainSubstring("line_size")))
		})
	})

	Describe("run", func() {
		It("should print a text report", func() {
			Expect(execute("run", "--cores", "2", "--workload", "migratory")).
				To(Succeed())

			Expect(out.String()).To(ContainSubstring("MSI Coherence Simulation Report"))
			Expect(out.String()).To(ContainSubstring("L1[1]"))
		})

		It("should print a JSON report", func() {
			Expect(execute("run", "--cores", "2", "--workload", "false_sharing",
				"--json")).To(Succeed())

			var report hierarchy.Report
			Expect(json.Unmarshal(out.Bytes(), &report)).To(Succeed())
			Expect(report.Cores).To(HaveLen(2))
			Expect(report.Memory.Reads).To(Equal(uint64(1)))
		})

		It("should reject an unknown workload", func() {
			Expect(execute("run", "--workload", "stream")).
				To(MatchError(ContainSubstring("unknown workload")))
		})

		It("should record a trace database", func() {
			prefix := filepath.Join(dir, "trace")
			Expect(execute("run", "--cores", "2", "--workload", "read_shared",
				"--trace-db", prefix)).To(Succeed())

			matches, err := filepath.Glob(prefix + "_*.sqlite3")
			Expect(err).ToNot(HaveOccurred())
			Expect(matches).To(HaveLen(1))
		})

		It("should dump and replay a trace file", func() {
			path := filepath.Join(dir, "accesses.txt")
			Expect(execute("run", "--cores", "2", "--workload", "producer_consumer",
				"--dump-trace", path, "--json")).To(Succeed())

			var generated hierarchy.Report
			Expect(json.Unmarshal(out.Bytes(), &generated)).To(Succeed())

			out.Reset()
			Expect(execute("run", "--cores", "2", "--trace-file", path,
				"--json")).To(Succeed())

			var replayed hierarchy.Report
			Expect(json.Unmarshal(out.Bytes(), &replayed)).To(Succeed())
			Expect(replayed.Accesses()).To(Equal(generated.Accesses()))
			Expect(replayed.Cycles).To(Equal(generated.Cycles))
		})

		It("should reject a trace file with too many cores", func() {
			path := filepath.Join(dir, "wide.txt")
			Expect(os.WriteFile(path, []byte("3 L 0x40\n"), 0644)).To(Succeed())

			Expect(execute("run", "--cores", "2", "--trace-file", path)).
				To(MatchError(ContainSubstring("trace uses 4 cores")))
		})

		It("should write a CPU profile", func() {
			path := filepath.Join(dir, "cpu.prof")
			Expect(execute("run", "--cores", "2", "--workload", "private",
				"--cpuprofile", path)).To(Succeed())

			_, err := os.Stat(path)
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("bench", func() {
		It("should print CSV results", func() {
			Expect(execute("bench", "--cores", "2", "--quick", "--csv")).
				To(Succeed())

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			Expect(lines).To(HaveLen(4))
			Expect(lines[0]).To(HavePrefix("name,cycles"))
		})

		It("should print JSON results", func() {
			Expect(execute("bench", "--cores", "2", "--quick", "--json")).
				To(Succeed())

			var report struct {
				Results []struct{ Name string }
			}
			Expect(json.Unmarshal(out.Bytes(), &report)).To(Succeed())
			Expect(report.Results).To(HaveLen(3))
		})
	})
})

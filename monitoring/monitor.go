// Package monitoring turns a running simulation into an HTTP server that can
// inspect and control it.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/msisim/timing/coherence"
	"github.com/sarchlab/msisim/timing/hierarchy"
)

// Monitor serves the state of a simulated hierarchy.
type Monitor struct {
	system      *hierarchy.System
	portNumber  int
	openBrowser bool

	profileDuration time.Duration
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{profileDuration: time.Second}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser opens the monitoring page in a browser once the server runs.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// RegisterSystem sets the hierarchy being monitored.
func (m *Monitor) RegisterSystem(s *hierarchy.System) {
	m.system = s
}

// Router returns the handler of every monitoring endpoint.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/line/{name}/{tag}", m.lineDetails)
	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns its address.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := http.Serve(listener, m.Router())
		dieOnErr(err)
	}()

	if m.openBrowser {
		err = browser.OpenURL(url + "/api/list_components")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open browser: %v\n", err)
		}
	}

	return url
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.system.Queue.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.system.Queue.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	var now uint64
	m.system.Queue.WithLock(func() {
		now = m.system.Queue.CurrentCycle()
	})

	fmt.Fprintf(w, "{\"now\":%d}", now)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.system.ComponentNames())
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	buf := bytes.NewBuffer(nil)
	m.system.Queue.WithLock(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(component)
		serializer.SetMaxDepth(1)
		err := serializer.Serialize(buf)
		dieOnErr(err)
	})

	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write(buf.Bytes())
	dieOnErr(err)
}

type lineRsp struct {
	Controller  string   `json:"controller"`
	Set         int      `json:"set"`
	Way         int      `json:"way"`
	Tag         uint64   `json:"tag"`
	State       string   `json:"state"`
	Stalled     []string `json:"stalled"`
	PendingAcks int      `json:"pending_acks"`
	Sharers     []string `json:"sharers,omitempty"`
	Owner       string   `json:"owner,omitempty"`
}

func (m *Monitor) lineDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	tag, err := strconv.ParseUint(mux.Vars(r)["tag"], 0, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	var rsp *lineRsp
	m.system.Queue.WithLock(func() {
		switch c := component.(type) {
		case *coherence.CacheController:
			rsp = cacheLineRsp(name, c.LineFor(tag))
		case *coherence.DirectoryController:
			rsp = directoryLineRsp(name, c.LineFor(tag))
		}
	})

	if rsp == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Line not found"))
		dieOnErr(err)
		return
	}

	writeJSON(w, rsp)
}

func cacheLineRsp(name string, l *coherence.CacheLine) *lineRsp {
	if l == nil {
		return nil
	}

	rsp := &lineRsp{
		Controller:  name,
		Set:         l.Set(),
		Way:         l.Way(),
		Tag:         l.Tag(),
		State:       l.State().String(),
		Stalled:     []string{},
		PendingAcks: l.PendingInvAcks(),
	}
	for _, e := range l.StalledEvents() {
		rsp.Stalled = append(rsp.Stalled, e.Kind.String())
	}

	return rsp
}

func directoryLineRsp(name string, l *coherence.DirectoryLine) *lineRsp {
	if l == nil {
		return nil
	}

	rsp := &lineRsp{
		Controller:  name,
		Set:         l.Set(),
		Way:         l.Way(),
		Tag:         l.Tag(),
		State:       l.State().String(),
		Stalled:     []string{},
		PendingAcks: l.PendingRecallAcks(),
		Sharers:     l.Sharers(),
	}
	if owner, ok := l.Owner(); ok {
		rsp.Owner = owner
	}
	for _, e := range l.StalledEvents() {
		rsp.Stalled = append(rsp.Stalled, e.Kind.String())
	}

	return rsp
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	var report *hierarchy.Report
	m.system.Queue.WithLock(func() {
		report = m.system.Report()
	})

	writeJSON(w, report)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) any {
	component := m.system.Component(name)

	if component == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Component not found"))
		dieOnErr(err)
	}

	return component
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}

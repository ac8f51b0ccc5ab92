package hierarchy

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/msisim/timing/coherence"
	"github.com/sarchlab/msisim/timing/core"
	"github.com/sarchlab/msisim/timing/event"
	"github.com/sarchlab/msisim/timing/latency"
	"github.com/sarchlab/msisim/timing/mem"
	"github.com/sarchlab/msisim/timing/network"
)

type receiver interface {
	Name() string
	Receive(msg *coherence.Message)
}

// System is a built memory hierarchy. It routes protocol messages between
// controllers over the network model.
type System struct {
	Config    *latency.TimingConfig
	Queue     *event.Queue
	Network   *network.Network
	Memory    *mem.Controller
	Directory *coherence.DirectoryController
	Caches    []*coherence.CacheController
	Cores     []*core.Core

	routes  map[string]receiver
	started bool
}

func (s *System) register(r receiver) {
	if _, found := s.routes[r.Name()]; found {
		log.Panicf("component %s registered twice", r.Name())
	}

	s.routes[r.Name()] = r
}

// Transfer sends msg to dst over the network.
func (s *System) Transfer(dst string, sizeBytes int, msg *coherence.Message) {
	r, found := s.routes[dst]
	if !found {
		log.Panicf("no route to %s for %s", dst, msg)
	}

	s.Network.Transfer(msg.Src, dst, sizeBytes, func() {
		r.Receive(msg)
	})
}

// AcceptHook attaches a hook to the directory and every cache.
func (s *System) AcceptHook(hook sim.Hook) {
	s.Directory.AcceptHook(hook)
	for _, c := range s.Caches {
		c.AcceptHook(hook)
	}
}

// SetTraces gives every core its access trace.
func (s *System) SetTraces(traces [][]core.Access) error {
	if len(traces) != len(s.Cores) {
		return fmt.Errorf("got %d traces for %d cores", len(traces), len(s.Cores))
	}

	for i, t := range traces {
		s.Cores[i].SetTrace(t)
	}

	return nil
}

// ComponentNames returns the names of all controllers in sorted order.
func (s *System) ComponentNames() []string {
	names := make([]string, 0, len(s.routes))
	for name := range s.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Component returns the controller with the given name, or nil.
func (s *System) Component(name string) any {
	r, found := s.routes[name]
	if !found {
		return nil
	}
	return r
}

// Run starts every core, simulates until no event is left and checks that
// the hierarchy drained into a coherent state.
func (s *System) Run() (*Report, error) {
	if s.started {
		return nil, errors.New("system can only run once")
	}
	s.started = true

	s.Queue.WithLock(func() {
		for _, c := range s.Cores {
			c.Start(nil)
		}
	})

	if err := s.Queue.Run(); err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}

	for _, c := range s.Cores {
		if !c.Halted() {
			return nil, fmt.Errorf("%s stopped with %d accesses in flight",
				c.Name(), c.Outstanding())
		}
	}

	if err := s.CheckQuiescent(); err != nil {
		return nil, err
	}

	if err := s.CheckCoherence(); err != nil {
		return nil, err
	}

	return s.Report(), nil
}

// CheckQuiescent returns an error if any controller still has work.
func (s *System) CheckQuiescent() error {
	if !s.Directory.Quiescent() {
		return fmt.Errorf("%s is not quiescent", s.Directory.Name())
	}

	for _, c := range s.Caches {
		if !c.Quiescent() {
			return fmt.Errorf("%s is not quiescent", c.Name())
		}
	}

	return nil
}

// CheckCoherence compares the directory entries with the cache contents.
// It must be called when the hierarchy is quiescent.
func (s *System) CheckCoherence() error {
	if err := s.Directory.CheckInvariants(); err != nil {
		return err
	}

	holders := make(map[uint64]map[string]coherence.CacheState)
	for _, c := range s.Caches {
		for _, l := range c.Lines() {
			if l.State() == coherence.CacheStateI {
				continue
			}

			if holders[l.Tag()] == nil {
				holders[l.Tag()] = make(map[string]coherence.CacheState)
			}
			holders[l.Tag()][c.Name()] = l.State()
		}
	}

	for tag, caches := range holders {
		if err := s.checkLine(tag, caches); err != nil {
			return err
		}
	}

	return nil
}

func (s *System) checkLine(
	tag uint64,
	caches map[string]coherence.CacheState,
) error {
	dl := s.Directory.LineFor(tag)
	if dl == nil {
		return fmt.Errorf("line 0x%x is cached but not tracked by %s",
			tag, s.Directory.Name())
	}

	switch dl.State() {
	case coherence.DirectoryStateS:
		sharers := dl.Sharers()
		if len(sharers) != len(caches) {
			return fmt.Errorf("line 0x%x has sharers %v but is held by %v",
				tag, sharers, caches)
		}

		for _, name := range sharers {
			if caches[name] != coherence.CacheStateS {
				return fmt.Errorf("sharer %s of line 0x%x is in %s",
					name, tag, caches[name])
			}
		}
	case coherence.DirectoryStateM:
		owner, _ := dl.Owner()
		if len(caches) != 1 || caches[owner] != coherence.CacheStateM {
			return fmt.Errorf("line 0x%x is owned by %s but is held by %v",
				tag, owner, caches)
		}
	default:
		return fmt.Errorf("line 0x%x is cached while %s is in %s",
			tag, s.Directory.Name(), dl.State())
	}

	return nil
}

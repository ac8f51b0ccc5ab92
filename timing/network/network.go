// Package network models the on-chip interconnect as a set of point-to-point
// links with a fixed hop latency and a per-link bandwidth.
package network

import (
	"log"
)

// Scheduler runs actions on future cycles.
type Scheduler interface {
	CurrentCycle() uint64
	Schedule(delay uint64, action func())
}

// Config holds the link parameters.
type Config struct {
	// LinkLatency is the fixed latency of a hop in cycles.
	LinkLatency uint64
	// BytesPerCycle is the link bandwidth.
	BytesPerCycle int
}

// LinkStats holds the traffic of one directed link.
type LinkStats struct {
	Src      string
	Dst      string
	Messages uint64
	Bytes    uint64
}

type link struct {
	stats LinkStats
	// lastDelivery is the cycle of the latest delivery on the link.
	lastDelivery uint64
}

// Network delivers messages between named endpoints. Messages on the same
// directed link are delivered in the order they were sent.
type Network struct {
	scheduler Scheduler
	config    Config
	links     map[[2]string]*link
	linkOrder [][2]string

	// Messages and Bytes count the total traffic.
	Messages uint64
	Bytes    uint64
}

// NewNetwork creates a Network.
func NewNetwork(scheduler Scheduler, config Config) *Network {
	if config.BytesPerCycle <= 0 {
		log.Panic("network bandwidth must be positive")
	}

	return &Network{
		scheduler: scheduler,
		config:    config,
		links:     make(map[[2]string]*link),
	}
}

// Latency returns the delivery latency of a message of the given size.
func (n *Network) Latency(sizeBytes int) uint64 {
	bw := n.config.BytesPerCycle
	return n.config.LinkLatency + uint64((sizeBytes+bw-1)/bw)
}

// Transfer sends sizeBytes from src to dst and calls onDelivered on arrival.
func (n *Network) Transfer(
	src, dst string,
	sizeBytes int,
	onDelivered func(),
) {
	if sizeBytes <= 0 {
		log.Panicf("cannot transfer %d bytes from %s to %s",
			sizeBytes, src, dst)
	}

	l := n.getLink(src, dst)
	now := n.scheduler.CurrentCycle()

	arrival := now + n.Latency(sizeBytes)
	if arrival < l.lastDelivery {
		arrival = l.lastDelivery
	}
	l.lastDelivery = arrival

	l.stats.Messages++
	l.stats.Bytes += uint64(sizeBytes)
	n.Messages++
	n.Bytes += uint64(sizeBytes)

	n.scheduler.Schedule(arrival-now, onDelivered)
}

func (n *Network) getLink(src, dst string) *link {
	key := [2]string{src, dst}

	l, ok := n.links[key]
	if !ok {
		l = &link{stats: LinkStats{Src: src, Dst: dst}}
		n.links[key] = l
		n.linkOrder = append(n.linkOrder, key)
	}

	return l
}

// Links returns the statistics of every link that carried traffic, in the
// order the links were first used.
func (n *Network) Links() []LinkStats {
	stats := make([]LinkStats, 0, len(n.linkOrder))
	for _, key := range n.linkOrder {
		stats = append(stats, n.links[key].stats)
	}

	return stats
}

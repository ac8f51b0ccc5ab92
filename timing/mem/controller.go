// Package mem provides a fixed-latency memory controller that backs the
// directory.
package mem

// Scheduler runs actions on future cycles.
type Scheduler interface {
	Schedule(delay uint64, action func())
}

// Stats holds memory controller statistics.
type Stats struct {
	Reads  uint64
	Writes uint64
}

// Controller serves line reads and writebacks after a fixed latency.
type Controller struct {
	name      string
	scheduler Scheduler
	latency   uint64
	stats     Stats

	// pendingReads and pendingWrites count requests that have not completed.
	pendingReads  int
	pendingWrites int
}

// NewController creates a memory controller.
func NewController(name string, scheduler Scheduler, latency uint64) *Controller {
	return &Controller{
		name:      name,
		scheduler: scheduler,
		latency:   latency,
	}
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// Latency returns the access latency in cycles.
func (c *Controller) Latency() uint64 {
	return c.latency
}

// Stats returns memory controller statistics.
func (c *Controller) Stats() Stats {
	return c.stats
}

// Pending returns the number of requests in flight.
func (c *Controller) Pending() int {
	return c.pendingReads + c.pendingWrites
}

// MemReadRequestReceive reads the line at tag on behalf of requester.
func (c *Controller) MemReadRequestReceive(
	requester string,
	tag uint64,
	onCompleted func(),
) {
	c.stats.Reads++
	c.pendingReads++

	c.scheduler.Schedule(c.latency, func() {
		c.pendingReads--
		onCompleted()
	})
}

// MemWriteRequestReceive writes the line at tag back on behalf of requester.
func (c *Controller) MemWriteRequestReceive(
	requester string,
	tag uint64,
	onCompleted func(),
) {
	c.stats.Writes++
	c.pendingWrites++

	c.scheduler.Schedule(c.latency, func() {
		c.pendingWrites--
		onCompleted()
	})
}

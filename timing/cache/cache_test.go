package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/msisim/timing/cache"
)

var _ = Describe("TagArray", func() {
	var c *cache.TagArray

	BeforeEach(func() {
		// 4 sets, 2 ways, 64B lines
		c = cache.New(cache.Config{
			Size:          512,
			Associativity: 2,
			BlockSize:     64,
			HitLatency:    1,
		})
	})

	It("should derive geometry from the config", func() {
		Expect(c.NumSets()).To(Equal(4))
		Expect(c.Associativity()).To(Equal(2))
		Expect(c.Tag(0x107)).To(Equal(uint64(0x100)))
		Expect(c.Set(0x100)).To(Equal(0))
		Expect(c.Set(0x140)).To(Equal(1))
	})

	It("should miss without replacement on a cold set", func() {
		access := c.NewAccess(0x100)

		Expect(access.Hit).To(BeFalse())
		Expect(access.Replacement).To(BeFalse())
		Expect(access.Set).To(Equal(0))
		Expect(access.Tag).To(Equal(uint64(0x100)))
	})

	It("should hit after install", func() {
		access := c.NewAccess(0x100)
		c.Install(access.Set, access.Way, access.Tag)

		again := c.NewAccess(0x120)
		Expect(again.Hit).To(BeTrue())
		Expect(again.Way).To(Equal(access.Way))
		Expect(c.FindWay(0x100)).To(Equal(access.Way))

		stats := c.Stats()
		Expect(stats.Accesses).To(Equal(uint64(2)))
		Expect(stats.Hits).To(Equal(uint64(1)))
		Expect(stats.Misses).To(Equal(uint64(1)))
	})

	It("should pick the least recently used line as victim", func() {
		a := c.NewAccess(0x000)
		c.Install(a.Set, a.Way, a.Tag)
		b := c.NewAccess(0x100)
		c.Install(b.Set, b.Way, b.Tag)
		c.Touch(a.Set, a.Way)

		access := c.NewAccess(0x200)
		Expect(access.Replacement).To(BeTrue())
		Expect(access.Way).To(Equal(b.Way))
		Expect(access.VictimTag).To(Equal(uint64(0x100)))
	})

	It("should avoid locked lines when choosing a victim", func() {
		a := c.NewAccess(0x000)
		c.Install(a.Set, a.Way, a.Tag)
		b := c.NewAccess(0x100)
		c.Install(b.Set, b.Way, b.Tag)
		c.SetLocked(a.Set, a.Way, true)

		access := c.NewAccess(0x200)
		Expect(access.Way).To(Equal(b.Way))
		Expect(c.Line(a.Set, a.Way).Locked).To(BeTrue())
	})

	It("should forget invalidated lines", func() {
		a := c.NewAccess(0x100)
		c.Install(a.Set, a.Way, a.Tag)
		c.Invalidate(a.Set, a.Way)

		Expect(c.FindWay(0x100)).To(Equal(-1))
		Expect(c.Line(a.Set, a.Way).Valid).To(BeFalse())
	})

	It("should report occupancy", func() {
		a := c.NewAccess(0x100)
		c.Install(a.Set, a.Way, a.Tag)

		Expect(c.OccupancyRatio()).To(BeNumerically("~", 1.0/8, 1e-9))

		c.Reset()
		Expect(c.OccupancyRatio()).To(BeZero())
		Expect(c.Stats()).To(Equal(cache.Statistics{}))
	})

	It("should panic on an empty geometry", func() {
		Expect(func() {
			cache.New(cache.Config{Size: 0, Associativity: 2, BlockSize: 64})
		}).To(Panic())
	})
})

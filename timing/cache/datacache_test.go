package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/VIKASNARASIMHA1/Spectre/emu"
	"github.com/VIKASNARASIMHA1/Spectre/timing/cache"
)

var _ = Describe("DataCache", func() {
	var (
		c       *cache.DataCache
		memory  *emu.Memory
		backing *cache.MemoryBacking
	)

	BeforeEach(func() {
		memory = emu.NewMemory(64 * 1024)
		backing = cache.NewMemoryBacking(memory)

		var err error
		// Small cache for testing: 4KB, 4-way, 64B lines.
		c, err = cache.NewDataCache(cache.Config{
			Topology:      cache.SetAssociative,
			Size:          4 * 1024,
			LineSize:      64,
			Associativity: 4,
			HitLatency:    1,
			MissPenalty:   10,
		}, backing)
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("Read operations", func() {
		It("should miss on a cold cache and fetch from memory", func() {
			Expect(memory.Write64(0x1000, 0xDEADBEEF)).To(Succeed())

			result := c.Read(0x1000, 8)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))
			Expect(result.Data).To(Equal(uint64(0xDEADBEEF)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
		})

		It("should hit on cached data", func() {
			Expect(memory.Write64(0x1000, 0xCAFEBABE)).To(Succeed())

			c.Read(0x1000, 8)
			result := c.Read(0x1000, 8)

			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(result.Data).To(Equal(uint64(0xCAFEBABE)))
		})

		It("should hit elsewhere in the same line", func() {
			Expect(memory.Write64(0x1000, 0x11111111)).To(Succeed())
			Expect(memory.Write64(0x1008, 0x22222222)).To(Succeed())

			c.Read(0x1000, 8)
			result := c.Read(0x1008, 8)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint64(0x22222222)))
		})
	})

	Describe("Write operations", func() {
		It("should write-allocate on miss", func() {
			result := c.Write(0x1000, 8, 0x12345678)
			Expect(result.Hit).To(BeFalse())

			readBack := c.Read(0x1000, 8)
			Expect(readBack.Hit).To(BeTrue())
			Expect(readBack.Data).To(Equal(uint64(0x12345678)))
		})

		It("should defer memory updates until writeback", func() {
			c.Write(0x1000, 8, 0x12345678)

			inMemory, err := memory.Read64(0x1000)
			Expect(err).ToNot(HaveOccurred())
			Expect(inMemory).To(BeZero())
		})
	})

	Describe("Eviction and writeback", func() {
		It("should write back a dirty block evicted by set overflow", func() {
			// Fill set 0 (addresses 0x400 apart alias in a 16-set cache).
			c.Write(0x0000, 8, 0x11111111)
			c.Write(0x0400, 8, 0x22222222)
			c.Write(0x0800, 8, 0x33333333)
			c.Write(0x0C00, 8, 0x44444444)

			// Touch three lines so 0x0000 is LRU, then overflow.
			c.Read(0x0400, 8)
			c.Read(0x0800, 8)
			c.Read(0x0C00, 8)
			c.Write(0x1000, 8, 0x55555555)

			stats := c.Stats()
			Expect(stats.Evictions).To(Equal(uint64(1)))
			Expect(stats.Writebacks).To(Equal(uint64(1)))

			inMemory, err := memory.Read64(0x0000)
			Expect(err).ToNot(HaveOccurred())
			Expect(inMemory).To(Equal(uint64(0x11111111)))
		})
	})

	Describe("Flush", func() {
		It("should write back all dirty blocks", func() {
			c.Write(0x0000, 8, 0x11111111)
			c.Write(0x1000, 8, 0x22222222)

			c.Flush()

			v0, _ := memory.Read64(0x0000)
			v1, _ := memory.Read64(0x1000)
			Expect(v0).To(Equal(uint64(0x11111111)))
			Expect(v1).To(Equal(uint64(0x22222222)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))

			// Everything is invalid after a flush.
			Expect(c.Read(0x0000, 8).Hit).To(BeFalse())
		})
	})

	Describe("Invalidate", func() {
		It("should drop a line without writeback", func() {
			c.Write(0x2000, 8, 0x77777777)
			c.Invalidate(0x2000)

			Expect(c.Read(0x2000, 8).Hit).To(BeFalse())
			inMemory, _ := memory.Read64(0x2000)
			Expect(inMemory).To(BeZero())
		})
	})
})

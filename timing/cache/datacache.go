package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// DataAccessResult contains the result of a DataCache access.
type DataAccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the data read (for load operations).
	Data uint64
	// Evicted is true if a resident block was evicted.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint64
}

// DataStatistics holds DataCache performance counters.
type DataStatistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches data from the backing store.
	Read(addr uint64, size int) []byte
	// Write stores data to the backing store.
	Write(addr uint64, data []byte)
}

// DataCache is a data-carrying write-allocate, write-back cache. Unlike the
// statistical Cache it holds the bytes themselves, so stores become visible
// to memory only on writeback or Flush. Tag and LRU state are managed by
// the Akita cache directory.
type DataCache struct {
	config Config

	// Akita cache directory for tag/state management.
	directory *akitacache.DirectoryImpl

	// Data storage, indexed by setID*associativity + wayID.
	dataStore [][]byte

	stats   DataStatistics
	backing BackingStore
}

// NewDataCache creates a data cache with the given configuration and
// backing store.
func NewDataCache(config Config, backing BackingStore) (*DataCache, error) {
	if config.Size <= 0 || config.LineSize <= 0 || config.Associativity <= 0 ||
		config.Size%(config.LineSize*config.Associativity) != 0 {
		return nil, fmt.Errorf(
			"invalid data cache geometry: size=%d line=%d ways=%d",
			config.Size, config.LineSize, config.Associativity)
	}

	numSets := config.NumSets()
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.LineSize)
	}

	return &DataCache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.LineSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}, nil
}

// Config returns the cache configuration.
func (c *DataCache) Config() Config {
	return c.config
}

// Stats returns the cache performance counters.
func (c *DataCache) Stats() DataStatistics {
	return c.stats
}

// blockIndex computes the index into dataStore for a block.
func (c *DataCache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// blockAlign rounds addr down to its cache line boundary.
func (c *DataCache) blockAlign(addr uint64) uint64 {
	return (addr / uint64(c.config.LineSize)) * uint64(c.config.LineSize)
}

// Read performs a cache read of size bytes at addr.
func (c *DataCache) Read(addr uint64, size int) DataAccessResult {
	c.stats.Reads++

	block := c.directory.Lookup(0, c.blockAlign(addr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr % uint64(c.config.LineSize)
		data := extractData(c.dataStore[c.blockIndex(block)], offset, size)

		return DataAccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Data:    data,
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, false, 0)
}

// Write performs a cache write of size bytes at addr.
// Write-allocate policy: on miss, the block is fetched first, then written.
func (c *DataCache) Write(addr uint64, size int, data uint64) DataAccessResult {
	c.stats.Writes++

	block := c.directory.Lookup(0, c.blockAlign(addr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr % uint64(c.config.LineSize)
		storeData(c.dataStore[c.blockIndex(block)], offset, size, data)
		block.IsDirty = true

		return DataAccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, true, data)
}

// handleMiss fetches the missing block from the backing store, evicting a
// victim (with writeback when dirty) as needed.
func (c *DataCache) handleMiss(
	addr uint64,
	size int,
	isWrite bool,
	writeData uint64,
) DataAccessResult {
	result := DataAccessResult{
		Hit:     false,
		Latency: c.config.MissPenalty,
	}

	blockAddr := c.blockAlign(addr)
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag // Tag stores the block-aligned address.

		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.Write(victim.Tag, victimData)
		}
	}

	if c.backing != nil {
		copy(victimData, c.backing.Read(blockAddr, c.config.LineSize))
	} else {
		for i := range victimData {
			victimData[i] = 0
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false

	offset := addr % uint64(c.config.LineSize)
	if isWrite {
		storeData(victimData, offset, size, writeData)
		victim.IsDirty = true
	} else {
		result.Data = extractData(victimData, offset, size)
	}

	c.directory.Visit(victim)

	return result
}

// Invalidate marks the cache line holding addr as invalid without writeback.
func (c *DataCache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAlign(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates them.
func (c *DataCache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				c.backing.Write(block.Tag, c.dataStore[c.blockIndex(block)])
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// extractData extracts a little-endian value of the given size.
func extractData(data []byte, offset uint64, size int) uint64 {
	if data == nil || int(offset)+size > len(data) {
		return 0
	}

	var result uint64
	for i := 0; i < size; i++ {
		result |= uint64(data[int(offset)+i]) << (i * 8)
	}
	return result
}

// storeData stores a little-endian value of the given size.
func storeData(data []byte, offset uint64, size int, value uint64) {
	if data == nil || int(offset)+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}

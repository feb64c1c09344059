// Package cache models the processor's cache hierarchy. The statistical
// Cache tracks hit/miss timing for a configurable topology; DataCache is a
// data-carrying write-back cache built on Akita cache components.
package cache

import "fmt"

// Topology selects the cache placement policy.
type Topology int

// Cache topologies.
const (
	// DirectMapped places each line in exactly one way.
	DirectMapped Topology = iota
	// SetAssociative places each line in one of several ways per set,
	// replaced in LRU order.
	SetAssociative
	// FullyAssociative places any line in any way of a single set.
	FullyAssociative
)

// String returns the topology name.
func (t Topology) String() string {
	switch t {
	case DirectMapped:
		return "direct-mapped"
	case SetAssociative:
		return "set-associative"
	case FullyAssociative:
		return "fully-associative"
	default:
		return "unknown"
	}
}

// Config holds cache configuration parameters.
type Config struct {
	// Topology is the placement policy.
	Topology Topology
	// Size in bytes.
	Size int
	// LineSize in bytes.
	LineSize int
	// Associativity (number of ways per set).
	Associativity int
	// HitLatency in cycles.
	HitLatency uint64
	// MissPenalty in cycles (includes next-level access time).
	MissPenalty uint64
}

// NumSets returns the derived number of sets.
func (c Config) NumSets() int {
	return c.Size / c.LineSize / c.Associativity
}

// DefaultL1Config returns the default L1 configuration:
// 32KB, 8-way set-associative, 64B lines.
func DefaultL1Config() Config {
	return Config{
		Topology:      SetAssociative,
		Size:          32 * 1024,
		LineSize:      64,
		Associativity: 8,
		HitLatency:    1,
		MissPenalty:   10,
	}
}

// DefaultL2Config returns the default L2 configuration:
// 256KB, 16-way set-associative, 64B lines.
func DefaultL2Config() Config {
	return Config{
		Topology:      SetAssociative,
		Size:          256 * 1024,
		LineSize:      64,
		Associativity: 16,
		HitLatency:    1,
		MissPenalty:   10,
	}
}

// Statistics holds cache performance counters. All counters are monotonic
// and never reset except by re-creating the cache.
type Statistics struct {
	// Accesses is the total number of accesses.
	Accesses uint64
	// Hits is the number of accesses that hit.
	Hits uint64
	// Misses is the number of accesses that missed.
	Misses uint64
}

// HitRate returns the hit rate as a percentage.
func (s Statistics) HitRate() float64 {
	if s.Accesses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses) * 100
}

// way holds per-way tag/validity state. lastAccess is the access count at
// the time the way was last touched, used for LRU replacement.
type way struct {
	tag        uint64
	valid      bool
	lastAccess uint64
}

// Cache is the statistical cache model. It tracks which lines are resident
// and returns access latencies; it does not carry data (see DataCache).
type Cache struct {
	config  Config
	numSets int
	sets    [][]way
	stats   Statistics
}

// New creates a cache with the given configuration. The geometry must
// satisfy size == sets * associativity * line size.
func New(config Config) (*Cache, error) {
	if config.Size <= 0 || config.LineSize <= 0 || config.Associativity <= 0 {
		return nil, fmt.Errorf(
			"invalid cache geometry: size=%d line=%d ways=%d",
			config.Size, config.LineSize, config.Associativity)
	}
	if config.Size%(config.LineSize*config.Associativity) != 0 {
		return nil, fmt.Errorf(
			"cache size %d is not divisible by line_size*associativity (%d*%d)",
			config.Size, config.LineSize, config.Associativity)
	}

	numSets := config.NumSets()
	if config.Topology == DirectMapped && config.Associativity != 1 {
		return nil, fmt.Errorf(
			"direct-mapped cache requires associativity 1, got %d",
			config.Associativity)
	}
	if config.Topology == FullyAssociative && numSets != 1 {
		return nil, fmt.Errorf(
			"fully-associative cache requires a single set, got %d", numSets)
	}

	sets := make([][]way, numSets)
	for i := range sets {
		sets[i] = make([]way, config.Associativity)
	}

	return &Cache{
		config:  config,
		numSets: numSets,
		sets:    sets,
	}, nil
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns the cache performance counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// Access performs one cache access and returns its latency in cycles.
// isWrite is accepted for interface symmetry; it does not alter hit/miss
// accounting (write policy is modeled by DataCache, not here).
func (c *Cache) Access(addr uint64, isWrite bool) uint64 {
	_ = isWrite
	c.stats.Accesses++

	line := addr / uint64(c.config.LineSize)
	set := line % uint64(c.numSets)
	tag := line / uint64(c.numSets)
	ways := c.sets[set]

	for i := range ways {
		if ways[i].valid && ways[i].tag == tag {
			c.stats.Hits++
			if c.config.Topology != DirectMapped {
				ways[i].lastAccess = c.stats.Accesses
			}
			return c.config.HitLatency
		}
	}

	c.stats.Misses++
	victim := c.findVictim(ways)
	ways[victim].tag = tag
	ways[victim].valid = true
	if c.config.Topology != DirectMapped {
		ways[victim].lastAccess = c.stats.Accesses
	}

	return c.config.MissPenalty
}

// findVictim selects the way to replace: the first invalid way if any
// exists, otherwise the least-recently-used way for set-associative caches
// and way 0 for the other topologies.
func (c *Cache) findVictim(ways []way) int {
	for i := range ways {
		if !ways[i].valid {
			return i
		}
	}

	victim := 0
	if c.config.Topology == SetAssociative {
		for i := 1; i < len(ways); i++ {
			if ways[i].lastAccess < ways[victim].lastAccess {
				victim = i
			}
		}
	}
	return victim
}

// Reset invalidates every line and clears the counters.
func (c *Cache) Reset() {
	for s := range c.sets {
		for w := range c.sets[s] {
			c.sets[s][w] = way{}
		}
	}
	c.stats = Statistics{}
}

// Contains reports whether the line holding addr is resident. It does not
// touch counters or LRU state; diagnostics only.
func (c *Cache) Contains(addr uint64) bool {
	line := addr / uint64(c.config.LineSize)
	set := line % uint64(c.numSets)
	tag := line / uint64(c.numSets)

	for _, w := range c.sets[set] {
		if w.valid && w.tag == tag {
			return true
		}
	}
	return false
}

package cache

import (
	"github.com/VIKASNARASIMHA1/Spectre/emu"
)

// MemoryBacking wraps emu.Memory as a BackingStore. Cache line addresses
// were range-validated when the line entered the cache, so partial lines at
// the top of memory are clamped rather than reported.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking creates a new MemoryBacking adapter.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// Read fetches data from the backing memory.
func (m *MemoryBacking) Read(addr uint64, size int) []byte {
	data := make([]byte, size)
	raw := m.memory.Bytes()
	if addr < uint64(len(raw)) {
		copy(data, raw[addr:])
	}
	return data
}

// Write stores data to the backing memory.
func (m *MemoryBacking) Write(addr uint64, data []byte) {
	raw := m.memory.Bytes()
	if addr < uint64(len(raw)) {
		copy(raw[addr:], data)
	}
}

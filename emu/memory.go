package emu

import (
	"encoding/binary"
	"fmt"
)

// Memory is a flat byte-addressable memory of fixed capacity, shared by
// instructions and data. Every access is validated against the capacity;
// an out-of-range access is a caller bug reported as an error, not a
// simulated fault.
type Memory struct {
	data []byte
}

// NewMemory creates a memory with the given capacity in bytes.
func NewMemory(size uint64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the memory capacity in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Bytes exposes the underlying storage for instruction decoding. Callers
// must not grow or alias it beyond the current cycle.
func (m *Memory) Bytes() []byte {
	return m.data
}

// checkRange validates an n-byte access starting at addr.
func (m *Memory) checkRange(addr, n uint64) error {
	if addr+n > uint64(len(m.data)) || addr+n < addr {
		return fmt.Errorf(
			"memory access out of range: addr=0x%x size=%d capacity=%d",
			addr, n, len(m.data))
	}
	return nil
}

// Read8 reads one byte at addr.
func (m *Memory) Read8(addr uint64) (uint8, error) {
	if err := m.checkRange(addr, 1); err != nil {
		return 0, err
	}
	return m.data[addr], nil
}

// Write8 writes one byte at addr.
func (m *Memory) Write8(addr uint64, value uint8) error {
	if err := m.checkRange(addr, 1); err != nil {
		return err
	}
	m.data[addr] = value
	return nil
}

// Read64 reads a little-endian 8-byte value at addr.
func (m *Memory) Read64(addr uint64) (uint64, error) {
	if err := m.checkRange(addr, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[addr : addr+8]), nil
}

// Write64 writes a little-endian 8-byte value at addr.
func (m *Memory) Write64(addr uint64, value uint64) error {
	if err := m.checkRange(addr, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[addr:addr+8], value)
	return nil
}

// LoadProgram copies a raw program image into memory at addr. It fails
// when the image would exceed the memory capacity.
func (m *Memory) LoadProgram(program []byte, addr uint64) error {
	if err := m.checkRange(addr, uint64(len(program))); err != nil {
		return fmt.Errorf("program too large for memory: %w", err)
	}
	copy(m.data[addr:], program)
	return nil
}

// Reset zeroes all memory contents.
func (m *Memory) Reset() {
	for i := range m.data {
		m.data[i] = 0
	}
}

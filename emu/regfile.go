// Package emu provides the architectural state of the simulated processor:
// the register file and flat byte-addressable memory shared by both
// execution engines.
package emu

import "github.com/VIKASNARASIMHA1/Spectre/insts"

// RegFile represents the Spectre register file.
// It contains 16 general-purpose registers (R0-R15), the program counter,
// the stack pointer, and a flags word holding the result of the last
// compare. It is mutated only by the writeback/commit stage of whichever
// execution engine is active.
type RegFile struct {
	// R holds general-purpose registers R0-R15.
	R [insts.NumRegs]uint64

	// PC is the program counter.
	PC uint64

	// SP is the stack pointer.
	SP uint64

	// Flags holds the result of the last compare.
	Flags uint64
}

// ReadReg reads a register value. Out-of-range indices (including the
// insts.NoReg sentinel) read as 0.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg >= insts.NumRegs {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to out-of-range indices
// (including the insts.NoReg sentinel) are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg >= insts.NumRegs {
		return
	}
	r.R[reg] = value
}

// Reset clears all architectural state.
func (r *RegFile) Reset() {
	*r = RegFile{}
}

package pipeline

import (
	"github.com/VIKASNARASIMHA1/Spectre/insts"
)

// Stage identifies one of the six pipeline stages.
type Stage int

const (
	StageFetch Stage = iota
	StageDecode
	StageExecute
	StageMemory
	StageWriteback
	StageCommit

	// NumStages is the number of pipeline stages.
	NumStages
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageFetch:
		return "fetch"
	case StageDecode:
		return "decode"
	case StageExecute:
		return "execute"
	case StageMemory:
		return "memory"
	case StageWriteback:
		return "writeback"
	case StageCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// StageRegister is the latch between two pipeline stages. It carries one
// in-flight instruction and the values produced for it so far.
type StageRegister struct {
	// PC is the address this instruction was fetched from.
	PC uint64
	// NextPC is the fall-through address (PC plus the instruction size).
	NextPC uint64

	// Op is the decoded operation.
	Op insts.Op

	// DestReg is the destination register, or insts.NoReg.
	DestReg uint8
	// SrcReg1 and SrcReg2 are the source registers, or insts.NoReg.
	// For stores SrcReg1 carries the data register.
	SrcReg1 uint8
	SrcReg2 uint8

	// Src1Val and Src2Val are the operand values read at decode.
	Src1Val uint64
	Src2Val uint64

	// Imm is the immediate operand (I and J formats).
	Imm uint64
	// Addr is the memory operand address (M format).
	Addr uint64

	// Result is the value produced by execute or memory.
	Result uint64

	// Stall freezes the stage feeding this register.
	Stall bool
	// Bubble marks the slot as empty.
	Bubble bool

	// CycleEntered is the cycle this instruction entered the register.
	CycleEntered uint64
}

// Clear empties the register, leaving a bubble.
func (r *StageRegister) Clear() {
	*r = StageRegister{
		Op:      insts.OpNop,
		DestReg: insts.NoReg,
		SrcReg1: insts.NoReg,
		SrcReg2: insts.NoReg,
		Bubble:  true,
	}
}

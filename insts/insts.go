// Package insts provides the Spectre instruction definitions and codec.
//
// This package implements decoding of raw Spectre machine code into
// structured instruction representations, the inverse encode operation for
// building synthetic programs, and a disassembler for diagnostics. The
// instruction set covers:
//   - Arithmetic/logic: ADD, SUB, MUL, DIV, AND, OR, XOR, NOT
//   - Shifts: SHL, SHR
//   - Memory: LD, ST
//   - Control flow: JMP, JZ, JNZ, CALL, RET
//   - Misc: NOP, CMP, MOV, HLT
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(memory, pc)
//	fmt.Printf("%s\n", inst.Disassemble())
package insts

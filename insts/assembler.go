package insts

// Encode helpers for building synthetic programs in tests and harnesses.
// Each returns the encoded byte sequence for one instruction; BuildProgram
// concatenates them into a loadable image.

// BuildProgram concatenates encoded instructions into a single program image.
func BuildProgram(instructions ...[]byte) []byte {
	var program []byte
	for _, inst := range instructions {
		program = append(program, inst...)
	}
	return program
}

func encode(inst *Instruction) []byte {
	buf := make([]byte, inst.Size())
	inst.Encode(buf)
	return buf
}

// EncodeNop encodes a NOP.
func EncodeNop() []byte {
	return encode(&Instruction{Op: OpNop, Format: FormatS})
}

// EncodeR encodes a register-register instruction: op rd, rs1, rs2.
func EncodeR(op Op, rd, rs1, rs2 uint8) []byte {
	return encode(&Instruction{Op: op, Format: FormatR, Rd: rd, Rs1: rs1, Rs2: rs2})
}

// EncodeMov encodes MOV rd, #imm.
func EncodeMov(rd uint8, imm uint64) []byte {
	return encode(&Instruction{Op: OpMov, Format: FormatI, Rd: rd, Imm: imm})
}

// EncodeLd encodes LD rd, [addr].
func EncodeLd(rd uint8, addr uint64) []byte {
	return encode(&Instruction{Op: OpLd, Format: FormatM, Rd: rd, Addr: addr})
}

// EncodeSt encodes ST [addr], rd.
func EncodeSt(rd uint8, addr uint64) []byte {
	return encode(&Instruction{Op: OpSt, Format: FormatM, Rd: rd, Addr: addr})
}

// EncodeJmp encodes JMP target.
func EncodeJmp(target uint64) []byte {
	return encode(&Instruction{Op: OpJmp, Format: FormatJ, Imm: target})
}

// EncodeJz encodes JZ target (taken when FLAGS == 0).
func EncodeJz(target uint64) []byte {
	return encode(&Instruction{Op: OpJz, Format: FormatJ, Imm: target})
}

// EncodeJnz encodes JNZ target (taken when FLAGS != 0).
func EncodeJnz(target uint64) []byte {
	return encode(&Instruction{Op: OpJnz, Format: FormatJ, Imm: target})
}

// EncodeCall encodes CALL target.
func EncodeCall(target uint64) []byte {
	return encode(&Instruction{Op: OpCall, Format: FormatJ, Imm: target})
}

// EncodeRet encodes RET.
func EncodeRet() []byte {
	return encode(&Instruction{Op: OpRet, Format: FormatS})
}

// EncodeCmp encodes CMP rd, rs1, rs2 (FLAGS := rs1 - rs2).
func EncodeCmp(rd, rs1, rs2 uint8) []byte {
	return EncodeR(OpCmp, rd, rs1, rs2)
}

// EncodeHlt encodes HLT.
func EncodeHlt() []byte {
	return encode(&Instruction{Op: OpHlt, Format: FormatS})
}

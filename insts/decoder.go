package insts

import "encoding/binary"

// Op represents a Spectre opcode.
type Op uint8

// Spectre opcodes. The constant value of each Op is its opcode byte.
const (
	OpNop Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpXor
	OpNot
	OpShl
	OpShr
	OpLd
	OpSt
	OpJmp
	OpJz
	OpJnz
	OpCall
	OpRet
	OpCmp
	OpMov
	OpHlt

	// NumOps is the number of defined opcodes.
	NumOps
)

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatR Format = iota // Register-register
	FormatI               // Immediate
	FormatM               // Memory
	FormatJ               // Jump
	FormatS               // System
)

// NumRegs is the number of architectural general-purpose registers.
const NumRegs = 16

// NoReg is the sentinel register index for instructions without a
// destination. Writes to it are ignored by the register file.
const NoReg uint8 = 0xFF

// opInfo describes one row of the opcode lookup table.
type opInfo struct {
	format Format
	name   string
}

// opTable is keyed by the opcode byte.
var opTable = [NumOps]opInfo{
	OpNop:  {FormatS, "nop"},
	OpAdd:  {FormatR, "add"},
	OpSub:  {FormatR, "sub"},
	OpMul:  {FormatR, "mul"},
	OpDiv:  {FormatR, "div"},
	OpAnd:  {FormatR, "and"},
	OpOr:   {FormatR, "or"},
	OpXor:  {FormatR, "xor"},
	OpNot:  {FormatR, "not"},
	OpShl:  {FormatR, "shl"},
	OpShr:  {FormatR, "shr"},
	OpLd:   {FormatM, "ld"},
	OpSt:   {FormatM, "st"},
	OpJmp:  {FormatJ, "jmp"},
	OpJz:   {FormatJ, "jz"},
	OpJnz:  {FormatJ, "jnz"},
	OpCall: {FormatJ, "call"},
	OpRet:  {FormatS, "ret"},
	OpCmp:  {FormatR, "cmp"},
	OpMov:  {FormatI, "mov"},
	OpHlt:  {FormatS, "hlt"},
}

// FormatOf returns the encoding format for an opcode.
func (op Op) FormatOf() Format {
	if op >= NumOps {
		return FormatS
	}
	return opTable[op].format
}

// Mnemonic returns the assembly mnemonic for an opcode.
func (op Op) Mnemonic() string {
	if op >= NumOps {
		return "unknown"
	}
	return opTable[op].name
}

// IsBranch reports whether the opcode redirects control flow through the
// pipeline's branch resolution path (unconditional and conditional jumps
// plus CALL; RET falls through, see the pipeline package).
func (op Op) IsBranch() bool {
	switch op {
	case OpJmp, OpJz, OpJnz, OpCall:
		return true
	default:
		return false
	}
}

// IsCondBranch reports whether the opcode is a conditional jump.
func (op Op) IsCondBranch() bool {
	return op == OpJz || op == OpJnz
}

// IsMemory reports whether the opcode accesses data memory.
func (op Op) IsMemory() bool {
	return op == OpLd || op == OpSt
}

// WritesDest reports whether the opcode writes a general-purpose register
// at writeback.
func (op Op) WritesDest() bool {
	switch op {
	case OpNop, OpSt, OpJmp, OpJz, OpJnz, OpCall, OpRet, OpHlt:
		return false
	default:
		return op < NumOps
	}
}

// FormatSize returns the encoded size in bytes of the given format.
func FormatSize(f Format) int {
	switch f {
	case FormatR:
		return 3 // opcode + reg byte + second-source byte
	case FormatM:
		return 11 // R layout + 8-byte address
	case FormatI, FormatJ:
		return 10 // opcode + reg byte + 8-byte operand
	default:
		return 1 // opcode only
	}
}

// Instruction represents a decoded Spectre instruction. Instructions are
// immutable once decoded and are produced fresh per fetch.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Encoding format
	Opcode uint8  // Raw opcode byte

	Rd  uint8 // Destination register
	Rs1 uint8 // First source register
	Rs2 uint8 // Second source register

	Imm  uint64 // Immediate or jump target (I/J formats)
	Addr uint64 // Memory operand address (M format)
}

// Size returns the encoded size of the instruction in bytes.
func (i *Instruction) Size() int {
	return FormatSize(i.Format)
}

// Decoder decodes Spectre machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new Spectre instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes the instruction starting at addr. It reads at most the
// declared format size past addr; the caller guarantees that many bytes of
// trailing memory exist.
func (d *Decoder) Decode(mem []byte, addr uint64) *Instruction {
	opcode := mem[addr]
	inst := &Instruction{
		Op:     OpNop,
		Format: FormatS,
		Opcode: opcode,
		Rd:     NoReg,
		Rs1:    NoReg,
		Rs2:    NoReg,
	}

	if Op(opcode) >= NumOps {
		return inst
	}
	inst.Op = Op(opcode)
	inst.Format = opTable[inst.Op].format

	switch inst.Format {
	case FormatR, FormatM:
		inst.Rd = (mem[addr+1] >> 4) & 0x0F
		inst.Rs1 = mem[addr+1] & 0x0F
		inst.Rs2 = (mem[addr+2] >> 4) & 0x0F
		if inst.Format == FormatM {
			inst.Addr = binary.LittleEndian.Uint64(mem[addr+3 : addr+11])
		}
	case FormatI, FormatJ:
		inst.Rd = (mem[addr+1] >> 4) & 0x0F
		inst.Imm = binary.LittleEndian.Uint64(mem[addr+2 : addr+10])
	}

	return inst
}

// SizeAt returns the encoded size of the instruction at addr without fully
// decoding it.
func (d *Decoder) SizeAt(mem []byte, addr uint64) int {
	opcode := Op(mem[addr])
	if opcode >= NumOps {
		return 1
	}
	return FormatSize(opTable[opcode].format)
}

// Encode writes the instruction's byte representation into buf and returns
// the number of bytes written. buf must have room for Size() bytes.
func (i *Instruction) Encode(buf []byte) int {
	buf[0] = uint8(i.Op)

	switch i.Format {
	case FormatR, FormatM:
		buf[1] = (i.Rd << 4) | (i.Rs1 & 0x0F)
		buf[2] = i.Rs2 << 4
		if i.Format == FormatM {
			binary.LittleEndian.PutUint64(buf[3:11], i.Addr)
			return 11
		}
		return 3
	case FormatI, FormatJ:
		buf[1] = i.Rd << 4
		binary.LittleEndian.PutUint64(buf[2:10], i.Imm)
		return 10
	default:
		return 1
	}
}

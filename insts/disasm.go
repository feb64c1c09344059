package insts

import "fmt"

// Disassemble renders the instruction as mnemonic and operand text for
// diagnostics. It has no effect on simulation state.
func (i *Instruction) Disassemble() string {
	name := i.Op.Mnemonic()

	switch i.Format {
	case FormatR:
		return fmt.Sprintf("%s r%d, r%d, r%d", name, i.Rd, i.Rs1, i.Rs2)
	case FormatI:
		return fmt.Sprintf("%s r%d, %d", name, i.Rd, i.Imm)
	case FormatM:
		if i.Op == OpSt {
			return fmt.Sprintf("%s [0x%x], r%d", name, i.Addr, i.Rd)
		}
		return fmt.Sprintf("%s r%d, [0x%x]", name, i.Rd, i.Addr)
	case FormatJ:
		return fmt.Sprintf("%s 0x%x", name, i.Imm)
	default:
		return name
	}
}

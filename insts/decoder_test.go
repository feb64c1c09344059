package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/VIKASNARASIMHA1/Spectre/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Register format", func() {
		It("should decode ADD r2, r0, r1", func() {
			mem := insts.EncodeR(insts.OpAdd, 2, 0, 1)
			inst := decoder.Decode(mem, 0)

			Expect(inst.Op).To(Equal(insts.OpAdd))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rs1).To(Equal(uint8(0)))
			Expect(inst.Rs2).To(Equal(uint8(1)))
			Expect(inst.Size()).To(Equal(3))
		})

		It("should pack register indices into nibbles", func() {
			mem := insts.EncodeR(insts.OpXor, 15, 7, 3)
			Expect(mem[1]).To(Equal(uint8(0xF7)))
			Expect(mem[2]).To(Equal(uint8(0x30)))

			inst := decoder.Decode(mem, 0)
			Expect(inst.Rd).To(Equal(uint8(15)))
			Expect(inst.Rs1).To(Equal(uint8(7)))
			Expect(inst.Rs2).To(Equal(uint8(3)))
		})
	})

	Describe("Immediate format", func() {
		It("should decode MOV r3, 42 with a little-endian operand", func() {
			mem := insts.EncodeMov(3, 42)
			Expect(mem).To(HaveLen(10))
			Expect(mem[2]).To(Equal(uint8(42)))
			Expect(mem[9]).To(Equal(uint8(0)))

			inst := decoder.Decode(mem, 0)
			Expect(inst.Op).To(Equal(insts.OpMov))
			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Imm).To(Equal(uint64(42)))
		})

		It("should decode a full 64-bit immediate", func() {
			mem := insts.EncodeMov(0, 0xDEADBEEFCAFE0123)
			inst := decoder.Decode(mem, 0)
			Expect(inst.Imm).To(Equal(uint64(0xDEADBEEFCAFE0123)))
		})
	})

	Describe("Memory format", func() {
		It("should decode LD r5, [0x2000]", func() {
			mem := insts.EncodeLd(5, 0x2000)
			inst := decoder.Decode(mem, 0)

			Expect(inst.Op).To(Equal(insts.OpLd))
			Expect(inst.Format).To(Equal(insts.FormatM))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Addr).To(Equal(uint64(0x2000)))
			Expect(inst.Size()).To(Equal(11))
		})

		It("should decode ST [0x3000], r1", func() {
			mem := insts.EncodeSt(1, 0x3000)
			inst := decoder.Decode(mem, 0)

			Expect(inst.Op).To(Equal(insts.OpSt))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Addr).To(Equal(uint64(0x3000)))
		})
	})

	Describe("Jump format", func() {
		It("should decode JZ 0x1040", func() {
			mem := insts.EncodeJz(0x1040)
			inst := decoder.Decode(mem, 0)

			Expect(inst.Op).To(Equal(insts.OpJz))
			Expect(inst.Format).To(Equal(insts.FormatJ))
			Expect(inst.Imm).To(Equal(uint64(0x1040)))
			Expect(inst.Size()).To(Equal(10))
		})
	})

	Describe("System format", func() {
		It("should decode single-byte instructions", func() {
			for _, op := range []insts.Op{insts.OpNop, insts.OpRet, insts.OpHlt} {
				mem := []byte{uint8(op)}
				inst := decoder.Decode(mem, 0)
				Expect(inst.Op).To(Equal(op))
				Expect(inst.Format).To(Equal(insts.FormatS))
				Expect(inst.Size()).To(Equal(1))
			}
		})
	})

	Describe("Unknown opcodes", func() {
		It("should decode out-of-table bytes as NOP", func() {
			mem := []byte{0x7F}
			inst := decoder.Decode(mem, 0)
			Expect(inst.Op).To(Equal(insts.OpNop))
			Expect(inst.Size()).To(Equal(1))
		})
	})

	Describe("Decoding at an offset", func() {
		It("should decode relative to the given address", func() {
			program := insts.BuildProgram(
				insts.EncodeMov(0, 10),
				insts.EncodeR(insts.OpAdd, 1, 0, 0),
			)
			inst := decoder.Decode(program, 10)
			Expect(inst.Op).To(Equal(insts.OpAdd))
			Expect(inst.Rd).To(Equal(uint8(1)))
		})
	})

	Describe("SizeAt", func() {
		It("should report format sizes without decoding", func() {
			program := insts.BuildProgram(
				insts.EncodeMov(0, 1),
				insts.EncodeR(insts.OpSub, 1, 0, 0),
				insts.EncodeHlt(),
			)
			Expect(decoder.SizeAt(program, 0)).To(Equal(10))
			Expect(decoder.SizeAt(program, 10)).To(Equal(3))
			Expect(decoder.SizeAt(program, 13)).To(Equal(1))
		})
	})

	Describe("Round-trip", func() {
		It("should re-encode decoded instructions unchanged", func() {
			images := [][]byte{
				insts.EncodeNop(),
				insts.EncodeR(insts.OpAdd, 2, 0, 1),
				insts.EncodeR(insts.OpShl, 4, 4, 5),
				insts.EncodeMov(7, 123456789),
				insts.EncodeLd(1, 0x8000),
				insts.EncodeSt(2, 0x8008),
				insts.EncodeJmp(0x1000),
				insts.EncodeJnz(0xFFF0),
				insts.EncodeCall(0x40),
				insts.EncodeRet(),
				insts.EncodeCmp(0, 1, 2),
				insts.EncodeHlt(),
			}

			for _, image := range images {
				inst := decoder.Decode(image, 0)
				buf := make([]byte, inst.Size())
				n := inst.Encode(buf)
				Expect(n).To(Equal(len(image)))
				Expect(buf).To(Equal(image))
			}
		})
	})
})

var _ = Describe("Op metadata", func() {
	It("should classify branches", func() {
		Expect(insts.OpJmp.IsBranch()).To(BeTrue())
		Expect(insts.OpJz.IsBranch()).To(BeTrue())
		Expect(insts.OpJnz.IsBranch()).To(BeTrue())
		Expect(insts.OpCall.IsBranch()).To(BeTrue())
		Expect(insts.OpRet.IsBranch()).To(BeFalse())
		Expect(insts.OpAdd.IsBranch()).To(BeFalse())
	})

	It("should classify conditional branches", func() {
		Expect(insts.OpJz.IsCondBranch()).To(BeTrue())
		Expect(insts.OpJnz.IsCondBranch()).To(BeTrue())
		Expect(insts.OpJmp.IsCondBranch()).To(BeFalse())
	})

	It("should classify register writers", func() {
		Expect(insts.OpAdd.WritesDest()).To(BeTrue())
		Expect(insts.OpMov.WritesDest()).To(BeTrue())
		Expect(insts.OpLd.WritesDest()).To(BeTrue())
		Expect(insts.OpSt.WritesDest()).To(BeFalse())
		Expect(insts.OpJmp.WritesDest()).To(BeFalse())
		Expect(insts.OpHlt.WritesDest()).To(BeFalse())
	})
})

var _ = Describe("Disassembler", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	It("should render each format", func() {
		cases := []struct {
			image []byte
			text  string
		}{
			{insts.EncodeR(insts.OpAdd, 2, 0, 1), "add r2, r0, r1"},
			{insts.EncodeMov(3, 42), "mov r3, 42"},
			{insts.EncodeLd(5, 0x2000), "ld r5, [0x2000]"},
			{insts.EncodeSt(1, 0x3000), "st [0x3000], r1"},
			{insts.EncodeJmp(0x1040), "jmp 0x1040"},
			{insts.EncodeHlt(), "hlt"},
		}

		for _, c := range cases {
			inst := decoder.Decode(c.image, 0)
			Expect(inst.Disassemble()).To(Equal(c.text))
		}
	})
})

// Package pipeline implements the six-stage in-order Spectre pipeline with
// hazard detection, branch prediction, and cache-timed memory access.
package pipeline

import (
	"fmt"

	"github.com/VIKASNARASIMHA1/Spectre/emu"
	"github.com/VIKASNARASIMHA1/Spectre/insts"
	"github.com/VIKASNARASIMHA1/Spectre/timing/cache"
)

// Stats holds pipeline performance counters.
type Stats struct {
	// Cycles is the number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired at writeback.
	Instructions uint64
	// Stalls is the number of stall events recorded.
	Stalls uint64
	// Bubbles is the number of bubble cycles injected by flushes.
	Bubbles uint64
}

// IPC returns retired instructions per cycle.
func (s Stats) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Instructions) / float64(s.Cycles)
}

// Pipeline is a six-stage in-order core: fetch, decode, execute, memory,
// writeback, commit. One instruction occupies each stage register; stages
// advance in reverse order each cycle so a register is consumed before it
// is overwritten.
type Pipeline struct {
	regFile *emu.RegFile
	memory  *emu.Memory
	decoder *insts.Decoder

	l1i *cache.Cache
	l1d *cache.Cache

	// l2, when set, is consulted on L1 misses from either side.
	l2 *cache.Cache

	// dataCache, when set, replaces the statistical L1D with a
	// data-carrying cache on the memory stage path.
	dataCache *cache.DataCache

	predictor *BranchPredictor
	hazard    *HazardUnit

	regs [NumStages]StageRegister

	flushPenalty uint64
	halted       bool
	fault        error

	stats Stats
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPredictor replaces the default bimodal branch predictor.
func WithPredictor(bp *BranchPredictor) Option {
	return func(p *Pipeline) {
		p.predictor = bp
	}
}

// WithCaches replaces the default L1 instruction and data caches.
func WithCaches(l1i, l1d *cache.Cache) Option {
	return func(p *Pipeline) {
		p.l1i = l1i
		p.l1d = l1d
	}
}

// WithL2 adds a unified second-level cache behind both L1 caches.
func WithL2(l2 *cache.Cache) Option {
	return func(p *Pipeline) {
		p.l2 = l2
	}
}

// WithDataCache routes the memory stage through a data-carrying cache
// instead of the statistical L1D.
func WithDataCache(dc *cache.DataCache) Option {
	return func(p *Pipeline) {
		p.dataCache = dc
	}
}

// WithFlushPenalty sets the bubble count charged per misprediction.
func WithFlushPenalty(cycles uint64) Option {
	return func(p *Pipeline) {
		p.flushPenalty = cycles
	}
}

// NewPipeline creates a pipeline bound to the given register file and
// memory. The program counter in regFile is the fetch pointer.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...Option) *Pipeline {
	l1i, _ := cache.New(cache.DefaultL1Config())
	l1d, _ := cache.New(cache.DefaultL1Config())

	p := &Pipeline{
		regFile:      regFile,
		memory:       memory,
		decoder:      insts.NewDecoder(),
		l1i:          l1i,
		l1d:          l1d,
		predictor:    NewBranchPredictor(DefaultPredictorConfig()),
		hazard:       NewHazardUnit(),
		flushPenalty: 3,
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := range p.regs {
		p.regs[i].Clear()
	}
	return p
}

// Tick simulates one cycle. Stages run commit first and fetch last so each
// stage reads its input register before the upstream stage overwrites it.
func (p *Pipeline) Tick() {
	p.commitStage()
	p.writebackStage()
	p.memoryStage()
	p.executeStage()
	p.decodeStage()
	p.fetchStage()

	p.stats.Cycles++
}

// RunCycles runs up to n cycles, stopping early on halt or fault. It
// returns the number of cycles actually simulated.
func (p *Pipeline) RunCycles(n uint64) uint64 {
	var done uint64
	for done < n && !p.drained() {
		p.Tick()
		done++
	}
	return done
}

// Run simulates until the pipeline halts and drains.
func (p *Pipeline) Run() {
	for !p.drained() {
		p.Tick()
	}
}

// drained reports whether the core halted and no instruction remains in
// flight.
func (p *Pipeline) drained() bool {
	if !p.halted {
		return false
	}
	for i := range p.regs {
		if !p.regs[i].Bubble && p.regs[i].Op != insts.OpNop {
			return false
		}
	}
	return true
}

// Halted reports whether a HLT has retired or a fault stopped the core.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Fault returns the error that stopped the core, if any.
func (p *Pipeline) Fault() error {
	return p.fault
}

// Stats returns the pipeline performance counters.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Predictor returns the branch predictor.
func (p *Pipeline) Predictor() *BranchPredictor {
	return p.predictor
}

// L1IStats returns instruction cache counters.
func (p *Pipeline) L1IStats() cache.Statistics {
	return p.l1i.Stats()
}

// L1DStats returns data cache counters.
func (p *Pipeline) L1DStats() cache.Statistics {
	return p.l1d.Stats()
}

// L2Stats returns second-level cache counters; zero when no L2 is attached.
func (p *Pipeline) L2Stats() cache.Statistics {
	if p.l2 == nil {
		return cache.Statistics{}
	}
	return p.l2.Stats()
}

// StageReg returns a copy of the given stage register, for inspection.
func (p *Pipeline) StageReg(s Stage) StageRegister {
	return p.regs[s]
}

// Reset clears all pipeline state. Architectural state in the register
// file and memory is left alone.
func (p *Pipeline) Reset() {
	for i := range p.regs {
		p.regs[i].Clear()
	}
	p.halted = false
	p.fault = nil
	p.stats = Stats{}
	p.predictor.Reset()
	p.l1i.Reset()
	p.l1d.Reset()
	if p.l2 != nil {
		p.l2.Reset()
	}
}

// cacheAccess touches an L1 cache and, on a miss, the shared L2 behind it.
func (p *Pipeline) cacheAccess(l1 *cache.Cache, addr uint64, isWrite bool) {
	latency := l1.Access(addr, isWrite)
	if p.l2 != nil && latency != l1.Config().HitLatency {
		p.l2.Access(addr, isWrite)
	}
}

// resolvesInFetch reports whether the op goes through the taken/not-taken
// resolution check against the fetch pointer. CALL and RET redirect
// unconditionally at execute and are not predicted.
func resolvesInFetch(op insts.Op) bool {
	return op == insts.OpJmp || op == insts.OpJz || op == insts.OpJnz
}

// fetchStage fetches and decodes the instruction at PC, after first
// checking the execute stage for a branch whose outcome contradicts the
// path fetch has been following.
func (p *Pipeline) fetchStage() {
	fr := &p.regs[StageFetch]

	if fr.Stall {
		p.stats.Stalls++
		return
	}

	ex := &p.regs[StageExecute]
	if !ex.Bubble && resolvesInFetch(ex.Op) {
		taken := ex.Result != ex.NextPC
		predicted := p.predictor.Predict(ex.PC)
		if taken != predicted {
			p.flushAfterFetch()
			p.regFile.PC = ex.Result
			p.stats.Bubbles += p.flushPenalty
		}
	}
	if !ex.Bubble && ex.Op == insts.OpCall && ex.Result != ex.NextPC {
		// CALL is never predicted; it always redirects with a full flush.
		p.flushAfterFetch()
		p.regFile.PC = ex.Result
		p.stats.Bubbles += p.flushPenalty
	}

	if p.halted {
		fr.Clear()
		return
	}

	pc := p.regFile.PC
	mem := p.memory.Bytes()
	if pc >= uint64(len(mem)) ||
		pc+uint64(p.decoder.SizeAt(mem, pc)) > uint64(len(mem)) {
		p.fault = fmt.Errorf("fetch out of range: pc=%#x", pc)
		p.halted = true
		fr.Clear()
		return
	}

	p.cacheAccess(p.l1i, pc, false)
	inst := p.decoder.Decode(mem, pc)

	fr.PC = pc
	fr.NextPC = pc + uint64(inst.Size())
	fr.Op = inst.Op
	fr.Imm = inst.Imm
	fr.Addr = inst.Addr
	fr.Result = 0
	fr.Src1Val = 0
	fr.Src2Val = 0
	fr.Bubble = false
	fr.Stall = false
	fr.CycleEntered = p.stats.Cycles

	if inst.Op.WritesDest() {
		fr.DestReg = inst.Rd
	} else {
		fr.DestReg = insts.NoReg
	}
	fr.SrcReg1, fr.SrcReg2 = sourceRegs(inst)

	p.regFile.PC = fr.NextPC
}

// flushAfterFetch marks every stage behind fetch as a bubble. The
// mispredicted branch itself is squashed along with the wrong-path
// instructions behind it.
func (p *Pipeline) flushAfterFetch() {
	for s := StageDecode; s <= StageCommit; s++ {
		p.regs[s].Clear()
	}
}

// sourceRegs returns the architectural source registers of an
// instruction. A store reads its data register; NOT reads a single
// source; loads, jumps, and immediates read none.
func sourceRegs(inst *insts.Instruction) (uint8, uint8) {
	switch inst.Op {
	case insts.OpAdd, insts.OpSub, insts.OpMul, insts.OpDiv,
		insts.OpAnd, insts.OpOr, insts.OpXor,
		insts.OpShl, insts.OpShr, insts.OpCmp:
		return inst.Rs1, inst.Rs2
	case insts.OpNot:
		return inst.Rs1, insts.NoReg
	case insts.OpSt:
		return inst.Rd, insts.NoReg
	default:
		return insts.NoReg, insts.NoReg
	}
}

// decodeStage moves the fetched instruction forward and reads its
// operands, unless a downstream instruction still owes one of them a
// value. On a hazard it freezes fetch and injects a no-op instead.
func (p *Pipeline) decodeStage() {
	dr := &p.regs[StageDecode]
	fr := &p.regs[StageFetch]

	if fr.Bubble {
		dr.Clear()
		return
	}

	if p.hazard.DetectDataHazard(
		p.regs[StageExecute:StageCommit+1], fr.SrcReg1, fr.SrcReg2) {
		fr.Stall = true
		dr.Clear()
		p.stats.Stalls++
		return
	}

	*dr = *fr
	dr.CycleEntered = p.stats.Cycles
	dr.Src1Val = p.regFile.ReadReg(dr.SrcReg1)
	dr.Src2Val = p.regFile.ReadReg(dr.SrcReg2)
}

// executeStage computes ALU results, resolves branch targets, and trains
// the branch predictor.
func (p *Pipeline) executeStage() {
	er := &p.regs[StageExecute]
	dr := &p.regs[StageDecode]

	if dr.Bubble {
		er.Clear()
		return
	}

	*er = *dr
	er.CycleEntered = p.stats.Cycles

	switch er.Op {
	case insts.OpAdd:
		er.Result = er.Src1Val + er.Src2Val
	case insts.OpSub:
		er.Result = er.Src1Val - er.Src2Val
	case insts.OpMul:
		er.Result = er.Src1Val * er.Src2Val
	case insts.OpDiv:
		if er.Src2Val == 0 {
			er.Result = 0
		} else {
			er.Result = er.Src1Val / er.Src2Val
		}
	case insts.OpAnd:
		er.Result = er.Src1Val & er.Src2Val
	case insts.OpOr:
		er.Result = er.Src1Val | er.Src2Val
	case insts.OpXor:
		er.Result = er.Src1Val ^ er.Src2Val
	case insts.OpNot:
		er.Result = ^er.Src1Val
	case insts.OpShl:
		er.Result = er.Src1Val << (er.Src2Val & 63)
	case insts.OpShr:
		er.Result = er.Src1Val >> (er.Src2Val & 63)
	case insts.OpCmp:
		// Flags are live at execute so a dependent conditional jump one
		// slot behind sees them in time.
		p.regFile.Flags = er.Src1Val - er.Src2Val
		er.Result = p.regFile.Flags
	case insts.OpMov:
		er.Result = er.Imm
	case insts.OpJmp, insts.OpCall:
		er.Result = er.Imm
	case insts.OpJz:
		if p.regFile.Flags == 0 {
			er.Result = er.Imm
		} else {
			er.Result = er.NextPC
		}
	case insts.OpJnz:
		if p.regFile.Flags != 0 {
			er.Result = er.Imm
		} else {
			er.Result = er.NextPC
		}
	case insts.OpRet:
		er.Result = er.NextPC
	}

	if resolvesInFetch(er.Op) {
		taken := er.Result != er.NextPC
		predicted := p.predictor.Predict(er.PC)
		p.predictor.Update(er.PC, taken, predicted)
	}
}

// memoryStage performs loads and stores, charging cache latency.
func (p *Pipeline) memoryStage() {
	mr := &p.regs[StageMemory]
	er := &p.regs[StageExecute]

	if er.Bubble {
		mr.Clear()
		return
	}

	*mr = *er
	mr.CycleEntered = p.stats.Cycles

	switch mr.Op {
	case insts.OpLd:
		if p.dataCache != nil {
			mr.Result = p.dataCache.Read(mr.Addr, 8).Data
			return
		}
		p.cacheAccess(p.l1d, mr.Addr, false)
		value, err := p.memory.Read64(mr.Addr)
		if err != nil {
			p.fault = fmt.Errorf("load at pc=%#x: %w", mr.PC, err)
			p.halted = true
			return
		}
		mr.Result = value
	case insts.OpSt:
		if p.dataCache != nil {
			p.dataCache.Write(mr.Addr, 8, mr.Src1Val)
			return
		}
		p.cacheAccess(p.l1d, mr.Addr, true)
		if err := p.memory.Write64(mr.Addr, mr.Src1Val); err != nil {
			p.fault = fmt.Errorf("store at pc=%#x: %w", mr.PC, err)
			p.halted = true
		}
	}
}

// writebackStage commits the result to the register file and retires the
// instruction.
func (p *Pipeline) writebackStage() {
	wr := &p.regs[StageWriteback]
	mr := &p.regs[StageMemory]

	if mr.Bubble {
		wr.Clear()
		return
	}

	*wr = *mr
	wr.CycleEntered = p.stats.Cycles

	if wr.DestReg != insts.NoReg {
		p.regFile.WriteReg(wr.DestReg, wr.Result)
	}
	p.stats.Instructions++

	if wr.Op == insts.OpHlt {
		p.halted = true
		// Squash everything younger; nothing past a HLT may execute.
		for s := StageFetch; s <= StageMemory; s++ {
			p.regs[s].Clear()
		}
	}
}

// commitStage drains the retired instruction out of the pipeline and
// releases any fetch stall from the previous cycle.
func (p *Pipeline) commitStage() {
	cr := &p.regs[StageCommit]
	wr := &p.regs[StageWriteback]

	if wr.Bubble {
		cr.Clear()
	} else {
		*cr = *wr
		cr.CycleEntered = p.stats.Cycles
	}

	p.regs[StageFetch].Stall = false
}

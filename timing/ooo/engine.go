// Package ooo implements a Tomasulo-style out-of-order engine with
// reservation stations, a reorder buffer, and in-order commit.
package ooo

import (
	"fmt"

	"github.com/VIKASNARASIMHA1/Spectre/emu"
	"github.com/VIKASNARASIMHA1/Spectre/insts"
)

// robTag identifies the in-flight producer of a register value. It is the
// reorder buffer index plus one; zero means the register file already
// holds the value.
type robTag uint64

const noTag robTag = 0

// Config holds the engine dimensions.
type Config struct {
	// NumStations is the number of reservation stations.
	NumStations int
	// ROBSize is the number of reorder buffer entries.
	ROBSize int
}

// DefaultConfig returns the default engine dimensions.
func DefaultConfig() Config {
	return Config{
		NumStations: 8,
		ROBSize:     16,
	}
}

// Stats holds engine performance counters.
type Stats struct {
	// Cycles is the number of cycles simulated.
	Cycles uint64
	// Issued counts instructions accepted into a reservation station.
	Issued uint64
	// Completed counts instructions whose result was computed.
	Completed uint64
	// Committed counts instructions retired in order.
	Committed uint64
}

// IPC returns committed instructions per cycle.
func (s Stats) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Committed) / float64(s.Cycles)
}

// station is one reservation station. vj/vk hold operand values once
// known; qj/qk name the reorder buffer entries still owing them.
type station struct {
	busy bool
	op   insts.Op

	vj, vk uint64
	qj, qk robTag

	imm  uint64
	addr uint64

	dest uint8
	tag  robTag

	result      uint64
	resultReady bool
}

// robEntry is one reorder buffer slot.
type robEntry struct {
	busy bool
	op   insts.Op

	dest uint8
	addr uint64

	result    uint64
	ready     bool
	exception error
}

// Engine is the out-of-order core. Instructions enter through Issue in
// program order, execute whenever their operands arrive, and retire
// strictly in program order at commit.
type Engine struct {
	config  Config
	regFile *emu.RegFile
	memory  *emu.Memory

	stations []station
	rob      []robEntry

	// regStatus maps each architectural register to the reorder buffer
	// entry that will produce its next value.
	regStatus [insts.NumRegs]robTag

	robHead  int
	robCount int

	halted bool
	fault  error

	stats Stats
}

// NewEngine creates an out-of-order engine bound to the given register
// file and memory.
func NewEngine(regFile *emu.RegFile, memory *emu.Memory, config Config) *Engine {
	if config.NumStations <= 0 {
		config.NumStations = 8
	}
	if config.ROBSize <= 0 {
		config.ROBSize = 16
	}
	return &Engine{
		config:   config,
		regFile:  regFile,
		memory:   memory,
		stations: make([]station, config.NumStations),
		rob:      make([]robEntry, config.ROBSize),
	}
}

// Config returns the engine dimensions.
func (e *Engine) Config() Config {
	return e.config
}

// Stats returns the engine performance counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Halted reports whether a HLT committed or an exception stopped retire.
func (e *Engine) Halted() bool {
	return e.halted
}

// Fault returns the error that stopped the engine, if any.
func (e *Engine) Fault() error {
	return e.fault
}

// InFlight reports whether any instruction occupies the reorder buffer.
func (e *Engine) InFlight() bool {
	return e.robCount > 0
}

// Issue places an instruction into a free reservation station and
// allocates its reorder buffer entry. It returns false when either
// structure is full; the caller retries next cycle.
func (e *Engine) Issue(inst *insts.Instruction) bool {
	if e.halted || e.robCount == e.config.ROBSize {
		return false
	}

	rs := e.freeStation()
	if rs == nil {
		return false
	}

	robIdx := (e.robHead + e.robCount) % e.config.ROBSize
	tag := robTag(robIdx + 1)

	rs.busy = true
	rs.op = inst.Op
	rs.imm = inst.Imm
	rs.addr = inst.Addr
	rs.tag = tag
	rs.result = 0
	rs.resultReady = false

	src1, src2 := sourceRegs(inst)
	rs.vj, rs.qj = e.readOperand(src1)
	rs.vk, rs.qk = e.readOperand(src2)

	if inst.Op.WritesDest() {
		rs.dest = inst.Rd
	} else {
		rs.dest = insts.NoReg
	}

	e.rob[robIdx] = robEntry{
		busy: true,
		op:   inst.Op,
		dest: rs.dest,
		addr: inst.Addr,
	}
	e.robCount++

	if rs.dest != insts.NoReg {
		e.regStatus[rs.dest] = tag
	}

	e.stats.Issued++
	return true
}

// freeStation returns an idle reservation station, or nil.
func (e *Engine) freeStation() *station {
	for i := range e.stations {
		if !e.stations[i].busy {
			return &e.stations[i]
		}
	}
	return nil
}

// readOperand resolves a source register to a value or the tag of its
// pending producer. A producer that already finished but has not yet
// committed forwards its value straight out of the reorder buffer.
func (e *Engine) readOperand(reg uint8) (uint64, robTag) {
	if reg == insts.NoReg {
		return 0, noTag
	}

	tag := e.regStatus[reg]
	if tag == noTag {
		return e.regFile.ReadReg(reg), noTag
	}

	entry := &e.rob[int(tag)-1]
	if entry.busy && entry.ready {
		return entry.result, noTag
	}
	return 0, tag
}

// sourceRegs returns the architectural source registers of an
// instruction; stores read their data register.
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

// Tick simulates one cycle: execute ready stations, write results onto
// the common data bus, then retire from the head of the reorder buffer.
func (e *Engine) Tick() {
	e.execute()
	e.writeback()
	e.commit()
	e.stats.Cycles++
}

// RunUntilDrained ticks until nothing is in flight or the cycle cap
// trips, returning the number of cycles simulated.
func (e *Engine) RunUntilDrained(maxCycles uint64) uint64 {
	var done uint64
	for done < maxCycles && e.InFlight() {
		e.Tick()
		done++
	}
	return done
}

// execute computes results for every station whose operands are ready.
func (e *Engine) execute() {
	for i := range e.stations {
		rs := &e.stations[i]
		if !rs.busy || rs.resultReady || rs.qj != noTag || rs.qk != noTag {
			continue
		}

		switch rs.op {
		case insts.OpAdd:
			rs.result = rs.vj + rs.vk
		case insts.OpSub:
			rs.result = rs.vj - rs.vk
		case insts.OpMul:
			rs.result = rs.vj * rs.vk
		case insts.OpDiv:
			if rs.vk == 0 {
				rs.result = 0
			} else {
				rs.result = rs.vj / rs.vk
			}
		case insts.OpAnd:
			rs.result = rs.vj & rs.vk
		case insts.OpOr:
			rs.result = rs.vj | rs.vk
		case insts.OpXor:
			rs.result = rs.vj ^ rs.vk
		case insts.OpNot:
			rs.result = ^rs.vj
		case insts.OpShl:
			rs.result = rs.vj << (rs.vk & 63)
		case insts.OpShr:
			rs.result = rs.vj >> (rs.vk & 63)
		case insts.OpCmp:
			rs.result = rs.vj - rs.vk
		case insts.OpMov:
			rs.result = rs.imm
		case insts.OpLd:
			// Loads wait for every older store to commit; stores only
			// touch memory at commit, so this is the earliest point the
			// loaded value is guaranteed current.
			if e.olderStorePending(rs.tag) {
				continue
			}
			value, err := e.memory.Read64(rs.addr)
			if err != nil {
				e.rob[int(rs.tag)-1].exception =
					fmt.Errorf("load at %#x: %w", rs.addr, err)
			}
			rs.result = value
		case insts.OpSt:
			// The store value travels as the result; memory is touched
			// at commit so stores never happen speculatively.
			rs.result = rs.vj
		default:
			rs.result = 0
		}

		rs.resultReady = true
		e.stats.Completed++
	}
}

// olderStorePending reports whether a store older than tag still sits in
// the reorder buffer.
func (e *Engine) olderStorePending(tag robTag) bool {
	for k := 0; k < e.robCount; k++ {
		idx := (e.robHead + k) % e.config.ROBSize
		if robTag(idx+1) == tag {
			return false
		}
		if e.rob[idx].busy && e.rob[idx].op == insts.OpSt {
			return true
		}
	}
	return false
}

// writeback moves finished results into the reorder buffer and
// broadcasts each tag on the common data bus, waking dependents.
func (e *Engine) writeback() {
	for i := range e.stations {
		rs := &e.stations[i]
		if !rs.busy || !rs.resultReady {
			continue
		}

		entry := &e.rob[int(rs.tag)-1]
		entry.result = rs.result
		entry.ready = true

		e.broadcast(rs.tag, rs.result)

		rs.busy = false
		rs.resultReady = false
	}
}

// broadcast delivers a completed result to every station waiting on tag.
func (e *Engine) broadcast(tag robTag, result uint64) {
	for i := range e.stations {
		rs := &e.stations[i]
		if !rs.busy {
			continue
		}
		if rs.qj == tag {
			rs.vj = result
			rs.qj = noTag
		}
		if rs.qk == tag {
			rs.vk = result
			rs.qk = noTag
		}
	}
}

// commit retires ready instructions from the head of the reorder buffer,
// in program order, updating architectural state.
func (e *Engine) commit() {
	for e.robCount > 0 {
		entry := &e.rob[e.robHead]
		if !entry.busy || !entry.ready {
			return
		}
		if e.halted {
			return
		}

		if entry.exception != nil {
			e.fault = entry.exception
			e.halted = true
			return
		}

		tag := robTag(e.robHead + 1)

		switch entry.op {
		case insts.OpSt:
			if err := e.memory.Write64(entry.addr, entry.result); err != nil {
				e.fault = fmt.Errorf("store at %#x: %w", entry.addr, err)
				e.halted = true
				return
			}
		case insts.OpCmp:
			e.regFile.Flags = entry.result
		case insts.OpHlt:
			e.halted = true
		}

		if entry.dest != insts.NoReg {
			e.regFile.WriteReg(entry.dest, entry.result)
			// Later issues may have retagged the register; only a
			// status entry still naming this producer is cleared.
			if e.regStatus[entry.dest] == tag {
				e.regStatus[entry.dest] = noTag
			}
		}

		entry.busy = false
		e.robHead = (e.robHead + 1) % e.config.ROBSize
		e.robCount--
		e.stats.Committed++
	}
}

// Reset clears all engine state. Architectural state is left alone.
func (e *Engine) Reset() {
	for i := range e.stations {
		e.stations[i] = station{}
	}
	for i := range e.rob {
		e.rob[i] = robEntry{}
	}
	e.regStatus = [insts.NumRegs]robTag{}
	e.robHead = 0
	e.robCount = 0
	e.halted = false
	e.fault = nil
	e.stats = Stats{}
}

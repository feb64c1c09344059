// Package core wires the execution engines, caches, and branch predictor
// into a single processor model driven by a timing configuration.
package core

import (
	"fmt"

	"github.com/VIKASNARASIMHA1/Spectre/emu"
	"github.com/VIKASNARASIMHA1/Spectre/insts"
	"github.com/VIKASNARASIMHA1/Spectre/timing/cache"
	"github.com/VIKASNARASIMHA1/Spectre/timing/latency"
	"github.com/VIKASNARASIMHA1/Spectre/timing/ooo"
	"github.com/VIKASNARASIMHA1/Spectre/timing/pipeline"
)

// EngineKind selects the execution engine.
type EngineKind int

const (
	// InOrder runs the six-stage pipeline.
	InOrder EngineKind = iota
	// OutOfOrder runs the Tomasulo engine.
	OutOfOrder
)

// Stats holds processor-level performance counters.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall events (issue rejections for the
	// out-of-order engine).
	Stalls uint64
	// Bubbles is the number of flush bubbles injected.
	Bubbles uint64
}

// IPC returns retired instructions per cycle.
func (s Stats) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Instructions) / float64(s.Cycles)
}

// CacheStats aggregates hit/miss counters for the cache hierarchy.
type CacheStats struct {
	L1I cache.Statistics
	L1D cache.Statistics
	L2  cache.Statistics
}

// Processor is the top-level simulator facade. It owns the architectural
// state and one execution engine.
type Processor struct {
	regFile *emu.RegFile
	memory  *emu.Memory
	config  *latency.TimingConfig
	kind    EngineKind

	pipeline *pipeline.Pipeline
	engine   *ooo.Engine

	// Out-of-order front end state.
	decoder     *insts.Decoder
	issueStalls uint64
	fetchDone   bool
}

// NewProcessor creates an in-order processor with default timing and the
// given memory size.
func NewProcessor(memSize uint64) *Processor {
	p, err := NewProcessorWithConfig(memSize, latency.DefaultTimingConfig(), InOrder)
	if err != nil {
		// The default configuration always validates.
		panic(err)
	}
	return p
}

// NewProcessorWithConfig creates a processor with the given timing
// configuration and engine kind.
func NewProcessorWithConfig(
	memSize uint64,
	config *latency.TimingConfig,
	kind EngineKind,
) (*Processor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config: %w", err)
	}

	p := &Processor{
		regFile: &emu.RegFile{},
		memory:  emu.NewMemory(memSize),
		config:  config.Clone(),
		kind:    kind,
		decoder: insts.NewDecoder(),
	}

	switch kind {
	case InOrder:
		l1Config, _ := config.L1.ToCacheConfig()
		l2Config, _ := config.L2.ToCacheConfig()
		predictorConfig, _ := config.Predictor.ToPredictorConfig()

		l1i, err := cache.New(l1Config)
		if err != nil {
			return nil, err
		}
		l1d, err := cache.New(l1Config)
		if err != nil {
			return nil, err
		}
		l2, err := cache.New(l2Config)
		if err != nil {
			return nil, err
		}

		p.pipeline = pipeline.NewPipeline(p.regFile, p.memory,
			pipeline.WithCaches(l1i, l1d),
			pipeline.WithL2(l2),
			pipeline.WithPredictor(pipeline.NewBranchPredictor(predictorConfig)),
			pipeline.WithFlushPenalty(config.FlushPenalty),
		)
	case OutOfOrder:
		p.engine = ooo.NewEngine(p.regFile, p.memory,
			config.Engine.ToEngineConfig())
	default:
		return nil, fmt.Errorf("unknown engine kind %d", kind)
	}

	return p, nil
}

// RegFile returns the architectural register file.
func (p *Processor) RegFile() *emu.RegFile {
	return p.regFile
}

// Memory returns the simulated memory.
func (p *Processor) Memory() *emu.Memory {
	return p.memory
}

// Pipeline returns the in-order pipeline, or nil in out-of-order mode.
func (p *Processor) Pipeline() *pipeline.Pipeline {
	return p.pipeline
}

// Engine returns the out-of-order engine, or nil in in-order mode.
func (p *Processor) Engine() *ooo.Engine {
	return p.engine
}

// PC returns the current program counter.
func (p *Processor) PC() uint64 {
	return p.regFile.PC
}

// LoadProgram copies a program image into memory and points fetch at it.
func (p *Processor) LoadProgram(program []byte, addr uint64) error {
	if err := p.memory.LoadProgram(program, addr); err != nil {
		return err
	}
	p.regFile.PC = addr
	return nil
}

// Step simulates one cycle.
func (p *Processor) Step() {
	if p.kind == InOrder {
		p.pipeline.Tick()
		return
	}
	p.issueNext()
	p.engine.Tick()
}

// issueNext decodes up to issue-width instructions at PC and offers them
// to the engine, advancing PC past each accepted one.
func (p *Processor) issueNext() {
	width := p.config.Engine.IssueWidth
	if width <= 0 {
		width = 1
	}

	for n := 0; n < width; n++ {
		if p.fetchDone || p.engine.Halted() {
			return
		}

		mem := p.memory.Bytes()
		pc := p.regFile.PC
		if pc >= uint64(len(mem)) ||
			pc+uint64(p.decoder.SizeAt(mem, pc)) > uint64(len(mem)) {
			p.fetchDone = true
			return
		}

		inst := p.decoder.Decode(mem, pc)
		if !p.engine.Issue(inst) {
			p.issueStalls++
			return
		}
		p.regFile.PC = pc + uint64(inst.Size())

		if inst.Op == insts.OpHlt {
			p.fetchDone = true
		}
	}
}

// RunCycles simulates up to n cycles, returning true while still running.
func (p *Processor) RunCycles(n uint64) bool {
	for i := uint64(0); i < n; i++ {
		if p.Halted() && !p.busy() {
			return false
		}
		p.Step()
	}
	return !p.Halted() || p.busy()
}

// Run simulates until the processor halts and drains, capped at
// maxCycles. It returns the number of cycles simulated.
func (p *Processor) Run(maxCycles uint64) uint64 {
	var done uint64
	for done < maxCycles {
		if p.Halted() && !p.busy() {
			break
		}
		p.Step()
		done++
	}
	return done
}

// busy reports whether instructions are still in flight.
func (p *Processor) busy() bool {
	if p.kind == InOrder {
		return false // the pipeline's halt flag already implies drain
	}
	return p.engine.InFlight()
}

// Halted reports whether the active engine has stopped.
func (p *Processor) Halted() bool {
	if p.kind == InOrder {
		return p.pipeline.Halted()
	}
	return p.engine.Halted() || p.fetchDone
}

// Fault returns the error that stopped execution, if any.
func (p *Processor) Fault() error {
	if p.kind == InOrder {
		return p.pipeline.Fault()
	}
	return p.engine.Fault()
}

// Stats returns processor-level counters for the active engine.
func (p *Processor) Stats() Stats {
	if p.kind == InOrder {
		s := p.pipeline.Stats()
		return Stats{
			Cycles:       s.Cycles,
			Instructions: s.Instructions,
			Stalls:       s.Stalls,
			Bubbles:      s.Bubbles,
		}
	}

	s := p.engine.Stats()
	return Stats{
		Cycles:       s.Cycles,
		Instructions: s.Committed,
		Stalls:       p.issueStalls,
	}
}

// CacheStats returns the cache hierarchy counters (in-order mode only).
func (p *Processor) CacheStats() CacheStats {
	if p.kind != InOrder {
		return CacheStats{}
	}
	return CacheStats{
		L1I: p.pipeline.L1IStats(),
		L1D: p.pipeline.L1DStats(),
		L2:  p.pipeline.L2Stats(),
	}
}

// PredictorStats returns branch predictor counters (in-order mode only).
func (p *Processor) PredictorStats() pipeline.PredictorStats {
	if p.kind != InOrder {
		return pipeline.PredictorStats{}
	}
	return p.pipeline.Predictor().Stats()
}

// Reset clears engine and architectural state. Memory contents are kept
// so a loaded program can be rerun.
func (p *Processor) Reset() {
	p.regFile.Reset()
	if p.kind == InOrder {
		p.pipeline.Reset()
	} else {
		p.engine.Reset()
		p.issueStalls = 0
		p.fetchDone = false
	}
}

// Package main provides the Spectre CLI.
// Spectre is a cycle-level simulator for a simplified 64-bit processor
// with an in-order pipeline and a Tomasulo out-of-order engine.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/VIKASNARASIMHA1/Spectre/insts"
	"github.com/VIKASNARASIMHA1/Spectre/timing/core"
	"github.com/VIKASNARASIMHA1/Spectre/timing/latency"
)

var (
	outOfOrder = flag.Bool("ooo", false, "Use the out-of-order engine")
	configPath = flag.String("config", "", "Path to timing configuration JSON file")
	maxCycles  = flag.Uint64("cycles", 1_000_000, "Cycle cap for the simulation")
	loadAddr   = flag.Uint64("load-addr", 0x1000, "Address the program is loaded at")
	memSize    = flag.Uint64("mem", 64*1024, "Memory size in bytes")
	disasm     = flag.Bool("disasm", false, "Print a disassembly before running")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	config := latency.DefaultTimingConfig()
	if *configPath != "" {
		var err error
		config, err = latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
	}

	program, name, err := loadProgram()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	kind := core.InOrder
	if *outOfOrder {
		kind = core.OutOfOrder
	}

	processor, err := core.NewProcessorWithConfig(*memSize, config, kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := processor.LoadProgram(program, *loadAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Program: %s (%d bytes at 0x%X)\n", name, len(program), *loadAddr)
	}
	if *disasm {
		printDisassembly(program, *loadAddr)
	}

	cycles := processor.Run(*maxCycles)
	if !processor.Halted() {
		fmt.Fprintf(os.Stderr, "Cycle cap of %d reached before HLT\n", *maxCycles)
	}
	if fault := processor.Fault(); fault != nil {
		fmt.Fprintf(os.Stderr, "Fault: %v\n", fault)
	}

	printStats(processor, cycles)
	if *verbose {
		printRegisters(processor)
	}
}

// loadProgram returns the program image: the file named on the command
// line, or a built-in demo when none is given.
func loadProgram() ([]byte, string, error) {
	if flag.NArg() < 1 {
		return demoProgram(), "built-in demo", nil
	}

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, path, nil
}

// demoProgram exercises the ALU, the memory path, and compare.
func demoProgram() []byte {
	return insts.BuildProgram(
		insts.EncodeMov(0, 10),
		insts.EncodeMov(1, 20),
		insts.EncodeR(insts.OpAdd, 2, 0, 1), // r2 = 30
		insts.EncodeR(insts.OpSub, 3, 1, 0), // r3 = 10
		insts.EncodeR(insts.OpMul, 4, 2, 3), // r4 = 300
		insts.EncodeSt(4, 0x2000),
		insts.EncodeLd(5, 0x2000), // r5 = 300
		insts.EncodeCmp(6, 5, 4),  // flags = 0
		insts.EncodeHlt(),
	)
}

func printDisassembly(program []byte, base uint64) {
	decoder := insts.NewDecoder()
	fmt.Println("\n=== Disassembly ===")
	for addr := uint64(0); addr < uint64(len(program)); {
		inst := decoder.Decode(program, addr)
		fmt.Printf("0x%04X: %s\n", base+addr, inst.Disassemble())
		addr += uint64(inst.Size())
	}
}

func printStats(p *core.Processor, cycles uint64) {
	stats := p.Stats()

	fmt.Println("\n=== Statistics ===")
	fmt.Printf("Cycles:       %d\n", cycles)
	fmt.Printf("Instructions: %d\n", stats.Instructions)
	fmt.Printf("IPC:          %.2f\n", stats.IPC())
	fmt.Printf("Stalls:       %d\n", stats.Stalls)
	fmt.Printf("Bubbles:      %d\n", stats.Bubbles)

	if p.Pipeline() != nil {
		caches := p.CacheStats()
		fmt.Printf("L1I: %d accesses, %.1f%% hits\n",
			caches.L1I.Accesses, caches.L1I.HitRate())
		fmt.Printf("L1D: %d accesses, %.1f%% hits\n",
			caches.L1D.Accesses, caches.L1D.HitRate())
		fmt.Printf("L2:  %d accesses, %.1f%% hits\n",
			caches.L2.Accesses, caches.L2.HitRate())

		predictor := p.PredictorStats()
		fmt.Printf("Branch predictions: %d (%.1f%% correct)\n",
			predictor.Predictions, predictor.Accuracy())
	}
}

func printRegisters(p *core.Processor) {
	rf := p.RegFile()
	fmt.Println("\n=== Registers ===")
	for i, value := range rf.R {
		fmt.Printf("R%02d: 0x%016X", i, value)
		if (i+1)%4 == 0 {
			fmt.Println()
		} else {
			fmt.Print("\t")
		}
	}
	fmt.Printf("PC: 0x%016X  SP: 0x%016X  FLAGS: 0x%016X\n",
		rf.PC, rf.SP, rf.Flags)
}

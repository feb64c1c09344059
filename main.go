// Package main provides the entry point for Spectre.
// Spectre is a cycle-level processor simulator with an in-order pipeline
// and a Tomasulo out-of-order engine.
//
// For the full CLI, use: go run ./cmd/spectre
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("Spectre - Cycle-Level Processor Simulator")
	fmt.Println("")
	fmt.Println("Usage: spectre [options] [program.bin]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -ooo       Use the out-of-order engine")
	fmt.Println("  -config    Path to timing configuration JSON file")
	fmt.Println("  -disasm    Print a disassembly before running")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/spectre' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/spectre' instead.")
	}
}

// Package main provides the entry point for pipesim.
// pipesim is a cycle-by-cycle simulator of a 5-stage MIPS-subset pipeline
// built on Akita.
//
// For the full CLI, use: go run ./cmd/pipesim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("pipesim - 5-stage MIPS pipeline simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: pipesim [options] <program.txt>...")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -cycles        Number of clock cycles to simulate (default 30)")
	fmt.Println("  -config        Path to a JSON or YAML simulation configuration")
	fmt.Println("  -log           Cycle log file (default pipeline_log.txt)")
	fmt.Println("  -format        Cycle log format: text or json")
	fmt.Println("  -stall-policy  Load-use stall policy: bubble or flush")
	fmt.Println("  -functional    Run the functional emulator instead")
	fmt.Println("  -v             Diagnostic verbosity")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/pipesim' for the full CLI.")
	fmt.Println("Run 'go run ./cmd/benchmark' for the timing benchmarks.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/pipesim' instead.")
	}
}

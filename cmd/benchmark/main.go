// Command benchmark runs the pipeline timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv           Output results in CSV format (default: human-readable)
//	-json          Output results as JSON
//	-core          Run only the three core benchmarks
//	-stall-policy  Load-use stall policy: bubble or flush
//	-parallel      Number of benchmarks to run at once
//	-max-cycles    Cycle limit per benchmark
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/benchmarks"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/pipeline"
)

func main() {
	// Parse flags
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as JSON")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	stallPolicy := flag.String("stall-policy", "bubble", "Load-use stall policy: bubble or flush")
	parallel := flag.Int("parallel", 1, "Number of benchmarks to run at once")
	maxCycles := flag.Uint64("max-cycles", 10000, "Cycle limit per benchmark")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	policy, err := pipeline.ParseStallPolicy(*stallPolicy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Configure harness
	config := benchmarks.DefaultConfig()
	config.StallPolicy = policy
	config.Parallel = *parallel
	config.MaxCycles = *maxCycles
	config.Verbose = *verbose
	config.Output = os.Stdout

	// Create harness and add benchmarks
	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	// Run benchmarks
	results, err := harness.RunAll(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Output results
	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		fmt.Println("Pipeline Timing Benchmark Harness")
		fmt.Println("=================================")
		fmt.Println("")
		harness.PrintResults(results)
	}

	for _, r := range results {
		if !r.Verified {
			os.Exit(1)
		}
	}
}

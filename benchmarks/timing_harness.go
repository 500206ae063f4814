// Package benchmarks provides the microbenchmark harness for the pipeline
// timing model.
package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"
	"golang.org/x/sync/errgroup"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/emu"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/core"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/pipeline"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of load-use stall cycles
	StallCycles uint64 `json:"stall_cycles"`

	// Forwards is the number of cycles in which EX used a forwarded operand
	Forwards uint64 `json:"forwards"`

	// SimulatedTime is the run length at the core clock, in seconds
	SimulatedTime float64 `json:"simulated_time_s"`

	// Drained is false if the cycle limit was reached first
	Drained bool `json:"drained"`

	// Verified is true if the final registers and memory match the
	// functional emulator and the benchmark's expectations
	Verified bool `json:"verified"`

	// Mismatch describes the first difference when Verified is false
	Mismatch string `json:"mismatch,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Program is the assembly source, one instruction per element
	Program []string

	// ExpectedRegs lists register values the program must produce
	ExpectedRegs map[uint8]int32

	// ExpectedMem lists memory words (by word index) the program must produce
	ExpectedMem map[int]int32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// StallPolicy selects how load-use hazards are resolved
	StallPolicy pipeline.StallPolicy

	// MaxCycles bounds each run
	MaxCycles uint64

	// Freq is the core clock used to report simulated time
	Freq sim.Freq

	// Parallel is how many benchmarks run at once; 0 or 1 runs serially
	Parallel int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		StallPolicy: pipeline.StallBubble,
		MaxCycles:   10000,
		Freq:        core.DefaultFreq,
		Parallel:    1,
		Output:      os.Stdout,
		Verbose:     false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results in the order the
// benchmarks were added. Each benchmark runs on its own core and engine.
func (h *Harness) RunAll(ctx context.Context) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, len(h.benchmarks))

	g, ctx := errgroup.WithContext(ctx)
	if h.config.Parallel > 1 {
		g.SetLimit(h.config.Parallel)
	} else {
		g.SetLimit(1)
	}

	for i, bench := range h.benchmarks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result, err := h.runBenchmark(bench)
			if err != nil {
				return errors.Wrapf(err, "benchmark %s", bench.Name)
			}
			results[i] = result

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) (BenchmarkResult, error) {
	// Create fresh state
	regFile := &emu.RegFile{}
	memory := emu.NewMemory()

	pipe := pipeline.NewPipeline(regFile, memory, pipeline.WithStallPolicy(h.config.StallPolicy))
	pipe.Initialize(bench.Program)

	c := core.NewCore(core.DefaultName, sim.NewSerialEngine(), h.config.Freq, pipe)

	// Run simulation and measure time
	start := time.Now()
	drained, err := c.RunUntilDrained(h.config.MaxCycles)
	wallTime := time.Since(start)
	if err != nil {
		return BenchmarkResult{}, err
	}

	// Collect statistics
	stats := c.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI,
		StallCycles:         stats.Stalls,
		Forwards:            stats.Forwards,
		SimulatedTime:       stats.SimulatedTime,
		Drained:             drained,
		WallTime:            wallTime,
	}

	result.Mismatch, err = verify(bench, regFile, memory)
	if err != nil {
		return BenchmarkResult{}, err
	}
	result.Verified = result.Mismatch == ""

	return result, nil
}

// verify compares the final state with the functional emulator and the
// benchmark's expected values. It returns a description of the first
// difference, or "" if there is none.
func verify(bench Benchmark, regFile *emu.RegFile, memory *emu.Memory) (string, error) {
	ref := emu.NewEmulator(emu.WithMemory(emu.NewMemoryWithSize(memory.Size())))
	ref.LoadProgram(bench.Program)
	if err := ref.Run(); err != nil {
		return "", errors.Wrap(err, "reference emulator")
	}

	for r := uint8(0); r < uint8(len(regFile.R)); r++ {
		if got, want := regFile.ReadReg(r), ref.RegFile().ReadReg(r); got != want {
			return fmt.Sprintf("$%d = %d, emulator has %d", r, got, want), nil
		}
	}
	for i := 0; i < memory.Size(); i++ {
		if got, want := memory.Word(i), ref.Memory().Word(i); got != want {
			return fmt.Sprintf("mem[%d] = %d, emulator has %d", i, got, want), nil
		}
	}

	for _, r := range sortedKeys(bench.ExpectedRegs) {
		if got := regFile.ReadReg(r); got != bench.ExpectedRegs[r] {
			return fmt.Sprintf("$%d = %d, expected %d", r, got, bench.ExpectedRegs[r]), nil
		}
	}
	for _, i := range sortedKeys(bench.ExpectedMem) {
		if got := memory.Word(i); got != bench.ExpectedMem[i] {
			return fmt.Sprintf("mem[%d] = %d, expected %d", i, got, bench.ExpectedMem[i]), nil
		}
	}

	return "", nil
}

func sortedKeys[K uint8 | int, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Pipeline Timing Benchmark Results ===")
	_, _ = fmt.Fprintf(h.config.Output, "Stall policy: %s\n", h.config.StallPolicy)
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Forwards:             %d\n", r.Forwards)
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Time:       %.1f ns\n", r.SimulatedTime*1e9)
		if !r.Drained {
			_, _ = fmt.Fprintln(h.config.Output, "  Drained:              no (cycle limit reached)")
		}

		if r.Verified {
			_, _ = fmt.Fprintln(h.config.Output, "  Verified:             yes")
		} else {
			_, _ = fmt.Fprintf(h.config.Output, "  Verified:             no (%s)\n", r.Mismatch)
		}

		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		}
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,forwards,drained,verified")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%t,%t\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.Forwards,
			r.Drained,
			r.Verified,
		)
	}
}

// PrintJSON outputs benchmark results as an indented JSON array.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

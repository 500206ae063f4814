// Package main provides the entry point for pipesim.
// pipesim is a cycle-by-cycle simulator of a 5-stage MIPS-subset pipeline.
//
// Usage:
//
//	pipesim [flags] <program.txt>...
//
// Each program runs on its own pipeline for a fixed number of cycles and
// writes a cycle log. With several programs the runs proceed concurrently
// and each log file name gets the program name appended.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"
	"golang.org/x/sync/errgroup"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/config"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/emu"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/loader"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/core"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/pipeline"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/trace"
)

// options holds the parsed command line.
type options struct {
	config     *config.Config
	functional bool
	verbosity  int
	programs   []string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, opts.verbosity)
	if err := run(context.Background(), opts, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger returns a logr.Logger writing to w.
func newLogger(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
		} else {
			fmt.Fprintln(w, args)
		}
	}, funcr.Options{Verbosity: verbosity}).WithName("pipesim")
}

// parseFlags parses args into options. Flags given explicitly override the
// values from the -config file.
func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("pipesim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pipesim [options] <program.txt>...\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	defaults := config.DefaultConfig()
	configPath := fs.String("config", "", "Path to simulation configuration (JSON or YAML)")
	cycles := fs.Uint64("cycles", defaults.Cycles, "Number of clock cycles to simulate")
	logFile := fs.String("log", defaults.LogFile, "Cycle log file")
	logFormat := fs.String("format", defaults.LogFormat, "Cycle log format: text or json")
	stallPolicy := fs.String("stall-policy", defaults.StallPolicy, "Load-use stall policy: bubble or flush")
	functional := fs.Bool("functional", false, "Run the functional emulator instead of the pipeline")
	verbosity := fs.Int("v", 0, "Diagnostic verbosity")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return nil, errors.New("no program given")
	}

	cfg := defaults
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cycles":
			cfg.Cycles = *cycles
		case "log":
			cfg.LogFile = *logFile
		case "format":
			cfg.LogFormat = *logFormat
		case "stall-policy":
			cfg.StallPolicy = *stallPolicy
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &options{
		config:     cfg,
		functional: *functional,
		verbosity:  *verbosity,
		programs:   fs.Args(),
	}, nil
}

// result is the outcome of simulating one program.
type result struct {
	program string
	logPath string
	summary trace.Summary
	emu     *emu.Emulator
}

// run simulates every program and prints the results in argument order.
func run(ctx context.Context, opts *options, stdout io.Writer, logger logr.Logger) error {
	results := make([]result, len(opts.programs))
	logPaths := logPathsFor(opts.config.LogFile, opts.programs)

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range opts.programs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var err error
			if opts.functional {
				results[i], err = runFunctional(path, opts.config, logger)
			} else {
				results[i], err = runTiming(path, logPaths[i], opts.config, logger)
			}

			return errors.Wrap(err, path)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		if len(results) > 1 {
			fmt.Fprintf(stdout, "== %s ==\n", r.program)
		}
		if opts.functional {
			printFunctional(stdout, r)
			continue
		}
		fmt.Fprintf(stdout, "Simulation complete. Log written to '%s'.\n", r.logPath)
		fmt.Fprintf(stdout, "Total instructions executed: %d\n", r.summary.Retired)
	}

	return nil
}

// logPathsFor returns one log file per program. A single program uses
// logFile as is. Otherwise each program's base name is inserted before the
// log file extension, prefixed by its 1-based argument position when two
// programs share a base name, so no two runs write the same file.
func logPathsFor(logFile string, programs []string) []string {
	if len(programs) == 1 {
		return []string{logFile}
	}

	names := make([]string, len(programs))
	seen := make(map[string]int, len(programs))
	for i, program := range programs {
		names[i] = strings.TrimSuffix(filepath.Base(program), filepath.Ext(program))
		seen[names[i]]++
	}

	ext := filepath.Ext(logFile)
	base := strings.TrimSuffix(logFile, ext)
	paths := make([]string, len(programs))
	for i, name := range names {
		if seen[name] > 1 {
			name = strconv.Itoa(i+1) + "_" + name
		}
		paths[i] = base + "_" + name + ext
	}
	return paths
}

func loadProgram(path string) (*loader.Program, error) {
	prog, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	if err := prog.Validate(insts.NewDecoder()); err != nil {
		return nil, err
	}
	return prog, nil
}

// runTiming runs the program on the pipeline for the configured number of
// cycles and writes the cycle log.
func runTiming(path, logPath string, cfg *config.Config, logger logr.Logger) (result, error) {
	logger = logger.WithValues("program", path)

	prog, err := loadProgram(path)
	if err != nil {
		return result{}, err
	}
	logger.V(1).Info("loaded program", "instructions", prog.Len(), "labels", len(prog.Labels))

	policy, err := cfg.Policy()
	if err != nil {
		return result{}, err
	}
	header := trace.NewHeader(path, policy, cfg.Cycles)

	f, err := os.Create(logPath)
	if err != nil {
		return result{}, errors.Wrap(err, "failed to create log file")
	}
	defer func() { _ = f.Close() }()

	writer, err := trace.NewWriter(cfg.LogFormat, f, header)
	if err != nil {
		return result{}, err
	}

	var tracer pipeline.Tracer = writer
	if logger.V(2).Enabled() {
		tracer = trace.Tee(writer, stallLogger{logger})
	}

	pipeOpts := append(cfg.PipelineOptions(), pipeline.WithTracer(tracer))
	pipe := pipeline.NewPipeline(&emu.RegFile{}, cfg.NewMemory(), pipeOpts...)
	pipe.Initialize(prog.Instructions)

	c := core.NewCore(core.DefaultName, sim.NewSerialEngine(), cfg.Freq(), pipe)
	logger.V(1).Info("starting simulation",
		"runID", header.RunID.String(), "cycles", cfg.Cycles, "stallPolicy", policy.String())

	runErr := c.RunCycles(cfg.Cycles)

	summary := trace.NewSummary(header, c.Stats())
	if err := writer.Close(summary); err != nil {
		return result{}, errors.Wrap(err, "failed to write log")
	}
	if err := f.Close(); err != nil {
		return result{}, errors.Wrap(err, "failed to close log")
	}
	if runErr != nil {
		return result{}, runErr
	}

	logger.V(1).Info("simulation finished",
		"retired", summary.Retired, "stalls", summary.Stalls, "cpi", summary.CPI,
		"drained", pipe.Drained())
	if !pipe.Drained() {
		logger.Info("program still in flight after the cycle budget", "pc", pipe.PC())
	}

	return result{program: path, logPath: logPath, summary: summary}, nil
}

// stallLogger reports stall cycles as diagnostics.
type stallLogger struct {
	logger logr.Logger
}

func (s stallLogger) Record(entry pipeline.CycleLogEntry) error {
	if entry.Stalled {
		s.logger.V(2).Info("load-use stall", "cycle", entry.Cycle)
	}
	return nil
}

// runFunctional executes the program on the functional emulator.
func runFunctional(path string, cfg *config.Config, logger logr.Logger) (result, error) {
	prog, err := loadProgram(path)
	if err != nil {
		return result{}, err
	}

	emulator := emu.NewEmulator(emu.WithMemory(cfg.NewMemory()))
	emulator.LoadProgram(prog.Instructions)
	if err := emulator.Run(); err != nil {
		return result{}, err
	}

	logger.V(1).Info("emulation finished", "program", path,
		"instructions", emulator.InstructionCount())

	return result{program: path, emu: emulator}, nil
}

func printFunctional(w io.Writer, r result) {
	fmt.Fprintf(w, "Instructions executed: %d\n", r.emu.InstructionCount())
	fmt.Fprintf(w, "Registers [0-7]: %v\n", r.emu.RegFile().Snapshot(pipeline.DefaultTraceRegisters))
}

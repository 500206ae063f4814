// Package core provides the clocked CPU core model.
// It wraps the pipeline as an akita ticking component so that cycles are
// driven by a simulation engine at a fixed clock frequency.
package core

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/pipeline"
)

// DefaultName is the component name used by the command-line tools. Names
// follow akita's hierarchical naming rules.
const DefaultName = "Core"

// DefaultFreq is the core clock when none is configured.
const DefaultFreq = 1 * sim.GHz

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of load-use stall cycles.
	Stalls uint64
	// Forwards is the number of cycles that used a forwarded operand.
	Forwards uint64
	// CPI is cycles per retired instruction.
	CPI float64
	// SimulatedTime is Cycles at the core clock, in seconds.
	SimulatedTime float64
}

// Core represents a clocked CPU core model.
// It wraps a 5-stage pipeline and ticks it once per clock cycle.
type Core struct {
	*sim.TickingComponent

	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	engine sim.Engine
	freq   sim.Freq

	budget          uint64
	stopWhenDrained bool
	err             error
}

// NewCore creates a core named name that ticks p on engine at freq.
func NewCore(name string, engine sim.Engine, freq sim.Freq, p *pipeline.Pipeline) *Core {
	c := &Core{
		Pipeline: p,
		engine:   engine,
		freq:     freq,
	}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	return c
}

// Freq returns the core clock frequency.
func (c *Core) Freq() sim.Freq {
	return c.freq
}

// Tick advances the pipeline by one cycle. It returns false once the cycle
// budget is used up, the pipeline has drained in RunUntilDrained, or a step
// failed; the engine then stops scheduling ticks.
func (c *Core) Tick() bool {
	if c.err != nil || c.Pipeline.Stats().Cycles >= c.budget {
		return false
	}
	if c.stopWhenDrained && c.Pipeline.Drained() {
		return false
	}

	if _, err := c.Pipeline.Step(); err != nil {
		c.err = err
		return false
	}

	return true
}

// RunCycles executes the core for the specified number of cycles and
// returns the first pipeline error.
func (c *Core) RunCycles(cycles uint64) error {
	return c.run(cycles, false)
}

// RunUntilDrained ticks until every instruction has left the pipeline or
// maxCycles more cycles have elapsed. It reports whether the pipeline
// drained.
func (c *Core) RunUntilDrained(maxCycles uint64) (bool, error) {
	if err := c.run(maxCycles, true); err != nil {
		return false, err
	}
	return c.Pipeline.Drained(), nil
}

func (c *Core) run(cycles uint64, stopWhenDrained bool) error {
	if cycles == 0 {
		return nil
	}

	c.budget = c.Pipeline.Stats().Cycles + cycles
	c.stopWhenDrained = stopWhenDrained
	c.err = nil

	c.TickLater()
	if err := c.engine.Run(); err != nil {
		return errors.Wrap(err, "run engine")
	}

	return c.err
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.Pipeline.Stats()

	stats := Stats{
		Cycles:       pipeStats.Cycles,
		Instructions: pipeStats.Instructions,
		Stalls:       pipeStats.Stalls,
		Forwards:     pipeStats.Forwards,
		CPI:          pipeStats.CPI(),
	}
	if c.freq > 0 {
		stats.SimulatedTime = float64(pipeStats.Cycles) / float64(c.freq)
	}

	return stats
}

// Reset clears all core state.
func (c *Core) Reset() {
	c.Pipeline.Reset()
	c.err = nil
	c.budget = 0
}

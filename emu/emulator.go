package emu

import (
	"github.com/pkg/errors"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Done is true if the program counter has passed the last instruction.
	Done bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes instructions functionally, one at a time and in
// program order, with no pipeline. It is the architectural reference the
// timing pipeline is checked against.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder

	program []string
	pc      int

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemory sets the data memory used by the emulator.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of non-NOP instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram resets the emulator and installs a program.
func (e *Emulator) LoadProgram(program []string) {
	e.Reset()
	e.program = program
}

// Reset clears registers, memory and the program counter.
func (e *Emulator) Reset() {
	e.regFile.Reset()
	e.memory.Reset()
	e.pc = 0
	e.instructionCount = 0
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.pc >= len(e.program) {
		return StepResult{Done: true}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: errors.New("max instructions reached")}
	}

	inst, err := e.decoder.Decode(e.program[e.pc])
	if err != nil {
		return StepResult{Err: errors.Wrapf(err, "instruction %d", e.pc)}
	}

	if err := e.execute(inst); err != nil {
		return StepResult{Err: errors.Wrapf(err, "instruction %d", e.pc)}
	}

	e.pc++
	if !inst.IsNop() {
		e.instructionCount++
	}

	return StepResult{Done: e.pc >= len(e.program)}
}

// Run executes instructions until the program ends or an error occurs.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Done {
			return nil
		}
	}
}

func (e *Emulator) execute(inst *insts.Instruction) error {
	a := e.regFile.ReadReg(inst.Rs)
	b := e.regFile.ReadReg(inst.Rt)

	switch inst.Format {
	case insts.FormatRType, insts.FormatIType:
		rd, _ := inst.DestReg()
		e.regFile.WriteReg(rd, ALUResult(inst, a, b))
	case insts.FormatMemory:
		addr := ALUResult(inst, a, b)
		if inst.IsStore() {
			return e.memory.WriteWord(addr, b)
		}
		v, err := e.memory.ReadWord(addr)
		if err != nil {
			return err
		}
		e.regFile.WriteReg(inst.Rt, v)
	}

	return nil
}

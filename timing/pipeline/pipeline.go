package pipeline

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/emu"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"
)

// DefaultTraceRegisters is the number of registers captured in each cycle
// log entry.
const DefaultTraceRegisters = 8

// ErrUnknownStallPolicy is returned by ParseStallPolicy.
var ErrUnknownStallPolicy = errors.New("unknown stall policy")

// StallPolicy selects how a load-use hazard is resolved.
type StallPolicy int

const (
	// StallBubble holds IF/ID and the PC for one cycle and inserts a bubble
	// into ID/EX. Instructions already past decode keep flowing.
	StallBubble StallPolicy = iota

	// StallFlush holds IF/ID and the PC for one cycle and clears ID/EX,
	// EX/MEM and MEM/WB. The instructions that were in EX and MEM during
	// the stall cycle are lost.
	StallFlush
)

// String returns the policy name used in configuration files.
func (s StallPolicy) String() string {
	switch s {
	case StallBubble:
		return "bubble"
	case StallFlush:
		return "flush"
	default:
		return "unknown"
	}
}

// ParseStallPolicy converts a configuration name into a StallPolicy.
func ParseStallPolicy(name string) (StallPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "bubble":
		return StallBubble, nil
	case "flush":
		return StallFlush, nil
	default:
		return 0, errors.Wrapf(ErrUnknownStallPolicy, "%q", name)
	}
}

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of non-NOP instructions retired.
	Instructions uint64
	// Stalls is the number of load-use stall cycles.
	Stalls uint64
	// Fetched is the number of instructions that entered the pipeline.
	Fetched uint64
	// Forwards is the number of cycles in which EX used a forwarded operand.
	Forwards uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Tracer receives one entry per simulated cycle.
type Tracer interface {
	Record(entry CycleLogEntry) error
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithStallPolicy sets how load-use hazards are resolved.
func WithStallPolicy(policy StallPolicy) PipelineOption {
	return func(p *Pipeline) {
		p.stallPolicy = policy
	}
}

// WithTracer attaches a cycle logger.
func WithTracer(t Tracer) PipelineOption {
	return func(p *Pipeline) {
		p.tracer = t
	}
}

// WithDecoder sets the instruction decoder.
func WithDecoder(d *insts.Decoder) PipelineOption {
	return func(p *Pipeline) {
		p.decodeStage = NewDecodeStage(d)
	}
}

// WithTraceRegisters sets how many registers each cycle log entry captures,
// clamped to [1, insts.NumRegs].
func WithTraceRegisters(n int) PipelineOption {
	return func(p *Pipeline) {
		p.traceRegisters = min(max(n, 1), insts.NumRegs)
	}
}

// Pipeline implements a 5-stage pipelined CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
type Pipeline struct {
	// Pipeline registers
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Hazard detection
	hazardUnit  *HazardUnit
	stallPolicy StallPolicy

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory

	// Program counter (index into the program)
	pc int

	tracer         Tracer
	traceRegisters int

	// Statistics
	stats Statistics
}

// NewPipeline creates a new 5-stage pipeline over the given architectural
// state. The pipeline has no program until Initialize is called.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetchStage:     NewFetchStage(nil),
		decodeStage:    NewDecodeStage(insts.NewDecoder()),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewMemoryStage(memory),
		writebackStage: NewWritebackStage(regFile),
		hazardUnit:     NewHazardUnit(),
		regFile:        regFile,
		memory:         memory,
		traceRegisters: DefaultTraceRegisters,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Initialize resets all state and installs the program. The program is
// copied and never modified.
func (p *Pipeline) Initialize(program []string) {
	p.Reset()
	p.fetchStage = NewFetchStage(append([]string(nil), program...))
}

// Reset clears registers, memory, pipeline registers, the program counter
// and statistics. The installed program is kept.
func (p *Pipeline) Reset() {
	p.regFile.Reset()
	p.memory.Reset()
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
	p.pc = 0
	p.stats = Statistics{}
}

// PC returns the current program counter.
func (p *Pipeline) PC() int {
	return p.pc
}

// RegFile returns the register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Memory returns the data memory.
func (p *Pipeline) Memory() *emu.Memory {
	return p.memory
}

// Retired returns the number of retired instructions.
func (p *Pipeline) Retired() uint64 {
	return p.stats.Instructions
}

// StallPolicy returns the configured stall policy.
func (p *Pipeline) StallPolicy() StallPolicy {
	return p.stallPolicy
}

// GetIFID returns the IF/ID pipeline register.
func (p *Pipeline) GetIFID() *IFIDRegister {
	return &p.ifid
}

// GetIDEX returns the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() *IDEXRegister {
	return &p.idex
}

// GetEXMEM returns the EX/MEM pipeline register.
func (p *Pipeline) GetEXMEM() *EXMEMRegister {
	return &p.exmem
}

// GetMEMWB returns the MEM/WB pipeline register.
func (p *Pipeline) GetMEMWB() *MEMWBRegister {
	return &p.memwb
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Drained reports whether every instruction has been fetched and every
// pipeline register is empty.
func (p *Pipeline) Drained() bool {
	return p.pc >= p.fetchStage.Len() &&
		!p.ifid.Valid && !p.idex.Valid && !p.exmem.Valid && !p.memwb.Valid
}

// RunCycles executes the pipeline for the specified number of cycles,
// stopping at the first error.
func (p *Pipeline) RunCycles(cycles uint64) error {
	for i := uint64(0); i < cycles; i++ {
		if _, err := p.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes one pipeline cycle and returns its log entry.
//
// Stages are evaluated in reverse order (WB→MEM→EX→ID→IF). Every stage reads
// the pipeline registers as they were at the start of the cycle; the new
// values are latched together at the end of the cycle.
//
// Hazard handling:
//   - Forwarding from EX/MEM (preferred) and MEM/WB resolves RAW hazards
//   - A load followed by a reader of its destination stalls for one cycle;
//     the stall policy decides which registers are cleared
//   - On a stall cycle IF/ID and the PC are held and nothing is fetched
//
// Decode and memory errors are reported before any state changes, so the
// register file, memory and counters are those of the previous cycle.
func (p *Pipeline) Step() (CycleLogEntry, error) {
	cycle := p.stats.Cycles + 1

	// Decode the instruction in IF/ID up front so load-use hazards can be
	// detected against the instruction entering EX.
	var decoded DecodeResult
	if p.ifid.Valid {
		var err error
		decoded, err = p.decodeStage.Decode(p.ifid.Text)
		if err != nil {
			return CycleLogEntry{}, errors.Wrapf(err, "cycle %d: instruction %d", cycle, p.ifid.PC)
		}
	}
	loadUseHazard := p.ifid.Valid && p.hazardUnit.DetectLoadUseHazard(decoded.Inst, &p.idex)

	forwarding := p.hazardUnit.DetectForwarding(&p.idex, &p.exmem, &p.memwb)

	// Stage 4: Memory. Runs before write-back; a failed access must leave
	// the cycle without side effects.
	var nextMEMWB MEMWBRegister
	if p.exmem.Valid {
		memResult, err := p.memoryStage.Access(&p.exmem)
		if err != nil {
			return CycleLogEntry{}, errors.Wrapf(err, "cycle %d: instruction %d", cycle, p.exmem.PC)
		}

		nextMEMWB = MEMWBRegister{
			Valid:      true,
			PC:         p.exmem.PC,
			Inst:       p.exmem.Inst,
			ALUResult:  p.exmem.ALUResult,
			MemData:    memResult.MemData,
			StoreValue: p.exmem.StoreValue,
			Rd:         p.exmem.Rd,
			RegWrite:   p.exmem.RegWrite,
			MemToReg:   p.exmem.MemRead,
		}
	}

	// Stage 5: Writeback
	savedMEMWB := p.memwb
	p.writebackStage.Writeback(&p.memwb)
	if p.memwb.Retires() {
		p.stats.Instructions++
	}

	// Stage 3: Execute
	var nextEXMEM EXMEMRegister
	if p.idex.Valid {
		rsValue, rtValue := p.hazardUnit.ApplyForwarding(
			forwarding, &p.idex, p.regFile, &p.exmem, &savedMEMWB)
		if forwarding.Any() {
			p.stats.Forwards++
		}

		execResult := p.executeStage.Execute(&p.idex, rsValue, rtValue)

		nextEXMEM = EXMEMRegister{
			Valid:      true,
			PC:         p.idex.PC,
			Inst:       p.idex.Inst,
			ALUResult:  execResult.ALUResult,
			StoreValue: execResult.StoreValue,
			Rd:         p.idex.Rd,
			MemRead:    p.idex.MemRead,
			MemWrite:   p.idex.MemWrite,
			RegWrite:   p.idex.RegWrite,
		}
	}

	// Stage 2: Decode
	var nextIDEX IDEXRegister
	if p.ifid.Valid && !loadUseHazard {
		nextIDEX = IDEXRegister{
			Valid:    true,
			PC:       p.ifid.PC,
			Inst:     decoded.Inst,
			Rd:       decoded.Rd,
			Rs:       decoded.Rs,
			Rt:       decoded.Rt,
			MemRead:  decoded.MemRead,
			MemWrite: decoded.MemWrite,
			RegWrite: decoded.RegWrite,
		}
	}

	// Stage 1: Fetch
	var nextIFID IFIDRegister
	fetched, didFetch := "", false
	if loadUseHazard {
		nextIFID = p.ifid
		p.stats.Stalls++
	} else if text, ok := p.fetchStage.Fetch(p.pc); ok {
		nextIFID = IFIDRegister{Valid: true, PC: p.pc, Text: text}
		fetched, didFetch = text, true
		p.pc++
		p.stats.Fetched++
	}

	if loadUseHazard && p.stallPolicy == StallFlush {
		nextEXMEM.Clear()
		nextMEMWB.Clear()
	}

	p.memwb = nextMEMWB
	p.exmem = nextEXMEM
	p.idex = nextIDEX
	p.ifid = nextIFID
	p.stats.Cycles = cycle

	entry := p.logEntry(cycle, loadUseHazard, fetched, didFetch)
	if p.tracer != nil {
		if err := p.tracer.Record(entry); err != nil {
			return entry, errors.Wrapf(err, "cycle %d: record trace", cycle)
		}
	}

	return entry, nil
}

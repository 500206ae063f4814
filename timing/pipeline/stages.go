package pipeline

import (
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/emu"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"
)

// FetchStage handles instruction fetch from the program.
type FetchStage struct {
	program []string
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(program []string) *FetchStage {
	return &FetchStage{program: program}
}

// Fetch returns the instruction text at pc, or false past the end of the
// program.
func (s *FetchStage) Fetch(pc int) (string, bool) {
	if pc < 0 || pc >= len(s.program) {
		return "", false
	}
	return s.program[pc], true
}

// Len returns the program length.
func (s *FetchStage) Len() int {
	return len(s.program)
}

// DecodeStage handles instruction decode.
type DecodeStage struct {
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(decoder *insts.Decoder) *DecodeStage {
	return &DecodeStage{decoder: decoder}
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	Inst *insts.Instruction

	// Destination and source registers.
	Rd uint8
	Rs uint8
	Rt uint8

	// Control signals.
	MemRead  bool
	MemWrite bool
	RegWrite bool
}

// Decode decodes the instruction text and derives control signals.
func (s *DecodeStage) Decode(text string) (DecodeResult, error) {
	inst, err := s.decoder.Decode(text)
	if err != nil {
		return DecodeResult{}, err
	}

	result := DecodeResult{
		Inst:     inst,
		Rs:       inst.Rs,
		Rt:       inst.Rt,
		MemRead:  inst.IsLoad(),
		MemWrite: inst.IsStore(),
	}
	result.Rd, result.RegWrite = inst.DestReg()

	return result, nil
}

// ExecuteStage handles ALU operations and address calculation.
type ExecuteStage struct{}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{}
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	ALUResult  int32
	StoreValue int32
}

// Execute performs the ALU operation or address calculation using the
// already-forwarded operand values.
func (s *ExecuteStage) Execute(idex *IDEXRegister, rsValue, rtValue int32) ExecuteResult {
	result := ExecuteResult{}
	if idex.Inst == nil || idex.Inst.IsNop() {
		return result
	}

	result.ALUResult = emu.ALUResult(idex.Inst, rsValue, rtValue)
	if idex.MemWrite {
		result.StoreValue = rtValue
	}

	return result
}

// MemoryStage handles memory load/store operations.
type MemoryStage struct {
	memory *emu.Memory
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory *emu.Memory) *MemoryStage {
	return &MemoryStage{memory: memory}
}

// MemoryResult holds the result of the memory stage.
type MemoryResult struct {
	MemData int32
}

// Access performs memory read or write.
func (s *MemoryStage) Access(exmem *EXMEMRegister) (MemoryResult, error) {
	result := MemoryResult{}

	if !exmem.Valid {
		return result, nil
	}

	switch {
	case exmem.MemRead:
		data, err := s.memory.ReadWord(exmem.Address())
		if err != nil {
			return result, err
		}
		result.MemData = data
	case exmem.MemWrite:
		if err := s.memory.WriteWord(exmem.Address(), exmem.StoreValue); err != nil {
			return result, err
		}
	}

	return result, nil
}

// WritebackStage handles register file writeback.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback writes the result to the register file. Writes to $0 are
// discarded by the register file.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) {
	if !memwb.Valid || !memwb.RegWrite {
		return
	}

	s.regFile.WriteReg(memwb.Rd, memwb.Result())
}

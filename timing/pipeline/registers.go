// Package pipeline models a 5-stage in-order pipeline (IF, ID, EX, MEM, WB)
// with load-use stalls and EX/MEM, MEM/WB forwarding.
package pipeline

import "github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"

// Latch identifies one of the four pipeline registers.
type Latch int

// Pipeline registers, in pipeline order.
const (
	LatchIFID Latch = iota
	LatchIDEX
	LatchEXMEM
	LatchMEMWB

	NumLatches
)

var latchNames = [NumLatches]string{
	LatchIFID:  "IF_ID",
	LatchIDEX:  "ID_EX",
	LatchEXMEM: "EX_MEM",
	LatchMEMWB: "MEM_WB",
}

// String returns the conventional latch name, e.g. "EX_MEM".
func (l Latch) String() string {
	if l < 0 || l >= NumLatches {
		return "?"
	}
	return latchNames[l]
}

// IFIDRegister is the latch between IF and ID. It carries the raw text so
// that decoding happens in ID.
type IFIDRegister struct {
	Valid bool

	// PC is the program index of the fetched instruction.
	PC int

	// Text is the raw source line, decoded in the ID stage.
	Text string
}

// Clear empties the latch.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister is the latch between ID and EX.
type IDEXRegister struct {
	Valid bool

	// PC is the program index of the instruction.
	PC int

	Inst *insts.Instruction

	// Register numbers for hazard detection and forwarding.
	Rd uint8 // Effective destination
	Rs uint8
	Rt uint8

	MemRead  bool // lw
	MemWrite bool // sw
	RegWrite bool
}

// Clear empties the latch.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// EXMEMRegister is the latch between EX and MEM.
type EXMEMRegister struct {
	Valid bool

	// PC is the program index of the instruction.
	PC int

	Inst *insts.Instruction

	// ALUResult is the ALU output, or the effective address for lw/sw.
	ALUResult int32

	// StoreValue is the forwarded rt value of a sw.
	StoreValue int32

	Rd uint8

	MemRead  bool
	MemWrite bool
	RegWrite bool
}

// Clear empties the latch.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// Address returns the effective memory address of a load or store.
func (r *EXMEMRegister) Address() int32 { return r.ALUResult }

// MEMWBRegister is the latch between MEM and WB.
type MEMWBRegister struct {
	Valid bool

	// PC is the program index of the instruction.
	PC int

	Inst *insts.Instruction

	ALUResult  int32
	MemData    int32 // loaded word
	StoreValue int32 // word written by a sw

	Rd uint8

	RegWrite bool
	MemToReg bool
}

// Clear empties the latch.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}

// Result returns the value written back: memory data for loads, the ALU
// result otherwise.
func (r *MEMWBRegister) Result() int32 {
	if r.MemToReg {
		return r.MemData
	}
	return r.ALUResult
}

// Retires reports whether the instruction counts as retired when it leaves
// this register. Empty registers and NOPs do not retire.
func (r *MEMWBRegister) Retires() bool {
	return r.Valid && r.Inst != nil && !r.Inst.IsNop()
}

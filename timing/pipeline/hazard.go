package pipeline

import (
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/emu"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"
)

// ForwardSource names the latch an EX operand is taken from.
type ForwardSource int

const (
	// ForwardNone reads the operand from the register file.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM takes the ALU result of the instruction one ahead.
	ForwardFromEXMEM
	// ForwardFromMEMWB takes the result of the instruction two ahead.
	ForwardFromMEMWB
)

// String returns a short name for the source.
func (f ForwardSource) String() string {
	switch f {
	case ForwardFromEXMEM:
		return "EX_MEM"
	case ForwardFromMEMWB:
		return "MEM_WB"
	default:
		return "REG"
	}
}

// ForwardingResult is the pair of operand sources for one EX cycle.
type ForwardingResult struct {
	// ForwardRs is where rs comes from.
	ForwardRs ForwardSource
	// ForwardRt is where rt comes from: the R-type second source, or
	// store data.
	ForwardRt ForwardSource
}

// Any reports whether at least one operand is forwarded.
func (r ForwardingResult) Any() bool {
	return r.ForwardRs != ForwardNone || r.ForwardRt != ForwardNone
}

// HazardUnit holds the load-use detector and the forwarding unit.
type HazardUnit struct{}

// NewHazardUnit returns a HazardUnit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectForwarding picks the source of each operand the instruction in
// ID/EX reads, looking at the latches as they stood at the start of the
// cycle.
func (h *HazardUnit) DetectForwarding(
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardingResult {
	var result ForwardingResult

	if !idex.Valid || idex.Inst == nil {
		return result
	}

	if idex.Inst.ReadsRs() {
		result.ForwardRs = h.sourceFor(idex.Rs, exmem, memwb)
	}
	if idex.Inst.ReadsRt() {
		result.ForwardRt = h.sourceFor(idex.Rt, exmem, memwb)
	}

	return result
}

// sourceFor returns the newest in-flight producer of reg.
func (h *HazardUnit) sourceFor(
	reg uint8,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardSource {
	// $0 is hard-wired.
	if reg == 0 {
		return ForwardNone
	}

	if exmem.Valid && exmem.RegWrite && exmem.Rd == reg {
		return ForwardFromEXMEM
	}

	if memwb.Valid && memwb.RegWrite && memwb.Rd == reg {
		return ForwardFromMEMWB
	}

	return ForwardNone
}

// DetectLoadUseHazard reports whether next, the instruction being decoded,
// reads the destination of a load currently in ID/EX. The loaded value is
// not available until after MEM, so it cannot be forwarded in time for EX.
func (h *HazardUnit) DetectLoadUseHazard(next *insts.Instruction, idex *IDEXRegister) bool {
	if !idex.Valid || !idex.MemRead {
		return false
	}

	if idex.Rd == 0 || next == nil {
		return false
	}

	return next.Reads(idex.Rd)
}

// GetForwardedValue returns the operand value for source forward, or
// regValue when nothing is forwarded.
func (h *HazardUnit) GetForwardedValue(
	forward ForwardSource,
	regValue int32,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) int32 {
	switch forward {
	case ForwardFromEXMEM:
		return exmem.ALUResult
	case ForwardFromMEMWB:
		return memwb.Result()
	default:
		return regValue
	}
}

// ApplyForwarding resolves both operands of the instruction in ID/EX to
// concrete values, reading the register file for operands that are not
// forwarded.
func (h *HazardUnit) ApplyForwarding(
	forwarding ForwardingResult,
	idex *IDEXRegister,
	regFile *emu.RegFile,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) (rsValue, rtValue int32) {
	rsValue = h.GetForwardedValue(forwarding.ForwardRs, regFile.ReadReg(idex.Rs), exmem, memwb)
	rtValue = h.GetForwardedValue(forwarding.ForwardRt, regFile.ReadReg(idex.Rt), exmem, memwb)
	return rsValue, rtValue
}

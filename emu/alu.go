package emu

import "github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"

// ALUResult computes the result of an arithmetic, logical or comparison
// instruction. a is the rs value; b is the rt value for R-type instructions
// and ignored otherwise. For lw and sw the result is the effective address
// a + imm. Arithmetic wraps at 32 bits.
func ALUResult(inst *insts.Instruction, a, b int32) int32 {
	switch inst.Op {
	case insts.OpADD:
		return a + b
	case insts.OpSUB:
		return a - b
	case insts.OpAND:
		return a & b
	case insts.OpOR:
		return a | b
	case insts.OpSLT:
		return boolToWord(a < b)
	case insts.OpADDI, insts.OpLW, insts.OpSW:
		return a + inst.Imm
	case insts.OpSLTI:
		return boolToWord(a < inst.Imm)
	default:
		return 0
	}
}

func boolToWord(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Package emu provides the architectural state of the MIPS-subset machine
// and a functional (non-pipelined) reference emulator.
package emu

import "github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"

// RegFile represents the general-purpose register file.
// Register 0 is hard-wired to zero: it always reads as 0 and writes to it
// are discarded.
type RegFile struct {
	// R holds registers $0-$31. R[0] is never written.
	R [insts.NumRegs]int32
}

// ReadReg reads a register value. Register 0 and out-of-range indices
// return 0.
func (r *RegFile) ReadReg(reg uint8) int32 {
	if reg == 0 || int(reg) >= len(r.R) {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value int32) {
	if reg == 0 || int(reg) >= len(r.R) {
		return
	}
	r.R[reg] = value
}

// Snapshot returns a copy of the first n registers, n clamped to
// [0, insts.NumRegs].
func (r *RegFile) Snapshot(n int) []int32 {
	n = min(max(n, 0), len(r.R))
	out := make([]int32, n)
	copy(out, r.R[:n])
	return out
}

// Reset zeroes every register.
func (r *RegFile) Reset() {
	r.R = [insts.NumRegs]int32{}
}

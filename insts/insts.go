// Package insts provides MIPS-subset instruction definitions and decoding.
//
// This package turns one line of assembly text into a structured
// instruction record. It supports:
//   - R-type: add, sub, and, or, slt (rd, rs, rt)
//   - I-type: addi, slti (rt, rs, imm)
//   - Memory: lw, sw (rt, offset(rs))
//
// Any other mnemonic, and a blank line, decodes to a NOP record.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode("add $3, $1, $2")
//	fmt.Printf("Op: %v, Rd: %d, Rs: %d, Rt: %d\n", inst.Op, inst.Rd, inst.Rs, inst.Rt)
package insts

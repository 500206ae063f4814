package insts

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NumRegs is the number of architectural registers.
const NumRegs = 32

// RegisterSigil prefixes every register operand, e.g. "$5".
const RegisterSigil = '$'

var (
	// ErrMalformedOperand is returned when an operand does not follow the
	// expected syntax for its mnemonic.
	ErrMalformedOperand = errors.New("malformed operand")

	// ErrRegisterOutOfRange is returned for register indices >= NumRegs.
	ErrRegisterOutOfRange = errors.New("register index out of range")
)

// Op represents a MIPS-subset opcode.
type Op uint8

// Opcodes.
const (
	OpNOP Op = iota
	OpADD
	OpSUB
	OpAND
	OpOR
	OpSLT
	OpADDI
	OpSLTI
	OpLW
	OpSW
)

var opNames = [...]string{
	OpNOP:  "nop",
	OpADD:  "add",
	OpSUB:  "sub",
	OpAND:  "and",
	OpOR:   "or",
	OpSLT:  "slt",
	OpADDI: "addi",
	OpSLTI: "slti",
	OpLW:   "lw",
	OpSW:   "sw",
}

// String returns the mnemonic.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// Format represents the operand layout of an instruction.
type Format uint8

// Instruction formats.
const (
	FormatNop    Format = iota // No operands
	FormatRType                // rd, rs, rt
	FormatIType                // rt, rs, imm
	FormatMemory               // rt, imm(rs)
)

// Instruction represents a decoded instruction.
//
// Which register fields carry meaning depends on Format. Use DestReg,
// ReadsRs and ReadsRt instead of inspecting the fields directly.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Operand layout

	Rd uint8 // Destination register (R-type only)
	Rs uint8 // First source register, or base register for memory ops
	Rt uint8 // Second source (R-type, sw) or destination (I-type, lw)

	Imm int32 // Immediate value or memory offset

	Text string // Source line the instruction was decoded from
}

// DestReg returns the register this instruction writes, if any.
// I-type and load instructions write rt; there is no separate rd.
func (i *Instruction) DestReg() (uint8, bool) {
	switch i.Format {
	case FormatRType:
		return i.Rd, true
	case FormatIType:
		return i.Rt, true
	case FormatMemory:
		if i.Op == OpLW {
			return i.Rt, true
		}
	}
	return 0, false
}

// ReadsRs reports whether rs is a source operand.
func (i *Instruction) ReadsRs() bool {
	return i.Format != FormatNop
}

// ReadsRt reports whether rt is a source operand.
func (i *Instruction) ReadsRt() bool {
	return i.Format == FormatRType || i.Op == OpSW
}

// Reads reports whether reg is one of the instruction's source operands.
func (i *Instruction) Reads(reg uint8) bool {
	return (i.ReadsRs() && i.Rs == reg) || (i.ReadsRt() && i.Rt == reg)
}

// IsLoad returns true for lw.
func (i *Instruction) IsLoad() bool { return i.Op == OpLW }

// IsStore returns true for sw.
func (i *Instruction) IsStore() bool { return i.Op == OpSW }

// IsNop returns true for the no-operation record.
func (i *Instruction) IsNop() bool { return i.Op == OpNOP }

// String renders the instruction in canonical assembly form.
func (i *Instruction) String() string {
	switch i.Format {
	case FormatRType:
		return i.Op.String() + " " + reg(i.Rd) + ", " + reg(i.Rs) + ", " + reg(i.Rt)
	case FormatIType:
		return i.Op.String() + " " + reg(i.Rt) + ", " + reg(i.Rs) + ", " +
			strconv.Itoa(int(i.Imm))
	case FormatMemory:
		return i.Op.String() + " " + reg(i.Rt) + ", " +
			strconv.Itoa(int(i.Imm)) + "(" + reg(i.Rs) + ")"
	default:
		return OpNOP.String()
	}
}

func reg(r uint8) string {
	return string(RegisterSigil) + strconv.Itoa(int(r))
}

// Nop returns a fresh no-operation record.
func Nop() *Instruction {
	return &Instruction{Op: OpNOP, Format: FormatNop}
}

// Decoder decodes assembly text into instructions.
type Decoder struct{}

// NewDecoder creates a new decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses one line of assembly. Unrecognized mnemonics and blank lines
// yield a NOP record and no error. Operand syntax errors are returned
// wrapped around ErrMalformedOperand or ErrRegisterOutOfRange.
func (d *Decoder) Decode(line string) (*Instruction, error) {
	tokens := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(tokens) == 0 {
		return Nop(), nil
	}

	inst := &Instruction{Text: strings.TrimSpace(line)}
	mnemonic := strings.ToLower(tokens[0])
	operands := tokens[1:]

	var err error
	switch mnemonic {
	case "add", "sub", "and", "or", "slt":
		inst.Op = rTypeOps[mnemonic]
		err = d.decodeRType(operands, inst)
	case "addi", "slti":
		inst.Op = iTypeOps[mnemonic]
		err = d.decodeIType(operands, inst)
	case "lw", "sw":
		inst.Op = memOps[mnemonic]
		err = d.decodeMemory(operands, inst)
	default:
		nop := Nop()
		nop.Text = inst.Text
		return nop, nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, "decode %q", inst.Text)
	}
	return inst, nil
}

var (
	rTypeOps = map[string]Op{"add": OpADD, "sub": OpSUB, "and": OpAND, "or": OpOR, "slt": OpSLT}
	iTypeOps = map[string]Op{"addi": OpADDI, "slti": OpSLTI}
	memOps   = map[string]Op{"lw": OpLW, "sw": OpSW}
)

// decodeRType decodes "rd, rs, rt".
func (d *Decoder) decodeRType(operands []string, inst *Instruction) error {
	if err := expectOperands(operands, 3); err != nil {
		return err
	}
	inst.Format = FormatRType

	var err error
	if inst.Rd, err = parseRegister(operands[0]); err != nil {
		return err
	}
	if inst.Rs, err = parseRegister(operands[1]); err != nil {
		return err
	}
	inst.Rt, err = parseRegister(operands[2])
	return err
}

// decodeIType decodes "rt, rs, imm".
func (d *Decoder) decodeIType(operands []string, inst *Instruction) error {
	if err := expectOperands(operands, 3); err != nil {
		return err
	}
	inst.Format = FormatIType

	var err error
	if inst.Rt, err = parseRegister(operands[0]); err != nil {
		return err
	}
	if inst.Rs, err = parseRegister(operands[1]); err != nil {
		return err
	}
	inst.Imm, err = parseImmediate(operands[2])
	return err
}

// decodeMemory decodes "rt, offset(rs)". An empty offset means 0.
func (d *Decoder) decodeMemory(operands []string, inst *Instruction) error {
	if err := expectOperands(operands, 2); err != nil {
		return err
	}
	inst.Format = FormatMemory

	var err error
	if inst.Rt, err = parseRegister(operands[0]); err != nil {
		return err
	}

	addr := operands[1]
	open := strings.IndexByte(addr, '(')
	if open < 0 || !strings.HasSuffix(addr, ")") {
		return errors.Wrapf(ErrMalformedOperand, "memory operand %q: expected offset(base)", addr)
	}

	if offset := addr[:open]; offset != "" {
		if inst.Imm, err = parseImmediate(offset); err != nil {
			return err
		}
	}
	inst.Rs, err = parseRegister(addr[open+1 : len(addr)-1])
	return err
}

func expectOperands(operands []string, n int) error {
	if len(operands) < n {
		return errors.Wrapf(ErrMalformedOperand, "expected %d operands, got %d", n, len(operands))
	}
	return nil
}

func parseRegister(tok string) (uint8, error) {
	if len(tok) < 2 || tok[0] != RegisterSigil {
		return 0, errors.Wrapf(ErrMalformedOperand, "register %q: expected %c<n>", tok, RegisterSigil)
	}

	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedOperand, "register %q: not a number", tok)
	}
	if n < 0 || n >= NumRegs {
		return 0, errors.Wrapf(ErrRegisterOutOfRange, "register %q", tok)
	}
	return uint8(n), nil
}

func parseImmediate(tok string) (int32, error) {
	n, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedOperand, "immediate %q", tok)
	}
	return int32(n), nil
}

package pipeline

import (
	"strconv"
	"strings"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"
)

// EmptyMarker is how an empty pipeline register is rendered.
const EmptyMarker = "<empty>"

// LatchSnapshot is a copy of one pipeline register's contents.
//
// An empty register has Empty set and nothing else. A register holding a
// NOP is not empty: it has Op "nop".
type LatchSnapshot struct {
	Latch Latch  `json:"-"`
	Name  string `json:"name"`
	Empty bool   `json:"empty"`

	PC   int    `json:"pc,omitempty"`
	Text string `json:"text,omitempty"`
	Op   string `json:"op,omitempty"`

	Rd         *uint8 `json:"rd,omitempty"`
	Result     *int32 `json:"result,omitempty"`
	Address    *int32 `json:"address,omitempty"`
	StoreValue *int32 `json:"store_value,omitempty"`
}

// String renders the snapshot for text logs.
func (s LatchSnapshot) String() string {
	if s.Empty {
		return EmptyMarker
	}
	if s.Op == "" {
		return s.Text
	}

	var b strings.Builder
	b.WriteString(s.Text)

	var fields []string
	if s.Rd != nil {
		fields = append(fields, "rd=$"+strconv.Itoa(int(*s.Rd)))
	}
	if s.Address != nil {
		fields = append(fields, "addr="+strconv.Itoa(int(*s.Address)))
	}
	if s.StoreValue != nil {
		fields = append(fields, "val="+strconv.Itoa(int(*s.StoreValue)))
	}
	if s.Result != nil {
		fields = append(fields, "result="+strconv.Itoa(int(*s.Result)))
	}
	if len(fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(fields, " "))
		b.WriteString("]")
	}

	return b.String()
}

// CycleLogEntry records the pipeline state at the end of one cycle.
type CycleLogEntry struct {
	Cycle   uint64 `json:"cycle"`
	Stalled bool   `json:"stalled"`

	// Fetched is the instruction text fetched this cycle; DidFetch is false
	// on stall cycles and after the end of the program.
	Fetched  string `json:"fetched,omitempty"`
	DidFetch bool   `json:"did_fetch"`

	Latches   [NumLatches]LatchSnapshot `json:"latches"`
	Registers []int32                   `json:"registers"`
	Retired   uint64                    `json:"retired"`
}

// Latches returns snapshots of the four pipeline registers.
func (p *Pipeline) Latches() [NumLatches]LatchSnapshot {
	var out [NumLatches]LatchSnapshot

	out[LatchIFID] = snapshotIFID(&p.ifid)
	out[LatchIDEX] = snapshotIDEX(&p.idex)
	out[LatchEXMEM] = snapshotEXMEM(&p.exmem)
	out[LatchMEMWB] = snapshotMEMWB(&p.memwb)

	for i := range out {
		out[i].Latch = Latch(i)
		out[i].Name = Latch(i).String()
	}

	return out
}

func (p *Pipeline) logEntry(cycle uint64, stalled bool, fetched string, didFetch bool) CycleLogEntry {
	return CycleLogEntry{
		Cycle:     cycle,
		Stalled:   stalled,
		Fetched:   fetched,
		DidFetch:  didFetch,
		Latches:   p.Latches(),
		Registers: p.regFile.Snapshot(p.traceRegisters),
		Retired:   p.stats.Instructions,
	}
}

func snapshotIFID(r *IFIDRegister) LatchSnapshot {
	if !r.Valid {
		return LatchSnapshot{Empty: true}
	}
	return LatchSnapshot{PC: r.PC, Text: r.Text}
}

func snapshotInst(pc int, inst *insts.Instruction) LatchSnapshot {
	s := LatchSnapshot{PC: pc, Op: insts.OpNOP.String(), Text: insts.OpNOP.String()}
	if inst != nil {
		s.Op = inst.Op.String()
		s.Text = inst.String()
	}
	return s
}

func snapshotIDEX(r *IDEXRegister) LatchSnapshot {
	if !r.Valid {
		return LatchSnapshot{Empty: true}
	}
	s := snapshotInst(r.PC, r.Inst)
	if r.RegWrite {
		s.Rd = ptr(r.Rd)
	}
	return s
}

func snapshotEXMEM(r *EXMEMRegister) LatchSnapshot {
	if !r.Valid {
		return LatchSnapshot{Empty: true}
	}
	s := snapshotInst(r.PC, r.Inst)
	if r.RegWrite {
		s.Rd = ptr(r.Rd)
	}

	switch {
	case r.MemRead:
		s.Address = ptr(r.Address())
	case r.MemWrite:
		s.Address = ptr(r.Address())
		s.StoreValue = ptr(r.StoreValue)
	case r.RegWrite:
		s.Result = ptr(r.ALUResult)
	}

	return s
}

func snapshotMEMWB(r *MEMWBRegister) LatchSnapshot {
	if !r.Valid {
		return LatchSnapshot{Empty: true}
	}
	s := snapshotInst(r.PC, r.Inst)
	if r.RegWrite {
		s.Rd = ptr(r.Rd)
		s.Result = ptr(r.Result())
	}
	if r.Inst != nil && r.Inst.IsStore() {
		s.Address = ptr(r.ALUResult)
		s.StoreValue = ptr(r.StoreValue)
	}

	return s
}

func ptr[T any](v T) *T {
	return &v
}

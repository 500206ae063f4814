package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/pipeline"
)

// StallMessage is the text log line for a load-use stall cycle.
const StallMessage = "Data hazard detected - Stalling"

// TextWriter renders cycle log entries in the plain text layout:
//
//	Cycle 3
//	Fetched instruction: add $3, $1, $2
//	Pipeline State:
//	  IF_ID: add $3, $1, $2
//	  ID_EX: addi $2, $0, 10 [rd=$2]
//	  EX_MEM: addi $1, $0, 5 [rd=$1 result=5]
//	  MEM_WB: <empty>
//	  Registers [0-7]: [0, 0, 0, 0, 0, 0, 0, 0]
//	  Instructions executed so far: 0
//
// Cycle blocks are separated by a blank line.
type TextWriter struct {
	w      *bufio.Writer
	header Header
	wrote  bool
}

// NewTextWriter creates a TextWriter on w.
func NewTextWriter(w io.Writer, h Header) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w), header: h}
}

func (t *TextWriter) writeHeader() {
	if t.wrote {
		return
	}
	t.wrote = true
	fmt.Fprintf(t.w, "# run %s program=%s stall_policy=%s cycles=%d\n",
		t.header.RunID, t.header.Program, t.header.StallPolicy, t.header.Cycles)
}

// Record writes one cycle block.
func (t *TextWriter) Record(entry pipeline.CycleLogEntry) error {
	t.writeHeader()

	fmt.Fprintf(t.w, "\nCycle %d\n", entry.Cycle)
	if entry.Stalled {
		fmt.Fprintln(t.w, StallMessage)
	}
	if entry.DidFetch {
		fmt.Fprintf(t.w, "Fetched instruction: %s\n", entry.Fetched)
	}

	fmt.Fprintln(t.w, "Pipeline State:")
	for _, latch := range entry.Latches {
		fmt.Fprintf(t.w, "  %s: %s\n", latch.Name, latch)
	}
	if len(entry.Registers) > 0 {
		fmt.Fprintf(t.w, "  Registers [0-%d]: %s\n", len(entry.Registers)-1, formatRegisters(entry.Registers))
	}
	_, err := fmt.Fprintf(t.w, "  Instructions executed so far: %d\n", entry.Retired)

	return err
}

// Close writes the totals and flushes the log.
func (t *TextWriter) Close(s Summary) error {
	t.writeHeader()

	fmt.Fprintf(t.w, "\nTotal instructions executed: %d\n", s.Retired)
	fmt.Fprintf(t.w, "Cycles: %d  Stalls: %d  Forwards: %d  CPI: %.2f\n",
		s.Cycles, s.Stalls, s.Forwards, s.CPI)

	return t.w.Flush()
}

func formatRegisters(regs []int32) string {
	parts := make([]string, len(regs))
	for i, v := range regs {
		parts[i] = strconv.Itoa(int(v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

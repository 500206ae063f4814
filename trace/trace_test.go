package trace_test

import (
	"bytes"
	"strings"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/rs/xid"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/emu"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/core"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/pipeline"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/trace"
)

var program = []string{
	"addi $1, $0, 5",
	"addi $2, $0, 10",
	"add $3, $1, $2",
	"sw $3, 0($0)",
	"lw $4, 0($0)",
}

// run simulates program for cycles cycles, sending entries to tracer.
func run(tracer pipeline.Tracer, cycles uint64, opts ...pipeline.PipelineOption) *pipeline.Pipeline {
	opts = append(opts, pipeline.WithTracer(tracer))
	p := pipeline.NewPipeline(&emu.RegFile{}, emu.NewMemory(), opts...)
	p.Initialize(program)
	Expect(p.RunCycles(cycles)).To(Succeed())
	return p
}

func summaryOf(h trace.Header, p *pipeline.Pipeline) trace.Summary {
	s := p.Stats()
	return trace.NewSummary(h, core.Stats{
		Cycles:       s.Cycles,
		Instructions: s.Instructions,
		Stalls:       s.Stalls,
		Forwards:     s.Forwards,
		CPI:          s.CPI(),
	})
}

var _ = Describe("TextWriter", func() {
	var (
		buf    *bytes.Buffer
		header trace.Header
		writer *trace.TextWriter
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		header = trace.NewHeader("program.txt", pipeline.StallBubble, 20)
		writer = trace.NewTextWriter(buf, header)
	})

	It("should write the header with the run id", func() {
		run(writer, 1)
		Expect(writer.Close(trace.Summary{})).To(Succeed())

		firstLine, _, _ := strings.Cut(buf.String(), "\n")
		Expect(firstLine).To(Equal(
			"# run " + header.RunID.String() + " program=program.txt stall_policy=bubble cycles=20"))
	})

	It("should render cycle blocks", func() {
		run(writer, 3)
		Expect(writer.Close(trace.Summary{})).To(Succeed())

		want := strings.Join([]string{
			"",
			"Cycle 1",
			"Fetched instruction: addi $1, $0, 5",
			"Pipeline State:",
			"  IF_ID: addi $1, $0, 5",
			"  ID_EX: <empty>",
			"  EX_MEM: <empty>",
			"  MEM_WB: <empty>",
			"  Registers [0-7]: [0, 0, 0, 0, 0, 0, 0, 0]",
			"  Instructions executed so far: 0",
			"",
			"Cycle 2",
			"Fetched instruction: addi $2, $0, 10",
			"Pipeline State:",
			"  IF_ID: addi $2, $0, 10",
			"  ID_EX: addi $1, $0, 5 [rd=$1]",
			"  EX_MEM: <empty>",
			"  MEM_WB: <empty>",
			"  Registers [0-7]: [0, 0, 0, 0, 0, 0, 0, 0]",
			"  Instructions executed so far: 0",
			"",
			"Cycle 3",
			"Fetched instruction: add $3, $1, $2",
			"Pipeline State:",
			"  IF_ID: add $3, $1, $2",
			"  ID_EX: addi $2, $0, 10 [rd=$2]",
			"  EX_MEM: addi $1, $0, 5 [rd=$1 result=5]",
			"  MEM_WB: <empty>",
			"  Registers [0-7]: [0, 0, 0, 0, 0, 0, 0, 0]",
			"  Instructions executed so far: 0",
		}, "\n")

		_, body, _ := strings.Cut(buf.String(), "\n")
		Expect(body).To(HavePrefix(want))
	})

	It("should show store addresses and values", func() {
		run(writer, 7)
		Expect(writer.Close(trace.Summary{})).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("  EX_MEM: sw $3, 0($0) [addr=0 val=15]"))
		Expect(buf.String()).To(ContainSubstring("  MEM_WB: add $3, $1, $2 [rd=$3 result=15]"))
	})

	It("should append the totals on close", func() {
		p := run(writer, 20)
		Expect(writer.Close(summaryOf(header, p))).To(Succeed())

		Expect(buf.String()).To(HaveSuffix(
			"  Instructions executed so far: 5\n" +
				"\nTotal instructions executed: 5\n" +
				"Cycles: 20  Stalls: 0  Forwards: 2  CPI: 4.00\n"))
	})

	It("should log stall cycles without a fetch line", func() {
		var stallBuf bytes.Buffer
		w := trace.NewTextWriter(&stallBuf, header)
		p := pipeline.NewPipeline(&emu.RegFile{}, emu.NewMemory(), pipeline.WithTracer(w))
		p.Initialize([]string{"lw $1, 0($0)", "add $2, $1, $1"})
		Expect(p.RunCycles(3)).To(Succeed())
		Expect(w.Close(trace.Summary{})).To(Succeed())

		Expect(stallBuf.String()).To(ContainSubstring(
			"Cycle 3\n" + trace.StallMessage + "\nPipeline State:\n  IF_ID: add $2, $1, $1\n  ID_EX: <empty>\n"))
	})

	It("should honor the number of traced registers", func() {
		run(writer, 1, pipeline.WithTraceRegisters(4))
		Expect(writer.Close(trace.Summary{})).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("  Registers [0-3]: [0, 0, 0, 0]\n"))
	})

	It("should omit the register line when no registers are traced", func() {
		Expect(writer.Record(pipeline.CycleLogEntry{Cycle: 1})).To(Succeed())
		Expect(writer.Close(trace.Summary{})).To(Succeed())

		Expect(buf.String()).NotTo(ContainSubstring("Registers"))
		Expect(buf.String()).To(ContainSubstring("  Instructions executed so far: 0\n"))
	})
})

var _ = Describe("JSONWriter", func() {
	It("should write header, cycles and summary", func() {
		var buf bytes.Buffer
		header := trace.NewHeader("program.txt", pipeline.StallFlush, 10)
		writer := trace.NewJSONWriter(&buf, header)

		p := run(writer, 10)
		summary := summaryOf(header, p)
		Expect(writer.Close(summary)).To(Succeed())

		records, err := trace.ReadJSON(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(12))

		Expect(records[0].Kind).To(Equal(trace.KindHeader))
		Expect(records[0].Header.RunID).To(Equal(header.RunID))
		Expect(records[0].Header.StallPolicy).To(Equal("flush"))

		first := records[1]
		Expect(first.Kind).To(Equal(trace.KindCycle))
		Expect(first.Entry.Cycle).To(Equal(uint64(1)))
		Expect(first.Entry.Latches[pipeline.LatchIFID].Text).To(Equal("addi $1, $0, 5"))
		Expect(first.Entry.Latches[pipeline.LatchIDEX].Empty).To(BeTrue())

		last := records[11]
		Expect(last.Kind).To(Equal(trace.KindSummary))
		Expect(cmp.Diff(summary, *last.Summary)).To(BeEmpty())
	})

	It("should round-trip cycle entries", func() {
		var buf bytes.Buffer
		rec := trace.NewRecorder()
		writer := trace.NewJSONWriter(&buf, trace.NewHeader("p", pipeline.StallBubble, 6))

		run(trace.Tee(rec, writer), 6)
		Expect(writer.Close(trace.Summary{})).To(Succeed())

		records, err := trace.ReadJSON(&buf)
		Expect(err).NotTo(HaveOccurred())

		for i, want := range rec.Entries() {
			got := *records[i+1].Entry
			for l := range got.Latches {
				got.Latches[l].Latch = pipeline.Latch(l)
			}
			Expect(cmp.Diff(want, got)).To(BeEmpty(), "cycle %d", want.Cycle)
		}
	})

	It("should reject malformed logs", func() {
		_, err := trace.ReadJSON(strings.NewReader("{\"kind\":"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewWriter", func() {
	It("should create writers by format", func() {
		h := trace.NewHeader("p", pipeline.StallBubble, 1)

		w, err := trace.NewWriter(trace.FormatText, &bytes.Buffer{}, h)
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(BeAssignableToTypeOf(&trace.TextWriter{}))

		w, err = trace.NewWriter(trace.FormatJSON, &bytes.Buffer{}, h)
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(BeAssignableToTypeOf(&trace.JSONWriter{}))
	})

	It("should reject unknown formats", func() {
		_, err := trace.NewWriter("xml", &bytes.Buffer{}, trace.Header{})
		Expect(errors.Is(err, trace.ErrUnknownFormat)).To(BeTrue())
	})
})

var _ = Describe("Header", func() {
	It("should get a unique run id", func() {
		a := trace.NewHeader("p", pipeline.StallBubble, 1)
		b := trace.NewHeader("p", pipeline.StallBubble, 1)

		Expect(a.RunID).NotTo(Equal(xid.NilID()))
		Expect(a.RunID).NotTo(Equal(b.RunID))
	})
})

type failingTracer struct{}

func (failingTracer) Record(pipeline.CycleLogEntry) error {
	return errors.New("write failed")
}

var _ = Describe("Tee", func() {
	It("should forward entries to every tracer", func() {
		a, b := trace.NewRecorder(), trace.NewRecorder()
		run(trace.Tee(a, b), 4)

		Expect(a.Len()).To(Equal(4))
		Expect(cmp.Diff(a.Entries(), b.Entries())).To(BeEmpty())
	})

	It("should stop at the first error", func() {
		rec := trace.NewRecorder()
		p := pipeline.NewPipeline(&emu.RegFile{}, emu.NewMemory(),
			pipeline.WithTracer(trace.Tee(failingTracer{}, rec)))
		p.Initialize(program)

		_, err := p.Step()
		Expect(err).To(MatchError(ContainSubstring("write failed")))
		Expect(rec.Len()).To(BeZero())
	})
})

var _ = Describe("Recorder", func() {
	It("should report stall cycles", func() {
		rec := trace.NewRecorder()
		p := pipeline.NewPipeline(&emu.RegFile{}, emu.NewMemory(), pipeline.WithTracer(rec))
		p.Initialize([]string{"lw $1, 0($0)", "add $2, $1, $1"})
		Expect(p.RunCycles(8)).To(Succeed())

		Expect(rec.StallCycles()).To(Equal([]uint64{3}))

		rec.Reset()
		Expect(rec.Len()).To(BeZero())
	})
})

package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/emu"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/pipeline"
)

var _ = Describe("Pipeline Stages", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
	})

	Describe("FetchStage", func() {
		var fetchStage *pipeline.FetchStage

		BeforeEach(func() {
			fetchStage = pipeline.NewFetchStage([]string{"addi $1, $0, 5", "sub $2, $1, $1"})
		})

		It("should fetch sequential instructions", func() {
			text1, ok1 := fetchStage.Fetch(0)
			text2, ok2 := fetchStage.Fetch(1)

			Expect(ok1).To(BeTrue())
			Expect(ok2).To(BeTrue())
			Expect(text1).To(Equal("addi $1, $0, 5"))
			Expect(text2).To(Equal("sub $2, $1, $1"))
		})

		It("should report the end of the program", func() {
			_, ok := fetchStage.Fetch(2)
			Expect(ok).To(BeFalse())

			_, ok = fetchStage.Fetch(-1)
			Expect(ok).To(BeFalse())
		})

		It("should report the program length", func() {
			Expect(fetchStage.Len()).To(Equal(2))
			Expect(pipeline.NewFetchStage(nil).Len()).To(BeZero())
		})
	})

	Describe("DecodeStage", func() {
		var decodeStage *pipeline.DecodeStage

		BeforeEach(func() {
			decodeStage = pipeline.NewDecodeStage(insts.NewDecoder())
		})

		It("should derive control signals for R-type instructions", func() {
			result, err := decodeStage.Decode("add $3, $1, $2")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Inst.Op).To(Equal(insts.OpADD))
			Expect(result.Rd).To(Equal(uint8(3)))
			Expect(result.Rs).To(Equal(uint8(1)))
			Expect(result.Rt).To(Equal(uint8(2)))
			Expect(result.RegWrite).To(BeTrue())
			Expect(result.MemRead).To(BeFalse())
			Expect(result.MemWrite).To(BeFalse())
		})

		It("should use rt as the destination of I-type instructions", func() {
			result, err := decodeStage.Decode("slti $4, $1, 9")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Rd).To(Equal(uint8(4)))
			Expect(result.RegWrite).To(BeTrue())
		})

		It("should mark loads as memory reads", func() {
			result, err := decodeStage.Decode("lw $4, 8($2)")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.MemRead).To(BeTrue())
			Expect(result.RegWrite).To(BeTrue())
			Expect(result.Rd).To(Equal(uint8(4)))
			Expect(result.Rs).To(Equal(uint8(2)))
		})

		It("should mark stores as memory writes without a destination", func() {
			result, err := decodeStage.Decode("sw $3, 0($0)")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.MemWrite).To(BeTrue())
			Expect(result.RegWrite).To(BeFalse())
		})

		It("should decode unknown mnemonics as NOPs", func() {
			result, err := decodeStage.Decode("foo $1, $2, $3")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Inst.IsNop()).To(BeTrue())
			Expect(result.RegWrite).To(BeFalse())
		})

		It("should propagate decode errors", func() {
			_, err := decodeStage.Decode("addi $1, $99, 1")
			Expect(errors.Is(err, insts.ErrRegisterOutOfRange)).To(BeTrue())
		})
	})

	Describe("ExecuteStage", func() {
		var executeStage *pipeline.ExecuteStage

		BeforeEach(func() {
			executeStage = pipeline.NewExecuteStage()
		})

		It("should compute R-type results from the supplied operands", func() {
			idex := &pipeline.IDEXRegister{
				Valid: true, Inst: rType(insts.OpSUB, 3, 1, 2),
				Rd: 3, Rs: 1, Rt: 2, RegWrite: true,
			}

			result := executeStage.Execute(idex, 10, 4)

			Expect(result.ALUResult).To(Equal(int32(6)))
		})

		It("should add the immediate for I-type instructions", func() {
			idex := &pipeline.IDEXRegister{
				Valid: true, Inst: iType(insts.OpADDI, 1, 0, -7),
				Rd: 1, RegWrite: true,
			}

			result := executeStage.Execute(idex, 0, 0)

			Expect(result.ALUResult).To(Equal(int32(-7)))
		})

		It("should compute the effective address and store value for stores", func() {
			idex := &pipeline.IDEXRegister{
				Valid: true, Inst: memType(insts.OpSW, 3, 2, 4),
				Rs: 2, Rt: 3, MemWrite: true,
			}

			result := executeStage.Execute(idex, 100, 42)

			Expect(result.ALUResult).To(Equal(int32(104)))
			Expect(result.StoreValue).To(Equal(int32(42)))
		})

		It("should produce nothing for a NOP", func() {
			idex := &pipeline.IDEXRegister{Valid: true, Inst: insts.Nop()}

			result := executeStage.Execute(idex, 5, 6)

			Expect(result).To(Equal(pipeline.ExecuteResult{}))
		})
	})

	Describe("MemoryStage", func() {
		var memoryStage *pipeline.MemoryStage

		BeforeEach(func() {
			memoryStage = pipeline.NewMemoryStage(memory)
		})

		It("should load a word", func() {
			Expect(memory.WriteWord(8, 77)).To(Succeed())
			exmem := &pipeline.EXMEMRegister{Valid: true, ALUResult: 8, MemRead: true}

			result, err := memoryStage.Access(exmem)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.MemData).To(Equal(int32(77)))
		})

		It("should store a word", func() {
			exmem := &pipeline.EXMEMRegister{Valid: true, ALUResult: 12, StoreValue: -5, MemWrite: true}

			_, err := memoryStage.Access(exmem)

			Expect(err).NotTo(HaveOccurred())
			Expect(memory.Word(3)).To(Equal(int32(-5)))
		})

		It("should not touch memory for ALU instructions", func() {
			exmem := &pipeline.EXMEMRegister{Valid: true, ALUResult: 4, RegWrite: true}

			result, err := memoryStage.Access(exmem)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.MemData).To(BeZero())
			Expect(memory.Word(1)).To(BeZero())
		})

		It("should ignore an empty register", func() {
			exmem := &pipeline.EXMEMRegister{ALUResult: -4, MemWrite: true}

			_, err := memoryStage.Access(exmem)

			Expect(err).NotTo(HaveOccurred())
		})

		It("should fail on out-of-range addresses", func() {
			exmem := &pipeline.EXMEMRegister{Valid: true, ALUResult: 4096, MemRead: true}

			_, err := memoryStage.Access(exmem)

			Expect(errors.Is(err, emu.ErrAddressOutOfRange)).To(BeTrue())
		})

		It("should fail on negative addresses", func() {
			exmem := &pipeline.EXMEMRegister{Valid: true, ALUResult: -4, StoreValue: 1, MemWrite: true}

			_, err := memoryStage.Access(exmem)

			Expect(errors.Is(err, emu.ErrAddressOutOfRange)).To(BeTrue())
		})
	})

	Describe("WritebackStage", func() {
		var writebackStage *pipeline.WritebackStage

		BeforeEach(func() {
			writebackStage = pipeline.NewWritebackStage(regFile)
		})

		It("should write the ALU result", func() {
			memwb := &pipeline.MEMWBRegister{Valid: true, Rd: 3, ALUResult: 15, RegWrite: true}

			writebackStage.Writeback(memwb)

			Expect(regFile.ReadReg(3)).To(Equal(int32(15)))
		})

		It("should write loaded data", func() {
			memwb := &pipeline.MEMWBRegister{
				Valid: true, Rd: 4, ALUResult: 0, MemData: 9, RegWrite: true, MemToReg: true,
			}

			writebackStage.Writeback(memwb)

			Expect(regFile.ReadReg(4)).To(Equal(int32(9)))
		})

		It("should discard writes to $0", func() {
			memwb := &pipeline.MEMWBRegister{Valid: true, Rd: 0, ALUResult: 99, RegWrite: true}

			writebackStage.Writeback(memwb)

			Expect(regFile.ReadReg(0)).To(BeZero())
		})

		It("should skip invalid registers and stores", func() {
			writebackStage.Writeback(&pipeline.MEMWBRegister{Rd: 1, ALUResult: 1, RegWrite: true})
			writebackStage.Writeback(&pipeline.MEMWBRegister{Valid: true, Rd: 2, ALUResult: 2})

			Expect(regFile.ReadReg(1)).To(BeZero())
			Expect(regFile.ReadReg(2)).To(BeZero())
		})
	})
})

var _ = Describe("Pipeline registers", func() {
	It("should clear every field", func() {
		exmem := pipeline.EXMEMRegister{Valid: true, PC: 3, ALUResult: 8, Rd: 2, RegWrite: true}
		exmem.Clear()
		Expect(exmem).To(Equal(pipeline.EXMEMRegister{}))

		memwb := pipeline.MEMWBRegister{Valid: true, Inst: insts.Nop(), MemData: 4}
		memwb.Clear()
		Expect(memwb).To(Equal(pipeline.MEMWBRegister{}))
	})

	It("should only retire non-NOP instructions", func() {
		Expect((&pipeline.MEMWBRegister{}).Retires()).To(BeFalse())
		Expect((&pipeline.MEMWBRegister{Valid: true, Inst: insts.Nop()}).Retires()).To(BeFalse())
		Expect((&pipeline.MEMWBRegister{Valid: true, Inst: rType(insts.OpADD, 1, 2, 3)}).Retires()).To(BeTrue())
	})

	It("should name each latch", func() {
		Expect(pipeline.LatchIFID.String()).To(Equal("IF_ID"))
		Expect(pipeline.LatchMEMWB.String()).To(Equal("MEM_WB"))
	})
})

package benchmarks

import "fmt"

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific pipeline characteristic. The programs
// are straight-line code since the instruction set has no branches.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		referenceProgram(),
		arithmeticSequential(),
		dependencyChain(),
		loadUseChain(),
		memorySequential(),
		mixedOperations(),
		arraySum(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: the reference program, forwarding and load-use stalls.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		referenceProgram(),
		dependencyChain(),
		loadUseChain(),
	}
}

// 1. Reference Program - the canonical five-instruction example
func referenceProgram() Benchmark {
	return Benchmark{
		Name:        "reference_program",
		Description: "addi, addi, add, sw, lw - forwarding from both latches",
		Program: []string{
			"addi $1, $0, 5",
			"addi $2, $0, 10",
			"add  $3, $1, $2",
			"sw   $3, 0($0)",
			"lw   $4, 0($0)",
		},
		ExpectedRegs: map[uint8]int32{1: 5, 2: 10, 3: 15, 4: 15},
		ExpectedMem:  map[int]int32{0: 15},
	}
}

// 2. Arithmetic Sequential - independent operations, no hazards
func arithmeticSequential() Benchmark {
	program := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		reg := i%5 + 1
		program = append(program, fmt.Sprintf("addi $%d, $0, %d", reg, i))
	}

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 independent ADDIs - measures ideal throughput",
		Program:      program,
		ExpectedRegs: map[uint8]int32{1: 15, 2: 16, 3: 17, 4: 18, 5: 19},
	}
}

// 3. Dependency Chain - every instruction reads the previous result
func dependencyChain() Benchmark {
	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs ($1 = $1 + 1) - measures EX/MEM forwarding",
		Program:      buildDependencyChain(20),
		ExpectedRegs: map[uint8]int32{1: 20},
	}
}

func buildDependencyChain(n int) []string {
	program := make([]string, n)
	for i := range program {
		program[i] = "addi $1, $1, 1"
	}
	return program
}

// 4. Load-Use Chain - every load is consumed by the next instruction
func loadUseChain() Benchmark {
	program := []string{"addi $1, $0, 1", "sw   $1, 0($0)"}
	for i := 0; i < 8; i++ {
		program = append(program,
			"lw   $2, 0($0)",
			"add  $2, $2, $2",
			"sw   $2, 0($0)",
		)
	}

	return Benchmark{
		Name:         "load_use_chain",
		Description:  "8 load-use pairs doubling a memory word - one stall each",
		Program:      program,
		ExpectedRegs: map[uint8]int32{2: 256},
		ExpectedMem:  map[int]int32{0: 256},
	}
}

// 5. Memory Sequential - stores then loads with no immediate use
func memorySequential() Benchmark {
	program := make([]string, 0, 34)
	program = append(program, "addi $1, $0, 7")
	for i := 0; i < 16; i++ {
		program = append(program, fmt.Sprintf("sw   $1, %d($0)", i*4))
	}
	for i := 0; i < 16; i++ {
		program = append(program, fmt.Sprintf("lw   $%d, %d($0)", i%8+2, i*4))
	}
	program = append(program, "add  $10, $2, $8")

	expectedMem := map[int]int32{}
	for i := 0; i < 16; i++ {
		expectedMem[i] = 7
	}

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "16 stores then 16 loads - memory traffic without stalls",
		Program:      program,
		ExpectedRegs: map[uint8]int32{10: 14},
		ExpectedMem:  expectedMem,
	}
}

// 6. Mixed Operations - every ALU op with a mix of forwarding distances
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "all ALU ops, compares and memory ops interleaved",
		Program: []string{
			"addi $1, $0, 12",
			"addi $2, $0, 10",
			"sub  $3, $1, $2",
			"and  $4, $1, $2",
			"or   $5, $1, $2",
			"slt  $6, $2, $1",
			"slt  $7, $1, $2",
			"slti $8, $3, 3",
			"sw   $5, 4($3)",
			"lw   $9, 4($3)",
			"sub  $10, $9, $4",
			"addi $11, $10, -20",
			"slti $12, $11, 0",
		},
		ExpectedRegs: map[uint8]int32{
			3: 2, 4: 8, 5: 14, 6: 1, 7: 0, 8: 1,
			9: 14, 10: 6, 11: -14, 12: 1,
		},
		ExpectedMem: map[int]int32{1: 14},
	}
}

// 7. Array Sum - initialize an array, then accumulate it
func arraySum() Benchmark {
	const n = 8

	program := make([]string, 0, 3*n+1)
	for i := 0; i < n; i++ {
		program = append(program,
			fmt.Sprintf("addi $1, $0, %d", i+1),
			fmt.Sprintf("sw   $1, %d($0)", 64+i*4),
		)
	}
	for i := 0; i < n; i++ {
		program = append(program,
			fmt.Sprintf("lw   $2, %d($0)", 64+i*4),
			"add  $3, $3, $2",
		)
	}

	return Benchmark{
		Name:         "array_sum",
		Description:  "sum of 1..8 through memory - load-use stall per element",
		Program:      program,
		ExpectedRegs: map[uint8]int32{3: 36},
		ExpectedMem:  map[int]int32{16: 1, 23: 8},
	}
}

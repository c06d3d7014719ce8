package cpu

import "github.com/BySabri/aura16/pkg/isa"

// IFIDView, IDEXView, EXMEMView and MEMWBView attach a human-readable
// disassembly to a latch snapshot for display, without disturbing the
// latch types' own field layout used internally by Step.
type IFIDView struct {
	IFIDLatch
	Disasm string
}

type IDEXView struct {
	IDEXLatch
	Disasm string
}

type EXMEMView struct {
	EXMEMLatch
	Disasm string
}

type MEMWBView struct {
	MEMWBLatch
	Disasm string
}

// State is a snapshot of everything a host needs to display or persist:
// architectural state, latch contents, the current cycle's observability
// records, cumulative histories, and derived performance metrics.
type State struct {
	PC                int
	Cycle             int
	Registers         RegisterFile
	DataMemory        map[uint16]uint16
	InstructionMemory []uint16

	IFID  IFIDView
	IDEX  IDEXView
	EXMEM EXMEMView
	MEMWB MEMWBView

	Halted bool

	ForwardA      *ForwardInfo
	ForwardB      *ForwardInfo
	StallInfo     *StallInfo
	MemoryWarning *MemoryWarning
	ControlHazard *ControlHazard
	FlushOccurred bool

	PipelineHistory []CycleSnapshot
	StallHistory    []int
	ForwardHistory  []ForwardRecord

	Performance Performance
}

func disasmFor(word uint16, valid bool) string {
	if !valid {
		return "NOP"
	}
	return isa.Disassemble(word)
}

// State returns a snapshot of the CPU's full observable state. Slices and
// maps are copied so the caller may hold onto it across further Step calls.
func (c *CPU) State() State {
	instructionsCompleted := len(c.seenInWB)
	totalCycles := c.Cycle
	stallCycles := len(c.StallHistory)
	forwardCycles := len(c.ForwardHistory)

	var cpi, stallRate, forwardRate float64
	if instructionsCompleted > 0 {
		cpi = float64(totalCycles) / float64(instructionsCompleted)
	}
	if totalCycles > 0 {
		stallRate = float64(stallCycles) / float64(totalCycles) * 100
		forwardRate = float64(forwardCycles) / float64(totalCycles) * 100
	}

	dataCopy := make(map[uint16]uint16, len(c.DataMem))
	for k, v := range c.DataMem {
		dataCopy[k] = v
	}
	instrCopy := append([]uint16(nil), c.InstructionMemory...)

	return State{
		PC:                c.PC,
		Cycle:             c.Cycle,
		Registers:         c.Registers,
		DataMemory:        dataCopy,
		InstructionMemory: instrCopy,

		IFID:  IFIDView{c.IFID, disasmFor(c.IFID.Instruction, c.IFID.Valid)},
		IDEX:  IDEXView{c.IDEX, disasmFor(c.IDEX.Instruction, c.IDEX.Valid)},
		EXMEM: EXMEMView{c.EXMEM, disasmFor(c.EXMEM.Instruction, c.EXMEM.Valid)},
		MEMWB: MEMWBView{c.MEMWB, disasmFor(c.MEMWB.Instruction, c.MEMWB.Valid)},

		Halted: c.Halted,

		ForwardA:      c.ForwardA,
		ForwardB:      c.ForwardB,
		StallInfo:     c.StallInfo,
		MemoryWarning: c.MemoryWarning,
		ControlHazard: c.ControlHazard,
		FlushOccurred: c.FlushOccurred,

		PipelineHistory: append([]CycleSnapshot(nil), c.PipelineHistory...),
		StallHistory:    append([]int(nil), c.StallHistory...),
		ForwardHistory:  append([]ForwardRecord(nil), c.ForwardHistory...),

		Performance: Performance{
			Cycles:        totalCycles,
			Instructions:  instructionsCompleted,
			CPI:           round2(cpi),
			StallCycles:   stallCycles,
			StallRate:     round1(stallRate),
			ForwardCycles: forwardCycles,
			ForwardRate:   round1(forwardRate),
			FlushCount:    c.FlushCount,
		},
	}
}

func round1(v float64) float64 { return roundTo(v, 10) }
func round2(v float64) float64 { return roundTo(v, 100) }

func roundTo(v float64, factor float64) float64 {
	if v >= 0 {
		return float64(int64(v*factor+0.5)) / factor
	}
	return float64(int64(v*factor-0.5)) / factor
}

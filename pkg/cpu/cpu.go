// Package cpu implements the five-stage in-order pipelined CPU: register
// file, data memory, the four inter-stage latches, and the per-cycle step
// function with operand forwarding, hazard detection, and branch/jump
// resolution in decode.
package cpu

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/BySabri/aura16/pkg/isa"
)

// CPU is a complete pipeline instance: its architectural state (registers,
// instruction and data memory, program counter) plus its microarchitectural
// state (the four latches and cumulative observability histories). It is
// not safe for concurrent use: Step mutates every field.
type CPU struct {
	PC                int
	Registers         RegisterFile
	InstructionMemory []uint16
	DataMem           DataMemory

	Cycle int

	IFID  IFIDLatch
	IDEX  IDEXLatch
	EXMEM EXMEMLatch
	MEMWB MEMWBLatch

	stall       bool
	ifIDWasHeld bool

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
	FlushCount      int

	seenInIF map[SeenKey]struct{}
	seenInWB map[SeenKey]struct{}
}

// NewCPU returns a CPU with all latches invalid, registers zero, and no
// program loaded.
func NewCPU() *CPU {
	c := &CPU{}
	c.resetState()
	return c
}

// Load resets the CPU and installs words as its instruction memory.
func (c *CPU) Load(words []uint16) {
	c.resetState()
	c.InstructionMemory = append([]uint16(nil), words...)
}

// LoadHex is Load for words given as four-hex-digit strings, the form the
// assembler emits and a host is likely to have on hand.
func (c *CPU) LoadHex(words []string) error {
	parsed := make([]uint16, len(words))
	for i, w := range words {
		v, err := strconv.ParseUint(w, 16, 16)
		if err != nil {
			return errors.Wrapf(err, "invalid instruction word %q at index %d", w, i)
		}
		parsed[i] = uint16(v)
	}
	c.Load(parsed)
	return nil
}

// Reset clears registers, memory, latches, cycle, PC, and histories, but
// preserves the currently loaded instruction memory.
func (c *CPU) Reset() {
	instrMem := c.InstructionMemory
	c.resetState()
	c.InstructionMemory = instrMem
}

func (c *CPU) resetState() {
	*c = CPU{
		DataMem:  make(DataMemory),
		seenInIF: make(map[SeenKey]struct{}),
		seenInWB: make(map[SeenKey]struct{}),
	}
}

// RunAll steps the CPU until it halts or 1000 cycles have elapsed,
// whichever comes first, returning the number of cycles actually run.
func (c *CPU) RunAll() int {
	for i := 0; i < 1000; i++ {
		if !c.Step() {
			return i + 1
		}
	}
	return 1000
}

// Step advances the pipeline by one clock cycle: it reads every latch's
// old contents, computes every stage's new contents as a pure function of
// that old state, then commits the new latches atomically. Returns false
// once the CPU has halted.
func (c *CPU) Step() bool {
	if c.Halted {
		return false
	}

	c.ForwardA = nil
	c.ForwardB = nil
	c.StallInfo = nil
	c.MemoryWarning = nil
	c.ControlHazard = nil
	c.FlushOccurred = false

	oldIFID := c.IFID
	oldIDEX := c.IDEX
	oldEXMEM := c.EXMEM
	oldMEMWB := c.MEMWB

	c.stageWB(oldMEMWB)
	newMEMWB := c.stageMEM(oldEXMEM)
	newEXMEM := c.stageEX(oldIDEX, oldEXMEM, oldMEMWB)
	newIDEX, branchTaken, jumpTarget, hasTarget := c.stageID(oldIFID, oldIDEX, oldEXMEM, oldMEMWB, newEXMEM)
	newIFID := c.stageIF()

	idStageWord, idStagePC, idStageValid := newIDEX.Instruction, newIDEX.PC, newIDEX.Valid

	if hasTarget {
		kind := "Jump"
		if branchTaken {
			kind = "Branch"
		}
		flushed := "NOP"
		if newIFID.Valid {
			flushed = isa.Disassemble(newIFID.Instruction)
		}
		c.ControlHazard = &ControlHazard{
			Kind:               kind,
			FlushedInstruction: flushed,
			TargetAddress:      jumpTarget,
			Reason:             kind + " taken, flushing pipeline",
		}
		c.FlushOccurred = true
		c.FlushCount++
		newIFID = IFIDLatch{}
		c.PC = jumpTarget
	}

	stallOccurred := c.stall
	if c.stall {
		newIDEX = IDEXLatch{}
		newIFID = oldIFID
		c.PC = oldIFID.PC + 1
		c.stall = false
		c.ifIDWasHeld = true
	} else {
		c.ifIDWasHeld = false
	}

	c.IFID = newIFID
	c.IDEX = newIDEX
	c.EXMEM = newEXMEM
	c.MEMWB = newMEMWB

	c.Cycle++

	c.recordHistory(oldIFID, oldMEMWB, stallOccurred, idStageWord, idStagePC, idStageValid)

	if stallOccurred || (!c.IDEX.Valid && oldIFID.Valid) {
		c.StallHistory = append(c.StallHistory, c.Cycle)
	}
	if c.ForwardA != nil || c.ForwardB != nil {
		c.ForwardHistory = append(c.ForwardHistory, ForwardRecord{
			Cycle: c.Cycle, ForwardA: c.ForwardA, ForwardB: c.ForwardB,
		})
	}

	if !c.IFID.Valid && !c.IDEX.Valid && !c.EXMEM.Valid && !c.MEMWB.Valid && c.PC >= len(c.InstructionMemory) {
		c.Halted = true
	}

	return !c.Halted
}

func (c *CPU) recordHistory(oldIFID IFIDLatch, oldMEMWB MEMWBLatch, stallOccurred bool, idStageWord uint16, idStagePC int, idStageValid bool) {
	var ifEntry, idEntry, exEntry, memEntry, wbEntry *StageEntry

	if c.IFID.Valid {
		key := SeenKey{c.IFID.PC, c.IFID.Instruction}
		if _, seen := c.seenInIF[key]; !seen {
			ifEntry = &StageEntry{PC: c.IFID.PC, Word: c.IFID.Instruction}
			c.seenInIF[key] = struct{}{}
		}
	}

	switch {
	case stallOccurred:
		if oldIFID.Valid {
			idEntry = &StageEntry{PC: oldIFID.PC, Word: oldIFID.Instruction}
		}
	case idStageValid:
		idEntry = &StageEntry{PC: idStagePC, Word: idStageWord}
	case c.IDEX.Valid:
		idEntry = &StageEntry{PC: c.IDEX.PC, Word: c.IDEX.Instruction}
	}

	if c.EXMEM.Valid {
		exEntry = &StageEntry{PC: c.EXMEM.PC, Word: c.EXMEM.Instruction}
	}
	if c.MEMWB.Valid {
		memEntry = &StageEntry{PC: c.MEMWB.PC, Word: c.MEMWB.Instruction}
	}
	if oldMEMWB.Valid {
		key := SeenKey{oldMEMWB.PC, oldMEMWB.Instruction}
		if _, seen := c.seenInWB[key]; !seen {
			wbEntry = &StageEntry{PC: oldMEMWB.PC, Word: oldMEMWB.Instruction}
			c.seenInWB[key] = struct{}{}
		}
	}

	c.PipelineHistory = append(c.PipelineHistory, CycleSnapshot{
		Cycle: c.Cycle, IF: ifEntry, ID: idEntry, EX: exEntry, MEM: memEntry, WB: wbEntry,
	})
}

func (c *CPU) stageIF() IFIDLatch {
	if c.PC >= len(c.InstructionMemory) {
		return IFIDLatch{}
	}
	result := IFIDLatch{Instruction: c.InstructionMemory[c.PC], PC: c.PC, Valid: true}
	c.PC++
	return result
}

func aluAdd(a, b uint16) uint16 { return a + b }
func aluSub(a, b uint16) uint16 { return a - b }
func signed16(v uint16) int16   { return int16(v) }

// forward resolves reg's value for decode's branch and JR resolution using
// a three-tier priority order: a same-cycle EX result outranks EX/MEM,
// which outranks MEM/WB, which outranks the value captured at decode.
func forward(reg uint16, fallback uint16, memWB MEMWBLatch, exMEM EXMEMLatch, newExMEM EXMEMLatch) uint16 {
	val := fallback
	if memWB.Valid && memWB.RegWrite && memWB.Rd != 0 && reg == memWB.Rd {
		val = memWB.writebackValue()
	}
	if exMEM.Valid && exMEM.RegWrite && exMEM.Rd != 0 && reg == exMEM.Rd {
		val = exMEM.AluResult
	}
	if newExMEM.Valid && newExMEM.RegWrite && newExMEM.Rd != 0 && reg == newExMEM.Rd {
		val = newExMEM.AluResult
	}
	return val
}

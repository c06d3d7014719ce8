package cpu

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
)

// wireState is the gob wire format for a full CPU snapshot. encoding/gob
// only encodes a struct's exported fields, so CPU's unexported bookkeeping
// (stall, ifIDWasHeld, the two seen-instruction sets) is mirrored here
// under exported names rather than encoded directly off CPU.
type wireState struct {
	PC                int
	Cycle             int
	Registers         RegisterFile
	InstructionMemory []uint16
	DataMem           map[uint16]uint16

	IFID  IFIDLatch
	IDEX  IDEXLatch
	EXMEM EXMEMLatch
	MEMWB MEMWBLatch

	Stall       bool
	IfIDWasHeld bool
	Halted      bool

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

	SeenInIF []SeenKey
	SeenInWB []SeenKey
}

// Serialize produces a self-contained, round-trippable encoding of the
// full CPU state, suitable for a host to persist between requests.
func (c *CPU) Serialize() ([]byte, error) {
	ws := wireState{
		PC:                c.PC,
		Cycle:             c.Cycle,
		Registers:         c.Registers,
		InstructionMemory: append([]uint16(nil), c.InstructionMemory...),
		DataMem:           map[uint16]uint16(c.DataMem),

		IFID:  c.IFID,
		IDEX:  c.IDEX,
		EXMEM: c.EXMEM,
		MEMWB: c.MEMWB,

		Stall:       c.stall,
		IfIDWasHeld: c.ifIDWasHeld,
		Halted:      c.Halted,

		ForwardA:      c.ForwardA,
		ForwardB:      c.ForwardB,
		StallInfo:     c.StallInfo,
		MemoryWarning: c.MemoryWarning,
		ControlHazard: c.ControlHazard,
		FlushOccurred: c.FlushOccurred,

		PipelineHistory: c.PipelineHistory,
		StallHistory:    c.StallHistory,
		ForwardHistory:  c.ForwardHistory,
		FlushCount:      c.FlushCount,
	}
	for k := range c.seenInIF {
		ws.SeenInIF = append(ws.SeenInIF, k)
	}
	for k := range c.seenInWB {
		ws.SeenInWB = append(ws.SeenInWB, k)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ws); err != nil {
		return nil, errors.Wrap(err, "encode cpu state")
	}
	return buf.Bytes(), nil
}

// Restore reconstructs a CPU from bytes produced by Serialize. Stepping
// the result any number of times produces identical subsequent state
// snapshots to the CPU that was serialized.
func Restore(data []byte) (*CPU, error) {
	var ws wireState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&ws); err != nil {
		return nil, errors.Wrap(err, "decode cpu state")
	}

	c := &CPU{
		PC:                ws.PC,
		Cycle:             ws.Cycle,
		Registers:         ws.Registers,
		InstructionMemory: ws.InstructionMemory,
		DataMem:           DataMemory(ws.DataMem),

		IFID:  ws.IFID,
		IDEX:  ws.IDEX,
		EXMEM: ws.EXMEM,
		MEMWB: ws.MEMWB,

		stall:       ws.Stall,
		ifIDWasHeld: ws.IfIDWasHeld,
		Halted:      ws.Halted,

		ForwardA:      ws.ForwardA,
		ForwardB:      ws.ForwardB,
		StallInfo:     ws.StallInfo,
		MemoryWarning: ws.MemoryWarning,
		ControlHazard: ws.ControlHazard,
		FlushOccurred: ws.FlushOccurred,

		PipelineHistory: ws.PipelineHistory,
		StallHistory:    ws.StallHistory,
		ForwardHistory:  ws.ForwardHistory,
		FlushCount:      ws.FlushCount,
	}
	if c.DataMem == nil {
		c.DataMem = make(DataMemory)
	}

	c.seenInIF = make(map[SeenKey]struct{}, len(ws.SeenInIF))
	for _, k := range ws.SeenInIF {
		c.seenInIF[k] = struct{}{}
	}
	c.seenInWB = make(map[SeenKey]struct{}, len(ws.SeenInWB))
	for _, k := range ws.SeenInWB {
		c.seenInWB[k] = struct{}{}
	}

	return c, nil
}

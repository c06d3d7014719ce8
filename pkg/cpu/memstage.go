package cpu

import "fmt"

// stageMEM performs the data-memory access for EX/MEM-old, flagging an
// uninitialized-read warning rather than erroring when a load targets an
// address never written.
func (c *CPU) stageMEM(oldEXMEM EXMEMLatch) MEMWBLatch {
	if !oldEXMEM.Valid {
		return MEMWBLatch{}
	}

	result := MEMWBLatch{
		Instruction: oldEXMEM.Instruction,
		PC:          oldEXMEM.PC,
		Valid:       true,
		AluResult:   oldEXMEM.AluResult,
		Rd:          oldEXMEM.Rd,
		RegWrite:    oldEXMEM.RegWrite,
		MemToReg:    oldEXMEM.MemToReg,
	}

	addr := oldEXMEM.AluResult

	switch {
	case oldEXMEM.MemRead:
		v, ok := c.DataMem.Read(addr)
		if !ok {
			c.MemoryWarning = &MemoryWarning{
				Address: addr,
				Message: fmt.Sprintf("reading from uninitialized address %d (returns 0)", addr),
			}
		}
		result.MemData = v
	case oldEXMEM.MemWrite:
		c.DataMem.Write(addr, oldEXMEM.RtVal)
	}

	return result
}

// stageWB commits MEM/WB-old's result to the register file.
func (c *CPU) stageWB(oldMEMWB MEMWBLatch) {
	if !oldMEMWB.Valid || !oldMEMWB.RegWrite {
		return
	}
	c.Registers.Write(oldMEMWB.Rd, oldMEMWB.writebackValue())
}

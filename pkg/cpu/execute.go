package cpu

// stageEX resolves operand forwarding for ID/EX-old's operands and
// computes the ALU result (or, for LW/SW, the effective address) that
// EX/MEM-new carries forward.
func (c *CPU) stageEX(oldIDEX IDEXLatch, oldEXMEM EXMEMLatch, oldMEMWB MEMWBLatch) EXMEMLatch {
	if !oldIDEX.Valid {
		return EXMEMLatch{}
	}

	result := EXMEMLatch{
		Instruction: oldIDEX.Instruction,
		PC:          oldIDEX.PC,
		Valid:       true,
		Rd:          oldIDEX.Rd,
		RegWrite:    oldIDEX.RegWrite,
		MemRead:     oldIDEX.MemRead,
		MemWrite:    oldIDEX.MemWrite,
		MemToReg:    oldIDEX.MemToReg,
	}

	rsVal, rtVal := oldIDEX.RsVal, oldIDEX.RtVal

	if oldEXMEM.Valid && oldEXMEM.RegWrite && oldEXMEM.Rd != 0 {
		if oldIDEX.Rs == oldEXMEM.Rd {
			rsVal = oldEXMEM.AluResult
			c.ForwardA = &ForwardInfo{Source: "EX_MEM", Reg: oldEXMEM.Rd, Value: oldEXMEM.AluResult}
		}
		if oldIDEX.Rt == oldEXMEM.Rd {
			rtVal = oldEXMEM.AluResult
			c.ForwardB = &ForwardInfo{Source: "EX_MEM", Reg: oldEXMEM.Rd, Value: oldEXMEM.AluResult}
		}
	}

	if oldMEMWB.Valid && oldMEMWB.RegWrite && oldMEMWB.Rd != 0 {
		writeData := oldMEMWB.writebackValue()
		if oldIDEX.Rs == oldMEMWB.Rd && c.ForwardA == nil {
			rsVal = writeData
			c.ForwardA = &ForwardInfo{Source: "MEM_WB", Reg: oldMEMWB.Rd, Value: writeData}
		}
		if oldIDEX.Rt == oldMEMWB.Rd && c.ForwardB == nil {
			rtVal = writeData
			c.ForwardB = &ForwardInfo{Source: "MEM_WB", Reg: oldMEMWB.Rd, Value: writeData}
		}
	}

	result.RtVal = rtVal

	switch oldIDEX.AluOp {
	case AluADD:
		result.AluResult = aluAdd(rsVal, rtVal)
	case AluSUB:
		result.AluResult = aluSub(rsVal, rtVal)
	case AluAND:
		result.AluResult = rsVal & rtVal
	case AluOR:
		result.AluResult = rsVal | rtVal
	case AluSLT:
		if signed16(rsVal) < signed16(rtVal) {
			result.AluResult = 1
		}
	case AluADDI:
		result.AluResult = aluAdd(rsVal, oldIDEX.Imm)
	case AluSUBI:
		result.AluResult = aluSub(rsVal, oldIDEX.Imm)
	case AluSLTI:
		if signed16(rsVal) < signed16(oldIDEX.Imm) {
			result.AluResult = 1
		}
	case AluANDI:
		result.AluResult = rsVal & (oldIDEX.Imm & 0x3F)
	case AluJAL:
		result.AluResult = oldIDEX.RsVal // return address, captured verbatim at decode
	}

	return result
}

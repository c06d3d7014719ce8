package cpu

import "github.com/BySabri/aura16/pkg/isa"

// stageID decodes the instruction fetched into oldIFID, resolves operand
// forwarding for branch/jump comparisons (including same-cycle forwarding
// from newExMEM, computed by EX this same cycle), detects every hazard,
// and, only once no hazard applies, resolves any taken control transfer.
// Detecting hazards before resolving a branch/jump avoids computing a
// target that a simultaneously-asserted stall would have to discard.
func (c *CPU) stageID(oldIFID IFIDLatch, oldIDEX IDEXLatch, oldEXMEM EXMEMLatch, oldMEMWB MEMWBLatch, newExMEM EXMEMLatch) (result IDEXLatch, branchTaken bool, jumpTarget int, hasTarget bool) {
	if !oldIFID.Valid {
		return IDEXLatch{}, false, 0, false
	}

	word := oldIFID.Instruction
	d := isa.Decode(word)

	result.Instruction = word
	result.PC = oldIFID.PC
	result.Valid = true
	result.Opcode = d.Opcode

	isJR := false

	switch d.Opcode {
	case isa.OpR:
		result.Rs, result.Rt, result.Rd, result.Funct = d.Rs, d.Rt, d.Rd, d.Funct
		result.RsVal = c.Registers.Read(d.Rs)
		result.RtVal = c.Registers.Read(d.Rt)

		switch d.Funct {
		case isa.FunctADD:
			result.RegWrite, result.AluOp = true, AluADD
		case isa.FunctSUB:
			result.RegWrite, result.AluOp = true, AluSUB
		case isa.FunctAND:
			result.RegWrite, result.AluOp = true, AluAND
		case isa.FunctOR:
			result.RegWrite, result.AluOp = true, AluOR
		case isa.FunctSLT:
			result.RegWrite, result.AluOp = true, AluSLT
		case isa.FunctJR:
			result.Jump = true
			isJR = true
		default:
			// reserved funct (6, 7): no control signals, no jump; the
			// latch stays valid and passes through without effect.
		}

	case isa.OpJUMP, isa.OpJAL:
		result.Address = d.Address
		result.Jump = true
		if d.Opcode == isa.OpJAL {
			result.RegWrite = true
			result.Rd = 7
			result.RsVal = uint16(oldIFID.PC + 1)
			result.AluOp = AluJAL
		}

	default: // I-type
		result.Rs, result.Rt = d.Rs, d.Rt
		result.Rd = d.Rt
		result.Imm = d.Imm
		result.RsVal = c.Registers.Read(d.Rs)
		result.RtVal = c.Registers.Read(d.Rt)

		switch d.Opcode {
		case isa.OpLW:
			result.MemRead, result.MemToReg, result.RegWrite, result.AluOp = true, true, true, AluADDI
		case isa.OpSW:
			result.MemWrite, result.AluOp = true, AluADDI
		case isa.OpADDI:
			result.RegWrite, result.AluOp = true, AluADDI
		case isa.OpSUBI:
			result.RegWrite, result.AluOp = true, AluSUBI
		case isa.OpSLTI:
			result.RegWrite, result.AluOp = true, AluSLTI
		case isa.OpBEQ, isa.OpBNQ:
			result.Branch = true
		case isa.OpANDI:
			result.RegWrite, result.AluOp = true, AluANDI
		}
	}

	// Hazard case 1: a general-purpose load-use hazard against any
	// in-flight load still in ID/EX-old.
	if oldIDEX.Valid && oldIDEX.MemRead {
		ldRd := oldIDEX.Rd
		switch {
		case result.Rs == ldRd && ldRd != 0:
			c.stall = true
			c.StallInfo = loadUseStallInfo("Load-Use Hazard", ldRd, oldIDEX, word)
			return result, false, 0, false
		case result.Rt == ldRd && ldRd != 0:
			c.stall = true
			c.StallInfo = loadUseStallInfo("Load-Use Hazard", ldRd, oldIDEX, word)
			return result, false, 0, false
		}
	}

	// Hazard case 2: a load whose data is only available after MEM,
	// blocking a branch or jump resolved here in decode.
	if (result.Branch || result.Jump) && oldEXMEM.Valid && oldEXMEM.MemToReg {
		ldRd := oldEXMEM.Rd
		if ldRd != 0 && (result.Rs == ldRd || result.Rt == ldRd) {
			c.stall = true
			c.StallInfo = &StallInfo{
				Kind: "Load-Use Hazard (Branch)", WaitingReg: ldRd,
				WaitingFor: "LW in MEM stage", BlockedInstr: isa.Disassemble(word),
				Reason: "branch/jump needs a register still being loaded in MEM",
			}
			return result, false, 0, false
		}
	}

	// Hazard case 3 (JR only): conservatively stall rather than trust an
	// immediately-preceding ALU producer's same-cycle forward.
	if isJR && oldIDEX.Valid && oldIDEX.RegWrite && oldIDEX.Rd == result.Rs && result.Rs != 0 {
		c.stall = true
		c.StallInfo = &StallInfo{
			Kind: "Data Hazard (JR)", WaitingReg: result.Rs,
			WaitingFor: isa.Disassemble(oldIDEX.Instruction), BlockedInstr: "JR",
			Reason: "JR needs a register still being produced by the previous instruction",
		}
		return result, false, 0, false
	}

	switch {
	case isJR:
		target := forward(result.Rs, result.RsVal, oldMEMWB, oldEXMEM, newExMEM)
		return result, false, int(target), true

	case d.Opcode == isa.OpJUMP || d.Opcode == isa.OpJAL:
		return result, false, int(result.Address), true

	case d.Opcode == isa.OpBEQ:
		rsVal := forward(result.Rs, result.RsVal, oldMEMWB, oldEXMEM, newExMEM)
		rtVal := forward(result.Rt, result.RtVal, oldMEMWB, oldEXMEM, newExMEM)
		if rsVal == rtVal {
			return result, true, oldIFID.PC + 1 + int(int16(result.Imm)), true
		}

	case d.Opcode == isa.OpBNQ:
		rsVal := forward(result.Rs, result.RsVal, oldMEMWB, oldEXMEM, newExMEM)
		rtVal := forward(result.Rt, result.RtVal, oldMEMWB, oldEXMEM, newExMEM)
		if rsVal != rtVal {
			return result, true, oldIFID.PC + 1 + int(int16(result.Imm)), true
		}
	}

	return result, false, 0, false
}

func loadUseStallInfo(kind string, ldRd uint16, oldIDEX IDEXLatch, blocked uint16) *StallInfo {
	return &StallInfo{
		Kind: kind, WaitingReg: ldRd,
		WaitingFor:   isa.Disassemble(oldIDEX.Instruction),
		BlockedInstr: isa.Disassemble(blocked),
		Reason:       "awaiting memory data from an in-flight load",
	}
}

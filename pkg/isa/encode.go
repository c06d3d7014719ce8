package isa

// EncodeR packs an R-type word: opcode(0000) | rs(3) | rt(3) | rd(3) | funct(3).
func EncodeR(rs, rt, rd, funct uint16) uint16 {
	return (OpR << 12) | ((rs & 0x7) << 9) | ((rt & 0x7) << 6) | ((rd & 0x7) << 3) | (funct & 0x7)
}

// EncodeI packs an I-type word: opcode(4) | rs(3) | rt(3) | imm(6).
// imm is taken as its low 6 bits, i.e. already in two's-complement form if negative.
func EncodeI(opcode, rs, rt, imm uint16) uint16 {
	return (opcode << 12) | ((rs & 0x7) << 9) | ((rt & 0x7) << 6) | (imm & 0x3F)
}

// EncodeJ packs a J-type word: opcode(4) | address(12).
func EncodeJ(opcode, address uint16) uint16 {
	return (opcode << 12) | (address & 0xFFF)
}

// SignExtend6 sign-extends a 6-bit field to a full 16-bit signed value
// (represented as uint16, two's complement).
func SignExtend6(imm6 uint16) uint16 {
	imm6 &= 0x3F
	if imm6&0x20 != 0 {
		return imm6 | 0xFFC0
	}
	return imm6
}

// Decoded holds every field extractable from a raw instruction word,
// independent of which format it turns out to be — the CPU's decode stage
// and the disassembler both build on this.
type Decoded struct {
	Word     uint16
	Opcode   uint16
	Format   Format
	Mnemonic Mnemonic

	Rs, Rt, Rd uint16
	Funct      uint16
	Imm        uint16 // sign-extended 16-bit form for I-type; raw 6-bit stored in Imm6
	Imm6       uint16 // raw 6-bit field, as encoded
	Address    uint16 // 12-bit field, for J-type
}

// Decode extracts every field of a 16-bit instruction word and classifies
// its mnemonic. Reserved R-type functs (6, 7) and unassigned opcodes yield
// Mnemonic == NOP with Format == FormatInvalid.
func Decode(word uint16) Decoded {
	opcode := (word >> 12) & 0xF
	d := Decoded{Word: word, Opcode: opcode}

	switch opcode {
	case OpR:
		rs := (word >> 9) & 0x7
		rt := (word >> 6) & 0x7
		rd := (word >> 3) & 0x7
		funct := word & 0x7
		d.Rs, d.Rt, d.Rd, d.Funct = rs, rt, rd, funct
		if m, ok := functToR[funct]; ok {
			d.Format = FormatR
			d.Mnemonic = m
		} else {
			d.Format = FormatInvalid
			d.Mnemonic = NOP
		}
	case OpJUMP, OpJAL:
		d.Address = word & 0xFFF
		d.Format = FormatJ
		d.Mnemonic = opcodeToJ[opcode]
	default:
		rs := (word >> 9) & 0x7
		rt := (word >> 6) & 0x7
		imm6 := word & 0x3F
		d.Rs, d.Rt = rs, rt
		d.Rd = rt // I-type writes to rt
		d.Imm6 = imm6
		d.Imm = SignExtend6(imm6)
		if m, ok := opcodeToI[opcode]; ok {
			d.Format = FormatI
			d.Mnemonic = m
		} else {
			d.Format = FormatInvalid
			d.Mnemonic = NOP
		}
	}
	return d
}

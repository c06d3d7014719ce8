package isa

import (
	"fmt"
	"strconv"
)

// Disassemble returns the human-readable assembly text for a raw
// instruction word. It is the structural inverse of the encoder: an
// unrecognized funct/opcode prints "???".
func Disassemble(word uint16) string {
	d := Decode(word)

	switch d.Format {
	case FormatR:
		if d.Mnemonic == JR {
			return fmt.Sprintf("JR $r%d", d.Rs)
		}
		return fmt.Sprintf("%s $r%d, $r%d, $r%d", d.Mnemonic, d.Rd, d.Rs, d.Rt)
	case FormatJ:
		return fmt.Sprintf("%s %d", d.Mnemonic, d.Address)
	case FormatI:
		switch d.Mnemonic {
		case LW, SW:
			return fmt.Sprintf("%s $r%d, %d($r%d)", d.Mnemonic, d.Rt, int16(d.Imm), d.Rs)
		case BEQ, BNQ:
			return fmt.Sprintf("%s $r%d, $r%d, %d", d.Mnemonic, d.Rs, d.Rt, int16(d.Imm))
		case ANDI:
			return fmt.Sprintf("ANDI $r%d, $r%d, %d", d.Rt, d.Rs, int16(d.Imm))
		default: // ADDI, SUBI, SLTI
			return fmt.Sprintf("%s $r%d, $r%d, %d", d.Mnemonic, d.Rt, d.Rs, int16(d.Imm))
		}
	}
	return "???"
}

// DisassembleHex parses a 4-hex-digit word and disassembles it; an
// unparseable string also yields "???".
func DisassembleHex(hex string) string {
	v, err := strconv.ParseUint(hex, 16, 16)
	if err != nil {
		return "???"
	}
	return Disassemble(uint16(v))
}

// FormatWord renders a word as four uppercase hex digits, the assembler's
// output format.
func FormatWord(word uint16) string {
	return fmt.Sprintf("%04X", word)
}

// Package asm implements the AURA16 two-pass assembler: tokenizing source
// lines, parsing operands, resolving labels, and emitting 16-bit machine
// words.
package asm

import (
	"strconv"
	"strings"

	"github.com/BySabri/aura16/pkg/isa"
)

// Program is the assembler's output: the emitted words (both as uint16 and
// as four-hex-digit strings), a map from instruction address to its
// trimmed source line (for display), and the resolved label table.
type Program struct {
	Words        []uint16
	Hex          []string
	AddrToSource map[int]string
	Labels       map[string]int
}

type pendingInstr struct {
	addr     int
	lineNum  int
	mnemonic string
	operands []string
}

// Assemble runs the two-pass assembler over source text: pass 1 assigns
// addresses and records labels (never failing on forward references); pass 2
// encodes each instruction, resolving label references.
// On error, assembly aborts immediately and no partial output is returned.
func Assemble(source string) (*Program, error) {
	lines := strings.Split(source, "\n")

	labels := map[string]int{}
	var pending []pendingInstr

	currentAddr := 0
	for i, line := range lines {
		lineNum := i + 1
		tok := tokenizeLine(line)

		if tok.HasLabel {
			if _, dup := labels[tok.Label]; dup {
				return nil, newErr(lineNum, "duplicate label: %s", tok.Label)
			}
			labels[tok.Label] = currentAddr
		}

		if tok.HasInstr {
			pending = append(pending, pendingInstr{
				addr: currentAddr, lineNum: lineNum,
				mnemonic: tok.Mnemonic, operands: tok.Operands,
			})
			currentAddr++
		}
	}

	prog := &Program{
		AddrToSource: make(map[int]string, len(pending)),
		Labels:       labels,
	}
	for _, instr := range pending {
		word, err := encodeInstruction(instr.mnemonic, instr.operands, labels, instr.addr)
		if err != nil {
			return nil, atLine(instr.lineNum, err)
		}
		prog.Words = append(prog.Words, word)
		prog.Hex = append(prog.Hex, isa.FormatWord(word))
		prog.AddrToSource[instr.addr] = strings.TrimSpace(lines[instr.lineNum-1])
	}
	return prog, nil
}

// encodeInstruction dispatches on the mnemonic's operand-format family and
// encodes one instruction word.
func encodeInstruction(mnemonic string, operands []string, labels map[string]int, addr int) (uint16, error) {
	m := isa.Mnemonic(mnemonic)
	format, known := isa.FormatOf(m)
	if !known {
		return 0, newErr(0, "unknown instruction: %s", mnemonic)
	}

	switch format {
	case isa.FormatR:
		return encodeRForm(m, operands)
	case isa.FormatI:
		return encodeIForm(m, operands, labels, addr)
	case isa.FormatJ:
		return encodeJForm(m, operands, labels)
	default:
		return 0, newErr(0, "unknown instruction: %s", mnemonic)
	}
}

func encodeRForm(m isa.Mnemonic, operands []string) (uint16, error) {
	if m == isa.JR {
		if len(operands) != 1 {
			return 0, newErr(0, "JR requires 1 operand, got %d", len(operands))
		}
		rs, err := parseRegister(operands[0])
		if err != nil {
			return 0, err
		}
		return isa.EncodeR(rs, 0, 0, isa.FunctOf(m)), nil
	}

	if len(operands) != 3 {
		return 0, newErr(0, "%s requires 3 operands, got %d", m, len(operands))
	}
	rd, err := parseRegister(operands[0])
	if err != nil {
		return 0, err
	}
	rs, err := parseRegister(operands[1])
	if err != nil {
		return 0, err
	}
	rt, err := parseRegister(operands[2])
	if err != nil {
		return 0, err
	}
	return isa.EncodeR(rs, rt, rd, isa.FunctOf(m)), nil
}

func encodeIForm(m isa.Mnemonic, operands []string, labels map[string]int, addr int) (uint16, error) {
	opcode := isa.IOpcodeOf(m)

	switch m {
	case isa.LW, isa.SW:
		var rt, rs, imm uint16
		var err error
		switch len(operands) {
		case 2:
			rt, err = parseRegister(operands[0])
			if err != nil {
				return 0, err
			}
			rs, imm, err = parseMemOperand(operands[1])
			if err != nil {
				return 0, err
			}
		case 3:
			rt, err = parseRegister(operands[0])
			if err != nil {
				return 0, err
			}
			rs, err = parseRegister(operands[1])
			if err != nil {
				return 0, err
			}
			imm, err = parseImmediate(operands[2], 6)
			if err != nil {
				return 0, err
			}
		default:
			return 0, newErr(0, "%s requires 2-3 operands", m)
		}
		return isa.EncodeI(opcode, rs, rt, imm), nil

	case isa.BEQ, isa.BNQ:
		if len(operands) != 3 {
			return 0, newErr(0, "%s requires 3 operands", m)
		}
		rs, err := parseRegister(operands[0])
		if err != nil {
			return 0, err
		}
		rt, err := parseRegister(operands[1])
		if err != nil {
			return 0, err
		}
		target := strings.TrimSpace(operands[2])
		var imm uint16
		if labelAddr, ok := labels[target]; ok {
			offset := labelAddr - (addr + 1)
			imm, err = parseImmediate(strconv.Itoa(offset), 6)
		} else {
			imm, err = parseImmediate(target, 6)
		}
		if err != nil {
			return 0, err
		}
		return isa.EncodeI(opcode, rs, rt, imm), nil

	default: // ADDI, SUBI, SLTI, ANDI: rt, rs, imm
		if len(operands) != 3 {
			return 0, newErr(0, "%s requires 3 operands", m)
		}
		rt, err := parseRegister(operands[0])
		if err != nil {
			return 0, err
		}
		rs, err := parseRegister(operands[1])
		if err != nil {
			return 0, err
		}
		imm, err := parseImmediate(operands[2], 6)
		if err != nil {
			return 0, err
		}
		return isa.EncodeI(opcode, rs, rt, imm), nil
	}
}

func encodeJForm(m isa.Mnemonic, operands []string, labels map[string]int) (uint16, error) {
	if len(operands) != 1 {
		return 0, newErr(0, "%s requires 1 operand", m)
	}
	target := strings.TrimSpace(operands[0])

	var address int64
	if labelAddr, ok := labels[target]; ok {
		address = int64(labelAddr)
	} else {
		var err error
		lower := strings.ToLower(target)
		if strings.HasPrefix(lower, "0x") {
			address, err = strconv.ParseInt(lower[2:], 16, 64)
		} else {
			address, err = strconv.ParseInt(target, 10, 64)
		}
		if err != nil {
			return 0, newErr(0, "undefined label or invalid address: %s", target)
		}
	}

	if address < 0 || address > 0xFFF {
		return 0, newErr(0, "jump address %d out of range [0, 4095]", address)
	}
	return isa.EncodeJ(isa.JOpcodeOf(m), uint16(address)), nil
}

package asm

import "testing"

func assembleOrFatal(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble(%q) returned error: %v", src, err)
	}
	return prog
}

func TestAssembleRType(t *testing.T) {
	prog := assembleOrFatal(t, "ADD $r3, $r1, $r2")
	if len(prog.Words) != 1 {
		t.Fatalf("expected 1 word, got %d", len(prog.Words))
	}
	// opcode=0000 rs=001 rt=010 rd=011 funct=000
	want := uint16(0b0000_001_010_011_000)
	if prog.Words[0] != want {
		t.Errorf("got %016b, want %016b", prog.Words[0], want)
	}
	if prog.Hex[0] != "0298" {
		t.Errorf("got hex %s, want 0298", prog.Hex[0])
	}
}

func TestAssembleJR(t *testing.T) {
	prog := assembleOrFatal(t, "JR $r5")
	want := uint16(0b0000_101_000_000_101)
	if prog.Words[0] != want {
		t.Errorf("got %016b, want %016b", prog.Words[0], want)
	}
}

func TestAssembleLWThreeOperand(t *testing.T) {
	prog := assembleOrFatal(t, "LW $r1, $r2, 4")
	d := decode(t, prog.Words[0])
	if d.rs != 2 || d.rt != 1 || d.imm6 != 4 {
		t.Errorf("got rs=%d rt=%d imm=%d", d.rs, d.rt, d.imm6)
	}
}

func TestAssembleLWMemOperand(t *testing.T) {
	prog := assembleOrFatal(t, "LW $r1, 4($r2)")
	d := decode(t, prog.Words[0])
	if d.rs != 2 || d.rt != 1 || d.imm6 != 4 {
		t.Errorf("got rs=%d rt=%d imm=%d", d.rs, d.rt, d.imm6)
	}
}

func TestAssembleLWNegativeOffset(t *testing.T) {
	prog := assembleOrFatal(t, "LW $r1, -4($r2)")
	d := decode(t, prog.Words[0])
	if d.imm6 != 0b111100 {
		t.Errorf("got imm6=%06b, want 111100", d.imm6)
	}
}

func TestAssembleBranchToLabel(t *testing.T) {
	src := "loop: ADD $r1, $r1, $r2\nBEQ $r1, $r2, loop\n"
	prog := assembleOrFatal(t, src)
	if len(prog.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(prog.Words))
	}
	d := decode(t, prog.Words[1])
	// branch at addr 1 targeting addr 0: offset = 0 - (1+1) = -2
	if d.imm6 != 0b111110 {
		t.Errorf("got imm6=%06b, want 111110 (-2)", d.imm6)
	}
}

func TestAssembleBranchForward(t *testing.T) {
	src := "BEQ $r1, $r2, done\nADD $r1, $r1, $r2\ndone: SUB $r1, $r1, $r2\n"
	prog := assembleOrFatal(t, src)
	d := decode(t, prog.Words[0])
	// branch at addr 0 targeting addr 2: offset = 2 - (0+1) = 1
	if d.imm6 != 1 {
		t.Errorf("got imm6=%d, want 1", d.imm6)
	}
}

func TestAssembleJumpToLabel(t *testing.T) {
	src := "JUMP start\nstart: ADD $r1, $r1, $r2\n"
	prog := assembleOrFatal(t, src)
	d := decode(t, prog.Words[0])
	if d.address != 1 {
		t.Errorf("got address=%d, want 1", d.address)
	}
}

func TestAssembleJALSetsOpcode(t *testing.T) {
	prog := assembleOrFatal(t, "JAL 0x10")
	d := decode(t, prog.Words[0])
	if d.opcode != 0b1010 {
		t.Errorf("got opcode=%04b, want 1010", d.opcode)
	}
	if d.address != 0x10 {
		t.Errorf("got address=%d, want 16", d.address)
	}
}

func TestAssembleCommentsAndBlankLines(t *testing.T) {
	src := "# a full-line comment\n\nADD $r1, $r1, $r2 # trailing comment\n// also a comment style\n"
	prog := assembleOrFatal(t, src)
	if len(prog.Words) != 1 {
		t.Fatalf("expected 1 word, got %d", len(prog.Words))
	}
}

func TestAssembleDuplicateLabelError(t *testing.T) {
	src := "a: ADD $r1, $r1, $r2\na: SUB $r1, $r1, $r2\n"
	_, err := Assemble(src)
	if err == nil {
		t.Fatal("expected error for duplicate label, got nil")
	}
}

func TestAssembleUndefinedLabelError(t *testing.T) {
	_, err := Assemble("JUMP nowhere\n")
	if err == nil {
		t.Fatal("expected error for undefined label, got nil")
	}
}

func TestAssembleUnknownMnemonicError(t *testing.T) {
	_, err := Assemble("FOO $r1, $r2, $r3\n")
	if err == nil {
		t.Fatal("expected error for unknown mnemonic, got nil")
	}
}

func TestAssembleWrongOperandCountError(t *testing.T) {
	_, err := Assemble("ADD $r1, $r2\n")
	if err == nil {
		t.Fatal("expected error for wrong operand count, got nil")
	}
}

func TestAssembleImmediateOutOfRangeError(t *testing.T) {
	_, err := Assemble("ADDI $r1, $r2, 100\n")
	if err == nil {
		t.Fatal("expected error for out-of-range immediate, got nil")
	}
}

func TestAssembleJumpAddressOutOfRangeError(t *testing.T) {
	_, err := Assemble("JUMP 0x1000\n")
	if err == nil {
		t.Fatal("expected error for out-of-range jump address, got nil")
	}
}

func TestAssembleErrorHasLineNumber(t *testing.T) {
	src := "ADD $r1, $r1, $r2\nFOO $r1, $r2, $r3\n"
	_, err := Assemble(src)
	ae, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ae.Line != 2 {
		t.Errorf("got line %d, want 2", ae.Line)
	}
}

// decode is a small local word-field extractor used only to check assembler
// output shape without importing the isa package's own decoder into the
// assertions (keeping these tests independent of isa.Decode's correctness).
type decodedFields struct {
	opcode, rs, rt, imm6 uint16
	address              uint16
}

func decode(t *testing.T, word uint16) decodedFields {
	t.Helper()
	opcode := (word >> 12) & 0xF
	if opcode == 0 {
		return decodedFields{
			opcode: opcode,
			rs:     (word >> 9) & 0x7,
			rt:     (word >> 6) & 0x7,
		}
	}
	if opcode == 0b1001 || opcode == 0b1010 {
		return decodedFields{opcode: opcode, address: word & 0xFFF}
	}
	return decodedFields{
		opcode: opcode,
		rs:     (word >> 9) & 0x7,
		rt:     (word >> 6) & 0x7,
		imm6:   word & 0x3F,
	}
}

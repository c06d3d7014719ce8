package asm

import (
	"regexp"
	"strconv"
	"strings"
)

// memOperandRE matches the `<imm>(<reg>)` memory-operand syntax for LW/SW,
// allowing interior whitespace around the parens.
var memOperandRE = regexp.MustCompile(`^(.+)\(\s*(\$?[rR][0-7])\s*\)$`)

// parseRegister parses "$r0".."$r7" or "r0".."r7" (case-insensitive).
func parseRegister(s string) (uint16, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "$")
	if len(s) == 2 && s[0] == 'r' && s[1] >= '0' && s[1] <= '7' {
		return uint16(s[1] - '0'), nil
	}
	return 0, newErr(0, "invalid register: %s", s)
}

// parseImmediate parses a decimal (optionally signed) or 0x-prefixed hex
// immediate, checks it against the signed range for the given bit width,
// and returns its two's-complement encoding in the low `bits` bits.
func parseImmediate(s string, bits int) (uint16, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	var value int64
	var err error
	switch {
	case strings.HasPrefix(lower, "0x"):
		value, err = strconv.ParseInt(lower[2:], 16, 64)
	case strings.HasPrefix(lower, "-0x"):
		var v int64
		v, err = strconv.ParseInt(lower[3:], 16, 64)
		value = -v
	default:
		value, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, newErr(0, "invalid immediate value: %s", s)
	}

	maxVal := int64(1<<uint(bits-1)) - 1
	minVal := -int64(1 << uint(bits-1))
	if value < minVal || value > maxVal {
		return 0, newErr(0, "immediate value %d out of range [%d, %d]", value, minVal, maxVal)
	}

	mask := uint16((1 << uint(bits)) - 1)
	if value < 0 {
		value += int64(1) << uint(bits)
	}
	return uint16(value) & mask, nil
}

// parseMemOperand parses the `offset(reg)` syntax used by two-operand
// LW/SW, returning the register number and the raw 6-bit encoded offset.
func parseMemOperand(s string) (reg uint16, imm uint16, err error) {
	m := memOperandRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, newErr(0, "malformed memory operand: %s", s)
	}
	imm, err = parseImmediate(m[1], 6)
	if err != nil {
		return 0, 0, err
	}
	reg, err = parseRegister(m[2])
	if err != nil {
		return 0, 0, err
	}
	return reg, imm, nil
}

package asm

import "fmt"

// Error is an assembly error surfaced with the originating source line
// number. Low-level parsers construct one with Line 0; the assembler driver
// stamps in the real line number as the error propagates out of
// encodeInstruction.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func newErr(line int, format string, args ...any) *Error {
	return &Error{Line: line, Message: fmt.Sprintf(format, args...)}
}

// atLine returns a copy of err stamped with line, if err is an *Error with
// no line set yet. Any other error becomes an *Error at line carrying its
// message text.
func atLine(line int, err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		if ae.Line == 0 {
			return &Error{Line: line, Message: ae.Message}
		}
		return ae
	}
	return &Error{Line: line, Message: err.Error()}
}

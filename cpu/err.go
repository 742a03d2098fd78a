// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalted         = errors.New(f("halted"))
	ErrOpcodeReserved = errors.New(f("reserved opcode"))
	ErrTrapInvalid    = errors.New(f("trap vector invalid"))
	ErrKeyboard       = errors.New(f("keyboard"))
	ErrDisplay        = errors.New(f("display"))

	// Image errors
	ErrImageShort = errors.New(f("image too short"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".EQU syntax"))
	ErrEquateDuplicate    = errors.New(f(".EQU duplicated"))
	ErrOriginMissing      = errors.New(f(".ORIG missing"))
	ErrOriginDuplicate    = errors.New(f(".ORIG duplicated"))
	ErrStringSyntax       = errors.New(f(".STRINGZ syntax"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelInvalid       = errors.New(f("label invalid"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrImmediateRange     = errors.New(f("immediate out of range"))
	ErrOffsetRange        = errors.New(f("offset out of range"))
	ErrValueRange         = errors.New(f("value out of range"))
	ErrMemoryOverflow     = errors.New(f("program exceeds memory"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrOpcode is an instruction that cannot be executed.
type ErrOpcode struct {
	Pc   uint16 // Address of the instruction.
	Code Code
}

func (eo ErrOpcode) Error() string {
	return f("bad opcode 0x%04x (%v) at 0x%04x", uint16(eo.Code), eo.Code.Opcode(), eo.Pc)
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

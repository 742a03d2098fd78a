// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"strings"
)

// CodeOp is the 4-bit opcode field of an instruction.
type CodeOp int

//go:generate go tool stringer -linecomment -type=CodeOp
const (
	OP_BR   = CodeOp(0)  // BR
	OP_ADD  = CodeOp(1)  // ADD
	OP_LD   = CodeOp(2)  // LD
	OP_ST   = CodeOp(3)  // ST
	OP_JSR  = CodeOp(4)  // JSR
	OP_AND  = CodeOp(5)  // AND
	OP_LDR  = CodeOp(6)  // LDR
	OP_STR  = CodeOp(7)  // STR
	OP_RTI  = CodeOp(8)  // RTI
	OP_NOT  = CodeOp(9)  // NOT
	OP_LDI  = CodeOp(10) // LDI
	OP_STI  = CodeOp(11) // STI
	OP_JMP  = CodeOp(12) // JMP
	OP_RES  = CodeOp(13) // RES
	OP_LEA  = CodeOp(14) // LEA
	OP_TRAP = CodeOp(15) // TRAP
)

// CodeTrap is a trap vector.
type CodeTrap int

//go:generate go tool stringer -linecomment -type=CodeTrap
const (
	TRAP_GETC  = CodeTrap(0x20) // GETC
	TRAP_OUT   = CodeTrap(0x21) // OUT
	TRAP_PUTS  = CodeTrap(0x22) // PUTS
	TRAP_IN    = CodeTrap(0x23) // IN
	TRAP_PUTSP = CodeTrap(0x24) // PUTSP
	TRAP_HALT  = CodeTrap(0x25) // HALT
)

// Flag is a condition flag, or a set of them in a BR instruction.
type Flag uint16

const (
	FLAG_POS = Flag(1 << 0) // p
	FLAG_ZRO = Flag(1 << 1) // z
	FLAG_NEG = Flag(1 << 2) // n
)

// String returns the flags in BR suffix order, ie "nzp".
func (fl Flag) String() string {
	var sb strings.Builder
	if (fl & FLAG_NEG) != 0 {
		sb.WriteByte('n')
	}
	if (fl & FLAG_ZRO) != 0 {
		sb.WriteByte('z')
	}
	if (fl & FLAG_POS) != 0 {
		sb.WriteByte('p')
	}
	return sb.String()
}

// Register indexes.
const (
	R_R0 = 0
	R_R1 = 1
	R_R2 = 2
	R_R3 = 3
	R_R4 = 4
	R_R5 = 5
	R_R6 = 6
	R_R7 = 7 // Linkage register for JSR, JSRR and TRAP.
)

// Opcode represents a line of assembled code with its source location and generated instructions.
type Opcode struct {
	LineNo    int
	Address   uint16
	Words     []string
	Codes     []Code
	LinkLabel string
	LinkBits  int // Width of the field LinkLabel resolves into; 16 is an absolute address.
}

// Code is a single 16-bit instruction word.
//
//	15..12  opcode
//	11..9   DR, SR or n/z/p
//	8..6    SR1 or BaseR
//	5       immediate mode
//	4..0    imm5, or SR2 in bits 2..0
type Code uint16

// Opcode decodes the opcode field.
func (code Code) Opcode() CodeOp {
	return CodeOp(code >> 12)
}

// Dr decodes the destination (or ST source) register.
func (code Code) Dr() int {
	return int((code >> 9) & 0x7)
}

// Sr1 decodes the first source register.
func (code Code) Sr1() int {
	return int((code >> 6) & 0x7)
}

// BaseR decodes the base register of JMP, JSRR, LDR and STR.
func (code Code) BaseR() int {
	return code.Sr1()
}

// Sr2 decodes the second source register.
func (code Code) Sr2() int {
	return int(code & 0x7)
}

// IsImm is true if ADD or AND use imm5.
func (code Code) IsImm() bool {
	return ((code >> 5) & 1) != 0
}

// IsLong is true for JSR, false for JSRR.
func (code Code) IsLong() bool {
	return ((code >> 11) & 1) != 0
}

// Nzp decodes the BR condition set.
func (code Code) Nzp() Flag {
	return Flag((code >> 9) & 0x7)
}

// Imm5 decodes the sign extended immediate.
func (code Code) Imm5() uint16 {
	return SignExtend(uint16(code)&0x1f, 5)
}

// Offset6 decodes the sign extended base register offset.
func (code Code) Offset6() uint16 {
	return SignExtend(uint16(code)&0x3f, 6)
}

// PcOffset9 decodes the sign extended PC relative offset.
func (code Code) PcOffset9() uint16 {
	return SignExtend(uint16(code)&0x1ff, 9)
}

// PcOffset11 decodes the sign extended JSR offset.
func (code Code) PcOffset11() uint16 {
	return SignExtend(uint16(code)&0x7ff, 11)
}

// TrapVect decodes the trap vector.
func (code Code) TrapVect() CodeTrap {
	return CodeTrap(code & 0xff)
}

// String disassembles the code.
func (code Code) String() string {
	op := code.Opcode()
	switch op {
	case OP_ADD, OP_AND:
		if code.IsImm() {
			return fmt.Sprintf("%v R%d, R%d, #%d", op, code.Dr(), code.Sr1(), int16(code.Imm5()))
		}
		return fmt.Sprintf("%v R%d, R%d, R%d", op, code.Dr(), code.Sr1(), code.Sr2())
	case OP_NOT:
		return fmt.Sprintf("%v R%d, R%d", op, code.Dr(), code.Sr1())
	case OP_BR:
		if code.Nzp() == 0 {
			return "NOP"
		}
		return fmt.Sprintf("%v%v #%d", op, code.Nzp(), int16(code.PcOffset9()))
	case OP_JMP:
		if code.BaseR() == R_R7 {
			return "RET"
		}
		return fmt.Sprintf("%v R%d", op, code.BaseR())
	case OP_JSR:
		if code.IsLong() {
			return fmt.Sprintf("%v #%d", op, int16(code.PcOffset11()))
		}
		return fmt.Sprintf("JSRR R%d", code.BaseR())
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		return fmt.Sprintf("%v R%d, #%d", op, code.Dr(), int16(code.PcOffset9()))
	case OP_LDR, OP_STR:
		return fmt.Sprintf("%v R%d, R%d, #%d", op, code.Dr(), code.BaseR(), int16(code.Offset6()))
	case OP_TRAP:
		vect := code.TrapVect()
		if _, ok := _traps[vect]; ok {
			return vect.String()
		}
		return fmt.Sprintf("%v x%02X", op, int(vect))
	default:
		return op.String()
	}
}

// makeCode packs the opcode and the DR/SR field.
func makeCode(op CodeOp, r int, rest uint16) Code {
	return Code((uint16(op) << 12) | (uint16(r&0x7) << 9) | rest)
}

// MakeCodeReg creates a register mode ADD or AND.
func MakeCodeReg(op CodeOp, dr, sr1, sr2 int) Code {
	return makeCode(op, dr, (uint16(sr1&0x7)<<6)|uint16(sr2&0x7))
}

// MakeCodeImm creates an immediate mode ADD or AND.
func MakeCodeImm(op CodeOp, dr, sr1 int, imm5 int) Code {
	return makeCode(op, dr, (uint16(sr1&0x7)<<6)|(1<<5)|(uint16(imm5)&0x1f))
}

// MakeCodeNot creates a NOT.
func MakeCodeNot(dr, sr int) Code {
	return makeCode(OP_NOT, dr, (uint16(sr&0x7)<<6)|0x3f)
}

// MakeCodeBr creates a conditional branch.
func MakeCodeBr(nzp Flag, offset9 int) Code {
	return makeCode(OP_BR, int(nzp), uint16(offset9)&0x1ff)
}

// MakeCodeJmp creates a JMP, or a RET for R7.
func MakeCodeJmp(baseR int) Code {
	return makeCode(OP_JMP, 0, uint16(baseR&0x7)<<6)
}

// MakeCodeJsr creates a PC relative subroutine call.
func MakeCodeJsr(offset11 int) Code {
	return Code((uint16(OP_JSR) << 12) | (1 << 11) | (uint16(offset11) & 0x7ff))
}

// MakeCodeJsrr creates a register subroutine call.
func MakeCodeJsrr(baseR int) Code {
	return makeCode(OP_JSR, 0, uint16(baseR&0x7)<<6)
}

// MakeCodePcRel creates a LD, LDI, LEA, ST or STI.
func MakeCodePcRel(op CodeOp, r int, offset9 int) Code {
	return makeCode(op, r, uint16(offset9)&0x1ff)
}

// MakeCodeBase creates a LDR or STR.
func MakeCodeBase(op CodeOp, r, baseR int, offset6 int) Code {
	return makeCode(op, r, (uint16(baseR&0x7)<<6)|(uint16(offset6)&0x3f))
}

// MakeCodeTrap creates a TRAP.
func MakeCodeTrap(vect CodeTrap) Code {
	return Code((uint16(OP_TRAP) << 12) | (uint16(vect) & 0xff))
}

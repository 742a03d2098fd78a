// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package cpu implements the processor and assembler of the LC-3 system.
//
// The CPU consists of 65536 words of memory with a keyboard mapped at KBSR
// and KBDR, eight 16-bit general-purpose registers (R0-R7), a program
// counter, and a condition register holding one of the N, Z or P flags.
// Instructions are decoded from a Code and dispatched through a table
// indexed by opcode; the TRAP instruction runs built-in console routines.
//
// The assembler accepts LC-3 assembly, with labels, the usual .ORIG, .FILL,
// .BLKW, .STRINGZ and .END directives, equates, and compile-time $(...)
// expressions.
package cpu

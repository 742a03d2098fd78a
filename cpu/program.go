// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"iter"
)

// Program is an assembled listing. Opcodes are contiguous from Origin.
type Program struct {
	Origin  uint16
	Opcodes []Opcode
}

// Debug locates the code at an address in the listing.
type Debug struct {
	*Opcode
	Index int
}

// Debug returns the listing entry for an address; Opcode is nil if the
// address is outside of the program.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		start := int(op.Address)
		if int(addr) >= start && int(addr) < start+len(op.Codes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr) - start,
			}
			break
		}
	}

	return
}

// Codes iterates over every code, with its address.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			for n, code := range op.Codes {
				if !yield(op.Address+uint16(n), code) {
					return
				}
			}
		}
	}
}

// Image returns the loadable image of the program.
func (prog *Program) Image() (img *Image) {
	img = &Image{Origin: prog.Origin}
	for _, code := range prog.Codes() {
		img.Words = append(img.Words, uint16(code))
	}

	return
}

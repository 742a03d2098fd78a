// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"io"
	"os"

	"github.com/ezrec/lc3/cpu"
)

// LoadImage reads an image, and loads it into memory.
func (emu *Emulator) LoadImage(r io.Reader) (count int, err error) {
	img, err := cpu.ReadImage(r)
	if err != nil {
		return
	}

	count = emu.Load(img)
	return
}

// LoadFile loads an image file into memory.
func (emu *Emulator) LoadFile(path string) (count int, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	count, err = emu.LoadImage(inf)
	if err != nil {
		err = &ErrLoad{Path: path, Err: err}
	}

	return
}

// Assemble assembles source text with the emulator's defines, and loads
// the resulting program.
func (emu *Emulator) Assemble(r io.Reader) (prog *cpu.Program, err error) {
	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err = asm.Parse(r)
	if err != nil {
		return
	}

	emu.LoadProgram(prog)
	return
}

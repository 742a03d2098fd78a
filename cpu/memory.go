// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"github.com/ezrec/lc3/io"
)

const (
	MEMORY_SIZE = 1 << 16 // Words of memory.

	MR_KBSR = uint16(0xfe00) // Keyboard status register.
	MR_KBDR = uint16(0xfe02) // Keyboard data register.

	KBSR_READY = uint16(1 << 15) // KBSR bit set when KBDR holds a key.
)

// Memory is the word addressed store, with the keyboard mapped at
// MR_KBSR and MR_KBDR.
type Memory struct {
	Keyboard io.Keyboard // Polled on every read of MR_KBSR.

	Word [MEMORY_SIZE]uint16
}

// Reset zeros all of memory.
func (mem *Memory) Reset() {
	clear(mem.Word[:])
}

// Read a word. Reading MR_KBSR polls the keyboard, and updates both
// MR_KBSR and MR_KBDR before the read completes.
func (mem *Memory) Read(addr uint16) (value uint16) {
	if addr == MR_KBSR {
		var key byte
		var ok bool
		if mem.Keyboard != nil {
			key, ok = mem.Keyboard.Poll()
		}
		if ok {
			mem.Word[MR_KBSR] = KBSR_READY
			mem.Word[MR_KBDR] = uint16(key)
		} else {
			mem.Word[MR_KBSR] = 0
		}
	}

	return mem.Word[addr]
}

// Write a word. Mapped registers are plain storage on write.
func (mem *Memory) Write(addr uint16, value uint16) {
	mem.Word[addr] = value
}

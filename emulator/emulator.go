// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/internal"
	"github.com/ezrec/lc3/io"
)

// Memory map regions.
const (
	TRAP_TABLE      = uint16(0x0000) // Trap vector table.
	INTERRUPT_TABLE = uint16(0x0100) // Interrupt vector table.
	SYSTEM_SPACE    = uint16(0x0200) // Operating system code and data.
	USER_SPACE      = uint16(0x3000) // User programs.
	DEVICE_SPACE    = uint16(0xfe00) // Memory mapped devices.
)

var _emulator_defines = map[string]string{
	"TRAP_TABLE":      fmt.Sprintf("0x%04x", TRAP_TABLE),
	"INTERRUPT_TABLE": fmt.Sprintf("0x%04x", INTERRUPT_TABLE),
	"SYSTEM_SPACE":    fmt.Sprintf("0x%04x", SYSTEM_SPACE),
	"USER_SPACE":      fmt.Sprintf("0x%04x", USER_SPACE),
	"DEVICE_SPACE":    fmt.Sprintf("0x%04x", DEVICE_SPACE),
}

// Emulator state. CPU + console.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Listing of the assembled program, if any.

	loaded bool // Set once the first image has set the PC.
}

// NewEmulator creates a new emulator, attached to a console.
func NewEmulator(console io.Console) (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(console),
		Program: &cpu.Program{},
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset the emulator: memory, registers and the program listing.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
	emu.Program = &cpu.Program{}
	emu.loaded = false
}

// Load an image into memory. The first image loaded since a reset sets
// the PC to its origin; later images only overwrite memory.
func (emu *Emulator) Load(img *cpu.Image) (count int) {
	emu.Cpu.Verbose = emu.Verbose
	count = emu.Cpu.Load(img)

	if !emu.loaded {
		emu.Cpu.Pc = img.Origin
		emu.loaded = true
	}

	return
}

// LoadProgram loads an assembled program, and keeps its listing for
// diagnostics.
func (emu *Emulator) LoadProgram(prog *cpu.Program) (count int) {
	emu.Program = prog

	return emu.Load(prog.Image())
}

// LineNo returns the source line number for an address, or 0 if there
// is no listing for it.
func (emu *Emulator) LineNo(addr uint16) int {
	dbg := emu.Program.Debug(addr)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator.
// done is set once the program has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	defer func() {
		if err != nil {
			var eo cpu.ErrOpcode
			if errors.As(err, &eo) {
				pc = eo.Pc
			}
			err = &ErrRuntime{LineNo: emu.LineNo(pc), Pc: pc, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrHalted) {
		err = nil
		done = true
		return
	}
	if err != nil {
		return
	}

	done = emu.Cpu.State == cpu.STATE_HALTED
	return
}

// Run ticks the emulator until the program halts, faults, or the context
// is done. A trap blocked on a key is not interrupted by the context.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		default:
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			break
		}
	}

	if emu.Verbose {
		log.Printf("emulator: %v ticks, %v", emu.Cpu.Ticks, emu.Cpu.State)
	}

	return
}

// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/lc3/io"
)

// State is the execution state of the CPU.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING = State(0) // running
	STATE_HALTED  = State(1) // halted
)

const (
	PC_START = uint16(0x3000) // Default program origin.
)

var _cpu_defines = map[string]string{
	"KBSR":       fmt.Sprintf("0x%04x", MR_KBSR),
	"KBDR":       fmt.Sprintf("0x%04x", MR_KBDR),
	"KBSR_READY": fmt.Sprintf("0x%04x", KBSR_READY),
	"PC_START":   fmt.Sprintf("0x%04x", PC_START),
	"TRAP_GETC":  fmt.Sprintf("0x%02x", int(TRAP_GETC)),
	"TRAP_OUT":   fmt.Sprintf("0x%02x", int(TRAP_OUT)),
	"TRAP_PUTS":  fmt.Sprintf("0x%02x", int(TRAP_PUTS)),
	"TRAP_IN":    fmt.Sprintf("0x%02x", int(TRAP_IN)),
	"TRAP_PUTSP": fmt.Sprintf("0x%02x", int(TRAP_PUTSP)),
	"TRAP_HALT":  fmt.Sprintf("0x%02x", int(TRAP_HALT)),
}

// Cpu is the simulation context of an LC-3: memory, register file, and the
// console used by the trap routines.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory   Memory    // Memory, with the mapped keyboard.
	Register [8]uint16 // General purpose registers.
	Pc       uint16    // Program counter.
	Cond     Flag      // Exactly one of FLAG_POS, FLAG_ZRO or FLAG_NEG.
	State    State     // Execution state.
	Fault    error     // Set by an instruction that could not execute.

	Console io.Console // Console for the trap routines.

	Ticks int // Instructions executed since reset.
}

// NewCpu creates a reset CPU attached to a console.
func NewCpu(console io.Console) (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.SetConsole(console)
	cpu.Reset()

	return
}

// SetConsole attaches the console to the trap routines and the keyboard
// registers. A nil console has no keys, and discards output.
func (cpu *Cpu) SetConsole(console io.Console) {
	if console == nil {
		console = &io.Tape{}
	}

	cpu.Console = console
	cpu.Memory.Keyboard = console
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Zeros memory and the registers.
// - Sets PC to PC_START, and the condition to zero.
// - Clears any fault, and enters STATE_RUNNING.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Memory.Reset()
	clear(cpu.Register[:])
	cpu.Pc = PC_START
	cpu.Cond = FLAG_ZRO
	cpu.State = STATE_RUNNING
	cpu.Fault = nil
	cpu.Ticks = 0
}

// Load copies an image into memory at its origin, returning the number of
// words copied. Words past the end of memory are dropped.
func (cpu *Cpu) Load(img *Image) (count int) {
	count = copy(cpu.Memory.Word[img.Origin:], img.Words)

	if cpu.Verbose {
		log.Printf("cpu: load 0x%04x words at 0x%04x", count, img.Origin)
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 5s: %04X\n", "pc", cpu.Pc)
	text += fmt.Sprintf("% 5s: %v\n", "cond", cpu.Cond)
	for n, val := range cpu.Register {
		text += fmt.Sprintf("% 5s: %04X\n", fmt.Sprintf("r%d", n), val)
	}
	text += fmt.Sprintf("% 5s: %v\n", "state", cpu.State)

	return
}

// SignExtend widens the two's complement value in the low bitCount bits
// of value to 16 bits.
func SignExtend(value uint16, bitCount uint) uint16 {
	mask := uint16(1<<bitCount) - 1
	value &= mask
	if ((value >> (bitCount - 1)) & 1) != 0 {
		value |= ^mask
	}
	return value
}

// setCond updates the condition flag from a register.
func (cpu *Cpu) setCond(reg int) {
	value := cpu.Register[reg]
	switch {
	case (value >> 15) != 0:
		cpu.Cond = FLAG_NEG
	case value == 0:
		cpu.Cond = FLAG_ZRO
	default:
		cpu.Cond = FLAG_POS
	}
}

// Tick executes a single instruction cycle: fetch, increment PC, execute.
// Once halted, or faulted, no more instructions are fetched.
func (cpu *Cpu) Tick() (err error) {
	if cpu.Fault != nil {
		err = cpu.Fault
		return
	}

	if cpu.State == STATE_HALTED {
		err = ErrHalted
		return
	}

	code := Code(cpu.Memory.Read(cpu.Pc))
	cpu.Pc++

	err = cpu.Execute(code)
	if err != nil {
		cpu.Fault = err
		return
	}

	cpu.Ticks++

	return
}

// Execute executes a single decoded instruction, with PC already advanced
// past it, then updates the condition flags if the instruction defined a
// register.
func (cpu *Cpu) Execute(code Code) (err error) {
	pc := cpu.Pc - 1

	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode{Pc: pc, Code: code}, err)
		}
	}()

	if cpu.Verbose {
		log.Printf("%04x: %v", pc, code)
	}

	op := &_executors[code.Opcode()]
	err = op.exec(cpu, code)
	if err != nil {
		return
	}

	if op.defines != nil {
		reg, ok := op.defines(code)
		if ok {
			cpu.setCond(reg)
		}
	}

	return
}

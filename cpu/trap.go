// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
)

const (
	TRAP_IN_PROMPT = "Enter a character: "
	TRAP_HALT_TEXT = "HALT\n"
)

// trapRoutine is a built-in system routine. cond is set if the routine
// defines R0.
type trapRoutine struct {
	routine func(cpu *Cpu) error
	cond    bool
}

var _traps = map[CodeTrap]trapRoutine{
	TRAP_GETC:  {(*Cpu).trapGetc, true},
	TRAP_OUT:   {(*Cpu).trapOut, false},
	TRAP_PUTS:  {(*Cpu).trapPuts, false},
	TRAP_IN:    {(*Cpu).trapIn, true},
	TRAP_PUTSP: {(*Cpu).trapPutsp, false},
	TRAP_HALT:  {(*Cpu).trapHalt, false},
}

func definesTrap(code Code) (reg int, ok bool) {
	trap, known := _traps[code.TrapVect()]
	return R_R0, known && trap.cond
}

// execTrap links R7 and runs the routine for the trap vector.
func (cpu *Cpu) execTrap(code Code) (err error) {
	trap, ok := _traps[code.TrapVect()]
	if !ok {
		err = ErrTrapInvalid
		return
	}

	cpu.Register[R_R7] = cpu.Pc

	return trap.routine(cpu)
}

// write sends text to the console display.
func (cpu *Cpu) write(text []byte) (err error) {
	_, err = cpu.Console.Write(text)
	if err != nil {
		err = errors.Join(ErrDisplay, err)
	}
	return
}

// key waits for a key from the console keyboard.
func (cpu *Cpu) key() (key byte, err error) {
	key, err = cpu.Console.Key()
	if err != nil {
		err = errors.Join(ErrKeyboard, err)
	}
	return
}

// trapGetc reads a key, without echo, into R0.
func (cpu *Cpu) trapGetc() (err error) {
	key, err := cpu.key()
	if err != nil {
		return
	}

	cpu.Register[R_R0] = uint16(key)
	return
}

// trapOut writes the low byte of R0.
func (cpu *Cpu) trapOut() (err error) {
	return cpu.write([]byte{byte(cpu.Register[R_R0])})
}

// trapPuts writes one character per word from R0, up to a zero word.
func (cpu *Cpu) trapPuts() (err error) {
	var text []byte
	for addr := cpu.Register[R_R0]; ; addr++ {
		word := cpu.Memory.Read(addr)
		if word == 0 {
			break
		}
		text = append(text, byte(word))
	}

	return cpu.write(text)
}

// trapIn prompts, then reads and echos a key into R0.
func (cpu *Cpu) trapIn() (err error) {
	err = cpu.write([]byte(TRAP_IN_PROMPT))
	if err != nil {
		return
	}

	key, err := cpu.key()
	if err != nil {
		return
	}

	err = cpu.write([]byte{key})
	if err != nil {
		return
	}

	cpu.Register[R_R0] = uint16(key)
	return
}

// trapPutsp writes two characters per word from R0, low byte first, up to
// a zero word. A zero high byte is not written.
func (cpu *Cpu) trapPutsp() (err error) {
	var text []byte
	for addr := cpu.Register[R_R0]; ; addr++ {
		word := cpu.Memory.Read(addr)
		if word == 0 {
			break
		}
		text = append(text, byte(word))
		if high := byte(word >> 8); high != 0 {
			text = append(text, high)
		}
	}

	return cpu.write(text)
}

// trapHalt stops the CPU.
func (cpu *Cpu) trapHalt() (err error) {
	cpu.State = STATE_HALTED

	return cpu.write([]byte(TRAP_HALT_TEXT))
}

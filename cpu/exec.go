// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

// executor performs the semantics of a single opcode.
type executor func(cpu *Cpu, code Code) error

// definer reports the register an instruction defined, if any.
type definer func(code Code) (reg int, ok bool)

// _executors is indexed by opcode.
var _executors = [16]struct {
	exec    executor
	defines definer
}{
	OP_BR:   {(*Cpu).execBr, nil},
	OP_ADD:  {(*Cpu).execAdd, definesDr},
	OP_LD:   {(*Cpu).execLd, definesDr},
	OP_ST:   {(*Cpu).execSt, nil},
	OP_JSR:  {(*Cpu).execJsr, nil},
	OP_AND:  {(*Cpu).execAnd, definesDr},
	OP_LDR:  {(*Cpu).execLdr, definesDr},
	OP_STR:  {(*Cpu).execStr, nil},
	OP_RTI:  {(*Cpu).execReserved, nil},
	OP_NOT:  {(*Cpu).execNot, definesDr},
	OP_LDI:  {(*Cpu).execLdi, definesDr},
	OP_STI:  {(*Cpu).execSti, nil},
	OP_JMP:  {(*Cpu).execJmp, nil},
	OP_RES:  {(*Cpu).execReserved, nil},
	OP_LEA:  {(*Cpu).execLea, definesDr},
	OP_TRAP: {(*Cpu).execTrap, definesTrap},
}

func definesDr(code Code) (reg int, ok bool) {
	return code.Dr(), true
}

// source2 is SR2 or imm5.
func (cpu *Cpu) source2(code Code) uint16 {
	if code.IsImm() {
		return code.Imm5()
	}
	return cpu.Register[code.Sr2()]
}

func (cpu *Cpu) execAdd(code Code) error {
	cpu.Register[code.Dr()] = cpu.Register[code.Sr1()] + cpu.source2(code)
	return nil
}

func (cpu *Cpu) execAnd(code Code) error {
	cpu.Register[code.Dr()] = cpu.Register[code.Sr1()] & cpu.source2(code)
	return nil
}

func (cpu *Cpu) execNot(code Code) error {
	cpu.Register[code.Dr()] = ^cpu.Register[code.Sr1()]
	return nil
}

func (cpu *Cpu) execBr(code Code) error {
	if (code.Nzp() & cpu.Cond) != 0 {
		cpu.Pc += code.PcOffset9()
	}
	return nil
}

// execJmp also covers RET, which is JMP R7.
func (cpu *Cpu) execJmp(code Code) error {
	cpu.Pc = cpu.Register[code.BaseR()]
	return nil
}

// execJsr links R7 before reading the base register, so JSRR R7 falls
// through to the next instruction.
func (cpu *Cpu) execJsr(code Code) error {
	cpu.Register[R_R7] = cpu.Pc
	if code.IsLong() {
		cpu.Pc += code.PcOffset11()
	} else {
		cpu.Pc = cpu.Register[code.BaseR()]
	}
	return nil
}

func (cpu *Cpu) execLd(code Code) error {
	cpu.Register[code.Dr()] = cpu.Memory.Read(cpu.Pc + code.PcOffset9())
	return nil
}

func (cpu *Cpu) execLdi(code Code) error {
	addr := cpu.Memory.Read(cpu.Pc + code.PcOffset9())
	cpu.Register[code.Dr()] = cpu.Memory.Read(addr)
	return nil
}

func (cpu *Cpu) execLdr(code Code) error {
	cpu.Register[code.Dr()] = cpu.Memory.Read(cpu.Register[code.BaseR()] + code.Offset6())
	return nil
}

func (cpu *Cpu) execLea(code Code) error {
	cpu.Register[code.Dr()] = cpu.Pc + code.PcOffset9()
	return nil
}

func (cpu *Cpu) execSt(code Code) error {
	cpu.Memory.Write(cpu.Pc+code.PcOffset9(), cpu.Register[code.Dr()])
	return nil
}

func (cpu *Cpu) execSti(code Code) error {
	addr := cpu.Memory.Read(cpu.Pc + code.PcOffset9())
	cpu.Memory.Write(addr, cpu.Register[code.Dr()])
	return nil
}

func (cpu *Cpu) execStr(code Code) error {
	cpu.Memory.Write(cpu.Register[code.BaseR()]+code.Offset6(), cpu.Register[code.Dr()])
	return nil
}

// execReserved rejects RTI and RES; neither has user mode semantics.
func (cpu *Cpu) execReserved(code Code) error {
	return ErrOpcodeReserved
}

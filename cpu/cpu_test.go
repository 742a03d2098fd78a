package cpu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/io"
)

func newTestCpu(codes ...Code) (cpu *Cpu, output *bytes.Buffer) {
	output = &bytes.Buffer{}
	cpu = NewCpu(&io.Tape{Output: output})
	for n, code := range codes {
		cpu.Memory.Word[PC_START+uint16(n)] = uint16(code)
	}
	return
}

func TestSignExtend(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint16(0xffff), SignExtend(0x1f, 5))
	assert.Equal(uint16(0x000f), SignExtend(0x0f, 5))
	assert.Equal(uint16(0xfff0), SignExtend(0x10, 5))
	assert.Equal(uint16(0xffff), SignExtend(0x1ff, 9))
	assert.Equal(uint16(0xff00), SignExtend(0x100, 9))
	assert.Equal(uint16(0x00ff), SignExtend(0x0ff, 9))
	assert.Equal(uint16(0x0003), SignExtend(0xfff3, 3))
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(0x1025)
	cpu.Register[3] = 0x1234
	cpu.Pc = 0x4000
	cpu.Cond = FLAG_NEG
	cpu.State = STATE_HALTED
	cpu.Fault = ErrHalted
	cpu.Ticks = 10

	cpu.Reset()
	assert.Equal([8]uint16{}, cpu.Register)
	assert.Equal(PC_START, cpu.Pc)
	assert.Equal(FLAG_ZRO, cpu.Cond)
	assert.Equal(STATE_RUNNING, cpu.State)
	assert.NoError(cpu.Fault)
	assert.Equal(0, cpu.Ticks)
	assert.Equal(uint16(0), cpu.Memory.Word[PC_START])
}

func TestCpuNilConsole(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	assert.NotNil(cpu.Console)
	assert.Equal(uint16(0), cpu.Memory.Read(MR_KBSR))

	// Output is discarded.
	cpu.Memory.Word[PC_START] = uint16(MakeCodeTrap(TRAP_HALT))
	assert.NoError(cpu.Tick())
	assert.Equal(STATE_HALTED, cpu.State)
}

func TestCpuLoad(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu()

	count := cpu.Load(&Image{Origin: 0x3000, Words: []uint16{1, 2, 3}})
	assert.Equal(3, count)
	assert.Equal([]uint16{1, 2, 3}, cpu.Memory.Word[0x3000:0x3003])

	count = cpu.Load(&Image{Origin: 0xfffe, Words: []uint16{4, 5, 6}})
	assert.Equal(2, count)
	assert.Equal(uint16(4), cpu.Memory.Word[0xfffe])
	assert.Equal(uint16(5), cpu.Memory.Word[0xffff])
	assert.Equal(uint16(0), cpu.Memory.Word[0x0000])
}

func TestCpuString(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu()
	cpu.Register[5] = 0xbeef

	text := cpu.String()
	assert.Contains(text, "pc: 3000")
	assert.Contains(text, "r5: BEEF")
	assert.Contains(text, "cond: z")
	assert.Contains(text, "state: running")
}

func TestCpuAdd(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(
		0x1025,                         // ADD R0, R0, #5
		MakeCodeImm(OP_ADD, 1, 0, -5),  // ADD R1, R0, #-5
		MakeCodeImm(OP_ADD, 2, 1, -1),  // ADD R2, R1, #-1
		MakeCodeReg(OP_ADD, 3, 0, 2),   // ADD R3, R0, R2
		MakeCodeImm(OP_ADD, 4, 4, -16), // ADD R4, R4, #-16
	)

	assert.Equal(Code(0x1025), MakeCodeImm(OP_ADD, 0, 0, 5))

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(5), cpu.Register[0])
	assert.Equal(FLAG_POS, cpu.Cond)
	assert.Equal(uint16(0x3001), cpu.Pc)

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0), cpu.Register[1])
	assert.Equal(FLAG_ZRO, cpu.Cond)

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0xffff), cpu.Register[2])
	assert.Equal(FLAG_NEG, cpu.Cond)

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(4), cpu.Register[3])
	assert.Equal(FLAG_POS, cpu.Cond)

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0xfff0), cpu.Register[4])
	assert.Equal(FLAG_NEG, cpu.Cond)

	assert.Equal(5, cpu.Ticks)
	assert.Equal(uint16(0x3005), cpu.Pc)
}

func TestCpuAndNot(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(
		MakeCodeImm(OP_AND, 1, 0, 0), // AND R1, R0, #0
		MakeCodeNot(2, 0),            // NOT R2, R0
		MakeCodeReg(OP_AND, 3, 0, 2), // AND R3, R0, R2
		MakeCodeImm(OP_AND, 4, 0, 7), // AND R4, R0, #7
	)
	cpu.Register[0] = 0x00ff

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0), cpu.Register[1])
	assert.Equal(FLAG_ZRO, cpu.Cond)

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0xff00), cpu.Register[2])
	assert.Equal(FLAG_NEG, cpu.Cond)

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0), cpu.Register[3])
	assert.Equal(FLAG_ZRO, cpu.Cond)

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(7), cpu.Register[4])
	assert.Equal(FLAG_POS, cpu.Cond)
}

func TestCpuBranch(t *testing.T) {
	for _, cond := range []Flag{FLAG_NEG, FLAG_ZRO, FLAG_POS} {
		for nzp := range Flag(8) {
			t.Run(cond.String()+"/"+MakeCodeBr(nzp, 4).String(), func(t *testing.T) {
				assert := assert.New(t)

				cpu, _ := newTestCpu()
				cpu.Cond = cond
				cpu.Pc = 0x3001

				err := cpu.Execute(MakeCodeBr(nzp, 4))
				assert.NoError(err)
				if (nzp & cond) != 0 {
					assert.Equal(uint16(0x3005), cpu.Pc)
				} else {
					assert.Equal(uint16(0x3001), cpu.Pc)
				}
				assert.Equal(cond, cpu.Cond)
			})
		}
	}
}

func TestCpuBranchBackwards(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu()
	cpu.Pc = 0x3001

	assert.NoError(cpu.Execute(MakeCodeBr(FLAG_NEG|FLAG_ZRO|FLAG_POS, -1)))
	assert.Equal(uint16(0x3000), cpu.Pc)

	cpu.Pc = 0x0001
	assert.NoError(cpu.Execute(MakeCodeBr(FLAG_ZRO, -256)))
	assert.Equal(uint16(0xff01), cpu.Pc)
}

func TestCpuJump(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu()

	cpu.Pc = 0x3001
	assert.NoError(cpu.Execute(MakeCodeJsr(16)))
	assert.Equal(uint16(0x3001), cpu.Register[R_R7])
	assert.Equal(uint16(0x3011), cpu.Pc)

	cpu.Pc = 0x3001
	assert.NoError(cpu.Execute(MakeCodeJsr(-1024)))
	assert.Equal(uint16(0x2c01), cpu.Pc)

	cpu.Pc = 0x3001
	cpu.Register[R_R2] = 0x4000
	assert.NoError(cpu.Execute(MakeCodeJsrr(R_R2)))
	assert.Equal(uint16(0x3001), cpu.Register[R_R7])
	assert.Equal(uint16(0x4000), cpu.Pc)

	// R7 is linked before the base register is read.
	cpu.Pc = 0x3001
	cpu.Register[R_R7] = 0x5000
	assert.NoError(cpu.Execute(MakeCodeJsrr(R_R7)))
	assert.Equal(uint16(0x3001), cpu.Register[R_R7])
	assert.Equal(uint16(0x3001), cpu.Pc)

	cpu.Register[R_R3] = 0x1234
	assert.NoError(cpu.Execute(MakeCodeJmp(R_R3)))
	assert.Equal(uint16(0x1234), cpu.Pc)

	cpu.Register[R_R7] = 0x3100
	assert.NoError(cpu.Execute(MakeCodeJmp(R_R7)))
	assert.Equal(uint16(0x3100), cpu.Pc)

	// None of the jumps change the condition.
	assert.Equal(FLAG_ZRO, cpu.Cond)
}

func TestCpuLoadStore(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu()
	cpu.Memory.Word[0x3010] = 0x4000
	cpu.Memory.Word[0x4000] = 0x8001

	exec := func(code Code) {
		cpu.Pc = 0x3001
		assert.NoError(cpu.Execute(code), code.String())
	}

	exec(MakeCodePcRel(OP_LD, R_R0, 15))
	assert.Equal(uint16(0x4000), cpu.Register[R_R0])
	assert.Equal(FLAG_POS, cpu.Cond)

	exec(MakeCodePcRel(OP_LDI, R_R1, 15))
	assert.Equal(uint16(0x8001), cpu.Register[R_R1])
	assert.Equal(FLAG_NEG, cpu.Cond)

	exec(MakeCodeBase(OP_LDR, R_R2, R_R0, -1))
	assert.Equal(uint16(0), cpu.Register[R_R2])
	assert.Equal(FLAG_ZRO, cpu.Cond)

	exec(MakeCodeBase(OP_LDR, R_R2, R_R0, 0))
	assert.Equal(uint16(0x8001), cpu.Register[R_R2])
	assert.Equal(FLAG_NEG, cpu.Cond)

	exec(MakeCodePcRel(OP_LEA, R_R3, -1))
	assert.Equal(uint16(0x3000), cpu.Register[R_R3])
	assert.Equal(FLAG_POS, cpu.Cond)

	cpu.Cond = FLAG_NEG

	exec(MakeCodePcRel(OP_ST, R_R0, 1))
	assert.Equal(uint16(0x4000), cpu.Memory.Word[0x3002])

	exec(MakeCodePcRel(OP_STI, R_R3, 15))
	assert.Equal(uint16(0x3000), cpu.Memory.Word[0x4000])

	exec(MakeCodeBase(OP_STR, R_R3, R_R0, 2))
	assert.Equal(uint16(0x3000), cpu.Memory.Word[0x4002])

	exec(MakeCodeBase(OP_STR, R_R1, R_R0, -32))
	assert.Equal(uint16(0x8001), cpu.Memory.Word[0x3fe0])

	// Stores do not change the condition.
	assert.Equal(FLAG_NEG, cpu.Cond)
}

func TestCpuReserved(t *testing.T) {
	for _, code := range []Code{0x8000, 0xd000, 0xdfff} {
		t.Run(code.String(), func(t *testing.T) {
			assert := assert.New(t)

			cpu, _ := newTestCpu(code)

			err := cpu.Tick()
			assert.Error(err)
			assert.True(errors.Is(err, ErrOpcodeReserved))
			assert.True(errors.Is(err, ErrOpcode{}))

			var eo ErrOpcode
			if assert.True(errors.As(err, &eo)) {
				assert.Equal(uint16(0x3000), eo.Pc)
				assert.Equal(code, eo.Code)
			}

			assert.Equal(err, cpu.Fault)
			assert.Equal(0, cpu.Ticks)

			// A fault is sticky; nothing more is fetched.
			again := cpu.Tick()
			assert.Equal(err, again)
			assert.Equal(uint16(0x3001), cpu.Pc)
		})
	}
}

func TestCpuHalt(t *testing.T) {
	assert := assert.New(t)

	cpu, output := newTestCpu(
		0x1025, // ADD R0, R0, #5
		0xf025, // HALT
	)

	assert.Equal(Code(0xf025), MakeCodeTrap(TRAP_HALT))

	assert.NoError(cpu.Tick())
	assert.NoError(cpu.Tick())
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal("HALT\n", output.String())
	assert.Equal(uint16(0x3002), cpu.Register[R_R7])
	assert.Equal(uint16(5), cpu.Register[R_R0])

	// HALT does not define R0.
	assert.Equal(FLAG_POS, cpu.Cond)

	err := cpu.Tick()
	assert.True(errors.Is(err, ErrHalted))
	assert.Equal(uint16(0x3002), cpu.Pc)
	assert.Equal(2, cpu.Ticks)
	assert.NoError(cpu.Fault)
}

func TestCpuWraparound(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu()
	cpu.Pc = 0xffff
	cpu.Memory.Word[0xffff] = 0x1025

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x0000), cpu.Pc)
	assert.Equal(uint16(5), cpu.Register[R_R0])
}

func TestCpuProperties(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint16(0xfff0), SignExtend(0b10000, 5))
	assert.Equal(uint16(15), SignExtend(0b01111, 5))

	cpu, _ := newTestCpu()
	exec := func(code Code) {
		cpu.Pc = 0x3001
		assert.NoError(cpu.Execute(code), code.String())
	}

	cpu.Register[R_R1] = 5
	exec(MakeCodeImm(OP_ADD, R_R2, R_R1, -3))
	assert.Equal(uint16(2), cpu.Register[R_R2])
	assert.Equal(FLAG_POS, cpu.Cond)

	exec(MakeCodeImm(OP_ADD, R_R2, R_R1, -5))
	assert.Equal(uint16(0), cpu.Register[R_R2])
	assert.Equal(FLAG_ZRO, cpu.Cond)

	exec(MakeCodeReg(OP_AND, R_R3, R_R1, R_R2))
	assert.Equal(uint16(0), cpu.Register[R_R3])
	assert.Equal(FLAG_ZRO, cpu.Cond)

	exec(MakeCodeNot(R_R4, R_R3))
	assert.Equal(uint16(0xffff), cpu.Register[R_R4])
	assert.Equal(FLAG_NEG, cpu.Cond)

	cpu.Memory.Write(0x3001+7, 0x4567)
	cpu.Memory.Write(0x4567, 42)
	exec(MakeCodePcRel(OP_LDI, R_R5, 7))
	assert.Equal(uint16(42), cpu.Register[R_R5])
}

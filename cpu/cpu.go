package cpu

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
)

// CpuState is the execution state of the processor.
type CpuState int

//go:generate go tool stringer -linecomment -type=CpuState
const (
	STATE_RUNNING = CpuState(0) // running
	STATE_HALTED  = CpuState(1) // halted
)

var _cpu_defines = map[string]string{
	"ARENA_TRAP_TABLE": fmt.Sprintf("0x%04x", ARENA_TRAP_TABLE),
	"ARENA_INT_TABLE":  fmt.Sprintf("0x%04x", ARENA_INT_TABLE),
	"ARENA_SUPERVISOR": fmt.Sprintf("0x%04x", ARENA_SUPERVISOR),
	"ARENA_USER":       fmt.Sprintf("0x%04x", ARENA_USER),
	"ARENA_DEVICE":     fmt.Sprintf("0x%04x", ARENA_DEVICE),
	"PC_START":         fmt.Sprintf("0x%04x", PC_START),
}

// TrapService services TRAP instructions on behalf of the CPU.
//
// Trap is called with the CPU after R7 has been set to the return address.
// The service may read and modify registers and memory. Returning halt
// stops the processor; returning an error is fatal to the run.
type TrapService interface {
	Trap(cpu *Cpu, vector uint8) (halt bool, err error)
}

// Cpu is the simulation context for an LC-3 processor.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory   Memory       // Main memory.
	Register RegisterFile // r0-r7, pc and cond.
	State    CpuState     // Running or halted.

	Trap TrapService // Trap vector service.

	Ticks int // Instructions executed since reset.
}

// NewCpu creates a new, reset CPU.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	for reg := REG_R0; reg < REG_COUNT; reg++ {
		var strval string
		switch reg {
		case REG_COND:
			strval = cpu.Register.Flags().String()
		default:
			strval = fmt.Sprintf("x%04X", cpu.Register.Get(reg))
		}
		text += fmt.Sprintf("% 5s: %v\n", reg.String(), strval)
	}
	text += fmt.Sprintf("% 5s: %v\n", "state", cpu.State)

	return
}

// Reset the CPU state.
// - Zeros memory and the registers.
// - Sets the PC to PC_START and the condition to zero.
// - Zeros the tick counter.
// - Puts the CPU in the running state.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Memory.Reset()
	cpu.Register.Reset()
	cpu.Register.Set(REG_PC, PC_START)
	cpu.Register.Set(REG_COND, uint16(FLAG_ZRO))
	cpu.State = STATE_RUNNING
	cpu.Ticks = 0
}

// Halted returns true if the CPU has stopped.
func (cpu *Cpu) Halted() bool {
	return cpu.State == STATE_HALTED
}

// Fetch reads the instruction at the PC, and advances the PC.
func (cpu *Cpu) Fetch() (code Code) {
	pc := cpu.Register.Pc()
	code = Code(cpu.Memory.Read(pc))
	cpu.Register.Set(REG_PC, pc+1)
	return
}

// Tick executes a single CPU instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	if cpu.Halted() {
		err = ErrHalted
		return
	}

	code := cpu.Fetch()

	err = cpu.Execute(code)
	if err != nil {
		cpu.State = STATE_HALTED
		return
	}

	cpu.Ticks++

	return
}

// Run ticks the CPU until it halts, or the context is done.
// The context is checked between instructions only.
func (cpu *Cpu) Run(ctx context.Context) (err error) {
	for !cpu.Halted() {
		err = ctx.Err()
		if err != nil {
			return
		}
		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// Execute executes a single decoded instruction.
// The PC must already point at the following instruction.
func (cpu *Cpu) Execute(code Code) (err error) {
	if cpu.Verbose {
		log.Printf("%04x: %v", cpu.Register.Pc()-1, code)
	}

	reg := &cpu.Register
	mem := &cpu.Memory
	pc := reg.Pc()

	switch code.Op() {
	case OP_ADD:
		var value uint16
		if code.IsImmediate() {
			value = code.Imm5()
		} else {
			value = reg.Get(code.Sr2())
		}
		reg.Set(code.Dr(), reg.Get(code.Sr1())+value)
		reg.UpdateFlags(code.Dr())
	case OP_AND:
		var value uint16
		if code.IsImmediate() {
			value = code.Imm5()
		} else {
			value = reg.Get(code.Sr2())
		}
		reg.Set(code.Dr(), reg.Get(code.Sr1())&value)
		reg.UpdateFlags(code.Dr())
	case OP_NOT:
		reg.Set(code.Dr(), ^reg.Get(code.Sr1()))
		reg.UpdateFlags(code.Dr())
	case OP_BR:
		if code.CondMask()&reg.Flags() != 0 {
			reg.Set(REG_PC, pc+code.PcOffset9())
		}
	case OP_JMP:
		reg.Set(REG_PC, reg.Get(code.BaseR()))
	case OP_JSR:
		// Read the base before linking, so JSRR r7 jumps to the old r7.
		target := reg.Get(code.BaseR())
		if code.IsJsr() {
			target = pc + code.PcOffset11()
		}
		reg.Set(REG_R7, pc)
		reg.Set(REG_PC, target)
	case OP_LD:
		reg.Set(code.Dr(), mem.Read(pc+code.PcOffset9()))
		reg.UpdateFlags(code.Dr())
	case OP_LDI:
		reg.Set(code.Dr(), mem.Read(mem.Read(pc+code.PcOffset9())))
		reg.UpdateFlags(code.Dr())
	case OP_LDR:
		reg.Set(code.Dr(), mem.Read(reg.Get(code.BaseR())+code.Offset6()))
		reg.UpdateFlags(code.Dr())
	case OP_LEA:
		reg.Set(code.Dr(), pc+code.PcOffset9())
		reg.UpdateFlags(code.Dr())
	case OP_ST:
		mem.Write(pc+code.PcOffset9(), reg.Get(code.Dr()))
	case OP_STI:
		mem.Write(mem.Read(pc+code.PcOffset9()), reg.Get(code.Dr()))
	case OP_STR:
		mem.Write(reg.Get(code.BaseR())+code.Offset6(), reg.Get(code.Dr()))
	case OP_TRAP:
		err = cpu.trap(code.TrapVect())
	case OP_RTI:
		err = errors.Join(ErrOpcode(code), ErrOpcodePrivileged)
	case OP_RES:
		err = errors.Join(ErrOpcode(code), ErrOpcodeReserved)
	default:
		err = ErrOpcode(code)
	}

	return
}

// trap links R7 and hands the vector to the trap service.
func (cpu *Cpu) trap(vector uint8) (err error) {
	if cpu.Trap == nil {
		err = errors.Join(ErrTrapVector(vector), ErrTrapMissing)
		return
	}

	cpu.Register.Set(REG_R7, cpu.Register.Pc())

	halt, err := cpu.Trap.Trap(cpu, vector)
	if err != nil {
		return
	}

	if halt {
		if cpu.Verbose {
			log.Printf("cpu: halt")
		}
		cpu.State = STATE_HALTED
	}

	return
}

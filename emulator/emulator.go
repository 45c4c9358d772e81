// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"fmt"
	goio "io"
	"iter"
	"maps"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/internal"
	"github.com/ezrec/lc3/io"
)

const (
	TICK_CHECK = 1024 // Instructions between context checks in Run.
)

var _emulator_defines = map[string]string{
	"TICK_CHECK": fmt.Sprintf("%v", TICK_CHECK),
}

// Emulator state. CPU + console + program.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Console io.Console // Console trap service.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{Origin: cpu.PC_START},
	}

	emu.Cpu.Trap = &emu.Console

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		emu.Console.Defines(),
	)
}

// Assembler returns an assembler with the emulator defines predefined.
func (emu *Emulator) Assembler() (asm *cpu.Assembler) {
	asm = &cpu.Assembler{Verbose: emu.Verbose}
	for equ, value := range emu.Defines() {
		asm.Predefine(equ, value)
	}

	return
}

// Reset the CPU, load the program, and point the PC at its origin.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = false
	emu.Cpu.Reset()

	if emu.Program != nil {
		emu.Cpu.Memory.Load(emu.Program.Origin, emu.Program.Image())
		emu.Cpu.Register.Set(cpu.REG_PC, emu.Program.Origin)
	}

	emu.Cpu.Verbose = emu.Verbose

	return
}

// Load an object image into memory, and point the PC at its origin.
// The loaded image has no source listing.
func (emu *Emulator) Load(r goio.Reader) (err error) {
	origin, err := io.LoadImage(&emu.Cpu.Memory, r)
	if err != nil {
		return
	}

	emu.Program = nil
	emu.Cpu.Register.Set(cpu.REG_PC, origin)

	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Pc returns current program counter.
func (emu *Emulator) Pc() uint16 {
	return emu.Cpu.Register.Pc()
}

// Code returns the current instruction code.
func (emu *Emulator) Code() cpu.Code {
	return cpu.Code(emu.Cpu.Memory.Read(emu.Pc()))
}

// LineNo returns the source line number for an address, or 0 if unknown.
func (emu *Emulator) LineNo(pc uint16) int {
	if emu.Program == nil {
		return 0
	}

	dbg := emu.Program.Debug(pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose
	emu.Console.Verbose = emu.Verbose

	pc := emu.Pc()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Pc: pc, LineNo: emu.LineNo(pc), Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrHalted) {
		err = nil
	}
	if err != nil {
		return
	}

	done = emu.Cpu.Halted()

	return
}

// Run ticks the emulator until it halts, or the context is done.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for n := 0; ; n++ {
		if n%TICK_CHECK == 0 {
			err = ctx.Err()
			if err != nil {
				return
			}
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}

// Package io provides the host side devices of the LC-3 emulator: the
// Console trap service for character I/O and halting, and the reader and
// writer for object images.
package io

import (
	"errors"
	"io"
	"iter"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/lc3/cpu"
)

// IN_PROMPT is written by the IN trap before reading a character.
const IN_PROMPT = "Enter a character: "

var _console_defines = map[string]string{
	"TRAP_GETC":  "0x20",
	"TRAP_OUT":   "0x21",
	"TRAP_PUTS":  "0x22",
	"TRAP_IN":    "0x23",
	"TRAP_PUTSP": "0x24",
	"TRAP_HALT":  "0x25",
}

// flusher is an output that buffers writes.
type flusher interface {
	Flush() error
}

// Console services the standard LC-3 trap vectors.
// It wraps an io.Reader for keyboard input and io.Writer for display output.
type Console struct {
	Verbose bool      // If set, logs each trap.
	Input   io.Reader // Keyboard.
	Output  io.Writer // Display.
}

var _ cpu.TrapService = (*Console)(nil)

// Defines returns an iter of defines for the console.
func (con *Console) Defines() iter.Seq2[string, string] {
	return maps.All(_console_defines)
}

// readByte reads a single character from the input.
func (con *Console) readByte() (ch byte, err error) {
	if con.Input == nil {
		err = ErrInputMissing
		return
	}

	var one [1]byte
	for {
		var n int
		n, err = con.Input.Read(one[:])
		if n == 1 {
			ch = one[0]
			err = nil
			return
		}
		if errors.Is(err, io.EOF) {
			err = errors.Join(ErrInputEnd, err)
			return
		}
		if err != nil {
			return
		}
	}
}

// write sends text to the output, flushing it if buffered.
func (con *Console) write(text []byte) (err error) {
	if con.Output == nil {
		err = ErrOutputMissing
		return
	}

	_, err = con.Output.Write(text)
	if err != nil {
		return
	}

	if o, ok := con.Output.(flusher); ok {
		err = o.Flush()
	}

	return
}

// Trap services a trap vector.
// GETC and IN define R0 and so update the condition flags.
func (con *Console) Trap(cp *cpu.Cpu, vector uint8) (halt bool, err error) {
	reg := &cp.Register
	mem := &cp.Memory

	if con.Verbose {
		log.Printf("console: trap x%02X", vector)
	}

	switch vector {
	case cpu.TRAP_GETC:
		var ch byte
		ch, err = con.readByte()
		if err != nil {
			return
		}
		reg.Set(cpu.REG_R0, uint16(ch))
		reg.UpdateFlags(cpu.REG_R0)
	case cpu.TRAP_OUT:
		err = con.write([]byte{byte(reg.Get(cpu.REG_R0))})
	case cpu.TRAP_PUTS:
		var text []byte
		addr := reg.Get(cpu.REG_R0)
		for range cpu.MEMORY_SIZE {
			word := mem.Read(addr)
			if word == 0 {
				break
			}
			text = append(text, byte(word))
			addr++
		}
		err = con.write(text)
	case cpu.TRAP_IN:
		err = con.write([]byte(IN_PROMPT))
		if err != nil {
			return
		}
		var ch byte
		ch, err = con.readByte()
		if err != nil {
			return
		}
		err = con.write([]byte{ch})
		if err != nil {
			return
		}
		reg.Set(cpu.REG_R0, uint16(ch))
		reg.UpdateFlags(cpu.REG_R0)
	case cpu.TRAP_PUTSP:
		var text strings.Builder
		addr := reg.Get(cpu.REG_R0)
		for range cpu.MEMORY_SIZE {
			word := mem.Read(addr)
			if word == 0 {
				break
			}
			text.WriteByte(byte(word & 0xff))
			if word>>8 != 0 {
				text.WriteByte(byte(word >> 8))
			}
			addr++
		}
		err = con.write([]byte(text.String()))
	case cpu.TRAP_HALT:
		halt = true
	default:
		err = cpu.ErrTrapVector(vector)
	}

	return
}

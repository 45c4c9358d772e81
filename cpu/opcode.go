package cpu

import (
	"fmt"
	"strings"
)

// CodeOp is the 4-bit operation selector in bits 15-12 of an instruction.
type CodeOp int

//go:generate go tool stringer -linecomment -type=CodeOp
const (
	OP_BR   = CodeOp(0x0) // br
	OP_ADD  = CodeOp(0x1) // add
	OP_LD   = CodeOp(0x2) // ld
	OP_ST   = CodeOp(0x3) // st
	OP_JSR  = CodeOp(0x4) // jsr
	OP_AND  = CodeOp(0x5) // and
	OP_LDR  = CodeOp(0x6) // ldr
	OP_STR  = CodeOp(0x7) // str
	OP_RTI  = CodeOp(0x8) // rti
	OP_NOT  = CodeOp(0x9) // not
	OP_LDI  = CodeOp(0xa) // ldi
	OP_STI  = CodeOp(0xb) // sti
	OP_JMP  = CodeOp(0xc) // jmp
	OP_RES  = CodeOp(0xd) // res
	OP_LEA  = CodeOp(0xe) // lea
	OP_TRAP = CodeOp(0xf) // trap
)

// Trap vectors serviced by the host.
const (
	TRAP_GETC  = 0x20 // Read a character, no echo.
	TRAP_OUT   = 0x21 // Write a character.
	TRAP_PUTS  = 0x22 // Write a word string.
	TRAP_IN    = 0x23 // Prompt, read and echo a character.
	TRAP_PUTSP = 0x24 // Write a packed byte string.
	TRAP_HALT  = 0x25 // Halt the processor.
)

// Code is a single LC-3 instruction word.
type Code uint16

// SignExtend extends the width-bit two's complement value in bits to 16 bits.
func SignExtend(bits uint16, width uint8) uint16 {
	if width == 0 || width >= 16 {
		return bits
	}
	if (bits>>(width-1))&1 == 1 {
		bits |= 0xffff << width
	}
	return bits
}

// Op returns the opcode from bits 15-12.
func (code Code) Op() CodeOp {
	return CodeOp((code >> 12) & 0xf)
}

// Dr returns the destination (or store source) register from bits 11-9.
func (code Code) Dr() CodeReg {
	return CodeReg((code >> 9) & 0x7)
}

// Sr1 returns the first source register from bits 8-6.
func (code Code) Sr1() CodeReg {
	return CodeReg((code >> 6) & 0x7)
}

// BaseR returns the base register from bits 8-6.
func (code Code) BaseR() CodeReg {
	return code.Sr1()
}

// Sr2 returns the second source register from bits 2-0.
func (code Code) Sr2() CodeReg {
	return CodeReg(code & 0x7)
}

// IsImmediate reports whether bit 5 selects immediate mode.
func (code Code) IsImmediate() bool {
	return (code>>5)&1 == 1
}

// Imm5 returns the sign-extended 5-bit immediate.
func (code Code) Imm5() uint16 {
	return SignExtend(uint16(code)&0x1f, 5)
}

// Offset6 returns the sign-extended 6-bit base offset.
func (code Code) Offset6() uint16 {
	return SignExtend(uint16(code)&0x3f, 6)
}

// PcOffset9 returns the sign-extended 9-bit PC offset.
func (code Code) PcOffset9() uint16 {
	return SignExtend(uint16(code)&0x1ff, 9)
}

// PcOffset11 returns the sign-extended 11-bit PC offset.
func (code Code) PcOffset11() uint16 {
	return SignExtend(uint16(code)&0x7ff, 11)
}

// IsJsr reports whether bit 11 selects the PC-relative JSR form over JSRR.
func (code Code) IsJsr() bool {
	return (code>>11)&1 == 1
}

// CondMask returns the n, z and p test bits of a branch.
func (code Code) CondMask() CodeFlag {
	return CodeFlag((code >> 9) & 0x7)
}

// TrapVect returns the 8-bit trap vector.
func (code Code) TrapVect() uint8 {
	return uint8(code & 0xff)
}

// MakeCodeOperate creates an ADD or AND in register mode.
func MakeCodeOperate(op CodeOp, dr, sr1, sr2 CodeReg) Code {
	return Code(uint16(op)<<12 | uint16(dr&7)<<9 | uint16(sr1&7)<<6 | uint16(sr2&7))
}

// MakeCodeOperateImm creates an ADD or AND in immediate mode.
func MakeCodeOperateImm(op CodeOp, dr, sr1 CodeReg, imm5 int) Code {
	return Code(uint16(op)<<12 | uint16(dr&7)<<9 | uint16(sr1&7)<<6 | 1<<5 | uint16(imm5)&0x1f)
}

// MakeCodeNot creates a NOT.
func MakeCodeNot(dr, sr CodeReg) Code {
	return Code(uint16(OP_NOT)<<12 | uint16(dr&7)<<9 | uint16(sr&7)<<6 | 0x3f)
}

// MakeCodeBr creates a conditional branch.
func MakeCodeBr(mask CodeFlag, offset9 int) Code {
	return Code(uint16(OP_BR)<<12 | uint16(mask&7)<<9 | uint16(offset9)&0x1ff)
}

// MakeCodePcRelative creates an LD, LDI, LEA, ST or STI.
func MakeCodePcRelative(op CodeOp, reg CodeReg, offset9 int) Code {
	return Code(uint16(op)<<12 | uint16(reg&7)<<9 | uint16(offset9)&0x1ff)
}

// MakeCodeBase creates an LDR or STR.
func MakeCodeBase(op CodeOp, reg, base CodeReg, offset6 int) Code {
	return Code(uint16(op)<<12 | uint16(reg&7)<<9 | uint16(base&7)<<6 | uint16(offset6)&0x3f)
}

// MakeCodeJmp creates a JMP (RET when base is r7).
func MakeCodeJmp(base CodeReg) Code {
	return Code(uint16(OP_JMP)<<12 | uint16(base&7)<<6)
}

// MakeCodeJsr creates a PC-relative JSR.
func MakeCodeJsr(offset11 int) Code {
	return Code(uint16(OP_JSR)<<12 | 1<<11 | uint16(offset11)&0x7ff)
}

// MakeCodeJsrr creates a register JSRR.
func MakeCodeJsrr(base CodeReg) Code {
	return Code(uint16(OP_JSR)<<12 | uint16(base&7)<<6)
}

// MakeCodeTrap creates a TRAP.
func MakeCodeTrap(vector uint8) Code {
	return Code(uint16(OP_TRAP)<<12 | uint16(vector))
}

// trapName maps well known trap vectors to their assembler aliases.
var trapName = map[uint8]string{
	TRAP_GETC:  "getc",
	TRAP_OUT:   "out",
	TRAP_PUTS:  "puts",
	TRAP_IN:    "in",
	TRAP_PUTSP: "putsp",
	TRAP_HALT:  "halt",
}

// String returns the assembly language representation of this instruction.
// PC-relative offsets are shown as signed displacements.
func (code Code) String() (out string) {
	signed := func(v uint16) int { return int(int16(v)) }

	op := code.Op()
	switch op {
	case OP_ADD, OP_AND:
		if code.IsImmediate() {
			out = fmt.Sprintf("%v %v, %v, #%d", op, code.Dr(), code.Sr1(), signed(code.Imm5()))
		} else {
			out = fmt.Sprintf("%v %v, %v, %v", op, code.Dr(), code.Sr1(), code.Sr2())
		}
	case OP_NOT:
		out = fmt.Sprintf("%v %v, %v", op, code.Dr(), code.Sr1())
	case OP_BR:
		mask := code.CondMask()
		var flags strings.Builder
		for _, flag := range []CodeFlag{FLAG_NEG, FLAG_ZRO, FLAG_POS} {
			if mask&flag != 0 {
				flags.WriteString(flag.String())
			}
		}
		if mask == 0 {
			out = "nop"
		} else {
			out = fmt.Sprintf("%v%v #%d", op, flags.String(), signed(code.PcOffset9()))
		}
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		out = fmt.Sprintf("%v %v, #%d", op, code.Dr(), signed(code.PcOffset9()))
	case OP_LDR, OP_STR:
		out = fmt.Sprintf("%v %v, %v, #%d", op, code.Dr(), code.BaseR(), signed(code.Offset6()))
	case OP_JMP:
		if code.BaseR() == REG_R7 {
			out = "ret"
		} else {
			out = fmt.Sprintf("%v %v", op, code.BaseR())
		}
	case OP_JSR:
		if code.IsJsr() {
			out = fmt.Sprintf("%v #%d", op, signed(code.PcOffset11()))
		} else {
			out = fmt.Sprintf("jsrr %v", code.BaseR())
		}
	case OP_TRAP:
		name, ok := trapName[code.TrapVect()]
		if ok {
			out = name
		} else {
			out = fmt.Sprintf("%v x%02X", op, code.TrapVect())
		}
	default:
		out = fmt.Sprintf("%v", op)
	}

	return
}

package cpu

// CodeReg identifies a slot in the register file.
type CodeReg int

//go:generate go tool stringer -linecomment -type=CodeReg
const (
	REG_R0    = CodeReg(0)  // r0
	REG_R1    = CodeReg(1)  // r1
	REG_R2    = CodeReg(2)  // r2
	REG_R3    = CodeReg(3)  // r3
	REG_R4    = CodeReg(4)  // r4
	REG_R5    = CodeReg(5)  // r5
	REG_R6    = CodeReg(6)  // r6
	REG_R7    = CodeReg(7)  // r7
	REG_PC    = CodeReg(8)  // pc
	REG_COND  = CodeReg(9)  // cond
	REG_COUNT = CodeReg(10) // count
)

// CodeFlag is a condition flag held in the COND register.
type CodeFlag uint16

//go:generate go tool stringer -linecomment -type=CodeFlag
const (
	FLAG_POS = CodeFlag(1 << 0) // p
	FLAG_ZRO = CodeFlag(1 << 1) // z
	FLAG_NEG = CodeFlag(1 << 2) // n
)

// FlagOf returns the condition flag describing value.
func FlagOf(value uint16) CodeFlag {
	switch {
	case value == 0:
		return FLAG_ZRO
	case (value >> 15) == 1:
		return FLAG_NEG
	default:
		return FLAG_POS
	}
}

// RegisterFile holds r0-r7, the program counter and the condition register.
type RegisterFile [REG_COUNT]uint16

// Get returns the value of a register.
func (rf *RegisterFile) Get(reg CodeReg) uint16 {
	return rf[reg]
}

// Set sets the value of a register.
func (rf *RegisterFile) Set(reg CodeReg, value uint16) {
	rf[reg] = value
}

// Pc returns the program counter.
func (rf *RegisterFile) Pc() uint16 {
	return rf[REG_PC]
}

// Flags returns the current condition flag.
func (rf *RegisterFile) Flags() CodeFlag {
	return CodeFlag(rf[REG_COND])
}

// UpdateFlags sets COND from the value of the destination register dr.
func (rf *RegisterFile) UpdateFlags(dr CodeReg) {
	rf[REG_COND] = uint16(FlagOf(rf[dr]))
}

// Reset zeros every register.
func (rf *RegisterFile) Reset() {
	clear(rf[:])
}

package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeFields(t *testing.T) {
	assert := assert.New(t)

	code := Code(0x1283) // add r1, r2, r3
	assert.Equal(OP_ADD, code.Op())
	assert.Equal(REG_R1, code.Dr())
	assert.Equal(REG_R2, code.Sr1())
	assert.Equal(REG_R3, code.Sr2())
	assert.False(code.IsImmediate())

	code = MakeCodeOperateImm(OP_ADD, REG_R1, REG_R2, -1)
	assert.Equal(Code(0x12bf), code)
	assert.True(code.IsImmediate())
	assert.Equal(uint16(0xffff), code.Imm5())

	code = MakeCodeBr(FLAG_NEG|FLAG_POS, -3)
	assert.Equal(OP_BR, code.Op())
	assert.Equal(FLAG_NEG|FLAG_POS, code.CondMask())
	assert.Equal(uint16(0xfffd), code.PcOffset9())

	code = MakeCodeBase(OP_LDR, REG_R5, REG_R6, 31)
	assert.Equal(REG_R5, code.Dr())
	assert.Equal(REG_R6, code.BaseR())
	assert.Equal(uint16(31), code.Offset6())

	code = MakeCodeJsr(-1024)
	assert.True(code.IsJsr())
	assert.Equal(uint16(0xfc00), code.PcOffset11())

	code = MakeCodeJsrr(REG_R4)
	assert.False(code.IsJsr())
	assert.Equal(REG_R4, code.BaseR())

	code = MakeCodeTrap(TRAP_PUTS)
	assert.Equal(Code(0xf022), code)
	assert.Equal(uint8(TRAP_PUTS), code.TrapVect())
}

func TestCodeString(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		code     Code
		expected string
	}){
		{MakeCodeOperateImm(OP_ADD, REG_R1, REG_R2, -1), "add r1, r2, #-1"},
		{MakeCodeOperate(OP_AND, REG_R0, REG_R1, REG_R2), "and r0, r1, r2"},
		{MakeCodeNot(REG_R3, REG_R4), "not r3, r4"},
		{MakeCodeBr(FLAG_NEG|FLAG_ZRO|FLAG_POS, 3), "brnzp #3"},
		{MakeCodeBr(FLAG_ZRO|FLAG_POS, -2), "brzp #-2"},
		{MakeCodeBr(0, 0), "nop"},
		{MakeCodePcRelative(OP_LEA, REG_R0, 5), "lea r0, #5"},
		{MakeCodePcRelative(OP_STI, REG_R7, -256), "sti r7, #-256"},
		{MakeCodeBase(OP_LDR, REG_R1, REG_R6, -3), "ldr r1, r6, #-3"},
		{MakeCodeJmp(REG_R7), "ret"},
		{MakeCodeJmp(REG_R2), "jmp r2"},
		{MakeCodeJsr(-100), "jsr #-100"},
		{MakeCodeJsrr(REG_R3), "jsrr r3"},
		{MakeCodeTrap(TRAP_HALT), "halt"},
		{MakeCodeTrap(0x26), "trap x26"},
		{Code(0x8000), "rti"},
		{Code(0xd000), "res"},
	}

	for _, entry := range table {
		assert.Equal(entry.expected, entry.code.String(), "%#04x", uint16(entry.code))
	}
}

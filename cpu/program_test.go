package cpu

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testProgram() *Program {
	return &Program{
		Origin: 0x3000,
		Opcodes: []Opcode{
			{LineNo: 1, Pc: 0x3000, Words: []string{"lea", "r0", "MSG"},
				Codes: []Code{MakeCodePcRelative(OP_LEA, REG_R0, 2)}},
			{LineNo: 2, Pc: 0x3001, Words: []string{"puts"},
				Codes: []Code{MakeCodeTrap(TRAP_PUTS)}},
			{LineNo: 3, Pc: 0x3002, Words: []string{"halt"},
				Codes: []Code{MakeCodeTrap(TRAP_HALT)}},
			{LineNo: 4, Pc: 0x3003, Words: []string{"MSG", ".stringz", "\"ok\""},
				Codes: []Code{'o', 'k', 0}},
		},
	}
}

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	dbg := prog.Debug(0x3000)
	assert.NotNil(dbg.Opcode)
	assert.Equal(1, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(0x3002)
	assert.NotNil(dbg.Opcode)
	assert.Equal(3, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	dbg := prog.Debug(0x2fff)
	assert.Nil(dbg.Opcode)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(0x3006)
	assert.Nil(dbg.Opcode)
}

func TestProgram_Debug_MultipleCodesPerOpcode(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	dbg := prog.Debug(0x3005)
	assert.NotNil(dbg.Opcode)
	assert.Equal(4, dbg.Opcode.LineNo)
	assert.Equal(2, dbg.Index)
	assert.Equal(Code(0), dbg.Codes[dbg.Index])
}

func TestProgram_Image(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	assert.Equal([]uint16{0xe002, 0xf022, 0xf025, 'o', 'k', 0}, prog.Image())

	codes := maps.Collect(prog.Codes())
	assert.Equal(6, len(codes))
	assert.Equal(Code('k'), codes[0x3004])
}

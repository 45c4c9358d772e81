package cpu

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(t *testing.T, program []string) (prog *Program, asm *Assembler) {
	asm = &Assembler{}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(t, err)
	if err != nil {
		t.Fatal(err)
	}

	return
}

func opEqual(t *testing.T, expected, opcodes []Opcode) {
	assert := assert.New(t)

	assert.Equal(len(expected), len(opcodes))
	if len(expected) == len(opcodes) {
		for n := range len(expected) {
			assert.Equal(expected[n], opcodes[n])
		}
	}
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))
	assert.Equal(uint16(PC_START), prog.Origin)

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal(fmt.Sprintf("%d", MEMORY_SIZE), asm.Equate["MEMORY_SIZE"])
}

func TestAssemblerHello(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"        .orig x3000",
		"        lea r0, HELLO",
		"        puts",
		"        halt",
		"HELLO   .stringz \"Hi!\" ; greeting",
		"        .end",
	}

	prog, asm := assemble(t, program)

	expected := []Opcode{
		{2, 0x3000, []string{"lea", "r0", "HELLO"}, []Code{0xe002}, "HELLO", 9},
		{3, 0x3001, []string{"puts"}, []Code{0xf022}, "", 0},
		{4, 0x3002, []string{"halt"}, []Code{0xf025}, "", 0},
		{5, 0x3003, []string{".stringz", "\"Hi!\""}, []Code{'H', 'i', '!', 0}, "", 0},
	}

	opEqual(t, expected, prog.Opcodes)
	assert.Equal(0x3003, asm.Label["HELLO"])
	assert.Equal([]uint16{0xe002, 0xf022, 0xf025, 'H', 'i', '!', 0}, prog.Image())
}

func TestAssemblerOrig(t *testing.T) {
	assert := assert.New(t)

	prog, _ := assemble(t, []string{
		".orig x4000",
		"TOP br TOP",
	})

	assert.Equal(uint16(0x4000), prog.Origin)
	assert.Equal(0x4000, prog.Opcodes[0].Pc)
	assert.Equal([]uint16{uint16(MakeCodeBr(FLAG_NEG|FLAG_ZRO|FLAG_POS, -1))}, prog.Image())
}

func TestAssemblerLoop(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"        and r0, r0, #0",
		"        add r0, r0, #5",
		"LOOP:   add r1, r1, #2",
		"        add r0, r0, #-1",
		"        brp LOOP",
		"        brnz DONE",
		"DONE",
		"        halt",
	}

	prog, _ := assemble(t, program)

	assert.Equal([]uint16{
		uint16(MakeCodeOperateImm(OP_AND, REG_R0, REG_R0, 0)),
		uint16(MakeCodeOperateImm(OP_ADD, REG_R0, REG_R0, 5)),
		uint16(MakeCodeOperateImm(OP_ADD, REG_R1, REG_R1, 2)),
		uint16(MakeCodeOperateImm(OP_ADD, REG_R0, REG_R0, -1)),
		uint16(MakeCodeBr(FLAG_POS, -3)),
		uint16(MakeCodeBr(FLAG_NEG|FLAG_ZRO, 0)),
		uint16(MakeCodeTrap(TRAP_HALT)),
	}, prog.Image())
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		line     string
		expected Code
	}){
		{"add r1, r2, r3", MakeCodeOperate(OP_ADD, REG_R1, REG_R2, REG_R3)},
		{"ADD R1, R2, #15", MakeCodeOperateImm(OP_ADD, REG_R1, REG_R2, 15)},
		{"and r7, r0, #-16", MakeCodeOperateImm(OP_AND, REG_R7, REG_R0, -16)},
		{"not r4, r5", MakeCodeNot(REG_R4, REG_R5)},
		{"ld r2, #-1", MakeCodePcRelative(OP_LD, REG_R2, -1)},
		{"ldi r2, #255", MakeCodePcRelative(OP_LDI, REG_R2, 255)},
		{"st r3, x10", MakeCodePcRelative(OP_ST, REG_R3, 16)},
		{"ldr r1, r6, #-32", MakeCodeBase(OP_LDR, REG_R1, REG_R6, -32)},
		{"str r1, r6, #31", MakeCodeBase(OP_STR, REG_R1, REG_R6, 31)},
		{"jmp r3", MakeCodeJmp(REG_R3)},
		{"ret", MakeCodeJmp(REG_R7)},
		{"jsrr r5", MakeCodeJsrr(REG_R5)},
		{"jsr #1023", MakeCodeJsr(1023)},
		{"br #0", MakeCodeBr(FLAG_NEG|FLAG_ZRO|FLAG_POS, 0)},
		{"brz #4", MakeCodeBr(FLAG_ZRO, 4)},
		{"nop", MakeCodeBr(0, 0)},
		{"getc", MakeCodeTrap(TRAP_GETC)},
		{"out", MakeCodeTrap(TRAP_OUT)},
		{"in", MakeCodeTrap(TRAP_IN)},
		{"putsp", MakeCodeTrap(TRAP_PUTSP)},
		{"trap x26", MakeCodeTrap(0x26)},
		{"rti", Code(0x8000)},
		{".fill #-1", Code(0xffff)},
		{".fill xBEEF", Code(0xbeef)},
		{".fill 'A'", Code('A')},
		{".fill ~0", Code(0xffff)},
	}

	for _, entry := range table {
		prog, _ := assemble(t, []string{entry.line})
		assert.Equal([]uint16{uint16(entry.expected)}, prog.Image(), entry.line)
	}
}

func TestAssemblerLink(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"        jsr SUB",
		"        ld r1, DATA",
		"        halt",
		"SUB     ret",
		"PTR     .fill DATA",
		"        .blkw 2",
		"DATA    .fill #7",
	}

	prog, asm := assemble(t, program)

	assert.Equal(0x3003, asm.Label["SUB"])
	assert.Equal(0x3007, asm.Label["DATA"])
	assert.Equal([]uint16{
		uint16(MakeCodeJsr(2)),
		uint16(MakeCodePcRelative(OP_LD, REG_R1, 5)),
		uint16(MakeCodeTrap(TRAP_HALT)),
		uint16(MakeCodeJmp(REG_R7)),
		0x3007,
		0, 0,
		7,
	}, prog.Image())
}

func TestAssemblerEquate(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("BASE", "0x4000")

	program := []string{
		".equ COUNT 5",
		".equ DOUBLE $(COUNT * 2)",
		"add r0, r0, COUNT",
		".fill DOUBLE",
		".fill $(BASE + 1)",
		".fill $(LINENO)",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal("10", asm.Equate["DOUBLE"])
	assert.Equal([]uint16{
		uint16(MakeCodeOperateImm(OP_ADD, REG_R0, REG_R0, 5)),
		10,
		0x4001,
		6,
	}, prog.Image())
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".macro PUSH reg",
		"add r6, r6, #-1",
		"str reg, r6, #0",
		".endm",
		".macro SKIP",
		"br @next",
		"nop",
		"@next",
		".endm",
		"PUSH r1",
		"PUSH r2",
		"SKIP",
	}

	prog, _ := assemble(t, program)

	assert.Equal([]uint16{
		uint16(MakeCodeOperateImm(OP_ADD, REG_R6, REG_R6, -1)),
		uint16(MakeCodeBase(OP_STR, REG_R1, REG_R6, 0)),
		uint16(MakeCodeOperateImm(OP_ADD, REG_R6, REG_R6, -1)),
		uint16(MakeCodeBase(OP_STR, REG_R2, REG_R6, 0)),
		uint16(MakeCodeBr(FLAG_NEG|FLAG_ZRO|FLAG_POS, 1)),
		uint16(MakeCodeBr(0, 0)),
	}, prog.Image())
}

func TestAssemblerEnd(t *testing.T) {
	assert := assert.New(t)

	prog, _ := assemble(t, []string{
		"halt",
		".end",
		"this is not $( assembled",
	})

	assert.Equal(1, len(prog.Opcodes))
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		err     error
	}){
		{"imm_range", []string{"add r0, r0, #16"}, ErrOffsetRange{Value: 16, Width: 5}},
		{"offset_range", []string{"ldr r0, r1, #32"}, ErrOffsetRange{Value: 32, Width: 6}},
		{"branch_range", []string{"br FAR", ".blkw 300", "FAR halt"}, ErrOffsetRange{Value: 300, Width: 9}},
		{"label_missing", []string{"br MISSING"}, ErrLabelMissing("MISSING")},
		{"label_duplicate", []string{"A: halt", "A: halt"}, ErrLabelDuplicate},
		{"register", []string{"add r0, r9, r1"}, ErrRegisterInvalid},
		{"value_missing", []string{"add r0, r0"}, ErrOpcodeValueMissing},
		{"extra_args", []string{"halt r0"}, ErrOpcodeExtraArgs},
		{"orig_late", []string{"halt", ".orig x4000"}, ErrOrigLate},
		{"orig_syntax", []string{".orig x10000"}, ErrOrigSyntax},
		{"equ_syntax", []string{".equ A"}, ErrEquateSyntax},
		{"equ_duplicate", []string{".equ A 1", ".equ A 2"}, ErrEquateDuplicate},
		{"macro_lonely", []string{".macro FOO", "halt"}, ErrMacroLonely},
		{"macro_endm", []string{".endm"}, ErrMacroLonelyEndm},
		{"macro_nesting", []string{".macro A", ".macro B"}, ErrMacroNesting},
		{"macro_duplicate", []string{".macro A", ".endm", ".macro A", ".endm"}, ErrMacroDuplicate},
		{"macro_args", []string{".macro A x", ".endm", "A"}, ErrMacroSyntax},
		{"stringz", []string{".stringz hello"}, ErrStringSyntax},
		{"instruction", []string{"frob r0"}, ErrInstructionInvalid},
		{"number", []string{".fill #12z"}, ErrParseNumber("#12z")},
		{"character", []string{".fill 'ab'"}, ErrParseCharacter("'ab'")},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(strings.Join(entry.program, "\n")))
		assert.ErrorIs(err, entry.err, entry.name)

		var syntax *ErrSyntax
		if assert.True(errors.As(err, &syntax), entry.name) {
			assert.NotZero(syntax.LineNo, entry.name)
		}
	}
}

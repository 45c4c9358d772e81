// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":      "0",
	"MEMORY_SIZE": fmt.Sprintf("%d", MEMORY_SIZE),
}

// Assembler is a single pass macro assembler for the LC-3 system.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	origin int  // Address of the first word.
	ended  bool // Set once .end is seen.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap is a map of register names to register codes.
var regMap = map[string]CodeReg{
	"r0": REG_R0,
	"r1": REG_R1,
	"r2": REG_R2,
	"r3": REG_R3,
	"r4": REG_R4,
	"r5": REG_R5,
	"r6": REG_R6,
	"r7": REG_R7,
}

// trapMap maps trap aliases to their vectors.
var trapMap = map[string]uint8{
	"getc":  TRAP_GETC,
	"out":   TRAP_OUT,
	"puts":  TRAP_PUTS,
	"in":    TRAP_IN,
	"putsp": TRAP_PUTSP,
	"halt":  TRAP_HALT,
}

// pcRelMap maps the PC-relative register opcodes.
var pcRelMap = map[string]CodeOp{
	"ld":  OP_LD,
	"ldi": OP_LDI,
	"lea": OP_LEA,
	"st":  OP_ST,
	"sti": OP_STI,
}

var reBranch = regexp.MustCompile(`^br(n?)(z?)(p?)$`)
var reLabel = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// isKeyword returns true if the word is a mnemonic or directive.
func isKeyword(word string) bool {
	word = strings.ToLower(word)

	if strings.HasPrefix(word, ".") {
		return true
	}

	if _, ok := trapMap[word]; ok {
		return true
	}

	if _, ok := pcRelMap[word]; ok {
		return true
	}

	switch word {
	case "add", "and", "not", "jmp", "ret", "jsr", "jsrr", "ldr", "str", "trap", "rti", "nop":
		return true
	}

	return reBranch.MatchString(word)
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}

	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}

	text := word
	switch {
	case strings.HasPrefix(text, "#"):
		text = text[1:]
	case len(text) > 1 && (text[0] == 'x' || text[0] == 'X'):
		text = "0x" + text[1:]
	case len(text) > 2 && (text[0] == '-') && (text[1] == 'x' || text[1] == 'X'):
		text = "-0x" + text[2:]
	}

	v64, err := strconv.ParseInt(text, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)

	if invert {
		value = int(^uint16(value))
	}

	return
}

// isRegister returns true if the word names a register.
func isRegister(word string) bool {
	_, ok := regMap[strings.ToLower(word)]
	return ok
}

// register returns the register named by word.
func (asm *Assembler) register(word string) (reg CodeReg, err error) {
	reg, ok := regMap[strings.ToLower(word)]
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// signed returns the value of word, if it fits in a signed field.
func (asm *Assembler) signed(word string, width int) (value int, err error) {
	value, err = asm.valueOf(word)
	if err != nil {
		return
	}
	if value < -(1<<(width-1)) || value >= (1<<(width-1)) {
		err = ErrOffsetRange{Value: value, Width: width}
	}
	return
}

// unsigned returns the value of word, if it fits in an unsigned field.
func (asm *Assembler) unsigned(word string, width int) (value int, err error) {
	value, err = asm.valueOf(word)
	if err != nil {
		return
	}
	if value < 0 || value >= (1<<width) {
		err = ErrOffsetRange{Value: value, Width: width}
	}
	return
}

// target returns either a literal offset, or a label to link.
func (asm *Assembler) target(word string, width int) (offset int, label string, err error) {
	if _, perr := asm.valueOf(word); perr == nil {
		offset, err = asm.signed(word, width)
		return
	}

	if !reLabel.MatchString(word) {
		err = ErrParseNumber(word)
		return
	}

	label = word
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var ival int
		ival, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(ival)
	}
	for key, pc := range asm.Label {
		if _, ok := pred[key]; !ok {
			pred[key] = starlark.MakeInt(pc)
		}
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// charEval converts a quoted character into its value.
func charEval(word string) (value int, err error) {
	str, err := strconv.Unquote(word)
	if err != nil || len(str) != 1 {
		err = ErrParseCharacter(word)
		return
	}
	value = int(str[0])
	return
}

// splitWords splits a line into words, keeping quoted text and $() expressions
// whole. Words are separated by spaces or commas; a ';' starts a comment.
func splitWords(line string) (words []string, err error) {
	var word strings.Builder
	var quote rune
	depth := 0

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	runes := []rune(line)
	for n := 0; n < len(runes); n++ {
		r := runes[n]
		switch {
		case quote != 0:
			word.WriteRune(r)
			if r == '\\' && n+1 < len(runes) {
				n++
				word.WriteRune(runes[n])
			} else if r == quote {
				quote = 0
			}
		case depth > 0:
			word.WriteRune(r)
			switch r {
			case '(':
				depth++
			case ')':
				depth--
			}
		case r == '"' || r == '\'':
			quote = r
			word.WriteRune(r)
		case r == '$' && n+1 < len(runes) && runes[n+1] == '(':
			word.WriteString("$(")
			n++
			depth = 1
		case r == ';':
			flush()
			return
		case r == ',' || unicode.IsSpace(r):
			flush()
		default:
			word.WriteRune(r)
		}
	}

	switch {
	case quote != 0:
		err = ErrStringSyntax
	case depth > 0:
		err = ErrParseExpression(word.String())
	}

	flush()
	return
}

// parseLine parses a single line into opcode words, defining labels and equates.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	words, err = splitWords(line)
	if err != nil {
		return
	}

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.ToLower(words[0]) == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		value := words[2]
		if strings.HasPrefix(value, "$(") {
			var ival int
			ival, err = asm.parenEval(value[2 : len(value)-1])
			if err != nil {
				return
			}
			value = strconv.Itoa(ival)
		}
		asm.Equate[words[1]] = value
		words = words[:0]
		return
	}

	// Labels, either 'NAME:' or a bare leading name.
	for len(words) > 0 {
		first := words[0]
		var label string
		switch {
		case strings.HasSuffix(first, ":"):
			label = first[:len(first)-1]
		case isKeyword(first):
		case asm.Macro[first] != nil:
		case isRegister(first):
		case !reLabel.MatchString(first):
		default:
			label = first
		}
		if len(label) == 0 {
			break
		}

		if _, ok := asm.Label[label]; ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentPc()
		words = words[1:]
	}

	if len(words) == 0 {
		return
	}

	for n, word := range words {
		// Check for equate first
		equate, ok := asm.Equate[word]
		if ok {
			word = equate
		}

		switch {
		case strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")"):
			var value int
			value, err = asm.parenEval(word[2 : len(word)-1])
			if err != nil {
				return
			}
			word = strconv.Itoa(value)
		case strings.HasPrefix(word, "'"):
			var value int
			value, err = charEval(word)
			if err != nil {
				return
			}
			word = strconv.Itoa(value)
		}

		words[n] = word
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = args[n]
		}
		defer func() { asm.Equate = old_equate }()

		// '@' makes labels unique to this invocation.
		unique := fmt.Sprintf("%v_%v_", name, lineno)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", unique)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentPc gets the address of the next generated word.
func (asm *Assembler) currentPc() int {
	if len(asm.Opcode) == 0 {
		return asm.origin
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Pc + len(last.Codes)
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}
	asm.origin = PC_START
	asm.ended = false

	for !asm.ended && scanner.Scan() {
		line = scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, line)
		}

		var words []string
		words, err = splitWords(line)
		if err != nil {
			return
		}

		// .macro NAME arg...
		if len(words) > 0 && strings.ToLower(words[0]) == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && strings.ToLower(words[0]) == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		lineno = op.LineNo
		line = strings.Join(op.Words, " ")

		label := op.LinkLabel
		pc, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		if len(op.Codes) < 1 {
			log.Fatalf("Unable to link label '%s' to line %d: %v", label, op.LineNo, op.Words)
		}
		linked := &op.Codes[len(op.Codes)-1]
		if op.LinkWidth == 0 {
			*linked = Code(pc)
			continue
		}

		// Offsets are relative to the incremented PC.
		offset := pc - (op.Pc + len(op.Codes))
		if offset < -(1<<(op.LinkWidth-1)) || offset >= (1<<(op.LinkWidth-1)) {
			err = ErrOffsetRange{Value: offset, Width: op.LinkWidth}
			return
		}
		*linked |= Code(offset & ((1 << op.LinkWidth) - 1))
	}

	prog = &Program{
		Origin:  uint16(asm.origin),
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var label string
	var width int

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 {
			return
		}
		opcode := Opcode{
			LineNo:    lineno,
			Pc:        asm.currentPc(),
			Words:     initial_words,
			Codes:     codes,
			LinkLabel: label,
			LinkWidth: width,
		}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	mnemonic := strings.ToLower(words[0])
	args := words[1:]

	// argc checks the argument count.
	argc := func(count int) error {
		switch {
		case len(args) < count:
			return ErrOpcodeValueMissing
		case len(args) > count:
			return ErrOpcodeExtraArgs
		}
		return nil
	}

	never := false

	// Alternate syntax substitutions
	switch mnemonic {
	case "ret":
		// ret => jmp r7
		mnemonic = "jmp"
		args = append([]string{"r7"}, args...)
	case "nop":
		// nop => br (never) 0
		mnemonic = "br"
		args = append(args, "0")
		never = true
	default:
		// unchanged
	}

	if vector, ok := trapMap[mnemonic]; ok {
		if err = argc(0); err != nil {
			return
		}
		codes = append(codes, MakeCodeTrap(vector))
		return
	}

	if op, ok := pcRelMap[mnemonic]; ok {
		if err = argc(2); err != nil {
			return
		}
		var reg CodeReg
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		var offset int
		offset, label, err = asm.target(args[1], 9)
		if err != nil {
			return
		}
		if len(label) != 0 {
			width = 9
		}
		codes = append(codes, MakeCodePcRelative(op, reg, offset))
		return
	}

	if match := reBranch.FindStringSubmatch(mnemonic); match != nil {
		if err = argc(1); err != nil {
			return
		}
		var mask CodeFlag
		if len(match[1]) != 0 {
			mask |= FLAG_NEG
		}
		if len(match[2]) != 0 {
			mask |= FLAG_ZRO
		}
		if len(match[3]) != 0 {
			mask |= FLAG_POS
		}
		if mask == 0 && !never {
			mask = FLAG_NEG | FLAG_ZRO | FLAG_POS
		}
		var offset int
		offset, label, err = asm.target(args[0], 9)
		if err != nil {
			return
		}
		if len(label) != 0 {
			width = 9
		}
		codes = append(codes, MakeCodeBr(mask, offset))
		return
	}

	switch mnemonic {
	case ".orig":
		if err = argc(1); err != nil {
			return
		}
		if len(asm.Opcode) != 0 {
			err = ErrOrigLate
			return
		}
		var value int
		value, err = asm.unsigned(args[0], 16)
		if err != nil {
			err = ErrOrigSyntax
			return
		}
		asm.origin = value
	case ".end":
		if err = argc(0); err != nil {
			return
		}
		asm.ended = true
	case ".fill":
		if err = argc(1); err != nil {
			return
		}
		var value int
		if _, perr := asm.valueOf(args[0]); perr == nil || !reLabel.MatchString(args[0]) {
			value, err = asm.valueOf(args[0])
			if err != nil {
				return
			}
			if value < -(1<<15) || value >= (1<<16) {
				err = ErrOffsetRange{Value: value, Width: 16}
				return
			}
		} else {
			label = args[0]
		}
		codes = append(codes, Code(uint16(value)))
	case ".blkw":
		if err = argc(1); err != nil {
			return
		}
		var count int
		count, err = asm.unsigned(args[0], 16)
		if err != nil {
			return
		}
		codes = make([]Code, count)
	case ".stringz":
		if err = argc(1); err != nil {
			return
		}
		if !strings.HasPrefix(args[0], "\"") {
			err = ErrStringSyntax
			return
		}
		var text string
		text, err = strconv.Unquote(args[0])
		if err != nil {
			err = ErrStringSyntax
			return
		}
		for _, ch := range []byte(text) {
			codes = append(codes, Code(ch))
		}
		codes = append(codes, Code(0))
	case "add", "and":
		if err = argc(3); err != nil {
			return
		}
		op := OP_ADD
		if mnemonic == "and" {
			op = OP_AND
		}
		var dr, sr1, sr2 CodeReg
		dr, err = asm.register(args[0])
		if err != nil {
			return
		}
		sr1, err = asm.register(args[1])
		if err != nil {
			return
		}
		sr2, err = asm.register(args[2])
		if err == nil {
			codes = append(codes, MakeCodeOperate(op, dr, sr1, sr2))
			return
		}
		var imm int
		imm, err = asm.signed(args[2], 5)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeOperateImm(op, dr, sr1, imm))
	case "not":
		if err = argc(2); err != nil {
			return
		}
		var dr, sr CodeReg
		dr, err = asm.register(args[0])
		if err != nil {
			return
		}
		sr, err = asm.register(args[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeNot(dr, sr))
	case "jmp", "jsrr":
		if err = argc(1); err != nil {
			return
		}
		var base CodeReg
		base, err = asm.register(args[0])
		if err != nil {
			return
		}
		if mnemonic == "jmp" {
			codes = append(codes, MakeCodeJmp(base))
		} else {
			codes = append(codes, MakeCodeJsrr(base))
		}
	case "jsr":
		if err = argc(1); err != nil {
			return
		}
		var offset int
		offset, label, err = asm.target(args[0], 11)
		if err != nil {
			return
		}
		if len(label) != 0 {
			width = 11
		}
		codes = append(codes, MakeCodeJsr(offset))
	case "ldr", "str":
		if err = argc(3); err != nil {
			return
		}
		op := OP_LDR
		if mnemonic == "str" {
			op = OP_STR
		}
		var reg, base CodeReg
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		base, err = asm.register(args[1])
		if err != nil {
			return
		}
		var offset int
		offset, err = asm.signed(args[2], 6)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeBase(op, reg, base, offset))
	case "trap":
		if err = argc(1); err != nil {
			return
		}
		var vector int
		vector, err = asm.unsigned(args[0], 8)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeTrap(uint8(vector)))
	case "rti":
		if err = argc(0); err != nil {
			return
		}
		codes = append(codes, Code(uint16(OP_RTI)<<12))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}

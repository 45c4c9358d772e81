package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and generated words.
type Opcode struct {
	LineNo    int      // Source line number.
	Pc        int      // Address of the first generated word.
	Words     []string // Source words.
	Codes     []Code   // Generated words.
	LinkLabel string   // Label to resolve into the last generated word.
	LinkWidth int      // PC offset width of the link; 0 for an absolute address.
}

type Program struct {
	Origin  uint16
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

func (prog *Program) Debug(pc uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(pc) >= op.Pc && int(pc) < op.Pc+len(op.Codes) {
			index := int(pc) - op.Pc
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  index,
			}
			break
		}
	}

	return
}

// Image returns the words of the program, in address order from the origin.
func (prog *Program) Image() (words []uint16) {
	for _, code := range prog.Codes() {
		words = append(words, uint16(code))
	}

	return
}

// Codes iterates over every generated word and its address.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(pc uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			pc := uint16(op.Pc)
			for n, code := range op.Codes {
				if !yield(pc+uint16(n), code) {
					return
				}
			}
		}
	}
}

// Package cpu implements the processor and assembler for the LC-3 system.
//
// The CPU consists of a program counter (PC), eight 16-bit general-purpose
// registers (r0-r7), a condition register (COND) holding exactly one of the
// N, Z or P flags, and a flat 64K word memory. Every instruction is a single
// 16-bit word whose top four bits select one of sixteen opcodes.
//
// Character I/O and halting are delegated to a TrapService, invoked by the
// TRAP opcode with its 8-bit vector.
//
// The assembler provides the LC-3 assembly language, supporting macros,
// labels, equates, and compile-time expression evaluation.
package cpu

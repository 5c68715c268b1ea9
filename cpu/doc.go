// Package cpu implements the execution unit and assembler for the Y86-64
// teaching architecture.
//
// The execution unit consists of fifteen 64-bit signed registers
// (%rax-%r14, with %rsp as the stack pointer), the ZF/SF/OF condition
// codes, an ALU, and the instruction decoder. Decode is total: it always
// yields an Instruction record, using the OP_INVALID class for opcodes
// outside the instruction set.
//
// The assembler provides a two-pass translator from Y86-64 assembly
// (.pos/.align/.quad directives, labels, compile-time expressions) to the
// address-tagged hex image format consumed by the memory loader.
package cpu

package cpu

import (
	"fmt"
)

// RegisterID selects one of the architectural registers.
type RegisterID int

//go:generate go tool stringer -linecomment -type=RegisterID
const (
	REG_RAX = RegisterID(0)  // rax
	REG_RCX = RegisterID(1)  // rcx
	REG_RDX = RegisterID(2)  // rdx
	REG_RBX = RegisterID(3)  // rbx
	REG_RSP = RegisterID(4)  // rsp
	REG_RBP = RegisterID(5)  // rbp
	REG_RSI = RegisterID(6)  // rsi
	REG_RDI = RegisterID(7)  // rdi
	REG_R8  = RegisterID(8)  // r8
	REG_R9  = RegisterID(9)  // r9
	REG_R10 = RegisterID(10) // r10
	REG_R11 = RegisterID(11) // r11
	REG_R12 = RegisterID(12) // r12
	REG_R13 = RegisterID(13) // r13
	REG_R14 = RegisterID(14) // r14
)

// NUM_REGISTERS is the architectural register count.
const NUM_REGISTERS = 15

// OpClass is the mnemonic class of an opcode byte. For the first twelve
// classes the value matches the instruction code in the opcode's high
// nibble; the low nibble selects the function (ALU operation or branch
// condition) within the class.
type OpClass int

//go:generate go tool stringer -linecomment -type=OpClass
const (
	OP_HALT    = OpClass(0x0) // halt
	OP_NOP     = OpClass(0x1) // nop
	OP_CMOV    = OpClass(0x2) // cmov
	OP_IRMOVQ  = OpClass(0x3) // irmovq
	OP_RMMOVQ  = OpClass(0x4) // rmmovq
	OP_MRMOVQ  = OpClass(0x5) // mrmovq
	OP_ALU     = OpClass(0x6) // alu
	OP_JUMP    = OpClass(0x7) // jump
	OP_CALL    = OpClass(0x8) // call
	OP_RET     = OpClass(0x9) // ret
	OP_PUSHQ   = OpClass(0xA) // pushq
	OP_POPQ    = OpClass(0xB) // popq
	OP_INVALID = OpClass(12)  // invalid
)

// AluFn is an ALU operation, from the low nibble of an OP_ALU opcode.
type AluFn int

//go:generate go tool stringer -linecomment -type=AluFn
const (
	ALU_ADD = AluFn(0) // addq
	ALU_SUB = AluFn(1) // subq
	ALU_AND = AluFn(2) // andq
	ALU_XOR = AluFn(3) // xorq
)

// BranchFn is a branch condition, from the low nibble of an OP_JUMP or
// OP_CMOV opcode. The same predicates drive conditional jumps and
// conditional moves.
type BranchFn int

//go:generate go tool stringer -linecomment -type=BranchFn
const (
	COND_ALWAYS = BranchFn(0) // always
	COND_LE     = BranchFn(1) // le
	COND_L      = BranchFn(2) // l
	COND_E      = BranchFn(3) // e
	COND_NE     = BranchFn(4) // ne
	COND_GE     = BranchFn(5) // ge
	COND_G      = BranchFn(6) // g
)

// instructionSet is the fixed opcode table. A byte absent from this table
// decodes to an OP_INVALID record.
var instructionSet = map[byte]OpClass{
	0x00: OP_HALT,
	0x10: OP_NOP,
	0x20: OP_CMOV, 0x21: OP_CMOV, 0x22: OP_CMOV, 0x23: OP_CMOV,
	0x24: OP_CMOV, 0x25: OP_CMOV, 0x26: OP_CMOV,
	0x30: OP_IRMOVQ,
	0x40: OP_RMMOVQ,
	0x50: OP_MRMOVQ,
	0x60: OP_ALU, 0x61: OP_ALU, 0x62: OP_ALU, 0x63: OP_ALU,
	0x70: OP_JUMP, 0x71: OP_JUMP, 0x72: OP_JUMP, 0x73: OP_JUMP,
	0x74: OP_JUMP, 0x75: OP_JUMP, 0x76: OP_JUMP,
	0x80: OP_CALL,
	0x90: OP_RET,
	0xA0: OP_PUSHQ,
	0xB0: OP_POPQ,
}

// classLengths is the total encoded length in bytes of each class.
var classLengths = map[OpClass]int64{
	OP_HALT:    1,
	OP_NOP:     1,
	OP_CMOV:    2,
	OP_IRMOVQ:  10,
	OP_RMMOVQ:  10,
	OP_MRMOVQ:  10,
	OP_ALU:     2,
	OP_JUMP:    9,
	OP_CALL:    9,
	OP_RET:     1,
	OP_PUSHQ:   2,
	OP_POPQ:    2,
	OP_INVALID: 1,
}

// Instruction is a decoded instruction record. Decode produces one fresh
// per fetch; it is never persisted.
type Instruction struct {
	Opcode    byte       // Opcode byte at the fetch address.
	Class     OpClass    // Mnemonic class from the opcode table.
	Length    int64      // Total encoded length in bytes.
	RA        RegisterID // Source register selector, when encoded.
	RB        RegisterID // Destination register selector, when encoded.
	Immediate int64      // 64-bit little-endian immediate, when encoded.
	Address   int64      // Fetch address.
}

// Fn returns the function selector from the opcode's low nibble.
func (ins Instruction) Fn() int {
	return int(ins.Opcode & 0xF)
}

// AluFn returns the ALU operation of an OP_ALU instruction.
func (ins Instruction) AluFn() AluFn {
	return AluFn(ins.Fn())
}

// BranchFn returns the branch condition of an OP_JUMP or OP_CMOV
// instruction.
func (ins Instruction) BranchFn() BranchFn {
	return BranchFn(ins.Fn())
}

// Mnemonic returns the assembly mnemonic for the opcode byte.
func (ins Instruction) Mnemonic() (name string) {
	switch ins.Class {
	case OP_CMOV:
		if ins.BranchFn() == COND_ALWAYS {
			name = "rrmovq"
		} else {
			name = "cmov" + ins.BranchFn().String()
		}
	case OP_ALU:
		name = ins.AluFn().String()
	case OP_JUMP:
		if ins.BranchFn() == COND_ALWAYS {
			name = "jmp"
		} else {
			name = "j" + ins.BranchFn().String()
		}
	default:
		name = ins.Class.String()
	}

	return
}

// String returns the disassembled form of the instruction.
func (ins Instruction) String() (out string) {
	name := ins.Mnemonic()

	switch ins.Class {
	case OP_CMOV, OP_ALU:
		out = fmt.Sprintf("%v %%%v, %%%v", name, ins.RA, ins.RB)
	case OP_IRMOVQ:
		out = fmt.Sprintf("%v $%d, %%%v", name, ins.Immediate, ins.RB)
	case OP_RMMOVQ:
		out = fmt.Sprintf("%v %%%v, %d(%%%v)", name, ins.RA, ins.Immediate, ins.RB)
	case OP_MRMOVQ:
		out = fmt.Sprintf("%v %d(%%%v), %%%v", name, ins.Immediate, ins.RB, ins.RA)
	case OP_JUMP, OP_CALL:
		out = fmt.Sprintf("%v 0x%x", name, ins.Immediate)
	case OP_PUSHQ, OP_POPQ:
		out = fmt.Sprintf("%v %%%v", name, ins.RA)
	case OP_INVALID:
		out = fmt.Sprintf("%v 0x%02x", name, ins.Opcode)
	default:
		out = name
	}

	return
}

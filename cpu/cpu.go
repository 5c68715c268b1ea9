package cpu

import (
	"log"

	"github.com/ezrec/y86sim/mem"
)

// RSP_RESET is the stack pointer value after reset. It is the single
// source of truth for the initial %rsp: both execution and the snapshot
// layer observe the live register, never a separate default.
const RSP_RESET = 512

// Cpu is the execution unit: the register file, the condition codes, the
// instruction decoder, and the ALU.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Register [NUM_REGISTERS]int64 // Register file, %rax through %r14.

	// Condition codes, recomputed by arithmetic instructions only.
	ZF bool // Zero flag.
	SF bool // Sign flag.
	OF bool // Signed-overflow flag.
}

// NewCpu creates an execution unit in the reset state.
func NewCpu() (c *Cpu) {
	c = &Cpu{}
	c.Reset()
	return
}

// Reset restores the register file and condition codes to their
// architectural reset values.
func (c *Cpu) Reset() {
	clear(c.Register[:])
	c.Register[REG_RSP] = RSP_RESET

	c.ZF = true
	c.SF = false
	c.OF = false
}

// GetRegister reads a register. An out-of-range selector reads as zero
// rather than faulting the run.
func (c *Cpu) GetRegister(id RegisterID) (value int64) {
	if id >= 0 && id < NUM_REGISTERS {
		value = c.Register[id]
	}
	return
}

// SetRegister writes a register. An out-of-range selector is ignored and
// reported as false.
func (c *Cpu) SetRegister(id RegisterID, value int64) (ok bool) {
	if id >= 0 && id < NUM_REGISTERS {
		c.Register[id] = value
		ok = true
	}
	return
}

// Decode decodes the instruction at pc. Decode is total: it always
// returns a record, falling back to a length-1 OP_INVALID record when the
// opcode byte is unreadable or absent from the instruction set. Register
// selectors and immediates default to zero when their bytes are
// unreadable; the execute step surfaces any resulting address fault.
func Decode(pc int64, m *mem.Memory) (ins Instruction) {
	ins = Instruction{
		Address: pc,
		Class:   OP_INVALID,
		Length:  classLengths[OP_INVALID],
	}

	opcode, err := m.ReadByte(pc)
	if err != nil {
		return
	}
	ins.Opcode = opcode

	class, ok := instructionSet[opcode]
	if !ok {
		return
	}

	ins.Class = class
	ins.Length = classLengths[class]

	switch class {
	case OP_CMOV, OP_ALU:
		ins.RA, ins.RB = decodeRegisters(pc+1, m)
	case OP_PUSHQ, OP_POPQ:
		ins.RA, _ = decodeRegisters(pc+1, m)
	case OP_IRMOVQ:
		_, ins.RB = decodeRegisters(pc+1, m)
		ins.Immediate = decodeImmediate(pc+2, m)
	case OP_RMMOVQ, OP_MRMOVQ:
		ins.RA, ins.RB = decodeRegisters(pc+1, m)
		ins.Immediate = decodeImmediate(pc+2, m)
	case OP_JUMP, OP_CALL:
		ins.Immediate = decodeImmediate(pc+1, m)
	}

	return
}

// decodeRegisters splits the register-selector byte at addr into its rA
// (high) and rB (low) nibbles.
func decodeRegisters(addr int64, m *mem.Memory) (ra RegisterID, rb RegisterID) {
	value, err := m.ReadByte(addr)
	if err != nil {
		return
	}

	ra = RegisterID((value >> 4) & 0xF)
	rb = RegisterID(value & 0xF)
	return
}

// decodeImmediate reads the 8-byte little-endian immediate at addr.
func decodeImmediate(addr int64, m *mem.Memory) (value int64) {
	value, err := m.Read64(addr)
	if err != nil {
		value = 0
	}
	return
}

// ExecuteAlu performs an OP_ALU instruction: rB = rB op rA, then
// recomputes the condition codes from the wrapped two's-complement
// result.
func (c *Cpu) ExecuteAlu(ins Instruction) {
	valA := c.GetRegister(ins.RA)
	valB := c.GetRegister(ins.RB)

	var result int64
	switch ins.AluFn() {
	case ALU_ADD:
		result = valB + valA
	case ALU_SUB:
		result = valB - valA
	case ALU_AND:
		result = valB & valA
	case ALU_XOR:
		result = valB ^ valA
	}

	if c.Verbose {
		log.Printf("cpu: %v = %d", ins, result)
	}

	c.SetRegister(ins.RB, result)
	c.updateConditionCodes(ins.AluFn(), result, valA, valB)
}

// updateConditionCodes recomputes ZF/SF/OF after an ALU operation.
// Addition overflows when both operands share a sign and the result does
// not; subtraction (result = valB - valA) overflows when the operand
// signs differ and the result sign differs from valB. AND and XOR always
// clear OF.
func (c *Cpu) updateConditionCodes(fn AluFn, result int64, valA int64, valB int64) {
	c.ZF = result == 0
	c.SF = result < 0

	switch fn {
	case ALU_ADD:
		c.OF = (valA < 0) == (valB < 0) && (result < 0) != (valB < 0)
	case ALU_SUB:
		c.OF = (valA < 0) != (valB < 0) && (result < 0) != (valB < 0)
	default:
		c.OF = false
	}
}

// ExecuteCmov performs an OP_CMOV instruction: rB = rA when the condition
// holds. The instruction succeeds whether or not the move happens, and
// never touches the condition codes.
func (c *Cpu) ExecuteCmov(ins Instruction) {
	if c.Condition(ins.BranchFn()) {
		c.SetRegister(ins.RB, c.GetRegister(ins.RA))
	}
}

// ExecuteIrmovq performs an OP_IRMOVQ instruction: rB = immediate.
func (c *Cpu) ExecuteIrmovq(ins Instruction) {
	c.SetRegister(ins.RB, ins.Immediate)
}

// ExecuteRmmovq performs an OP_RMMOVQ instruction: M[rB + disp] = rA.
// A memory fault is returned for the caller's status transition.
func (c *Cpu) ExecuteRmmovq(ins Instruction, m *mem.Memory) (err error) {
	addr := c.GetRegister(ins.RB) + ins.Immediate
	return m.Write64(addr, c.GetRegister(ins.RA))
}

// ExecuteMrmovq performs an OP_MRMOVQ instruction: rA = M[rB + disp].
// The destination register is untouched on a memory fault.
func (c *Cpu) ExecuteMrmovq(ins Instruction, m *mem.Memory) (err error) {
	addr := c.GetRegister(ins.RB) + ins.Immediate

	value, err := m.Read64(addr)
	if err != nil {
		return
	}

	c.SetRegister(ins.RA, value)
	return
}

// Condition evaluates a branch predicate against the current condition
// codes. The same predicates serve conditional moves and jumps.
func (c *Cpu) Condition(fn BranchFn) (met bool) {
	switch fn {
	case COND_ALWAYS:
		met = true
	case COND_LE:
		met = c.ZF || (c.SF != c.OF)
	case COND_L:
		met = c.SF != c.OF
	case COND_E:
		met = c.ZF
	case COND_NE:
		met = !c.ZF
	case COND_GE:
		met = c.SF == c.OF
	case COND_G:
		met = !c.ZF && (c.SF == c.OF)
	}

	return
}

package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/y86sim/mem"
)

func decodeImage(t *testing.T, image string) (ins Instruction) {
	assert := assert.New(t)

	m := mem.NewMemory()
	err := m.Load(strings.NewReader(image))
	assert.NoError(err)

	return Decode(0, m)
}

func TestDecode_Halt(t *testing.T) {
	assert := assert.New(t)

	ins := decodeImage(t, "0x000: 00")
	assert.Equal(OP_HALT, ins.Class)
	assert.Equal(int64(1), ins.Length)
	assert.Equal(int64(0), ins.Address)
}

func TestDecode_Rrmovq(t *testing.T) {
	assert := assert.New(t)

	ins := decodeImage(t, "0x000: 2015")
	assert.Equal(OP_CMOV, ins.Class)
	assert.Equal(int64(2), ins.Length)
	assert.Equal(REG_RCX, ins.RA)
	assert.Equal(REG_RBP, ins.RB)
	assert.Equal(COND_ALWAYS, ins.BranchFn())
}

func TestDecode_Irmovq(t *testing.T) {
	assert := assert.New(t)

	ins := decodeImage(t, "0x000: 30f20a00000000000000")
	assert.Equal(OP_IRMOVQ, ins.Class)
	assert.Equal(int64(10), ins.Length)
	assert.Equal(REG_RDX, ins.RB)
	assert.Equal(int64(10), ins.Immediate)
}

func TestDecode_Rmmovq_NegativeDisplacement(t *testing.T) {
	assert := assert.New(t)

	ins := decodeImage(t, "0x000: 4013f8ffffffffffffff")
	assert.Equal(OP_RMMOVQ, ins.Class)
	assert.Equal(int64(10), ins.Length)
	assert.Equal(REG_RCX, ins.RA)
	assert.Equal(REG_RBX, ins.RB)
	assert.Equal(int64(-8), ins.Immediate)
}

func TestDecode_Jump(t *testing.T) {
	assert := assert.New(t)

	ins := decodeImage(t, "0x000: 730a00000000000000")
	assert.Equal(OP_JUMP, ins.Class)
	assert.Equal(int64(9), ins.Length)
	assert.Equal(COND_E, ins.BranchFn())
	assert.Equal(int64(10), ins.Immediate)
}

func TestDecode_Pushq(t *testing.T) {
	assert := assert.New(t)

	ins := decodeImage(t, "0x000: a02f")
	assert.Equal(OP_PUSHQ, ins.Class)
	assert.Equal(int64(2), ins.Length)
	assert.Equal(REG_RDX, ins.RA)
}

func TestDecode_Alu(t *testing.T) {
	assert := assert.New(t)

	ins := decodeImage(t, "0x000: 6103")
	assert.Equal(OP_ALU, ins.Class)
	assert.Equal(ALU_SUB, ins.AluFn())
	assert.Equal(REG_RAX, ins.RA)
	assert.Equal(REG_RBX, ins.RB)
}

func TestDecode_InvalidOpcode(t *testing.T) {
	assert := assert.New(t)

	ins := decodeImage(t, "0x000: ff")
	assert.Equal(OP_INVALID, ins.Class)
	assert.Equal(int64(1), ins.Length)
	assert.Equal(byte(0xff), ins.Opcode)
}

func TestDecode_NegativeAddress(t *testing.T) {
	assert := assert.New(t)

	m := mem.NewMemory()
	ins := Decode(-1, m)
	assert.Equal(OP_INVALID, ins.Class)
	assert.Equal(int64(1), ins.Length)
}

// Empty memory reads as zero bytes, which decode as halt. Running off the
// end of a program therefore halts rather than faulting.
func TestDecode_UnmappedIsHalt(t *testing.T) {
	assert := assert.New(t)

	m := mem.NewMemory()
	ins := Decode(100, m)
	assert.Equal(OP_HALT, ins.Class)
}

func TestDecode_Lengths(t *testing.T) {
	assert := assert.New(t)

	for image, length := range map[string]int64{
		"0x000: 00":                   1,
		"0x000: 10":                   1,
		"0x000: 90":                   1,
		"0x000: 2101":                 2,
		"0x000: 6001":                 2,
		"0x000: a01f":                 2,
		"0x000: b02f":                 2,
		"0x000: 700000000000000000":   9,
		"0x000: 800000000000000000":   9,
		"0x000: 30f10000000000000000": 10,
		"0x000: 401200000000000000":   10,
		"0x000: 501200000000000000":   10,
	} {
		ins := decodeImage(t, image)
		assert.Equal(length, ins.Length, "image %v", image)
	}
}

func TestInstruction_String(t *testing.T) {
	assert := assert.New(t)

	for image, text := range map[string]string{
		"0x000: 00":                   "halt",
		"0x000: 2015":                 "rrmovq %rcx, %rbp",
		"0x000: 2415":                 "cmovne %rcx, %rbp",
		"0x000: 30f20a00000000000000": "irmovq $10, %rdx",
		"0x000: 6103":                 "subq %rax, %rbx",
		"0x000: 740a00000000000000":   "jne 0xa",
		"0x000: a02f":                 "pushq %rdx",
		"0x000: 50150800000000000000": "mrmovq 8(%rbp), %rcx",
		"0x000: ff":                   "invalid 0xff",
	} {
		ins := decodeImage(t, image)
		assert.Equal(text, ins.String(), "image %v", image)
	}
}

package emulator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/y86sim/cpu"
	"github.com/ezrec/y86sim/mem"
)

func doLoad(t *testing.T, lines ...string) (emu *Emulator) {
	assert := assert.New(t)

	emu = NewEmulator()
	err := emu.Load(strings.NewReader(strings.Join(lines, "\n")))
	assert.NoError(err)
	return
}

func doRun(t *testing.T, source ...string) (trace []Snapshot, emu *Emulator) {
	assert := assert.New(t)

	asm := &cpu.Assembler{}
	img, err := asm.Assemble(strings.NewReader(strings.Join(source, "\n")))
	assert.NoError(err)

	emu = NewEmulator()
	err = emu.Load(img.Reader())
	assert.NoError(err)

	trace = emu.RunToHalt()
	return
}

func TestEmulator_Reset(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assert.Equal(int64(0), emu.PC)
	assert.Equal(STAT_AOK, emu.Stat)
	assert.Equal(int64(cpu.RSP_RESET), emu.Cpu.GetRegister(cpu.REG_RSP))
}

func TestEmulator_Halt(t *testing.T) {
	assert := assert.New(t)

	emu := doLoad(t, "0x000: 00")
	trace := emu.RunToHalt()

	assert.Len(trace, 1)

	snap := trace[0]
	assert.Equal(STAT_HLT, snap.Stat)
	assert.Equal(int64(0), snap.PC)
	assert.Equal(ConditionCodes{OF: 0, SF: 0, ZF: 1}, snap.CC)
	assert.Empty(snap.Mem)

	// Registers unchanged from the reset state.
	assert.Equal(Registers{Rsp: cpu.RSP_RESET}, snap.Reg)
}

func TestEmulator_InvalidInstruction(t *testing.T) {
	assert := assert.New(t)

	emu := doLoad(t, "0x000: f0")
	trace := emu.RunToHalt()

	assert.Len(trace, 1)
	assert.Equal(STAT_INS, trace[0].Stat)
	assert.Equal(int64(0), trace[0].PC)
}

func TestEmulator_NopAdvance(t *testing.T) {
	assert := assert.New(t)

	emu := doLoad(t, "0x000: 101000")
	trace := emu.RunToHalt()

	assert.Len(trace, 3)
	assert.Equal(int64(1), trace[0].PC)
	assert.Equal(int64(2), trace[1].PC)
	assert.Equal(int64(2), trace[2].PC)
	assert.Equal(STAT_AOK, trace[0].Stat)
	assert.Equal(STAT_AOK, trace[1].Stat)
	assert.Equal(STAT_HLT, trace[2].Stat)
}

func TestEmulator_StepTerminal(t *testing.T) {
	assert := assert.New(t)

	emu := doLoad(t, "0x000: 00")
	emu.RunToHalt()
	assert.Equal(STAT_HLT, emu.Stat)

	// Terminal state: Step is snapshot-only, RunToHalt adds nothing.
	snap := emu.Step()
	assert.Equal(STAT_HLT, snap.Stat)
	assert.Equal(int64(0), snap.PC)
	assert.Empty(emu.RunToHalt())
}

func TestEmulator_Arithmetic(t *testing.T) {
	assert := assert.New(t)

	trace, _ := doRun(t,
		"    irmovq $10, %rdx",
		"    irmovq $3, %rax",
		"    addq %rdx, %rax",
		"    halt",
	)

	assert.Len(trace, 4)

	final := trace[len(trace)-1]
	assert.Equal(STAT_HLT, final.Stat)
	assert.Equal(int64(13), final.Reg.Rax)
	assert.Equal(int64(10), final.Reg.Rdx)
	assert.Equal(ConditionCodes{OF: 0, SF: 0, ZF: 0}, final.CC)
}

func TestEmulator_CallRet(t *testing.T) {
	assert := assert.New(t)

	trace, _ := doRun(t,
		"    irmovq $100, %rax",
		"    call fn",
		"    halt",
		"fn:",
		"    ret",
	)

	assert.Len(trace, 4)

	// call: PC moves to fn, return address 19 lands below reset rsp.
	assert.Equal(int64(20), trace[1].PC)
	assert.Equal(int64(504), trace[1].Reg.Rsp)
	assert.Equal(MemDump{{Addr: 504, Value: 19}}, trace[1].Mem)

	// ret: PC restored to the call's successor, rsp to its prior value.
	assert.Equal(int64(19), trace[2].PC)
	assert.Equal(int64(cpu.RSP_RESET), trace[2].Reg.Rsp)

	assert.Equal(STAT_HLT, trace[3].Stat)
}

func TestEmulator_PushPop(t *testing.T) {
	assert := assert.New(t)

	trace, _ := doRun(t,
		"    irmovq $77, %rax",
		"    pushq %rax",
		"    popq %rbx",
		"    halt",
	)

	final := trace[len(trace)-1]
	assert.Equal(STAT_HLT, final.Stat)
	assert.Equal(int64(77), final.Reg.Rbx)
	assert.Equal(int64(cpu.RSP_RESET), final.Reg.Rsp)
	assert.Equal(MemDump{{Addr: 504, Value: 77}}, final.Mem)
}

// The stack pointer moves even when the push's store faults. The fault is
// still terminal, but the register update is not rolled back.
func TestEmulator_Pushq_UnconditionalPointerUpdate(t *testing.T) {
	assert := assert.New(t)

	trace, _ := doRun(t,
		"    irmovq $4, %rsp",
		"    pushq %rax",
	)

	assert.Len(trace, 2)

	final := trace[1]
	assert.Equal(STAT_ADR, final.Stat)
	assert.Equal(int64(10), final.PC) // unchanged by the faulting pushq
	assert.Equal(int64(-4), final.Reg.Rsp)
}

func TestEmulator_Popq_FaultLeavesState(t *testing.T) {
	assert := assert.New(t)

	trace, _ := doRun(t,
		"    irmovq $-16, %rsp",
		"    popq %rax",
	)

	assert.Len(trace, 2)

	final := trace[1]
	assert.Equal(STAT_ADR, final.Stat)
	assert.Equal(int64(10), final.PC)
	assert.Equal(int64(-16), final.Reg.Rsp)
	assert.Equal(int64(0), final.Reg.Rax)
}

func TestEmulator_Call_FaultLeavesState(t *testing.T) {
	assert := assert.New(t)

	trace, _ := doRun(t,
		"    irmovq $0, %rsp",
		"    call fn",
		"fn:",
		"    halt",
	)

	assert.Len(trace, 2)

	final := trace[1]
	assert.Equal(STAT_ADR, final.Stat)
	assert.Equal(int64(10), final.PC)
	assert.Equal(int64(0), final.Reg.Rsp)
}

func TestEmulator_Rmmovq_Fault(t *testing.T) {
	assert := assert.New(t)

	trace, _ := doRun(t,
		"    irmovq $4, %rbp",
		"    rmmovq %rax, (%rbp)",
	)

	final := trace[len(trace)-1]
	assert.Equal(STAT_ADR, final.Stat)
	assert.Equal(int64(10), final.PC)
}

func TestEmulator_ConditionalJump(t *testing.T) {
	assert := assert.New(t)

	trace, _ := doRun(t,
		"    irmovq $1, %rax",
		"    irmovq $1, %rcx",
		"    subq %rax, %rcx",
		"    je target",
		"    halt",
		"target:",
		"    irmovq $7, %rbx",
		"    halt",
	)

	final := trace[len(trace)-1]
	assert.Equal(STAT_HLT, final.Stat)
	assert.Equal(int64(7), final.Reg.Rbx)
}

func TestEmulator_ConditionalJump_NotTaken(t *testing.T) {
	assert := assert.New(t)

	trace, _ := doRun(t,
		"    irmovq $1, %rax",
		"    irmovq $1, %rcx",
		"    subq %rax, %rcx",
		"    jne target",
		"    halt",
		"target:",
		"    irmovq $7, %rbx",
		"    halt",
	)

	final := trace[len(trace)-1]
	assert.Equal(STAT_HLT, final.Stat)
	assert.Equal(int64(0), final.Reg.Rbx)

	// Untaken jump advances by its full 9-byte length.
	assert.Equal(int64(22), trace[2].PC)
	assert.Equal(int64(31), trace[3].PC)
}

func TestEmulator_SumLoop(t *testing.T) {
	assert := assert.New(t)

	// Sum 1..5 by counting %rcx down.
	trace, _ := doRun(t,
		"    irmovq $5, %rcx",
		"    irmovq $0, %rax",
		"loop:",
		"    addq %rcx, %rax",
		"    irmovq $1, %rdx",
		"    subq %rdx, %rcx",
		"    jne loop",
		"    halt",
	)

	final := trace[len(trace)-1]
	assert.Equal(STAT_HLT, final.Stat)
	assert.Equal(int64(15), final.Reg.Rax)
	assert.Equal(int64(0), final.Reg.Rcx)
	assert.Equal(ConditionCodes{OF: 0, SF: 0, ZF: 1}, final.CC)
}

func TestEmulator_MemOrdering(t *testing.T) {
	assert := assert.New(t)

	trace, _ := doRun(t,
		"    irmovq $1, %rax",
		"    irmovq $2, %rbx",
		"    irmovq $8, %rbp",
		"    rmmovq %rax, (%rbp)",
		"    rmmovq %rbx, 8(%rbp)",
		"    halt",
	)

	final := trace[len(trace)-1]
	assert.Equal(MemDump{
		{Addr: 16, Value: 2},
		{Addr: 8, Value: 1},
	}, final.Mem)
}

func TestEmulator_WithCacheGeometry(t *testing.T) {
	assert := assert.New(t)

	_, err := NewEmulatorWithCache(100, 8)
	assert.ErrorIs(err, mem.ErrCacheGeometry)

	emu, err := NewEmulatorWithCache(64, 8)
	assert.NoError(err)
	assert.NoError(emu.Load(strings.NewReader("0x000: 00")))

	trace := emu.RunToHalt()
	assert.Len(trace, 1)
	assert.Equal(STAT_HLT, trace[0].Stat)
}

func TestSnapshot_JSON(t *testing.T) {
	assert := assert.New(t)

	trace, _ := doRun(t,
		"    irmovq $1, %rax",
		"    irmovq $8, %rbp",
		"    rmmovq %rax, (%rbp)",
		"    rmmovq %rax, 8(%rbp)",
		"    halt",
	)

	text, err := json.MarshalIndent(trace[len(trace)-1], "", "    ")
	assert.NoError(err)

	out := string(text)
	assert.Contains(out, `"STAT": 2`)
	assert.Contains(out, `"rsp": 512`)
	assert.Contains(out, `"ZF": 1`)

	// MEM keys serialize in string-lexicographic order.
	assert.Less(strings.Index(out, `"16"`), strings.Index(out, `"8"`))

	// Field order within a snapshot record is fixed.
	assert.Less(strings.Index(out, `"CC"`), strings.Index(out, `"MEM"`))
	assert.Less(strings.Index(out, `"MEM"`), strings.Index(out, `"PC"`))
	assert.Less(strings.Index(out, `"PC"`), strings.Index(out, `"REG"`))
	assert.Less(strings.Index(out, `"REG"`), strings.Index(out, `"STAT"`))
}

func TestStatus_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("running", STAT_AOK.String())
	assert.Equal("halted", STAT_HLT.String())
	assert.Equal("invalid address", STAT_ADR.String())
	assert.Equal("invalid instruction", STAT_INS.String())
}

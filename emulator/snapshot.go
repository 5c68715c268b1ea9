package emulator

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/ezrec/y86sim/cpu"
	"github.com/ezrec/y86sim/mem"
)

// ConditionCodes are the arithmetic flags as 0/1 bits.
type ConditionCodes struct {
	OF int `json:"OF"`
	SF int `json:"SF"`
	ZF int `json:"ZF"`
}

// Registers is the register file keyed by canonical name. Field order is
// the reference trace's fixed ordering, independent of the execution
// unit's storage order.
type Registers struct {
	R10 int64 `json:"r10"`
	R11 int64 `json:"r11"`
	R12 int64 `json:"r12"`
	R13 int64 `json:"r13"`
	R14 int64 `json:"r14"`
	R8  int64 `json:"r8"`
	R9  int64 `json:"r9"`
	Rax int64 `json:"rax"`
	Rbp int64 `json:"rbp"`
	Rbx int64 `json:"rbx"`
	Rcx int64 `json:"rcx"`
	Rdi int64 `json:"rdi"`
	Rdx int64 `json:"rdx"`
	Rsi int64 `json:"rsi"`
	Rsp int64 `json:"rsp"`
}

// MemDump is the non-zero aligned memory words, in the loader-side
// string-lexicographic order of mem.Memory.Snapshot.
type MemDump []mem.Word

// MarshalJSON renders the dump as an object keyed by decimal base
// address, preserving the slice order.
func (dump MemDump) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for n, word := range dump {
		if n > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(buf, "%q: %d", strconv.FormatInt(word.Addr, 10), word.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Snapshot is the architectural state after one cycle. It is fully
// populated every cycle, terminal or not.
type Snapshot struct {
	CC   ConditionCodes `json:"CC"`
	Mem  MemDump        `json:"MEM"`
	PC   int64          `json:"PC"`
	Reg  Registers      `json:"REG"`
	Stat Status         `json:"STAT"`
}

// Snapshot assembles the current machine state.
func (emu *Emulator) Snapshot() (snap Snapshot) {
	c := emu.Cpu

	snap = Snapshot{
		CC: ConditionCodes{
			OF: flagBit(c.OF),
			SF: flagBit(c.SF),
			ZF: flagBit(c.ZF),
		},
		Mem: MemDump(emu.Mem.Snapshot()),
		PC:  emu.PC,
		Reg: Registers{
			R10: c.GetRegister(cpu.REG_R10),
			R11: c.GetRegister(cpu.REG_R11),
			R12: c.GetRegister(cpu.REG_R12),
			R13: c.GetRegister(cpu.REG_R13),
			R14: c.GetRegister(cpu.REG_R14),
			R8:  c.GetRegister(cpu.REG_R8),
			R9:  c.GetRegister(cpu.REG_R9),
			Rax: c.GetRegister(cpu.REG_RAX),
			Rbp: c.GetRegister(cpu.REG_RBP),
			Rbx: c.GetRegister(cpu.REG_RBX),
			Rcx: c.GetRegister(cpu.REG_RCX),
			Rdi: c.GetRegister(cpu.REG_RDI),
			Rdx: c.GetRegister(cpu.REG_RDX),
			Rsi: c.GetRegister(cpu.REG_RSI),
			Rsp: c.GetRegister(cpu.REG_RSP),
		},
		Stat: emu.Stat,
	}

	return
}

func flagBit(flag bool) (bit int) {
	if flag {
		bit = 1
	}
	return
}

// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"io"
	"log"

	"github.com/ezrec/y86sim/cpu"
	"github.com/ezrec/y86sim/mem"
)

// Status is the run status of the machine. It only moves forward: once a
// terminal status is reached, no further cycles execute.
type Status int

//go:generate go tool stringer -linecomment -type=Status
const (
	STAT_AOK = Status(1) // running
	STAT_HLT = Status(2) // halted
	STAT_ADR = Status(3) // invalid address
	STAT_INS = Status(4) // invalid instruction
)

// Emulator is the control unit: it drives the fetch/decode/execute cycle
// over the execution unit and memory, owns the program counter and run
// status, and assembles a state snapshot after every cycle.
type Emulator struct {
	Verbose bool // Set to enable verbose logging.

	Mem *mem.Memory // Program and data memory, behind the cache.
	Cpu *cpu.Cpu    // Register file, flags, decoder, ALU.

	PC   int64  // Program counter.
	Stat Status // Current run status.
}

// NewEmulator creates a machine in the reset state with the default
// cache geometry.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Mem:  mem.NewMemory(),
		Cpu:  cpu.NewCpu(),
		Stat: STAT_AOK,
	}
	return
}

// NewEmulatorWithCache creates a machine with an explicit cache geometry.
func NewEmulatorWithCache(cacheSize int, lineSize int) (emu *Emulator, err error) {
	m, err := mem.NewMemoryWithCache(cacheSize, lineSize)
	if err != nil {
		return
	}

	emu = &Emulator{
		Mem:  m,
		Cpu:  cpu.NewCpu(),
		Stat: STAT_AOK,
	}
	return
}

// Load reads a program image into memory. Only an I/O-level failure is
// fatal; malformed lines are skipped by the loader.
func (emu *Emulator) Load(r io.Reader) (err error) {
	emu.Mem.Verbose = emu.Verbose
	emu.Cpu.Verbose = emu.Verbose
	return emu.Mem.Load(r)
}

// Step executes a single instruction cycle and returns the resulting
// state snapshot. When the machine is no longer running, Step is a
// snapshot-only no-op.
func (emu *Emulator) Step() (snap Snapshot) {
	if emu.Stat != STAT_AOK {
		return emu.Snapshot()
	}

	ins := cpu.Decode(emu.PC, emu.Mem)

	if emu.Verbose {
		log.Printf("emulator: %04x: %v", emu.PC, ins)
	}

	switch ins.Class {
	case cpu.OP_HALT:
		emu.Stat = STAT_HLT

	case cpu.OP_NOP:
		emu.PC += ins.Length

	case cpu.OP_CMOV:
		emu.Cpu.ExecuteCmov(ins)
		emu.PC += ins.Length

	case cpu.OP_IRMOVQ:
		emu.Cpu.ExecuteIrmovq(ins)
		emu.PC += ins.Length

	case cpu.OP_RMMOVQ:
		emu.advance(ins, emu.Cpu.ExecuteRmmovq(ins, emu.Mem))

	case cpu.OP_MRMOVQ:
		emu.advance(ins, emu.Cpu.ExecuteMrmovq(ins, emu.Mem))

	case cpu.OP_ALU:
		emu.Cpu.ExecuteAlu(ins)
		emu.PC += ins.Length

	case cpu.OP_PUSHQ:
		emu.advance(ins, emu.executePushq(ins))

	case cpu.OP_POPQ:
		emu.advance(ins, emu.executePopq(ins))

	case cpu.OP_CALL:
		if err := emu.executeCall(ins); err != nil {
			emu.fault(ins, err)
		}

	case cpu.OP_RET:
		if err := emu.executeRet(); err != nil {
			emu.fault(ins, err)
		}

	case cpu.OP_JUMP:
		if emu.Cpu.Condition(ins.BranchFn()) {
			emu.PC = ins.Immediate
		} else {
			emu.PC += ins.Length
		}

	default:
		// Opcode outside the instruction set, or a decode fault.
		log.Printf("emulator: %04x: invalid instruction 0x%02x", emu.PC, ins.Opcode)
		emu.Stat = STAT_INS
	}

	return emu.Snapshot()
}

// RunToHalt steps the machine until the status leaves STAT_AOK, returning
// the ordered trace of per-cycle snapshots. The first terminal cycle's
// snapshot is included.
func (emu *Emulator) RunToHalt() (trace []Snapshot) {
	for emu.Stat == STAT_AOK {
		trace = append(trace, emu.Step())
	}

	if emu.Verbose {
		stats := emu.Mem.Stats()
		log.Printf("emulator: %d cycles, cache %d/%d hits (%.1f%%)",
			len(trace), stats.Hits, stats.Accesses, stats.HitRate)
	}

	return
}

// advance commits the PC for a data-movement or stack instruction, or
// transitions to STAT_ADR on a memory fault with the PC unchanged.
func (emu *Emulator) advance(ins cpu.Instruction, err error) {
	if err != nil {
		emu.fault(ins, err)
		return
	}

	emu.PC += ins.Length
}

// fault records a memory fault as a terminal STAT_ADR.
func (emu *Emulator) fault(ins cpu.Instruction, err error) {
	if emu.Verbose {
		log.Printf("emulator: %04x: %v: %v", emu.PC, ins, err)
	}
	emu.Stat = STAT_ADR
}

// executePushq stores rA at the decremented stack pointer. The stack
// pointer register moves whether or not the store landed; only the store
// result decides the fault. Architectural quirk, kept on purpose.
func (emu *Emulator) executePushq(ins cpu.Instruction) (err error) {
	value := emu.Cpu.GetRegister(ins.RA)
	sp := emu.Cpu.GetRegister(cpu.REG_RSP)
	newSp := sp - 8

	err = emu.Mem.Write64(newSp, value)

	emu.Cpu.SetRegister(cpu.REG_RSP, newSp)
	return
}

// executePopq loads rA from the stack pointer. Nothing moves unless the
// load succeeds.
func (emu *Emulator) executePopq(ins cpu.Instruction) (err error) {
	sp := emu.Cpu.GetRegister(cpu.REG_RSP)

	value, newSp, err := emu.Mem.Pop(sp)
	if err != nil {
		return
	}

	emu.Cpu.SetRegister(cpu.REG_RSP, newSp)
	emu.Cpu.SetRegister(ins.RA, value)
	return
}

// executeCall pushes the return address and jumps to the target. On a
// push failure neither the PC nor the stack pointer moves.
func (emu *Emulator) executeCall(ins cpu.Instruction) (err error) {
	retAddr := emu.PC + ins.Length
	sp := emu.Cpu.GetRegister(cpu.REG_RSP)

	newSp, err := emu.Mem.Push(retAddr, sp)
	if err != nil {
		return
	}

	emu.Cpu.SetRegister(cpu.REG_RSP, newSp)
	emu.PC = ins.Immediate
	return
}

// executeRet pops the return address into the PC. On a pop failure
// neither the PC nor the stack pointer moves.
func (emu *Emulator) executeRet() (err error) {
	sp := emu.Cpu.GetRegister(cpu.REG_RSP)

	value, newSp, err := emu.Mem.Pop(sp)
	if err != nil {
		return
	}

	emu.Cpu.SetRegister(cpu.REG_RSP, newSp)
	emu.PC = value
	return
}

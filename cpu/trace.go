// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "github.com/beevik/nes6502/bus"

// OperandKind describes what an instruction's operand resolved to.
type OperandKind byte

const (
	OperandNone    OperandKind = iota // no operand (implied, accumulator)
	OperandValue                      // immediate value
	OperandAddress                    // effective address, jump or branch target
)

// Operand is the resolved operand of a retired instruction.
type Operand struct {
	Kind    OperandKind
	Value   byte
	Address bus.Address
}

// InstructionTrace records one retired instruction. Registers and Cycle
// are captured when the opcode was fetched, so the record lines up with
// conformance logs that print state before each instruction.
type InstructionTrace struct {
	PC         bus.Address
	Opcode     byte
	Mnemonic   string
	Mode       Mode
	Unofficial bool
	Bytes      []byte
	Operand    Operand
	Regs       Registers
	Cycle      uint64 // cycle count at the opcode fetch
	Cycles     int    // cycles the instruction took
}

// Access is the direction of a bus access.
type Access byte

const (
	AccessRead Access = iota
	AccessWrite
)

func (a Access) String() string {
	if a == AccessWrite {
		return "W"
	}
	return "R"
}

// CycleTrace records the bus access performed during one clock cycle.
type CycleTrace struct {
	Cycle   uint64
	Kind    MicroOpKind
	Address bus.Address
	Data    byte
	Access  Access
}

func (c *CPU) newTrace() InstructionTrace {
	b := make([]byte, c.instLen)
	copy(b, c.instBytes[:c.instLen])
	return InstructionTrace{
		PC:         c.instPC,
		Opcode:     c.inst.Opcode,
		Mnemonic:   c.inst.Name,
		Mode:       c.inst.Mode,
		Unofficial: c.inst.Unofficial,
		Bytes:      b,
		Operand:    c.operand,
		Regs:       c.instRegs,
		Cycle:      c.instCycle,
		Cycles:     int(c.Cycles - c.instCycle),
	}
}

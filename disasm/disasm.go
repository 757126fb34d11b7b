// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a 6502 instruction set
// disassembler.
package disasm

import (
	"fmt"

	"github.com/beevik/nes6502/bus"
	"github.com/beevik/nes6502/cpu"
)

// Disassembler formatting for addressing modes
var modeFormat = []string{
	"#$%s",    // IMM
	"",        // IMP
	"$%s",     // REL
	"$%s",     // ZPG
	"$%s,X",   // ZPX
	"$%s,Y",   // ZPY
	"$%s",     // ABS
	"$%s,X",   // ABX
	"$%s,Y",   // ABY
	"($%s)",   // IND
	"($%s,X)", // IDX
	"($%s),Y", // IDY
	"%s",      // ACC
}

var hex = "0123456789ABCDEF"

// Return a hexadecimal string representation of the little-endian value
// stored in the byte slice.
func hexString(b []byte) string {
	hexlen := len(b) * 2
	hexbuf := make([]byte, hexlen)
	j := hexlen - 1
	for _, n := range b {
		hexbuf[j] = hex[n&0xf]
		hexbuf[j-1] = hex[n>>4]
		j -= 2
	}
	return string(hexbuf)
}

func peekBytes(p bus.Peeker, addr bus.Address, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = p.Peek(addr + bus.Address(i))
	}
	return b
}

// branchTarget converts a relative branch offset to an absolute address.
func branchTarget(addr bus.Address, offset byte) bus.Address {
	return addr + 2 + bus.Address(int8(offset))
}

// Disassemble the machine code in memory 'p' at address 'addr'. Return a
// 'line' string representing the disassembled instruction and a 'next'
// address that starts the following line of machine code. Unsupported
// opcodes are shown as data bytes.
func Disassemble(p bus.Peeker, addr bus.Address) (line string, next bus.Address) {
	opcode := p.Peek(addr)
	inst := cpu.Lookup(opcode)
	if inst == nil {
		return fmt.Sprintf(".DB $%02X", opcode), addr + 1
	}

	operand := peekBytes(p, addr+1, int(inst.Length)-1)
	if inst.Mode == cpu.REL {
		t := branchTarget(addr, operand[0])
		operand = []byte{t.Lo(), t.Hi()}
	}

	switch inst.Mode {
	case cpu.IMP:
		line = inst.Name
	case cpu.ACC:
		line = inst.Name + " A"
	default:
		line = fmt.Sprintf("%s "+modeFormat[inst.Mode], inst.Name, hexString(operand))
	}
	next = addr + bus.Address(inst.Length)
	return
}

// Annotate disassembles the instruction at addr the way conformance logs
// print it, with the effective address and the memory it refers to
// resolved against the registers 'r'. Call it before the instruction
// executes.
func Annotate(p bus.Peeker, r cpu.Registers, addr bus.Address) string {
	opcode := p.Peek(addr)
	inst := cpu.Lookup(opcode)
	if inst == nil {
		return fmt.Sprintf(".DB $%02X", opcode)
	}

	var lo, hi byte
	if inst.Length > 1 {
		lo = p.Peek(addr + 1)
	}
	if inst.Length > 2 {
		hi = p.Peek(addr + 2)
	}
	abs := bus.MakeAddress(lo, hi)
	name := inst.Name

	switch inst.Mode {
	case cpu.IMP:
		return name
	case cpu.ACC:
		return name + " A"
	case cpu.IMM:
		return fmt.Sprintf("%s #$%02X", name, lo)
	case cpu.REL:
		return fmt.Sprintf("%s $%04X", name, uint16(branchTarget(addr, lo)))
	case cpu.ZPG:
		return fmt.Sprintf("%s $%02X = %02X", name, lo, p.Peek(bus.Address(lo)))
	case cpu.ZPX, cpu.ZPY:
		idx, reg := r.X(), 'X'
		if inst.Mode == cpu.ZPY {
			idx, reg = r.Y(), 'Y'
		}
		ea := bus.Address(lo + idx)
		return fmt.Sprintf("%s $%02X,%c @ %02X = %02X", name, lo, reg, uint16(ea), p.Peek(ea))
	case cpu.ABS:
		if inst.Name == "JMP" || inst.Name == "JSR" {
			return fmt.Sprintf("%s $%04X", name, uint16(abs))
		}
		return fmt.Sprintf("%s $%04X = %02X", name, uint16(abs), p.Peek(abs))
	case cpu.ABX, cpu.ABY:
		idx, reg := r.X(), 'X'
		if inst.Mode == cpu.ABY {
			idx, reg = r.Y(), 'Y'
		}
		ea := abs + bus.Address(idx)
		return fmt.Sprintf("%s $%04X,%c @ %04X = %02X", name, uint16(abs), reg, uint16(ea), p.Peek(ea))
	case cpu.IND:
		target := bus.MakeAddress(p.Peek(abs), p.Peek(bus.MakeAddress(abs.Lo()+1, abs.Hi())))
		return fmt.Sprintf("%s ($%04X) = %04X", name, uint16(abs), uint16(target))
	case cpu.IDX:
		ptr := lo + r.X()
		ea := bus.MakeAddress(p.Peek(bus.Address(ptr)), p.Peek(bus.Address(ptr+1)))
		return fmt.Sprintf("%s ($%02X,X) @ %02X = %04X = %02X", name, lo, ptr, uint16(ea), p.Peek(ea))
	case cpu.IDY:
		base := bus.MakeAddress(p.Peek(bus.Address(lo)), p.Peek(bus.Address(lo+1)))
		ea := base + bus.Address(r.Y())
		return fmt.Sprintf("%s ($%02X),Y = %04X @ %04X = %02X", name, lo, uint16(base), uint16(ea), p.Peek(ea))
	default:
		return name
	}
}

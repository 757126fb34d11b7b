// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Operations performed by instructions once their operand is available.
// Each is called from the micro-op that completes the operand access.

func (c *CPU) invalid(inst *Instruction) {
	panic(&InvalidOpcodeInvocationError{Name: inst.Name, Mode: inst.Mode, Opcode: inst.Opcode})
}

// load consumes an operand value read from memory or the instruction
// stream.
func (c *CPU) load(inst *Instruction, v byte) {
	r := &c.Reg
	switch inst.sym {
	case symADC:
		c.adc(v)
	case symSBC:
		c.adc(^v)
	case symAND:
		r.SetA(r.A() & v)
	case symORA:
		r.SetA(r.A() | v)
	case symEOR:
		r.SetA(r.A() ^ v)
	case symBIT:
		r.SetFlag(Zero, v&r.A() == 0)
		r.SetFlag(Negative, v&0x80 != 0)
		r.SetFlag(Overflow, v&0x40 != 0)
	case symCMP:
		c.compare(r.A(), v)
	case symCPX:
		c.compare(r.X(), v)
	case symCPY:
		c.compare(r.Y(), v)
	case symLDA:
		r.SetA(v)
	case symLDX:
		r.SetX(v)
	case symLDY:
		r.SetY(v)
	case symLAX:
		r.SetA(v)
		r.SetX(v)
	case symNOP:
	default:
		c.invalid(inst)
	}
}

// store returns the value a write instruction puts on the bus.
func (c *CPU) store(inst *Instruction) byte {
	r := &c.Reg
	switch inst.sym {
	case symSTA:
		return r.A()
	case symSTX:
		return r.X()
	case symSTY:
		return r.Y()
	case symSAX:
		return r.A() & r.X()
	default:
		c.invalid(inst)
		return 0
	}
}

// modify performs a read-modify-write operation on v and returns the
// value written back.
func (c *CPU) modify(inst *Instruction, v byte) byte {
	r := &c.Reg
	switch inst.sym {
	case symASL:
		return c.asl(v)
	case symLSR:
		return c.lsr(v)
	case symROL:
		return c.rol(v)
	case symROR:
		return c.ror(v)
	case symINC:
		v++
		r.updateNZ(v)
		return v
	case symDEC:
		v--
		r.updateNZ(v)
		return v
	case symSLO:
		v = c.asl(v)
		r.SetA(r.A() | v)
		return v
	case symRLA:
		v = c.rol(v)
		r.SetA(r.A() & v)
		return v
	case symSRE:
		v = c.lsr(v)
		r.SetA(r.A() ^ v)
		return v
	case symRRA:
		v = c.ror(v)
		c.adc(v)
		return v
	case symDCP:
		v--
		c.compare(r.A(), v)
		return v
	case symISC:
		v++
		c.adc(^v)
		return v
	default:
		c.invalid(inst)
		return v
	}
}

// implied performs an instruction with no memory operand.
func (c *CPU) implied(inst *Instruction) {
	r := &c.Reg
	switch inst.sym {
	case symCLC:
		r.SetFlag(Carry, false)
	case symSEC:
		r.SetFlag(Carry, true)
	case symCLI:
		r.SetFlag(InterruptDisable, false)
	case symSEI:
		r.SetFlag(InterruptDisable, true)
	case symCLD:
		r.SetFlag(Decimal, false)
	case symSED:
		r.SetFlag(Decimal, true)
	case symCLV:
		r.SetFlag(Overflow, false)
	case symINX:
		r.SetX(r.X() + 1)
	case symINY:
		r.SetY(r.Y() + 1)
	case symDEX:
		r.SetX(r.X() - 1)
	case symDEY:
		r.SetY(r.Y() - 1)
	case symTAX:
		r.SetX(r.A())
	case symTAY:
		r.SetY(r.A())
	case symTXA:
		r.SetA(r.X())
	case symTYA:
		r.SetA(r.Y())
	case symTSX:
		r.SetX(r.SP)
	case symTXS:
		r.SP = r.X()
	case symNOP:
	default:
		c.invalid(inst)
	}
}

// branch evaluates a branch instruction's condition.
func (c *CPU) branch(inst *Instruction) bool {
	r := &c.Reg
	switch inst.sym {
	case symBCC:
		return !r.Flag(Carry)
	case symBCS:
		return r.Flag(Carry)
	case symBEQ:
		return r.Flag(Zero)
	case symBNE:
		return !r.Flag(Zero)
	case symBMI:
		return r.Flag(Negative)
	case symBPL:
		return !r.Flag(Negative)
	case symBVC:
		return !r.Flag(Overflow)
	case symBVS:
		return r.Flag(Overflow)
	default:
		c.invalid(inst)
		return false
	}
}

// Add with carry. The decimal flag is ignored.
func (c *CPU) adc(v byte) {
	r := &c.Reg
	a := r.A()
	sum := uint16(a) + uint16(v) + uint16(r.carry())
	res := byte(sum)
	r.setCarry(sum > 0xff)
	r.SetFlag(Overflow, (a^res)&(v^res)&0x80 != 0)
	r.SetA(res)
}

func (c *CPU) compare(reg, v byte) {
	c.Reg.setCarry(reg >= v)
	c.Reg.updateNZ(reg - v)
}

func (c *CPU) asl(v byte) byte {
	c.Reg.setCarry(v&0x80 != 0)
	v <<= 1
	c.Reg.updateNZ(v)
	return v
}

func (c *CPU) lsr(v byte) byte {
	c.Reg.setCarry(v&0x01 != 0)
	v >>= 1
	c.Reg.updateNZ(v)
	return v
}

func (c *CPU) rol(v byte) byte {
	in := c.Reg.carry()
	c.Reg.setCarry(v&0x80 != 0)
	v = v<<1 | in
	c.Reg.updateNZ(v)
	return v
}

func (c *CPU) ror(v byte) byte {
	in := c.Reg.carry() << 7
	c.Reg.setCarry(v&0x01 != 0)
	v = v>>1 | in
	c.Reg.updateNZ(v)
	return v
}

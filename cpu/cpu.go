// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements a cycle-accurate emulator of the NMOS 6502 core
// used by the NES, which lacks decimal mode.
//
// The CPU advances one clock cycle per call to Step. Each instruction is
// broken into a queue of micro-ops, one per cycle, that reproduce the
// exact sequence of bus reads and writes performed by the hardware,
// including dummy reads, dummy writes and page-crossing penalties.
package cpu

import "github.com/beevik/nes6502/bus"

// Memory is the bus the CPU drives. Every read and write the CPU performs
// during a cycle goes through it.
type Memory interface {
	Read(addr bus.Address) byte
	Write(addr bus.Address, v byte)
}

// Interrupt vectors
const (
	vectorNMI   bus.Address = 0xfffa
	vectorReset bus.Address = 0xfffc
	vectorIRQ   bus.Address = 0xfffe
	vectorBRK   bus.Address = 0xfffe
)

// CPU represents a single 6502 CPU. It contains a pointer to the
// memory associated with the CPU.
type CPU struct {
	Reg    Registers   // CPU registers
	Mem    Memory      // assigned memory
	Cycles uint64      // total executed CPU cycles
	LastPC bus.Address // PC of the last fetched opcode

	queue uopQueue

	// Instruction in flight
	inst      *Instruction
	instPC    bus.Address
	instRegs  Registers
	instCycle uint64
	instBytes [3]byte
	instLen   int
	operand   Operand

	// Internal latches used by micro-ops
	ea          bus.Address // effective address
	ptr         byte        // zero page pointer
	data        byte        // read-modify-write and branch offset latch
	target      bus.Address // branch target
	vector      bus.Address // interrupt vector in use
	pageCrossed bool
	branchTaken bool

	// Interrupt lines
	nmiPending bool
	irqLine    bool

	// Observers
	tracer      func(InstructionTrace)
	cycleTracer func(CycleTrace)
	access      CycleTrace
	debugger    *Debugger
}

// An Option configures a CPU at construction.
type Option func(c *CPU)

// WithTracer installs an observer called after every retired instruction.
func WithTracer(fn func(InstructionTrace)) Option {
	return func(c *CPU) { c.tracer = fn }
}

// WithCycleTracer installs an observer called after every clock cycle.
func WithCycleTracer(fn func(CycleTrace)) Option {
	return func(c *CPU) { c.cycleTracer = fn }
}

// NewCPU creates an emulated 6502 CPU bound to the specified memory. The
// CPU starts in its power-on state with an empty micro-op queue; call
// Reset to run the reset sequence.
func NewCPU(m Memory, opts ...Option) *CPU {
	c := &CPU{Mem: m}
	c.Reg.Init()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AttachTracer installs or replaces the instruction trace observer.
// Tracing never affects timing.
func (c *CPU) AttachTracer(fn func(InstructionTrace)) {
	c.tracer = fn
}

// DetachTracer removes the instruction trace observer.
func (c *CPU) DetachTracer() {
	c.tracer = nil
}

// AttachCycleTracer installs or replaces the per-cycle observer.
func (c *CPU) AttachCycleTracer(fn func(CycleTrace)) {
	c.cycleTracer = fn
}

// DetachCycleTracer removes the per-cycle observer.
func (c *CPU) DetachCycleTracer() {
	c.cycleTracer = nil
}

// AttachDebugger attaches a debugger to the CPU. The debugger receives
// notifications at every instruction boundary and on every bus write.
func (c *CPU) AttachDebugger(d *Debugger) {
	c.debugger = d
}

// DetachDebugger detaches the current debugger from the CPU.
func (c *CPU) DetachDebugger() {
	c.debugger = nil
}

// SetPC updates the CPU program counter to 'addr'. It takes effect at the
// next opcode fetch.
func (c *CPU) SetPC(addr bus.Address) {
	c.Reg.PC = addr
}

// Reset discards any instruction in flight and queues the 7-cycle reset
// sequence. When it completes, PC holds the reset vector.
func (c *CPU) Reset() {
	c.queue.clear()
	c.inst = nil
	c.nmiPending = false
	c.vector = vectorReset
	c.queue.pushAll(resetOps)
}

// NMI signals a non-maskable interrupt. The interrupt is taken at the next
// instruction boundary.
func (c *CPU) NMI() {
	c.nmiPending = true
}

// SetIRQ drives the level-triggered IRQ line. While the line is held
// active and interrupts are enabled, an interrupt is taken at each
// instruction boundary.
func (c *CPU) SetIRQ(active bool) {
	c.irqLine = active
}

// InstructionBoundary returns true if the next call to Step begins a new
// instruction.
func (c *CPU) InstructionBoundary() bool {
	return c.queue.empty() || c.queue.peek().kind == uopDecode
}

// Pending returns the kinds of the micro-ops still queued, in the order
// they will execute. Conditional micro-ops that may still be dropped are
// included.
func (c *CPU) Pending() []MicroOpKind {
	return c.queue.kinds()
}

// Instruction returns the instruction in flight, or nil between
// instructions.
func (c *CPU) Instruction() *Instruction {
	return c.inst
}

// GetInstruction returns the instruction whose opcode is stored at the
// requested address, or nil if the opcode is unsupported.
func (c *CPU) GetInstruction(addr bus.Address) *Instruction {
	return Lookup(c.peek(addr))
}

// NextAddr returns the address of the next instruction following the
// instruction at addr.
func (c *CPU) NextAddr(addr bus.Address) bus.Address {
	inst := c.GetInstruction(addr)
	if inst == nil {
		return addr + 1
	}
	return addr + bus.Address(inst.Length)
}

// Step the cpu by one clock cycle. The only error it returns is an
// *UnsupportedOpcodeError, after which PC is left on the offending opcode.
func (c *CPU) Step() error {
	if c.queue.empty() {
		c.queue.push(op(uopDecode))
	}

	c.access = CycleTrace{Cycle: c.Cycles}
	u := c.queue.pop()
	c.access.Kind = u.kind
	err := c.execute(u)
	c.Cycles++

	if c.cycleTracer != nil {
		c.cycleTracer(c.access)
	}
	if err != nil {
		return err
	}

	c.dropSkipped()
	if c.queue.empty() {
		c.retire()
	}
	return nil
}

// StepInstruction steps the CPU until it reaches the next opcode fetch.
// Any interrupt sequence taken when the current instruction retires is
// run to completion as well.
func (c *CPU) StepInstruction() error {
	for {
		if err := c.Step(); err != nil {
			return err
		}
		if c.InstructionBoundary() {
			return nil
		}
	}
}

// dropSkipped removes conditional micro-ops at the head of the queue whose
// condition did not hold. They consume no cycles.
func (c *CPU) dropSkipped() {
	for !c.queue.empty() {
		switch c.queue.peek().cond {
		case pageCrossed:
			if c.pageCrossed {
				return
			}
		case branchTaken:
			if c.branchTaken {
				return
			}
		default:
			return
		}
		c.queue.pop()
	}
}

// retire completes the instruction in flight and schedules the next
// sequence: an interrupt if one is pending, otherwise an opcode fetch.
func (c *CPU) retire() {
	if c.inst != nil {
		if c.tracer != nil {
			c.tracer(c.newTrace())
		}
		c.inst = nil
	}

	switch {
	case c.nmiPending:
		c.nmiPending = false
		c.vector = vectorNMI
		c.queue.pushAll(interruptOps)
	case c.irqLine && !c.Reg.Flag(InterruptDisable):
		c.vector = vectorIRQ
		c.queue.pushAll(interruptOps)
	default:
		if c.debugger != nil {
			c.debugger.onUpdatePC(c, c.Reg.PC)
		}
		c.queue.push(op(uopDecode))
	}
}

// decode fetches the opcode at PC and queues the micro-ops of its
// instruction.
func (c *CPU) decode() error {
	c.instPC = c.Reg.PC
	c.instRegs = c.Reg
	c.instCycle = c.Cycles
	c.instLen = 0
	c.operand = Operand{}
	c.pageCrossed = false
	c.branchTaken = false

	opcode := c.fetch()
	inst := Lookup(opcode)
	if inst == nil {
		c.Reg.PC = c.instPC
		return &UnsupportedOpcodeError{Opcode: opcode, PC: c.instPC}
	}

	c.LastPC = c.instPC
	c.inst = inst
	c.queue.pushAll(inst.ops)
	return nil
}

// execute performs one micro-op.
func (c *CPU) execute(u microOp) error {
	switch u.kind {
	case uopDecode:
		return c.decode()

	case uopImplied:
		c.read(c.Reg.PC)
		if c.inst.Mode == ACC {
			c.Reg.SetA(c.modify(c.inst, c.Reg.A()))
		} else {
			c.implied(c.inst)
		}

	case uopImmediate:
		v := c.fetch()
		c.operand = Operand{Kind: OperandValue, Value: v}
		c.load(c.inst, v)

	case uopFetchZP:
		c.ea = bus.Address(c.fetch())

	case uopFetchLo:
		c.ea = bus.Address(c.fetch())

	case uopFetchHi:
		c.ea.SetHi(c.fetch())

	case uopFetchHiIndexed:
		hi := c.fetch()
		c.ea = c.indexAddress(bus.MakeAddress(c.ea.Lo(), hi), u.index)

	case uopIndexZP:
		c.read(c.ea)
		c.ea = bus.Address(c.ea.Lo() + c.indexValue(u.index))

	case uopFixHigh:
		c.read(c.ea)
		if c.pageCrossed {
			c.ea += 0x100
		}

	case uopFetchPointer:
		c.ptr = c.fetch()

	case uopIndexPointer:
		c.read(bus.Address(c.ptr))
		c.ptr += c.Reg.X()

	case uopPointerLo:
		c.ea = bus.Address(c.read(bus.Address(c.ptr)))

	case uopPointerHi:
		c.ea.SetHi(c.read(bus.Address(c.ptr + 1)))

	case uopPointerHiIndexed:
		hi := c.read(bus.Address(c.ptr + 1))
		c.ea = c.indexAddress(bus.MakeAddress(c.ea.Lo(), hi), indexY)

	case uopRead:
		c.operand = Operand{Kind: OperandAddress, Address: c.ea}
		c.load(c.inst, c.read(c.ea))

	case uopWrite:
		c.operand = Operand{Kind: OperandAddress, Address: c.ea}
		c.write(c.ea, c.store(c.inst))

	case uopReadData:
		c.operand = Operand{Kind: OperandAddress, Address: c.ea}
		c.data = c.read(c.ea)

	case uopModify:
		c.write(c.ea, c.data)
		c.data = c.modify(c.inst, c.data)

	case uopWriteData:
		c.write(c.ea, c.data)

	case uopBranch:
		c.data = c.fetch()
		c.branchTaken = c.branch(c.inst)
		c.target = c.Reg.PC + bus.Address(int8(c.data))
		c.operand = Operand{Kind: OperandAddress, Address: c.target}

	case uopBranchTaken:
		c.read(c.Reg.PC)
		c.pageCrossed = !c.target.SamePage(c.Reg.PC)
		c.Reg.PC.SetLo(c.target.Lo())

	case uopBranchFix:
		c.read(c.Reg.PC)
		c.Reg.PC = c.target

	case uopJump:
		hi := c.fetch()
		c.Reg.PC = bus.MakeAddress(c.ea.Lo(), hi)
		c.operand = Operand{Kind: OperandAddress, Address: c.Reg.PC}

	case uopIndirectLo:
		c.data = c.read(c.ea)

	case uopIndirectHi:
		// The pointer's high byte is fetched without carrying into the
		// pointer's page.
		hi := c.read(bus.MakeAddress(c.ea.Lo()+1, c.ea.Hi()))
		c.Reg.PC = bus.MakeAddress(c.data, hi)
		c.operand = Operand{Kind: OperandAddress, Address: c.ea}

	case uopDummyPC:
		c.read(c.Reg.PC)

	case uopFetchPadding:
		c.read(c.Reg.PC)
		c.Reg.PC++

	case uopDummyStack:
		c.read(stackAddress(c.Reg.SP))

	case uopPushPCH:
		c.push(c.Reg.PC.Hi())

	case uopPushPCL:
		c.push(c.Reg.PC.Lo())

	case uopPushP:
		c.push(c.Reg.SavePS(true))
		if c.inst != nil && c.inst.sym == symBRK {
			c.vector = vectorBRK
			c.hijack()
		}

	case uopPushPInterrupt:
		c.push(c.Reg.SavePS(false))
		c.hijack()

	case uopPushA:
		c.push(c.Reg.A())

	case uopPullA:
		c.Reg.SetA(c.pull())

	case uopPullP:
		c.Reg.RestorePS(c.pull())

	case uopPullPCL:
		c.Reg.PC.SetLo(c.pull())

	case uopPullPCH:
		c.Reg.PC.SetHi(c.pull())

	case uopIncPC:
		c.read(c.Reg.PC)
		c.Reg.PC++

	case uopVectorLo:
		c.Reg.PC.SetLo(c.read(c.vector))
		c.Reg.SetFlag(InterruptDisable, true)

	case uopVectorHi:
		c.Reg.PC.SetHi(c.read(c.vector + 1))

	case uopResetStack:
		c.read(stackAddress(c.Reg.SP))
		c.Reg.SP--

	default:
		panic("cpu: invalid micro-op")
	}
	return nil
}

// hijack redirects a BRK or IRQ sequence to the NMI vector when an NMI
// arrives before the vector is fetched.
func (c *CPU) hijack() {
	if c.nmiPending {
		c.nmiPending = false
		c.vector = vectorNMI
	}
}

// indexAddress adds an index register to the low byte of addr. The carry
// into the high byte is deferred to the fix-high cycle.
func (c *CPU) indexAddress(addr bus.Address, r indexReg) bus.Address {
	sum := uint16(addr.Lo()) + uint16(c.indexValue(r))
	c.pageCrossed = sum > 0xff
	return bus.MakeAddress(byte(sum), addr.Hi())
}

func (c *CPU) indexValue(r indexReg) byte {
	switch r {
	case indexX:
		return c.Reg.X()
	case indexY:
		return c.Reg.Y()
	default:
		panic("cpu: micro-op requires an index register")
	}
}

// Read a byte from the bus during the current cycle.
func (c *CPU) read(addr bus.Address) byte {
	v := c.Mem.Read(addr)
	c.access.Address, c.access.Data, c.access.Access = addr, v, AccessRead
	return v
}

// Write a byte to the bus during the current cycle.
func (c *CPU) write(addr bus.Address, v byte) {
	if c.debugger != nil {
		c.debugger.onDataStore(c, addr, v)
	}
	c.Mem.Write(addr, v)
	c.access.Address, c.access.Data, c.access.Access = addr, v, AccessWrite
}

// Fetch the byte at PC and advance PC. Bytes fetched for the instruction
// in flight are recorded for tracing.
func (c *CPU) fetch() byte {
	v := c.read(c.Reg.PC)
	c.Reg.PC++
	if c.instLen < len(c.instBytes) {
		c.instBytes[c.instLen] = v
		c.instLen++
	}
	return v
}

// Push a value 'v' onto the stack.
func (c *CPU) push(v byte) {
	c.write(stackAddress(c.Reg.SP), v)
	c.Reg.SP--
}

// Pop a value from the stack and return it.
func (c *CPU) pull() byte {
	c.Reg.SP++
	return c.read(stackAddress(c.Reg.SP))
}

// peek reads memory without side effects when the memory supports it.
func (c *CPU) peek(addr bus.Address) byte {
	if p, ok := c.Mem.(bus.Peeker); ok {
		return p.Peek(addr)
	}
	return c.Mem.Read(addr)
}

func stackAddress(sp byte) bus.Address {
	return 0x0100 | bus.Address(sp)
}

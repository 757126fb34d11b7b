// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"

	"github.com/beevik/nes6502/bus"
)

// Status holds the bits of the processor status register.
type Status byte

// Bits assigned to the processor status byte
const (
	Carry            Status = 1 << 0
	Zero             Status = 1 << 1
	InterruptDisable Status = 1 << 2
	Decimal          Status = 1 << 3
	Break            Status = 1 << 4 // only present in copies pushed to the stack
	Reserved         Status = 1 << 5 // always reads as 1
	Overflow         Status = 1 << 6
	Negative         Status = 1 << 7
)

// String returns the flags as "NV-BDIZC", with clear flags in lower case.
func (s Status) String() string {
	const on, off = "NV-BDIZC", "nv-bdizc"
	b := []byte(off)
	for i := 0; i < 8; i++ {
		if s&(0x80>>i) != 0 {
			b[i] = on[i]
		}
	}
	return string(b)
}

// Registers contains the state of all 6502 registers. The A, X and Y
// registers and the status register are reached through accessors so that
// the flag side effects of assigning them cannot be skipped.
type Registers struct {
	PC bus.Address // program counter
	SP byte        // stack pointer ($100 + SP = stack memory location)
	a  byte        // accumulator
	x  byte        // X indexing register
	y  byte        // Y indexing register
	p  Status      // processor status
}

// A returns the accumulator.
func (r *Registers) A() byte { return r.a }

// X returns the X index register.
func (r *Registers) X() byte { return r.x }

// Y returns the Y index register.
func (r *Registers) Y() byte { return r.y }

// SetA stores v in the accumulator and updates the Zero and Negative
// flags.
func (r *Registers) SetA(v byte) {
	r.a = v
	r.updateNZ(v)
}

// SetX stores v in the X register and updates the Zero and Negative flags.
func (r *Registers) SetX(v byte) {
	r.x = v
	r.updateNZ(v)
}

// SetY stores v in the Y register and updates the Zero and Negative flags.
func (r *Registers) SetY(v byte) {
	r.y = v
	r.updateNZ(v)
}

// P returns the processor status register. The Reserved bit is always set
// and the Break bit is always clear.
func (r *Registers) P() Status { return r.p | Reserved }

// SetP stores a new processor status. The Reserved bit is forced on and
// the Break bit is discarded.
func (r *Registers) SetP(s Status) {
	r.p = (s | Reserved) &^ Break
}

// Flag returns true if all of the requested status bits are set.
func (r *Registers) Flag(f Status) bool {
	return r.p&f == f
}

// SetFlag sets or clears the requested status bits.
func (r *Registers) SetFlag(f Status, on bool) {
	if on {
		r.SetP(r.p | f)
	} else {
		r.SetP(r.p &^ f)
	}
}

// SavePS returns the processor status as it is pushed to the stack. The
// break bit is set if requested.
func (r *Registers) SavePS(brk bool) byte {
	ps := r.p | Reserved
	if brk {
		ps |= Break
	}
	return byte(ps)
}

// RestorePS restores the processor status from a byte pulled off the
// stack.
func (r *Registers) RestorePS(ps byte) {
	r.SetP(Status(ps))
}

// Init sets the registers to their power-on state: A, X, Y and SP are
// zero and interrupts are disabled.
func (r *Registers) Init() {
	r.a, r.x, r.y = 0, 0, 0
	r.SP = 0
	r.PC = 0
	r.SetP(InterruptDisable)
}

// String formats the registers the way conformance logs display them.
func (r Registers) String() string {
	return fmt.Sprintf("A:%02X X:%02X Y:%02X P:%02X SP:%02X", r.a, r.x, r.y, byte(r.P()), r.SP)
}

func (r *Registers) updateNZ(v byte) {
	r.p &^= Zero | Negative
	if v == 0 {
		r.p |= Zero
	}
	if v&0x80 != 0 {
		r.p |= Negative
	}
}

func (r *Registers) setCarry(on bool) {
	r.SetFlag(Carry, on)
}

func (r *Registers) carry() byte {
	return byte(r.p & Carry)
}

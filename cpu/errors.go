// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"fmt"

	"github.com/beevik/nes6502/bus"
)

// ErrUnsupportedOpcode matches any *UnsupportedOpcodeError with errors.Is.
var ErrUnsupportedOpcode = errors.New("unsupported opcode")

// UnsupportedOpcodeError is returned by Step when the CPU fetches an
// opcode that has no instruction. PC is left pointing at the opcode.
type UnsupportedOpcodeError struct {
	Opcode byte
	PC     bus.Address
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("unsupported opcode $%02X at %s", e.Opcode, e.PC)
}

// Is reports whether target is ErrUnsupportedOpcode.
func (e *UnsupportedOpcodeError) Is(target error) bool {
	return target == ErrUnsupportedOpcode
}

// InvalidOpcodeInvocationError reports an operation dispatched through an
// addressing mode it cannot use. It indicates a defect in the opcode table
// and is raised with panic.
type InvalidOpcodeInvocationError struct {
	Name   string
	Mode   Mode
	Opcode byte
}

func (e *InvalidOpcodeInvocationError) Error() string {
	return fmt.Sprintf("invalid invocation of %s in mode %s (opcode $%02X)", e.Name, e.Mode, e.Opcode)
}

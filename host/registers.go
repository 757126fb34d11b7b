// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"
	"strings"

	"github.com/beevik/nes6502/bus"
	"github.com/beevik/nes6502/cpu"
	"github.com/beevik/prefixtree/v2"
)

type registerField struct {
	name string
	size int        // bytes; zero for a status flag
	flag cpu.Status // flag bit when size is zero
}

// Register and flag names. Flags may be abbreviated to any prefix, and
// V is accepted for Overflow.
var registerTree = prefixtree.New[*registerField]()

func init() {
	fields := []registerField{
		{name: "A", size: 1},
		{name: "X", size: 1},
		{name: "Y", size: 1},
		{name: "SP", size: 1},
		{name: "PC", size: 2},
		{name: "Carry", flag: cpu.Carry},
		{name: "Zero", flag: cpu.Zero},
		{name: "InterruptDisable", flag: cpu.InterruptDisable},
		{name: "Decimal", flag: cpu.Decimal},
		{name: "Overflow", flag: cpu.Overflow},
		{name: "Negative", flag: cpu.Negative},
	}
	for i := range fields {
		registerTree.Add(strings.ToLower(fields[i].name), &fields[i])
	}
	registerTree.Add("v", &fields[9])
	registerTree.Add(".", &fields[4])
}

// setRegister assigns v to the named register or status flag and returns
// a message describing the change.
func setRegister(r *cpu.Registers, name string, v int64) (string, error) {
	f, err := registerTree.FindValue(strings.ToLower(name))
	if err != nil {
		return "", fmt.Errorf("register '%s' not found", name)
	}

	// Assigning A, X or Y from the monitor leaves the flags alone.
	p := r.P()
	switch f.name {
	case "A":
		r.SetA(byte(v))
		r.SetP(p)
	case "X":
		r.SetX(byte(v))
		r.SetP(p)
	case "Y":
		r.SetY(byte(v))
		r.SetP(p)
	case "SP":
		r.SP = byte(v)
	case "PC":
		r.PC = bus.Address(v)
	default:
		r.SetFlag(f.flag, v != 0)
		return fmt.Sprintf("Flag %s set to %v.", f.name, v != 0), nil
	}

	if f.size == 2 {
		return fmt.Sprintf("Register %s set to $%04X.", f.name, uint16(v)), nil
	}
	return fmt.Sprintf("Register %s set to $%02X.", f.name, byte(v)), nil
}

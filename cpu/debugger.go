// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"sort"

	"github.com/beevik/nes6502/bus"
)

// A Debugger watches a CPU for breakpoints. Execution breakpoints are
// checked at each instruction boundary, before the opcode fetch; data
// breakpoints are checked on every bus write, including dummy writes.
type Debugger struct {
	handler         BreakpointHandler
	breakpoints     map[bus.Address]*Breakpoint
	dataBreakpoints map[bus.Address]*DataBreakpoint
}

// The BreakpointHandler interface should be implemented by any object that
// wishes to receive debugger breakpoint notifications.
type BreakpointHandler interface {
	OnBreakpoint(cpu *CPU, b *Breakpoint)
	OnDataBreakpoint(cpu *CPU, b *DataBreakpoint)
}

// A Breakpoint represents an address that will cause the debugger to stop
// code execution when the program counter reaches it.
type Breakpoint struct {
	Address  bus.Address // address of execution breakpoint
	Disabled bool        // this breakpoint is currently disabled
	Hits     int         // number of times the breakpoint triggered
}

// A DataBreakpoint represents an address that will cause the debugger to
// stop executing code when a byte is stored to it.
type DataBreakpoint struct {
	Address     bus.Address // breakpoint triggered by stores to this address
	Disabled    bool        // this breakpoint is currently disabled
	Conditional bool        // only trigger when Value is stored
	Value       byte
	Hits        int
}

// NewDebugger creates a new CPU debugger.
func NewDebugger(handler BreakpointHandler) *Debugger {
	return &Debugger{
		handler:         handler,
		breakpoints:     make(map[bus.Address]*Breakpoint),
		dataBreakpoints: make(map[bus.Address]*DataBreakpoint),
	}
}

// GetBreakpoint looks up a breakpoint by address and returns it if found.
// Otherwise it returns nil.
func (d *Debugger) GetBreakpoint(addr bus.Address) *Breakpoint {
	return d.breakpoints[addr]
}

// GetBreakpoints returns all breakpoints ordered by address.
func (d *Debugger) GetBreakpoints() []*Breakpoint {
	var bps []*Breakpoint
	for _, b := range d.breakpoints {
		bps = append(bps, b)
	}
	sort.Slice(bps, func(i, j int) bool { return bps[i].Address < bps[j].Address })
	return bps
}

// AddBreakpoint adds a new breakpoint address to the debugger, replacing
// any breakpoint already set there.
func (d *Debugger) AddBreakpoint(addr bus.Address) *Breakpoint {
	b := &Breakpoint{Address: addr}
	d.breakpoints[addr] = b
	return b
}

// RemoveBreakpoint removes a breakpoint from the debugger.
func (d *Debugger) RemoveBreakpoint(addr bus.Address) {
	delete(d.breakpoints, addr)
}

// GetDataBreakpoint looks up a data breakpoint on the provided address
// and returns it if found. Otherwise it returns nil.
func (d *Debugger) GetDataBreakpoint(addr bus.Address) *DataBreakpoint {
	return d.dataBreakpoints[addr]
}

// GetDataBreakpoints returns all data breakpoints ordered by address.
func (d *Debugger) GetDataBreakpoints() []*DataBreakpoint {
	var bps []*DataBreakpoint
	for _, b := range d.dataBreakpoints {
		bps = append(bps, b)
	}
	sort.Slice(bps, func(i, j int) bool { return bps[i].Address < bps[j].Address })
	return bps
}

// AddDataBreakpoint adds an unconditional data breakpoint on the requested
// address.
func (d *Debugger) AddDataBreakpoint(addr bus.Address) *DataBreakpoint {
	b := &DataBreakpoint{Address: addr}
	d.dataBreakpoints[addr] = b
	return b
}

// AddConditionalDataBreakpoint adds a data breakpoint that triggers only
// when 'value' is stored to the requested address.
func (d *Debugger) AddConditionalDataBreakpoint(addr bus.Address, value byte) *DataBreakpoint {
	b := &DataBreakpoint{Address: addr, Conditional: true, Value: value}
	d.dataBreakpoints[addr] = b
	return b
}

// RemoveDataBreakpoint removes a (conditional or unconditional) data
// breakpoint at the requested address.
func (d *Debugger) RemoveDataBreakpoint(addr bus.Address) {
	delete(d.dataBreakpoints, addr)
}

func (d *Debugger) onUpdatePC(cpu *CPU, addr bus.Address) {
	if b, ok := d.breakpoints[addr]; ok && !b.Disabled {
		b.Hits++
		if d.handler != nil {
			d.handler.OnBreakpoint(cpu, b)
		}
	}
}

func (d *Debugger) onDataStore(cpu *CPU, addr bus.Address, v byte) {
	if b, ok := d.dataBreakpoints[addr]; ok && !b.Disabled {
		if !b.Conditional || b.Value == v {
			b.Hits++
			if d.handler != nil {
				d.handler.OnDataBreakpoint(cpu, b)
			}
		}
	}
}

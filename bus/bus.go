// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bus implements the 16-bit address bus shared by the CPU and its
// memory-mapped devices.
//
// A Bus is built once from a fixed list of device mappings. Every read and
// write is routed to the device whose region contains the address. Reads
// of addresses that no device claims return the last byte written to the
// bus, reproducing the "open bus" behavior of real hardware.
package bus

import (
	"fmt"
	"sort"
)

// A Device is a peripheral that responds to reads and writes within its
// mapped region. Devices must always return a defined byte, even for
// addresses inside their region that they do not decode.
type Device interface {
	Read(addr Address) byte
	Write(addr Address, v byte)
}

// A Peeker is a Device that can report the byte at an address without
// triggering any of the side effects a Read might have.
type Peeker interface {
	Peek(addr Address) byte
}

// A Mapping pairs a device with the region of the address space it owns.
type Mapping struct {
	Name   string
	Region Region
	Device Device
}

func (m *Mapping) bounds() (start, end Address) {
	return m.Region.Bounds()
}

// An OverlapError is returned by New when two device regions claim the
// same address.
type OverlapError struct {
	First  string
	Second string
	Addr   Address
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("bus: devices %q and %q overlap at $%04X", e.First, e.Second, uint16(e.Addr))
}

// A Bus routes reads and writes to a fixed set of devices.
type Bus struct {
	mappings []Mapping
	last     byte // last byte written; returned for unclaimed reads
}

// New creates a bus from a list of device mappings. The mappings are
// ordered by ascending start address. It returns an *OverlapError if any
// two regions overlap.
func New(mappings ...Mapping) (*Bus, error) {
	b := &Bus{mappings: make([]Mapping, len(mappings))}
	copy(b.mappings, mappings)

	for i := range b.mappings {
		m := &b.mappings[i]
		if m.Region == nil || m.Device == nil {
			return nil, fmt.Errorf("bus: mapping %q is missing a region or device", m.Name)
		}
		if m.Name == "" {
			start, end := m.bounds()
			m.Name = fmt.Sprintf("$%04X-$%04X", uint16(start), uint16(end))
		}
	}

	sort.SliceStable(b.mappings, func(i, j int) bool {
		si, _ := b.mappings[i].bounds()
		sj, _ := b.mappings[j].bounds()
		return si < sj
	})

	for i := 1; i < len(b.mappings); i++ {
		prev, curr := &b.mappings[i-1], &b.mappings[i]
		_, prevEnd := prev.bounds()
		currStart, _ := curr.bounds()
		if currStart <= prevEnd {
			return nil, &OverlapError{First: prev.Name, Second: curr.Name, Addr: currStart}
		}
	}

	return b, nil
}

// MustNew is like New but panics if the mappings overlap.
func MustNew(mappings ...Mapping) *Bus {
	b, err := New(mappings...)
	if err != nil {
		panic(err)
	}
	return b
}

// Read returns the byte at addr. If no device claims the address, the
// most recent byte written to the bus is returned.
func (b *Bus) Read(addr Address) byte {
	if m := b.lookup(addr); m != nil {
		return m.Device.Read(addr)
	}
	return b.last
}

// Write stores v at addr. The open-bus byte is updated even if no device
// claims the address.
func (b *Bus) Write(addr Address, v byte) {
	b.last = v
	if m := b.lookup(addr); m != nil {
		m.Device.Write(addr, v)
	}
}

// Peek returns the byte at addr without side effects when the owning
// device supports it. Devices that are not Peekers are read normally.
func (b *Bus) Peek(addr Address) byte {
	m := b.lookup(addr)
	if m == nil {
		return b.last
	}
	if p, ok := m.Device.(Peeker); ok {
		return p.Peek(addr)
	}
	return m.Device.Read(addr)
}

// OpenBus returns the byte currently floating on the undriven bus.
func (b *Bus) OpenBus() byte {
	return b.last
}

// Mappings returns a copy of the device mappings in address order.
func (b *Bus) Mappings() []Mapping {
	m := make([]Mapping, len(b.mappings))
	copy(m, b.mappings)
	return m
}

func (b *Bus) lookup(addr Address) *Mapping {
	for i := range b.mappings {
		if b.mappings[i].Region.Contains(addr) {
			return &b.mappings[i]
		}
	}
	return nil
}

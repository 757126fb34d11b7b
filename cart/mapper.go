// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cart

import (
	"github.com/beevik/nes6502/bus"
	"github.com/pkg/errors"
)

// A Mapper is the cartridge hardware seen by the CPU. It claims its own
// region of the CPU address space.
type Mapper interface {
	bus.Device
	bus.Peeker
	ID() int
	Region() bus.Region
	PatternTable() []byte
}

// NewMapper returns the mapper hardware for a cartridge.
func NewMapper(c *Cartridge) (Mapper, error) {
	switch c.Mapper {
	case 0:
		return NewNROM(c)
	default:
		return nil, errors.Wrapf(ErrUnsupportedMapper, "mapper %d", c.Mapper)
	}
}

// NROM is mapper 0: up to 32KB of fixed PRG-ROM at $8000 and 8KB of
// PRG-RAM at $6000. A 16KB PRG-ROM is mirrored into both halves.
type NROM struct {
	prg []byte
	ram [0x2000]byte
	chr []byte
}

// NewNROM creates the NROM mapper for a cartridge.
func NewNROM(c *Cartridge) (*NROM, error) {
	if n := len(c.PRG); n != 0x4000 && n != 0x8000 {
		return nil, errors.Errorf("NROM requires 16KB or 32KB PRG-ROM, got %d bytes", n)
	}
	return &NROM{prg: c.PRG, chr: c.CHR}, nil
}

// ID returns the iNES mapper number.
func (m *NROM) ID() int {
	return 0
}

// Region returns the CPU addresses claimed by the mapper.
func (m *NROM) Region() bus.Region {
	return bus.AddressRange{Start: 0x6000, End: 0xffff}
}

// PatternTable returns the CHR memory.
func (m *NROM) PatternTable() []byte {
	return m.chr
}

func (m *NROM) Read(addr bus.Address) byte {
	if addr < 0x8000 {
		return m.ram[addr&0x1fff]
	}
	return m.prg[int(addr-0x8000)%len(m.prg)]
}

func (m *NROM) Peek(addr bus.Address) byte {
	return m.Read(addr)
}

// Write stores to PRG-RAM. Writes to PRG-ROM are ignored.
func (m *NROM) Write(addr bus.Address, v byte) {
	if addr < 0x8000 {
		m.ram[addr&0x1fff] = v
	}
}

// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nes assembles the CPU side of the NES: the CPU core, 2KB of
// internal RAM, the cartridge slot and any external devices, all joined by
// a single address bus.
package nes

import (
	"github.com/beevik/nes6502/bus"
	"github.com/beevik/nes6502/cart"
	"github.com/beevik/nes6502/cpu"
	"github.com/beevik/nes6502/logger"
	"github.com/pkg/errors"
)

// Address map constants
const (
	RAMSize = 0x0800

	// NestestEntry is the entry point of the nestest ROM's automated mode.
	NestestEntry bus.Address = 0xc000
)

// RAMRegion is the internal RAM's region: $0000-$1FFF, with the 2KB of
// storage mirrored four times.
var RAMRegion = bus.AddressMask{Base: 0x0000, Mask: 0xe000}

// A Console is the CPU and everything attached to its bus.
type Console struct {
	CPU    *cpu.CPU
	Bus    *bus.Bus
	RAM    *bus.RAM
	Cart   *cart.Cartridge
	Mapper cart.Mapper
}

type config struct {
	devices []bus.Mapping
	cpuOpts []cpu.Option
}

// An Option configures a Console.
type Option func(c *config)

// WithDevice attaches an external device, such as the picture or audio
// registers, to the bus.
func WithDevice(name string, region bus.Region, dev bus.Device) Option {
	return func(c *config) {
		c.devices = append(c.devices, bus.Mapping{Name: name, Region: region, Device: dev})
	}
}

// WithCPUOptions passes options through to the CPU.
func WithCPUOptions(opts ...cpu.Option) Option {
	return func(c *config) {
		c.cpuOpts = append(c.cpuOpts, opts...)
	}
}

// New builds a console. The cartridge may be nil, in which case only RAM
// and external devices respond on the bus.
func New(c *cart.Cartridge, opts ...Option) (*Console, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	n := &Console{Cart: c, RAM: bus.NewRAM(0, RAMSize)}
	mappings := []bus.Mapping{{Name: "ram", Region: RAMRegion, Device: n.RAM}}

	if c != nil {
		m, err := cart.NewMapper(c)
		if err != nil {
			return nil, err
		}
		n.Mapper = m
		mappings = append(mappings, bus.Mapping{Name: "cart", Region: m.Region(), Device: m})
	}

	for _, d := range cfg.devices {
		logger.Logf("nes", "attached %s at %s", d.Name, d.Region)
	}
	mappings = append(mappings, cfg.devices...)

	b, err := bus.New(mappings...)
	if err != nil {
		return nil, errors.Wrap(err, "nes")
	}
	n.Bus = b
	n.CPU = cpu.NewCPU(b, cfg.cpuOpts...)
	return n, nil
}

// Reset runs the CPU's reset sequence to completion.
func (n *Console) Reset() error {
	n.CPU.Reset()
	return n.CPU.StepInstruction()
}

// Load reads a cartridge image and builds a console around it.
func Load(filename string, opts ...Option) (*Console, error) {
	c, err := cart.Load(filename)
	if err != nil {
		return nil, err
	}
	return New(c, opts...)
}

// LoadNestest builds a console for the nestest ROM, resets it and points
// the CPU at the automated entry point.
func LoadNestest(filename string, opts ...Option) (*Console, error) {
	n, err := Load(filename, opts...)
	if err != nil {
		return nil, err
	}
	if err := n.Reset(); err != nil {
		return nil, errors.Wrap(err, "nestest reset")
	}
	n.CPU.SetPC(NestestEntry)
	logger.Logf("nes", "nestest entry %s", NestestEntry)
	return n, nil
}

// NestestResult returns the error codes the nestest ROM leaves at $02
// (documented opcodes) and $03 (undocumented opcodes). Both are zero when
// every test passed.
func (n *Console) NestestResult() (official, unofficial byte) {
	return n.Bus.Peek(0x02), n.Bus.Peek(0x03)
}

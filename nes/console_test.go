package nes_test

import (
	"testing"

	"github.com/beevik/nes6502/bus"
	"github.com/beevik/nes6502/cart"
	"github.com/beevik/nes6502/nes"
)

func newCart(program []byte) *cart.Cartridge {
	prg := make([]byte, 0x4000)
	copy(prg, program)
	prg[0x3ffc], prg[0x3ffd] = 0x00, 0x80 // reset vector $8000
	return &cart.Cartridge{PRG: prg, CHR: make([]byte, 0x2000)}
}

type registers struct {
	writes map[bus.Address]byte
}

func (r *registers) Read(addr bus.Address) byte { return 0x80 | byte(addr&7) }

func (r *registers) Write(addr bus.Address, v byte) { r.writes[addr] = v }

func TestConsole(t *testing.T) {
	n, err := nes.New(newCart([]byte{
		0xa9, 0x42, // LDA #$42
		0x8d, 0x02, 0x08, // STA $0802
		0xad, 0x02, 0x00, // LDA $0002
		0x8d, 0x00, 0x60, // STA $6000
		0xad, 0x00, 0x50, // LDA $5000
		0x4c, 0x0e, 0x80, // JMP $800E
	}))
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Reset(); err != nil {
		t.Fatal(err)
	}
	if n.CPU.Reg.PC != 0x8000 || n.CPU.Cycles != 7 || n.CPU.Reg.SP != 0xfd {
		t.Fatalf("unexpected state after reset: PC=%s cycles=%d %s", n.CPU.Reg.PC, n.CPU.Cycles, n.CPU.Reg)
	}

	for i := 0; i < 5; i++ {
		if err := n.CPU.StepInstruction(); err != nil {
			t.Fatal(err)
		}
	}

	if got := n.Bus.Peek(0x1802); got != 0x42 {
		t.Errorf("RAM mirror incorrect. exp: $42, got: $%02X", got)
	}
	if got := n.Mapper.Read(0x6000); got != 0x42 {
		t.Errorf("PRG-RAM incorrect. exp: $42, got: $%02X", got)
	}

	// $5000 is unclaimed, so the read returns the last byte written.
	if n.CPU.Reg.A() != 0x42 {
		t.Errorf("open bus read incorrect. exp: $42, got: $%02X", n.CPU.Reg.A())
	}
	if n.CPU.Reg.PC != 0x800e {
		t.Errorf("PC incorrect. exp: $800E, got: %s", n.CPU.Reg.PC)
	}
}

func TestDevices(t *testing.T) {
	regs := &registers{writes: make(map[bus.Address]byte)}
	n, err := nes.New(newCart([]byte{
		0xa9, 0x1e, // LDA #$1E
		0x8d, 0x09, 0x20, // STA $2009
		0xad, 0x0a, 0x3f, // LDA $3F0A
	}), nes.WithDevice("ppu", bus.AddressMask{Base: 0x2000, Mask: 0xe000}, regs))
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Reset(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := n.CPU.StepInstruction(); err != nil {
			t.Fatal(err)
		}
	}

	if regs.writes[0x2009] != 0x1e {
		t.Errorf("device write lost: %v", regs.writes)
	}
	if n.CPU.Reg.A() != 0x82 {
		t.Errorf("device read incorrect. exp: $82, got: $%02X", n.CPU.Reg.A())
	}
}

func TestOverlappingDevice(t *testing.T) {
	regs := &registers{writes: make(map[bus.Address]byte)}
	_, err := nes.New(newCart(nil), nes.WithDevice("bad", bus.AddressRange{Start: 0x7000, End: 0x7fff}, regs))
	if err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestNoCartridge(t *testing.T) {
	n, err := nes.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	n.Bus.Write(0x0001, 0x99)
	if n.Bus.Read(0x0801) != 0x99 || n.Bus.Read(0x8000) != 0x99 {
		t.Error("unexpected bus contents")
	}
}

func TestNestestResult(t *testing.T) {
	n, err := nes.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	n.RAM.Write(0x02, 0x00)
	n.RAM.Write(0x03, 0x15)
	official, unofficial := n.NestestResult()
	if official != 0 || unofficial != 0x15 {
		t.Errorf("unexpected result $%02X $%02X", official, unofficial)
	}
}
